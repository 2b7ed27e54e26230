package server

import (
	"errors"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/store"
	"geo-tools/cmd/geomodel/structural"
)

type messageResponse struct {
	Message string `json:"message"`
}

// Diagnostic is one parse or validation finding. Line and Column are 0 when
// unknown.
type Diagnostic struct {
	Kind        string   `json:"kind"`
	Message     string   `json:"message"`
	Line        int      `json:"line,omitempty"`
	Column      int      `json:"column,omitempty"`
	Expected    []string `json:"expected,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

var diagnosticKinds = []struct {
	err  error
	kind string
}{
	{dsl.ErrSyntax, "syntax"},
	{dsl.ErrParse, "parse"},
	{dsl.ErrDuplicateID, "duplicate_id"},
	{dsl.ErrMissingProperty, "missing_property"},
	{dsl.ErrUndefinedReference, "undefined_reference"},
	{dsl.ErrCircularDependency, "circular_dependency"},
	{dsl.ErrTemporalInconsistency, "temporal_inconsistency"},
}

func kindOf(err error) string {
	for _, k := range diagnosticKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "error"
}

// parseDiagnostic converts a parse failure.
func parseDiagnostic(err error) Diagnostic {
	var serr *dsl.SyntaxError
	if errors.As(err, &serr) {
		return Diagnostic{
			Kind:     "syntax",
			Message:  serr.Message,
			Line:     serr.Line,
			Column:   serr.Column,
			Expected: serr.Expected,
		}
	}
	return Diagnostic{Kind: kindOf(err), Message: err.Error()}
}

func semanticDiagnostic(err dsl.SemanticError) Diagnostic {
	d := Diagnostic{Kind: kindOf(err), Message: err.Message()}
	if loc := err.Location(); loc != nil {
		d.Line, d.Column = loc.Line, loc.Column
	}
	var uerr *dsl.UndefinedReferenceError
	if errors.As(err, &uerr) {
		d.Suggestions = uerr.Suggestions()
	}
	return d
}

type ProgramSummary struct {
	Rocks       int `json:"rocks"`
	Depositions int `json:"depositions"`
	Erosions    int `json:"erosions"`
	Intrusions  int `json:"intrusions"`
}

func summarize(p *dsl.Program) ProgramSummary {
	return ProgramSummary{
		Rocks:       len(p.Rocks),
		Depositions: len(p.Depositions),
		Erosions:    len(p.Erosions),
		Intrusions:  len(p.Intrusions),
	}
}

// ---------------------------------------------------------------------------
// Structural models
// ---------------------------------------------------------------------------

type ExtentJSON struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
	ZMin float64 `json:"z_min"`
	ZMax float64 `json:"z_max"`
}

type ResolutionJSON struct {
	NX         int `json:"nx"`
	NY         int `json:"ny"`
	NZ         int `json:"nz"`
	Refinement int `json:"refinement"`
}

type SurfaceJSON struct {
	SurfaceID string   `json:"surface_id" validate:"required"`
	Name      string   `json:"name"`
	RockID    string   `json:"rock_id"`
	RockType  string   `json:"rock_type"`
	AgeMa     *float64 `json:"age_ma,omitempty"`
}

type GroupJSON struct {
	GroupIndex int      `json:"group_index"`
	GroupName  string   `json:"group_name"`
	Surfaces   []string `json:"surfaces"`
	Relation   string   `json:"relation" validate:"oneof=ERODE ONLAP BASEMENT"`
}

type PointJSON struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Surface string  `json:"surface" validate:"required"`
	Series  string  `json:"series,omitempty"`
}

type OrientationJSON struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Azimuth  float64 `json:"azimuth" validate:"gte=0,lt=360"`
	Dip      float64 `json:"dip" validate:"gte=0,lte=90"`
	Polarity float64 `json:"polarity"`
	Surface  string  `json:"surface" validate:"required"`
	Series   string  `json:"series,omitempty"`
}

// ModelJSON is a configuration with optional spatial data.
type ModelJSON struct {
	Name             string            `json:"name" validate:"required"`
	DocumentID       *int64            `json:"document_id,omitempty"`
	DSLDocumentID    *int64            `json:"dsl_document_id,omitempty"`
	Extent           *ExtentJSON       `json:"extent,omitempty"`
	Resolution       *ResolutionJSON   `json:"resolution,omitempty"`
	EventOrder       []string          `json:"event_order,omitempty"`
	Surfaces         []SurfaceJSON     `json:"surfaces" validate:"dive"`
	StructuralGroups []GroupJSON       `json:"structural_groups" validate:"dive"`
	SurfacePoints    []PointJSON       `json:"surface_points,omitempty" validate:"dive"`
	Orientations     []OrientationJSON `json:"orientations,omitempty" validate:"dive"`
}

func toModelJSON(data *structural.ModelData) ModelJSON {
	cfg := data.Config
	e, r := cfg.Extent, cfg.Resolution
	m := ModelJSON{
		Name:             cfg.Name,
		DocumentID:       cfg.DocumentID,
		DSLDocumentID:    cfg.DSLDocumentID,
		Extent:           &ExtentJSON{e.XMin, e.XMax, e.YMin, e.YMax, e.ZMin, e.ZMax},
		Resolution:       &ResolutionJSON{r.NX, r.NY, r.NZ, r.Refinement},
		EventOrder:       cfg.EventOrder,
		Surfaces:         make([]SurfaceJSON, 0, len(cfg.Surfaces)),
		StructuralGroups: make([]GroupJSON, 0, len(cfg.StructuralGroups)),
	}
	for _, s := range cfg.Surfaces {
		m.Surfaces = append(m.Surfaces, SurfaceJSON(s))
	}
	for _, g := range cfg.StructuralGroups {
		m.StructuralGroups = append(m.StructuralGroups, GroupJSON{
			GroupIndex: g.GroupIndex,
			GroupName:  g.GroupName,
			Surfaces:   g.Surfaces,
			Relation:   string(g.Relation),
		})
	}
	for _, p := range data.SurfacePoints {
		m.SurfacePoints = append(m.SurfacePoints, PointJSON(p))
	}
	for _, o := range data.Orientations {
		m.Orientations = append(m.Orientations, OrientationJSON(o))
	}
	return m
}

// toModelData expects m to have passed request validation.
func (s *Server) toModelData(m ModelJSON) *structural.ModelData {
	cfg := structural.ModelConfig{
		Name:          m.Name,
		DocumentID:    m.DocumentID,
		DSLDocumentID: m.DSLDocumentID,
		Extent:        s.deps.Extent,
		Resolution:    s.deps.Resolution,
		EventOrder:    m.EventOrder,
	}
	if e := m.Extent; e != nil {
		cfg.Extent = structural.ModelExtent(*e)
	}
	if r := m.Resolution; r != nil {
		cfg.Resolution = structural.ModelResolution(*r)
	}
	for _, sj := range m.Surfaces {
		cfg.Surfaces = append(cfg.Surfaces, structural.SurfaceConfig(sj))
	}
	for _, g := range m.StructuralGroups {
		rel, _ := structural.ParseRelation(g.Relation)
		cfg.StructuralGroups = append(cfg.StructuralGroups, structural.StructuralGroupConfig{
			GroupIndex: g.GroupIndex,
			GroupName:  g.GroupName,
			Surfaces:   g.Surfaces,
			Relation:   rel,
		})
	}
	data := &structural.ModelData{Config: cfg}
	for _, p := range m.SurfacePoints {
		data.SurfacePoints = append(data.SurfacePoints, structural.SurfacePoint(p))
	}
	for _, o := range m.Orientations {
		data.Orientations = append(data.Orientations, structural.Orientation(o))
	}
	return data
}

// IssueJSON is a config or data validation error.
type IssueJSON struct {
	Message  string   `json:"message"`
	Surfaces []string `json:"surfaces,omitempty"`
	Indices  []int    `json:"indices,omitempty"`
}

type CheckJSON struct {
	Valid    bool        `json:"valid"`
	Errors   []IssueJSON `json:"errors"`
	Warnings []string    `json:"warnings"`
}

func toCheckJSON(res *structural.ConfigResult) CheckJSON {
	out := CheckJSON{Valid: res.IsValid(), Errors: []IssueJSON{}, Warnings: []string{}}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, IssueJSON{Message: e.Message, Surfaces: e.Surfaces, Indices: e.Indices})
	}
	out.Warnings = append(out.Warnings, res.Warnings...)
	return out
}

// ---------------------------------------------------------------------------
// Stored records
// ---------------------------------------------------------------------------

type DocumentJSON struct {
	ID               int64    `json:"id"`
	DocumentID       *int64   `json:"document_id,omitempty"`
	Name             string   `json:"name"`
	RawDSL           string   `json:"raw_dsl"`
	IsValid          bool     `json:"is_valid"`
	ValidationErrors []string `json:"validation_errors"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func toDocumentJSON(d store.Document) DocumentJSON {
	errs := d.ValidationErrors
	if errs == nil {
		errs = []string{}
	}
	return DocumentJSON{
		ID:               d.ID,
		DocumentID:       d.DocumentID,
		Name:             d.Name,
		RawDSL:           d.RawDSL,
		IsValid:          d.IsValid,
		ValidationErrors: errs,
		CreatedAt:        d.CreatedAt.Format(timeLayout),
		UpdatedAt:        d.UpdatedAt.Format(timeLayout),
	}
}

type ModelSummaryJSON struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	DocumentID        *int64 `json:"document_id,omitempty"`
	DSLDocumentID     *int64 `json:"dsl_document_id,omitempty"`
	SurfaceCount      int    `json:"surface_count"`
	GroupCount        int    `json:"group_count"`
	SurfacePointCount int    `json:"surface_point_count"`
	OrientationCount  int    `json:"orientation_count"`
	CreatedAt         string `json:"created_at"`
}

func toModelSummaryJSON(m store.ModelSummary) ModelSummaryJSON {
	return ModelSummaryJSON{
		ID:                m.ID,
		Name:              m.Name,
		Status:            string(m.Status),
		DocumentID:        m.DocumentID,
		DSLDocumentID:     m.DSLDocumentID,
		SurfaceCount:      m.SurfaceCount,
		GroupCount:        m.GroupCount,
		SurfacePointCount: m.SurfacePointCount,
		OrientationCount:  m.OrientationCount,
		CreatedAt:         m.CreatedAt.Format(timeLayout),
	}
}
