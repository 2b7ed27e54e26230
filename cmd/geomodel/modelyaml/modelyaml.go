// Package modelyaml reads and writes structural model configurations and
// their spatial data as YAML.
package modelyaml

import (
	"bytes"
	"fmt"

	"geo-tools/cmd/geomodel/structural"

	"gopkg.in/yaml.v3"
)

// ---- Internal YAML structs -------------------------------------------------
//
// These mirror the structural types with YAML tags. Extent and resolution
// are pointers so that an absent block can fall back to the defaults.

type yamlModel struct {
	Name             string          `yaml:"name"`
	DocumentID       *int64          `yaml:"document_id,omitempty"`
	DSLDocumentID    *int64          `yaml:"dsl_document_id,omitempty"`
	Extent           *yamlExtent     `yaml:"extent,omitempty"`
	Resolution       *yamlResolution `yaml:"resolution,omitempty"`
	EventOrder       []string        `yaml:"event_order,omitempty,flow"`
	Surfaces         []yamlSurface   `yaml:"surfaces"`
	StructuralGroups []yamlGroup     `yaml:"structural_groups"`

	SurfacePoints []yamlPoint       `yaml:"surface_points,omitempty"`
	Orientations  []yamlOrientation `yaml:"orientations,omitempty"`
}

type yamlExtent struct {
	XMin float64 `yaml:"x_min"`
	XMax float64 `yaml:"x_max"`
	YMin float64 `yaml:"y_min"`
	YMax float64 `yaml:"y_max"`
	ZMin float64 `yaml:"z_min"`
	ZMax float64 `yaml:"z_max"`
}

type yamlResolution struct {
	NX         int `yaml:"nx"`
	NY         int `yaml:"ny"`
	NZ         int `yaml:"nz"`
	Refinement int `yaml:"refinement"`
}

type yamlSurface struct {
	SurfaceID string   `yaml:"surface_id"`
	Name      string   `yaml:"name"`
	RockID    string   `yaml:"rock_id"`
	RockType  string   `yaml:"rock_type"`
	AgeMa     *float64 `yaml:"age_ma,omitempty"`
}

type yamlGroup struct {
	GroupIndex int      `yaml:"group_index"`
	GroupName  string   `yaml:"group_name"`
	Surfaces   []string `yaml:"surfaces,flow"`
	Relation   string   `yaml:"relation"`
}

type yamlPoint struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Z       float64 `yaml:"z"`
	Surface string  `yaml:"surface"`
	Series  string  `yaml:"series,omitempty"`
}

type yamlOrientation struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Z        float64 `yaml:"z"`
	Azimuth  float64 `yaml:"azimuth"`
	Dip      float64 `yaml:"dip"`
	Polarity float64 `yaml:"polarity"`
	Surface  string  `yaml:"surface"`
	Series   string  `yaml:"series,omitempty"`
}

// ---- Decode ----------------------------------------------------------------

// Decode reads a model document. Spatial data is optional; when absent the
// returned ModelData has no points or orientations.
func Decode(in []byte) (*structural.ModelData, error) {
	var docNode yaml.Node
	if err := yaml.Unmarshal(in, &docNode); err != nil {
		return nil, err
	}
	if len(docNode.Content) == 0 {
		return nil, fmt.Errorf("phase=parse path=<doc>: empty YAML")
	}
	root := docNode.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("phase=parse path=<doc>: expected a mapping, got YAML kind %d", root.Kind)
	}

	var ym yamlModel
	if err := root.Decode(&ym); err != nil {
		return nil, err
	}
	return convertModel(ym)
}

// DecodeConfig is Decode without the spatial data.
func DecodeConfig(in []byte) (*structural.ModelConfig, error) {
	data, err := Decode(in)
	if err != nil {
		return nil, err
	}
	return &data.Config, nil
}

func convertModel(ym yamlModel) (*structural.ModelData, error) {
	cfg := structural.ModelConfig{
		Name:          ym.Name,
		DocumentID:    ym.DocumentID,
		DSLDocumentID: ym.DSLDocumentID,
		Extent:        structural.DefaultExtent(),
		Resolution:    structural.DefaultResolution(),
		EventOrder:    ym.EventOrder,
	}
	if e := ym.Extent; e != nil {
		cfg.Extent = structural.ModelExtent{XMin: e.XMin, XMax: e.XMax, YMin: e.YMin, YMax: e.YMax, ZMin: e.ZMin, ZMax: e.ZMax}
	}
	if r := ym.Resolution; r != nil {
		cfg.Resolution = structural.ModelResolution{NX: r.NX, NY: r.NY, NZ: r.NZ, Refinement: r.Refinement}
	}

	for i, s := range ym.Surfaces {
		if s.SurfaceID == "" {
			return nil, fmt.Errorf("phase=parse path=surfaces[%d]: missing 'surface_id'", i)
		}
		cfg.Surfaces = append(cfg.Surfaces, structural.SurfaceConfig(s))
	}

	for i, g := range ym.StructuralGroups {
		rel, ok := structural.ParseRelation(g.Relation)
		if !ok {
			return nil, fmt.Errorf("phase=parse path=structural_groups[%d].relation: unknown relation %q (want ERODE, ONLAP or BASEMENT)", i, g.Relation)
		}
		cfg.StructuralGroups = append(cfg.StructuralGroups, structural.StructuralGroupConfig{
			GroupIndex: g.GroupIndex,
			GroupName:  g.GroupName,
			Surfaces:   g.Surfaces,
			Relation:   rel,
		})
	}

	data := &structural.ModelData{Config: cfg}
	for _, p := range ym.SurfacePoints {
		data.SurfacePoints = append(data.SurfacePoints, structural.SurfacePoint(p))
	}
	for _, o := range ym.Orientations {
		data.Orientations = append(data.Orientations, structural.Orientation(o))
	}
	return data, nil
}

// ---- Encode ----------------------------------------------------------------

// EncodeConfig writes cfg without spatial data.
func EncodeConfig(cfg *structural.ModelConfig) ([]byte, error) {
	return Encode(&structural.ModelData{Config: *cfg})
}

// Encode writes data with a two-space indent.
func Encode(data *structural.ModelData) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fromModel(data)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fromModel(data *structural.ModelData) yamlModel {
	cfg := data.Config
	e, r := cfg.Extent, cfg.Resolution
	ym := yamlModel{
		Name:          cfg.Name,
		DocumentID:    cfg.DocumentID,
		DSLDocumentID: cfg.DSLDocumentID,
		Extent:        &yamlExtent{XMin: e.XMin, XMax: e.XMax, YMin: e.YMin, YMax: e.YMax, ZMin: e.ZMin, ZMax: e.ZMax},
		Resolution:    &yamlResolution{NX: r.NX, NY: r.NY, NZ: r.NZ, Refinement: r.Refinement},
		EventOrder:    cfg.EventOrder,
	}
	for _, s := range cfg.Surfaces {
		ym.Surfaces = append(ym.Surfaces, yamlSurface(s))
	}
	for _, g := range cfg.StructuralGroups {
		ym.StructuralGroups = append(ym.StructuralGroups, yamlGroup{
			GroupIndex: g.GroupIndex,
			GroupName:  g.GroupName,
			Surfaces:   g.Surfaces,
			Relation:   string(g.Relation),
		})
	}
	for _, p := range data.SurfacePoints {
		ym.SurfacePoints = append(ym.SurfacePoints, yamlPoint(p))
	}
	for _, o := range data.Orientations {
		ym.Orientations = append(ym.Orientations, yamlOrientation(o))
	}
	return ym
}
