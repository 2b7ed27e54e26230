// Package structural derives a structural model configuration from a parsed
// DSL program and checks it before spatial data is produced.
//
// The types here are intentionally format-agnostic: they carry no
// serialization tags. See modelyaml and the server package for wire forms.
package structural

// RelationType is the stratigraphic relation of a structural group to the
// groups below it.
type RelationType string

const (
	RelationErode    RelationType = "ERODE"
	RelationOnlap    RelationType = "ONLAP"
	RelationBasement RelationType = "BASEMENT"
)

// ParseRelation accepts the upper-case names only.
func ParseRelation(s string) (RelationType, bool) {
	switch r := RelationType(s); r {
	case RelationErode, RelationOnlap, RelationBasement:
		return r, true
	}
	return "", false
}

// SurfaceConfig is one interpolation surface. SurfaceID is the id of the
// DEPOSITION or INTRUSION event that produced it.
type SurfaceConfig struct {
	SurfaceID string
	Name      string
	RockID    string
	RockType  string
	AgeMa     *float64
}

// StructuralGroupConfig is an ordered stack of surfaces. Index 0 is the
// youngest group.
type StructuralGroupConfig struct {
	GroupIndex int
	GroupName  string
	Surfaces   []string
	Relation   RelationType
}

// ModelExtent is the model bounding box in model units.
type ModelExtent struct {
	XMin float64 `validate:"ltfield=XMax"`
	XMax float64
	YMin float64 `validate:"ltfield=YMax"`
	YMax float64
	ZMin float64 `validate:"ltfield=ZMax"`
	ZMax float64
}

func DefaultExtent() ModelExtent {
	return ModelExtent{XMin: -500, XMax: 500, YMin: -500, YMax: 500, ZMin: -1000, ZMax: 0}
}

// Contains reports whether the point lies inside the extent, bounds included.
func (e ModelExtent) Contains(x, y, z float64) bool {
	return e.XMin <= x && x <= e.XMax &&
		e.YMin <= y && y <= e.YMax &&
		e.ZMin <= z && z <= e.ZMax
}

// ModelResolution is the interpolation grid.
type ModelResolution struct {
	NX         int `validate:"gte=10,lte=200"`
	NY         int `validate:"gte=10,lte=200"`
	NZ         int `validate:"gte=10,lte=200"`
	Refinement int `validate:"gte=1,lte=10"`
}

func DefaultResolution() ModelResolution {
	return ModelResolution{NX: 50, NY: 50, NZ: 50, Refinement: 6}
}

// ModelConfig is the structural description of a model, without spatial
// data. EventOrder lists event ids oldest first.
type ModelConfig struct {
	Name             string
	DocumentID       *int64
	DSLDocumentID    *int64
	Surfaces         []SurfaceConfig
	StructuralGroups []StructuralGroupConfig
	Extent           ModelExtent
	Resolution       ModelResolution
	EventOrder       []string
}

// Surface looks a surface up by id.
func (c *ModelConfig) Surface(id string) (SurfaceConfig, bool) {
	for _, s := range c.Surfaces {
		if s.SurfaceID == id {
			return s, true
		}
	}
	return SurfaceConfig{}, false
}

// GroupOf returns the first group listing the surface.
func (c *ModelConfig) GroupOf(surfaceID string) (StructuralGroupConfig, bool) {
	for _, g := range c.StructuralGroups {
		for _, s := range g.Surfaces {
			if s == surfaceID {
				return g, true
			}
		}
	}
	return StructuralGroupConfig{}, false
}

// SurfacePoint is an interface point on a surface.
type SurfacePoint struct {
	X, Y, Z float64
	Surface string
	Series  string
}

// Orientation is a dip measurement; azimuth is the dip direction.
type Orientation struct {
	X, Y, Z  float64
	Azimuth  float64
	Dip      float64
	Polarity float64
	Surface  string
	Series   string
}

// ModelData is a configuration together with its spatial input data.
type ModelData struct {
	Config        ModelConfig
	SurfacePoints []SurfacePoint
	Orientations  []Orientation
}
