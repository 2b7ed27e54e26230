package structural

import (
	"errors"
	"testing"

	"geo-tools/cmd/geomodel/dsl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, src string) *dsl.Program {
	t.Helper()
	prog, err := dsl.Parse(src)
	require.NoError(t, err)
	return prog
}

func requireTransformError(t *testing.T, err error, cause error) *TransformationError {
	t.Helper()
	require.Error(t, err)
	var terr *TransformationError
	require.True(t, errors.As(err, &terr), "expected *TransformationError, got %T: %v", err, err)
	assert.ErrorIs(t, err, ErrTransformation)
	assert.ErrorIs(t, err, cause)
	return terr
}

const erosionProgram = `
ROCK R1 [ name: "Shale"; type: sedimentary ]
ROCK R2 [ name: "Sandstone"; type: sedimentary ]
ROCK R3 [ name: "Limestone"; type: sedimentary ]
DEPOSITION D1 [ rock: R1 ]
DEPOSITION D2 [ rock: R2; after: D1 ]
EROSION E1 [ after: D2 ]
DEPOSITION D3 [ rock: R3; after: E1 ]
`

func TestTransform_ErosionStartsOnlapGroup(t *testing.T) {
	cfg, err := NewTransformer().Transform(parseProgram(t, erosionProgram), "coast")
	require.NoError(t, err)

	assert.Equal(t, "coast", cfg.Name)
	assert.Equal(t, []string{"D1", "D2", "E1", "D3"}, cfg.EventOrder)
	require.Len(t, cfg.StructuralGroups, 2)

	young := cfg.StructuralGroups[0]
	assert.Equal(t, 0, young.GroupIndex)
	assert.Equal(t, []string{"D3"}, young.Surfaces)
	assert.Equal(t, RelationOnlap, young.Relation)
	assert.Equal(t, "Group_D3", young.GroupName)

	old := cfg.StructuralGroups[1]
	assert.Equal(t, 1, old.GroupIndex)
	assert.Equal(t, []string{"D1", "D2"}, old.Surfaces)
	assert.Equal(t, RelationBasement, old.Relation)
	assert.Equal(t, "Strata_Group_0", old.GroupName)
}

func TestTransform_Surfaces(t *testing.T) {
	src := `
ROCK R1 [ name: "Sandstone"; type: sedimentary; age: 300Ma ]
ROCK R2 [ name: "Granite"; type: intrusive; age: 1.2Ga ]
ROCK R3 [ name: "Tuff"; type: volcanic; age: 90Ma ]
DEPOSITION D1 [ rock: R1 ]
DEPOSITION D2 [ rock: R3; time: "Cretaceous"; after: D1 ]
INTRUSION I1 [ rock: R2; time: 250000ka; after: D1 ]
`
	cfg, err := NewTransformer().Transform(parseProgram(t, src), "m")
	require.NoError(t, err)
	require.Len(t, cfg.Surfaces, 3)

	t.Run("depositions before intrusions", func(t *testing.T) {
		ids := []string{cfg.Surfaces[0].SurfaceID, cfg.Surfaces[1].SurfaceID, cfg.Surfaces[2].SurfaceID}
		assert.Equal(t, []string{"D1", "D2", "I1"}, ids)
	})

	t.Run("rock fields copied", func(t *testing.T) {
		s := cfg.Surfaces[0]
		assert.Equal(t, "Sandstone", s.Name)
		assert.Equal(t, "R1", s.RockID)
		assert.Equal(t, "sedimentary", s.RockType)
	})

	t.Run("age falls back to rock", func(t *testing.T) {
		require.NotNil(t, cfg.Surfaces[0].AgeMa)
		assert.InDelta(t, 300, *cfg.Surfaces[0].AgeMa, 1e-9)
	})

	t.Run("epoch time means no age", func(t *testing.T) {
		assert.Nil(t, cfg.Surfaces[1].AgeMa)
	})

	t.Run("event time wins and is converted", func(t *testing.T) {
		require.NotNil(t, cfg.Surfaces[2].AgeMa)
		assert.InDelta(t, 250, *cfg.Surfaces[2].AgeMa, 1e-9)
	})
}

func TestTransform_IntrusionIsolation(t *testing.T) {
	src := `
ROCK R1 [ name: "Shale"; type: sedimentary ]
ROCK R2 [ name: "Sandstone"; type: sedimentary ]
ROCK R3 [ name: "Dolerite"; type: intrusive ]
DEPOSITION D1 [ rock: R1 ]
INTRUSION I1 [ rock: R3; style: sill; after: D1 ]
DEPOSITION D2 [ rock: R2; after: I1 ]
`
	cfg, err := NewTransformer().Transform(parseProgram(t, src), "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"D1", "I1", "D2"}, cfg.EventOrder)
	require.Len(t, cfg.StructuralGroups, 3)

	assert.Equal(t, []string{"D2"}, cfg.StructuralGroups[0].Surfaces)
	assert.Equal(t, RelationErode, cfg.StructuralGroups[0].Relation)

	intrusion := cfg.StructuralGroups[1]
	assert.Equal(t, []string{"I1"}, intrusion.Surfaces)
	assert.Equal(t, RelationErode, intrusion.Relation)
	assert.Equal(t, "Group_I1", intrusion.GroupName)

	assert.Equal(t, []string{"D1"}, cfg.StructuralGroups[2].Surfaces)
	assert.Equal(t, RelationBasement, cfg.StructuralGroups[2].Relation)
}

func TestTransform_IntrusionResetsOnlap(t *testing.T) {
	src := `
ROCK R1 [ name: "Shale"; type: sedimentary ]
ROCK R2 [ name: "Sandstone"; type: sedimentary ]
ROCK R3 [ name: "Dolerite"; type: intrusive ]
ROCK R4 [ name: "Siltstone"; type: sedimentary ]
DEPOSITION D1 [ rock: R1 ]
EROSION E1 [ after: D1 ]
DEPOSITION D2 [ rock: R2; after: E1 ]
INTRUSION I1 [ rock: R3; after: D2 ]
DEPOSITION D3 [ rock: R4; after: I1 ]
`
	cfg, err := NewTransformer().Transform(parseProgram(t, src), "m")
	require.NoError(t, err)
	require.Len(t, cfg.StructuralGroups, 4)

	byFirst := map[string]RelationType{}
	for _, g := range cfg.StructuralGroups {
		byFirst[g.Surfaces[0]] = g.Relation
	}
	assert.Equal(t, RelationErode, byFirst["D3"])
	assert.Equal(t, RelationErode, byFirst["I1"])
	assert.Equal(t, RelationOnlap, byFirst["D2"])
	assert.Equal(t, RelationBasement, byFirst["D1"])
}

func TestTransform_ExactlyOneBasement(t *testing.T) {
	for _, src := range []string{erosionProgram, `
ROCK R1 [ name: "Granite"; type: intrusive ]
ROCK R2 [ name: "Gabbro"; type: intrusive ]
INTRUSION I1 [ rock: R1 ]
INTRUSION I2 [ rock: R2; after: I1 ]
`} {
		cfg, err := NewTransformer().Transform(parseProgram(t, src), "m")
		require.NoError(t, err)

		var basement []int
		for i, g := range cfg.StructuralGroups {
			assert.Equal(t, i, g.GroupIndex)
			if g.Relation == RelationBasement {
				basement = append(basement, g.GroupIndex)
			}
		}
		assert.Equal(t, []int{len(cfg.StructuralGroups) - 1}, basement)
	}
}

func TestTransform_OrderByAge(t *testing.T) {
	t.Run("oldest ready event first", func(t *testing.T) {
		src := `
ROCK R1 [ name: "A"; type: sedimentary ]
DEPOSITION D1 [ rock: R1; time: 10Ma ]
DEPOSITION D2 [ rock: R1; time: 2Ga ]
DEPOSITION D3 [ rock: R1; time: 500Ma ]
`
		cfg, err := NewTransformer().Transform(parseProgram(t, src), "m")
		require.NoError(t, err)
		assert.Equal(t, []string{"D2", "D3", "D1"}, cfg.EventOrder)
	})

	t.Run("ties keep program order", func(t *testing.T) {
		src := `
ROCK R1 [ name: "A"; type: sedimentary ]
DEPOSITION DB [ rock: R1 ]
DEPOSITION DA [ rock: R1 ]
EROSION E1 [ ]
`
		cfg, err := NewTransformer().Transform(parseProgram(t, src), "m")
		require.NoError(t, err)
		assert.Equal(t, []string{"DB", "DA", "E1"}, cfg.EventOrder)
	})

	t.Run("dependencies beat age", func(t *testing.T) {
		src := `
ROCK R1 [ name: "A"; type: sedimentary ]
DEPOSITION D1 [ rock: R1; time: 10Ma ]
DEPOSITION D2 [ rock: R1; time: 900Ma; after: D1 ]
`
		cfg, err := NewTransformer().Transform(parseProgram(t, src), "m")
		require.NoError(t, err)
		assert.Equal(t, []string{"D1", "D2"}, cfg.EventOrder)
	})
}

func TestTransform_Errors(t *testing.T) {
	t.Run("insufficient surfaces", func(t *testing.T) {
		src := `
ROCK R1 [ name: "A"; type: sedimentary ]
DEPOSITION D1 [ rock: R1 ]
EROSION E1 [ after: D1 ]
`
		_, err := NewTransformer().Transform(parseProgram(t, src), "m")
		terr := requireTransformError(t, err, ErrInsufficientSurfaces)
		assert.Contains(t, terr.Error(), "need at least 2 surfaces")
	})

	t.Run("missing rock", func(t *testing.T) {
		src := `
ROCK R1 [ name: "A"; type: sedimentary ]
DEPOSITION D1 [ rock: R1 ]
DEPOSITION D2 [ rock: R9 ]
`
		_, err := NewTransformer().Transform(parseProgram(t, src), "m")
		terr := requireTransformError(t, err, ErrRockNotFound)
		assert.Equal(t, "transform: Rock 'R9' not found", terr.Error())
	})

	t.Run("cycle", func(t *testing.T) {
		src := `
ROCK R1 [ name: "A"; type: sedimentary ]
DEPOSITION D1 [ rock: R1; after: D2 ]
DEPOSITION D2 [ rock: R1; after: D1 ]
`
		_, err := NewTransformer().Transform(parseProgram(t, src), "m")
		requireTransformError(t, err, ErrCyclicOrder)
	})

	t.Run("invalid extent", func(t *testing.T) {
		bad := DefaultExtent()
		bad.XMin, bad.XMax = 10, -10
		_, err := NewTransformer().Transform(parseProgram(t, erosionProgram), "m", WithExtent(bad))
		terr := requireTransformError(t, err, ErrInvalidOptions)
		assert.Contains(t, terr.Error(), "XMin")
	})

	t.Run("invalid resolution", func(t *testing.T) {
		bad := DefaultResolution()
		bad.NZ = 500
		_, err := NewTransformer().Transform(parseProgram(t, erosionProgram), "m", WithResolution(bad))
		terr := requireTransformError(t, err, ErrInvalidOptions)
		assert.Contains(t, terr.Error(), "NZ")
	})
}

func TestTransform_Options(t *testing.T) {
	doc, dslDoc := int64(7), int64(11)
	ext := ModelExtent{XMin: 0, XMax: 10, YMin: 0, YMax: 10, ZMin: -10, ZMax: 0}
	res := ModelResolution{NX: 20, NY: 20, NZ: 20, Refinement: 2}

	cfg, err := NewTransformer().Transform(parseProgram(t, erosionProgram), "m",
		WithExtent(ext), WithResolution(res), WithDocumentIDs(&doc, &dslDoc))
	require.NoError(t, err)
	assert.Equal(t, ext, cfg.Extent)
	assert.Equal(t, res, cfg.Resolution)
	assert.Equal(t, &doc, cfg.DocumentID)
	assert.Equal(t, &dslDoc, cfg.DSLDocumentID)
}

func TestTransform_OutputPassesConfigValidation(t *testing.T) {
	cfg, err := NewTransformer().Transform(parseProgram(t, erosionProgram), "m")
	require.NoError(t, err)
	res := NewConfigValidator().Validate(cfg)
	assert.True(t, res.IsValid(), "%v", res.Err())
	assert.Empty(t, res.Warnings)
}
