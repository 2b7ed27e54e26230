package dsl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateSource(t *testing.T, src string) *ValidationResult {
	t.Helper()
	return Validate(mustParse(t, src))
}

// errorsOf returns the errors of type T in order.
func errorsOf[T SemanticError](res *ValidationResult) []T {
	var out []T
	for _, e := range res.Errors {
		if typed, ok := e.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func TestValidate_ValidProgram(t *testing.T) {
	res := validateSource(t, sampleProgram)
	assert.True(t, res.IsValid(), res.String())
	assert.Empty(t, res.Warnings)
	assert.NoError(t, res.Err())
	assert.Equal(t, "Validation passed", res.String())
}

func TestValidate_DuplicateIDs(t *testing.T) {
	res := validateSource(t, `ROCK R1 [ name: "a" ]
ROCK R1 [ name: "b" ]
DEPOSITION R1 [ rock: R1 ]
DEPOSITION D1 [ rock: R1 ]
EROSION D1 [ ]`)

	dups := errorsOf[*DuplicateIDError](res)
	require.Len(t, dups, 3)

	assert.Equal(t, "R1", dups[0].ID)
	assert.Equal(t, 1, dups[0].FirstLocation.Line)
	assert.Equal(t, 2, dups[0].SecondLocation.Line)
	assert.Equal(t, "line 2, column 1: Duplicate ID 'R1' (first defined at line 1, column 1)", dups[0].Error())

	assert.Equal(t, 1, dups[1].FirstLocation.Line, "rock-vs-event repeat points at the first rock")
	assert.Equal(t, 3, dups[1].SecondLocation.Line)

	assert.Equal(t, "D1", dups[2].ID)
	assert.ErrorIs(t, dups[2], ErrDuplicateID)
}

func TestValidate_RequiredProperties(t *testing.T) {
	res := validateSource(t, `ROCK R1 [ type: volcanic ]
DEPOSITION D1 [ ]
INTRUSION I1 [ style: sill ]`)

	missing := errorsOf[*MissingRequiredPropertyError](res)
	require.Len(t, missing, 3)
	assert.Equal(t, "ROCK 'R1' is missing required property 'name'", missing[0].Message())
	assert.Equal(t, "DEPOSITION 'D1' is missing required property 'rock'", missing[1].Message())
	assert.Equal(t, "INTRUSION 'I1' is missing required property 'rock'", missing[2].Message())

	assert.Empty(t, errorsOf[*UndefinedReferenceError](res), "empty rock ids are not also undefined references")
}

func TestValidate_UndefinedRock(t *testing.T) {
	t.Run("suggestion", func(t *testing.T) {
		res := validateSource(t, `ROCK R1 [ name: "x" ]
DEPOSITION D1 [ rock: R99 ]`)
		require.False(t, res.IsValid())

		refs := errorsOf[*UndefinedReferenceError](res)
		require.Len(t, refs, 1)
		assert.Equal(t, "rock", refs[0].ReferenceType)
		assert.Equal(t, "R99", refs[0].ReferenceID)
		assert.Equal(t, "DEPOSITION D1", refs[0].Context)
		assert.Equal(t, "Undefined rock 'R99' in DEPOSITION D1. Did you mean: R1?", refs[0].Message())
		assert.ErrorIs(t, res.Err(), ErrUndefinedReference)
	})

	t.Run("no rocks at all", func(t *testing.T) {
		res := validateSource(t, `DEPOSITION D1 [ rock: R99 ]`)
		refs := errorsOf[*UndefinedReferenceError](res)
		require.Len(t, refs, 1)
		assert.Equal(t, "Undefined rock 'R99' in DEPOSITION D1", refs[0].Message())
	})

	t.Run("available list when nothing is close", func(t *testing.T) {
		res := validateSource(t, `ROCK R3 [ name: "c" ]
ROCK R1 [ name: "a" ]
INTRUSION I1 [ rock: Granite ]`)
		refs := errorsOf[*UndefinedReferenceError](res)
		require.Len(t, refs, 1)
		assert.Equal(t, []string{"R1", "R3"}, refs[0].AvailableIDs)
		assert.Equal(t, "Undefined rock 'Granite' in INTRUSION I1. Available rocks: R1, R3", refs[0].Message())
	})
}

func TestValidate_UndefinedEvent(t *testing.T) {
	res := validateSource(t, `ROCK R1 [ name: "x" ]
DEPOSITION D1 [ rock: R1 ]
DEPOSITION D2 [ rock: R1; after: D3, R1 ]`)

	refs := errorsOf[*UndefinedReferenceError](res)
	require.Len(t, refs, 2, "rocks do not satisfy event references")
	assert.Equal(t, "event", refs[0].ReferenceType)
	assert.Equal(t, "after: clause in DEPOSITION D2", refs[0].Context)
	assert.Equal(t, []string{"D1", "D2"}, refs[0].Suggestions())
	assert.Equal(t, "R1", refs[1].ReferenceID)
}

func TestSuggest(t *testing.T) {
	got := suggest("D10", []string{"D1", "D2", "D100", "X", "D11"}, 3, 2)
	assert.Equal(t, []string{"D1", "D100", "D11"}, got)

	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 0, levenshtein("", ""))
	assert.Equal(t, 4, levenshtein("", "abcd"))
}

func TestValidate_Cycle(t *testing.T) {
	res := validateSource(t, `ROCK R1 [ name: "x" ]
DEPOSITION D1 [ rock: R1; after: D2 ]
DEPOSITION D2 [ rock: R1; after: D1 ]`)

	cycles := errorsOf[*CircularDependencyError](res)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"D1", "D2", "D1"}, cycles[0].CyclePath)
	assert.Equal(t, "Circular dependency detected: D1 -> D2 -> D1", cycles[0].Message())
	assert.Equal(t, 2, cycles[0].Location().Line)
}

func TestValidate_OnlyOneCycleReported(t *testing.T) {
	res := validateSource(t, `EROSION A [ after: B ]
EROSION B [ after: A ]
EROSION C [ after: D ]
EROSION D [ after: C ]`)

	cycles := errorsOf[*CircularDependencyError](res)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B", "A"}, cycles[0].CyclePath)
}

func TestValidate_LongCycleSuffix(t *testing.T) {
	res := validateSource(t, `EROSION A [ after: B ]
EROSION B [ after: C ]
EROSION C [ after: D ]
EROSION D [ after: B ]`)

	cycles := errorsOf[*CircularDependencyError](res)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"B", "C", "D", "B"}, cycles[0].CyclePath)
}

func TestValidate_SelfReference(t *testing.T) {
	res := validateSource(t, `ROCK R1 [ name: "x" ]
DEPOSITION D1 [ rock: R1; after: D1, D1 ]`)

	cycles := errorsOf[*CircularDependencyError](res)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"D1", "D1"}, cycles[0].CyclePath)
	assert.Contains(t, res.Warnings, "DEPOSITION D1 lists itself in after:")
	assert.Contains(t, res.Warnings, "DEPOSITION D1 lists 'D1' more than once in after:")
}

func TestValidate_Temporal(t *testing.T) {
	res := validateSource(t, `ROCK R1 [ name: "a"; age: 100Ma ]
ROCK R2 [ name: "b"; age: 50Ma ]
DEPOSITION D1 [ rock: R1; time: 100Ma ]
DEPOSITION D2 [ rock: R2; time: 200Ma; after: D1 ]`)

	temporal := errorsOf[*TemporalInconsistencyError](res)
	require.Len(t, temporal, 1)
	assert.Equal(t, "D2", temporal[0].EventID)
	assert.Equal(t, "D1", temporal[0].DependencyID)
	assert.Equal(t, "Temporal inconsistency: D2 (200Ma) claims to be after D1 (100Ma), but 200Ma is older", temporal[0].Message())
	assert.True(t, errors.Is(temporal[0], ErrTemporalInconsistency))
}

func TestValidate_TemporalUnits(t *testing.T) {
	t.Run("units are normalised", func(t *testing.T) {
		res := validateSource(t, `EROSION E1 [ time: 1Ga ]
EROSION E2 [ time: 999Ma; after: E1 ]
EROSION E3 [ time: 500ka; after: E2 ]`)
		assert.True(t, res.IsValid(), res.String())
	})

	t.Run("equal ages are allowed", func(t *testing.T) {
		res := validateSource(t, `EROSION E1 [ time: 1Ga ]
EROSION E2 [ time: 1000Ma; after: E1 ]`)
		assert.True(t, res.IsValid(), res.String())
	})

	t.Run("non-numeric times are skipped", func(t *testing.T) {
		res := validateSource(t, `EROSION E1 [ time: "Jurassic" ]
EROSION E2 [ time: 5Ga; after: E1 ]
EROSION E3 [ time: "?"; after: E2 ]`)
		assert.True(t, res.IsValid(), res.String())
	})
}

func TestValidate_AccumulatesAcrossPasses(t *testing.T) {
	res := validateSource(t, `ROCK R1 [ name: "a" ]
ROCK R1 [ name: "b" ]
DEPOSITION D1 [ rock: R7; time: 10Ma; after: D2 ]
DEPOSITION D2 [ rock: R1; time: 5Ma; after: D1 ]`)

	assert.Len(t, errorsOf[*DuplicateIDError](res), 1)
	assert.Len(t, errorsOf[*UndefinedReferenceError](res), 1)
	assert.Len(t, errorsOf[*CircularDependencyError](res), 1)
	assert.Len(t, errorsOf[*TemporalInconsistencyError](res), 1)

	_, isDup := res.Errors[0].(*DuplicateIDError)
	assert.True(t, isDup, "duplicate ids are checked first")
	_, isTemporal := res.Errors[len(res.Errors)-1].(*TemporalInconsistencyError)
	assert.True(t, isTemporal, "temporal consistency is checked last")
	assert.Contains(t, res.String(), "Validation failed with 4 error(s)")
}

func TestValidate_Idempotent(t *testing.T) {
	prog := mustParse(t, `ROCK R1 [ name: "a" ]
DEPOSITION D1 [ rock: R2; after: D2 ]
DEPOSITION D2 [ rock: R1; after: D1, D1 ]`)
	before := Serialize(prog)

	first := Validate(prog)
	second := NewValidator().Validate(prog)
	assert.Equal(t, first, second)
	assert.Equal(t, before, Serialize(prog))
}

func TestParseAndValidate(t *testing.T) {
	prog, res, err := ParseAndValidate(`DEPOSITION D1 [ rock: R1 ]`)
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.False(t, res.IsValid())

	prog, res, err = ParseAndValidate(`DEPOSITION D1 [`)
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Nil(t, prog)
	assert.Nil(t, res)
}

func TestExampleProgram_IsValid(t *testing.T) {
	prog, res, err := ParseAndValidate(ExampleProgram)
	require.NoError(t, err)
	assert.True(t, res.IsValid(), res.String())
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 7, prog.Len())
}
