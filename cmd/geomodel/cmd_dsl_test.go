package main

import (
	"os"
	"path/filepath"
	"testing"

	"geo-tools/cmd/geomodel/dsl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strata = `ROCK R1 [ name: "Shale"; type: sedimentary ]
ROCK R2 [ name: "Sandstone"; type: sedimentary ]
ROCK R3 [ name: "Limestone"; type: sedimentary ]
DEPOSITION D1 [ rock: R1 ]
DEPOSITION D2 [ rock: R2; after: D1 ]
EROSION E1 [ after: D2 ]
DEPOSITION D3 [ rock: R3; after: E1 ]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckSource(t *testing.T) {
	engine := dsl.NewEngine()

	t.Run("valid", func(t *testing.T) {
		r := checkSource(engine, "a.geo", strata)
		require.NoError(t, r.parseErr)
		assert.False(t, r.failed(false))
		assert.Contains(t, r.render(), "a.geo")
	})

	t.Run("syntax error", func(t *testing.T) {
		r := checkSource(engine, "b.geo", "ROCK R1 [ name: ")
		require.Error(t, r.parseErr)
		assert.Nil(t, r.result)
		assert.True(t, r.failed(false))
	})

	t.Run("undefined reference", func(t *testing.T) {
		r := checkSource(engine, "c.geo", "ROCK R1 [ name: \"A\" ]\nDEPOSITION D1 [ rock: R2 ]\n")
		require.NoError(t, r.parseErr)
		assert.True(t, r.failed(false))
	})

	t.Run("warnings fail only when strict", func(t *testing.T) {
		r := fileReport{name: "w", result: &dsl.ValidationResult{Warnings: []string{"unused rock"}}}
		assert.False(t, r.failed(false))
		assert.True(t, r.failed(true))
	})
}

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.geo", strata)
	bad := writeFile(t, dir, "bad.geo", "DEPOSITION D1 [ rock: R9 ]\n")

	reports, err := validateFiles([]string{bad, good, bad})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, bad, reports[0].name, "reports keep argument order")
	assert.True(t, reports[0].failed(false))
	assert.False(t, reports[1].failed(false))
	assert.True(t, reports[2].failed(false))

	_, err = validateFiles([]string{good, filepath.Join(dir, "missing.geo")})
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "basin", modelName("/data/basin.geo"))
	assert.Equal(t, "model", modelName("-"))
	assert.Equal(t, "<stdin>", displayName(""))
	assert.Equal(t, "x.geo", displayName("x.geo"))
	assert.Equal(t, "-", argOr(nil, "-"))
	assert.Equal(t, "a", argOr([]string{"a"}, "-"))
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"0", "-1", "abc"} {
		_, err := parseID(s)
		assert.Error(t, err, s)
	}
}
