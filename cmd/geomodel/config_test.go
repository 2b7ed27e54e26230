package main

import (
	"os"
	"path/filepath"
	"testing"

	"geo-tools/cmd/geomodel/structural"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigDir(t *testing.T) {
	t.Run("explicit dir wins", func(t *testing.T) {
		t.Setenv(envConfigDir, "/tmp/geo")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		dir, err := resolveConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/geo", dir)
	})

	t.Run("xdg", func(t *testing.T) {
		t.Setenv(envConfigDir, "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		dir, err := resolveConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg/geomodel", dir)
	})

	t.Run("home", func(t *testing.T) {
		t.Setenv(envConfigDir, "")
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/tmp/home")
		dir, err := resolveConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/home/.config/geomodel", dir)
	})
}

func clearSettingsEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE", "ADDR", "BODY_LIMIT", "LLM_BASE_URL", "LLM_MODEL",
		"LLM_TEMPERATURE", "LLM_MAX_RETRIES", "LLM_API_KEY", "POINTS_PER_SURFACE",
	} {
		t.Setenv(envPrefix+k, "")
	}
	t.Setenv("OPENAI_API_KEY", "")
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		clearSettingsEnv(t)
		dir := t.TempDir()
		s, err := loadSettings(dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "geomodel.db"), s.Database)
		assert.Equal(t, ":8080", s.Addr)
		assert.Equal(t, 5, s.LLM.MaxRetries)
		assert.Equal(t, structural.DefaultExtent(), s.Model.Extent)
		assert.Empty(t, s.LLM.APIKey)
	})

	t.Run("file then env", func(t *testing.T) {
		clearSettingsEnv(t)
		dir := t.TempDir()
		yml := `addr: ":9000"
llm:
  model: local
  max_retries: 2
model:
  extent: [0, 10, 0, 20, -5, 0]
  resolution: [10, 10, 5, 3]
  points_per_surface: 4
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(yml), 0o644))
		t.Setenv(envPrefix+"LLM_MODEL", "from-env")
		t.Setenv("OPENAI_API_KEY", "sk-fallback")

		s, err := loadSettings(dir)
		require.NoError(t, err)
		assert.Equal(t, ":9000", s.Addr)
		assert.Equal(t, "from-env", s.LLM.Model)
		assert.Equal(t, 2, s.LLM.MaxRetries)
		assert.Equal(t, "sk-fallback", s.LLM.APIKey)
		assert.Equal(t, structural.ModelExtent{XMax: 10, YMax: 20, ZMin: -5}, s.Model.Extent)
		assert.Equal(t, structural.ModelResolution{NX: 10, NY: 10, NZ: 5, Refinement: 3}, s.Model.Resolution)
		assert.Equal(t, 4, s.Model.PointsPerSurface)
	})

	t.Run("prefixed key beats the fallback", func(t *testing.T) {
		clearSettingsEnv(t)
		t.Setenv(envPrefix+"LLM_API_KEY", "sk-geo")
		t.Setenv("OPENAI_API_KEY", "sk-fallback")
		s, err := loadSettings(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "sk-geo", s.LLM.APIKey)
	})

	t.Run("bad extent", func(t *testing.T) {
		clearSettingsEnv(t)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte("model:\n  extent: [1, 2]\n"), 0o644))
		_, err := loadSettings(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected 6 values")
	})
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "(unset)", maskKey(""))
	assert.Equal(t, "****", maskKey("short"))
	assert.Equal(t, "sk-a****wxyz", maskKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestSettingsRender(t *testing.T) {
	s := defaultSettings("/tmp/geo")
	s.LLM.APIKey = "sk-abcdefghijkl"
	out, err := s.render()
	require.NoError(t, err)
	assert.Contains(t, string(out), "api_key: sk-a****ijkl")
	assert.NotContains(t, string(out), "abcdefghijkl")
	assert.Contains(t, string(out), "database: /tmp/geo/geomodel.db")
}

func TestWriteInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), settingsFile)
	require.NoError(t, writeInitFile(path, configInitHeader, initSettingsYAML, false))

	err := writeInitFile(path, "", []byte("x"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	require.NoError(t, writeInitFile(path, "", []byte("addr: \":1\"\n"), true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "addr: \":1\"\n", string(data))
}

func TestEmbeddedSettingsLoad(t *testing.T) {
	clearSettingsEnv(t)
	dir := t.TempDir()
	require.NoError(t, writeInitFile(filepath.Join(dir, settingsFile), configInitHeader, initSettingsYAML, false))
	s, err := loadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, defaultSettings(dir), s)
}
