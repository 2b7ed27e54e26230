package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"geo-tools/cmd/geomodel/structural"
	"geo-tools/pkg/lib"

	"gopkg.in/yaml.v3"
)

// appName is the single source of truth for the application name.
// Env var names and config paths are derived from it.
const appName = "geomodel"

const settingsFile = "settings.yml"

var envPrefix = strings.ToUpper(appName) + "_"

var envConfigDir = envPrefix + "CONFIG_DIR"

// resolveConfigDir returns the base config directory for the application.
// Priority: $GEOMODEL_CONFIG_DIR > $XDG_CONFIG_HOME/geomodel > ~/.config/geomodel
func resolveConfigDir() (string, error) {
	if v := os.Getenv(envConfigDir); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// LLMSettings configure generation. APIKey is read from the environment
// only.
type LLMSettings struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxRetries  int
	APIKey      string
}

type ModelSettings struct {
	Extent           structural.ModelExtent
	Resolution       structural.ModelResolution
	PointsPerSurface int
}

// Settings is the effective configuration: defaults, then settings.yml,
// then GEOMODEL_* environment variables.
type Settings struct {
	Database  string
	Addr      string
	BodyLimit string
	LLM       LLMSettings
	Model     ModelSettings
}

// settingsYAML mirrors the file layout; pointers tell unset from zero.
type settingsYAML struct {
	Database  *string `yaml:"database"`
	Addr      *string `yaml:"addr"`
	BodyLimit *string `yaml:"body_limit"`
	LLM       struct {
		BaseURL     *string  `yaml:"base_url"`
		Model       *string  `yaml:"model"`
		Temperature *float64 `yaml:"temperature"`
		MaxRetries  *int     `yaml:"max_retries"`
	} `yaml:"llm"`
	Model struct {
		Extent           []float64 `yaml:"extent"`
		Resolution       []int     `yaml:"resolution"`
		PointsPerSurface *int      `yaml:"points_per_surface"`
	} `yaml:"model"`
}

func defaultSettings(configDir string) Settings {
	return Settings{
		Database:  filepath.Join(configDir, appName+".db"),
		Addr:      ":8080",
		BodyLimit: "2M",
		LLM: LLMSettings{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxRetries:  5,
		},
		Model: ModelSettings{
			Extent:           structural.DefaultExtent(),
			Resolution:       structural.DefaultResolution(),
			PointsPerSurface: 10,
		},
	}
}

// loadSettings reads configDir/settings.yml when present and applies
// environment overrides.
func loadSettings(configDir string) (Settings, error) {
	s := defaultSettings(configDir)

	path := filepath.Join(configDir, settingsFile)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return s, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := applySettingsYAML(&s, data); err != nil {
			return s, fmt.Errorf("%s: %w", path, err)
		}
	}

	applyEnv(&s)
	return s, nil
}

func applySettingsYAML(s *Settings, data []byte) error {
	var y settingsYAML
	if err := yaml.Unmarshal(data, &y); err != nil {
		return err
	}
	if y.Database != nil {
		s.Database = *y.Database
	}
	if y.Addr != nil {
		s.Addr = *y.Addr
	}
	if y.BodyLimit != nil {
		s.BodyLimit = *y.BodyLimit
	}
	if y.LLM.BaseURL != nil {
		s.LLM.BaseURL = *y.LLM.BaseURL
	}
	if y.LLM.Model != nil {
		s.LLM.Model = *y.LLM.Model
	}
	if y.LLM.Temperature != nil {
		s.LLM.Temperature = *y.LLM.Temperature
	}
	if y.LLM.MaxRetries != nil {
		s.LLM.MaxRetries = *y.LLM.MaxRetries
	}
	if y.Model.PointsPerSurface != nil {
		s.Model.PointsPerSurface = *y.Model.PointsPerSurface
	}
	if e := y.Model.Extent; e != nil {
		if len(e) != 6 {
			return fmt.Errorf("model.extent: expected 6 values [x_min, x_max, y_min, y_max, z_min, z_max], got %d", len(e))
		}
		s.Model.Extent = structural.ModelExtent{XMin: e[0], XMax: e[1], YMin: e[2], YMax: e[3], ZMin: e[4], ZMax: e[5]}
	}
	if r := y.Model.Resolution; r != nil {
		if len(r) != 4 {
			return fmt.Errorf("model.resolution: expected 4 values [nx, ny, nz, refinement], got %d", len(r))
		}
		s.Model.Resolution = structural.ModelResolution{NX: r[0], NY: r[1], NZ: r[2], Refinement: r[3]}
	}
	return nil
}

func applyEnv(s *Settings) {
	s.Database = lib.GetEnvString(envPrefix+"DATABASE", s.Database)
	s.Addr = lib.GetEnvString(envPrefix+"ADDR", s.Addr)
	s.BodyLimit = lib.GetEnvString(envPrefix+"BODY_LIMIT", s.BodyLimit)
	s.LLM.BaseURL = lib.GetEnvString(envPrefix+"LLM_BASE_URL", s.LLM.BaseURL)
	s.LLM.Model = lib.GetEnvString(envPrefix+"LLM_MODEL", s.LLM.Model)
	s.LLM.Temperature = lib.GetEnvFloat(envPrefix+"LLM_TEMPERATURE", s.LLM.Temperature)
	s.LLM.MaxRetries = lib.GetEnvInt(envPrefix+"LLM_MAX_RETRIES", s.LLM.MaxRetries)
	s.LLM.APIKey = lib.GetEnvString(envPrefix+"LLM_API_KEY", lib.GetEnvString("OPENAI_API_KEY", ""))
	s.Model.PointsPerSurface = lib.GetEnvInt(envPrefix+"POINTS_PER_SURFACE", s.Model.PointsPerSurface)
}

// render prints the effective settings in settings.yml form. The API key is
// masked.
func (s Settings) render() ([]byte, error) {
	e, r := s.Model.Extent, s.Model.Resolution
	out := map[string]any{
		"database":   s.Database,
		"addr":       s.Addr,
		"body_limit": s.BodyLimit,
		"llm": map[string]any{
			"base_url":    s.LLM.BaseURL,
			"model":       s.LLM.Model,
			"temperature": s.LLM.Temperature,
			"max_retries": s.LLM.MaxRetries,
			"api_key":     maskKey(s.LLM.APIKey),
		},
		"model": map[string]any{
			"extent":             []float64{e.XMin, e.XMax, e.YMin, e.YMax, e.ZMin, e.ZMax},
			"resolution":         []int{r.NX, r.NY, r.NZ, r.Refinement},
			"points_per_surface": s.Model.PointsPerSurface,
		},
	}
	return yaml.Marshal(out)
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "(unset)"
	case len(key) <= 8:
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
