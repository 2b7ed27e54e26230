package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"geo-tools/cmd/geomodel/generate"
	"geo-tools/cmd/geomodel/store"
	"geo-tools/pkg/lib"
	"geo-tools/pkg/logger"
	"geo-tools/pkg/logger/console"

	"github.com/spf13/cobra"
)

var (
	flagDebug     bool
	flagConfigDir string
	flagDatabase  string
)

// settings is loaded once before any subcommand runs.
var settings Settings

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Geological DSL toolkit",
	Long: appName + " parses and validates geological history written in the\n" +
		"ROCK / DEPOSITION / EROSION / INTRUSION language, turns it into a\n" +
		"structural model configuration and stores documents and models.\n\n" +
		"Run `" + appName + " example` for a sample program.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lib.LoadEnv()
		debug := flagDebug || lib.GetEnvBool(envPrefix+"DEBUG", false)
		logger.Init(console.New(console.Params{Debug: debug, Prefix: appName}))

		dir := flagConfigDir
		if dir == "" {
			var err error
			if dir, err = resolveConfigDir(); err != nil {
				return err
			}
		}
		s, err := loadSettings(dir)
		if err != nil {
			return err
		}
		if flagDatabase != "" {
			s.Database = flagDatabase
		}
		settings = s
		logger.Debug("settings loaded", "config_dir", dir, "database", s.Database)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "",
		"config directory (default: $"+envConfigDir+" > $XDG_CONFIG_HOME/"+appName+" > ~/.config/"+appName+")")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "db", "", "SQLite database path (overrides settings)")
}

// readSource reads a file, or stdin when path is "" or "-".
func readSource(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// openRepository opens the configured database, creating and migrating it
// as needed. The returned func closes it.
func openRepository(ctx context.Context) (*store.Repository, func(), error) {
	if err := os.MkdirAll(filepath.Dir(settings.Database), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := store.OpenAndMigrate(ctx, settings.Database)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return store.NewRepository(db), closeFn, nil
}

func newGenerator() (*generate.Generator, error) {
	c, err := generate.NewOpenAICompleter(generate.OpenAIParams{
		APIKey:      settings.LLM.APIKey,
		BaseURL:     settings.LLM.BaseURL,
		Model:       settings.LLM.Model,
		Temperature: settings.LLM.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set %sLLM_API_KEY or OPENAI_API_KEY)", err, envPrefix)
	}
	return generate.NewGenerator(c, generate.WithMaxRetries(settings.LLM.MaxRetries)), nil
}
