package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed cmd_config_settings.yml
var initSettingsYAML []byte

const configInitHeader = "# " + appName + " settings\n" +
	"# Every value can be overridden with a GEOMODEL_* environment variable,\n" +
	"# see `" + appName + " config show` for the effective configuration.\n\n"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the " + appName + " config directory",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter settings.yml",
	Long: "Create the config directory and write a commented settings.yml.\n\n" +
		"The default config directory is resolved as:\n" +
		"  $GEOMODEL_CONFIG_DIR > $XDG_CONFIG_HOME/geomodel > ~/.config/geomodel",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		path := filepath.Join(dir, settingsFile)
		if err := writeInitFile(path, configInitHeader, initSettingsYAML, force); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "initialised %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := settings.render()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := configDir()
		if err != nil {
			return err
		}
		fmt.Println(dir)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing settings.yml")
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
}

// configDir honours --config-dir.
func configDir() (string, error) {
	if flagConfigDir != "" {
		return flagConfigDir, nil
	}
	return resolveConfigDir()
}

func writeInitFile(path, header string, content []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if header != "" {
		fmt.Fprint(f, header)
	}
	_, err = f.Write(content)
	return err
}
