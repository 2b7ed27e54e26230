package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/modelyaml"
	"geo-tools/cmd/geomodel/store"
	"geo-tools/cmd/geomodel/structural"
	"geo-tools/pkg/lib"
	"geo-tools/pkg/logger"

	"github.com/spf13/cobra"
)

var transformCmd = &cobra.Command{
	Use:   "transform <file>",
	Short: "Derive a structural model configuration from a DSL file",
	Long: "Validate a DSL file and derive its structural model: surfaces, event order\n" +
		"and structural groups. With --spatial, synthetic surface points and\n" +
		"orientations are generated as well. The model is written as YAML to stdout\n" +
		"or --output; with --save it is also stored in the database.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		spatial, _ := cmd.Flags().GetBool("spatial")
		seed, _ := cmd.Flags().GetUint64("seed")
		points, _ := cmd.Flags().GetInt("points")
		save, _ := cmd.Flags().GetBool("save")
		output, _ := cmd.Flags().GetString("output")

		path := args[0]
		text, err := readSource(path)
		if err != nil {
			return err
		}
		if name == "" {
			name = modelName(path)
		}

		prog, err := buildValid(path, text)
		if err != nil {
			return err
		}

		cfg, err := structural.NewTransformer().Transform(prog, name,
			structural.WithExtent(settings.Model.Extent),
			structural.WithResolution(settings.Model.Resolution),
		)
		if err != nil {
			return err
		}
		check := structural.NewConfigValidator().Validate(cfg)

		data := &structural.ModelData{Config: *cfg}
		if spatial {
			if points == 0 {
				points = settings.Model.PointsPerSurface
			}
			opts := []structural.SpatialOption{structural.WithPointsPerSurface(points)}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, structural.WithSeed(seed))
			}
			if data, err = structural.NewSpatialGenerator(opts...).Generate(cfg); err != nil {
				return err
			}
			check.Merge(structural.NewDataValidator().Validate(data))
		}
		fmt.Fprint(os.Stderr, renderConfigResult(name, check))

		out, err := modelyaml.Encode(data)
		if err != nil {
			return err
		}
		if err := writeOutput(output, out); err != nil {
			return err
		}

		if !check.IsValid() {
			return &lib.ExitError{Code: 1}
		}
		if save {
			return saveTransformed(cmd, name, text, data)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <model.yml>",
	Short: "Validate a structural model YAML file",
	Long: "Check a model YAML file produced by `transform` (or written by hand):\n" +
		"group coverage, relations and indices, and, when spatial data is present,\n" +
		"point counts, orientations and extent.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readSource(args[0])
		if err != nil {
			return err
		}
		data, err := modelyaml.Decode([]byte(text))
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(args[0]), err)
		}
		res := structural.NewConfigValidator().Validate(&data.Config)
		if len(data.SurfacePoints) > 0 || len(data.Orientations) > 0 {
			res.Merge(structural.NewDataValidator().Validate(data))
		}
		fmt.Print(renderConfigResult(displayName(args[0]), res))
		if !res.IsValid() {
			return &lib.ExitError{Code: 1}
		}
		return nil
	},
}

func init() {
	transformCmd.Flags().String("name", "", "model name (default: file name without extension)")
	transformCmd.Flags().Bool("spatial", false, "generate synthetic surface points and orientations")
	transformCmd.Flags().Uint64("seed", 0, "random seed for --spatial (default: random)")
	transformCmd.Flags().Int("points", 0, "points per surface for --spatial (default: from settings)")
	transformCmd.Flags().Bool("save", false, "store the DSL document and the model in the database")
	transformCmd.Flags().StringP("output", "o", "", "write the YAML to a file instead of stdout")
}

// buildValid parses and validates text, printing diagnostics on failure.
// Warnings are printed but do not fail.
func buildValid(path, text string) (*dsl.Program, error) {
	prog, res, err := dsl.NewEngine().Build(text)
	if err != nil {
		fmt.Fprint(os.Stderr, renderParseError(displayName(path), err))
		return nil, &lib.ExitError{Code: 1}
	}
	if !res.IsValid() || len(res.Warnings) > 0 {
		fmt.Fprint(os.Stderr, renderValidation(displayName(path), res))
	}
	if !res.IsValid() {
		return nil, &lib.ExitError{Code: 1}
	}
	return prog, nil
}

func saveTransformed(cmd *cobra.Command, name, text string, data *structural.ModelData) error {
	ctx := cmd.Context()
	repo, closeRepo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	doc, err := repo.SaveDocument(ctx, store.Document{Name: name, RawDSL: text, IsValid: true})
	if err != nil {
		return err
	}
	data.Config.DSLDocumentID = &doc.ID
	id, err := repo.SaveModel(ctx, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved model %d (document %d)\n", id, doc.ID)
	return nil
}

func modelName(path string) string {
	if path == "" || path == "-" {
		return "model"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeOutput writes to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("written", "file", path)
	return nil
}
