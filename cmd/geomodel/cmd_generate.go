package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"geo-tools/cmd/geomodel/generate"
	"geo-tools/cmd/geomodel/store"
	"geo-tools/pkg/lib"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [description...]",
	Short: "Generate DSL from a free-text geological description",
	Long: "Ask the configured language model for a DSL program matching a free-text\n" +
		"description. Parse and validation errors are fed back until the output is\n" +
		"valid or the retry budget is spent. The description is taken from the\n" +
		"arguments, or from --file.\n\n" +
		"The API key is read from $" + envPrefix + "LLM_API_KEY or $OPENAI_API_KEY.",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		consolidate, _ := cmd.Flags().GetBool("consolidate")
		save, _ := cmd.Flags().GetBool("save")
		name, _ := cmd.Flags().GetString("name")
		output, _ := cmd.Flags().GetString("output")
		if cmd.Flags().Changed("retries") {
			settings.LLM.MaxRetries, _ = cmd.Flags().GetInt("retries")
		}

		description := strings.Join(args, " ")
		if file != "" {
			text, err := readSource(file)
			if err != nil {
				return err
			}
			description = text
		}
		if strings.TrimSpace(description) == "" {
			return errors.New("no description given (pass it as arguments or with --file)")
		}

		gen, err := newGenerator()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if consolidate {
			if description, err = gen.Consolidate(ctx, description); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, styleHelp.Render(description))
		}

		res, genErr := gen.Generate(ctx, description)
		if res == nil {
			return genErr
		}
		if res.DSL != "" {
			if err := writeOutput(output, []byte(res.DSL+"\n")); err != nil {
				return err
			}
		}
		if res.Validation != nil {
			fmt.Fprint(os.Stderr, renderValidation(fmt.Sprintf("attempt %d", res.Attempts), res.Validation))
		}

		if save && res.DSL != "" {
			if name == "" {
				name = "generated"
			}
			if err := saveGenerated(cmd, name, res); err != nil {
				return err
			}
		}
		if genErr != nil {
			if errors.Is(genErr, generate.ErrGenerationFailed) {
				for _, e := range res.Errors {
					fmt.Fprintln(os.Stderr, "  "+styleErr.Render("error")+" "+e)
				}
				return &lib.ExitError{Code: 1, Err: genErr}
			}
			return genErr
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringP("file", "f", "", "read the description from a file (- for stdin)")
	generateCmd.Flags().Bool("consolidate", false, "condense the description before generating")
	generateCmd.Flags().Bool("save", false, "store the result as a DSL document")
	generateCmd.Flags().String("name", "", "document name for --save (default: generated)")
	generateCmd.Flags().StringP("output", "o", "", "write the DSL to a file instead of stdout")
	generateCmd.Flags().Int("retries", generate.DefaultMaxRetries, "maximum number of attempts")
}

func saveGenerated(cmd *cobra.Command, name string, res *generate.Result) error {
	repo, closeRepo, err := openRepository(cmd.Context())
	if err != nil {
		return err
	}
	defer closeRepo()
	doc, err := repo.SaveDocument(cmd.Context(), store.Document{
		Name:             name,
		RawDSL:           res.DSL,
		IsValid:          len(res.Errors) == 0,
		ValidationErrors: res.Errors,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved document %d\n", doc.ID)
	return nil
}
