package main

import (
	"fmt"
	"os"

	"geo-tools/cmd/geomodel/dsl"

	"github.com/spf13/cobra"
)

const exampleHeader = `# ` + appName + ` example program
# Validate it:  ` + appName + ` validate <this-file>
# Grammar:      ` + appName + ` example --grammar

`

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an example DSL program",
	Long: "Print a small valid program that uses every statement kind. Use --grammar\n" +
		"for the statement syntax and --output to write to a file instead of stdout.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		grammar, _ := cmd.Flags().GetBool("grammar")
		output, _ := cmd.Flags().GetString("output")

		content := exampleHeader + dsl.ExampleProgram
		if grammar {
			content = dsl.GrammarReference
		}

		w := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		fmt.Fprint(w, content)

		if output != "" {
			fmt.Fprintf(os.Stderr, "written to %s\n", output)
		}
		return nil
	},
}

func init() {
	exampleCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	exampleCmd.Flags().Bool("grammar", false, "print the statement syntax instead of the example")
}
