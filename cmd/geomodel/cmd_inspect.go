package main

import (
	"fmt"
	"strings"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var flagNoTUI bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Browse a program's events in chronological order",
	Long: "Show the events of a valid DSL program in chronological order together\n" +
		"with the structural group each surface belongs to. Tab switches to the\n" +
		"group view, Enter shows an event's statement. Without a file a stored\n" +
		"document is picked with a fuzzy finder.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, text, err := inspectSource(cmd, args)
		if err != nil || name == "" {
			return err
		}
		prog, res, err := dsl.NewEngine().Build(text)
		if err != nil {
			fmt.Print(renderParseError(name, err))
			return fmt.Errorf("cannot inspect %s", name)
		}
		if !res.IsValid() {
			fmt.Print(renderValidation(name, res))
			return fmt.Errorf("cannot inspect an invalid program")
		}

		in := inspect(name, prog, res)
		if flagNoTUI {
			printInspection(in)
			return nil
		}
		_, err = tea.NewProgram(newModel(in), tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&flagNoTUI, "no-tui", false, "print plain text instead of the interactive view")
}

// inspectSource returns the program named by args, or one picked from the
// store. An empty name means the pick was aborted.
func inspectSource(cmd *cobra.Command, args []string) (name, text string, err error) {
	if len(args) == 1 {
		text, err = readSource(args[0])
		return modelName(args[0]), text, err
	}
	err = withRepository(cmd, func(repo *store.Repository) error {
		doc, err := chooseDocument(cmd, repo)
		if err != nil || doc == nil {
			return err
		}
		name, text = doc.Name, doc.RawDSL
		return nil
	})
	return name, text, err
}

func printInspection(in inspection) {
	fmt.Printf("%-3s %-8s %-11s %-20s %-12s %-16s %-9s\n", "#", "EVENT", "KIND", "ROCK", "AGE", "GROUP", "RELATION")
	fmt.Println(strings.Repeat("-", 85))
	for i, r := range in.rows {
		fmt.Printf("%-3d %-8s %-11s %-20s %-12s %-16s %-9s\n", i+1, r.ID, r.Kind, r.Rock, r.Age, r.Group, r.Relation)
	}
	if in.transformErr != nil {
		fmt.Println()
		fmt.Println(styleWarn.Render(in.transformErr.Error()))
	}
}
