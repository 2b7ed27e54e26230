package main

import (
	"fmt"
	"os"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/pkg/lib"
	"geo-tools/pkg/logger"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a DSL file and print it in canonical form",
	Long: "Parse a DSL file (stdin when omitted or -) without semantic checks.\n" +
		"On success the canonical form is printed; use --quiet for the summary only.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		path := argOr(args, "-")
		text, err := readSource(path)
		if err != nil {
			return err
		}
		prog, err := dsl.Parse(text)
		if err != nil {
			fmt.Fprint(os.Stderr, renderParseError(displayName(path), err))
			return &lib.ExitError{Code: 1}
		}
		if !quiet {
			fmt.Print(dsl.Serialize(prog))
		}
		fmt.Fprintln(os.Stderr, renderSummary(prog))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Parse and validate DSL files",
	Long: "Parse and semantically validate one or more DSL files. Files are checked\n" +
		"concurrently and reported in argument order. The exit status is 1 when any\n" +
		"file is invalid (or has warnings with --strict).",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		reports, err := validateFiles(args)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range reports {
			fmt.Print(r.render())
			if r.failed(strict) {
				failed++
			}
		}
		if failed > 0 {
			return &lib.ExitError{Code: 1, Err: fmt.Errorf("%d of %d file(s) failed validation", failed, len(reports))}
		}
		return nil
	},
}

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>...",
	Short: "Rewrite DSL files in canonical form",
	Long: "Print DSL files in canonical form. With --write the files are rewritten\n" +
		"in place; with --check nothing is written and the exit status is 1 when a\n" +
		"file is not formatted.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		write, _ := cmd.Flags().GetBool("write")
		check, _ := cmd.Flags().GetBool("check")
		unformatted := 0
		for _, path := range args {
			text, err := readSource(path)
			if err != nil {
				return err
			}
			prog, err := dsl.Parse(text)
			if err != nil {
				fmt.Fprint(os.Stderr, renderParseError(displayName(path), err))
				return &lib.ExitError{Code: 1}
			}
			out := dsl.Serialize(prog)
			switch {
			case check:
				if out != text {
					fmt.Println(path)
					unformatted++
				}
			case write && path != "-":
				if out == text {
					continue
				}
				if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				logger.Info("formatted", "file", path)
			default:
				fmt.Print(out)
			}
		}
		if unformatted > 0 {
			return &lib.ExitError{Code: 1}
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolP("quiet", "q", false, "print only the statement summary")
	validateCmd.Flags().Bool("strict", false, "treat warnings as failures")
	fmtCmd.Flags().BoolP("write", "w", false, "write the result back to the file")
	fmtCmd.Flags().Bool("check", false, "list files whose formatting differs and exit 1")
}

// fileReport is the outcome of validating one file. Exactly one of parseErr
// and result is set.
type fileReport struct {
	name     string
	parseErr error
	result   *dsl.ValidationResult
}

func (r fileReport) failed(strict bool) bool {
	if r.parseErr != nil || !r.result.IsValid() {
		return true
	}
	return strict && len(r.result.Warnings) > 0
}

func (r fileReport) render() string {
	if r.parseErr != nil {
		return renderParseError(r.name, r.parseErr)
	}
	return renderValidation(r.name, r.result)
}

// validateFiles checks every file concurrently. Read errors abort; DSL
// errors are reported per file.
func validateFiles(paths []string) ([]fileReport, error) {
	engine := dsl.NewEngine()
	reports := make([]fileReport, len(paths))
	var g errgroup.Group
	g.SetLimit(8)
	for i, path := range paths {
		g.Go(func() error {
			text, err := readSource(path)
			if err != nil {
				return err
			}
			reports[i] = checkSource(engine, displayName(path), text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func checkSource(engine *dsl.Engine, name, text string) fileReport {
	_, res, err := engine.Build(text)
	if err != nil {
		return fileReport{name: name, parseErr: err}
	}
	return fileReport{name: name, result: res}
}

func argOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}

func displayName(path string) string {
	if path == "" || path == "-" {
		return "<stdin>"
	}
	return path
}
