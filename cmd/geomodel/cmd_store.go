package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/modelyaml"
	"geo-tools/cmd/geomodel/store"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"
)

const listTimeLayout = "2006-01-02 15:04"

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage stored structural models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored models, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withRepository(cmd, func(repo *store.Repository) error {
			models, err := repo.ListModels(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printModels(models)
			return nil
		})
	},
}

var modelsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored model as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		return withRepository(cmd, func(repo *store.Repository) error {
			summary, data, err := repo.GetModel(cmd.Context(), id)
			if err != nil {
				return err
			}
			out, err := modelyaml.Encode(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "model %d %q [%s]\n", summary.ID, summary.Name, summary.Status)
			return writeOutput(output, out)
		})
	},
}

var modelsStatusCmd = &cobra.Command{
	Use:   "status <id> <pending|generating|computed|failed>",
	Short: "Set the status of a stored model",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		status, err := store.ParseModelStatus(args[1])
		if err != nil {
			return err
		}
		return withRepository(cmd, func(repo *store.Repository) error {
			return repo.SetModelStatus(cmd.Context(), id, status)
		})
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored model with its surfaces and spatial data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withRepository(cmd, func(repo *store.Repository) error {
			if err := repo.DeleteModel(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "deleted model %d\n", id)
			return nil
		})
	},
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage stored DSL documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withRepository(cmd, func(repo *store.Repository) error {
			docs, err := repo.ListDocuments(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printDocuments(docs)
			return nil
		})
	},
}

var docsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored document's DSL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withRepository(cmd, func(repo *store.Repository) error {
			doc, err := repo.GetDocument(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Print(doc.RawDSL)
			for _, e := range doc.ValidationErrors {
				fmt.Fprintln(os.Stderr, styleErr.Render("error")+" "+e)
			}
			return nil
		})
	},
}

var docsSaveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Validate a DSL file and store it as a document",
	Long: "Store a DSL file together with its validation findings. Invalid\n" +
		"documents are stored too; their errors are kept with them.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		text, err := readSource(args[0])
		if err != nil {
			return err
		}
		if name == "" {
			name = modelName(args[0])
		}
		report := checkSource(dsl.NewEngine(), displayName(args[0]), text)
		fmt.Fprint(os.Stderr, report.render())

		doc := store.Document{Name: name, RawDSL: text, IsValid: !report.failed(false)}
		if report.parseErr != nil {
			doc.ValidationErrors = []string{report.parseErr.Error()}
		} else {
			for _, e := range report.result.Errors {
				doc.ValidationErrors = append(doc.ValidationErrors, e.Error())
			}
		}
		return withRepository(cmd, func(repo *store.Repository) error {
			saved, err := repo.SaveDocument(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "saved document %d\n", saved.ID)
			return nil
		})
	},
}

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Fuzzy-find a stored document and print its DSL",
	Long: "Open a fuzzy finder over the stored documents (or models with --models)\n" +
		"with a preview, and print the selection to stdout.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		models, _ := cmd.Flags().GetBool("models")
		return withRepository(cmd, func(repo *store.Repository) error {
			if models {
				return pickModel(cmd, repo)
			}
			return pickDocument(cmd, repo)
		})
	},
}

func init() {
	modelsListCmd.Flags().Int("limit", 0, "maximum number of models (0: all)")
	modelsShowCmd.Flags().StringP("output", "o", "", "write the YAML to a file instead of stdout")
	modelsCmd.AddCommand(modelsListCmd, modelsShowCmd, modelsStatusCmd, modelsDeleteCmd)

	docsListCmd.Flags().Int("limit", 0, "maximum number of documents (0: all)")
	docsSaveCmd.Flags().String("name", "", "document name (default: file name without extension)")
	docsCmd.AddCommand(docsListCmd, docsShowCmd, docsSaveCmd)

	pickCmd.Flags().Bool("models", false, "pick a model and print it as YAML")
}

func withRepository(cmd *cobra.Command, fn func(*store.Repository) error) error {
	repo, closeRepo, err := openRepository(cmd.Context())
	if err != nil {
		return err
	}
	defer closeRepo()
	return fn(repo)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printModels(models []store.ModelSummary) {
	if len(models) == 0 {
		fmt.Println("no models stored")
		return
	}
	fmt.Printf("%-5s %-24s %-10s %-8s %-6s %-7s %-16s\n", "ID", "NAME", "STATUS", "SURFACES", "GROUPS", "POINTS", "CREATED")
	fmt.Println(strings.Repeat("-", 82))
	for _, m := range models {
		fmt.Printf("%-5d %-24s %-10s %-8d %-6d %-7d %-16s\n",
			m.ID, m.Name, m.Status, m.SurfaceCount, m.GroupCount, m.SurfacePointCount, m.CreatedAt.Format(listTimeLayout))
	}
}

func printDocuments(docs []store.Document) {
	if len(docs) == 0 {
		fmt.Println("no documents stored")
		return
	}
	fmt.Printf("%-5s %-32s %-6s %-16s\n", "ID", "NAME", "VALID", "UPDATED")
	fmt.Println(strings.Repeat("-", 62))
	for _, d := range docs {
		fmt.Printf("%-5d %-32s %-6t %-16s\n", d.ID, d.Name, d.IsValid, d.UpdatedAt.Format(listTimeLayout))
	}
}

func pickDocument(cmd *cobra.Command, repo *store.Repository) error {
	doc, err := chooseDocument(cmd, repo)
	if err != nil || doc == nil {
		return err
	}
	fmt.Print(doc.RawDSL)
	return nil
}

// chooseDocument opens the fuzzy finder over the stored documents. It
// returns nil when the user aborts.
func chooseDocument(cmd *cobra.Command, repo *store.Repository) (*store.Document, error) {
	docs, err := repo.ListDocuments(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.New("no documents stored")
	}
	idx, err := fuzzyfinder.Find(
		docs,
		func(i int) string {
			return fmt.Sprintf("%d  %s", docs[i].ID, docs[i].Name)
		},
		fuzzyfinder.WithPromptString("Select document: "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			return docs[i].RawDSL
		}),
	)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &docs[idx], nil
}

func pickModel(cmd *cobra.Command, repo *store.Repository) error {
	models, err := repo.ListModels(cmd.Context(), 0)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return errors.New("no models stored")
	}
	idx, err := fuzzyfinder.Find(
		models,
		func(i int) string {
			return fmt.Sprintf("%d  %s  [%s]", models[i].ID, models[i].Name, models[i].Status)
		},
		fuzzyfinder.WithPromptString("Select model: "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			m := models[i]
			return fmt.Sprintf("%s\n\nsurfaces:      %d\ngroups:        %d\npoints:        %d\norientations:  %d\ncreated:       %s",
				m.Name, m.SurfaceCount, m.GroupCount, m.SurfacePointCount, m.OrientationCount, m.CreatedAt.Format(listTimeLayout))
		}),
	)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return nil
	}
	if err != nil {
		return err
	}
	_, data, err := repo.GetModel(cmd.Context(), models[idx].ID)
	if err != nil {
		return err
	}
	out, err := modelyaml.Encode(data)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
