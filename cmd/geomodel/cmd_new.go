package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"geo-tools/cmd/geomodel/dsl"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Add a rock and its event to a DSL file with an interactive form",
	Long: "Ask for a rock unit and the deposition or intrusion that produced it,\n" +
		"then append both statements to the file (created when missing). The\n" +
		"result is validated before it is written.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		existing := ""
		if data, err := os.ReadFile(path); err == nil {
			existing = string(data)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		prog, err := dsl.Parse(existing)
		if err != nil {
			fmt.Fprint(os.Stderr, renderParseError(path, err))
			return fmt.Errorf("%s must parse before statements can be added", path)
		}

		var e newEntry
		if err := newEntryForm(&e, prog).Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}

		text, res, err := e.merge(existing)
		if err != nil {
			return err
		}
		if !res.IsValid() {
			fmt.Fprint(os.Stderr, renderValidation(path, res))
			write := false
			confirm := huh.NewConfirm().
				Title("The program has errors. Write it anyway?").
				Value(&write)
			if err := confirm.Run(); err != nil || !write {
				return err
			}
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "added %s to %s\n", e.summary(), path)
		return nil
	},
}

// newEntry holds the answers of the form.
type newEntry struct {
	RockID    string
	RockName  string
	RockType  string
	RockAge   string
	EventKind string
	EventID   string
	EventTime string
	After     []string
	Style     string
}

const (
	eventNone       = "none"
	eventDeposition = "deposition"
	eventIntrusion  = "intrusion"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(taken map[string]struct{}) func(string) error {
	return func(s string) error {
		if !identPattern.MatchString(s) {
			return errors.New("letters, digits and _ only, not starting with a digit")
		}
		if _, ok := taken[s]; ok {
			return fmt.Errorf("%s is already defined", s)
		}
		return nil
	}
}

// validTime accepts an empty answer or a DSL time literal.
func validTime(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := dsl.Parse("EROSION X [ time: " + s + " ]")
	if err != nil {
		return errors.New(`use a number with Ga, Ma or ka, a quoted epoch, or "?"`)
	}
	return nil
}

func newEntryForm(e *newEntry, prog *dsl.Program) *huh.Form {
	taken := prog.AllIDs()
	events := make([]string, 0)
	for _, ev := range prog.AllEvents() {
		events = append(events, ev.EventID())
	}
	e.EventKind = eventDeposition

	rockTypes := []string{"sedimentary", "volcanic", "intrusive", "metamorphic"}
	styles := []string{"dike", "sill", "stock", "batholith"}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Rock id").Placeholder("R1").Value(&e.RockID).Validate(validIdent(taken)),
			huh.NewInput().Title("Rock name").Value(&e.RockName).Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("a name is required")
				}
				if strings.Contains(s, `"`) {
					return errors.New("quotes are not allowed")
				}
				return nil
			}),
			huh.NewSelect[string]().Title("Rock type").Options(huh.NewOptions(rockTypes...)...).Value(&e.RockType),
			huh.NewInput().Title("Age (optional)").Placeholder("66Ma").Value(&e.RockAge).Validate(validTime),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Event that produced it").
				Options(huh.NewOptions(eventDeposition, eventIntrusion, eventNone)...).
				Value(&e.EventKind),
		),
		huh.NewGroup(
			huh.NewInput().Title("Event id").Placeholder("D1").Value(&e.EventID).Validate(func(s string) error {
				if s == e.RockID {
					return fmt.Errorf("%s is already used by the rock", s)
				}
				return validIdent(taken)(s)
			}),
			huh.NewInput().Title("Time (optional)").Placeholder("66Ma").Value(&e.EventTime).Validate(validTime),
			huh.NewMultiSelect[string]().Title("After").Options(huh.NewOptions(events...)...).Value(&e.After),
		).WithHideFunc(func() bool { return e.EventKind == eventNone }),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Intrusion style").Options(huh.NewOptions(styles...)...).Value(&e.Style),
		).WithHideFunc(func() bool { return e.EventKind != eventIntrusion }),
	)
}

// source renders the answers as DSL statements.
func (e *newEntry) source() string {
	props := []string{fmt.Sprintf(`name: "%s"`, e.RockName), "type: " + e.RockType}
	if e.RockAge != "" {
		props = append(props, "age: "+e.RockAge)
	}
	src := fmt.Sprintf("ROCK %s [ %s ]\n", e.RockID, strings.Join(props, "; "))

	if e.EventKind == eventNone {
		return src
	}
	props = []string{"rock: " + e.RockID}
	if e.EventKind == eventIntrusion && e.Style != "" {
		props = append(props, "style: "+e.Style)
	}
	if e.EventTime != "" {
		props = append(props, "time: "+e.EventTime)
	}
	if len(e.After) > 0 {
		props = append(props, "after: "+strings.Join(e.After, ", "))
	}
	return src + fmt.Sprintf("%s %s [ %s ]\n", strings.ToUpper(e.EventKind), e.EventID, strings.Join(props, "; "))
}

func (e *newEntry) summary() string {
	if e.EventKind == eventNone {
		return "ROCK " + e.RockID
	}
	return fmt.Sprintf("ROCK %s and %s %s", e.RockID, strings.ToUpper(e.EventKind), e.EventID)
}

// merge appends the new statements to existing and returns the whole
// program in canonical form with its validation result.
func (e *newEntry) merge(existing string) (string, *dsl.ValidationResult, error) {
	prog, res, err := dsl.NewEngine().Build(existing + "\n" + e.source())
	if err != nil {
		return "", nil, err
	}
	return dsl.Serialize(prog), res, nil
}
