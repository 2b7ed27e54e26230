package main

import (
	"errors"
	"fmt"
	"strings"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/structural"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	styleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	styleOK = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	styleErr = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	styleKey = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))
)

// renderParseError formats a parse failure for the terminal. Syntax errors
// keep their source line and caret.
func renderParseError(name string, err error) string {
	var b strings.Builder
	b.WriteString(styleErr.Render("✗ "+name) + "\n")
	var serr *dsl.SyntaxError
	if errors.As(err, &serr) {
		for _, line := range strings.Split(serr.Error(), "\n") {
			b.WriteString("  " + line + "\n")
		}
		return b.String()
	}
	b.WriteString("  " + err.Error() + "\n")
	return b.String()
}

// renderValidation formats a validation result, errors first.
func renderValidation(name string, res *dsl.ValidationResult) string {
	var b strings.Builder
	if res.IsValid() {
		b.WriteString(styleOK.Render("✓ "+name) + "\n")
	} else {
		b.WriteString(styleErr.Render(fmt.Sprintf("✗ %s: %d error(s)", name, len(res.Errors))) + "\n")
	}
	for _, e := range res.Errors {
		b.WriteString("  " + styleErr.Render("error") + " " + e.Error() + "\n")
	}
	for _, w := range res.Warnings {
		b.WriteString("  " + styleWarn.Render("warning") + " " + w + "\n")
	}
	return b.String()
}

func renderConfigResult(name string, res *structural.ConfigResult) string {
	var b strings.Builder
	if res.IsValid() {
		b.WriteString(styleOK.Render("✓ "+name) + "\n")
	} else {
		b.WriteString(styleErr.Render(fmt.Sprintf("✗ %s: %d error(s)", name, len(res.Errors))) + "\n")
	}
	for _, e := range res.Errors {
		b.WriteString("  " + styleErr.Render("error") + " " + e.Message + "\n")
	}
	for _, w := range res.Warnings {
		b.WriteString("  " + styleWarn.Render("warning") + " " + w + "\n")
	}
	return b.String()
}

// renderSummary is a one-line count of statements by kind.
func renderSummary(p *dsl.Program) string {
	return styleHelp.Render(fmt.Sprintf("%d rock(s), %d deposition(s), %d erosion(s), %d intrusion(s)",
		len(p.Rocks), len(p.Depositions), len(p.Erosions), len(p.Intrusions)))
}
