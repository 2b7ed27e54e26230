package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/structural"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const (
	replPrompt         = "geo> "
	replContinuePrompt = "...> "
)

var replCmd = &cobra.Command{
	Use:   "repl [file]",
	Short: "Interactive DSL shell",
	Long: "Type DSL statements one at a time; statements may span several lines.\n" +
		"Commands start with a colon, see :help. An optional file is loaded first.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newReplSession()
		if len(args) == 1 {
			fmt.Println(sess.load(args[0]))
		}

		rl, err := readline.NewEx(&readline.Config{
			Prompt:            replPrompt,
			HistoryFile:       replHistoryFile(),
			AutoComplete:      replCompleter(),
			InterruptPrompt:   "^C",
			EOFPrompt:         ":quit",
			HistorySearchFold: true,
		})
		if err != nil {
			return err
		}
		defer rl.Close()

		fmt.Println(styleHelp.Render("Type DSL statements, :help for commands, :quit to leave."))
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				if sess.pending != "" {
					sess.pending = ""
					rl.SetPrompt(replPrompt)
					continue
				}
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}

			out, more, quit := sess.eval(line)
			if out != "" {
				fmt.Println(out)
			}
			if quit {
				return nil
			}
			if more {
				rl.SetPrompt(replContinuePrompt)
			} else {
				rl.SetPrompt(replPrompt)
			}
		}
	},
}

func replHistoryFile() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

func replCompleter() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("ROCK"),
		readline.PcItem("DEPOSITION"),
		readline.PcItem("EROSION"),
		readline.PcItem("INTRUSION"),
	}
	for _, c := range replCommands {
		items = append(items, readline.PcItem(c.name))
	}
	return readline.NewPrefixCompleter(items...)
}

var replCommands = []struct {
	name string
	help string
}{
	{":help", "show this help"},
	{":show", "print the program in canonical form"},
	{":validate", "validate the whole program"},
	{":transform", "derive the structural groups"},
	{":undo", "remove the last accepted statement(s)"},
	{":clear", "start over"},
	{":load", "load a file: :load <path>"},
	{":save", "save the program: :save <path>"},
	{":quit", "leave the shell"},
}

// replSession holds the program typed so far as the chunks of source that
// parsed, so :undo can drop the last one.
type replSession struct {
	engine  *dsl.Engine
	chunks  []string
	pending string
}

func newReplSession() *replSession {
	return &replSession{engine: dsl.NewEngine()}
}

func (s *replSession) source() string {
	return strings.Join(s.chunks, "\n")
}

// eval handles one input line. more is true while a statement is
// incomplete.
func (s *replSession) eval(line string) (out string, more, quit bool) {
	trimmed := strings.TrimSpace(line)
	if s.pending == "" {
		if trimmed == "" {
			return "", false, false
		}
		if strings.HasPrefix(trimmed, ":") {
			out, quit = s.command(trimmed)
			return out, false, quit
		}
	}

	text := line
	if s.pending != "" {
		text = s.pending + "\n" + line
	}
	prog, err := dsl.Parse(text)
	if err != nil {
		var serr *dsl.SyntaxError
		if errors.As(err, &serr) && serr.Message == "Unexpected end of input" {
			s.pending = text
			return "", true, false
		}
		s.pending = ""
		return renderParseError("input", err), false, false
	}
	s.pending = ""
	if prog.Len() == 0 {
		return "", false, false
	}
	s.chunks = append(s.chunks, text)
	return styleOK.Render("+ ") + strings.TrimRight(dsl.Serialize(prog), "\n"), false, false
}

func (s *replSession) command(input string) (string, bool) {
	fields := strings.Fields(input)
	name, rest := fields[0], fields[1:]
	switch name {
	case ":quit", ":q", ":exit":
		return "", true
	case ":help":
		var b strings.Builder
		for _, c := range replCommands {
			fmt.Fprintf(&b, "%s  %s\n", styleKey.Render(fmt.Sprintf("%-10s", c.name)), c.help)
		}
		return strings.TrimRight(b.String(), "\n"), false
	case ":show":
		return s.show(), false
	case ":validate":
		return s.validate(), false
	case ":transform":
		return s.transform(), false
	case ":undo":
		if len(s.chunks) == 0 {
			return styleWarn.Render("nothing to undo"), false
		}
		s.chunks = s.chunks[:len(s.chunks)-1]
		return "removed last input", false
	case ":clear":
		s.chunks = nil
		return "cleared", false
	case ":load":
		if len(rest) != 1 {
			return styleErr.Render("usage: :load <path>"), false
		}
		return s.load(rest[0]), false
	case ":save":
		if len(rest) != 1 {
			return styleErr.Render("usage: :save <path>"), false
		}
		return s.save(rest[0]), false
	}
	return styleErr.Render(fmt.Sprintf("unknown command %s (try :help)", name)), false
}

func (s *replSession) program() (*dsl.Program, *dsl.ValidationResult, error) {
	return s.engine.Build(s.source())
}

func (s *replSession) show() string {
	prog, err := dsl.Parse(s.source())
	if err != nil {
		return renderParseError("program", err)
	}
	if prog.Len() == 0 {
		return styleHelp.Render("(empty)")
	}
	return strings.TrimRight(dsl.Serialize(prog), "\n")
}

func (s *replSession) validate() string {
	_, res, err := s.program()
	if err != nil {
		return renderParseError("program", err)
	}
	return strings.TrimRight(renderValidation("program", res), "\n")
}

func (s *replSession) transform() string {
	prog, res, err := s.program()
	if err != nil {
		return renderParseError("program", err)
	}
	if !res.IsValid() {
		return strings.TrimRight(renderValidation("program", res), "\n")
	}
	cfg, err := structural.NewTransformer().Transform(prog, "repl")
	if err != nil {
		return styleErr.Render(err.Error())
	}
	var b strings.Builder
	b.WriteString(styleTitle.Render("event order") + " " + strings.Join(cfg.EventOrder, " → ") + "\n")
	for _, g := range cfg.StructuralGroups {
		fmt.Fprintf(&b, "%d  %-18s %-9s %s\n", g.GroupIndex, g.GroupName, g.Relation, strings.Join(g.Surfaces, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *replSession) load(path string) string {
	text, err := readSource(path)
	if err != nil {
		return styleErr.Render(err.Error())
	}
	prog, err := dsl.Parse(text)
	if err != nil {
		return renderParseError(path, err)
	}
	s.chunks = append(s.chunks, text)
	return fmt.Sprintf("loaded %s: %s", path, renderSummary(prog))
}

func (s *replSession) save(path string) string {
	prog, err := dsl.Parse(s.source())
	if err != nil {
		return renderParseError("program", err)
	}
	if err := os.WriteFile(path, []byte(dsl.Serialize(prog)), 0o644); err != nil {
		return styleErr.Render(err.Error())
	}
	return "saved " + path
}
