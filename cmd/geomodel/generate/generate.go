// Package generate turns a free-text geological description into a DSL
// program with a language model, feeding parse and validation errors back
// until the output is valid.
package generate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/pkg/lib"
	"geo-tools/pkg/logger"
)

const DefaultMaxRetries = 5

var ErrGenerationFailed = errors.New("DSL generation failed")

const (
	consolidateSystemPrompt = `You are a senior geologist with many years of experience.
Your job is to consolidate geological descriptions into coherent summaries.
Focus on: rock types present, the orientation of large-scale structures, stratigraphic relationships, erosion, and igneous intrusions.
Ignore: Chemical analysis, mineralogy, and other non-geological information.`

	consolidateUserPrompt = `Consolidate the following geological description into one or two paragraphs without line breaks.
Avoid using headings and bullet points.

Geological description:
%s`

	dslSystemPrompt = `You are an expert geological interpreter and DSL compiler.
Your goal is to read a free-text description of an area's stratigraphy, structures, and events,
then emit a concise, declarative DSL encoding of that description.`

	dslUserPrompt = "Parse the following geological description and output DSL statements.\n\n" +
		"Geological description:\n%s\n\n" +
		"DSL specification:\n```\n%s```\n\n" +
		"Example:\n```\n%s```\n\n" +
		`Instructions:
- Identify all distinct rock units, depositional events, erosional events, and intrusive events.
- Assign a unique short ID to each (e.g. R1, D1, E1, I1).
- Fill in all known fields (name, type, age, rock, time, style, after).
- Use absolute ages when given; otherwise use after: relationships to order events.
- Output ONLY the DSL statements, rocks first, then depositions, erosions and intrusions.

Do NOT include any explanatory text, only the DSL code.`

	dslRetryPrompt = "The previous DSL output had validation errors. Please fix these errors and regenerate.\n\n" +
		"Previous DSL:\n```\n%s\n```\n\n" +
		"Validation errors:\n%s\n\n" +
		"Original geological description:\n%s\n\n" +
		"Output ONLY the corrected DSL statements, nothing else."
)

// Result is the outcome of the last attempt. Program and Validation are nil
// when the last reply did not parse.
type Result struct {
	DSL        string
	Program    *dsl.Program
	Validation *dsl.ValidationResult
	Errors     []string
	Attempts   int
}

// Generator is safe for concurrent use if its Completer is.
type Generator struct {
	completer  Completer
	engine     *dsl.Engine
	maxRetries int
}

type Option func(*Generator)

func WithMaxRetries(n int) Option {
	return func(g *Generator) { g.maxRetries = n }
}

func NewGenerator(c Completer, opts ...Option) *Generator {
	g := &Generator{completer: c, engine: dsl.NewEngine(), maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// rejected is an attempt whose output failed to parse or validate.
type rejected struct {
	result *Result
}

func (r *rejected) Error() string {
	return fmt.Sprintf("attempt %d produced invalid DSL: %s", r.result.Attempts, strings.Join(r.result.Errors, "; "))
}

// Generate asks for DSL up to the configured number of attempts. When every
// attempt is rejected it returns the last Result together with an error
// matching ErrGenerationFailed.
func (g *Generator) Generate(ctx context.Context, description string) (*Result, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: empty description", ErrGenerationFailed)
	}

	var last *Result
	res, err := lib.RetryWithContext(ctx, g.maxRetries, func(ctx context.Context, attempt int) (*Result, error) {
		prompt := fmt.Sprintf(dslUserPrompt, description, dsl.GrammarReference, dsl.ExampleProgram)
		if last != nil {
			prompt = fmt.Sprintf(dslRetryPrompt, last.DSL, bulletList(last.Errors), description)
		}

		reply, err := g.completer.Complete(ctx, dslSystemPrompt, prompt)
		if err != nil {
			logger.Warn("completion failed", "attempt", attempt, "err", err)
			return nil, err
		}

		r := g.check(CleanResponse(reply))
		r.Attempts = attempt
		last = r
		if len(r.Errors) > 0 {
			logger.Info("generated DSL rejected", "attempt", attempt, "errors", len(r.Errors))
			return nil, &rejected{result: r}
		}
		return r, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return last, err
		}
		return last, fmt.Errorf("%w after %d attempt(s): %w", ErrGenerationFailed, g.attempts(last), err)
	}
	logger.Info("generated DSL", "attempts", res.Attempts, "statements", res.Program.Len())
	return res, nil
}

func (g *Generator) attempts(last *Result) int {
	if last == nil {
		return g.maxRetries
	}
	return last.Attempts
}

// check parses and validates text and collects the messages fed back to the
// model on retry.
func (g *Generator) check(text string) *Result {
	r := &Result{DSL: text}
	if text == "" {
		r.Errors = []string{"No DSL text to validate"}
		return r
	}
	prog, res, err := g.engine.Build(text)
	if err != nil {
		var serr *dsl.SyntaxError
		if errors.As(err, &serr) {
			r.Errors = []string{fmt.Sprintf("Syntax error at line %d: %s", serr.Line, serr.Message)}
		} else {
			r.Errors = []string{err.Error()}
		}
		return r
	}
	r.Program, r.Validation = prog, res
	for _, e := range res.Errors {
		r.Errors = append(r.Errors, e.Error())
	}
	return r
}

// Consolidate condenses a long description into one or two paragraphs,
// the form Generate works best with.
func (g *Generator) Consolidate(ctx context.Context, text string) (string, error) {
	reply, err := g.completer.Complete(ctx, consolidateSystemPrompt, fmt.Sprintf(consolidateUserPrompt, text))
	if err != nil {
		return "", fmt.Errorf("consolidate: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

var fenced = regexp.MustCompile("(?s)```(?:dsl)?\\n?(.*?)```")

// CleanResponse returns the first fenced code block of a reply, or the
// whole reply trimmed when there is none.
func CleanResponse(text string) string {
	if m := fenced.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

func bulletList(items []string) string {
	var b strings.Builder
	for i, s := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- " + s)
	}
	return b.String()
}
