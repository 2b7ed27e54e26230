package dsl

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSyntax                = errors.New("syntax error")
	ErrParse                 = errors.New("parse error")
	ErrDuplicateID           = errors.New("duplicate id")
	ErrMissingProperty       = errors.New("missing required property")
	ErrUndefinedReference    = errors.New("undefined reference")
	ErrCircularDependency    = errors.New("circular dependency")
	ErrTemporalInconsistency = errors.New("temporal inconsistency")
)

// maxExpected is how many expected alternatives a syntax error prints.
const maxExpected = 5

// ---------------------------------------------------------------------------
// Parse failures
// ---------------------------------------------------------------------------

// SyntaxError reports malformed input at a precise position.
type SyntaxError struct {
	Message     string
	Line        int
	Column      int
	ContextLine string
	Expected    []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	if e.ContextLine != "" {
		b.WriteString("\n  " + e.ContextLine)
		b.WriteString("\n  " + strings.Repeat(" ", max(e.Column-1, 0)) + "^")
	}
	if len(e.Expected) > 0 {
		b.WriteString("\n  Expected: " + e.ExpectedSummary())
	}
	return b.String()
}

// ExpectedSummary lists at most five sorted alternatives, noting the total
// when some were left out.
func (e *SyntaxError) ExpectedSummary() string {
	sorted := append([]string(nil), e.Expected...)
	sort.Strings(sorted)
	shown := sorted
	if len(shown) > maxExpected {
		shown = shown[:maxExpected]
	}
	s := strings.Join(shown, ", ")
	if len(sorted) > maxExpected {
		s += fmt.Sprintf(", ... (%d options)", len(sorted))
	}
	return s
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// ParseError is any parse failure that has no precise location.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func (e *ParseError) Unwrap() error { return ErrParse }

// ---------------------------------------------------------------------------
// Semantic errors
// ---------------------------------------------------------------------------

// SemanticError is a non-fatal finding of the validator.
type SemanticError interface {
	error
	Location() *SourceLocation
	// Message is the error text without the location prefix.
	Message() string
}

func withLocation(loc *SourceLocation, msg string) string {
	if loc == nil {
		return msg
	}
	return loc.String() + ": " + msg
}

type DuplicateIDError struct {
	ID             string
	FirstLocation  *SourceLocation
	SecondLocation *SourceLocation
}

func (e *DuplicateIDError) Message() string {
	msg := fmt.Sprintf("Duplicate ID '%s'", e.ID)
	if e.FirstLocation != nil {
		msg += fmt.Sprintf(" (first defined at %s)", e.FirstLocation)
	}
	return msg
}

func (e *DuplicateIDError) Location() *SourceLocation { return e.SecondLocation }
func (e *DuplicateIDError) Error() string             { return withLocation(e.Location(), e.Message()) }
func (e *DuplicateIDError) Unwrap() error             { return ErrDuplicateID }

type MissingRequiredPropertyError struct {
	NodeType string
	NodeID   string
	Property string
	Loc      *SourceLocation
}

func (e *MissingRequiredPropertyError) Message() string {
	return fmt.Sprintf("%s '%s' is missing required property '%s'", e.NodeType, e.NodeID, e.Property)
}

func (e *MissingRequiredPropertyError) Location() *SourceLocation { return e.Loc }
func (e *MissingRequiredPropertyError) Error() string             { return withLocation(e.Loc, e.Message()) }
func (e *MissingRequiredPropertyError) Unwrap() error             { return ErrMissingProperty }

// UndefinedReferenceError is raised for an unknown rock or event id.
// AvailableIDs is sorted.
type UndefinedReferenceError struct {
	ReferenceType string // "rock" or "event"
	ReferenceID   string
	Context       string
	AvailableIDs  []string
	Loc           *SourceLocation
}

func (e *UndefinedReferenceError) Message() string {
	msg := fmt.Sprintf("Undefined %s '%s' in %s", e.ReferenceType, e.ReferenceID, e.Context)
	if len(e.AvailableIDs) == 0 {
		return msg
	}
	if s := e.Suggestions(); len(s) > 0 {
		return msg + fmt.Sprintf(". Did you mean: %s?", strings.Join(s, ", "))
	}
	shown := e.AvailableIDs
	if len(shown) > 5 {
		shown = shown[:5]
	}
	return msg + fmt.Sprintf(". Available %ss: %s", e.ReferenceType, strings.Join(shown, ", "))
}

// Suggestions returns up to three available ids within edit distance 2.
func (e *UndefinedReferenceError) Suggestions() []string {
	return suggest(e.ReferenceID, e.AvailableIDs, 3, 2)
}

func (e *UndefinedReferenceError) Location() *SourceLocation { return e.Loc }
func (e *UndefinedReferenceError) Error() string             { return withLocation(e.Loc, e.Message()) }
func (e *UndefinedReferenceError) Unwrap() error             { return ErrUndefinedReference }

// CircularDependencyError holds one closed cycle, first id repeated at the end.
type CircularDependencyError struct {
	CyclePath []string
	Loc       *SourceLocation
}

func (e *CircularDependencyError) Message() string {
	return "Circular dependency detected: " + strings.Join(e.CyclePath, " -> ")
}

func (e *CircularDependencyError) Location() *SourceLocation { return e.Loc }
func (e *CircularDependencyError) Error() string             { return withLocation(e.Loc, e.Message()) }
func (e *CircularDependencyError) Unwrap() error             { return ErrCircularDependency }

type TemporalInconsistencyError struct {
	EventID        string
	EventTime      string
	DependencyID   string
	DependencyTime string
	Loc            *SourceLocation
}

func (e *TemporalInconsistencyError) Message() string {
	return fmt.Sprintf("Temporal inconsistency: %s (%s) claims to be after %s (%s), but %s is older",
		e.EventID, e.EventTime, e.DependencyID, e.DependencyTime, e.EventTime)
}

func (e *TemporalInconsistencyError) Location() *SourceLocation { return e.Loc }
func (e *TemporalInconsistencyError) Error() string             { return withLocation(e.Loc, e.Message()) }
func (e *TemporalInconsistencyError) Unwrap() error             { return ErrTemporalInconsistency }
