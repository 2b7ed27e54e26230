package dsl

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationResult accumulates everything the validator found. The program
// is valid when Errors is empty; warnings never invalidate it.
type ValidationResult struct {
	Errors   []SemanticError
	Warnings []string
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) addError(err SemanticError) {
	r.Errors = append(r.Errors, err)
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err joins all errors, or returns nil for a valid program.
func (r *ValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (r *ValidationResult) String() string {
	if r.IsValid() && len(r.Warnings) == 0 {
		return "Validation passed"
	}
	var b strings.Builder
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "Validation failed with %d error(s):\n", len(r.Errors))
		for _, e := range r.Errors {
			b.WriteString("  - " + e.Error() + "\n")
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "%d warning(s):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			b.WriteString("  - " + w + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Validator runs the semantic checks. It holds no state.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate is shorthand for NewValidator().Validate(p).
func Validate(p *Program) *ValidationResult {
	return NewValidator().Validate(p)
}

// Validate runs every check in a fixed order. Checks do not depend on each
// other's outcome; p is never modified.
func (v *Validator) Validate(p *Program) *ValidationResult {
	res := &ValidationResult{}
	v.checkDuplicateIDs(p, res)
	v.checkRequiredProperties(p, res)
	v.checkRockReferences(p, res)
	v.checkEventReferences(p, res)
	v.checkCycles(p, res)
	v.checkTemporalOrder(p, res)
	return res
}

// ---------------------------------------------------------------------------
// Pass 1: duplicate ids
// ---------------------------------------------------------------------------

func (v *Validator) checkDuplicateIDs(p *Program, res *ValidationResult) {
	seen := make(map[string]*SourceLocation)
	check := func(id string, loc *SourceLocation) {
		if first, ok := seen[id]; ok {
			res.addError(&DuplicateIDError{ID: id, FirstLocation: first, SecondLocation: loc})
			return
		}
		seen[id] = loc
	}
	for _, r := range p.Rocks {
		check(r.ID, r.Location)
	}
	for _, e := range p.AllEvents() {
		check(e.EventID(), e.Loc())
	}
}

// ---------------------------------------------------------------------------
// Pass 2: required properties
// ---------------------------------------------------------------------------

func (v *Validator) checkRequiredProperties(p *Program, res *ValidationResult) {
	for _, r := range p.Rocks {
		if r.Name == "" {
			res.addError(&MissingRequiredPropertyError{NodeType: kwRock, NodeID: r.ID, Property: "name", Loc: r.Location})
		}
	}
	for _, e := range p.RockProducers() {
		if e.RockRef() == "" {
			res.addError(&MissingRequiredPropertyError{NodeType: e.Kind().String(), NodeID: e.EventID(), Property: "rock", Loc: e.Loc()})
		}
	}
}

// ---------------------------------------------------------------------------
// Pass 3 and 4: references
// ---------------------------------------------------------------------------

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// checkRockReferences skips empty rock ids; pass 2 already reports those.
func (v *Validator) checkRockReferences(p *Program, res *ValidationResult) {
	rocks := p.RockIDs()
	available := sortedKeys(rocks)
	for _, e := range p.RockProducers() {
		ref := e.RockRef()
		if ref == "" {
			continue
		}
		if _, ok := rocks[ref]; !ok {
			res.addError(&UndefinedReferenceError{
				ReferenceType: "rock",
				ReferenceID:   ref,
				Context:       describe(e),
				AvailableIDs:  available,
				Loc:           e.Loc(),
			})
		}
	}
}

// checkEventReferences also warns about self-references and repeated
// entries; a self-reference is reported as an error by the cycle check.
func (v *Validator) checkEventReferences(p *Program, res *ValidationResult) {
	events := p.EventIDs()
	available := sortedKeys(events)
	for _, e := range p.AllEvents() {
		listed := make(map[string]bool, len(e.Dependencies()))
		for _, dep := range e.Dependencies() {
			if listed[dep] {
				res.addWarning("%s lists '%s' more than once in after:", describe(e), dep)
			}
			listed[dep] = true
			if dep == e.EventID() {
				res.addWarning("%s lists itself in after:", describe(e))
			}
			if _, ok := events[dep]; !ok {
				res.addError(&UndefinedReferenceError{
					ReferenceType: "event",
					ReferenceID:   dep,
					Context:       "after: clause in " + describe(e),
					AvailableIDs:  available,
					Loc:           e.Loc(),
				})
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Pass 5: cycles
// ---------------------------------------------------------------------------

type color int

const (
	white color = iota
	gray
	black
)

// checkCycles walks event -> dependency edges depth first and reports the
// first back edge found as a closed path.
func (v *Validator) checkCycles(p *Program, res *ValidationResult) {
	graph := make(map[string][]string)
	for _, e := range p.AllEvents() {
		graph[e.EventID()] = append(graph[e.EventID()], e.Dependencies()...)
	}

	colors := make(map[string]color)
	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		colors[id] = gray
		path = append(path, id)
		for _, next := range graph[id] {
			switch colors[next] {
			case gray:
				start := indexOf(path, next)
				cycle := append([]string(nil), path[start:]...)
				return append(cycle, next)
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		colors[id] = black
		return nil
	}

	for _, e := range p.AllEvents() {
		if colors[e.EventID()] != white {
			continue
		}
		path = path[:0]
		if cycle := visit(e.EventID()); cycle != nil {
			res.addError(&CircularDependencyError{CyclePath: cycle, Loc: e.Loc()})
			return
		}
	}
}

func indexOf(ss []string, s string) int {
	for i, x := range ss {
		if x == s {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Pass 6: temporal consistency
// ---------------------------------------------------------------------------

// checkTemporalOrder requires an event to be no older than anything it
// follows. Only absolute times are compared.
func (v *Validator) checkTemporalOrder(p *Program, res *ValidationResult) {
	byID := make(map[string]Event)
	for _, e := range p.AllEvents() {
		byID[e.EventID()] = e
	}
	for _, e := range p.AllEvents() {
		eventMa, ok := AgeMa(e.EventTime())
		if !ok {
			continue
		}
		for _, depID := range e.Dependencies() {
			dep, ok := byID[depID]
			if !ok {
				continue
			}
			depMa, ok := AgeMa(dep.EventTime())
			if !ok {
				continue
			}
			if eventMa > depMa {
				res.addError(&TemporalInconsistencyError{
					EventID:        e.EventID(),
					EventTime:      e.EventTime().String(),
					DependencyID:   depID,
					DependencyTime: dep.EventTime().String(),
					Loc:            e.Loc(),
				})
			}
		}
	}
}
