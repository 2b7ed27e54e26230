package dsl

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Source locations
// ---------------------------------------------------------------------------

// SourceLocation is the position of a node in the DSL source. Lines and
// columns are 1-based. EndLine and EndColumn are zero when unknown.
type SourceLocation struct {
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

func (l SourceLocation) String() string {
	if l.EndLine > 0 && l.EndLine != l.Line {
		return fmt.Sprintf("lines %d-%d", l.Line, l.EndLine)
	}
	return fmt.Sprintf("line %d, column %d", l.Line, l.Column)
}

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

type RockType int

const (
	Sedimentary RockType = iota
	Volcanic
	Intrusive
	Metamorphic
)

var rockTypeNames = [...]string{"sedimentary", "volcanic", "intrusive", "metamorphic"}

// String returns the lower-case DSL spelling.
func (t RockType) String() string {
	if int(t) < 0 || int(t) >= len(rockTypeNames) {
		return "RockType(" + strconv.Itoa(int(t)) + ")"
	}
	return rockTypeNames[t]
}

// ParseRockType is case-insensitive.
func ParseRockType(s string) (RockType, bool) {
	for i, n := range rockTypeNames {
		if strings.EqualFold(s, n) {
			return RockType(i), true
		}
	}
	return 0, false
}

// IntrusionStyle is optional on INTRUSION; StyleUnset means it was omitted.
type IntrusionStyle int

const (
	StyleUnset IntrusionStyle = iota
	Dike
	Sill
	Stock
	Batholith
)

var styleNames = [...]string{"", "dike", "sill", "stock", "batholith"}

func (s IntrusionStyle) String() string {
	if int(s) < 0 || int(s) >= len(styleNames) {
		return "IntrusionStyle(" + strconv.Itoa(int(s)) + ")"
	}
	return styleNames[s]
}

func ParseIntrusionStyle(s string) (IntrusionStyle, bool) {
	for i, n := range styleNames {
		if i > 0 && strings.EqualFold(s, n) {
			return IntrusionStyle(i), true
		}
	}
	return StyleUnset, false
}

type TimeUnit int

const (
	Ga TimeUnit = iota
	Ma
	Ka
)

var unitNames = [...]string{"Ga", "Ma", "ka"}

func (u TimeUnit) String() string {
	if int(u) < 0 || int(u) >= len(unitNames) {
		return "TimeUnit(" + strconv.Itoa(int(u)) + ")"
	}
	return unitNames[u]
}

func ParseTimeUnit(s string) (TimeUnit, bool) {
	for i, n := range unitNames {
		if strings.EqualFold(s, n) {
			return TimeUnit(i), true
		}
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Time values
// ---------------------------------------------------------------------------

// TimeValue is a closed set: AbsoluteTime, EpochTime and UnknownTime.
// A nil TimeValue means the property was not given.
type TimeValue interface {
	isTime()
	String() string
}

// AbsoluteTime is a numeric age before present.
type AbsoluteTime struct {
	Value float64
	Unit  TimeUnit
}

// EpochTime is a named period ("Cretaceous"); it cannot be compared numerically.
type EpochTime struct {
	Name string
}

// UnknownTime is the explicit "?" literal.
type UnknownTime struct{}

func (AbsoluteTime) isTime() {}
func (EpochTime) isTime()    {}
func (UnknownTime) isTime()  {}

// Ma converts the value to millions of years.
func (t AbsoluteTime) Ma() float64 {
	switch t.Unit {
	case Ga:
		return t.Value * 1000
	case Ka:
		return t.Value / 1000
	default:
		return t.Value
	}
}

func (t AbsoluteTime) String() string {
	return formatNumber(t.Value) + t.Unit.String()
}

func (t EpochTime) String() string { return t.Name }

func (UnknownTime) String() string { return "?" }

// AgeMa returns the age in Ma when t is an AbsoluteTime.
func AgeMa(t TimeValue) (float64, bool) {
	if at, ok := t.(AbsoluteTime); ok {
		return at.Ma(), true
	}
	return 0, false
}

// formatNumber drops the fractional part of integral values.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ---------------------------------------------------------------------------
// Definitions and events
// ---------------------------------------------------------------------------

type RockDefinition struct {
	ID       string
	Name     string
	Type     RockType
	Age      TimeValue
	Location *SourceLocation
}

// EventKind names the statement keyword an event was declared with.
type EventKind int

const (
	KindDeposition EventKind = iota
	KindErosion
	KindIntrusion
)

func (k EventKind) String() string {
	switch k {
	case KindDeposition:
		return "DEPOSITION"
	case KindErosion:
		return "EROSION"
	case KindIntrusion:
		return "INTRUSION"
	}
	return "EventKind(" + strconv.Itoa(int(k)) + ")"
}

// Event is implemented by *DepositionEvent, *ErosionEvent and *IntrusionEvent
// only.
type Event interface {
	isEvent()
	Kind() EventKind
	EventID() string
	EventTime() TimeValue
	Dependencies() []string
	Loc() *SourceLocation
}

// RockProducer is an event that creates a rock body and therefore a surface.
type RockProducer interface {
	Event
	RockRef() string
}

type DepositionEvent struct {
	ID       string
	RockID   string
	Time     TimeValue
	After    []string
	Location *SourceLocation
}

type ErosionEvent struct {
	ID       string
	Time     TimeValue
	After    []string
	Location *SourceLocation
}

type IntrusionEvent struct {
	ID       string
	RockID   string
	Style    IntrusionStyle
	Time     TimeValue
	After    []string
	Location *SourceLocation
}

func (*DepositionEvent) isEvent() {}
func (*ErosionEvent) isEvent()    {}
func (*IntrusionEvent) isEvent()  {}

func (*DepositionEvent) Kind() EventKind { return KindDeposition }
func (*ErosionEvent) Kind() EventKind    { return KindErosion }
func (*IntrusionEvent) Kind() EventKind  { return KindIntrusion }

func (e *DepositionEvent) EventID() string { return e.ID }
func (e *ErosionEvent) EventID() string    { return e.ID }
func (e *IntrusionEvent) EventID() string  { return e.ID }

func (e *DepositionEvent) EventTime() TimeValue { return e.Time }
func (e *ErosionEvent) EventTime() TimeValue    { return e.Time }
func (e *IntrusionEvent) EventTime() TimeValue  { return e.Time }

func (e *DepositionEvent) Dependencies() []string { return e.After }
func (e *ErosionEvent) Dependencies() []string    { return e.After }
func (e *IntrusionEvent) Dependencies() []string  { return e.After }

func (e *DepositionEvent) Loc() *SourceLocation { return e.Location }
func (e *ErosionEvent) Loc() *SourceLocation    { return e.Location }
func (e *IntrusionEvent) Loc() *SourceLocation  { return e.Location }

func (e *DepositionEvent) RockRef() string { return e.RockID }
func (e *IntrusionEvent) RockRef() string  { return e.RockID }

// describe returns "KIND id", the form used in diagnostics.
func describe(e Event) string {
	return e.Kind().String() + " " + e.EventID()
}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// Program is the root of a parsed DSL document. Statements are grouped by
// kind; source order is kept within each group.
type Program struct {
	Rocks       []*RockDefinition
	Depositions []*DepositionEvent
	Erosions    []*ErosionEvent
	Intrusions  []*IntrusionEvent
}

// AllEvents returns depositions, then erosions, then intrusions.
func (p *Program) AllEvents() []Event {
	out := make([]Event, 0, len(p.Depositions)+len(p.Erosions)+len(p.Intrusions))
	for _, e := range p.Depositions {
		out = append(out, e)
	}
	for _, e := range p.Erosions {
		out = append(out, e)
	}
	for _, e := range p.Intrusions {
		out = append(out, e)
	}
	return out
}

// RockProducers returns depositions then intrusions.
func (p *Program) RockProducers() []RockProducer {
	out := make([]RockProducer, 0, len(p.Depositions)+len(p.Intrusions))
	for _, e := range p.Depositions {
		out = append(out, e)
	}
	for _, e := range p.Intrusions {
		out = append(out, e)
	}
	return out
}

// RockIDs returns the set of defined rock ids.
func (p *Program) RockIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(p.Rocks))
	for _, r := range p.Rocks {
		ids[r.ID] = struct{}{}
	}
	return ids
}

// EventIDs returns the set of defined event ids.
func (p *Program) EventIDs() map[string]struct{} {
	events := p.AllEvents()
	ids := make(map[string]struct{}, len(events))
	for _, e := range events {
		ids[e.EventID()] = struct{}{}
	}
	return ids
}

// AllIDs returns rock and event ids together.
func (p *Program) AllIDs() map[string]struct{} {
	ids := p.RockIDs()
	for id := range p.EventIDs() {
		ids[id] = struct{}{}
	}
	return ids
}

// Rock looks a rock up by id. With duplicate ids the last definition wins.
func (p *Program) Rock(id string) (*RockDefinition, bool) {
	var found *RockDefinition
	for _, r := range p.Rocks {
		if r.ID == id {
			found = r
		}
	}
	return found, found != nil
}

// Event looks an event up by id. With duplicate ids the last one in
// AllEvents order wins.
func (p *Program) Event(id string) (Event, bool) {
	var found Event
	for _, e := range p.AllEvents() {
		if e.EventID() == id {
			found = e
		}
	}
	return found, found != nil
}

// Len is the number of statements in the program.
func (p *Program) Len() int {
	return len(p.Rocks) + len(p.Depositions) + len(p.Erosions) + len(p.Intrusions)
}

// WithoutLocations returns a deep copy with every location cleared and empty
// slices normalised to nil.
func (p *Program) WithoutLocations() *Program {
	out := &Program{}
	for _, r := range p.Rocks {
		c := *r
		c.Location = nil
		out.Rocks = append(out.Rocks, &c)
	}
	for _, e := range p.Depositions {
		c := *e
		c.Location = nil
		c.After = cloneIDs(e.After)
		out.Depositions = append(out.Depositions, &c)
	}
	for _, e := range p.Erosions {
		c := *e
		c.Location = nil
		c.After = cloneIDs(e.After)
		out.Erosions = append(out.Erosions, &c)
	}
	for _, e := range p.Intrusions {
		c := *e
		c.Location = nil
		c.After = cloneIDs(e.After)
		out.Intrusions = append(out.Intrusions, &c)
	}
	return out
}

func cloneIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return append([]string(nil), ids...)
}

// Equal compares two programs field by field, ignoring source locations.
func Equal(a, b *Program) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a.WithoutLocations(), b.WithoutLocations())
}
