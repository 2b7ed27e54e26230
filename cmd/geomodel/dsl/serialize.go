package dsl

import (
	"io"
	"strings"
)

// Serialize renders p as DSL text: rocks first, then depositions, erosions
// and intrusions. Comments and original formatting are not preserved.
func Serialize(p *Program) string {
	var lines []string
	for _, r := range p.Rocks {
		lines = append(lines, rockStatement(r))
	}
	if len(p.Rocks) > 0 && len(p.AllEvents()) > 0 {
		lines = append(lines, "")
	}
	for _, e := range p.AllEvents() {
		lines = append(lines, eventStatement(e))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Write serializes p to w.
func Write(w io.Writer, p *Program) error {
	_, err := io.WriteString(w, Serialize(p))
	return err
}

func statement(keyword, id string, props []string) string {
	if len(props) == 0 {
		return keyword + " " + id + " [ ]"
	}
	return keyword + " " + id + " [ " + strings.Join(props, "; ") + " ]"
}

func rockStatement(r *RockDefinition) string {
	props := []string{
		"name: " + quote(r.Name),
		"type: " + r.Type.String(),
	}
	if r.Age != nil {
		props = append(props, "age: "+timeLiteral(r.Age))
	}
	return statement(kwRock, r.ID, props)
}

func eventStatement(e Event) string {
	var props []string
	switch ev := e.(type) {
	case *DepositionEvent:
		if ev.RockID != "" {
			props = append(props, "rock: "+ev.RockID)
		}
	case *IntrusionEvent:
		if ev.RockID != "" {
			props = append(props, "rock: "+ev.RockID)
		}
		if ev.Style != StyleUnset {
			props = append(props, "style: "+ev.Style.String())
		}
	}
	if t := e.EventTime(); t != nil {
		props = append(props, "time: "+timeLiteral(t))
	}
	if deps := e.Dependencies(); len(deps) > 0 {
		props = append(props, "after: "+strings.Join(deps, ", "))
	}
	return statement(e.Kind().String(), e.EventID(), props)
}

// timeLiteral renders t in a form Parse reads back as the same value.
func timeLiteral(t TimeValue) string {
	switch v := t.(type) {
	case AbsoluteTime:
		return v.String()
	case EpochTime:
		return quote(v.Name)
	case UnknownTime:
		return `"?"`
	}
	return ""
}
