package main

import (
	"fmt"
	"strings"

	"geo-tools/cmd/geomodel/dsl"
	"geo-tools/cmd/geomodel/structural"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type appState int

const (
	stateEvents appState = iota
	stateGroups
	stateDetail
)

var (
	styleBase = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	styleOverlay = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(1, 3).
			MarginLeft(2)

	styleOverlayTitle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("214"))
)

// eventRow is one event of the program in chronological order.
type eventRow struct {
	ID       string
	Kind     string
	Rock     string
	Age      string
	After    string
	Group    string
	Relation string
	Source   string
}

// inspection is what the inspect view shows. cfg is nil when the program
// could not be transformed; transformErr then says why.
type inspection struct {
	name         string
	rows         []eventRow
	cfg          *structural.ModelConfig
	transformErr error
	warnings     []string
}

func inspect(name string, prog *dsl.Program, res *dsl.ValidationResult) inspection {
	in := inspection{name: name, warnings: res.Warnings}
	order := make([]string, 0, len(prog.AllEvents()))
	if cfg, err := structural.NewTransformer().Transform(prog, name); err == nil {
		in.cfg = cfg
		order = cfg.EventOrder
	} else {
		in.transformErr = err
		for _, e := range prog.AllEvents() {
			order = append(order, e.EventID())
		}
	}

	for _, id := range order {
		ev, ok := prog.Event(id)
		if !ok {
			continue
		}
		row := eventRow{
			ID:     id,
			Kind:   ev.Kind().String(),
			Age:    "-",
			After:  strings.Join(ev.Dependencies(), ", "),
			Source: strings.TrimRight(dsl.Serialize(single(ev)), "\n"),
		}
		if rp, ok := ev.(dsl.RockProducer); ok {
			row.Rock = rp.RockRef()
			if r, ok := prog.Rock(rp.RockRef()); ok {
				row.Rock += " " + r.Name
			}
		}
		if ma, ok := dsl.AgeMa(ev.EventTime()); ok {
			row.Age = fmt.Sprintf("%g Ma", ma)
		} else if t := ev.EventTime(); t != nil {
			row.Age = t.String()
		}
		if in.cfg != nil {
			if g, ok := in.cfg.GroupOf(id); ok {
				row.Group, row.Relation = g.GroupName, string(g.Relation)
			}
		}
		in.rows = append(in.rows, row)
	}
	return in
}

// single wraps one event in a program so it can be serialized alone.
func single(ev dsl.Event) *dsl.Program {
	p := &dsl.Program{}
	switch e := ev.(type) {
	case *dsl.DepositionEvent:
		p.Depositions = []*dsl.DepositionEvent{e}
	case *dsl.ErosionEvent:
		p.Erosions = []*dsl.ErosionEvent{e}
	case *dsl.IntrusionEvent:
		p.Intrusions = []*dsl.IntrusionEvent{e}
	}
	return p
}

type model struct {
	events table.Model
	groups table.Model
	in     inspection
	state  appState
	// back is the table state to return to from the detail view.
	back appState
}

func newModel(in inspection) model {
	events := newTable([]table.Column{
		{Title: "#", Width: 3},
		{Title: "EVENT", Width: 8},
		{Title: "KIND", Width: 11},
		{Title: "ROCK", Width: 20},
		{Title: "AGE", Width: 12},
		{Title: "GROUP", Width: 16},
		{Title: "RELATION", Width: 9},
	}, eventRows(in.rows))

	groups := newTable([]table.Column{
		{Title: "#", Width: 3},
		{Title: "GROUP", Width: 18},
		{Title: "RELATION", Width: 9},
		{Title: "SURFACES", Width: 40},
	}, groupRows(in.cfg))

	return model{events: events, groups: groups, in: in, state: stateEvents}
}

func newTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("99"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func eventRows(rows []eventRow) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{fmt.Sprintf("%d", i+1), r.ID, r.Kind, r.Rock, r.Age, r.Group, r.Relation}
	}
	return out
}

func groupRows(cfg *structural.ModelConfig) []table.Row {
	if cfg == nil {
		return nil
	}
	out := make([]table.Row, len(cfg.StructuralGroups))
	for i, g := range cfg.StructuralGroups {
		out[i] = table.Row{fmt.Sprintf("%d", g.GroupIndex), g.GroupName, string(g.Relation), strings.Join(g.Surfaces, ", ")}
	}
	return out
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateEvents, stateGroups:
		return m.updateTable(msg)
	case stateDetail:
		return m.updateDetail(msg)
	}
	return m, nil
}

func (m model) updateTable(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.state == stateEvents && m.in.cfg != nil {
				m.state = stateGroups
			} else {
				m.state = stateEvents
			}
			return m, nil
		case "enter":
			if m.state == stateEvents && len(m.in.rows) > 0 {
				m.back, m.state = m.state, stateDetail
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	if m.state == stateGroups {
		m.groups, cmd = m.groups.Update(msg)
	} else {
		m.events, cmd = m.events.Update(msg)
	}
	return m, cmd
}

func (m model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "enter", "backspace":
			m.state = m.back
		}
	}
	return m, nil
}

func (m model) selected() (eventRow, bool) {
	idx := m.events.Cursor()
	if idx < 0 || idx >= len(m.in.rows) {
		return eventRow{}, false
	}
	return m.in.rows[idx], true
}

func (m model) View() string {
	title := styleTitle.Padding(0, 1).Render(fmt.Sprintf("GEOMODEL  [%s]  %d event(s)", m.in.name, len(m.in.rows)))
	status := ""
	if m.in.transformErr != nil {
		status = styleWarn.Padding(0, 1).Render(m.in.transformErr.Error()) + "\n"
	} else if len(m.in.warnings) > 0 {
		status = styleWarn.Padding(0, 1).Render(fmt.Sprintf("%d warning(s): %s", len(m.in.warnings), m.in.warnings[0])) + "\n"
	}

	switch m.state {
	case stateGroups:
		help := styleHelp.Padding(0, 1).Render("↑/↓  navigate    tab  events    q  quit")
		return title + "\n" + styleBase.Render(m.groups.View()) + "\n" + status + help

	case stateDetail:
		var body string
		if r, ok := m.selected(); ok {
			body = styleOverlayTitle.Render(r.Kind+" "+r.ID) + "\n\n" + r.Source
			if r.Group != "" {
				body += "\n\n" + styleKey.Render("group") + " " + r.Group + " (" + r.Relation + ")"
			}
		}
		overlay := styleOverlay.Render(body + "\n\n" + styleHelp.Render("esc  back"))
		return title + "\n" + styleBase.Render(m.events.View()) + "\n" + overlay

	default:
		var help string
		if len(m.in.rows) == 0 {
			help = styleHelp.Padding(0, 1).Render("No events.  q  quit")
		} else {
			help = styleHelp.Padding(0, 1).Render("↑/↓  navigate    enter  details    tab  groups    q  quit")
		}
		return title + "\n" + styleBase.Render(m.events.View()) + "\n" + status + help
	}
}
