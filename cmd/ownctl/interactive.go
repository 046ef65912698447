package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/owned"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxHistory = 8

type operation struct {
	name      string
	needInput bool
	apply     func(m *playgroundModel, p *Point) error
}

var operations = []operation{
	{name: "make A", needInput: true, apply: func(m *playgroundModel, p *Point) error {
		return m.a.Assign(owned.NewWithDeleter(p, m.deleter("A")))
	}},
	{name: "make B", needInput: true, apply: func(m *playgroundModel, p *Point) error {
		return m.b.Assign(owned.NewWithDeleter(p, m.deleter("B")))
	}},
	{name: "reset A", needInput: true, apply: func(m *playgroundModel, p *Point) error {
		return m.a.ResetWithDeleter(p, m.deleter("A"))
	}},
	{name: "swap A <-> B", apply: func(m *playgroundModel, _ *Point) error {
		m.a.Swap(m.b)
		return nil
	}},
	{name: "move B -> A", apply: func(m *playgroundModel, _ *Point) error {
		return m.a.Assign(m.b)
	}},
	{name: "move A -> B", apply: func(m *playgroundModel, _ *Point) error {
		return m.b.Assign(m.a)
	}},
	{name: "release A", apply: func(m *playgroundModel, _ *Point) error {
		if r := m.a.Release(); r != nil {
			m.record(fmt.Sprintf("released %+v, nothing destroyed", *r))
		}
		return nil
	}},
	{name: "close A", apply: func(m *playgroundModel, _ *Point) error {
		return m.a.Close()
	}},
	{name: "close B", apply: func(m *playgroundModel, _ *Point) error {
		return m.b.Close()
	}},
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInput
)

type playgroundModel struct {
	err      error
	a, b     *owned.Pointer[Point]
	history  []string
	input    textinput.Model
	selected int
	state    modelState
}

func newPlaygroundModel() *playgroundModel {
	return &playgroundModel{
		a:     new(owned.Pointer[Point]),
		b:     new(owned.Pointer[Point]),
		state: stateSelectOp,
	}
}

// deleter reports every destruction in the history pane.
func (m *playgroundModel) deleter(slot string) owned.DeleterFunc[Point] {
	return func(p *Point) error {
		m.record(fmt.Sprintf("deleter %s destroyed %+v", slot, *p))
		return nil
	}
}

func (m *playgroundModel) record(line string) {
	m.history = append(m.history, line)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

func (m *playgroundModel) Init() tea.Cmd {
	return nil
}

func (m *playgroundModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c":
		return m, m.quit()

	case "q":
		if m.state == stateSelectOp {
			return m, m.quit()
		}

	case "up", "k":
		if m.state == stateSelectOp && m.selected > 0 {
			m.selected--
			return m, nil
		}

	case "down", "j":
		if m.state == stateSelectOp && m.selected < len(operations)-1 {
			m.selected++
			return m, nil
		}

	case "enter":
		op := operations[m.selected]
		switch m.state {
		case stateSelectOp:
			if op.needInput {
				m.input = textinput.New()
				m.input.Placeholder = "x,y"
				m.input.Prompt = op.name + ": "
				m.input.Width = 20
				m.input.Focus()
				m.state = stateInput
				return m, textinput.Blink
			}
			m.err = op.apply(m, nil)
		case stateInput:
			p, err := parsePoint(m.input.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = op.apply(m, p)
			m.state = stateSelectOp
		}
		return m, nil

	case "esc":
		if m.state == stateInput {
			m.state = stateSelectOp
			return m, nil
		}
	}

	if m.state == stateInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// quit destroys whatever the slots still own before leaving.
func (m *playgroundModel) quit() tea.Cmd {
	m.a.Close()
	m.b.Close()
	return tea.Quit
}

func parsePoint(s string) (*Point, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return nil, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return nil, fmt.Errorf("parse x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return nil, fmt.Errorf("parse y: %w", err)
	}
	return &Point{X: x, Y: y}, nil
}

func (m *playgroundModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Ownership Playground"))
	b.WriteString("\n\n")
	b.WriteString(renderSlot("A", m.a))
	b.WriteString(renderSlot("B", m.b))
	b.WriteString("\n")

	switch m.state {
	case stateSelectOp:
		for i, op := range operations {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + op.name))
			} else {
				b.WriteString("  " + op.name)
			}
			b.WriteString("\n")
		}
	case stateInput:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	for _, line := range m.history {
		b.WriteString(resultStyle.Render(line))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.state == stateInput {
		b.WriteString(helpStyle.Render("enter apply • esc back"))
	} else {
		b.WriteString(helpStyle.Render("↑/↓ select • enter apply • q quit"))
	}
	return b.String()
}

func renderSlot(name string, p *owned.Pointer[Point]) string {
	if !p.Valid() {
		return fmt.Sprintf("%s: %s\n", name, emptyStyle.Render("empty"))
	}
	return fmt.Sprintf("%s: %s\n", name, slotStyle.Render(fmt.Sprintf("%+v @ %p", p.Value(), p.Get())))
}

func runInteractive() error {
	p := tea.NewProgram(newPlaygroundModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
