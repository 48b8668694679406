package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/postal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	modeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(16)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type mode int

const (
	modeExpand mode = iota
	modeParse
)

func (m mode) String() string {
	if m == modeParse {
		return "parse"
	}
	return "expand"
}

type interactiveModel struct {
	err        error
	ctx        *postal.Context
	input      textinput.Model
	address    string
	langs      []string
	expansions []string
	components []postal.Component
	mode       mode
}

type queryResultMsg struct {
	err        error
	address    string
	expansions []string
	components []postal.Component
}

func newInteractiveModel(ctx *postal.Context, langs []string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "1234 Main St, Podunk TX 55555"
	ti.Prompt = "address: "
	ti.Width = 60
	ti.Focus()

	m := &interactiveModel{ctx: ctx, input: ti, langs: langs}
	if !ctx.ExpandEnabled() && ctx.ParseEnabled() {
		m.mode = modeParse
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab":
			if m.mode == modeExpand {
				m.mode = modeParse
			} else {
				m.mode = modeExpand
			}
			return m, nil

		case "enter":
			address := strings.TrimSpace(m.input.Value())
			if address == "" {
				return m, nil
			}
			return m, m.runQuery(address, m.mode)
		}

	case queryResultMsg:
		m.address = msg.address
		m.err = msg.err
		m.expansions = msg.expansions
		m.components = msg.components
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) runQuery(address string, md mode) tea.Cmd {
	return func() tea.Msg {
		res := queryResultMsg{address: address}
		if md == modeParse {
			res.components, res.err = m.ctx.Parse(address)
		} else {
			res.expansions, res.err = m.ctx.Expand(address, m.langs...)
		}
		return res
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("postal"))
	b.WriteString(" ")
	b.WriteString(modeStyle.Render(m.mode.String()))
	if m.mode == modeExpand && len(m.langs) > 0 {
		b.WriteString(" [" + strings.Join(m.langs, ",") + "]")
	}
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.address != "" {
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		case m.expansions != nil:
			for _, e := range m.expansions {
				b.WriteString(resultStyle.Render(e))
				b.WriteString("\n")
			}
		case m.components != nil:
			for _, c := range m.components {
				b.WriteString(labelStyle.Render(c.Label))
				b.WriteString(resultStyle.Render(c.Value))
				b.WriteString("\n")
			}
		default:
			b.WriteString(helpStyle.Render("no results"))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter run • tab expand/parse • esc quit"))
	return b.String()
}

func runInteractive(ctx *postal.Context, langs []string) error {
	p := tea.NewProgram(newInteractiveModel(ctx, langs), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
