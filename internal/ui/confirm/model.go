// Package confirm asks a yes/no question before an irreversible action.
package confirm

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailterm/internal/theme"
)

// ResultMsg reports the answer. Aborting the form counts as no.
type ResultMsg struct {
	Tag       string
	Confirmed bool
}

// Model wraps a single huh confirm field.
type Model struct {
	form   *huh.Form
	answer *bool
	tag    string
	width  int
}

// New creates an idle confirm model.
func New(width int) Model {
	return Model{answer: new(bool), width: width}
}

// Ask builds the prompt. tag is echoed back in the ResultMsg.
func (m *Model) Ask(tag, title, description, affirmative string) tea.Cmd {
	m.tag = tag
	*m.answer = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative(affirmative).
				Negative("Cancel").
				Value(m.answer),
		),
	).WithKeyMap(cancelKeyMap()).WithWidth(m.formWidth())
	return m.form.Init()
}

// Active reports whether a question is open.
func (m Model) Active() bool {
	return m.form != nil
}

// Update handles messages for the prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted, huh.StateAborted:
		res := ResultMsg{
			Tag:       m.tag,
			Confirmed: m.form.State == huh.StateCompleted && *m.answer,
		}
		m.form = nil
		return m, func() tea.Msg { return res }
	}
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(
		theme.BorderStyle.Padding(0, 1).Render(m.form.View()),
	)
}

// SetSize updates the prompt width.
func (m *Model) SetSize(width int) {
	m.width = width
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 30 {
		w = 30
	}
	if w > 72 {
		w = 72
	}
	return w
}

// cancelKeyMap lets esc abort the form. ctrl+c stays with the app.
func cancelKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return km
}
