package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/theme"
)

// SubmitMsg carries the identity entered in the form.
type SubmitMsg struct {
	User model.User
}

// CancelMsg is dispatched when the user aborts sign-in.
type CancelMsg struct{}

type formBindings struct {
	name  string
	email string
}

// Model is the sign-in screen shown when no session exists. Google sign-in
// runs from the command line; this form covers accounts the backend already
// knows by address.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	err    string
	width  int
	height int
}

// New creates the sign-in screen.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start builds a fresh form. errText, when set, is shown above it, e.g.
// after a failed connect.
func (m *Model) Start(errText string) tea.Cmd {
	m.err = errText
	m.fb.name = ""
	m.fb.email = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("optional").
				Value(&m.fb.name),
			huh.NewInput().
				Title("Email").
				Placeholder("you@gmail.com").
				Value(&m.fb.email).
				Validate(ValidateEmail),
		),
	).WithWidth(m.formWidth())
	return m.form.Init()
}

// Init returns the form's initial command.
func (m Model) Init() tea.Cmd {
	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

// Update handles messages for the sign-in form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		u := model.User{
			Name:  strings.TrimSpace(m.fb.name),
			Email: strings.TrimSpace(m.fb.email),
		}
		m.form = nil
		return m, func() tea.Msg { return SubmitMsg{User: u} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the sign-in screen.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render("Sign in to mailterm")
	hint := theme.HelpStyle.
		MarginBottom(1).
		Render("Or run `mailterm login --google` to sign in with Google.")

	parts := []string{title, hint}
	if m.err != "" {
		parts = append(parts, theme.ErrorStyle.MarginBottom(1).Render(m.err))
	}
	if m.form != nil {
		parts = append(parts, m.form.View())
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 72 {
		w = 72
	}
	return w
}

// ValidateEmail accepts a single bare address.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("Email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("enter a plain address like you@gmail.com")
	}
	return nil
}
