package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailterm/internal/keys"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Model is the message reader.
type Model struct {
	message  *model.MessageSummary
	category string
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new reader model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the reader.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the reader.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg {
			return BackMsg{}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the reader.
func (m Model) View() string {
	if m.message == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No message selected")
	}

	return m.viewport.View()
}

// renderContent builds the header block and body for the viewport.
func (m Model) renderContent() string {
	if m.message == nil {
		return ""
	}
	msg := m.message
	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}

	var sections []string

	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Width(wrap)
	sections = append(sections, titleStyle.Render(subject))
	if m.category != "" {
		sections = append(sections, theme.CategoryStyle(m.category).Render(m.category))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	for _, row := range [][2]string{
		{"From:", msg.Sender},
		{"Date:", msg.Date},
	} {
		if row[1] == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("%s  %s",
			metaStyle.Render(row[0]), valStyle.Render(row[1])))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	sections = append(sections, "", sepStyle.Render(strings.Repeat("─", min(wrap, 80))), "")

	body := strings.TrimSpace(msg.Content)
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No content")
	} else {
		body = lipgloss.NewStyle().Width(wrap).Render(body)
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetMessage shows msg. category is the label of its classification.
func (m *Model) SetMessage(msg model.MessageSummary, category string) {
	m.message = &msg
	m.category = category
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// MessageID returns the id of the message being read.
func (m Model) MessageID() string {
	if m.message == nil {
		return ""
	}
	return m.message.ID
}

// SetSize updates the reader dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.message != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
