package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailterm/internal/keys"
	"github.com/nhle/mailterm/internal/theme"
)

// viewKeys lists only the bindings that apply to the current view, so the
// trash shows restore and the inbox shows archive.
type viewKeys struct {
	k     *keys.KeyMap
	trash bool
}

func (v viewKeys) ShortHelp() []key.Binding {
	return v.k.ShortHelp()
}

func (v viewKeys) FullHelp() [][]key.Binding {
	actions := []key.Binding{v.k.Toggle, v.k.SelectAll}
	if v.trash {
		del := key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete forever"))
		actions = append(actions, v.k.Restore, del)
	} else {
		actions = append(actions, v.k.Archive, v.k.Delete)
	}
	actions = append(actions, v.k.MarkRead)

	return [][]key.Binding{
		{v.k.Up, v.k.Down, v.k.NextPage, v.k.PrevPage, v.k.Select, v.k.Back},
		{v.k.Categories, v.k.Trash, v.k.Search, v.k.Refresh, v.k.Command},
		actions,
		{v.k.Compose, v.k.Help, v.k.Logout, v.k.Quit},
	}
}

// Model is the help overlay view.
type Model struct {
	keys   viewKeys
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(k *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   viewKeys{k: k},
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetTrash switches between the trash and inbox action sets.
func (m *Model) SetTrash(trash bool) {
	m.keys.trash = trash
}

// View renders the help overlay.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	note := theme.HelpStyle.MarginTop(1).Render(
		"Bulk actions apply to checked messages. Press ? or esc to close.",
	)

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.help.View(m.keys), note)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
