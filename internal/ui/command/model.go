package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailterm/internal/theme"
)

// Name identifies a palette command.
type Name string

const (
	Refresh  Name = "refresh"
	Trash    Name = "trash"
	Inbox    Name = "inbox"
	Category Name = "category"
	Compose  Name = "compose"
	Logout   Name = "logout"
	Help     Name = "help"
	Quit     Name = "quit"
)

var names = []Name{Refresh, Trash, Inbox, Category, Compose, Logout, Help, Quit}

// CommandMsg is emitted when the user executes a valid command.
type CommandMsg struct {
	Name Name
	Arg  string
}

// ErrorMsg is emitted when the input does not parse.
type ErrorMsg struct {
	Err error
}

// Parse turns palette input into a command. Only category takes an
// argument, which may contain spaces.
func Parse(input string) (CommandMsg, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return CommandMsg{}, fmt.Errorf("empty command")
	}

	word, arg, _ := strings.Cut(input, " ")
	word = strings.ToLower(word)
	arg = strings.TrimSpace(arg)
	if word == "q" {
		word = string(Quit)
	}

	for _, n := range names {
		if string(n) != word {
			continue
		}
		if n == Category && arg == "" {
			return CommandMsg{}, fmt.Errorf("usage: category <value>")
		}
		if n != Category && arg != "" {
			return CommandMsg{}, fmt.Errorf("%s takes no argument", n)
		}
		return CommandMsg{Name: n, Arg: arg}, nil
	}
	return CommandMsg{}, fmt.Errorf("unknown command %q", word)
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "refresh, trash, inbox, category <value>, compose, logout, quit"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	suggestions := make([]string, len(names))
	for i, n := range names {
		suggestions[i] = string(n)
	}
	ti.SetSuggestions(suggestions)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		raw := m.input.Value()
		m.input.Reset()
		if strings.TrimSpace(raw) == "" {
			return m, nil
		}
		parsed, err := Parse(raw)
		if err != nil {
			return m, func() tea.Msg { return ErrorMsg{Err: err} }
		}
		return m, func() tea.Msg { return parsed }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Command Palette")

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.input.View())

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.input.Reset()
	return m.input.Focus()
}
