package categories

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailterm/internal/keys"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/theme"
)

// SelectMsg asks the app to switch to a view.
type SelectMsg struct {
	Key model.ViewKey
}

// CloseMsg closes the chooser without switching.
type CloseMsg struct{}

type categoryItem struct {
	cat model.Category
}

func (i categoryItem) FilterValue() string { return i.cat.Label }

type itemDelegate struct {
	current *model.ViewKey
}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	item, ok := li.(categoryItem)
	if !ok {
		return
	}

	marker := "  "
	if d.current != nil && *d.current == item.cat.Value {
		marker = "• "
	}
	label := theme.CategoryStyle(item.cat.Label).Render(item.cat.Label)
	line := marker + label

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// Model is the category chooser.
type Model struct {
	list    list.Model
	keys    *keys.KeyMap
	current *model.ViewKey
	width   int
	height  int
}

// New builds a chooser over cats followed by the trash.
func New(cats []model.Category, k *keys.KeyMap, width, height int) Model {
	current := new(model.ViewKey)

	items := make([]list.Item, 0, len(cats)+1)
	for _, c := range cats {
		items = append(items, categoryItem{cat: c})
	}
	items = append(items, categoryItem{cat: model.Category{Label: "Trash", Value: model.TrashView}})

	l := list.New(items, itemDelegate{current: current}, width, height-2)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)

	return Model{
		list:    l,
		keys:    k,
		current: current,
		width:   width,
		height:  height,
	}
}

// SetCurrent marks key as the active view and moves the cursor to it.
func (m *Model) SetCurrent(key model.ViewKey) {
	*m.current = key
	for i, it := range m.list.Items() {
		if it.(categoryItem).cat.Value == key {
			m.list.Select(i)
			return
		}
	}
}

// Update handles messages for the chooser.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(categoryItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return SelectMsg{Key: item.cat.Value} }
		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Categories):
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the chooser.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Padding(0, 1).
		MarginBottom(1).
		Render("Categories")
	return lipgloss.JoinVertical(lipgloss.Left, title, m.list.View())
}

// SetSize updates the chooser dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
