package maillist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailterm/internal/keys"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/reconcile"
	"github.com/nhle/mailterm/internal/theme"
)

// OpenMessageMsg asks to read a message.
type OpenMessageMsg struct {
	ID string
}

// SearchMsg replaces the search query. An empty query clears the search.
type SearchMsg struct {
	Query string
}

// ToggleMsg flips the selection of one message.
type ToggleMsg struct {
	ID string
}

// ToggleAllMsg selects every match or clears the selection.
type ToggleAllMsg struct{}

// BulkMsg requests a bulk action on the selection.
type BulkMsg struct {
	Kind reconcile.MutationKind
}

// PageMsg moves by Delta pages.
type PageMsg struct {
	Delta int
}

// RefreshMsg asks to refresh the current view.
type RefreshMsg struct{}

// Content is what the list shows. The app builds it from a reconcile.View.
type Content struct {
	Key       model.ViewKey
	Items     []model.MessageSummary
	Selection *reconcile.Selection
	State     reconcile.State
	Err       string
	Query     string
}

// Model is the message list view component.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	content     Content
	searchMode  bool
	searchInput textinput.Model
	spinner     spinner.Model
	width       int
	height      int
}

// New creates a new message list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-1)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)

	si := textinput.New()
	si.Placeholder = "search subject, sender, content..."
	si.Prompt = "/ "
	si.Width = width - 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		list:        l,
		keys:        k,
		searchInput: si,
		spinner:     sp,
		width:       width,
		height:      height,
	}
}

// Init starts the loading spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// SetContent replaces the rows while keeping the cursor in range.
func (m *Model) SetContent(c Content) {
	m.content = c
	m.list.SetDelegate(ItemDelegate{selection: c.Selection})

	idx := m.list.Index()
	items := make([]list.Item, len(c.Items))
	for i, msg := range c.Items {
		items[i] = MessageItem{Message: msg}
	}
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx < 0 {
		idx = 0
	}
	m.list.Select(idx)
}

// ResetCursor moves the cursor to the first row.
func (m *Model) ResetCursor() {
	m.list.Select(0)
}

// Current returns the message under the cursor.
func (m Model) Current() (model.MessageSummary, bool) {
	item, ok := m.list.SelectedItem().(MessageItem)
	if !ok {
		return model.MessageSummary{}, false
	}
	return item.Message, true
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		query := m.searchInput.Value()
		return m, emit(SearchMsg{Query: query})

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		return m, emit(SearchMsg{})
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys maps keys to intents. The app applies them to the view.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	trash := m.content.Key.IsTrash()

	switch {
	case key.Matches(msg, m.keys.Select):
		if cur, ok := m.Current(); ok {
			return m, emit(OpenMessageMsg{ID: cur.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.content.Query)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Back):
		if m.content.Query != "" {
			m.searchInput.Reset()
			return m, emit(SearchMsg{})
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if cur, ok := m.Current(); ok {
			return m, emit(ToggleMsg{ID: cur.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.SelectAll):
		return m, emit(ToggleAllMsg{})

	case key.Matches(msg, m.keys.Archive):
		if trash {
			return m, nil
		}
		return m, emit(BulkMsg{Kind: reconcile.Archive})

	case key.Matches(msg, m.keys.Delete):
		if trash {
			return m, emit(BulkMsg{Kind: reconcile.PermanentDelete})
		}
		return m, emit(BulkMsg{Kind: reconcile.Delete})

	case key.Matches(msg, m.keys.Restore):
		if !trash {
			return m, nil
		}
		return m, emit(BulkMsg{Kind: reconcile.Restore})

	case key.Matches(msg, m.keys.MarkRead):
		return m, emit(BulkMsg{Kind: reconcile.MarkRead})

	case key.Matches(msg, m.keys.NextPage):
		return m, emit(PageMsg{Delta: 1})

	case key.Matches(msg, m.keys.PrevPage):
		return m, emit(PageMsg{Delta: -1})

	case key.Matches(msg, m.keys.Refresh):
		return m, emit(RefreshMsg{})
	}

	// Delegate to the list for cursor movement.
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the message list view.
func (m Model) View() string {
	var body string
	switch {
	case m.content.State == reconcile.StateFailed && len(m.content.Items) == 0:
		body = m.renderCentered(
			theme.ErrorStyle.Render(m.content.Err) + "\n\npress r to retry",
		)
	case (m.content.State == reconcile.StateLoading || m.content.State == reconcile.StateIdle) &&
		len(m.content.Items) == 0:
		body = m.renderCentered(m.spinner.View() + " Loading messages...")
	case len(m.content.Items) == 0:
		body = m.renderEmptyState()
	default:
		body = m.list.View()
	}

	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, body)
	}
	if m.content.Query != "" {
		query := theme.HelpStyle.Padding(0, 1).
			Render(fmt.Sprintf("search: %q  (esc to clear)", m.content.Query))
		return lipgloss.JoinVertical(lipgloss.Left, query, body)
	}
	return body
}

// renderEmptyState shows guidance text when the page has no rows.
func (m Model) renderEmptyState() string {
	if m.content.Query != "" {
		return m.renderCentered(fmt.Sprintf("No results for %q.", m.content.Query))
	}
	return m.renderCentered("No messages in this category.\n\nPress r to refresh.")
}

func (m Model) renderCentered(s string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-1).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(s)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
	m.searchInput.Width = width - 4
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
