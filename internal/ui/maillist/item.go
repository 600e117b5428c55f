package maillist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/reconcile"
	"github.com/nhle/mailterm/internal/theme"
)

// MessageItem wraps a model.MessageSummary so it can be used in a
// bubbles/list.
type MessageItem struct {
	Message model.MessageSummary
}

func (i MessageItem) FilterValue() string { return i.Message.Subject }
func (i MessageItem) Title() string       { return i.Message.Subject }
func (i MessageItem) Description() string { return i.Message.Sender }

// ItemDelegate implements list.ItemDelegate for message rows.
type ItemDelegate struct {
	// selection is shared with the owning view so checks show immediately.
	selection *reconcile.Selection
	now       func() time.Time
}

func (d ItemDelegate) Height() int                             { return 1 }
func (d ItemDelegate) Spacing() int                            { return 0 }
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws one message row: checkbox, unread marker, sender, subject
// and date.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mi, ok := item.(MessageItem)
	if !ok {
		return
	}
	msg := mi.Message
	isCursor := index == m.Index()

	check := "[ ]"
	if d.selection != nil && d.selection.Has(msg.ID) {
		check = theme.CheckedStyle.Render("[x]")
	}

	marker := "●"
	textStyle := theme.UnreadStyle
	if msg.Read {
		marker = " "
		textStyle = theme.ReadStyle
	}

	now := time.Now()
	if d.now != nil {
		now = d.now()
	}
	date := FormatDate(msg.Date, now)

	width := m.Width() - 4
	const senderWidth = 22
	const dateWidth = 12
	subjectWidth := width - senderWidth - dateWidth - 8
	if subjectWidth < 10 {
		subjectWidth = 10
	}

	sender := pad(truncate(SenderName(msg.Sender), senderWidth), senderWidth)
	subject := pad(truncate(msg.Subject, subjectWidth), subjectWidth)
	dateStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Width(dateWidth).
		Align(lipgloss.Right).
		Render(truncate(date, dateWidth))

	line := fmt.Sprintf("%s %s %s %s %s",
		check, marker, textStyle.Render(sender), textStyle.Render(subject), dateStr)

	if isCursor {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}
