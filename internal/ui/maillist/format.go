package maillist

import (
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailterm/internal/model"
)

// FormatDate renders a message date relative to now: the time for today,
// "Yesterday", the weekday within a week, "2 Jan" within the year, and
// "2 Jan 2006" otherwise. Unparseable dates are returned unchanged.
func FormatDate(raw string, now time.Time) string {
	t, ok := model.ParseDate(raw)
	if !ok {
		return raw
	}
	t = t.In(now.Location())

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case day.Equal(today):
		return t.Format("15:04")
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case day.After(today.AddDate(0, 0, -7)) && day.Before(today):
		return t.Format("Monday")
	case t.Year() == now.Year():
		return t.Format("2 Jan")
	default:
		return t.Format("2 Jan 2006")
	}
}

// SenderName returns the display name of a sender, falling back to the
// address and then to the raw string.
func SenderName(sender string) string {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return ""
	}
	addr, err := mail.ParseAddress(sender)
	if err != nil {
		return sender
	}
	if addr.Name != "" {
		return addr.Name
	}
	return addr.Address
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// pad right-pads s with spaces to n runes.
func pad(s string, n int) string {
	l := len([]rune(s))
	if l >= n {
		return s
	}
	return s + strings.Repeat(" ", n-l)
}
