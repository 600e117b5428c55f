package model

import (
	"strings"
	"time"
)

// ViewKey identifies the server-side scope of a message list: a category
// value, AllView for every message, or TrashView for soft-deleted messages.
type ViewKey string

const (
	AllView   ViewKey = "all"
	TrashView ViewKey = "trash"
)

// IsTrash reports whether the key names the trash pseudo-category.
func (k ViewKey) IsTrash() bool {
	return strings.EqualFold(string(k), string(TrashView))
}

// MessageSummary is the client-side record for one message in a list.
type MessageSummary struct {
	// ID is unique within a snapshot.
	ID string `json:"id"`

	// Sender is either "Name <addr>" or a raw address string.
	Sender string `json:"sender"`

	Subject string `json:"subject"`

	// Date is kept as the server sent it. It is parsed only for ordering
	// and display.
	Date string `json:"date"`

	// Read is false on every fetch and only ever set locally.
	Read bool `json:"read"`

	// Category is the server classification (predicted_class).
	Category string `json:"category"`

	// Content is the optional body text.
	Content string `json:"content,omitempty"`
}

// dateLayouts are tried in order by ParseDate. They cover RFC 5322 Date
// headers as relayed by the backend and ISO timestamps.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a message date string. The boolean is false when no
// known layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
