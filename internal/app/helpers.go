package app

import (
	"fmt"

	"github.com/nhle/mailterm/internal/reconcile"
)

// title returns the header text for the current view.
func (m Model) title() string {
	switch m.currentView {
	case ViewLogin:
		return "mailterm"
	case ViewCompose:
		return "mailterm · New message"
	}

	title := "mailterm · " + m.categoryLabel(m.view.Key())
	if n := m.view.Selection().Len(); n > 0 {
		title += fmt.Sprintf(" [%d selected]", n)
	}
	return title
}

// userLabel returns the signed-in user for the header.
func (m Model) userLabel() string {
	u, ok := m.sess.User()
	if !ok {
		return "signed out"
	}
	return u.FromHeader()
}

// counter renders "start-end / total" for the list and reader.
func (m Model) counter() string {
	switch m.currentView {
	case ViewList, ViewDetail:
	default:
		return ""
	}
	if m.view.State() == reconcile.StateLoading {
		return "loading…"
	}
	p := m.view.Page()
	return fmt.Sprintf("%d-%d / %d", p.Start, p.End, p.Total)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter submit | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | j/k scroll | : command"
	case ViewCompose:
		return "enter next | esc cancel"
	case ViewCategories:
		return "enter open | esc back"
	case ViewConfirm:
		return "←/→ choose | enter confirm | esc cancel"
	}

	if m.view.Key().IsTrash() {
		return "q quit | ? help | space select | u restore | d delete forever | c categories"
	}
	return "q quit | ? help | space select | e archive | d delete | / search | c categories | n compose"
}
