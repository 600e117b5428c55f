package categories

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailterm/internal/keys"
	"github.com/nhle/mailterm/internal/model"
)

func TestChooserEndsWithTrash(t *testing.T) {
	cats := model.DefaultCategories()
	m := New(cats, keys.DefaultKeyMap(), 40, 20)

	items := m.list.Items()
	if len(items) != len(cats)+1 {
		t.Fatalf("items = %d, want %d", len(items), len(cats)+1)
	}
	last := items[len(items)-1].(categoryItem)
	if last.cat.Value != model.TrashView {
		t.Errorf("last item = %q, want trash", last.cat.Value)
	}
}

func TestEnterSelectsCurrentItem(t *testing.T) {
	cats := model.DefaultCategories()
	m := New(cats, keys.DefaultKeyMap(), 40, 20)
	m.SetCurrent(model.TrashView)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	sel, ok := cmd().(SelectMsg)
	if !ok {
		t.Fatalf("got %T, want SelectMsg", cmd())
	}
	if sel.Key != model.TrashView {
		t.Errorf("selected %q, want trash", sel.Key)
	}
}

func TestEscCloses(t *testing.T) {
	m := New(model.DefaultCategories(), keys.DefaultKeyMap(), 40, 20)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(CloseMsg); !ok {
		t.Errorf("got %T, want CloseMsg", cmd())
	}
}
