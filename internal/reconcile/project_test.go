package reconcile

import (
	"testing"

	"github.com/nhle/mailterm/internal/model"
)

func ids(msgs []model.MessageSummary) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProjectOrdersNewestFirst(t *testing.T) {
	snap := []model.MessageSummary{
		{ID: "A", Date: "2024-01-01"},
		{ID: "B", Date: "2024-01-03"},
	}
	got := ids(Project(snap, ""))
	if !equalIDs(got, []string{"B", "A"}) {
		t.Errorf("Project = %v, want [B A]", got)
	}
	if snap[0].ID != "A" {
		t.Error("Project modified its input")
	}
}

func TestProjectOrdersDatesOutsideNanosecondRange(t *testing.T) {
	snap := []model.MessageSummary{
		{ID: "old", Date: "1500-01-01"},
		{ID: "now", Date: "2024-01-01"},
		{ID: "far", Date: "2300-01-01"},
	}
	got := ids(Project(snap, ""))
	if !equalIDs(got, []string{"far", "now", "old"}) {
		t.Errorf("Project = %v, want [far now old]", got)
	}
}

func TestProjectFilterAndStability(t *testing.T) {
	snap := []model.MessageSummary{
		{ID: "1", Subject: "Invoice March", Date: "Mon, 04 Mar 2024 10:00:00 +0000"},
		{ID: "2", Sender: "Billing <INVOICES@shop.example>", Date: "Mon, 04 Mar 2024 10:00:00 +0000"},
		{ID: "3", Content: "your invoice is attached", Date: "garbage"},
		{ID: "4", Subject: "Lunch?", Date: "Tue, 05 Mar 2024 10:00:00 +0000"},
		{ID: "5", Subject: "invoice reminder", Date: "Fri, 01 Mar 2024 09:00:00 +0000"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"invoice", []string{"1", "2", "5", "3"}},
		{"INVOICE", []string{"1", "2", "5", "3"}},
		{"lunch", []string{"4"}},
		{"nothing matches", []string{}},
		{"", []string{"4", "1", "2", "5", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ids(Project(snap, tt.query))
			if !equalIDs(got, tt.want) {
				t.Errorf("Project(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	var proj []model.MessageSummary
	for i := 0; i < 120; i++ {
		proj = append(proj, model.MessageSummary{ID: string(rune('a' + i%26))})
	}

	tests := []struct {
		name     string
		n        int
		page     int
		wantLen  int
		wantPage int
	}{
		{"first page", 120, 1, 50, 1},
		{"last partial page", 120, 3, 20, 3},
		{"past the end clamps", 120, 9, 20, 3},
		{"zero clamps to one", 120, 0, 50, 1},
		{"empty projection", 0, 4, 0, 1},
		{"exact multiple", 100, 3, 50, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, page := Paginate(proj[:tt.n], tt.page, 50)
			if len(items) != tt.wantLen || page != tt.wantPage {
				t.Errorf("Paginate(n=%d, page=%d) = (%d items, page %d), want (%d, %d)",
					tt.n, tt.page, len(items), page, tt.wantLen, tt.wantPage)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct{ n, size, want int }{
		{0, 50, 1},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{7, 0, 7},
	}
	for _, tt := range tests {
		if got := PageCount(tt.n, tt.size); got != tt.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestSelection(t *testing.T) {
	s := NewSelection()
	s.Toggle("a")
	s.Toggle("b")
	if !s.Has("a") || s.Len() != 2 {
		t.Fatalf("after toggles: %v", s.IDs())
	}
	s.Toggle("a")
	if s.Has("a") || s.Len() != 1 {
		t.Errorf("toggle twice did not restore membership: %v", s.IDs())
	}

	s.SelectAll([]string{"x", "y", "x"})
	if !equalIDs(s.IDs(), []string{"x", "y"}) {
		t.Errorf("SelectAll = %v", s.IDs())
	}
	if !s.HasAll([]string{"y", "x"}) {
		t.Error("HasAll false after SelectAll")
	}
	s.Clear()
	if s.Len() != 0 || s.HasAll(nil) {
		t.Errorf("Clear left %v", s.IDs())
	}
}
