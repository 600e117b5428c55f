package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/nhle/mailterm/internal/model"
)

// Project filters snapshot by query and orders the result newest first.
// The query matches subject, sender and content case-insensitively; an
// empty query matches everything. Messages with unparseable dates sort
// after dated ones, and ties keep their snapshot order. snapshot is not
// modified.
func Project(snapshot []model.MessageSummary, query string) []model.MessageSummary {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]model.MessageSummary, 0, len(snapshot))
	for _, m := range snapshot {
		if q == "" || matches(m, q) {
			out = append(out, m)
		}
	}

	type keyed struct {
		ok bool
		at time.Time
	}
	keys := make([]keyed, len(out))
	idx := make([]int, len(out))
	for i := range out {
		idx[i] = i
		t, ok := model.ParseDate(out[i].Date)
		keys[i] = keyed{ok: ok, at: t}
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		return ka.at.After(kb.at)
	})

	sorted := make([]model.MessageSummary, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

func matches(m model.MessageSummary, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(m.Subject), lowerQuery) ||
		strings.Contains(strings.ToLower(m.Sender), lowerQuery) ||
		strings.Contains(strings.ToLower(m.Content), lowerQuery)
}

// PageCount returns the number of pages for n items, never less than one.
func PageCount(n, size int) int {
	if size < 1 {
		size = 1
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage moves page into [1, PageCount(n, size)].
func ClampPage(page, n, size int) int {
	if page < 1 {
		return 1
	}
	if last := PageCount(n, size); page > last {
		return last
	}
	return page
}

// Paginate returns the items of the given 1-based page after clamping it,
// along with the clamped page number.
func Paginate(projection []model.MessageSummary, page, size int) ([]model.MessageSummary, int) {
	if size < 1 {
		size = 1
	}
	page = ClampPage(page, len(projection), size)
	start := (page - 1) * size
	if start >= len(projection) {
		return nil, page
	}
	end := start + size
	if end > len(projection) {
		end = len(projection)
	}
	return projection[start:end], page
}
