package reconcile

// Selection is the set of checked message ids. IDs keeps the order in
// which they were checked.
type Selection struct {
	ids   map[string]struct{}
	order []string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle adds id when absent and removes it when present.
func (s *Selection) Toggle(id string) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

// SelectAll replaces the selection with ids.
func (s *Selection) SelectAll(ids []string) {
	s.Clear()
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			continue
		}
		s.ids[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
	s.order = nil
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// HasAll reports whether every id in ids is selected. It is false for an
// empty ids.
func (s *Selection) HasAll(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

func (s *Selection) Len() int {
	return len(s.order)
}

// IDs returns a copy of the selected ids.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// retain drops ids that are not in keep.
func (s *Selection) retain(keep map[string]bool) {
	kept := s.order[:0]
	for _, id := range s.order {
		if keep[id] {
			kept = append(kept, id)
			continue
		}
		delete(s.ids, id)
	}
	s.order = kept
}
