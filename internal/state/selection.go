package state

import (
	"maps"
	"slices"
)

// Selected returns the selected row keys in sorted order.
func (s *State) Selected() []string {
	return slices.Sorted(maps.Keys(s.selected))
}

// IsSelected reports whether key is selected.
func (s *State) IsSelected(key string) bool {
	_, ok := s.selected[key]
	return ok
}

// Select adds key to the selection.
func (s *State) Select(key string) {
	if s.IsSelected(key) {
		return
	}
	s.selected[key] = struct{}{}
	s.selectionChanged()
}

// Deselect removes key from the selection.
func (s *State) Deselect(key string) {
	if !s.IsSelected(key) {
		return
	}
	delete(s.selected, key)
	s.selectionChanged()
}

// ToggleSelect flips the selection of key.
func (s *State) ToggleSelect(key string) {
	if s.IsSelected(key) {
		s.Deselect(key)
		return
	}
	s.Select(key)
}

// IsSelectedAll reports whether every key is selected. It is false for an
// empty key set.
func (s *State) IsSelectedAll(keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !s.IsSelected(k) {
			return false
		}
	}
	return true
}

// SelectAll adds every key to the selection.
func (s *State) SelectAll(keys []string) {
	changed := false
	for _, k := range keys {
		if _, ok := s.selected[k]; !ok {
			s.selected[k] = struct{}{}
			changed = true
		}
	}
	if changed {
		s.selectionChanged()
	}
}

// DeselectAll empties the selection.
func (s *State) DeselectAll() {
	if len(s.selected) == 0 {
		return
	}
	clear(s.selected)
	s.selectionChanged()
}

// ToggleSelectAll deselects everything when all keys are selected and
// selects all keys otherwise.
func (s *State) ToggleSelectAll(keys []string) {
	if s.IsSelectedAll(keys) {
		s.DeselectAll()
		return
	}
	s.SelectAll(keys)
}

func (s *State) selectionChanged() {
	selected := s.Selected()
	s.d.each(func(h Hooks) {
		if h.OnSelect != nil {
			h.OnSelect(selected)
		}
	})
}
