package state

import "slices"

// SortOrder returns a copy of the sort order.
func (s *State) SortOrder() []Sort {
	return slices.Clone(s.sortOrder)
}

// SortDirection returns the direction field is sorted in, if any.
func (s *State) SortDirection(field string) (Direction, bool) {
	i := s.sortIndex(field)
	if i < 0 {
		return "", false
	}
	return s.sortOrder[i].Dir, true
}

func (s *State) sortIndex(field string) int {
	return slices.IndexFunc(s.sortOrder, func(o Sort) bool { return o.Field == field })
}

// AddSort appends field to the sort order, or updates its direction if it
// is already sorted. Unknown directions sort ascending.
func (s *State) AddSort(field string, dir Direction) {
	if field == "" {
		return
	}
	if !dir.Valid() {
		dir = Ascending
	}
	if i := s.sortIndex(field); i >= 0 {
		if s.sortOrder[i].Dir == dir {
			return
		}
		s.sortOrder[i].Dir = dir
	} else {
		s.sortOrder = append(s.sortOrder, Sort{Field: field, Dir: dir})
	}
	s.sortChanged()
}

// ToggleSort cycles field through ascending, descending and unsorted. Unless
// multi is set, every other field is dropped from the order first.
func (s *State) ToggleSort(field string, multi bool) {
	if field == "" {
		return
	}
	i := s.sortIndex(field)
	if !multi {
		var kept []Sort
		if i >= 0 {
			kept = []Sort{s.sortOrder[i]}
			i = 0
		}
		s.sortOrder = kept
	}
	switch {
	case i < 0:
		s.sortOrder = append(s.sortOrder, Sort{Field: field, Dir: Ascending})
	case s.sortOrder[i].Dir == Ascending:
		s.sortOrder[i].Dir = Descending
	default:
		s.sortOrder = slices.Delete(s.sortOrder, i, i+1)
	}
	s.sortChanged()
}

// ClearSort removes every sort.
func (s *State) ClearSort() {
	if len(s.sortOrder) == 0 {
		return
	}
	s.sortOrder = nil
	s.sortChanged()
}

func (s *State) sortChanged() {
	s.clearExpansions()
	order := s.SortOrder()
	s.d.each(func(h Hooks) {
		if h.OnSort != nil {
			h.OnSort(order)
		}
	})
	s.d.persist("sort")
}
