package state

import "maps"

// SearchTerms returns a copy of the search terms.
func (s *State) SearchTerms() map[string]string {
	return maps.Clone(s.search)
}

// SetSearchTerm sets the search term for field. An empty term removes it.
func (s *State) SetSearchTerm(field, term string) {
	old, had := s.search[field]
	switch {
	case term == "" && !had:
		return
	case term == "":
		delete(s.search, field)
	case had && old == term:
		return
	default:
		s.search[field] = term
	}
	s.searchChanged()
}

// ClearSearch removes every search term.
func (s *State) ClearSearch() {
	if len(s.search) == 0 {
		return
	}
	clear(s.search)
	s.searchChanged()
}

func (s *State) searchChanged() {
	s.clearExpansions()
	terms := s.SearchTerms()
	s.d.each(func(h Hooks) {
		if h.OnSearch != nil {
			h.OnSearch(terms)
		}
	})
	s.d.persist("search")
}
