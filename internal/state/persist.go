package state

import (
	"maps"
	"slices"

	"github.com/clawscli/mesa/internal/dataset"
)

// ColumnState is the persisted form of one column.
type ColumnState struct {
	ID       string `yaml:"id"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// Persisted is the subset of the state mirrored to an external store.
type Persisted struct {
	Hash        string            `yaml:"hash,omitempty"`
	SortOrder   []Sort            `yaml:"sort_order,omitempty"`
	SearchTerms map[string]string `yaml:"search_terms,omitempty"`
	Columns     []ColumnState     `yaml:"columns,omitempty"`
	RowLimit    int               `yaml:"row_limit,omitempty"`
	BodyHeight  float64           `yaml:"body_height,omitempty"`
}

// Persisted captures the persistable subset of the state.
func (s *State) Persisted() Persisted {
	p := Persisted{
		SortOrder:   s.SortOrder(),
		SearchTerms: maps.Clone(s.search),
		RowLimit:    s.limit,
	}
	for _, c := range s.columns {
		p.Columns = append(p.Columns, ColumnState{ID: c.ID, Disabled: c.Disabled})
	}
	return p
}

// Restore applies a persisted snapshot. Columns are reordered to match the
// persisted order; columns it does not mention keep their relative order at
// the end. Restore fires hooks but does not persist again.
func (s *State) Restore(p Persisted) {
	s.clearExpansions()

	valid := make([]Sort, 0, len(p.SortOrder))
	for _, o := range p.SortOrder {
		if o.Field != "" && o.Dir.Valid() {
			valid = append(valid, o)
		}
	}
	s.sortOrder = valid

	clear(s.search)
	for field, term := range p.SearchTerms {
		if term != "" {
			s.search[field] = term
		}
	}

	if len(p.Columns) > 0 && len(s.columns) > 0 {
		s.columns = reorderColumns(s.columns, p.Columns)
	}

	order, terms := s.SortOrder(), s.SearchTerms()
	s.d.each(func(h Hooks) {
		if h.OnColumns != nil {
			h.OnColumns()
		}
		if h.OnSort != nil {
			h.OnSort(order)
		}
		if h.OnSearch != nil {
			h.OnSearch(terms)
		}
	})
}

func reorderColumns(cols []dataset.Column, saved []ColumnState) []dataset.Column {
	byID := make(map[string]dataset.Column, len(cols))
	for _, c := range cols {
		byID[c.ID] = c
	}
	out := make([]dataset.Column, 0, len(cols))
	used := make(map[string]bool, len(cols))
	for _, cs := range saved {
		c, ok := byID[cs.ID]
		if !ok || used[cs.ID] {
			continue
		}
		c.Disabled = cs.Disabled
		out = append(out, c)
		used[cs.ID] = true
	}
	for _, c := range cols {
		if !used[c.ID] {
			out = append(out, c)
		}
	}
	return slices.Clip(out)
}
