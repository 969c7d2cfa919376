// Package state is the view state machine of the table: the row window,
// expansions, sort order, search terms, selection, filter count and loading
// flags, together with the hooks fired when any of them changes.
//
// A State is not safe for concurrent use. The engine mutates it from a single
// executor goroutine; hooks run on that goroutine too.
package state

import (
	"maps"
	"slices"

	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/log"
	"github.com/clawscli/mesa/internal/window"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}

// Sort is one entry of the sort order.
type Sort struct {
	Field string    `yaml:"field"`
	Dir   Direction `yaml:"dir"`
}

// State is the composite view state.
type State struct {
	offset        int
	limit         int
	limitResolved bool
	rowHeight     float64

	heights     *window.Heights
	sortOrder   []Sort
	search      map[string]string
	selected    map[string]struct{}
	filterCount int
	columns     []dataset.Column

	loading bool
	loadErr error

	d dispatcher
}

// New returns a freshly reset state for rowCount rows.
func New(rowCount int) *State {
	s := &State{
		heights:  window.NewHeights(),
		search:   make(map[string]string),
		selected: make(map[string]struct{}),
	}
	s.resetFields(rowCount)
	return s
}

// Subscribe registers hooks and returns a function that removes them.
func (s *State) Subscribe(h Hooks) func() {
	return s.d.subscribe(h)
}

// SetPersister sets the persister used after sort, search and column
// changes. A nil persister disables persistence.
func (s *State) SetPersister(p Persister) {
	s.d.persister = p
}

func (s *State) resetFields(rowCount int) {
	s.offset = 0
	s.heights.Clear()
	s.sortOrder = nil
	clear(s.search)
	s.filterCount = max(rowCount, 0)
}

// Reset clears offset, expansions, sort order and search terms in one step
// and sets the filter count to rowCount. Loading flags, selection, columns
// and the measured row height are kept.
func (s *State) Reset(rowCount int) {
	s.resetFields(rowCount)
	log.Debug("view state reset", "rows", s.filterCount)
	s.d.each(func(h Hooks) {
		if h.OnReset != nil {
			h.OnReset()
		}
	})
}

// ReplaceColumns installs a copy of cols and resets the state.
func (s *State) ReplaceColumns(cols []dataset.Column, rowCount int) {
	s.columns = dataset.CopyColumns(cols)
	s.Reset(rowCount)
	s.d.each(func(h Hooks) {
		if h.OnColumns != nil {
			h.OnColumns()
		}
	})
	s.d.persist("columns")
}

// Columns returns a copy of the current columns.
func (s *State) Columns() []dataset.Column {
	return dataset.CopyColumns(s.columns)
}

// Offset returns the first visible row.
func (s *State) Offset() int {
	return s.offset
}

// SetOffset stores a new offset clamped to [0, max(0, filterCount-1)] and
// returns the stored value.
func (s *State) SetOffset(offset int) int {
	offset = min(max(offset, 0), max(0, s.filterCount-1))
	if offset == s.offset {
		return offset
	}
	s.offset = offset
	s.d.each(func(h Hooks) {
		if h.OnOffset != nil {
			h.OnOffset(offset)
		}
	})
	return offset
}

// Limit returns the rendered row count and whether it has been resolved.
func (s *State) Limit() (int, bool) {
	return s.limit, s.limitResolved
}

// SetLimit stores a resolved row limit.
func (s *State) SetLimit(limit int) {
	limit = max(limit, 0)
	if s.limitResolved && s.limit == limit {
		return
	}
	s.limit = limit
	s.limitResolved = true
	s.d.each(func(h Hooks) {
		if h.OnLimit != nil {
			h.OnLimit(limit)
		}
	})
}

// Window returns the current row window. The limit is zero until resolved.
func (s *State) Window() window.Window {
	return window.Window{Offset: s.offset, Limit: s.limit}
}

// RowHeight returns the measured row height, or 0 when none was measured.
func (s *State) RowHeight() float64 {
	return s.rowHeight
}

// SetRowHeight records a measured row height and reports whether it changed.
func (s *State) SetRowHeight(h float64) bool {
	if h < 0 || h != h {
		h = 0
	}
	if h == s.rowHeight {
		return false
	}
	s.rowHeight = h
	return true
}

// Heights returns the registry of expanded rows. Callers must not mutate it.
func (s *State) Heights() *window.Heights {
	return s.heights
}

// FilterCount returns the number of rows surviving filters.
func (s *State) FilterCount() int {
	return s.filterCount
}

// SetFilterCount updates the filter count, drops expansions past the new
// bound and clamps the offset.
func (s *State) SetFilterCount(n int) {
	n = max(n, 0)
	if n == s.filterCount {
		return
	}
	s.filterCount = n
	if dropped := s.heights.Prune(n); dropped > 0 {
		log.Debug("dropped expansions past filter count", "count", n, "dropped", dropped)
	}
	if upper := max(0, n-1); s.offset > upper {
		s.offset = upper
	}
	s.d.each(func(h Hooks) {
		if h.OnFilterCount != nil {
			h.OnFilterCount(n)
		}
	})
}

// Expand marks row as expanded with a detail panel of the given extra
// height. Expanding an already expanded row updates its height. Rows outside
// [0, filterCount) are ignored and false is returned.
func (s *State) Expand(row int, height float64) bool {
	if row < 0 || row >= s.filterCount {
		return false
	}
	s.heights.Set(row, height)
	s.fireExpand(row, true)
	return true
}

// SetExpandedHeight updates the height of an already expanded row.
func (s *State) SetExpandedHeight(row int, height float64) bool {
	if !s.heights.Has(row) {
		return false
	}
	if s.heights.Get(row) == max(height, 0) {
		return false
	}
	s.heights.Set(row, height)
	s.fireExpand(row, true)
	return true
}

// Collapse removes row's expansion.
func (s *State) Collapse(row int) bool {
	if !s.heights.Has(row) {
		return false
	}
	s.heights.Delete(row)
	s.fireExpand(row, false)
	return true
}

// ToggleExpanded expands a collapsed row or collapses an expanded one and
// reports whether the row is expanded afterwards.
func (s *State) ToggleExpanded(row int, height float64) bool {
	if s.heights.Has(row) {
		s.Collapse(row)
		return false
	}
	return s.Expand(row, height)
}

// IsExpanded reports whether row is expanded.
func (s *State) IsExpanded(row int) bool {
	return s.heights.Has(row)
}

func (s *State) fireExpand(row int, expanded bool) {
	above := row < s.offset
	s.d.each(func(h Hooks) {
		if h.OnExpand != nil {
			h.OnExpand(row, expanded, above)
		}
	})
}

// row indices refer to other rows once sort or search changes
func (s *State) clearExpansions() {
	s.heights.Clear()
}

// Loading reports whether a data load is in flight.
func (s *State) Loading() bool {
	return s.loading
}

// LoadingErr returns the error of the last failed load.
func (s *State) LoadingErr() error {
	return s.loadErr
}

// SetLoading sets the loading flag.
func (s *State) SetLoading(loading bool) {
	if s.loading == loading {
		return
	}
	s.loading = loading
	s.fireLoading()
}

// FinishLoading clears the loading flag. A non-nil err is recorded as the
// loading error and logged; nil clears any previous error.
func (s *State) FinishLoading(err error) {
	s.loadErr = err
	s.loading = false
	if err != nil {
		log.Warn("failed loading table data", "error", err)
	}
	s.fireLoading()
}

func (s *State) fireLoading() {
	loading, err := s.loading, s.loadErr
	s.d.each(func(h Hooks) {
		if h.OnLoading != nil {
			h.OnLoading(loading, err)
		}
	})
}

// Snapshot is a detached copy of the state.
type Snapshot struct {
	Window        window.Window
	LimitResolved bool
	RowHeight     float64
	FilterCount   int
	Expanded      map[int]float64
	SortOrder     []Sort
	SearchTerms   map[string]string
	Selected      []string
	Columns       []dataset.Column
	Loading       bool
	LoadingErr    error
}

// Snapshot copies the state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Window:        s.Window(),
		LimitResolved: s.limitResolved,
		RowHeight:     s.rowHeight,
		FilterCount:   s.filterCount,
		Expanded:      s.heights.Snapshot(),
		SortOrder:     s.SortOrder(),
		SearchTerms:   maps.Clone(s.search),
		Selected:      s.Selected(),
		Columns:       s.Columns(),
		Loading:       s.loading,
		LoadingErr:    s.loadErr,
	}
}

// IsExpanded reports whether row was expanded when the snapshot was taken.
func (s Snapshot) IsExpanded(row int) bool {
	_, ok := s.Expanded[row]
	return ok
}

// IsSelected reports whether key was selected when the snapshot was taken.
func (s Snapshot) IsSelected(key string) bool {
	_, found := slices.BinarySearch(s.Selected, key)
	return found
}

