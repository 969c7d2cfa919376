package window

import (
	"maps"
	"slices"
)

// Heights is the registry of expanded rows and the extra height each
// expanded detail panel displaces. Rows without an entry are collapsed.
type Heights struct {
	extra map[int]float64
}

// NewHeights returns an empty registry.
func NewHeights() *Heights {
	return &Heights{extra: make(map[int]float64)}
}

// HeightsOf builds a registry from a row to extra height mapping, such as
// one returned by Snapshot.
func HeightsOf(extra map[int]float64) *Heights {
	h := NewHeights()
	for row, height := range extra {
		h.Set(row, height)
	}
	return h
}

// Set registers row as expanded with the given extra height.
// Negative heights are stored as zero.
func (h *Heights) Set(row int, height float64) {
	if row < 0 {
		return
	}
	if h.extra == nil {
		h.extra = make(map[int]float64)
	}
	if height < 0 || height != height {
		height = 0
	}
	h.extra[row] = height
}

// Delete removes row from the registry.
func (h *Heights) Delete(row int) {
	delete(h.extra, row)
}

// Get returns the extra height registered for row, or 0.
func (h *Heights) Get(row int) float64 {
	if h == nil {
		return 0
	}
	return h.extra[row]
}

// Has reports whether row is expanded.
func (h *Heights) Has(row int) bool {
	if h == nil {
		return false
	}
	_, ok := h.extra[row]
	return ok
}

// Len returns the number of expanded rows.
func (h *Heights) Len() int {
	if h == nil {
		return 0
	}
	return len(h.extra)
}

// Rows returns the expanded row indices in ascending numeric order.
func (h *Heights) Rows() []int {
	if h == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(h.extra))
}

// Prune drops every entry whose row index is >= limit and returns how many
// entries were removed.
func (h *Heights) Prune(limit int) int {
	if h == nil {
		return 0
	}
	removed := 0
	for row := range h.extra {
		if row >= limit {
			delete(h.extra, row)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (h *Heights) Clear() {
	if h == nil {
		return
	}
	clear(h.extra)
}

// Snapshot returns a copy of the registry contents.
func (h *Heights) Snapshot() map[int]float64 {
	if h == nil {
		return map[int]float64{}
	}
	return maps.Clone(h.extra)
}

