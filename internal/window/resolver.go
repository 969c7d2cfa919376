package window

import "math"

// ResolveOffset maps a scroll position to the first visible row index.
//
// scrollTop must already be reduced by the configured row padding. Only rows
// below filterCount are considered expanded; filterCount itself is appended as
// a terminal entry so the walk ends even with nothing expanded, and runs in
// time proportional to the number of expanded rows.
//
// The second result is false when rowHeight is not positive (not yet
// measured); callers must leave their state untouched in that case.
func ResolveOffset(scrollTop, rowHeight float64, filterCount int, heights *Heights) (int, bool) {
	if rowHeight <= 0 || math.IsNaN(rowHeight) {
		return 0, false
	}
	if filterCount <= 0 {
		return 0, true
	}

	stops := make([]int, 0, heights.Len()+1)
	for _, row := range heights.Rows() {
		if row < filterCount {
			stops = append(stops, row)
		}
	}
	stops = append(stops, filterCount)

	var running float64
	cursor := 0
	for _, e := range stops {
		span := float64(e-cursor) * rowHeight
		if running+span >= scrollTop {
			cursor += int(math.Floor((scrollTop - running) / rowHeight))
			break
		}
		running += span
		// the expanded panel of e displaces everything after it
		running += heights.Get(e)
		cursor = e
		if running >= scrollTop {
			// never split an expanded panel from above
			cursor--
			break
		}
	}

	return clampOffset(cursor, filterCount), true
}

func clampOffset(offset, filterCount int) int {
	upper := max(0, filterCount-1)
	if offset > upper {
		offset = upper
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// ContentHeight returns the full height of filterCount rows plus every
// registered expansion below filterCount.
func ContentHeight(rowHeight float64, filterCount int, heights *Heights) float64 {
	if filterCount <= 0 || rowHeight <= 0 {
		return 0
	}
	total := float64(filterCount) * rowHeight
	for _, row := range heights.Rows() {
		if row < filterCount {
			total += heights.Get(row)
		}
	}
	return total
}

// RowTop returns the position of row's top edge: the rows above it plus the
// panels of every expanded row above it.
func RowTop(row int, rowHeight float64, heights *Heights) float64 {
	if row <= 0 || rowHeight <= 0 {
		return 0
	}
	top := float64(row) * rowHeight
	for _, r := range heights.Rows() {
		if r >= row {
			break
		}
		top += heights.Get(r)
	}
	return top
}
