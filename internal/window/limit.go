package window

import "math"

// RowLimit returns how many rows cover a body of bodyHeight plus one padding
// worth of rows above and below it. The second result is false while either
// measurement is missing.
func RowLimit(bodyHeight, rowHeight, padding float64) (int, bool) {
	if rowHeight <= 0 || bodyHeight <= 0 || math.IsNaN(rowHeight) || math.IsNaN(bodyHeight) {
		return 0, false
	}
	if padding < 0 {
		padding = 0
	}
	return int(math.Ceil((bodyHeight + 2*padding) / rowHeight)), true
}

// EffectiveRowHeight picks the measured row height when one was observed and
// falls back to the configured default otherwise. It returns 0 when neither
// is usable.
func EffectiveRowHeight(measured, fallback float64) float64 {
	if measured > 0 {
		return measured
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}

// Window is the rendered row range [Offset, Offset+Limit).
type Window struct {
	Offset int
	Limit  int
}

// Bounds clamps the window to a dataset of total rows and returns the
// half-open slice bounds.
func (w Window) Bounds(total int) (start, end int) {
	if total <= 0 {
		return 0, 0
	}
	start = min(max(w.Offset, 0), total)
	end = min(start+max(w.Limit, 0), total)
	return start, end
}
