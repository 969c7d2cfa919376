package dataset

import (
	"slices"
	"strconv"
	"strings"
)

// Sort is one key of a multi-column sort.
type Sort struct {
	Field      string
	Descending bool
}

// Apply filters rows by search terms (case-insensitive substring per field)
// and stable-sorts them by the given keys. The input slice is not modified.
// Values that parse as numbers on both sides compare numerically.
func Apply(rows []Row, search map[string]string, sorts []Sort, get Getter) []Row {
	if get == nil {
		get = DefaultGetter()
	}

	terms := make(map[string]string, len(search))
	for field, term := range search {
		if term = strings.TrimSpace(term); term != "" {
			terms[field] = strings.ToLower(term)
		}
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if matches(row, terms, get) {
			out = append(out, row)
		}
	}

	if len(sorts) > 0 {
		slices.SortStableFunc(out, func(a, b Row) int {
			for _, s := range sorts {
				c := compareValues(get(a, s.Field), get(b, s.Field))
				if s.Descending {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}
	return out
}

func matches(row Row, terms map[string]string, get Getter) bool {
	for field, term := range terms {
		if !strings.Contains(strings.ToLower(get(row, field)), term) {
			return false
		}
	}
	return true
}

func compareValues(a, b string) int {
	if fa, err := strconv.ParseFloat(a, 64); err == nil {
		if fb, err := strconv.ParseFloat(b, 64); err == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(a, b)
}
