package config

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/state"
	"github.com/clawscli/mesa/internal/store"
)

// storageKeyPattern matches keys usable as INI section names
var storageKeyPattern = regexp.MustCompile(`^[\w\-.:/]+$`)

type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidStorageKey checks that key is non-empty and contains only
// alphanumerics, hyphen, underscore, period, colon and slash.
func IsValidStorageKey(key string) bool {
	if key == "" || len(key) > 128 {
		return false
	}
	return storageKeyPattern.MatchString(key)
}

// Defaults of the table option set.
const (
	DefaultRowPadding       = 300.0
	DefaultBodyHeight       = 300.0
	DefaultRowHeight        = 40.0
	DefaultScrollDebounce   = 100 * time.Millisecond
	DefaultLoadingText      = "loading"
	DefaultNoRowsText       = "no rows"
	DefaultTerminalPadding  = 5.0
	DefaultTerminalDebounce = 50 * time.Millisecond
)

// Options is the table option set the engine is built from.
type Options struct {
	// RowPadding is the extra height rendered above and below the body.
	RowPadding float64
	// BodyHeight is the visible height of the table body.
	BodyHeight float64
	// FixedHeight keeps BodyHeight even when fewer rows are rendered.
	FixedHeight bool
	// FillHeight derives BodyHeight from the space available to the table.
	FillHeight bool
	// DefaultRowHeight is used until a row height has been measured.
	DefaultRowHeight float64
	ScrollDebounce   time.Duration
	// ScrollImmediate also recomputes on the first scroll event of a burst.
	ScrollImmediate bool
	LoadingText     string
	NoRowsText      string
	InitialSorts    []state.Sort
	// Getter names an accessor registered with dataset.RegisterGetter.
	Getter string
	// TrackBy names the field holding a row's stable key.
	TrackBy     string
	StorageKey  string
	StorageHash string

	// Store receives persisted state. Requires StorageKey.
	Store store.Store
	// Loading, when set, is observed once: the table shows the loading state
	// until a value or close arrives. A non-nil error marks the load failed.
	Loading <-chan error
}

// DefaultOptions returns the default option set, measured in pixels.
func DefaultOptions() Options {
	return Options{
		RowPadding:       DefaultRowPadding,
		BodyHeight:       DefaultBodyHeight,
		DefaultRowHeight: DefaultRowHeight,
		ScrollDebounce:   DefaultScrollDebounce,
		LoadingText:      DefaultLoadingText,
		NoRowsText:       DefaultNoRowsText,
	}
}

// TerminalOptions returns defaults for a host that measures in terminal
// lines: one line per row and a body filling the window.
func TerminalOptions() Options {
	o := DefaultOptions()
	o.RowPadding = DefaultTerminalPadding
	o.BodyHeight = 20
	o.DefaultRowHeight = 1
	o.FillHeight = true
	o.ScrollDebounce = DefaultTerminalDebounce
	return o
}

// Validate returns a *ValidationError describing the first invalid option.
func (o Options) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"rowPadding", o.RowPadding},
		{"bodyHeight", o.BodyHeight},
		{"defaultRowHeight", o.DefaultRowHeight},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return &ValidationError{
				Field:   f.name,
				Value:   fmt.Sprint(f.value),
				Message: fmt.Sprintf("%s must be a non-negative number, got %v", f.name, f.value),
			}
		}
	}
	if o.ScrollDebounce < 0 {
		return &ValidationError{
			Field:   "scrollDebounce",
			Value:   o.ScrollDebounce.String(),
			Message: "scrollDebounce must not be negative",
		}
	}
	if o.Store != nil && o.StorageKey == "" {
		return &ValidationError{
			Field:   "storageKey",
			Message: "storage key required when a store is configured",
		}
	}
	if o.StorageKey != "" && !IsValidStorageKey(o.StorageKey) {
		return &ValidationError{
			Field:   "storageKey",
			Value:   o.StorageKey,
			Message: fmt.Sprintf("invalid storage key %q", o.StorageKey),
		}
	}
	if o.Getter != "" {
		if _, err := dataset.LookupGetter(o.Getter); err != nil {
			return &ValidationError{
				Field:   "getter",
				Value:   o.Getter,
				Message: fmt.Sprintf("getter %q is not a registered accessor", o.Getter),
			}
		}
	}
	for _, s := range o.InitialSorts {
		if s.Field == "" || !s.Dir.Valid() {
			return &ValidationError{
				Field:   "initialSorts",
				Value:   fmt.Sprintf("%s:%s", s.Field, s.Dir),
				Message: fmt.Sprintf("invalid initial sort %q %q", s.Field, s.Dir),
			}
		}
	}
	return nil
}

// ResolveGetter returns the accessor named by Getter, or the default getter.
func (o Options) ResolveGetter() (dataset.Getter, error) {
	return dataset.LookupGetter(o.Getter)
}
