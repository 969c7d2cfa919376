package config

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/clawscli/mesa/internal/state"
	"github.com/clawscli/mesa/internal/store"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	if o.RowPadding != 300 {
		t.Errorf("RowPadding = %v, want 300", o.RowPadding)
	}
	if o.BodyHeight != 300 {
		t.Errorf("BodyHeight = %v, want 300", o.BodyHeight)
	}
	if o.DefaultRowHeight != 40 {
		t.Errorf("DefaultRowHeight = %v, want 40", o.DefaultRowHeight)
	}
	if o.ScrollDebounce != 100*time.Millisecond {
		t.Errorf("ScrollDebounce = %v, want 100ms", o.ScrollDebounce)
	}
	if o.FixedHeight || o.FillHeight || o.ScrollImmediate {
		t.Error("boolean options should default to false")
	}
	if o.LoadingText != "loading" || o.NoRowsText != "no rows" {
		t.Errorf("texts = %q/%q", o.LoadingText, o.NoRowsText)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestTerminalOptions(t *testing.T) {
	o := TerminalOptions()
	if o.DefaultRowHeight != 1 {
		t.Errorf("DefaultRowHeight = %v, want 1", o.DefaultRowHeight)
	}
	if !o.FillHeight {
		t.Error("terminal options should fill height")
	}
	if err := o.Validate(); err != nil {
		t.Errorf("terminal options should validate: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		field  string
	}{
		{"negative padding", func(o *Options) { o.RowPadding = -1 }, "rowPadding"},
		{"NaN body height", func(o *Options) { o.BodyHeight = math.NaN() }, "bodyHeight"},
		{"infinite row height", func(o *Options) { o.DefaultRowHeight = math.Inf(1) }, "defaultRowHeight"},
		{"negative debounce", func(o *Options) { o.ScrollDebounce = -time.Second }, "scrollDebounce"},
		{"store without key", func(o *Options) { o.Store = store.NewMemory() }, "storageKey"},
		{"bad key", func(o *Options) { o.StorageKey = "has space" }, "storageKey"},
		{"unknown getter", func(o *Options) { o.Getter = "nope" }, "getter"},
		{"bad sort dir", func(o *Options) { o.InitialSorts = []state.Sort{{Field: "name", Dir: "up"}} }, "initialSorts"},
		{"empty sort field", func(o *Options) { o.InitialSorts = []state.Sort{{Dir: state.Ascending}} }, "initialSorts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.modify(&o)
			err := o.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestOptionsValidate_Accepts(t *testing.T) {
	o := DefaultOptions()
	o.Store = store.NewMemory()
	o.StorageKey = "instances/eu-west-1"
	o.Getter = "lower"
	o.RowPadding = 0
	o.InitialSorts = []state.Sort{{Field: "name", Dir: state.Descending}}
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestResolveGetter(t *testing.T) {
	o := DefaultOptions()
	g, err := o.ResolveGetter()
	if err != nil || g == nil {
		t.Fatalf("default getter: %v", err)
	}
	o.Getter = "missing"
	if _, err := o.ResolveGetter(); err == nil {
		t.Error("unknown getter should fail")
	}
}

func TestIsValidStorageKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"default", true},
		{"table.v2", true},
		{"ns:instances/eu", true},
		{"", false},
		{"with space", false},
		{"semi;colon", false},
		{string(make([]byte, 129)), false},
	}
	for _, tt := range tests {
		if got := IsValidStorageKey(tt.key); got != tt.want {
			t.Errorf("IsValidStorageKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "storageKey", Value: "", Message: "storage key required"}
	if err.Error() != "storage key required" {
		t.Errorf("Error() = %q", err.Error())
	}
}
