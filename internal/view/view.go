package view

import (
	tea "charm.land/bubbletea/v2"

	"github.com/clawscli/mesa/internal/dataset"
)

// SearchPlaceholder is the placeholder text for the search input
const SearchPlaceholder = "search..."

// View is the interface for all views in the application
type View interface {
	tea.Model

	// SetSize updates the view dimensions
	SetSize(width, height int) tea.Cmd

	// StatusLine returns the status line text for this view
	StatusLine() string

	// ViewString returns the view content as a string (for internal composition)
	ViewString() string
}

// InputCapture is an optional interface for views that capture input
type InputCapture interface {
	// HasActiveInput returns true if the view has active input (search, etc.)
	HasActiveInput() bool
}

// StateChangedMsg is sent after the engine finished a state transition.
// Reason names the hook that fired (reset, offset, sort, ...).
type StateChangedMsg struct {
	Reason string
}

// DataLoadedMsg carries the dataset loaded from the configured sources
type DataLoadedMsg struct {
	Columns []dataset.Column
	Rows    []dataset.Row
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// IsEscKey returns true if the key message represents an escape key press.
// This handles various terminal escape sequences consistently across views.
// In v2, we use msg.Code and tea.KeyEscape.
func IsEscKey(msg tea.KeyPressMsg) bool {
	return msg.String() == "esc" || msg.Code == tea.KeyEscape
}
