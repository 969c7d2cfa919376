package view

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/clawscli/mesa/internal/ui"
)

// NewTableStyleFunc returns a StyleFunc for lipgloss/table that applies
// consistent styling: header row with TableHeader colors, the cursor row
// with Selection colors, marked rows in the Marked color and normal rows
// with Text color. The header of activeCol, the column sort and search keys
// act on, is rendered in the Accent color. Pre-computes styles for each
// column to avoid per-cell allocations.
func NewTableStyleFunc(widths []int, cursor int, marked func(row int) bool, activeCol int) func(row, col int) lipgloss.Style {
	th := ui.Current()
	numCols := len(widths)

	headerStyles := make([]lipgloss.Style, numCols)
	selectedStyles := make([]lipgloss.Style, numCols)
	markedStyles := make([]lipgloss.Style, numCols)
	normalStyles := make([]lipgloss.Style, numCols)

	for col, w := range widths {
		base := ui.NoStyle().Width(w)
		if col == 0 {
			base = base.PaddingLeft(1)
		}
		headerStyles[col] = base.Bold(true).Foreground(th.TableHeaderText).Background(th.TableHeader)
		if col == activeCol {
			headerStyles[col] = headerStyles[col].Foreground(th.Accent)
		}
		selectedStyles[col] = base.Foreground(th.SelectionText).Background(th.Selection)
		markedStyles[col] = base.Foreground(th.Marked)
		normalStyles[col] = base.Foreground(th.Text)
	}

	return func(row, col int) lipgloss.Style {
		if col >= numCols {
			return ui.NoStyle()
		}
		switch {
		case row == table.HeaderRow:
			return headerStyles[col]
		case row == cursor:
			return selectedStyles[col]
		case marked != nil && marked(row):
			return markedStyles[col]
		default:
			return normalStyles[col]
		}
	}
}

// TableBorderStyle returns a style for table borders using the current theme.
func TableBorderStyle() lipgloss.Style {
	return ui.BorderStyle()
}
