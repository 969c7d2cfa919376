package view

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/state"
	"github.com/clawscli/mesa/internal/ui"
	"github.com/clawscli/mesa/internal/window"
)

// ViewString implements View
func (v *TableView) ViewString() string {
	snap := v.engine.Snapshot()
	opts := v.options()

	header := v.renderTitle(snap)
	if v.showSearchLine() {
		header += "\n" + v.renderSearchLine(snap)
	}

	switch {
	case snap.Loading:
		return header + "\n" + v.spinner.View() + " " + opts.LoadingText
	case snap.LoadingErr != nil:
		return header + "\n" + v.styles.danger.Render(fmt.Sprintf("Error: %v", snap.LoadingErr))
	case len(v.filtered) == 0:
		return header + "\n" + v.styles.dim.Render(opts.NoRowsText)
	}

	return header + "\n" + v.renderBody(snap)
}

func (v *TableView) renderTitle(snap state.Snapshot) string {
	countText := fmt.Sprintf(" [%d]", len(v.filtered))
	if len(v.filtered) != len(v.rows) {
		countText = fmt.Sprintf(" [%d/%d]", len(v.filtered), len(v.rows))
	}
	return v.styles.title.Render(v.title) + v.styles.count.Render(countText)
}

func (v *TableView) renderSearchLine(snap state.Snapshot) string {
	if v.searchActive {
		return v.styles.searchBg.Render(v.searchInput.View())
	}
	terms := make([]string, 0, len(snap.SearchTerms))
	for _, col := range snap.Columns {
		if term, ok := snap.SearchTerms[col.ID]; ok {
			terms = append(terms, col.ID+"="+term)
		}
	}
	return v.styles.searchActive.Render("search: " + strings.Join(terms, " ") + "  (c to clear)")
}

// renderBody lays out the window rows with their detail panels and cuts
// the viewport out of them. Lines of rows outside the window stay blank
// until the window catches up with the scroll position.
func (v *TableView) renderBody(snap state.Snapshot) string {
	cols := v.columns(snap)
	start, end := snap.Window.Bounds(len(v.filtered))
	rh, heights := v.geometry(snap)

	widths := v.columnWidths(cols)
	headers := make([]string, len(cols)+1)
	for i, col := range cols {
		headers[i+1] = col.Header() + sortIndicator(snap.SortOrder, col.ID)
	}

	cursor := v.tc.Cursor() - start
	marked := func(row int) bool {
		idx := start + row
		return idx < len(v.filtered) && snap.IsSelected(v.rowKey(v.filtered[idx]))
	}

	t := table.New().
		Headers(headers...).
		Width(v.width).
		Wrap(false).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		BorderStyle(TableBorderStyle()).
		StyleFunc(NewTableStyleFunc(widths, cursor, marked, v.col+1))

	get := v.engine.Getter()
	for i := start; i < end; i++ {
		row := v.filtered[i]
		cells := make([]string, len(cols)+1)
		cells[0] = v.rowMark(snap, i, row)
		for c, col := range cols {
			cells[c+1] = runewidth.Truncate(get(row, col.ID), max(widths[c+1]-1, 1), "…")
		}
		t = t.Row(cells...)
	}

	rendered := strings.Split(t.String(), "\n")
	tableHeader := rendered[:min(2, len(rendered))]
	rowLines := rendered[len(tableHeader):]

	content := make([]string, 0, len(rowLines)+heights.Len()*4)
	for i := start; i < end && i-start < len(rowLines); i++ {
		content = append(content, rowLines[i-start])
		if snap.IsExpanded(i) {
			content = append(content, strings.Split(v.renderDetail(snap, v.filtered[i]), "\n")...)
		}
	}

	body := v.viewportLines(snap)
	skip := v.tc.ScrollTop() - lines(window.RowTop(start, rh, heights))
	viewport := make([]string, 0, body)
	for l := 0; l < body; l++ {
		idx := skip + l
		if idx >= 0 && idx < len(content) {
			viewport = append(viewport, content[idx])
		} else {
			viewport = append(viewport, "")
		}
	}

	return strings.Join(tableHeader, "\n") + "\n" + strings.Join(viewport, "\n")
}

func (v *TableView) columnWidths(cols []dataset.Column) []int {
	widths := make([]int, len(cols)+1)
	widths[0] = markColWidth
	for i, col := range cols {
		w := col.Width
		if w <= 0 {
			w = runewidth.StringWidth(col.Header()) + 2
		}
		widths[i+1] = max(w, minColWidth)
	}
	return widths
}

func (v *TableView) rowMark(snap state.Snapshot, idx int, row dataset.Row) string {
	sel := " "
	if snap.IsSelected(v.rowKey(row)) {
		sel = "●"
	}
	exp := "▸"
	if snap.IsExpanded(idx) {
		exp = "▾"
	}
	return sel + exp
}

func sortIndicator(order []state.Sort, field string) string {
	for i, s := range order {
		if s.Field != field {
			continue
		}
		if len(order) > 1 {
			return fmt.Sprintf(" %s%d", sortArrow(s.Dir), i+1)
		}
		return " " + sortArrow(s.Dir)
	}
	return ""
}

// renderDetail renders the detail panel of row: one line per column.
func (v *TableView) renderDetail(snap state.Snapshot, row dataset.Row) string {
	labelWidth := 0
	for _, col := range snap.Columns {
		labelWidth = max(labelWidth, runewidth.StringWidth(col.Header()))
	}

	maxWidth := max(v.width-8, 10)
	get := v.engine.Getter()
	body := make([]string, 0, len(snap.Columns)+1)
	body = append(body, ui.DimStyle().Render("id ")+row.ID)
	for _, col := range snap.Columns {
		label := runewidth.FillRight(col.Header(), labelWidth)
		line := ui.DimStyle().Render(label) + "  " + get(row, col.ID)
		body = append(body, ansi.Truncate(line, maxWidth, "…"))
	}
	return ui.PanelStyle().Render(strings.Join(body, "\n"))
}
