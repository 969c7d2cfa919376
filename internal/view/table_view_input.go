package view

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

func (v *TableView) handleKeyPress(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if v.searchActive {
		return v.handleSearchInput(msg)
	}

	n := len(v.filtered)
	switch msg.String() {
	case "j", "down":
		return v.moveCursor(v.tc.Cursor() + 1)
	case "k", "up":
		return v.moveCursor(v.tc.Cursor() - 1)
	case "ctrl+d", "pgdown":
		return v.moveCursor(v.tc.Cursor() + v.tc.BodyHeight()/2)
	case "ctrl+u", "pgup":
		return v.moveCursor(v.tc.Cursor() - v.tc.BodyHeight()/2)
	case "g", "home":
		return v.moveCursor(0)
	case "G", "end":
		return v.moveCursor(n - 1)
	case "h", "left":
		v.col--
		v.clampColumn(v.engine.Snapshot())
		return v, nil
	case "l", "right":
		v.col++
		v.clampColumn(v.engine.Snapshot())
		return v, nil
	case "enter":
		return v.handleToggleDetail()
	case "/":
		return v.handleOpenSearch()
	case "c":
		return v.handleClearSearch()
	case "s":
		return v.handleSort(false)
	case "S":
		return v.handleSort(true)
	case "space":
		return v.handleSelect()
	case "a":
		return v.handleSelectAll()
	case "A":
		v.engine.DeselectAll()
		return v, nil
	}
	return v, nil
}

func (v *TableView) moveCursor(row int) (tea.Model, tea.Cmd) {
	v.tc.SetCursor(row, len(v.filtered))
	return v, v.followCursor()
}

func (v *TableView) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	delta := 0
	switch msg.Button {
	case tea.MouseWheelUp:
		delta = -wheelDelta
	case tea.MouseWheelDown:
		delta = wheelDelta
	}
	if delta == 0 {
		return v, nil
	}
	v.tc.Scroll(delta, v.contentHeight(v.engine.Snapshot()))
	return v, v.notify()
}

// handleToggleDetail opens or closes the detail panel of the cursor row.
// The panel height is measured from its rendering before it is registered.
func (v *TableView) handleToggleDetail() (tea.Model, tea.Cmd) {
	cursor := v.tc.Cursor()
	if cursor < 0 || cursor >= len(v.filtered) {
		return v, nil
	}
	snap := v.engine.Snapshot()
	if snap.IsExpanded(cursor) {
		v.engine.Collapse(cursor)
		return v, v.notify()
	}
	panel := v.renderDetail(snap, v.filtered[cursor])
	v.engine.Expand(cursor, float64(lipgloss.Height(panel)))
	if err := v.engine.Sync(v.ctx); err != nil {
		return v, nil
	}
	return v, v.followCursor()
}

func (v *TableView) handleOpenSearch() (tea.Model, tea.Cmd) {
	col, ok := v.cursorColumn(v.engine.Snapshot())
	if !ok {
		return v, nil
	}
	v.searchActive = true
	v.searchInput.Prompt = col.Header() + " /"
	v.searchInput.SetValue(v.engine.Snapshot().SearchTerms[col.ID])
	v.searchInput.Focus()
	v.layout()
	return v, textinput.Blink
}

func (v *TableView) handleSearchInput(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if IsEscKey(msg) || msg.String() == "enter" {
		v.searchActive = false
		v.searchInput.Blur()
		v.layout()
		return v, nil
	}

	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	if col, ok := v.cursorColumn(v.engine.Snapshot()); ok {
		v.engine.SetSearchTerm(col.ID, v.searchInput.Value())
	}
	return v, cmd
}

func (v *TableView) handleClearSearch() (tea.Model, tea.Cmd) {
	v.searchInput.SetValue("")
	v.engine.ClearSearch()
	if err := v.engine.Sync(v.ctx); err != nil {
		return v, nil
	}
	v.layout()
	return v, nil
}

func (v *TableView) handleSort(multi bool) (tea.Model, tea.Cmd) {
	col, ok := v.cursorColumn(v.engine.Snapshot())
	if !ok || !col.Sortable {
		return v, nil
	}
	v.engine.ToggleSort(col.ID, multi)
	return v, nil
}

func (v *TableView) handleSelect() (tea.Model, tea.Cmd) {
	cursor := v.tc.Cursor()
	if cursor < 0 || cursor >= len(v.filtered) {
		return v, nil
	}
	v.engine.ToggleSelect(v.rowKey(v.filtered[cursor]))
	return v, nil
}

func (v *TableView) handleSelectAll() (tea.Model, tea.Cmd) {
	if len(v.filtered) == 0 {
		return v, nil
	}
	keys := make([]string, 0, len(v.filtered))
	for _, row := range v.filtered {
		keys = append(keys, v.rowKey(row))
	}
	v.engine.ToggleSelectAll(keys)
	return v, nil
}
