package view

import (
	"context"
	"fmt"
	"math"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/clawscli/mesa/internal/config"
	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/engine"
	"github.com/clawscli/mesa/internal/scroll"
	"github.com/clawscli/mesa/internal/state"
	"github.com/clawscli/mesa/internal/ui"
	"github.com/clawscli/mesa/internal/window"
)

const (
	markColWidth = 3
	minColWidth  = 6
	wheelDelta   = 3
)

// tableViewStyles holds cached lipgloss styles for performance
type tableViewStyles struct {
	title        lipgloss.Style
	count        lipgloss.Style
	searchBg     lipgloss.Style
	searchActive lipgloss.Style
	dim          lipgloss.Style
	danger       lipgloss.Style
}

func newTableViewStyles() tableViewStyles {
	return tableViewStyles{
		title:        ui.TitleStyle(),
		count:        ui.DimStyle(),
		searchBg:     ui.InputFieldStyle(),
		searchActive: ui.HighlightStyle().Italic(true),
		dim:          ui.DimStyle(),
		danger:       ui.DangerStyle(),
	}
}

// scrollSettledMsg is sent when the window caught up with a scroll burst
type scrollSettledMsg struct {
	settlement *scroll.Settlement
	offset     int
}

// TableView renders the rows inside the engine's window. Everything outside
// [offset, offset+limit) is never laid out.
type TableView struct {
	ctx    context.Context
	engine *engine.Engine
	title  string

	tc  TableCursor
	col int

	rows     []dataset.Row
	filtered []dataset.Row
	// sort and search the filtered slice was built for
	queryKey string
	stale    bool

	width    int
	height   int
	measured bool

	searchInput  textinput.Model
	searchActive bool

	spinner  spinner.Model
	ticking  bool
	awaiting *scroll.Settlement

	styles tableViewStyles
}

var (
	_ View         = (*TableView)(nil)
	_ InputCapture = (*TableView)(nil)
)

// NewTableView creates a table over eng. Rows arrive later through a
// DataLoadedMsg.
func NewTableView(ctx context.Context, eng *engine.Engine, title string) *TableView {
	ti := textinput.New()
	ti.Placeholder = SearchPlaceholder
	ti.Prompt = "/"
	ti.CharLimit = 100

	return &TableView{
		ctx:         ctx,
		engine:      eng,
		title:       title,
		searchInput: ti,
		spinner:     ui.NewSpinner(),
		styles:      newTableViewStyles(),
	}
}

// Init implements tea.Model
func (v *TableView) Init() tea.Cmd {
	v.ticking = true
	return v.spinner.Tick
}

// Update implements tea.Model
func (v *TableView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DataLoadedMsg:
		return v.handleDataLoaded(msg)
	case StateChangedMsg:
		return v.handleStateChanged()
	case scrollSettledMsg:
		if msg.settlement == v.awaiting {
			v.awaiting = nil
		}
		return v, nil
	case spinner.TickMsg:
		if !v.engine.Snapshot().Loading {
			v.ticking = false
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	case tea.KeyPressMsg:
		return v.handleKeyPress(msg)
	case tea.MouseWheelMsg:
		return v.handleMouseWheel(msg)
	}
	return v, nil
}

func (v *TableView) handleDataLoaded(msg DataLoadedMsg) (tea.Model, tea.Cmd) {
	v.rows = msg.Rows
	v.filtered = msg.Rows
	v.stale = true
	v.tc.SetCursor(0, len(v.rows))
	v.tc.SetScrollTop(0, 0)
	v.engine.SetData(msg.Columns, len(msg.Rows))
	return v, v.notify()
}

func (v *TableView) handleStateChanged() (tea.Model, tea.Cmd) {
	snap := v.engine.Snapshot()
	v.refilter(snap)
	v.clampColumn(snap)

	var cmds []tea.Cmd
	if snap.Loading && !v.ticking {
		v.ticking = true
		cmds = append(cmds, v.spinner.Tick)
	}
	return v, tea.Batch(cmds...)
}

// refilter rebuilds the filtered rows when the sort order or the search
// terms differ from the ones they were built for.
func (v *TableView) refilter(snap state.Snapshot) {
	key := queryKey(snap)
	if !v.stale && key == v.queryKey {
		return
	}
	v.stale = false
	v.queryKey = key
	v.filtered = dataset.Apply(v.rows, snap.SearchTerms, datasetSorts(snap.SortOrder), v.engine.Getter())
	v.tc.SetCursor(v.tc.Cursor(), len(v.filtered))
	v.engine.SetFilterCount(len(v.filtered))
}

func queryKey(snap state.Snapshot) string {
	// fmt prints maps with sorted keys
	return fmt.Sprintf("%v|%v", snap.SortOrder, snap.SearchTerms)
}

func datasetSorts(order []state.Sort) []dataset.Sort {
	out := make([]dataset.Sort, 0, len(order))
	for _, s := range order {
		out = append(out, dataset.Sort{Field: s.Field, Descending: s.Dir == state.Descending})
	}
	return out
}

func (v *TableView) columns(snap state.Snapshot) []dataset.Column {
	return dataset.EnabledColumns(snap.Columns)
}

func (v *TableView) clampColumn(snap state.Snapshot) {
	n := len(v.columns(snap))
	if v.col >= n {
		v.col = n - 1
	}
	if v.col < 0 {
		v.col = 0
	}
}

// cursorColumn returns the column sort and search keys act on.
func (v *TableView) cursorColumn(snap state.Snapshot) (dataset.Column, bool) {
	cols := v.columns(snap)
	if v.col < 0 || v.col >= len(cols) {
		return dataset.Column{}, false
	}
	return cols[v.col], true
}

// geometry reads the line-based layout of the filtered rows from snap.
func (v *TableView) geometry(snap state.Snapshot) (rowHeight float64, heights *window.Heights) {
	return window.EffectiveRowHeight(snap.RowHeight, v.engine.Options().DefaultRowHeight), window.HeightsOf(snap.Expanded)
}

func (v *TableView) contentHeight(snap state.Snapshot) int {
	rh, heights := v.geometry(snap)
	return lines(window.ContentHeight(rh, len(v.filtered), heights))
}

// followCursor scrolls the cursor row, including its detail panel, into
// view and reports the new position to the engine.
func (v *TableView) followCursor() tea.Cmd {
	snap := v.engine.Snapshot()
	rh, heights := v.geometry(snap)
	cursor := v.tc.Cursor()
	top := lines(window.RowTop(cursor, rh, heights))
	bottom := top + lines(rh+heights.Get(cursor))
	v.tc.Follow(top, bottom, v.contentHeight(snap))
	return v.notify()
}

// notify reports the scroll position and waits for the window to settle.
// One wait is kept per burst.
func (v *TableView) notify() tea.Cmd {
	s := v.engine.Notify(float64(v.tc.ScrollTop()))
	if s == nil || s == v.awaiting {
		return nil
	}
	v.awaiting = s
	ctx := v.ctx
	return func() tea.Msg {
		offset, err := s.Wait(ctx)
		if err != nil {
			return nil
		}
		return scrollSettledMsg{settlement: s, offset: offset}
	}
}

// rowKey is the selection key of row.
func (v *TableView) rowKey(row dataset.Row) string {
	return dataset.RowKey(row, v.options().TrackBy, v.engine.Getter())
}

// viewportLines is the number of body lines rendered. Without FixedHeight
// the body height is an upper bound and a short table shrinks to its rows.
func (v *TableView) viewportLines(snap state.Snapshot) int {
	body := v.tc.BodyHeight()
	if v.options().FixedHeight {
		return body
	}
	return max(min(body, v.contentHeight(snap)), 1)
}

func lines(h float64) int {
	return int(math.Round(h))
}

// chromeHeight is the number of lines above the table body: the title, the
// optional search line, and the header plus its border.
func (v *TableView) chromeHeight() int {
	h := 1 + 2
	if v.showSearchLine() {
		h++
	}
	return h
}

func (v *TableView) showSearchLine() bool {
	return v.searchActive || len(v.engine.Snapshot().SearchTerms) > 0
}

// bodyLines is the number of content lines the viewport shows.
func (v *TableView) bodyLines() int {
	body := v.height - v.chromeHeight()
	if !v.engine.Options().FillHeight {
		body = min(body, lines(v.engine.BodyHeight()))
	}
	return max(body, 1)
}

// SetSize implements View
func (v *TableView) SetSize(width, height int) tea.Cmd {
	v.width = width
	v.height = height
	v.searchInput.SetWidth(width - 4)
	v.layout()

	if !v.measured {
		// every collapsed row renders on one line
		v.engine.MeasureRowHeight(1)
		v.measured = true
	}
	v.remeasurePanels()
	return v.notify()
}

func (v *TableView) layout() {
	v.engine.Resize(float64(v.height), float64(v.chromeHeight()))
	v.tc.SetBodyHeight(v.bodyLines())
}

// remeasurePanels updates detail panel heights after a width change.
func (v *TableView) remeasurePanels() {
	snap := v.engine.Snapshot()
	for row, h := range snap.Expanded {
		if row >= len(v.filtered) {
			continue
		}
		if got := float64(lipgloss.Height(v.renderDetail(snap, v.filtered[row]))); got != h {
			v.engine.SetExpandedHeight(row, got)
		}
	}
}

// View implements tea.Model
func (v *TableView) View() tea.View {
	return tea.NewView(v.ViewString())
}

func (v *TableView) HasActiveInput() bool {
	return v.searchActive
}

// Filtered returns the rows surviving the current search, in sort order.
func (v *TableView) Filtered() []dataset.Row {
	return v.filtered
}

// Cursor returns the cursor row index into Filtered.
func (v *TableView) Cursor() int {
	return v.tc.Cursor()
}

// StatusLine implements View
func (v *TableView) StatusLine() string {
	snap := v.engine.Snapshot()
	if v.searchActive {
		return "type to search • enter:apply • esc:close"
	}

	parts := []string{}
	if n := len(v.filtered); n > 0 {
		start, end := snap.Window.Bounds(n)
		parts = append(parts, fmt.Sprintf("rows %d-%d of %d", start+1, end, n))
	}
	if info := sortInfo(snap.SortOrder); info != "" {
		parts = append(parts, info)
	}
	if n := len(snap.Selected); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if v.awaiting != nil {
		parts = append(parts, "scrolling")
	}
	parts = append(parts, "/:search s/S:sort enter:details space:select ?:help")
	return strings.Join(parts, " • ")
}

func sortInfo(order []state.Sort) string {
	if len(order) == 0 {
		return ""
	}
	keys := make([]string, 0, len(order))
	for _, s := range order {
		keys = append(keys, s.Field+sortArrow(s.Dir))
	}
	return "sort " + strings.Join(keys, ",")
}

func sortArrow(d state.Direction) string {
	if d == state.Descending {
		return "↓"
	}
	return "↑"
}

// options is a shorthand used by the renderer.
func (v *TableView) options() config.Options {
	return v.engine.Options()
}
