package app

import (
	"context"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/clawscli/mesa/internal/config"
	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/engine"
	"github.com/clawscli/mesa/internal/log"
	"github.com/clawscli/mesa/internal/state"
	"github.com/clawscli/mesa/internal/ui"
	"github.com/clawscli/mesa/internal/view"
)

// clearErrorMsg is sent to clear transient errors after a timeout
type clearErrorMsg struct{}

// appStyles holds cached lipgloss styles for performance
type appStyles struct {
	status    lipgloss.Style
	immediate lipgloss.Style
}

func newAppStyles(width int) appStyles {
	t := ui.Current()
	return appStyles{
		status:    ui.StatusStyle(width),
		immediate: lipgloss.NewStyle().Background(t.Warning).Foreground(lipgloss.Color("#000000")).Bold(true).Padding(0, 1),
	}
}

// App is the main application model
type App struct {
	ctx         context.Context
	engine      *engine.Engine
	sources     []dataset.Source
	loadTimeout time.Duration
	width       int
	height      int

	table *view.TableView

	help     help.Model
	keys     keyMap
	showHelp bool

	err error

	// engine transitions folded into at most one queued message
	events      chan view.StateChangedMsg
	unsubscribe func()

	styles appStyles
}

// New creates the root model over eng. Rows are loaded from sources when
// the program starts.
func New(ctx context.Context, eng *engine.Engine, sources []dataset.Source, loadTimeout time.Duration) *App {
	if loadTimeout <= 0 {
		loadTimeout = config.DefaultLoadTimeout
	}
	a := &App{
		ctx:         ctx,
		engine:      eng,
		sources:     sources,
		loadTimeout: loadTimeout,
		table:       view.NewTableView(ctx, eng, "mesa"),
		help:        help.New(),
		keys:        defaultKeyMap(),
		events:      make(chan view.StateChangedMsg, 1),
		styles:      newAppStyles(0),
	}
	a.unsubscribe = eng.Subscribe(a.hooks())
	return a
}

// hooks forwards engine transitions to the program. A message already
// waiting stands in for later ones since views re-read the snapshot.
func (a *App) hooks() engine.Hooks {
	send := func(reason string) {
		select {
		case a.events <- view.StateChangedMsg{Reason: reason}:
		default:
		}
	}
	return engine.Hooks{
		OnReset:       func() { send("reset") },
		OnOffset:      func(int) { send("offset") },
		OnLimit:       func(int) { send("limit") },
		OnExpand:      func(int, bool, bool) { send("expand") },
		OnFilterCount: func(int) { send("filterCount") },
		OnSort:        func([]state.Sort) { send("sort") },
		OnSearch:      func(map[string]string) { send("search") },
		OnSelect:      func([]string) { send("select") },
		OnColumns:     func() { send("columns") },
		OnLoading:     func(bool, error) { send("loading") },
	}
}

// waitForChange delivers the next engine transition.
func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-a.events:
			return msg
		case <-a.ctx.Done():
			return nil
		}
	}
}

// loadData loads every source under the configured timeout while the
// engine shows its loading state.
func (a *App) loadData() tea.Cmd {
	ch := make(chan error, 1)
	a.engine.ObserveLoading(ch)
	sources := a.sources
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(a.ctx, a.loadTimeout)
		defer cancel()
		res, err := dataset.LoadAll(ctx, sources...)
		ch <- err
		if err != nil {
			return view.ErrorMsg{Err: err}
		}
		return view.DataLoadedMsg{Columns: res.Columns, Rows: res.Rows}
	}
}

// Close detaches the app from the engine.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.table.Init(), a.loadData(), a.waitForChange())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.SetWidth(msg.Width)
		// Update cached styles with new width
		a.styles = newAppStyles(msg.Width)
		return a, a.resizeTable()

	case view.StateChangedMsg:
		_, cmd := a.table.Update(msg)
		return a, tea.Batch(cmd, a.waitForChange())

	case view.ErrorMsg:
		log.Debug("application error", "error", msg.Err)
		a.err = msg.Err
		return a, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearErrorMsg{}
		})

	case clearErrorMsg:
		a.err = nil
		return a, nil

	case tea.KeyPressMsg:
		// the table's search input gets every key while it is open
		if a.table.HasActiveInput() {
			_, cmd := a.table.Update(msg)
			return a, cmd
		}

		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit

		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, a.resizeTable()

		case key.Matches(msg, a.keys.Back) && a.showHelp:
			a.showHelp = false
			a.help.ShowAll = false
			return a, a.resizeTable()

		case key.Matches(msg, a.keys.Refresh):
			a.err = nil
			return a, a.loadData()

		case key.Matches(msg, a.keys.Immediate):
			return a, a.toggleImmediate()
		}
	}

	_, cmd := a.table.Update(msg)
	return a, cmd
}

// toggleImmediate flips leading-edge scroll handling. Replacing the options
// resets the view state.
func (a *App) toggleImmediate() tea.Cmd {
	opts := a.engine.Options()
	opts.ScrollImmediate = !opts.ScrollImmediate
	if err := a.engine.SetOptions(opts); err != nil {
		log.Warn("failed to apply options", "error", err)
		return func() tea.Msg { return view.ErrorMsg{Err: err} }
	}
	log.Info("scroll mode changed", "immediate", opts.ScrollImmediate)
	return nil
}

func (a *App) resizeTable() tea.Cmd {
	if a.width == 0 || a.height == 0 {
		return nil
	}
	footer := lipgloss.Height(a.footer())
	return a.table.SetSize(a.width, max(a.height-footer, 1))
}

func newAltScreenView(content string) tea.View {
	v := tea.NewView(content)
	v.AltScreen = true
	v.MouseMode = tea.MouseModeAllMotion
	return v
}

// View implements tea.Model
func (a *App) View() tea.View {
	return newAltScreenView(a.table.ViewString() + "\n" + a.footer())
}

func (a *App) footer() string {
	if a.showHelp {
		return a.help.View(a.keys)
	}

	var statusContent string
	if a.err != nil {
		statusContent = ui.DangerStyle().Render("Error: " + a.err.Error())
	} else {
		statusContent = a.table.StatusLine()
	}
	if a.engine.Options().ScrollImmediate {
		statusContent = a.styles.immediate.Render("IMMEDIATE") + " " + statusContent
	}
	return a.styles.status.Render(statusContent)
}

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Details   key.Binding
	Search    key.Binding
	Sort      key.Binding
	Select    key.Binding
	Back      key.Binding
	Refresh   key.Binding
	Immediate key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search column"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s", "S"),
			key.WithHelp("s/S", "sort/multi-sort"),
		),
		Select: key.NewBinding(
			key.WithKeys("space", "a"),
			key.WithHelp("space/a", "select/all"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload"),
		),
		Immediate: key.NewBinding(
			key.WithKeys("I"),
			key.WithHelp("I", "immediate scroll"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns short help
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Help, k.Quit}
}

// FullHelp returns full help
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Details, k.Back},
		{k.Search, k.Sort, k.Select},
		{k.Refresh, k.Immediate, k.Help, k.Quit},
	}
}
