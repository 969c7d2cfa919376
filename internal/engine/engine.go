// Package engine drives a virtualized row window. It owns the view state,
// serializes every mutation on one executor goroutine and publishes a
// consistent snapshot that hosts read without blocking.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"k8s.io/utils/clock"

	"github.com/clawscli/mesa/internal/config"
	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/executor"
	"github.com/clawscli/mesa/internal/log"
	"github.com/clawscli/mesa/internal/scroll"
	"github.com/clawscli/mesa/internal/state"
	"github.com/clawscli/mesa/internal/window"
)

// Hooks are the lifecycle callbacks an engine fires. They run on the engine
// goroutine and must not block.
type Hooks = state.Hooks

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for scroll debouncing.
func WithClock(clk clock.WithDelayedExecution) Option {
	return func(e *Engine) { e.clock = clk }
}

// Engine is safe for concurrent use. Mutators queue their work and return
// immediately; readers see the state as of the last completed transition.
type Engine struct {
	clock    clock.WithDelayedExecution
	exec     *executor.Executor
	pipeline *scroll.Pipeline
	quit     chan struct{}
	once     sync.Once

	// owned by the executor goroutine
	st         *state.State
	opts       config.Options
	getter     dataset.Getter
	bodyHeight float64
	rowCount   int
	loadGen    uint64

	mu        sync.RWMutex
	snap      state.Snapshot
	pubOpts   config.Options
	pubBody   float64
	pubGetter dataset.Getter
}

// New validates opts and starts an engine over rowCount rows. A
// configuration error is returned before anything is started.
func New(opts config.Options, cols []dataset.Column, rowCount int, options ...Option) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	getter, err := opts.ResolveGetter()
	if err != nil {
		return nil, fmt.Errorf("resolve getter: %w", err)
	}

	e := &Engine{
		clock:    clock.RealClock{},
		quit:     make(chan struct{}),
		st:       state.New(rowCount),
		rowCount: max(rowCount, 0),
	}
	for _, o := range options {
		o(e)
	}
	e.exec = executor.New()
	e.pipeline = scroll.NewPipeline(e.exec.Post, func(fn func()) *scroll.Debouncer {
		return scroll.NewDebouncer(e.clock, e.exec.Post, opts.ScrollDebounce, fn)
	}, e.computeOffset)
	e.st.Subscribe(e.internalHooks())

	// nothing else can reach the state until New returns
	if len(cols) > 0 {
		e.st.ReplaceColumns(cols, e.rowCount)
	}
	e.configure(opts, getter)
	e.publish()

	// one more pass once the host has laid out its first frame
	e.exec.Post(func() {
		e.recomputeLimit()
		e.publish()
	})

	log.Debug("engine started", "rows", e.rowCount, "columns", len(cols))
	return e, nil
}

// configure resets the state and applies opts. It runs on the executor.
func (e *Engine) configure(opts config.Options, getter dataset.Getter) {
	// a handle is observed once; only a new channel starts another load
	newLoading := opts.Loading != nil && opts.Loading != e.opts.Loading
	e.opts = opts
	e.getter = getter
	e.bodyHeight = opts.BodyHeight

	d := e.pipeline.Debouncer()
	d.SetDelay(opts.ScrollDebounce)
	d.SetImmediate(opts.ScrollImmediate)

	e.st.SetPersister(nil)
	e.st.Reset(e.rowCount)
	e.applyInitialSorts()

	if opts.Store != nil {
		e.restore()
		e.st.SetPersister(e)
	}
	if newLoading {
		e.observeLoading(opts.Loading)
	}
	e.recomputeLimit()
}

func (e *Engine) applyInitialSorts() {
	for _, s := range e.opts.InitialSorts {
		e.st.AddSort(s.Field, s.Dir)
	}
}

func (e *Engine) internalHooks() state.Hooks {
	return state.Hooks{
		OnReset: func() {
			e.publish()
			e.recomputeLimit()
		},
		OnOffset: func(int) { e.publish() },
		OnLimit:  func(int) { e.publish() },
		OnExpand: func(row int, expanded, above bool) {
			e.publish()
			if above {
				e.pipeline.Refresh()
			}
		},
		OnFilterCount: func(int) {
			e.publish()
			e.pipeline.Refresh()
		},
		OnSort:    func([]state.Sort) { e.publish() },
		OnSearch:  func(map[string]string) { e.publish() },
		OnSelect:  func([]string) { e.publish() },
		OnColumns: func() { e.publish() },
		OnLoading: func(bool, error) { e.publish() },
	}
}

func (e *Engine) rowHeight() float64 {
	return window.EffectiveRowHeight(e.st.RowHeight(), e.opts.DefaultRowHeight)
}

func (e *Engine) recomputeLimit() {
	limit, ok := window.RowLimit(e.bodyHeight, e.rowHeight(), e.opts.RowPadding)
	if !ok {
		return
	}
	e.st.SetLimit(limit)
}

func (e *Engine) computeOffset(scrollTop float64) (int, bool) {
	e.recomputeLimit()
	offset, ok := window.ResolveOffset(scrollTop-e.opts.RowPadding, e.rowHeight(), e.st.FilterCount(), e.st.Heights())
	if !ok {
		return 0, false
	}
	offset = e.st.SetOffset(offset)
	e.publish()
	return offset, true
}

func (e *Engine) publish() {
	snap := e.st.Snapshot()
	e.mu.Lock()
	e.snap = snap
	e.pubOpts = e.opts
	e.pubBody = e.bodyHeight
	e.pubGetter = e.getter
	e.mu.Unlock()
}

// do queues fn and publishes the state once it has run.
func (e *Engine) do(fn func()) {
	if !e.exec.Post(func() {
		fn()
		e.publish()
	}) {
		log.Debug("engine closed, dropping update")
	}
}

// Window returns the row range to render.
func (e *Engine) Window() window.Window {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Window
}

// Snapshot returns the last published state.
func (e *Engine) Snapshot() state.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// Options returns the active options.
func (e *Engine) Options() config.Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pubOpts
}

// BodyHeight returns the effective body height.
func (e *Engine) BodyHeight() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pubBody
}

// Getter returns the row accessor selected by the options.
func (e *Engine) Getter() dataset.Getter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pubGetter
}

// Visible slices rows to the current window.
func (e *Engine) Visible(rows []dataset.Row) []dataset.Row {
	start, end := e.Window().Bounds(len(rows))
	return rows[start:end]
}

// Notify reports a raw scroll position. The returned settlement resolves
// once the burst it belongs to has been applied.
func (e *Engine) Notify(scrollTop float64) *scroll.Settlement {
	return e.pipeline.Notify(scrollTop)
}

// Settlement returns the live scroll settlement, or nil when the window is
// stable.
func (e *Engine) Settlement() *scroll.Settlement {
	return e.pipeline.Settlement()
}

// ScrollTop returns the last reported raw scroll position.
func (e *Engine) ScrollTop() float64 {
	return e.pipeline.ScrollTop()
}

// Subscribe registers hooks and returns a function removing them.
func (e *Engine) Subscribe(h Hooks) func() {
	return e.st.Subscribe(h)
}

// SetOptions replaces the options. The view state is reset in one step and
// the new options applied; an invalid set is rejected without touching the
// running engine.
func (e *Engine) SetOptions(opts config.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	getter, err := opts.ResolveGetter()
	if err != nil {
		return fmt.Errorf("resolve getter: %w", err)
	}
	e.do(func() { e.configure(opts, getter) })
	return nil
}

// SetColumns replaces the columns, resets the view state and re-applies the
// initial sorts.
func (e *Engine) SetColumns(cols []dataset.Column) {
	cols = dataset.CopyColumns(cols)
	e.do(func() {
		e.st.ReplaceColumns(cols, e.rowCount)
		e.applyInitialSorts()
	})
}

// SetData installs a freshly loaded dataset. The row count and columns are
// replaced and the view state reset, then the initial sorts and any
// persisted state are applied again.
func (e *Engine) SetData(cols []dataset.Column, rowCount int) {
	cols = dataset.CopyColumns(cols)
	e.do(func() {
		e.rowCount = max(rowCount, 0)
		e.st.SetPersister(nil)
		e.st.ReplaceColumns(cols, e.rowCount)
		e.applyInitialSorts()
		if e.opts.Store != nil {
			e.restore()
			e.st.SetPersister(e)
		}
		e.recomputeLimit()
	})
}

// SetFilterCount sets the number of rows surviving filters.
func (e *Engine) SetFilterCount(n int) {
	e.do(func() { e.st.SetFilterCount(n) })
}

// MeasureRowHeight records the measured height of a collapsed row.
func (e *Engine) MeasureRowHeight(h float64) {
	e.do(func() {
		if e.st.SetRowHeight(h) {
			e.recomputeLimit()
		}
	})
}

// SetBodyHeight sets the visible body height.
func (e *Engine) SetBodyHeight(h float64) {
	e.do(func() { e.setBodyHeight(h) })
}

// Resize derives the body height from the space available to the table
// when FillHeight is set.
func (e *Engine) Resize(available, header float64) {
	e.do(func() {
		if !e.opts.FillHeight {
			return
		}
		e.setBodyHeight(max(available-header, 0))
	})
}

func (e *Engine) setBodyHeight(h float64) {
	if h < 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		log.Warn("ignoring invalid body height", "height", h)
		return
	}
	if h == e.bodyHeight {
		return
	}
	e.bodyHeight = h
	e.recomputeLimit()
	e.save("bodyHeight")
}

// Expand marks row expanded with a detail panel of the given extra height.
func (e *Engine) Expand(row int, height float64) {
	e.do(func() { e.st.Expand(row, height) })
}

// SetExpandedHeight updates the detail panel height of an expanded row.
func (e *Engine) SetExpandedHeight(row int, height float64) {
	e.do(func() { e.st.SetExpandedHeight(row, height) })
}

// Collapse removes row's detail panel.
func (e *Engine) Collapse(row int) {
	e.do(func() { e.st.Collapse(row) })
}

// ToggleExpanded flips row between expanded and collapsed.
func (e *Engine) ToggleExpanded(row int, height float64) {
	e.do(func() { e.st.ToggleExpanded(row, height) })
}

// SetLoading sets the loading flag.
func (e *Engine) SetLoading(loading bool) {
	e.do(func() { e.st.SetLoading(loading) })
}

// ObserveLoading shows the loading state until ch yields a value or is
// closed. A later call supersedes an earlier one still in flight.
func (e *Engine) ObserveLoading(ch <-chan error) {
	if ch == nil {
		return
	}
	e.do(func() { e.observeLoading(ch) })
}

func (e *Engine) observeLoading(ch <-chan error) {
	e.loadGen++
	gen := e.loadGen
	e.st.SetLoading(true)
	go func() {
		var err error
		select {
		case err = <-ch:
		case <-e.quit:
			return
		}
		e.do(func() {
			if gen != e.loadGen {
				return
			}
			e.st.FinishLoading(err)
		})
	}()
}

func (e *Engine) AddSort(field string, dir state.Direction) {
	e.do(func() { e.st.AddSort(field, dir) })
}

func (e *Engine) ToggleSort(field string, multi bool) {
	e.do(func() { e.st.ToggleSort(field, multi) })
}

func (e *Engine) ClearSort() {
	e.do(e.st.ClearSort)
}

func (e *Engine) SetSearchTerm(field, term string) {
	e.do(func() { e.st.SetSearchTerm(field, term) })
}

func (e *Engine) ClearSearch() {
	e.do(e.st.ClearSearch)
}

func (e *Engine) Select(key string) {
	e.do(func() { e.st.Select(key) })
}

func (e *Engine) Deselect(key string) {
	e.do(func() { e.st.Deselect(key) })
}

func (e *Engine) ToggleSelect(key string) {
	e.do(func() { e.st.ToggleSelect(key) })
}

func (e *Engine) SelectAll(keys []string) {
	e.do(func() { e.st.SelectAll(keys) })
}

func (e *Engine) DeselectAll() {
	e.do(e.st.DeselectAll)
}

func (e *Engine) ToggleSelectAll(keys []string) {
	e.do(func() { e.st.ToggleSelectAll(keys) })
}

// IsSelected reports whether key was selected as of the last transition.
func (e *Engine) IsSelected(key string) bool {
	return e.Snapshot().IsSelected(key)
}

// IsSelectedAll reports whether every key was selected as of the last
// transition.
func (e *Engine) IsSelectedAll(keys []string) bool {
	snap := e.Snapshot()
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !snap.IsSelected(k) {
			return false
		}
	}
	return true
}

// Sync waits until every change queued before the call has been applied.
func (e *Engine) Sync(ctx context.Context) error {
	return e.exec.Sync(ctx)
}

// Close stops the engine. Queued changes are applied first; later calls
// are dropped.
func (e *Engine) Close() {
	e.once.Do(func() {
		close(e.quit)
		e.exec.Post(e.pipeline.Stop)
		e.exec.Close()
		log.Debug("engine closed")
	})
}
