package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/clawscli/mesa/internal/config"
	"github.com/clawscli/mesa/internal/dataset"
	"github.com/clawscli/mesa/internal/executor"
	"github.com/clawscli/mesa/internal/state"
	"github.com/clawscli/mesa/internal/store"
)

var testColumns = []dataset.Column{
	{ID: "id", Sortable: true},
	{ID: "name", Sortable: true},
	{ID: "size", Sortable: true},
}

type fixture struct {
	clock  *testingclock.FakeClock
	engine *Engine
}

// unpadded options make scroll positions map directly to rows
func unpadded() config.Options {
	o := config.DefaultOptions()
	o.RowPadding = 0
	return o
}

func newFixture(t *testing.T, opts config.Options, rows int) *fixture {
	t.Helper()
	f := &fixture{clock: testingclock.NewFakeClock(time.Unix(0, 0))}
	e, err := New(opts, testColumns, rows, WithClock(f.clock))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	f.engine = e
	f.sync(t)
	return f
}

func (f *fixture) sync(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.engine.Sync(ctx))
}

// settle lets the debounce delay pass and drains the resulting work.
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	f.sync(t)
	f.clock.Step(f.engine.Options().ScrollDebounce)
	f.sync(t)
}

func (f *fixture) scrollTo(t *testing.T, scrollTop float64) int {
	t.Helper()
	s := f.engine.Notify(scrollTop)
	require.NotNil(t, s)
	f.settle(t)
	require.True(t, s.Settled(), "scroll to %v did not settle", scrollTop)
	return s.Offset()
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Options)
		field  string
	}{
		{"store without key", func(o *config.Options) { o.Store = store.NewMemory() }, "storageKey"},
		{"unknown getter", func(o *config.Options) { o.Getter = "not-a-function" }, "getter"},
		{"negative padding", func(o *config.Options) { o.RowPadding = -1 }, "rowPadding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := config.DefaultOptions()
			tt.modify(&o)
			e, err := New(o, testColumns, 10)
			assert.Nil(t, e)
			var verr *config.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNew_InitialWindow(t *testing.T) {
	f := newFixture(t, config.DefaultOptions(), 1000)
	w := f.engine.Window()
	assert.Equal(t, 0, w.Offset)
	// ceil((300 + 2*300) / 40)
	assert.Equal(t, 23, w.Limit)
	assert.Nil(t, f.engine.Settlement())
}

func TestNew_UnmeasuredLimitStaysUnresolved(t *testing.T) {
	o := config.DefaultOptions()
	o.DefaultRowHeight = 0
	f := newFixture(t, o, 100)
	assert.False(t, f.engine.Snapshot().LimitResolved)

	f.engine.MeasureRowHeight(20)
	f.sync(t)
	snap := f.engine.Snapshot()
	assert.True(t, snap.LimitResolved)
	assert.Equal(t, 45, snap.Window.Limit)
}

func TestScroll_FloorDivision(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	assert.Equal(t, 5, f.scrollTo(t, 205))
	assert.Equal(t, 5, f.engine.Window().Offset)
	assert.Nil(t, f.engine.Settlement(), "settled token is cleared")
}

func TestScroll_PaddingIsSubtracted(t *testing.T) {
	f := newFixture(t, config.DefaultOptions(), 100)
	assert.Equal(t, 0, f.scrollTo(t, 250), "inside the padding")
	assert.Equal(t, 5, f.scrollTo(t, 505))
}

func TestScroll_ExpandedPanelStepsBack(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	f.engine.Expand(10, 200)
	f.sync(t)
	assert.Equal(t, 9, f.scrollTo(t, 600))
}

func TestScroll_NoRows(t *testing.T) {
	f := newFixture(t, unpadded(), 0)
	assert.Equal(t, 0, f.scrollTo(t, 5000))
}

func TestScroll_ClampedToLastRow(t *testing.T) {
	f := newFixture(t, unpadded(), 10)
	assert.Equal(t, 9, f.scrollTo(t, 100000))
}

func TestScroll_BurstCoalesces(t *testing.T) {
	f := newFixture(t, unpadded(), 1000)
	var (
		mu      sync.Mutex
		offsets []int
	)
	f.engine.Subscribe(Hooks{OnOffset: func(o int) {
		mu.Lock()
		offsets = append(offsets, o)
		mu.Unlock()
	}})

	first := f.engine.Notify(40)
	for i := 2; i <= 10; i++ {
		f.sync(t)
		f.clock.Step(50 * time.Millisecond)
		assert.Same(t, first, f.engine.Notify(float64(i*100)), "a burst shares one settlement")
	}
	f.settle(t)

	require.True(t, first.Settled())
	assert.Equal(t, 25, first.Offset())
	mu.Lock()
	assert.Equal(t, []int{25}, offsets, "one recomputation using the last event")
	mu.Unlock()
}

func TestScroll_SettlementCreatedSynchronously(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	s := f.engine.Notify(80)
	assert.Same(t, s, f.engine.Settlement())
	assert.False(t, s.Settled())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan int, 1)
	go func() {
		offset, err := s.Wait(ctx)
		if err == nil {
			done <- offset
		}
	}()
	f.settle(t)
	select {
	case offset := <-done:
		assert.Equal(t, 2, offset)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
}

func TestScroll_UnmeasuredRowHeightSkips(t *testing.T) {
	o := unpadded()
	o.DefaultRowHeight = 0
	f := newFixture(t, o, 100)

	s := f.engine.Notify(205)
	f.settle(t)
	assert.False(t, s.Settled(), "pending until a measurement arrives")
	assert.Equal(t, 0, f.engine.Window().Offset)

	f.engine.MeasureRowHeight(40)
	assert.Same(t, s, f.engine.Notify(205))
	f.settle(t)
	assert.True(t, s.Settled())
	assert.Equal(t, 5, s.Offset())
}

func TestScroll_ImmediateMode(t *testing.T) {
	o := unpadded()
	o.ScrollImmediate = true
	f := newFixture(t, o, 100)

	f.engine.Notify(205)
	f.sync(t)
	assert.Equal(t, 5, f.engine.Window().Offset, "leading edge applied without waiting")

	s := f.engine.Notify(400)
	f.settle(t)
	assert.True(t, s.Settled())
	assert.Equal(t, 10, f.engine.Window().Offset)
}

func TestExpandAboveOffsetRecomputes(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	require.Equal(t, 10, f.scrollTo(t, 400))

	f.engine.Expand(2, 80)
	f.sync(t)
	s := f.engine.Settlement()
	require.NotNil(t, s, "expanding above the offset schedules a recompute")
	f.settle(t)
	assert.True(t, s.Settled())
	assert.Equal(t, 8, f.engine.Window().Offset)
}

func TestExpandBelowOffsetDoesNotRecompute(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	require.Equal(t, 10, f.scrollTo(t, 400))

	f.engine.Expand(50, 80)
	f.sync(t)
	assert.Nil(t, f.engine.Settlement())
	assert.True(t, f.engine.Snapshot().IsExpanded(50))
}

func TestFilterCountShrinkRecomputes(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	f.engine.Expand(60, 40)
	require.Equal(t, 50, f.scrollTo(t, 2000))

	f.engine.SetFilterCount(20)
	f.sync(t)
	snap := f.engine.Snapshot()
	assert.Equal(t, 19, snap.Window.Offset)
	assert.False(t, snap.IsExpanded(60))
	require.NotNil(t, f.engine.Settlement())
	f.settle(t)
	assert.Equal(t, 19, f.engine.Window().Offset)
}

func TestSetOptionsResetsAtomically(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	f.engine.Expand(30, 120)
	f.engine.ToggleSort("name", false)
	f.engine.SetSearchTerm("name", "web")
	f.engine.Expand(20, 50)
	require.Equal(t, 5, f.scrollTo(t, 205))

	before := f.engine.Snapshot()
	require.NotEmpty(t, before.SortOrder)
	require.NotEmpty(t, before.SearchTerms)
	require.Len(t, before.Expanded, 1)

	var atReset []state.Snapshot
	f.engine.Subscribe(Hooks{OnReset: func() {
		atReset = append(atReset, f.engine.Snapshot())
	}})

	next := unpadded()
	next.ScrollDebounce = 250 * time.Millisecond
	require.NoError(t, f.engine.SetOptions(next))
	f.sync(t)

	require.Len(t, atReset, 1)
	for _, snap := range []state.Snapshot{atReset[0], f.engine.Snapshot()} {
		assert.Equal(t, 0, snap.Window.Offset)
		assert.Empty(t, snap.Expanded)
		assert.Empty(t, snap.SortOrder)
		assert.Empty(t, snap.SearchTerms)
		assert.Equal(t, 100, snap.FilterCount)
	}
	assert.Equal(t, 250*time.Millisecond, f.engine.Options().ScrollDebounce)

	// the rebuilt delay is honored
	s := f.engine.Notify(400)
	f.sync(t)
	f.clock.Step(100 * time.Millisecond)
	f.sync(t)
	assert.False(t, s.Settled())
	f.clock.Step(150 * time.Millisecond)
	f.sync(t)
	assert.True(t, s.Settled())
}

func TestSetOptionsRejectsInvalid(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	f.engine.ToggleSort("name", false)
	f.sync(t)

	bad := unpadded()
	bad.Store = store.NewMemory()
	err := f.engine.SetOptions(bad)
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)

	f.sync(t)
	assert.NotEmpty(t, f.engine.Snapshot().SortOrder, "running engine untouched")
}

func TestInitialSorts(t *testing.T) {
	o := config.DefaultOptions()
	o.InitialSorts = []state.Sort{{Field: "size", Dir: state.Descending}, {Field: "name", Dir: state.Ascending}}
	f := newFixture(t, o, 10)
	want := []state.Sort{{Field: "size", Dir: state.Descending}, {Field: "name", Dir: state.Ascending}}
	assert.Equal(t, want, f.engine.Snapshot().SortOrder)

	f.engine.ClearSort()
	f.sync(t)
	assert.Empty(t, f.engine.Snapshot().SortOrder)

	f.engine.SetColumns([]dataset.Column{{ID: "size"}, {ID: "name"}})
	f.sync(t)
	snap := f.engine.Snapshot()
	assert.Equal(t, want, snap.SortOrder, "column replacement re-applies initial sorts")
	assert.Len(t, snap.Columns, 2)
}

func TestSetColumnsResets(t *testing.T) {
	f := newFixture(t, unpadded(), 100)
	f.engine.Expand(3, 10)
	require.Equal(t, 5, f.scrollTo(t, 205+10))

	f.engine.SetColumns(testColumns[:1])
	f.sync(t)
	snap := f.engine.Snapshot()
	assert.Equal(t, 0, snap.Window.Offset)
	assert.Empty(t, snap.Expanded)
}

func TestBodyHeightAndResize(t *testing.T) {
	o := unpadded()
	o.DefaultRowHeight = 1
	f := newFixture(t, o, 1000)
	assert.Equal(t, 300, f.engine.Window().Limit)

	f.engine.Resize(40, 2)
	f.sync(t)
	assert.Equal(t, 300, f.engine.Window().Limit, "resize ignored without fill height")

	f.engine.SetBodyHeight(12)
	f.sync(t)
	assert.Equal(t, 12, f.engine.Window().Limit)
	assert.Equal(t, 12.0, f.engine.BodyHeight())

	f.engine.SetBodyHeight(-4)
	f.sync(t)
	assert.Equal(t, 12.0, f.engine.BodyHeight())

	o.FillHeight = true
	require.NoError(t, f.engine.SetOptions(o))
	f.engine.Resize(40, 2)
	f.sync(t)
	assert.Equal(t, 38, f.engine.Window().Limit)
}

func TestVisible(t *testing.T) {
	o := unpadded()
	o.BodyHeight = 120
	f := newFixture(t, o, 10)
	rows := make([]dataset.Row, 10)
	for i := range rows {
		rows[i] = dataset.Row{ID: string(rune('a' + i))}
	}
	assert.Len(t, f.engine.Visible(rows), 3)

	f.scrollTo(t, 320)
	got := f.engine.Visible(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "i", got[0].ID)
}

func TestLoadingHandle(t *testing.T) {
	ch := make(chan error, 1)
	o := config.DefaultOptions()
	o.Loading = ch

	var (
		mu     sync.Mutex
		events []bool
	)
	f := newFixture(t, o, 0)
	assert.True(t, f.engine.Snapshot().Loading)
	f.engine.Subscribe(Hooks{OnLoading: func(loading bool, err error) {
		mu.Lock()
		events = append(events, loading)
		mu.Unlock()
	}})

	boom := errors.New("boom")
	ch <- boom
	require.Eventually(t, func() bool {
		_ = f.engine.Sync(context.Background())
		return !f.engine.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	snap := f.engine.Snapshot()
	assert.ErrorIs(t, snap.LoadingErr, boom)
	mu.Lock()
	assert.Equal(t, []bool{false}, events)
	mu.Unlock()
}

func TestSetOptions_KeepsObservedLoadingHandle(t *testing.T) {
	ch := make(chan error, 1)
	ch <- nil
	o := config.DefaultOptions()
	o.Loading = ch
	f := newFixture(t, o, 10)
	require.Eventually(t, func() bool {
		_ = f.engine.Sync(context.Background())
		return !f.engine.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	next := f.engine.Options()
	next.ScrollImmediate = true
	require.NoError(t, f.engine.SetOptions(next))
	f.sync(t)
	assert.False(t, f.engine.Snapshot().Loading, "the same handle is not observed twice")

	fresh := make(chan error)
	next.Loading = fresh
	require.NoError(t, f.engine.SetOptions(next))
	f.sync(t)
	assert.True(t, f.engine.Snapshot().Loading, "a new handle starts another load")
	close(fresh)
	require.Eventually(t, func() bool {
		_ = f.engine.Sync(context.Background())
		return !f.engine.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)
}

func TestObserveLoading_SuccessClearsError(t *testing.T) {
	f := newFixture(t, config.DefaultOptions(), 0)

	failed := make(chan error, 1)
	failed <- errors.New("first")
	f.engine.ObserveLoading(failed)
	require.Eventually(t, func() bool {
		_ = f.engine.Sync(context.Background())
		return f.engine.Snapshot().LoadingErr != nil
	}, time.Second, 5*time.Millisecond)

	ok := make(chan error)
	f.engine.ObserveLoading(ok)
	f.sync(t)
	assert.True(t, f.engine.Snapshot().Loading)
	close(ok)
	require.Eventually(t, func() bool {
		_ = f.engine.Sync(context.Background())
		return !f.engine.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)
	assert.NoError(t, f.engine.Snapshot().LoadingErr)
}

func TestObserveLoading_Superseded(t *testing.T) {
	f := newFixture(t, config.DefaultOptions(), 0)
	stale := make(chan error, 1)
	fresh := make(chan error)

	f.engine.ObserveLoading(stale)
	f.engine.ObserveLoading(fresh)
	stale <- errors.New("stale")
	f.sync(t)
	time.Sleep(20 * time.Millisecond)
	f.sync(t)
	snap := f.engine.Snapshot()
	assert.True(t, snap.Loading, "stale handle must not finish the load")
	assert.NoError(t, snap.LoadingErr)
}

func TestSelection(t *testing.T) {
	f := newFixture(t, config.DefaultOptions(), 3)
	keys := []string{"a", "b", "c"}

	f.engine.ToggleSelectAll(keys)
	f.sync(t)
	assert.True(t, f.engine.IsSelectedAll(keys))

	f.engine.Deselect("b")
	f.sync(t)
	assert.False(t, f.engine.IsSelectedAll(keys))
	assert.True(t, f.engine.IsSelected("a"))

	f.engine.DeselectAll()
	f.engine.ToggleSelect("c")
	f.sync(t)
	assert.Equal(t, []string{"c"}, f.engine.Snapshot().Selected)
	assert.False(t, f.engine.IsSelectedAll(nil))
}

func TestPersistence(t *testing.T) {
	mem := store.NewMemory()
	o := config.DefaultOptions()
	o.Store = mem
	o.StorageKey = "instances"
	o.StorageHash = "v1"

	f := newFixture(t, o, 100)
	_, err := mem.Load("instances")
	assert.ErrorIs(t, err, store.ErrNotFound, "nothing saved before a change")

	f.engine.ToggleSort("size", false)
	f.engine.SetSearchTerm("name", "db")
	f.engine.SetBodyHeight(480)
	f.sync(t)

	raw, err := mem.Load("instances")
	require.NoError(t, err)
	var saved state.Persisted
	require.NoError(t, store.Decode(raw, &saved))
	assert.Equal(t, "v1", saved.Hash)
	assert.Equal(t, 480.0, saved.BodyHeight)
	assert.Equal(t, []state.Sort{{Field: "size", Dir: state.Ascending}}, saved.SortOrder)

	again := newFixture(t, o, 100)
	snap := again.engine.Snapshot()
	assert.Equal(t, []state.Sort{{Field: "size", Dir: state.Ascending}}, snap.SortOrder)
	assert.Equal(t, map[string]string{"name": "db"}, snap.SearchTerms)
	assert.Equal(t, 480.0, again.engine.BodyHeight())

	o.StorageHash = "v2"
	other := newFixture(t, o, 100)
	assert.Empty(t, other.engine.Snapshot().SortOrder, "snapshot under another hash is ignored")
}

func TestSetDataRestoresPersistedState(t *testing.T) {
	mem := store.NewMemory()
	o := config.DefaultOptions()
	o.Store = mem
	o.StorageKey = "rows"

	f := newFixture(t, o, 0)
	f.engine.SetData(testColumns, 50)
	f.engine.ToggleSort("name", false)
	f.engine.SetSearchTerm("size", "9")
	f.sync(t)

	// a restart sees the dataset only after the engine is up
	again := newFixture(t, o, 0)
	assert.Empty(t, again.engine.Snapshot().Columns)
	again.engine.SetData([]dataset.Column{{ID: "size"}, {ID: "name"}, {ID: "id"}}, 50)
	again.sync(t)

	snap := again.engine.Snapshot()
	assert.Equal(t, 50, snap.FilterCount)
	assert.Equal(t, []state.Sort{{Field: "name", Dir: state.Ascending}}, snap.SortOrder)
	assert.Equal(t, map[string]string{"size": "9"}, snap.SearchTerms)
	ids := make([]string, 0, len(snap.Columns))
	for _, c := range snap.Columns {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"id", "name", "size"}, ids, "saved column order wins")
}

type failingStore struct{}

func (failingStore) Load(string) (string, error) { return "", errors.New("unavailable") }
func (failingStore) Save(string, string) error   { return errors.New("read-only") }

func TestPersistenceFailuresAreNotFatal(t *testing.T) {
	o := config.DefaultOptions()
	o.Store = failingStore{}
	o.StorageKey = "k"
	f := newFixture(t, o, 10)

	f.engine.ToggleSort("name", false)
	f.sync(t)
	assert.Len(t, f.engine.Snapshot().SortOrder, 1)
}

func TestClose(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Unix(0, 0))
	e, err := New(unpadded(), testColumns, 10, WithClock(clk))
	require.NoError(t, err)

	s := e.Notify(80)
	e.Close()
	e.Close()

	assert.ErrorIs(t, e.Sync(context.Background()), executor.ErrClosed)
	assert.False(t, s.Settled())
	assert.False(t, clk.HasWaiters(), "pending debounce timer stopped")

	e.ToggleSort("name", false)
	assert.Empty(t, e.Snapshot().SortOrder)
}
