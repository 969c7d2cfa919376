package state

import (
	"sync"

	"github.com/clawscli/mesa/internal/log"
)

// Hooks holds optional callbacks fired synchronously after the mutation that
// caused them. Nil callbacks are skipped.
type Hooks struct {
	// OnReset fires after a full reset of the view state.
	OnReset func()

	// OnOffset fires when the first visible row changes.
	OnOffset func(offset int)

	// OnLimit fires when the number of rendered rows changes.
	OnLimit func(limit int)

	// OnExpand fires when a row is expanded, resized or collapsed. above is
	// true when the row lies before the current offset.
	OnExpand func(row int, expanded, above bool)

	// OnFilterCount fires when the number of rows surviving filters changes.
	OnFilterCount func(count int)

	// OnSort fires when the sort order changes.
	OnSort func(order []Sort)

	// OnSearch fires when the search terms change.
	OnSearch func(terms map[string]string)

	// OnSelect fires when the selection changes.
	OnSelect func(selected []string)

	// OnColumns fires when the column set is replaced.
	OnColumns func()

	// OnLoading fires when loading starts or finishes. err is the loading
	// failure, if any.
	OnLoading func(loading bool, err error)
}

// Persister saves the parts of the state that survive a restart.
type Persister interface {
	SaveState() error
}

type dispatcher struct {
	mu        sync.RWMutex
	subs      map[int]Hooks
	nextID    int
	persister Persister
}

func (d *dispatcher) subscribe(h Hooks) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs == nil {
		d.subs = make(map[int]Hooks)
	}
	id := d.nextID
	d.nextID++
	d.subs[id] = h
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

func (d *dispatcher) each(fn func(Hooks)) {
	d.mu.RLock()
	subs := make([]Hooks, 0, len(d.subs))
	// subscription order
	for id := 0; id < d.nextID; id++ {
		if h, ok := d.subs[id]; ok {
			subs = append(subs, h)
		}
	}
	d.mu.RUnlock()

	for _, h := range subs {
		fn(h)
	}
}

func (d *dispatcher) persist(reason string) {
	if d.persister == nil {
		return
	}
	if err := d.persister.SaveState(); err != nil {
		log.Warn("failed to persist view state", "reason", reason, "error", err)
	}
}
