package scroll

import (
	"sync"

	"github.com/clawscli/mesa/internal/log"
)

// ComputeFunc turns the latest raw scroll position into a row offset and
// writes it wherever the offset lives. It returns false when the
// computation had to be skipped (row height not yet measured).
type ComputeFunc func(scrollTop float64) (offset int, ok bool)

// Pipeline receives raw scroll notifications, debounces them and runs a
// ComputeFunc on settle.
//
// Notify and Settlement may be called from any goroutine. Everything else,
// including the ComputeFunc, runs on the goroutine behind the Poster.
type Pipeline struct {
	post      Poster
	debouncer *Debouncer
	compute   ComputeFunc

	mu        sync.Mutex
	scrollTop float64
	events    uint64
	pending   *Settlement
}

// NewPipeline wires a pipeline over an existing debouncer factory. The
// debouncer's callback is owned by the pipeline.
func NewPipeline(post Poster, newDebouncer func(fn func()) *Debouncer, compute ComputeFunc) *Pipeline {
	p := &Pipeline{post: post, compute: compute}
	p.debouncer = newDebouncer(p.settle)
	return p
}

// Debouncer exposes the underlying debouncer for reconfiguration. It must
// only be touched from the executor goroutine.
func (p *Pipeline) Debouncer() *Debouncer {
	return p.debouncer
}

// Notify records a raw scroll position and schedules recomputation. The
// returned settlement is live until the burst settles; concurrent events
// share it.
func (p *Pipeline) Notify(scrollTop float64) *Settlement {
	p.mu.Lock()
	p.scrollTop = scrollTop
	s := p.beginLocked()
	p.mu.Unlock()

	p.post(p.debouncer.Trigger)
	return s
}

// Refresh schedules recomputation at the last recorded scroll position.
func (p *Pipeline) Refresh() *Settlement {
	p.mu.Lock()
	s := p.beginLocked()
	p.mu.Unlock()

	p.post(p.debouncer.Trigger)
	return s
}

// ScrollTop returns the last recorded raw scroll position.
func (p *Pipeline) ScrollTop() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollTop
}

// Settlement returns the live settlement, or nil when nothing is in flight.
func (p *Pipeline) Settlement() *Settlement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Stop cancels any scheduled recomputation. The pending settlement, if
// any, is left unresolved.
func (p *Pipeline) Stop() {
	p.debouncer.Stop()
}

func (p *Pipeline) beginLocked() *Settlement {
	p.events++
	if p.pending == nil {
		p.pending = newSettlement()
	}
	return p.pending
}

func (p *Pipeline) settle() {
	p.mu.Lock()
	scrollTop := p.scrollTop
	events := p.events
	p.mu.Unlock()

	offset, ok := p.compute(scrollTop)
	if !ok {
		log.Debug("scroll recompute skipped", "scrollTop", scrollTop)
		return
	}

	p.mu.Lock()
	// a newer event arrived while computing; its own fire resolves the token
	if p.events != events {
		p.mu.Unlock()
		return
	}
	s := p.pending
	p.pending = nil
	p.mu.Unlock()

	if s != nil {
		s.resolve(offset)
	}
	log.Debug("scroll settled", "scrollTop", scrollTop, "offset", offset)
}
