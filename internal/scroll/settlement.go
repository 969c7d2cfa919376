package scroll

import (
	"context"
	"sync"
	"sync/atomic"
)

// Settlement is resolved once the debounced recomputation of a scroll burst
// has written its offset. A settlement that is superseded is never resolved.
type Settlement struct {
	done   chan struct{}
	once   sync.Once
	offset atomic.Int64
}

func newSettlement() *Settlement {
	return &Settlement{done: make(chan struct{})}
}

func (s *Settlement) resolve(offset int) {
	s.once.Do(func() {
		s.offset.Store(int64(offset))
		close(s.done)
	})
}

// Done is closed when the window has stabilized.
func (s *Settlement) Done() <-chan struct{} {
	return s.done
}

// Settled reports whether the settlement has been resolved.
func (s *Settlement) Settled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the settlement resolves or ctx is done.
func (s *Settlement) Wait(ctx context.Context) (int, error) {
	select {
	case <-s.done:
		return s.Offset(), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Offset is the row offset written by the recomputation. It is only
// meaningful once Done is closed.
func (s *Settlement) Offset() int {
	return int(s.offset.Load())
}
