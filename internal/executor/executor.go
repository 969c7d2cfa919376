// Package executor runs submitted tasks one at a time, in submission order,
// on a single goroutine. It is the only place engine state is mutated.
package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/clawscli/mesa/internal/log"
)

// ErrClosed is returned when work is submitted after Close.
var ErrClosed = errors.New("executor: closed")

// Executor is an unbounded FIFO task queue drained by one goroutine.
// Post never blocks, so it is safe to call from timer callbacks.
type Executor struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// New starts an executor.
func New() *Executor {
	e := &Executor{done: make(chan struct{})}
	e.cond = sync.NewCond(&e.mu)
	go e.run()
	return e
}

// Post queues fn and reports whether it was accepted.
func (e *Executor) Post(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.queue = append(e.queue, fn)
	e.cond.Signal()
	return true
}

// Sync blocks until every task posted before the call has run.
// It must not be called from inside a task.
func (e *Executor) Sync(ctx context.Context) error {
	reached := make(chan struct{})
	if !e.Post(func() { close(reached) }) {
		return ErrClosed
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work, runs what is already queued and returns once
// the worker goroutine has exited.
func (e *Executor) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		e.cond.Signal()
	}
	e.mu.Unlock()
	<-e.done
}

// Done is closed when the worker goroutine exits.
func (e *Executor) Done() <-chan struct{} {
	return e.done
}

func (e *Executor) run() {
	defer close(e.done)
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.queue) == 0 && e.closed {
			e.mu.Unlock()
			return
		}
		batch := e.queue
		e.queue = nil
		e.mu.Unlock()

		for _, fn := range batch {
			e.runTask(fn)
		}
	}
}

func (e *Executor) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("executor task panicked", "panic", r)
		}
	}()
	fn()
}
