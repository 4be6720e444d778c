// Package dispatch carries fetch requests from containers to the fetch
// layer.
//
// Dispatch is one-way: a container pushes an ir.WantDef and returns
// immediately. The dispatcher's Run loop hands each request to every
// registered Backend in registration order. Results are never returned to
// the sender; backends publish them by writing to the store, which in turn
// notifies the containers.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/withdef/internal/ir"
	"github.com/roach88/withdef/internal/queue"
)

// Backend handles fetch requests.
type Backend interface {
	Handle(ctx context.Context, req ir.WantDef) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req ir.WantDef) error

// Handle calls f(ctx, req).
func (f BackendFunc) Handle(ctx context.Context, req ir.WantDef) error {
	return f(ctx, req)
}

// Dispatcher is a fire-and-forget request bus.
//
// Thread-safety model:
//   - Dispatch(), Register(): safe from any goroutine
//   - Run() or Drain(): must be called from exactly one goroutine
type Dispatcher struct {
	queue *queue.Queue[ir.WantDef]
	ids   RequestIDGenerator

	mu       sync.RWMutex
	backends []Backend
}

// New creates a Dispatcher. A nil ids uses UUIDv7Generator.
func New(ids RequestIDGenerator) *Dispatcher {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Dispatcher{
		queue: queue.New[ir.WantDef](),
		ids:   ids,
	}
}

// Register appends b to the backends that receive every request.
func (d *Dispatcher) Register(b Backend) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backends = append(d.backends, b)
}

// Dispatch enqueues req without blocking. A request without an ID is
// stamped with a fresh one. Requests sent after Stop are dropped.
func (d *Dispatcher) Dispatch(req ir.WantDef) {
	if req.ID == "" {
		req.ID = d.ids.Generate()
	}

	if !d.queue.Push(req) {
		slog.Warn("dispatcher stopped, dropping request",
			"request_id", req.ID,
			"repo", req.Key.Repo,
			"rev", req.Key.Rev,
			"def", req.Key.Def,
		)
		return
	}

	slog.Debug("request dispatched",
		"request_id", req.ID,
		"repo", req.Key.Repo,
		"rev", req.Key.Rev,
		"def", req.Key.Def,
	)
}

// Run delivers requests until ctx is cancelled or Stop is called.
//
// A backend error is logged and delivery continues; the dispatcher never
// retries.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("dispatcher starting")

	for {
		if req, ok := d.queue.TryPop(); ok {
			d.deliver(ctx, req)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("dispatcher stopping: context cancelled")
			d.queue.Close()
			return ctx.Err()

		case <-d.queue.Wait():
			if d.queue.Closed() && d.queue.Len() == 0 {
				slog.Info("dispatcher stopping: queue closed")
				return nil
			}
		}
	}
}

// Drain delivers every queued request, including requests enqueued by
// backends while draining, and returns how many were delivered.
func (d *Dispatcher) Drain(ctx context.Context) int {
	n := 0
	for {
		req, ok := d.queue.TryPop()
		if !ok {
			return n
		}
		d.deliver(ctx, req)
		n++
	}
}

// Stop closes the queue. Run returns once queued requests are delivered.
func (d *Dispatcher) Stop() {
	d.queue.Close()
}

// Pending returns the number of undelivered requests.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

func (d *Dispatcher) deliver(ctx context.Context, req ir.WantDef) {
	d.mu.RLock()
	backends := make([]Backend, len(d.backends))
	copy(backends, d.backends)
	d.mu.RUnlock()

	for i, b := range backends {
		if err := d.handle(ctx, b, req); err != nil {
			slog.Error("backend failed",
				"error", err,
				"backend", i,
				"request_id", req.ID,
				"repo", req.Key.Repo,
				"rev", req.Key.Rev,
				"def", req.Key.Def,
			)
		}
	}
}

// handle isolates a panicking backend so one bad backend cannot stop the
// loop.
func (d *Dispatcher) handle(ctx context.Context, b Backend, req ir.WantDef) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return b.Handle(ctx, req)
}
