// Package withdef binds a definition held in the shared store to a
// presentational component.
//
// A Container runs one cycle per trigger (a property update or a store
// change notification):
//
//  1. Reconcile derives a fresh State from the props and a store snapshot.
//     It reads the store and never writes it.
//  2. Reactor.React compares the previous State with the new one and
//     dispatches fetch requests (and status reports) for exactly the deltas
//     that matter: identity changes, new record pointers, a newly
//     highlighted def.
//  3. Select picks the unavailable header or the wrapped component, and
//     Render produces the View.
//
// Fetch results are never awaited. They arrive later as store changes,
// which trigger the next cycle.
//
// # Concurrency
//
// Triggers are serialised through the container's FIFO queue and processed
// one at a time, either by Run in a dedicated goroutine or by Drain in the
// caller's goroutine. Never both. Reconciliations for one container never
// interleave.
package withdef
