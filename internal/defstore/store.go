// Package defstore holds the process-wide table of fetched definitions and
// the currently highlighted def.
//
// The store is the only mutable state shared between containers and the
// fetch layer. Writers (backends, UI actions) call Put and SetHighlighted;
// readers (containers) call Get and Highlighted and subscribe to change
// notifications.
//
// # Notification Order
//
// Subscribers are notified synchronously, in subscription order, after the
// store lock is released. A subscriber may read the store from its callback.
// A subscriber that needs to do real work should hand off to its own loop
// (as withdef.Container does) rather than block the writer.
package defstore

import (
	"log/slog"
	"sync"

	"github.com/roach88/withdef/internal/ir"
)

// Store is an in-memory, concurrency-safe definition store.
type Store struct {
	mu          sync.RWMutex
	defs        map[ir.DefKey]*ir.Def
	highlighted string

	subMu  sync.Mutex
	subs   []subscription
	nextID uint64
}

type subscription struct {
	id uint64
	fn func()
}

// New creates an empty store.
func New() *Store {
	return &Store{
		defs: make(map[ir.DefKey]*ir.Def),
	}
}

// Get returns the record for (repo, rev, def), or nil if none is held.
// An empty def never matches.
func (s *Store) Get(repo, rev, def string) *ir.Def {
	if def == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defs[ir.DefKey{Repo: repo, Rev: rev, Def: def}]
}

// Has reports whether a record is held for k.
func (s *Store) Has(k ir.DefKey) bool {
	return s.Get(k.Repo, k.Rev, k.Def) != nil
}

// Put stores d under d.Key and notifies subscribers.
//
// The store keeps its own copy, so every Put yields a new pointer even when
// the caller reuses d. Readers compare pointers to detect updates.
func (s *Store) Put(d ir.Def) {
	rec := d
	if d.Error != nil {
		e := *d.Error
		rec.Error = &e
	}

	s.mu.Lock()
	s.defs[d.Key] = &rec
	s.mu.Unlock()

	slog.Debug("def stored",
		"repo", d.Key.Repo,
		"rev", d.Key.Rev,
		"def", d.Key.Def,
		"failed", rec.Failed(),
	)

	s.notify()
}

// Delete removes the record for k, if any, and notifies subscribers.
func (s *Store) Delete(k ir.DefKey) {
	s.mu.Lock()
	_, ok := s.defs[k]
	delete(s.defs, k)
	s.mu.Unlock()

	if ok {
		s.notify()
	}
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.defs)
}

// Highlighted returns the highlighted def spec, or "" when none is set.
func (s *Store) Highlighted() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highlighted
}

// SetHighlighted sets the highlighted def spec and notifies subscribers if
// it changed.
func (s *Store) SetHighlighted(spec string) {
	s.mu.Lock()
	changed := s.highlighted != spec
	s.highlighted = spec
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// ClearHighlighted is SetHighlighted("").
func (s *Store) ClearHighlighted() {
	s.SetHighlighted("")
}

// Subscribe registers fn for change notifications.
// The returned func unsubscribes; calling it more than once is safe.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

func (s *Store) unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// notify calls every subscriber. The list is snapshotted so callbacks may
// subscribe or unsubscribe without deadlocking.
func (s *Store) notify() {
	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn()
	}
}
