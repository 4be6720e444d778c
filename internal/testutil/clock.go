// Package testutil holds deterministic stand-ins for the time- and
// randomness-dependent parts of the runtime, for harness runs and tests.
package testutil

import "sync"

// Sequence is a thread-safe monotonic counter. The harness stamps every
// trace event with its next value so traces are byte-identical across runs.
type Sequence struct {
	mu  sync.Mutex
	seq int64
}

// NewSequence creates a sequence whose first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next increments and returns the next value.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Current returns the last value handed out, or 0.
func (s *Sequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset rewinds the sequence so the next call to Next returns 1.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}
