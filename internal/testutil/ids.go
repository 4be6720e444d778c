package testutil

import "fmt"

// SequentialIDs hands out request IDs of the form "<prefix>-<n>", n from 1.
//
// Implements dispatch.RequestIDGenerator. Unlike dispatch.FixedGenerator it
// never runs out, so scenarios need not know how many fetches they cause.
type SequentialIDs struct {
	prefix string
	seq    *Sequence
}

// NewSequentialIDs creates a generator. An empty prefix defaults to "req".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "req"
	}
	return &SequentialIDs{prefix: prefix, seq: NewSequence()}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.seq.Next())
}
