package ingest

import (
	"context"
	"sync"
	"time"
)

// Sink appends one row to a relation, stamping it with the insertion time.
// Appends are unconditional: no identity conflict resolution is attempted.
type Sink interface {
	Append(ctx context.Context, rel Relation, row Row) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rel Relation, row Row) error

// Append implements Sink.
func (f SinkFunc) Append(ctx context.Context, rel Relation, row Row) error {
	return f(ctx, rel, row)
}

// Entry is a row captured by MemorySink.
type Entry struct {
	Relation Relation
	Row      Row
	At       time.Time
}

// MemorySink keeps appended rows in memory. It backs dry runs and tests.
type MemorySink struct {
	// Now stamps entries; time.Now when nil.
	Now func() time.Time
	// Err, when set, is returned by every Append and nothing is stored.
	Err error

	mu      sync.Mutex
	entries []Entry
}

// Append implements Sink.
func (m *MemorySink) Append(_ context.Context, rel Relation, row Row) error {
	if m.Err != nil {
		return m.Err
	}
	if err := row.Validate(); err != nil {
		return err
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Relation: rel, Row: row, At: now()})
	return nil
}

// Entries returns a copy of everything appended so far.
func (m *MemorySink) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of rows appended so far.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
