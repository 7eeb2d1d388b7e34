package share

import (
	"MPC_SPDZ/pkg/ring"
)

// OpenedEntry is an authenticated value together with the plain value it was opened to.
// It is trusted but unverified until a MAC check succeeds on it.
type OpenedEntry struct {
	Value AuthenticatedValue
	Plain ring.Element
}

// OpenedValueStore accumulates opened values pending a MAC check.
// It belongs to exactly one computation lane and is not safe for concurrent mutation.
type OpenedValueStore struct {
	entries []OpenedEntry
}

// NewOpenedValueStore returns an empty store.
func NewOpenedValueStore() *OpenedValueStore {
	return &OpenedValueStore{}
}

// Record appends an opened value.
func (s *OpenedValueStore) Record(value AuthenticatedValue, plain ring.Element) {
	s.entries = append(s.entries, OpenedEntry{Value: value, Plain: plain})
}

// RecordAll appends values[i] opened to plains[i], for all i.
func (s *OpenedValueStore) RecordAll(values []AuthenticatedValue, plains []ring.Element) error {
	if len(values) != len(plains) {
		return ErrLengthMismatch
	}
	for i := range values {
		s.Record(values[i], plains[i])
	}
	return nil
}

// Peek returns a copy of the current entries without clearing them.
func (s *OpenedValueStore) Peek() []OpenedEntry {
	out := make([]OpenedEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Size returns the number of entries pending a check.
func (s *OpenedValueStore) Size() int {
	return len(s.entries)
}

// Empty reports whether no entry is pending.
func (s *OpenedValueStore) Empty() bool {
	return len(s.entries) == 0
}

// Clear removes every entry.
func (s *OpenedValueStore) Clear() {
	s.entries = nil
}

// Discard removes the n oldest entries, which is what a successful check of a
// batch of n entries does when more values were opened in the meantime.
func (s *OpenedValueStore) Discard(n int) error {
	if n > len(s.entries) || n < 0 {
		return ErrDiscardTooMany
	}
	if n == len(s.entries) {
		s.Clear()
		return nil
	}
	rest := make([]OpenedEntry, len(s.entries)-n)
	copy(rest, s.entries[n:])
	s.entries = rest
	return nil
}

// Close must be called when the lane is torn down. Unchecked opened values must
// never be trusted, so a non-empty store is an error.
func (s *OpenedValueStore) Close() error {
	if !s.Empty() {
		return ErrPendingOpened
	}
	return nil
}
