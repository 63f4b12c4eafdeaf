package record

import "sync"

// Store is an append-only, concurrency-safe collection of records.
//
// The order of the records is the order in which they were appended, which in a crawl is the completion order of the
// fetches rather than the input order.
type Store struct {
	mu      sync.Mutex
	records []Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a record at the end of the store.
func (s *Store) Append(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
}

// Records returns a snapshot of the stored records.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Record, len(s.records))
	copy(result, s.records)

	return result
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}
