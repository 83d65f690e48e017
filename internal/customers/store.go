package customers

import (
	"context"
	"sort"
	"sync"

	"acip/internal/sentinel"
)

// Store is an in-memory customer record store.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record)}
}

// NewSeededStore creates a store pre-loaded with the demo customer records.
func NewSeededStore() *Store {
	s := NewStore()
	for _, r := range seedRecords {
		s.records[r.CustomerID] = r
	}
	return s
}

var seedRecords = []Record{
	{
		CustomerID:   "CUST-001",
		FirstName:    "CRAIG",
		LastName:     "MENON",
		DOB:          "1981-01-20",
		IDNumber:     "B01194",
		DocumentType: "DRIVING_LICENSE",
		Email:        "craig.menon@example.com",
	},
	{
		CustomerID:   "CUST-002",
		FirstName:    "JANE",
		LastName:     "CITIZEN",
		DOB:          "1991-05-04",
		IDNumber:     "RA0123456",
		DocumentType: "PASSPORT",
		Email:        "jane.citizen@example.com",
	},
	{
		CustomerID:   "CUST-003",
		FirstName:    "ALICE",
		LastName:     "WONDER",
		DOB:          "1992-03-10",
		IDNumber:     "P11223344",
		DocumentType: "PASSPORT",
		Email:        "alice.wonder@example.com",
	},
	{
		CustomerID:   "CUST-004",
		FirstName:    "BOB",
		LastName:     "BUILDER",
		DOB:          "1980-11-20",
		IDNumber:     "L55667788",
		DocumentType: "DRIVING_LICENSE",
		Email:        "bob.builder@example.com",
	},
}

// Get returns the record for the given customer ID.
// Returns sentinel.ErrNotFound if the customer does not exist.
func (s *Store) Get(_ context.Context, customerID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[customerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

// List returns all records ordered by customer ID.
func (s *Store) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// Put inserts or replaces a record.
func (s *Store) Put(_ context.Context, r Record) error {
	if r.CustomerID == "" {
		return sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.CustomerID] = r
	return nil
}
