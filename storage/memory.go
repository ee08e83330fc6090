package storage

import (
	"sort"
	"sync"
)

// Structs

// MemoryStore is an in-memory implementation of Store guarded
// by a read-write mutex. Payloads are copied on the way in and
// out so that callers can never alias internal state.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// Functions

// NewMemoryStore returns an initialized, empty in-memory
// record store.
func NewMemoryStore() *MemoryStore {

	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Put stores the supplied payload under the supplied key,
// overwriting any previous payload.
func (s *MemoryStore) Put(key string, payload []byte) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), payload...)

	return nil
}

// Get returns the payload stored under the supplied key or
// ErrNoRecord if the key is absent.
func (s *MemoryStore) Get(key string) ([]byte, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, found := s.data[key]
	if !found {
		return nil, ErrNoRecord
	}

	return append([]byte(nil), payload...), nil
}

// Exists reports whether a record is stored under the
// supplied key.
func (s *MemoryStore) Exists(key string) (bool, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, found := s.data[key]

	return found, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count() (int, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data), nil
}

// List returns all stored records ordered by key.
func (s *MemoryStore) List() ([]KeyedRecord, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]KeyedRecord, 0, len(keys))
	for _, key := range keys {
		records = append(records, KeyedRecord{
			Key:     key,
			Payload: append([]byte(nil), s.data[key]...),
		})
	}

	return records, nil
}
