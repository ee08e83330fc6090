package storage

import (
	"errors"
)

// Variables

// ErrNoRecord is returned by Get when no record is stored
// under the supplied key.
var ErrNoRecord = errors.New("no record stored under supplied key")

// Structs

// KeyedRecord pairs a record key with its stored payload for
// listing purposes.
type KeyedRecord struct {
	Key     string
	Payload []byte
}

// Interfaces

// Store is the keyed record store a ceres node writes applied
// operations into. A key, once present, is permanent for the
// node's session: there are no deletes. Implementations must
// be safe for concurrent use.
type Store interface {

	// Put stores the supplied payload under the supplied key,
	// overwriting any previous payload (idempotent upsert).
	Put(key string, payload []byte) error

	// Get returns the payload stored under the supplied key
	// or ErrNoRecord if the key is absent.
	Get(key string) ([]byte, error)

	// Exists reports whether a record is stored under the
	// supplied key.
	Exists(key string) (bool, error)

	// Count returns the number of stored records.
	Count() (int, error)

	// List returns all stored records ordered by key.
	List() ([]KeyedRecord, error)
}
