// Package api declares the key-value store interface every walletd storage
// backend implements. The store is schemaless and has no transactions: each
// key is its own consistency unit.
package api

import (
	"errors"
)

// ErrNotFound is returned when a key doesn't exist in the store.
var ErrNotFound = errors.New("key not found")

// Store is an opaque string-keyed byte store. Implementations must be safe
// for concurrent use, but they give no atomicity guarantees across a
// get-modify-set sequence: callers racing on the same key can lose updates.
type Store interface {
	// Get returns the value stored for the key, or ErrNotFound.
	Get(key string) (value []byte, err error)

	// GetAll returns a snapshot of every key-value pair in the store.
	GetAll() (values map[string][]byte, err error)

	// Set stores the value for the key, overwriting any previous value.
	Set(key string, value []byte) error

	// Remove deletes the key. Removing a missing key is not an error.
	Remove(key string) error
}

// Backuper is implemented by stores that can write a consistent copy of
// themselves to a file.
type Backuper interface {
	Backup(name string) error
}
