package types

import "errors"

// ItemStore is a flat, string-keyed persistent store. Keys are independent;
// there is no ordering guarantee across keys beyond what Keys documents.
type ItemStore interface {
	// GetItem returns the value stored under key. The boolean is false when
	// the key is absent.
	GetItem(key string) (string, bool, error)

	// SetItem stores value under key, replacing any previous value.
	// Failures wrap ErrStorageWrite.
	SetItem(key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(key string) error

	// Keys returns every stored key in ascending order.
	Keys() ([]string, error)
}

// Store is an ItemStore with a backend lifecycle. Callers attach to a
// backend, read and write items, and detach when done.
type Store interface {
	ItemStore

	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, item operations return ErrDetached.
	Detach() error
}

// Store lifecycle errors.
var (
	ErrDetached        = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrInvalidKey      = errors.New("key must not be empty")
	ErrQuotaExceeded   = errors.New("storage quota exceeded")
)

// Storage error taxonomy. Public app-facing operations catch these and
// degrade to false or nil results.
var (
	// ErrSerialization: a value cannot round-trip through JSON or the codec.
	ErrSerialization = errors.New("serialization failed")
	// ErrStorageWrite: the underlying store rejected a write.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrStorageCorrupt: stored bytes failed to decode or parse.
	ErrStorageCorrupt = errors.New("stored data is corrupt")
	// ErrNotFound: the requested record does not exist.
	ErrNotFound = errors.New("not found")
)
