package tokenstore

import (
	"context"
	"errors"
)

// ErrNotFound means no record exists at the store's location yet.
var ErrNotFound = errors.New("token record not found")

// Receipt reports the outcome of a successful write. Warning carries a
// non-fatal degradation, e.g. a failed permission restriction: the record
// was persisted, but without the hardening the store aims for.
type Receipt struct {
	Warning error
}

// RecordStore reads and writes the serialized token record.
//
// Authentication needs writable storage: every successful token exchange is
// flushed back through Write.
type RecordStore interface {
	// Read returns the stored record bytes. Returns an error wrapping
	// ErrNotFound if no record exists.
	Read(ctx context.Context) ([]byte, error)

	// Write persists the record bytes. Returns an error if the backend is
	// read-only (e.g. environment variables) or the write fails.
	Write(ctx context.Context, data []byte) (Receipt, error)

	// Location describes where the record lives, for diagnostics.
	Location() string
}
