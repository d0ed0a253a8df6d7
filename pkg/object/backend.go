package object

import "errors"

var (
	// ErrNotFound is returned when no object exists for a hash.
	ErrNotFound = errors.New("object not found")
	// ErrCorrupt is returned when stored bytes no longer hash to their key.
	ErrCorrupt = errors.New("object corrupt")
)

// Backend persists raw object envelopes ("type len\0content") keyed by hash.
// The Store computes hashes and parses envelopes; backends only move bytes.
// Implementations must be safe for concurrent use, and WriteRaw of a hash
// that already exists must leave the stored bytes intact.
type Backend interface {
	ReadRaw(h Hash) ([]byte, error)
	WriteRaw(h Hash, raw []byte) error
	HasRaw(h Hash) (bool, error)
	DeleteRaw(h Hash) error
	ListHashes() ([]Hash, error)
}
