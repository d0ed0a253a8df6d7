package refs

import "errors"

var (
	ErrNotFound          = errors.New("reference not found")
	ErrAlreadyExists     = errors.New("reference already exists")
	ErrNameConflict      = errors.New("reference name conflicts with an existing reference")
	ErrStaleTarget       = errors.New("reference target changed")
	ErrCyclicReference   = errors.New("cyclic symbolic reference")
	ErrChainTooDeep      = errors.New("symbolic reference chain too deep")
	ErrDanglingReference = errors.New("dangling symbolic reference")
)

// Backend persists reference records. Each method must be atomic with
// respect to the named record: Create in particular must not let two
// callers both observe absence and both succeed.
type Backend interface {
	// Read returns ErrNotFound when name has no record.
	Read(name string) (Record, error)
	// Create stores rec, failing with ErrAlreadyExists if a record exists.
	Create(rec Record) error
	// Update stores rec unconditionally when old is nil. Otherwise the
	// current target must equal *old, or ErrStaleTarget is returned; a zero
	// *old means the record must not exist yet.
	Update(rec Record, old *Target) error
	// Delete returns ErrNotFound when name has no record.
	Delete(name string) error
	// Names lists record names starting with prefix, in any order.
	Names(prefix string) ([]string, error)
}
