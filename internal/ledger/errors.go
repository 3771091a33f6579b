package ledger

import "errors"

// Failure classes shared across the module. Callers match on these with
// errors.Is; the wrapping message carries the operation-specific detail.
var (
	// ErrValidation marks input rejected before any write happened.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks an operation that lost a race or collided with
	// existing data (duplicate account name, failed counter transaction).
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks a referenced record that does not exist.
	ErrNotFound = errors.New("not found")
)
