package kv

import "errors"

// Sentinel errors surfaced at the transaction-layer boundary. Callers test
// against these with errors.Is; internal call sites wrap them with %w.
var (
	// ErrNotFound is the expected-absence case: key missing, or the visible
	// candidate for a key is a tombstone.
	ErrNotFound = errors.New("wiredtiger: not found")

	// ErrRollback marks a write conflict: two active transactions wrote the
	// same key and this one lost the race to commit second.
	ErrRollback = errors.New("wiredtiger: rollback")

	// ErrPrepareConflict is returned when a snapshot read's visible
	// candidate is a prepared-but-not-committed update.
	ErrPrepareConflict = errors.New("wiredtiger: prepare conflict")

	// ErrDuplicateKey is the boundary code for inserting a key that already
	// has a visible value. No operation in this package returns it: Write
	// always overwrites.
	ErrDuplicateKey = errors.New("wiredtiger: duplicate key")

	// ErrInvalidArgument marks a validation failure: malformed config
	// string, illegal transaction state transition, bad checkpoint name.
	ErrInvalidArgument = errors.New("wiredtiger: invalid argument")

	// ErrTxNotActive is returned when an operation requiring an active
	// transaction is attempted on a prepared, committed, or aborted one.
	ErrTxNotActive = errors.New("wiredtiger: transaction not active")

	// ErrCheckpointNotFound is returned when a named checkpoint lookup
	// misses.
	ErrCheckpointNotFound = errors.New("wiredtiger: checkpoint not found")
)

// AbortError is the dedicated abort condition raised for illegal
// transaction-state transitions (spec: "wiredtiger_abort_exception"). It is
// distinct from the recoverable sentinel errors above: callers are not
// expected to retry past it, only to observe that the transaction has been
// forced into the aborted state.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	return "wiredtiger_abort_exception: " + e.Reason
}

func newAbort(reason string) *AbortError {
	return &AbortError{Reason: reason}
}
