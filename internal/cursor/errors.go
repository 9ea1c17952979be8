// Package cursor implements the block cursor: a bounded batch iterator over
// a row-store table's raw byte key/value pairs, scoped to either a live
// transaction's snapshot or an immutable checkpoint.
package cursor

import "errors"

var (
	// ErrInvalidArgument marks a cursor opened against a table that is not
	// a row store with raw byte key/value format.
	ErrInvalidArgument = errors.New("cursor: invalid argument")

	// ErrNotFound marks a batch call made with no remaining rows to yield
	// as its very first step.
	ErrNotFound = errors.New("cursor: no more rows")
)
