// Package blockmgr implements the block manager's read path: address-cookie
// decoding, checksum verification, chunk-cache coordination, and corruption
// handling for on-disk pages.
package blockmgr

import "errors"

var (
	// ErrInvalidArgument marks a malformed cookie or a size below the
	// configured allocation size.
	ErrInvalidArgument = errors.New("blockmgr: invalid argument")

	// ErrIOError surfaces a direct-read failure from the underlying block
	// handle.
	ErrIOError = errors.New("blockmgr: I/O error")

	// ErrCorruption marks a checksum or structure mismatch that survived a
	// chunk-cache-invalidate retry.
	ErrCorruption = errors.New("blockmgr: corruption detected")
)
