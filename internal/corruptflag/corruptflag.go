// Package corruptflag implements the connection-wide data-corruption latch:
// a single monotonic flag that, once set, stays set for the process
// lifetime. It lives in its own package because both the transactional KV
// model and the block manager's read path need to observe and set it
// without introducing a dependency cycle between those two packages.
package corruptflag

import "sync/atomic"

// Flag is a set-once latch. The zero value is unset.
type Flag struct {
	set atomic.Bool
}

// SetOnce raises the flag. Idempotent: raising an already-set flag is a
// no-op and reports false.
func (f *Flag) SetOnce() (raised bool) {
	return f.set.CompareAndSwap(false, true)
}

// IsSet reports whether the flag has ever been raised.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}
