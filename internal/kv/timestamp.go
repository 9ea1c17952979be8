package kv

// Timestamp is an unsigned 64-bit monotonic logical clock. Timestamps are
// assigned by callers, not by this package — the reference model only
// enforces ordering invariants among them.
type Timestamp uint64

const (
	// NoTimestamp ("NONE") means "no timestamp assigned" — used for reads
	// that want the latest committed value and for non-timestamped writes.
	NoTimestamp Timestamp = 0

	// LatestTimestamp ("LATEST") is the sentinel a reader passes to mean
	// "the greatest committed update, whatever its commit_ts."
	LatestTimestamp Timestamp = ^Timestamp(0)
)
