package kv

import (
	"fmt"
	"sort"
	"sync"
)

// committedVersion is one entry in a key's committed history, ordered
// ascending by CommitTS. Table.4.C's data model calls this "the ordered
// sequence of committed Updates by commit_ts."
type committedVersion struct {
	CommitTS  Timestamp
	DurableTS Timestamp
	Value     Value
	Tombstone bool

	// Seq is the database's monotonic commit sequence number assigned when
	// this version was committed — independent of CommitTS, which a caller
	// can set to any value (including one that predates other commits).
	// Write-write conflict detection is done against Seq, not CommitTS,
	// since a transaction's ReadTS is a visibility parameter the caller
	// chooses, not a record of when it actually began relative to other
	// transactions.
	Seq uint64
}

// keyHistory is the per-key state: the committed chain plus at most one
// pending (uncommitted) Update per active transaction that has written this
// key.
type keyHistory struct {
	mu        sync.RWMutex
	committed []committedVersion
	pending   map[TxnID]*Update
}

func newKeyHistory() *keyHistory {
	return &keyHistory{pending: make(map[TxnID]*Update)}
}

// write records (or overwrites) txn's pending Update for this key.
func (h *keyHistory) write(txn TxnID, value Value, tombstone bool) *Update {
	h.mu.Lock()
	defer h.mu.Unlock()

	if u, ok := h.pending[txn]; ok {
		u.Value = value
		u.IsTombstone = tombstone
		return u
	}
	u := &Update{TxnID: txn, Value: value, IsTombstone: tombstone, State: UpdateStatePending}
	h.pending[txn] = u
	return u
}

// ownPending returns txn's own pending Update, if it wrote this key.
func (h *keyHistory) ownPending(txn TxnID) (*Update, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	u, ok := h.pending[txn]
	return u, ok
}

// otherPrepared returns a prepared (not yet committed) Update belonging to a
// transaction other than except, if one exists.
func (h *keyHistory) otherPrepared(except TxnID) (*Update, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, u := range h.pending {
		if id != except && u.State == UpdateStatePrepared {
			return u, true
		}
	}
	return nil, false
}

// prepare marks txn's pending Update as prepared. Reports false if txn has
// no pending write on this key.
func (h *keyHistory) prepare(txn TxnID, prepareTS Timestamp) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, ok := h.pending[txn]
	if !ok {
		return false
	}
	u.PrepareTS = prepareTS
	u.State = UpdateStatePrepared
	return true
}

// hasNewerCommit reports whether any committed version was sequenced after
// sinceSeq — the write-conflict test applied at commit time. sinceSeq is the
// database's global commit sequence counter as observed when the checking
// transaction began, not a timestamp: of two overlapping transactions that
// write the same key, the second to commit finds the first one's commit
// sequenced after its own begin and loses, regardless of what commit_ts
// either supplies.
func (h *keyHistory) hasNewerCommit(sinceSeq uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.committed)
	return n > 0 && h.committed[n-1].Seq > sinceSeq
}

// commit promotes txn's pending Update into the committed chain. Returns
// ErrInvalidArgument if another committed version already owns commitTS
// (I6: no two committed Updates for a key share a commit_ts). seq is the
// database's global commit sequence number assigned to this commit.
func (h *keyHistory) commit(txn TxnID, commitTS, durableTS Timestamp, seq uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, ok := h.pending[txn]
	if !ok {
		return fmt.Errorf("kv: commit of key with no pending write for txn %d: %w", txn, ErrInvalidArgument)
	}

	pos := sort.Search(len(h.committed), func(i int) bool { return h.committed[i].CommitTS >= commitTS })
	if pos < len(h.committed) && h.committed[pos].CommitTS == commitTS {
		return fmt.Errorf("kv: commit_ts %d already used for this key: %w", commitTS, ErrInvalidArgument)
	}

	cv := committedVersion{CommitTS: commitTS, DurableTS: durableTS, Value: u.Value, Tombstone: u.IsTombstone, Seq: seq}
	h.committed = append(h.committed, committedVersion{})
	copy(h.committed[pos+1:], h.committed[pos:])
	h.committed[pos] = cv

	u.CommitTS = commitTS
	u.DurableTS = durableTS
	u.State = UpdateStateCommitted
	delete(h.pending, txn)
	return nil
}

// abort discards txn's pending Update for this key, if any.
func (h *keyHistory) abort(txn TxnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, txn)
}

// visibleCommitted returns the committed version with the greatest CommitTS
// <= bound (or the newest committed version when latest is true).
func (h *keyHistory) visibleCommitted(bound Timestamp, latest bool) (committedVersion, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.committed)
	if n == 0 {
		return committedVersion{}, false
	}
	if latest {
		return h.committed[n-1], true
	}
	pos := sort.Search(n, func(i int) bool { return h.committed[i].CommitTS > bound }) - 1
	if pos < 0 {
		return committedVersion{}, false
	}
	return h.committed[pos], true
}

// snapshotUpTo copies the committed versions with CommitTS <= bound (all of
// them when unbounded is true) for materializing a checkpoint.
func (h *keyHistory) snapshotUpTo(bound Timestamp, unbounded bool) []committedVersion {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if unbounded {
		out := make([]committedVersion, len(h.committed))
		copy(out, h.committed)
		return out
	}
	n := sort.Search(len(h.committed), func(i int) bool { return h.committed[i].CommitTS > bound })
	out := make([]committedVersion, n)
	copy(out, h.committed[:n])
	return out
}

// TableFormat names the key/value encoding a table was configured with.
// Block cursors refuse to open on anything but FormatRowStoreRaw (I4.D's
// construction validation).
type TableFormat int

const (
	// FormatRowStoreRaw is a row store with raw byte-string key and value
	// format — the only format a block cursor can walk.
	FormatRowStoreRaw TableFormat = iota
	// FormatColumnStore and FormatOther stand in for the configurations a
	// block cursor must reject; this core does not implement a column
	// store, it only needs to recognize and refuse the configuration.
	FormatColumnStore
	FormatOther
)

// Table is a named mapping from key to key history. Keys are unique and
// iterate in lexicographic order on their byte representation.
type Table struct {
	Name   string
	Format TableFormat

	mu   sync.RWMutex
	keys map[string]*keyHistory
}

// NewTable creates an empty row-store table with raw byte key/value format.
func NewTable(name string) *Table {
	return NewTableWithFormat(name, FormatRowStoreRaw)
}

// NewTableWithFormat creates an empty table configured with the given
// format.
func NewTableWithFormat(name string, format TableFormat) *Table {
	return &Table{Name: name, Format: format, keys: make(map[string]*keyHistory)}
}

// history returns the keyHistory for key, creating it on first use.
func (t *Table) history(key string) *keyHistory {
	t.mu.RLock()
	h, ok := t.keys[key]
	t.mu.RUnlock()
	if ok {
		return h
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok = t.keys[key]; ok {
		return h
	}
	h = newKeyHistory()
	t.keys[key] = h
	return h
}

// Keys returns the table's current keys in lexicographic order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.keys))
	for k := range t.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
