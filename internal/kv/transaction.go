package kv

import (
	"fmt"
	"sync"
)

// TxnID is a unique transaction identifier, assigned monotonically by the
// owning Database.
type TxnID uint64

// TxnState is where a Transaction sits in its state machine:
// active -> (prepared?) -> {committed | aborted}. Terminal states are
// immutable.
type TxnState uint8

const (
	TxnActive TxnState = iota
	TxnPrepared
	TxnCommitted
	TxnAborted
)

func (s TxnState) String() string {
	switch s {
	case TxnActive:
		return "active"
	case TxnPrepared:
		return "prepared"
	case TxnCommitted:
		return "committed"
	case TxnAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

type writtenKey struct {
	table *Table
	key   string
}

// Transaction is a single unit of work against a Database: a read snapshot
// plus a set of pending writes that become visible together at commit, or
// vanish together on rollback.
type Transaction struct {
	ID     TxnID
	db     *Database
	ReadTS Timestamp

	// beginSeq is the database's global commit sequence counter as observed
	// when this transaction began. It is the write-conflict baseline: a
	// concurrent commit is a conflict only if it landed after this
	// transaction started, regardless of ReadTS (which governs visibility,
	// not concurrency control, and is commonly NoTimestamp/LatestTimestamp
	// for non-timestamped transactions).
	beginSeq uint64

	mu        sync.Mutex
	state     TxnState
	prepareTS Timestamp
	commitTS  Timestamp
	durableTS Timestamp
	writes    []writtenKey
	wroteKey  map[writtenKey]struct{}
}

func newTransaction(id TxnID, db *Database, readTS Timestamp, beginSeq uint64) *Transaction {
	return &Transaction{
		ID:       id,
		db:       db,
		ReadTS:   readTS,
		beginSeq: beginSeq,
		state:    TxnActive,
		wroteKey: make(map[writtenKey]struct{}),
	}
}

// State returns the transaction's current state.
func (tx *Transaction) State() TxnState {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

// Write records a value for key in table, visible only to this transaction
// (read-your-writes) until commit.
func (tx *Transaction) Write(table *Table, key string, value Value) error {
	return tx.put(table, key, value, false)
}

// Delete writes a tombstone for key in table.
func (tx *Transaction) Delete(table *Table, key string) error {
	return tx.put(table, key, nil, true)
}

func (tx *Transaction) put(table *Table, key string, value Value, tombstone bool) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != TxnActive {
		return fmt.Errorf("kv: write on %s transaction: %w", tx.state, ErrTxNotActive)
	}

	h := table.history(key)
	h.write(tx.ID, value, tombstone)

	wk := writtenKey{table: table, key: key}
	if _, ok := tx.wroteKey[wk]; !ok {
		tx.wroteKey[wk] = struct{}{}
		tx.writes = append(tx.writes, wk)
	}
	return nil
}

// Get reads key from table under this transaction's snapshot: it sees its
// own pending writes first, then the committed Update with the greatest
// commit_ts <= ReadTS (or the latest committed Update when ReadTS is
// LatestTimestamp or NoTimestamp). A prepared Update from another transaction is reported
// as ErrPrepareConflict rather than falling through to the prior value.
func (tx *Transaction) Get(table *Table, key string) (Value, error) {
	tx.mu.Lock()
	state := tx.state
	tx.mu.Unlock()
	if state == TxnAborted || state == TxnCommitted {
		return nil, fmt.Errorf("kv: read on %s transaction: %w", state, ErrTxNotActive)
	}

	h := table.history(key)

	if own, ok := h.ownPending(tx.ID); ok {
		if own.IsTombstone {
			return nil, ErrNotFound
		}
		return own.Value, nil
	}

	if _, ok := h.otherPrepared(tx.ID); ok {
		return nil, ErrPrepareConflict
	}

	latest := tx.ReadTS == LatestTimestamp || tx.ReadTS == NoTimestamp
	cv, ok := h.visibleCommitted(tx.ReadTS, latest)
	if !ok || cv.Tombstone {
		return nil, ErrNotFound
	}
	return cv.Value, nil
}

// Prepare transitions an active transaction to the prepared state, locking
// in its writes' prepare_ts. A prepare with no writes is a permitted no-op.
func (tx *Transaction) Prepare(prepareTS Timestamp) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != TxnActive {
		return fmt.Errorf("kv: prepare on %s transaction: %w", tx.state, ErrTxNotActive)
	}

	for _, wk := range tx.writes {
		wk.table.history(wk.key).prepare(tx.ID, prepareTS)
	}
	tx.prepareTS = prepareTS
	tx.state = TxnPrepared
	return nil
}

// Commit assigns commit_ts and durable_ts to the transaction's writes and
// makes them visible to subsequent readers. durableTS defaults to commitTS
// when zero (I2: durable_ts >= commit_ts).
//
// A prepared transaction committing with commit_ts < prepare_ts, or with
// commit_ts less than the database's current stable_ts, is forced to
// aborted and reported through a *AbortError rather than a plain error —
// this is the engine's wiredtiger_abort_exception.
func (tx *Transaction) Commit(commitTS, durableTS Timestamp) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != TxnActive && tx.state != TxnPrepared {
		return fmt.Errorf("kv: commit on %s transaction: %w", tx.state, ErrTxNotActive)
	}
	if durableTS == NoTimestamp {
		durableTS = commitTS
	}
	if durableTS < commitTS {
		return fmt.Errorf("kv: durable_ts %d < commit_ts %d: %w", durableTS, commitTS, ErrInvalidArgument)
	}

	if tx.state == TxnPrepared {
		if commitTS < tx.prepareTS {
			tx.forceAbortLocked()
			return newAbort(fmt.Sprintf("commit_ts %d < prepare_ts %d", commitTS, tx.prepareTS))
		}
		if stable := tx.db.StableTimestamp(); commitTS < stable {
			tx.forceAbortLocked()
			return newAbort(fmt.Sprintf("commit_ts %d < stable_ts %d", commitTS, stable))
		}
	}

	for _, wk := range tx.writes {
		if wk.table.history(wk.key).hasNewerCommit(tx.beginSeq) {
			tx.rollbackLocked()
			return fmt.Errorf("kv: write conflict on key %q: %w", wk.key, ErrRollback)
		}
	}

	seq := tx.db.commitSeq.Add(1)
	for _, wk := range tx.writes {
		if err := wk.table.history(wk.key).commit(tx.ID, commitTS, durableTS, seq); err != nil {
			return err
		}
	}

	tx.commitTS = commitTS
	tx.durableTS = durableTS
	tx.state = TxnCommitted
	tx.db.onCommit(tx)
	return nil
}

// Rollback discards the transaction's pending writes and aborts it.
func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.state != TxnActive && tx.state != TxnPrepared {
		return fmt.Errorf("kv: rollback on %s transaction: %w", tx.state, ErrTxNotActive)
	}
	tx.rollbackLocked()
	return nil
}

func (tx *Transaction) rollbackLocked() {
	for _, wk := range tx.writes {
		wk.table.history(wk.key).abort(tx.ID)
	}
	tx.state = TxnAborted
	tx.db.onAbort(tx)
}

func (tx *Transaction) forceAbortLocked() {
	tx.rollbackLocked()
}
