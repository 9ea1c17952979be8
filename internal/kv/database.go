package kv

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Frankenstein-xin/wiredtiger/internal/corruptflag"
	"github.com/Frankenstein-xin/wiredtiger/internal/metrics"
	"github.com/Frankenstein-xin/wiredtiger/internal/wtlog"
)

// Database holds a set of tables, the database-global stable timestamp, the
// set of live checkpoints, and the transactions currently in flight against
// it.
type Database struct {
	log zerolog.Logger

	mu              sync.RWMutex
	tables          map[string]*Table
	stableTS        Timestamp
	stableEverSet   bool
	namedCheckpoint map[string]*Checkpoint
	unnamedCkpt     *Checkpoint
	activeTxns      map[TxnID]*Transaction

	nextTxnID atomic.Uint64

	// commitSeq is a monotonic logical clock, bumped once per commit and
	// captured by each transaction at begin time, used to order concurrent
	// writers for write-write conflict detection independent of the
	// caller-chosen commit_ts/read_ts values.
	commitSeq atomic.Uint64

	// Corrupt is the connection-wide data-corruption latch. The block
	// manager's read path sets it; it is surfaced here because it is
	// scoped to the lifetime of a database handle, not a module variable.
	Corrupt corruptflag.Flag

	sweeper *cron.Cron

	committedCount atomic.Uint64
	abortedCount   atomic.Uint64
	checkpointCnt  atomic.Uint64
}

// NewDatabase creates an empty Database.
func NewDatabase() *Database {
	return &Database{
		log:             wtlog.WithComponent("kv"),
		tables:          make(map[string]*Table),
		namedCheckpoint: make(map[string]*Checkpoint),
		activeTxns:      make(map[TxnID]*Transaction),
	}
}

// CreateTable registers a new, empty table. Re-creating an existing name
// returns the existing table unchanged.
func (db *Database) CreateTable(name string) *Table {
	return db.CreateTableWithFormat(name, FormatRowStoreRaw)
}

// CreateTableWithFormat registers a new, empty table with the given format.
// Re-creating an existing name returns the existing table unchanged.
func (db *Database) CreateTableWithFormat(name string, format TableFormat) *Table {
	db.mu.Lock()
	defer db.mu.Unlock()
	if t, ok := db.tables[name]; ok {
		return t
	}
	t := NewTableWithFormat(name, format)
	db.tables[name] = t
	db.log.Debug().Str("table", name).Msg("table created")
	return t
}

// Table returns a registered table, or nil if name is unknown.
func (db *Database) Table(name string) *Table {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.tables[name]
}

func (db *Database) snapshotTables() map[string]*Table {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]*Table, len(db.tables))
	for k, v := range db.tables {
		out[k] = v
	}
	return out
}

// BeginTransaction starts a new transaction with the given read timestamp
// (NoTimestamp or LatestTimestamp both mean "see the latest committed
// data").
func (db *Database) BeginTransaction(readTS Timestamp) *Transaction {
	id := TxnID(db.nextTxnID.Add(1))
	beginSeq := db.commitSeq.Load()
	tx := newTransaction(id, db, readTS, beginSeq)

	db.mu.Lock()
	db.activeTxns[id] = tx
	db.mu.Unlock()

	metrics.ActiveTransactions.Inc()
	return tx
}

func (db *Database) onCommit(tx *Transaction) {
	db.mu.Lock()
	delete(db.activeTxns, tx.ID)
	db.mu.Unlock()

	db.committedCount.Add(1)
	metrics.ActiveTransactions.Dec()
	metrics.TransactionsCommittedTotal.Inc()
	db.log.Debug().Uint64("txn_id", uint64(tx.ID)).Uint64("commit_ts", uint64(tx.commitTS)).Msg("transaction committed")
}

func (db *Database) onAbort(tx *Transaction) {
	db.mu.Lock()
	delete(db.activeTxns, tx.ID)
	db.mu.Unlock()

	db.abortedCount.Add(1)
	metrics.ActiveTransactions.Dec()
	metrics.TransactionsAbortedTotal.Inc()
	db.log.Debug().Uint64("txn_id", uint64(tx.ID)).Msg("transaction aborted")
}

// SetStableTimestamp attempts to advance the database-global stable
// timestamp. Per I3, it only ever moves forward: an attempt to set it to a
// value at or below the current stable_ts is silently ignored and reports
// false.
func (db *Database) SetStableTimestamp(ts Timestamp) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.stableEverSet && ts <= db.stableTS {
		return false
	}
	db.stableTS = ts
	db.stableEverSet = true
	metrics.StableTimestamp.Set(float64(ts))
	db.log.Info().Uint64("stable_ts", uint64(ts)).Msg("stable timestamp advanced")
	return true
}

// StableTimestamp returns the current stable_ts (zero if never set).
func (db *Database) StableTimestamp() Timestamp {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.stableTS
}

// CreateCheckpoint materializes a new checkpoint. An empty name creates (or
// replaces) the unnamed checkpoint; a non-empty name registers a named,
// independently addressable checkpoint.
func (db *Database) CreateCheckpoint(name string) *Checkpoint {
	db.mu.Lock()
	stableTS := db.stableTS
	unbounded := !db.stableEverSet
	db.mu.Unlock()

	ck := newCheckpoint(name, db, stableTS, unbounded)

	db.mu.Lock()
	if name == "" {
		db.unnamedCkpt = ck
	} else {
		db.namedCheckpoint[name] = ck
	}
	db.mu.Unlock()

	db.checkpointCnt.Add(1)
	metrics.CheckpointsTotal.WithLabelValues(name).Inc()
	db.log.Info().Str("checkpoint", name).Uint64("stable_ts", uint64(stableTS)).Bool("unbounded", unbounded).Msg("checkpoint created")
	return ck
}

// Checkpoint looks up a checkpoint by name; an empty name selects the most
// recently created unnamed checkpoint.
func (db *Database) Checkpoint(name string) (*Checkpoint, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if name == "" {
		if db.unnamedCkpt == nil {
			return nil, ErrCheckpointNotFound
		}
		return db.unnamedCkpt, nil
	}
	ck, ok := db.namedCheckpoint[name]
	if !ok {
		return nil, ErrCheckpointNotFound
	}
	return ck, nil
}

// Stats is the set of counters Database.Stats() surfaces, mirroring the
// catalog-level bookkeeping a WiredTiger connection handle would expose.
type Stats struct {
	ActiveTransactions    int
	TransactionsCommitted uint64
	TransactionsAborted   uint64
	CheckpointsCreated    uint64
	StableTimestamp       Timestamp
	Corrupt               bool
}

// Stats returns a point-in-time snapshot of the database's counters.
func (db *Database) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return Stats{
		ActiveTransactions:    len(db.activeTxns),
		TransactionsCommitted: db.committedCount.Load(),
		TransactionsAborted:   db.abortedCount.Load(),
		CheckpointsCreated:    db.checkpointCnt.Load(),
		StableTimestamp:       db.stableTS,
		Corrupt:               db.Corrupt.IsSet(),
	}
}

// StartCheckpointSweeper schedules a periodic unnamed checkpoint using the
// same cron construction the teacher's job scheduler uses
// (cron.New(cron.WithSeconds())), giving long-running databases a durability
// point without requiring callers to drive checkpoints manually.
func (db *Database) StartCheckpointSweeper(spec string) error {
	db.mu.Lock()
	if db.sweeper != nil {
		db.mu.Unlock()
		return fmt.Errorf("kv: checkpoint sweeper already running: %w", ErrInvalidArgument)
	}
	c := cron.New(cron.WithSeconds())
	db.sweeper = c
	db.mu.Unlock()

	_, err := c.AddFunc(spec, func() {
		token := uuid.NewString()
		db.log.Debug().Str("sweep_token", token).Msg("checkpoint sweep firing")
		db.CreateCheckpoint("")
	})
	if err != nil {
		return fmt.Errorf("kv: invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	return nil
}

// StopCheckpointSweeper stops the periodic sweep started by
// StartCheckpointSweeper, if any.
func (db *Database) StopCheckpointSweeper() {
	db.mu.Lock()
	c := db.sweeper
	db.sweeper = nil
	db.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
