package cursor

import (
	"github.com/Frankenstein-xin/wiredtiger/internal/kv"
)

// source abstracts over the two scopes a block cursor can walk: a live
// transaction's snapshot of a table, or an immutable checkpoint. Both
// expose the same shape — an ordered key list and a visibility-aware get —
// so the walk logic in BlockCursor doesn't need to know which it has.
type source interface {
	keys() []string
	get(key string) (kv.Value, error)
}

type transactionSource struct {
	tx    *kv.Transaction
	table *kv.Table
}

func (s transactionSource) keys() []string { return s.table.Keys() }

func (s transactionSource) get(key string) (kv.Value, error) {
	return s.tx.Get(s.table, key)
}

type checkpointSource struct {
	ckpt      *kv.Checkpoint
	tableName string
}

func (s checkpointSource) keys() []string { return s.ckpt.Keys(s.tableName) }

func (s checkpointSource) get(key string) (kv.Value, error) {
	return s.ckpt.Get(s.tableName, key)
}
