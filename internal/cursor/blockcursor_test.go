package cursor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Frankenstein-xin/wiredtiger/internal/kv"
)

func seedTable(t *testing.T, db *kv.Database, table *kv.Table, n int) {
	t.Helper()
	tx := db.BeginTransaction(kv.NoTimestamp)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%03d", i)
		if err := tx.Write(table, key, kv.Value(fmt.Sprintf("v%03d", i))); err != nil {
			t.Fatalf("Write %s: %v", key, err)
		}
	}
	if err := tx.Commit(kv.Timestamp(10), kv.NoTimestamp); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestNewFromTransactionRejectsNonRawFormat(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTableWithFormat("t", kv.FormatColumnStore)
	tx := db.BeginTransaction(kv.LatestTimestamp)
	if _, err := NewFromTransaction(tx, table, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("NewFromTransaction on column store = %v, want ErrInvalidArgument", err)
	}
}

func TestNextRawNWithinSinglePage(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTable("t")
	seedTable(t, db, table, 5)

	tx := db.BeginTransaction(kv.LatestTimestamp)
	c, err := NewFromTransaction(tx, table, 0)
	if err != nil {
		t.Fatalf("NewFromTransaction: %v", err)
	}

	keys, values, n, err := c.NextRawN(10)
	if err != nil {
		t.Fatalf("NextRawN: %v", err)
	}
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
	for i := 0; i < n; i++ {
		want := fmt.Sprintf("k%03d", i)
		if string(keys[i]) != want {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want)
		}
		if string(values[i]) != fmt.Sprintf("v%03d", i) {
			t.Fatalf("values[%d] = %q, want v%03d", i, values[i], i)
		}
	}
}

func TestNextRawNStopsAtPageBoundary(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTable("t")
	seedTable(t, db, table, 40)

	tx := db.BeginTransaction(kv.LatestTimestamp)
	c, _ := NewFromTransaction(tx, table, 0)
	c.fanout = 16 // exercise the cross-call page boundary with a small fanout

	keys, _, n, err := c.NextRawN(100)
	if err != nil {
		t.Fatalf("NextRawN: %v", err)
	}
	if n != 16 {
		t.Fatalf("n = %d, want 16 (stopped at page boundary)", n)
	}
	if string(keys[0]) != "k000" || string(keys[15]) != "k015" {
		t.Fatalf("unexpected key range: first=%q last=%q", keys[0], keys[15])
	}

	keys2, _, n2, err := c.NextRawN(100)
	if err != nil {
		t.Fatalf("second NextRawN: %v", err)
	}
	if n2 != 16 {
		t.Fatalf("n2 = %d, want 16", n2)
	}
	if string(keys2[0]) != "k016" {
		t.Fatalf("second batch should resume at k016, got %q", keys2[0])
	}
}

func TestNextRawNRespectsMaxBlockItem(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTable("t")
	seedTable(t, db, table, 40)

	tx := db.BeginTransaction(kv.LatestTimestamp)
	c, _ := NewFromTransaction(tx, table, 5)

	_, _, n, err := c.NextRawN(0)
	if err != nil {
		t.Fatalf("NextRawN: %v", err)
	}
	if n != 5 {
		t.Fatalf("n = %d, want 5 (capped by maxBatch)", n)
	}
}

func TestNextRawNEndOfTableIsErrorOnFirstAdvance(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTable("t")
	seedTable(t, db, table, 2)

	tx := db.BeginTransaction(kv.LatestTimestamp)
	c, _ := NewFromTransaction(tx, table, 10)

	if _, _, _, err := c.NextRawN(10); err != nil {
		t.Fatalf("first NextRawN: %v", err)
	}
	if _, _, n, err := c.NextRawN(10); err == nil || n != 0 {
		t.Fatalf("NextRawN past end = (n=%d, err=%v), want (0, ErrNotFound)", n, err)
	} else if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPrevRawNWalksBackward(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTable("t")
	seedTable(t, db, table, 5)

	tx := db.BeginTransaction(kv.LatestTimestamp)
	c, _ := NewFromTransaction(tx, table, 0)

	keys, _, n, err := c.PrevRawN(10)
	if err != nil {
		t.Fatalf("PrevRawN: %v", err)
	}
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
	if string(keys[0]) != "k004" || string(keys[4]) != "k000" {
		t.Fatalf("unexpected reverse order: first=%q last=%q", keys[0], keys[4])
	}
}

func TestNextRawNUncommittedKeyNotFoundFirstPropagatesError(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTable("t")

	// Write but never commit: the key exists in the table's key set (via
	// the writer's own history) but is invisible to an independent reader.
	writer := db.BeginTransaction(kv.NoTimestamp)
	if err := writer.Write(table, "k000", kv.Value("v000")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reader := db.BeginTransaction(kv.LatestTimestamp)
	c, _ := NewFromTransaction(reader, table, 10)

	if _, _, _, err := c.NextRawN(10); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("NextRawN over uncommitted-only key = %v, want kv.ErrNotFound", err)
	}
}

func TestNextRawNOverCheckpoint(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTable("t")
	seedTable(t, db, table, 3)
	ckpt := db.CreateCheckpoint("snap")

	c, err := NewFromCheckpoint(ckpt, table, 10)
	if err != nil {
		t.Fatalf("NewFromCheckpoint: %v", err)
	}
	_, values, n, err := c.NextRawN(10)
	if err != nil {
		t.Fatalf("NextRawN: %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}
	if string(values[0]) != "v000" {
		t.Fatalf("values[0] = %q, want v000", values[0])
	}
}

func TestResetReturnsToStart(t *testing.T) {
	db := kv.NewDatabase()
	table := db.CreateTable("t")
	seedTable(t, db, table, 3)

	tx := db.BeginTransaction(kv.LatestTimestamp)
	c, _ := NewFromTransaction(tx, table, 10)
	if _, _, _, err := c.NextRawN(10); err != nil {
		t.Fatalf("NextRawN: %v", err)
	}
	c.Reset()
	keys, _, n, err := c.NextRawN(10)
	if err != nil {
		t.Fatalf("NextRawN after reset: %v", err)
	}
	if n != 3 || string(keys[0]) != "k000" {
		t.Fatalf("cursor did not restart from k000 after Reset")
	}
}
