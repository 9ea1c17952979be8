package cursor

import (
	"errors"
	"fmt"

	"github.com/Frankenstein-xin/wiredtiger/internal/kv"
)

// DefaultMaxBlockItem is the largest batch size a cursor accepts, and the
// cap used when a constructor is given a non-positive or larger maxBatch.
const DefaultMaxBlockItem = 64

// DefaultPageFanout is the number of rows packed into one simulated leaf
// page. Chosen small enough that ordinary tests exercise the intra-page
// vs. cross-page distinction without needing thousands of rows.
const DefaultPageFanout = 16

// BlockCursor is a bounded batch iterator over a row-store table's raw
// byte-string rows, scoped either to a transaction's snapshot or to an
// immutable checkpoint.
type BlockCursor struct {
	src source

	maxBatch int
	fanout   int

	keys []string
	page *keyPage

	// pos is the global index of the last yielded row, or -1 if the
	// cursor has not yet produced anything.
	pos int
}

// NewFromTransaction opens a block cursor over table, reading through tx's
// snapshot. table must be a row store with raw byte key/value format.
func NewFromTransaction(tx *kv.Transaction, table *kv.Table, maxBatch int) (*BlockCursor, error) {
	if err := validateFormat(table); err != nil {
		return nil, err
	}
	return newBlockCursor(transactionSource{tx: tx, table: table}, maxBatch), nil
}

// NewFromCheckpoint opens a block cursor over table's rows as visible in
// ckpt. table is used only to validate its format; all reads go through
// the checkpoint.
func NewFromCheckpoint(ckpt *kv.Checkpoint, table *kv.Table, maxBatch int) (*BlockCursor, error) {
	if err := validateFormat(table); err != nil {
		return nil, err
	}
	return newBlockCursor(checkpointSource{ckpt: ckpt, tableName: table.Name}, maxBatch), nil
}

func validateFormat(table *kv.Table) error {
	if table.Format != kv.FormatRowStoreRaw {
		return fmt.Errorf("cursor: table %q is not a raw row store: %w", table.Name, ErrInvalidArgument)
	}
	return nil
}

func newBlockCursor(src source, maxBatch int) *BlockCursor {
	if maxBatch <= 0 || maxBatch > DefaultMaxBlockItem {
		maxBatch = DefaultMaxBlockItem
	}
	return &BlockCursor{
		src:      src,
		maxBatch: maxBatch,
		fanout:   DefaultPageFanout,
		keys:     src.keys(),
		pos:      -1,
	}
}

// Reset returns the cursor to its unpositioned state, so the next batch
// call starts again from the beginning of the table.
func (c *BlockCursor) Reset() {
	c.pos = -1
	c.page = nil
}

func (c *BlockCursor) pageIndexFor(i int) int {
	return i / c.fanout
}

func (c *BlockCursor) loadPage(i int) {
	if c.page != nil && c.page.contains(i) {
		return
	}
	pageStart := c.pageIndexFor(i) * c.fanout
	pageEnd := pageStart + c.fanout
	if pageEnd > len(c.keys) {
		pageEnd = len(c.keys)
	}
	c.page = buildKeyPage(c.keys, pageStart, pageEnd-pageStart)
}

// NextRawN advances forward, producing up to n (clamped to the batch cap)
// key/value pairs. The first row of the batch may come from any page; once
// positioned, the walk stays within that page for the rest of this call.
func (c *BlockCursor) NextRawN(n int) (keysOut [][]byte, valuesOut [][]byte, count int, err error) {
	return c.rawN(n, +1)
}

// PrevRawN is NextRawN's mirror, walking backward.
func (c *BlockCursor) PrevRawN(n int) (keysOut [][]byte, valuesOut [][]byte, count int, err error) {
	return c.rawN(n, -1)
}

func (c *BlockCursor) rawN(n, dir int) ([][]byte, [][]byte, int, error) {
	if n <= 0 || n > c.maxBatch {
		n = c.maxBatch
	}

	start := c.pos + dir
	if dir < 0 && c.pos == -1 {
		start = len(c.keys) - 1
	}
	if start < 0 || start >= len(c.keys) {
		return nil, nil, 0, fmt.Errorf("cursor: %w", ErrNotFound)
	}

	c.loadPage(start)
	pageNum := c.pageIndexFor(start)

	keysOut := make([][]byte, 0, n)
	valsOut := make([][]byte, 0, n)

	i := start
	first := true
	for len(keysOut) < n && i >= 0 && i < len(c.keys) && c.pageIndexFor(i) == pageNum {
		key := c.keys[i]
		val, err := c.src.get(key)
		switch {
		case err == nil:
			c.loadPage(i)
			keysOut = append(keysOut, c.page.key(i))
			valsOut = append(valsOut, []byte(val))
			c.pos = i
			first = false
			i += dir
		case errors.Is(err, kv.ErrNotFound) || errors.Is(err, kv.ErrPrepareConflict):
			if first {
				return nil, nil, 0, err
			}
			i = -1 // force loop exit without treating it as an error
		default:
			return nil, nil, len(keysOut), err
		}
	}

	return keysOut, valsOut, len(keysOut), nil
}
