package blockmgr

import "fmt"

// BlockHandle is a concrete, open handle to one underlying object (file,
// device, or in-memory region) that blocks can be read from.
type BlockHandle interface {
	// ReadAt fetches len(buf) bytes starting at fileOffset.
	ReadAt(buf []byte, fileOffset uint64) (int, error)
}

// HandleCache resolves an object_id to a concrete BlockHandle. Acquire and
// Release must be paired: the handle is released on exit from a read
// regardless of outcome, so callers defer the Release immediately after a
// successful Acquire.
type HandleCache interface {
	Acquire(objectID uint32) (BlockHandle, error)
	Release(objectID uint32, h BlockHandle)
}

// memHandle is an in-memory BlockHandle backed by a single byte slice,
// standing in for a real file or device during tests.
type memHandle struct {
	data []byte
}

func (h *memHandle) ReadAt(buf []byte, fileOffset uint64) (int, error) {
	if fileOffset > uint64(len(h.data)) {
		return 0, fmt.Errorf("blockmgr: read offset %d beyond object length %d: %w", fileOffset, len(h.data), ErrIOError)
	}
	n := copy(buf, h.data[fileOffset:])
	if n < len(buf) {
		return n, fmt.Errorf("blockmgr: short read at offset %d: %w", fileOffset, ErrIOError)
	}
	return n, nil
}

// MemHandleCache is a single-process, in-memory HandleCache keyed by
// object_id. It exists for tests and for single-object deployments that
// never need a real multi-object resolution collaborator.
type MemHandleCache struct {
	objects map[uint32][]byte
}

// NewMemHandleCache builds an empty MemHandleCache.
func NewMemHandleCache() *MemHandleCache {
	return &MemHandleCache{objects: make(map[uint32][]byte)}
}

// PutObject registers (or replaces) the backing bytes for objectID.
func (c *MemHandleCache) PutObject(objectID uint32, data []byte) {
	c.objects[objectID] = data
}

func (c *MemHandleCache) Acquire(objectID uint32) (BlockHandle, error) {
	data, ok := c.objects[objectID]
	if !ok {
		return nil, fmt.Errorf("blockmgr: unknown object_id %d: %w", objectID, ErrIOError)
	}
	return &memHandle{data: data}, nil
}

func (c *MemHandleCache) Release(objectID uint32, h BlockHandle) {}
