package blockmgr

import (
	"context"
	"errors"
	"testing"

	"github.com/Frankenstein-xin/wiredtiger/internal/corruptflag"
)

// buildBlock constructs a well-formed block: HeaderSize header followed by
// payload, with the checksum field populated for the requested coverage.
func buildBlock(t *testing.T, payload []byte, dataCksum bool) []byte {
	t.Helper()
	buf := make([]byte, HeaderSize+len(payload))
	copy(buf[HeaderSize:], payload)

	var flags uint8
	if dataCksum {
		flags = FlagDataCksum
	}
	buf[8] = flags
	putUint32LE(buf[0:4], uint32(len(buf)))

	h := BlockHeader{DiskSize: uint32(len(buf)), Flags: flags}
	coverage := checksumCoverage(h, buf)
	sum := computeChecksum(coverage)

	encodeHeaderChecksum(buf, sum)
	return buf
}

// encodeHeaderChecksum writes disk_size and checksum into buf's header in
// the same little-endian layout decodeHeader expects.
func encodeHeaderChecksum(buf []byte, checksum uint32) {
	putUint32LE(buf[0:4], uint32(len(buf)))
	putUint32LE(buf[4:8], checksum)
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func newTestManager(t *testing.T, handles *MemHandleCache) (*Manager, *corruptflag.Flag) {
	t.Helper()
	flag := &corruptflag.Flag{}
	m := NewManager(Config{
		AllocationSize:    16,
		ChunkCacheEntries: 8,
		ThrottleBytesPerS: 1 << 30,
		ThrottleBurst:     1 << 30,
	}, handles, flag)
	return m, flag
}

func TestReadVerifiesWellFormedBlock(t *testing.T) {
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	block := buildBlock(t, payload, true)

	handles := NewMemHandleCache()
	handles.PutObject(1, block)

	m, flag := newTestManager(t, handles)
	h := decodeHeader(block)
	cookie := Cookie{ObjectID: 1, FileOffset: 0, Size: uint32(len(block)), Checksum: h.Checksum}

	got, err := m.Read(context.Background(), cookie, ModeNormal)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(block) {
		t.Fatalf("Read returned %d bytes, want %d", len(got), len(block))
	}
	if flag.IsSet() {
		t.Fatalf("corruption flag set on a well-formed read")
	}
}

func TestReadChecksumSkipCoverage(t *testing.T) {
	payload := make([]byte, CompressSkip*3)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	block := buildBlock(t, payload, false)
	// Corrupt a byte outside the COMPRESS_SKIP prefix; coverage should
	// still pass since only the prefix is checksummed.
	block[HeaderSize+CompressSkip+5] ^= 0xff

	handles := NewMemHandleCache()
	handles.PutObject(1, block)
	m, _ := newTestManager(t, handles)
	h := decodeHeader(block)
	cookie := Cookie{ObjectID: 1, FileOffset: 0, Size: uint32(len(block)), Checksum: h.Checksum}

	if _, err := m.Read(context.Background(), cookie, ModeNormal); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestReadCorruptionRecoverableInVerifyMode(t *testing.T) {
	block := buildBlock(t, make([]byte, 32), true)
	block[HeaderSize] ^= 0xff // corrupt covered payload

	handles := NewMemHandleCache()
	handles.PutObject(1, block)
	m, flag := newTestManager(t, handles)
	h := decodeHeader(block)
	cookie := Cookie{ObjectID: 1, FileOffset: 0, Size: uint32(len(block)), Checksum: h.Checksum}

	_, err := m.Read(context.Background(), cookie, ModeVerify)
	if !errors.Is(err, ErrCorruption) {
		t.Fatalf("Read = %v, want ErrCorruption", err)
	}
	if !flag.IsSet() {
		t.Fatalf("corruption flag not set after confirmed corruption")
	}
}

func TestReadCorruptionPanicsInNormalMode(t *testing.T) {
	block := buildBlock(t, make([]byte, 32), true)
	block[HeaderSize] ^= 0xff

	handles := NewMemHandleCache()
	handles.PutObject(1, block)
	m, _ := newTestManager(t, handles)
	h := decodeHeader(block)
	cookie := Cookie{ObjectID: 1, FileOffset: 0, Size: uint32(len(block)), Checksum: h.Checksum}

	defer func() {
		if recover() == nil {
			t.Fatalf("Read did not panic on confirmed corruption in normal mode")
		}
	}()
	m.Read(context.Background(), cookie, ModeNormal)
}

func TestReadRetriesOnceAfterStaleCacheEntry(t *testing.T) {
	good := buildBlock(t, []byte("hello world, this is a block"), true)
	h := decodeHeader(good)
	cookie := Cookie{ObjectID: 1, FileOffset: 0, Size: uint32(len(good)), Checksum: h.Checksum}

	handles := NewMemHandleCache()
	handles.PutObject(1, good)
	m, flag := newTestManager(t, handles)

	// Prime the cache with a stale (corrupted) copy.
	stale := append([]byte(nil), good...)
	stale[HeaderSize] ^= 0xff
	m.chunks.Put(cookie, stale)

	// Read hits the stale entry, fails verification, evicts it, and retries
	// the direct read once against the good object bytes.
	got, err := m.Read(context.Background(), cookie, ModeNormal)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(good) {
		t.Fatalf("Read returned %d bytes, want %d", len(got), len(good))
	}
	if flag.IsSet() {
		t.Fatalf("corruption flag set unexpectedly")
	}
}

func TestReadRejectsSizeBelowAllocationSize(t *testing.T) {
	handles := NewMemHandleCache()
	m, _ := newTestManager(t, handles)
	_, err := m.Read(context.Background(), Cookie{ObjectID: 1, Size: 4}, ModeNormal)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Read with undersized cookie = %v, want ErrInvalidArgument", err)
	}
}

func TestReadUnknownObjectIsIOError(t *testing.T) {
	handles := NewMemHandleCache()
	m, _ := newTestManager(t, handles)
	_, err := m.Read(context.Background(), Cookie{ObjectID: 99, Size: 16}, ModeNormal)
	if !errors.Is(err, ErrIOError) {
		t.Fatalf("Read against unknown object = %v, want ErrIOError", err)
	}
}
