package blockmgr

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Frankenstein-xin/wiredtiger/internal/corruptflag"
	"github.com/Frankenstein-xin/wiredtiger/internal/metrics"
	"github.com/Frankenstein-xin/wiredtiger/internal/wtlog"
)

// SessionMode controls how a confirmed corruption is surfaced.
type SessionMode int

const (
	// ModeNormal is a fatal corruption: Read panics.
	ModeNormal SessionMode = iota
	// ModeQuietCorruption asked to have corruption reported as an error.
	ModeQuietCorruption
	// ModeVerify is a verify-pass session; corruption is reported as an
	// error so the caller can continue scanning.
	ModeVerify
)

// dumpChunkSize is the size of each chunk in a corruption dump, per the
// read path's "{object_id: offset, size, #checksum}" reporting contract.
const dumpChunkSize = 1024

// Config holds the tunables a Manager is built from.
type Config struct {
	AllocationSize    int
	ChunkCacheEntries int
	ThrottleBytesPerS int
	ThrottleBurst     int
}

// Manager implements the block manager's read path.
type Manager struct {
	log zerolog.Logger

	allocationSize int
	handles        HandleCache
	chunks         *ChunkCache
	throttle       *Throttle
	corrupt        *corruptflag.Flag
}

// NewManager builds a Manager. corrupt is the connection-wide corruption
// flag shared with the rest of the engine; it is set once, the first time
// a read discovers unrecoverable corruption.
func NewManager(cfg Config, handles HandleCache, corrupt *corruptflag.Flag) *Manager {
	return &Manager{
		log:            wtlog.WithComponent("blockmgr"),
		allocationSize: cfg.AllocationSize,
		handles:        handles,
		chunks:         NewChunkCache(cfg.ChunkCacheEntries),
		throttle:       NewThrottle(cfg.ThrottleBytesPerS, cfg.ThrottleBurst),
		corrupt:        corrupt,
	}
}

// Read converts cookie into verified block bytes, following the chunk
// cache → direct read → checksum verify → retry-once-on-mismatch sequence.
func (m *Manager) Read(ctx context.Context, cookie Cookie, mode SessionMode) ([]byte, error) {
	if int(cookie.Size) < m.allocationSize {
		return nil, fmt.Errorf("blockmgr: size %d below allocation_size %d: %w", cookie.Size, m.allocationSize, ErrInvalidArgument)
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.BlockReadDuration)

	buf, cached := m.chunks.Get(cookie)
	if !cached {
		var err error
		buf, err = m.directRead(ctx, cookie)
		if err != nil {
			return nil, err
		}
	}
	if _, verr := m.verify(cookie, buf); verr == nil {
		if !cached {
			m.chunks.Put(cookie, buf)
		}
		return buf, nil
	}
	metrics.ChecksumMismatchTotal.Inc()

	if !m.chunks.Enabled() {
		return nil, m.corruption(cookie, buf, mode)
	}

	// A cached entry could have gone stale; evict it and retry the
	// direct read exactly once.
	m.chunks.Invalidate(cookie)
	buf2, err := m.directRead(ctx, cookie)
	if err != nil {
		return nil, err
	}
	if _, verr := m.verify(cookie, buf2); verr == nil {
		m.chunks.Put(cookie, buf2)
		return buf2, nil
	}
	metrics.ChecksumMismatchTotal.Inc()
	return nil, m.corruption(cookie, buf2, mode)
}

func (m *Manager) directRead(ctx context.Context, cookie Cookie) ([]byte, error) {
	if err := m.throttle.Reserve(ctx, int(cookie.Size)); err != nil {
		return nil, fmt.Errorf("blockmgr: throttle reserve: %w", err)
	}

	h, err := m.handles.Acquire(cookie.ObjectID)
	if err != nil {
		return nil, err
	}
	defer m.handles.Release(cookie.ObjectID, h)

	buf := make([]byte, cookie.Size)
	if _, err := h.ReadAt(buf, cookie.FileOffset); err != nil {
		return nil, fmt.Errorf("blockmgr: read object %d offset %d: %w", cookie.ObjectID, cookie.FileOffset, err)
	}
	metrics.BlockReadBytesTotal.Add(float64(cookie.Size))
	return buf, nil
}

// verify byte-swaps the header and checks both that it matches the
// cookie's expected checksum and that the coverage region's own CRC
// matches the header's recorded checksum.
func (m *Manager) verify(cookie Cookie, buf []byte) (BlockHeader, error) {
	if len(buf) < HeaderSize {
		return BlockHeader{}, fmt.Errorf("blockmgr: block shorter than header (%d bytes): %w", len(buf), ErrCorruption)
	}
	h := decodeHeader(buf)
	if h.Checksum != cookie.Checksum {
		return h, fmt.Errorf("blockmgr: header checksum %08x != cookie checksum %08x: %w", h.Checksum, cookie.Checksum, ErrCorruption)
	}

	coverage := checksumCoverage(h, buf)
	computed := computeChecksum(coverage)
	if computed != h.Checksum {
		return h, fmt.Errorf("blockmgr: computed checksum %08x != header checksum %08x: %w", computed, h.Checksum, ErrCorruption)
	}
	return h, nil
}

// corruption records and reports a confirmed corruption: a structured
// chunk dump, the connection-wide flag, and either a recoverable error or
// a fatal panic depending on the session's corruption-handling mode.
func (m *Manager) corruption(cookie Cookie, buf []byte, mode SessionMode) error {
	metrics.CorruptionTotal.Inc()
	m.dumpChunks(cookie, buf)
	raised := m.corrupt.SetOnce()

	err := fmt.Errorf("blockmgr: corruption in object %d at offset %d (size %d): %w", cookie.ObjectID, cookie.FileOffset, cookie.Size, ErrCorruption)
	m.log.Error().
		Uint32("object_id", cookie.ObjectID).
		Uint64("file_offset", cookie.FileOffset).
		Uint32("size", cookie.Size).
		Bool("first_corruption", raised).
		Msg("block corruption detected")

	if mode == ModeQuietCorruption || mode == ModeVerify {
		return err
	}
	panic(err)
}

func (m *Manager) dumpChunks(cookie Cookie, buf []byte) {
	offset := cookie.FileOffset
	for start := 0; start < len(buf); start += dumpChunkSize {
		end := start + dumpChunkSize
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[start:end]
		m.log.Warn().Msgf("{%d: %d, %d, #%08x}", cookie.ObjectID, offset+uint64(start), len(chunk), crcOf(chunk))
	}
}

func crcOf(b []byte) uint32 {
	return computeChecksumRaw(b)
}
