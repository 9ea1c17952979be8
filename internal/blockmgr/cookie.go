package blockmgr

import (
	"encoding/binary"
	"fmt"
)

// Cookie is the decoded form of an address cookie: the opaque byte handle
// the write path hands back for a (object, offset, size, checksum) tuple on
// stable storage. The wire layout is object_id:u32, file_offset:varint,
// size:u32, checksum:u32, all little-endian — this package is bit-exact
// with the encoder, matching the shape the teacher uses for every on-disk
// field (encoding/binary, never ad hoc bit-shifting).
type Cookie struct {
	ObjectID   uint32
	FileOffset uint64
	Size       uint32
	Checksum   uint32
}

// EncodeCookie serializes c into its wire form. It exists primarily to give
// tests a round-trip partner for DecodeCookie; the write path that produces
// cookies in a running engine is external to this package.
func EncodeCookie(c Cookie) []byte {
	buf := make([]byte, 4+binary.MaxVarintLen64+4+4)
	binary.LittleEndian.PutUint32(buf[0:4], c.ObjectID)
	n := binary.PutUvarint(buf[4:], c.FileOffset)
	off := 4 + n
	binary.LittleEndian.PutUint32(buf[off:off+4], c.Size)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], c.Checksum)
	return buf[:off+8]
}

// DecodeCookie unpacks an address cookie. It fails with ErrInvalidArgument
// if buf is too short to hold every field.
func DecodeCookie(buf []byte) (Cookie, error) {
	if len(buf) < 4+1+4+4 {
		return Cookie{}, fmt.Errorf("blockmgr: cookie too short (%d bytes): %w", len(buf), ErrInvalidArgument)
	}
	var c Cookie
	c.ObjectID = binary.LittleEndian.Uint32(buf[0:4])

	offset, n := binary.Uvarint(buf[4:])
	if n <= 0 {
		return Cookie{}, fmt.Errorf("blockmgr: malformed file_offset varint: %w", ErrInvalidArgument)
	}
	c.FileOffset = offset

	pos := 4 + n
	if len(buf) < pos+8 {
		return Cookie{}, fmt.Errorf("blockmgr: cookie too short after varint (%d bytes): %w", len(buf), ErrInvalidArgument)
	}
	c.Size = binary.LittleEndian.Uint32(buf[pos : pos+4])
	c.Checksum = binary.LittleEndian.Uint32(buf[pos+4 : pos+8])
	return c, nil
}
