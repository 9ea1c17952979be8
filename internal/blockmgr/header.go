package blockmgr

import (
	"encoding/binary"
	"hash/crc32"
)

// HeaderSize is the fixed width of the on-disk block header, mirroring the
// teacher's PageHeaderSize layout but trimmed to the fields this read path
// actually decodes:
//
//	[0:4]   DiskSize    (4 bytes, uint32 LE)
//	[4:8]   Checksum    (4 bytes, uint32 LE)
//	[8]     Flags       (1 byte)
//	[9:12]  Reserved    (3 bytes)
const HeaderSize = 12

// Flag bits within BlockHeader.Flags.
const (
	// FlagDataCksum means the checksum covers all DiskSize bytes. Without
	// it, only the first CompressSkip bytes of the block are covered.
	FlagDataCksum uint8 = 1 << 0
)

// CompressSkip is the number of leading bytes checksummed when a header
// does not declare FlagDataCksum — the portion of a compressed block that
// is never subject to the compressor, per the write path's contract.
const CompressSkip = 64

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// BlockHeader is the byte-swapped, host-endian form of the fixed header
// present at the start of every block.
type BlockHeader struct {
	DiskSize uint32
	Checksum uint32
	Flags    uint8
}

// HasDataCksum reports whether the checksum covers the whole block.
func (h BlockHeader) HasDataCksum() bool {
	return h.Flags&FlagDataCksum != 0
}

// decodeHeader byte-swaps the on-disk (fixed little-endian) header at the
// front of buf into host-endian form. buf must be at least HeaderSize long.
func decodeHeader(buf []byte) BlockHeader {
	return BlockHeader{
		DiskSize: binary.LittleEndian.Uint32(buf[0:4]),
		Checksum: binary.LittleEndian.Uint32(buf[4:8]),
		Flags:    buf[8],
	}
}

// checksumCoverage returns the leading bytes of buf that fall under
// checksum coverage for the given header, per the DATA_CKSUM flag.
func checksumCoverage(h BlockHeader, buf []byte) []byte {
	if h.HasDataCksum() {
		return buf
	}
	if len(buf) < CompressSkip {
		return buf
	}
	return buf[:CompressSkip]
}

// computeChecksumRaw computes the plain CRC32-C of b, used only for the
// diagnostic chunk dump and not for verification.
func computeChecksumRaw(b []byte) uint32 {
	return crc32.Checksum(b, crcTable)
}

// computeChecksum computes the CRC32-C of region with the header's checksum
// field (bytes 4:8) treated as zero, matching the on-disk layout.
func computeChecksum(region []byte) uint32 {
	sum := crc32.New(crcTable)
	if len(region) < 8 {
		sum.Write(region)
		return sum.Sum32()
	}
	sum.Write(region[:4])
	sum.Write([]byte{0, 0, 0, 0})
	sum.Write(region[8:])
	return sum.Sum32()
}
