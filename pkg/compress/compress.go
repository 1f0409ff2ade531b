// Package compress implements §4.2's page-level block compression: LZ4
// block format (not the self-framing LZ4 frame format) with an explicit
// 4-byte little-endian uncompressed-length header, falling back to
// identity when compression would not shrink the input.
package compress

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Compress returns (payload, usedLZ4). payload is prefixed with the 4-byte
// LE uncompressed length whenever usedLZ4 is true; when the LZ4 attempt
// does not beat the input size, payload is the raw input and usedLZ4 is
// false (the page header's "compressed" flag bit carries this marker).
func Compress(input []byte) (payload []byte, usedLZ4 bool, err error) {
	if len(input) == 0 {
		return input, false, nil
	}
	bound := lz4.CompressBlockBound(len(input))
	dst := make([]byte, 4+bound)
	binary.LittleEndian.PutUint32(dst[:4], uint32(len(input)))

	var c lz4.Compressor
	n, cerr := c.CompressBlock(input, dst[4:])
	if cerr != nil {
		return nil, false, xerr.Wrap(xerr.Io, cerr, "lz4 compress block failed")
	}
	if n == 0 || 4+n >= len(input) {
		// incompressible, or compressed form is not smaller: identity.
		return input, false, nil
	}
	return dst[:4+n], true, nil
}

// Decompress reverses Compress. When usedLZ4 is false, payload is returned
// unchanged (identity). Decompression failure is distinct from a CRC
// failure (§4.3) — the caller verifies CRC before calling Decompress.
func Decompress(payload []byte, usedLZ4 bool) ([]byte, error) {
	if !usedLZ4 {
		return payload, nil
	}
	if len(payload) < 4 {
		return nil, xerr.New(xerr.DecodeError, "lz4 payload too short for length header")
	}
	origSize := int(binary.LittleEndian.Uint32(payload[:4]))
	dst := make([]byte, origSize)
	n, err := lz4.UncompressBlock(payload[4:], dst)
	if err != nil {
		return nil, xerr.Wrap(xerr.DecodeError, err, "lz4 decompress block failed")
	}
	if n != origSize {
		return nil, xerr.New(xerr.DecodeError, "lz4 decompressed size mismatch", "expected", origSize, "got", n)
	}
	return dst, nil
}
