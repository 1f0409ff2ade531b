// Package page implements §4.3's data page layer: the rows of one column,
// CRC32-protected, with an optional null bitmap and compressed payload.
// Build places no limit on the row count; the column writer decides how
// many rows go into each page (see config.PageRowLimit).
package page

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/matrixorigin/olapcore/pkg/compress"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

const HeaderSize = 16

const (
	flagCompressed = 1 << 0
	flagHasNulls   = 1 << 1
)

// Page is a decoded data page ready for codec decoding.
type Page struct {
	NumRows     uint32
	Encoding    types.Encoding
	HasNulls    bool
	NullBitmap  []byte // ceil(NumRows/8) bytes when HasNulls
	Payload     []byte // decompressed
}

// Build serializes one data page: header, null bitmap, compressed payload,
// trailing CRC32 over header||null_bitmap||payload.
func Build(numRows uint32, encoded []byte, enc types.Encoding, nullBitmap []byte) []byte {
	compressed, usedLZ4, err := compress.Compress(encoded)
	if err != nil {
		// Compression is never expected to fail on in-memory data; treat as
		// identity rather than panic so a pathological input still produces
		// a valid (larger) page.
		compressed, usedLZ4 = encoded, false
	}

	var flags byte
	if usedLZ4 {
		flags |= flagCompressed
	}
	if nullBitmap != nil {
		flags |= flagHasNulls
	}

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], numRows)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(encoded)))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(compressed)))
	header[12] = flags
	header[13] = byte(enc)
	// header[14:16] reserved

	out := make([]byte, 0, HeaderSize+len(nullBitmap)+len(compressed)+4)
	out = append(out, header...)
	out = append(out, nullBitmap...)
	out = append(out, compressed...)

	crc := crc32.ChecksumIEEE(out)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	out = append(out, crcBuf[:]...)
	return out
}

// Parse validates the CRC and decompresses one page's payload, returning
// the raw encoded bytes (still codec-encoded) ready for codec.Decode.
// CRC mismatch (CorruptData) and decompression failure (DecodeError) are
// reported as distinct error kinds per §4.3.
func Parse(data []byte) (*Page, error) {
	if len(data) < HeaderSize+4 {
		return nil, xerr.New(xerr.CorruptData, "page shorter than header+crc")
	}
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	body := data[:len(data)-4]
	if crc32.ChecksumIEEE(body) != stored {
		return nil, xerr.New(xerr.CorruptData, "page CRC mismatch")
	}

	numRows := binary.LittleEndian.Uint32(data[0:4])
	uncompressedSz := binary.LittleEndian.Uint32(data[4:8])
	compressedSz := binary.LittleEndian.Uint32(data[8:12])
	flags := data[12]
	enc := types.Encoding(data[13])

	hasNulls := flags&flagHasNulls != 0
	pos := HeaderSize
	var nullBitmap []byte
	if hasNulls {
		nbLen := int((numRows + 7) / 8)
		if pos+nbLen > len(body) {
			return nil, xerr.New(xerr.CorruptData, "page null bitmap truncated")
		}
		nullBitmap = data[pos : pos+nbLen]
		pos += nbLen
	}

	if pos+int(compressedSz) > len(body) {
		return nil, xerr.New(xerr.CorruptData, "page payload shorter than declared compressed size")
	}
	compressedPayload := data[pos : pos+int(compressedSz)]

	payload, err := compress.Decompress(compressedPayload, flags&flagCompressed != 0)
	if err != nil {
		return nil, err
	}
	if uint32(len(payload)) != uncompressedSz {
		return nil, xerr.New(xerr.DecodeError, "page decompressed size mismatch",
			"want", uncompressedSz, "got", len(payload))
	}

	return &Page{
		NumRows:    numRows,
		Encoding:   enc,
		HasNulls:   hasNulls,
		NullBitmap: nullBitmap,
		Payload:    payload,
	}, nil
}

// BuildNullBitmap packs a []bool of "is null" flags into a ceil(n/8)-byte
// bitmap, bit i of byte i/8 set when nulls[i] is true.
func BuildNullBitmap(nulls []bool) []byte {
	anyNull := false
	for _, n := range nulls {
		if n {
			anyNull = true
			break
		}
	}
	if !anyNull {
		return nil
	}
	out := make([]byte, (len(nulls)+7)/8)
	for i, isNull := range nulls {
		if isNull {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// IsNull reports whether row i is null according to bitmap (which may be
// nil, meaning no nulls in the page).
func IsNull(bitmap []byte, i int) bool {
	if bitmap == nil {
		return false
	}
	byteIdx := i / 8
	if byteIdx >= len(bitmap) {
		return false
	}
	return bitmap[byteIdx]&(1<<uint(i%8)) != 0
}
