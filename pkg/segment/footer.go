// Package segment implements §4.4/§4.6/§4.7: the per-column writer, the
// segment writer that lays out a Segment V2 byte stream, and the segment
// reader that validates and materializes it back.
package segment

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// magic is the 8-byte sentinel at both the start and the end of a segment,
// per §6.1.
var magic = [8]byte{'O', 'L', 'A', 'P', 'S', 'E', 'G', 0}

const formatVersion uint32 = 2

const headerSize = 8 + 4 // magic + version

const (
	tagOrdinal byte = 1
	tagZoneMap byte = 2
	tagBloom   byte = 3
	tagShortKey byte = 4
)

// columnDescriptor is one footer entry (§6.1).
type columnDescriptor struct {
	ColumnID      uint32
	FieldType     types.FieldType
	Encoding      types.Encoding
	Compression   types.Compression
	DataOffset    uint64
	DataLength    uint64
	OrdinalOffset uint64
	ZoneMapOffset uint64
	BloomOffset   uint64 // 0 = absent
}

const columnDescriptorSize = 4 + 1 + 1 + 1 + 8 + 8 + 8 + 8 + 8 // 47 bytes

func (d columnDescriptor) appendTo(out []byte) []byte {
	var b [columnDescriptorSize]byte
	binary.LittleEndian.PutUint32(b[0:4], d.ColumnID)
	b[4] = byte(d.FieldType)
	b[5] = byte(d.Encoding)
	b[6] = byte(d.Compression)
	binary.LittleEndian.PutUint64(b[7:15], d.DataOffset)
	binary.LittleEndian.PutUint64(b[15:23], d.DataLength)
	binary.LittleEndian.PutUint64(b[23:31], d.OrdinalOffset)
	binary.LittleEndian.PutUint64(b[31:39], d.ZoneMapOffset)
	binary.LittleEndian.PutUint64(b[39:47], d.BloomOffset)
	return append(out, b[:]...)
}

func parseColumnDescriptor(data []byte) columnDescriptor {
	return columnDescriptor{
		ColumnID:      binary.LittleEndian.Uint32(data[0:4]),
		FieldType:     types.FieldType(data[4]),
		Encoding:      types.Encoding(data[5]),
		Compression:   types.Compression(data[6]),
		DataOffset:    binary.LittleEndian.Uint64(data[7:15]),
		DataLength:    binary.LittleEndian.Uint64(data[15:23]),
		OrdinalOffset: binary.LittleEndian.Uint64(data[23:31]),
		ZoneMapOffset: binary.LittleEndian.Uint64(data[31:39]),
		BloomOffset:   binary.LittleEndian.Uint64(data[39:47]),
	}
}

// footer is the fully parsed trailer of a segment.
type footer struct {
	SchemaDigest  uint64
	RowCount      uint64
	Columns       []columnDescriptor
	ShortKeyOffset uint64
}

// writeTLV appends a tag byte, a u32 LE length, and payload, returning the
// absolute offset of the tag byte (recorded in the footer) and the updated
// buffer.
func writeTLV(out []byte, tag byte, payload []byte) (offset uint64, next []byte) {
	offset = uint64(len(out))
	out = append(out, tag)
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(payload)))
	out = append(out, lb[:]...)
	out = append(out, payload...)
	return offset, out
}

// readTLV reads the payload at an absolute TLV offset, validating the tag.
func readTLV(data []byte, offset uint64, wantTag byte) ([]byte, error) {
	if offset == 0 {
		return nil, xerr.New(xerr.CorruptData, "attempted to read absent TLV entry")
	}
	pos := int(offset)
	if pos+5 > len(data) {
		return nil, xerr.New(xerr.CorruptData, "TLV header truncated", "offset", offset)
	}
	gotTag := data[pos]
	if gotTag != wantTag {
		return nil, xerr.New(xerr.CorruptData, "TLV tag mismatch", "offset", offset, "want", wantTag, "got", gotTag)
	}
	length := int(binary.LittleEndian.Uint32(data[pos+1 : pos+5]))
	start := pos + 5
	if start+length > len(data) {
		return nil, xerr.New(xerr.CorruptData, "TLV payload truncated", "offset", offset)
	}
	return data[start : start+length], nil
}

func footerCRC(body []byte) uint32 { return crc32.ChecksumIEEE(body) }
