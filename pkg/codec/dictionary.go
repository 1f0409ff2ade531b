package codec

import (
	"encoding/binary"

	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// EncodeDictionary implements §4.1 Dictionary: a deduplicated value table
// (insertion order preserves first occurrence), plain-encoded and stored
// immediately before a bit-packed code stream using ceil(log2(dict_size))
// bits per code. ok is false when the caller must fall back to Plain,
// either because dictionary cardinality would exceed maxCardinality or the
// estimated dictionary-encoded size is not smaller than Plain (§4.1, §9).
func EncodeDictionary(values []types.Value, ft types.FieldType, maxCardinality int) (payload []byte, ok bool) {
	dict := make([]types.Value, 0, 64)
	index := make(map[string]int, 64)
	codes := make([]uint64, len(values))

	for i, v := range values {
		key := string(v.SortKey())
		code, seen := index[key]
		if !seen {
			if len(dict) >= maxCardinality {
				return nil, false
			}
			code = len(dict)
			index[key] = code
			dict = append(dict, v)
		}
		codes[i] = uint64(code)
	}

	width := bitWidth(uint64(maxInt(len(dict)-1, 0)))
	dictBytes := EncodePlain(dict, ft)

	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(len(dict)))
	out = append(out, dictBytes...)
	out = append(out, packBits(codes, width)...)

	plainSize := len(EncodePlain(values, ft))
	if len(out) >= plainSize {
		return nil, false
	}
	return out, true
}

// DecodeDictionary reverses EncodeDictionary for count rows.
func DecodeDictionary(data []byte, count int, ft types.FieldType) ([]types.Value, error) {
	if len(data) < 4 {
		return nil, xerr.New(xerr.DecodeError, "dictionary payload too short for dict count")
	}
	dictCount := int(binary.LittleEndian.Uint32(data[:4]))
	pos := 4

	var dictBytesLen int
	if size, fixed := ft.FixedSize(); fixed {
		dictBytesLen = size * dictCount
	} else {
		p := pos
		for i := 0; i < dictCount; i++ {
			if p+4 > len(data) {
				return nil, xerr.New(xerr.DecodeError, "dictionary payload truncated reading entry length")
			}
			n := int(binary.LittleEndian.Uint32(data[p : p+4]))
			p += 4 + n
		}
		dictBytesLen = p - pos
	}
	if pos+dictBytesLen > len(data) {
		return nil, xerr.New(xerr.DecodeError, "dictionary payload truncated reading dict table")
	}
	dict, err := DecodePlain(data[pos:pos+dictBytesLen], dictCount, ft)
	if err != nil {
		return nil, err
	}
	pos += dictBytesLen

	width := bitWidth(uint64(maxInt(dictCount-1, 0)))
	codes := unpackBits(data[pos:], width, count)

	out := make([]types.Value, count)
	for i, c := range codes {
		if int(c) >= len(dict) {
			return nil, xerr.New(xerr.DecodeError, "dictionary code out of range", "code", c, "dict_size", len(dict))
		}
		out[i] = dict[c]
	}
	return out, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
