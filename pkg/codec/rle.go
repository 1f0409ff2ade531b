package codec

import (
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

const maxRunLength = (1 << 31) - 1

// EncodeRLE implements §4.1 RLE for integer/boolean columns: a sequence of
// (run_length varint, value fixed-width) pairs. A new run starts whenever
// the value changes or the current run hits maxRunLength.
func EncodeRLE(values []types.Value, ft types.FieldType) []byte {
	size, _ := ft.FixedSize()
	var out []byte
	i := 0
	for i < len(values) {
		runVal := values[i].RawUint()
		runLen := 1
		for i+runLen < len(values) && runLen < maxRunLength && values[i+runLen].RawUint() == runVal {
			runLen++
		}
		out = putUvarint(out, uint64(runLen))
		out = append(out, encodeFixed(values[i], ft, size)...)
		i += runLen
	}
	return out
}

// DecodeRLE reverses EncodeRLE for count values.
func DecodeRLE(data []byte, count int, ft types.FieldType) ([]types.Value, error) {
	size, _ := ft.FixedSize()
	out := make([]types.Value, 0, count)
	pos := 0
	for len(out) < count {
		runLen, n := getUvarint(data[pos:])
		if n == 0 {
			return nil, xerr.New(xerr.DecodeError, "rle payload truncated reading run length")
		}
		pos += n
		if pos+size > len(data) {
			return nil, xerr.New(xerr.DecodeError, "rle payload truncated reading run value")
		}
		v := decodeFixed(data[pos:pos+size], ft)
		pos += size
		for j := uint64(0); j < runLen; j++ {
			out = append(out, v)
		}
	}
	if len(out) != count {
		return nil, xerr.New(xerr.DecodeError, "rle decoded row count mismatch", "want", count, "got", len(out))
	}
	return out, nil
}
