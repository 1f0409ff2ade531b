package codec

import (
	"encoding/binary"

	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

const deltaBlockSize = 128

// EncodeDelta implements §4.1 Delta-binary for sorted/near-sorted integer
// columns: an 8-byte little-endian first value, then 128-value blocks of
// (min_delta zig-zag varint, bit-width byte, bit-packed (delta-min_delta)).
// Values are widened to int64 regardless of the column's declared integer
// width; the field type is only needed again at decode time to narrow back.
func EncodeDelta(values []types.Value, ft types.FieldType) []byte {
	if len(values) == 0 {
		return nil
	}
	out := make([]byte, 8)
	first := int64(values[0].RawUint())
	binary.LittleEndian.PutUint64(out, uint64(first))

	prev := first
	for start := 1; start < len(values); start += deltaBlockSize {
		end := start + deltaBlockSize
		if end > len(values) {
			end = len(values)
		}
		deltas := make([]int64, end-start)
		for i := start; i < end; i++ {
			cur := int64(values[i].RawUint())
			deltas[i-start] = cur - prev
			prev = cur
		}
		minDelta := deltas[0]
		for _, d := range deltas {
			if d < minDelta {
				minDelta = d
			}
		}
		adjusted := make([]uint64, len(deltas))
		var maxAdj uint64
		for i, d := range deltas {
			a := uint64(d - minDelta)
			adjusted[i] = a
			if a > maxAdj {
				maxAdj = a
			}
		}
		width := bitWidth(maxAdj)
		out = putUvarint(out, zigzagEncode(minDelta))
		out = append(out, byte(width))
		out = append(out, packBits(adjusted, width)...)
	}
	return out
}

// DecodeDelta reverses EncodeDelta, reconstructing count int64 values by
// prefix-sum and narrowing them back to ft's Value.Kind.
func DecodeDelta(data []byte, count int, ft types.FieldType) ([]types.Value, error) {
	out := make([]types.Value, count)
	if count == 0 {
		return out, nil
	}
	if len(data) < 8 {
		return nil, xerr.New(xerr.DecodeError, "delta payload too short for header")
	}
	first := int64(binary.LittleEndian.Uint64(data[:8]))
	out[0] = narrowInt(first, ft)
	pos := 8
	prev := first
	produced := 1
	for produced < count {
		minDeltaZ, n := getUvarint(data[pos:])
		if n == 0 {
			return nil, xerr.New(xerr.DecodeError, "delta payload truncated reading min_delta")
		}
		pos += n
		if pos >= len(data) {
			return nil, xerr.New(xerr.DecodeError, "delta payload truncated reading bit width")
		}
		width := int(data[pos])
		pos++
		minDelta := zigzagDecode(minDeltaZ)

		remaining := count - produced
		blockLen := deltaBlockSize
		if remaining < blockLen {
			blockLen = remaining
		}
		nBytes := (width*blockLen + 7) / 8
		if pos+nBytes > len(data) {
			return nil, xerr.New(xerr.DecodeError, "delta payload truncated reading packed block")
		}
		adjusted := unpackBits(data[pos:pos+nBytes], width, blockLen)
		pos += nBytes
		for _, a := range adjusted {
			d := int64(a) + minDelta
			cur := prev + d
			out[produced] = narrowInt(cur, ft)
			prev = cur
			produced++
		}
	}
	return out, nil
}

func narrowInt(v int64, ft types.FieldType) types.Value {
	switch ft {
	case types.FieldUint8, types.FieldUint16, types.FieldUint32, types.FieldUint64:
		return types.Value{Kind: ft.ValueKind(), U: uint64(v)}
	default:
		return types.Value{Kind: ft.ValueKind(), I: v}
	}
}
