package codec

import (
	"encoding/binary"
	"math"

	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// EncodePlain implements §4.1 Plain: fixed-width little-endian packing, or
// a 4-byte length prefix plus payload per value for variable-length bytes.
func EncodePlain(values []types.Value, ft types.FieldType) []byte {
	if size, fixed := ft.FixedSize(); fixed {
		out := make([]byte, 0, size*len(values))
		for _, v := range values {
			out = append(out, encodeFixed(v, ft, size)...)
		}
		return out
	}
	var out []byte
	var lenBuf [4]byte
	for _, v := range values {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v.B)))
		out = append(out, lenBuf[:]...)
		out = append(out, v.B...)
	}
	return out
}

// DecodePlain reverses EncodePlain for count values.
func DecodePlain(data []byte, count int, ft types.FieldType) ([]types.Value, error) {
	if size, fixed := ft.FixedSize(); fixed {
		if len(data) < size*count {
			return nil, xerr.New(xerr.DecodeError, "plain payload too short for fixed-width column",
				"want", size*count, "got", len(data))
		}
		out := make([]types.Value, count)
		for i := 0; i < count; i++ {
			out[i] = decodeFixed(data[i*size:(i+1)*size], ft)
		}
		return out, nil
	}
	out := make([]types.Value, count)
	pos := 0
	for i := 0; i < count; i++ {
		if pos+4 > len(data) {
			return nil, xerr.New(xerr.DecodeError, "plain payload truncated reading length prefix", "row", i)
		}
		n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if pos+n > len(data) {
			return nil, xerr.New(xerr.DecodeError, "plain payload truncated reading value bytes", "row", i)
		}
		out[i] = types.BytesValue(append([]byte(nil), data[pos:pos+n]...))
		pos += n
	}
	return out, nil
}

func encodeFixed(v types.Value, ft types.FieldType, size int) []byte {
	buf := make([]byte, size)
	switch ft {
	case types.FieldInt8, types.FieldUint8, types.FieldBool:
		buf[0] = byte(v.RawUint())
	case types.FieldInt16, types.FieldUint16:
		binary.LittleEndian.PutUint16(buf, uint16(v.RawUint()))
	case types.FieldInt32, types.FieldUint32, types.FieldDate:
		binary.LittleEndian.PutUint32(buf, uint32(v.RawUint()))
	case types.FieldInt64, types.FieldUint64, types.FieldDecimal, types.FieldDatetime:
		binary.LittleEndian.PutUint64(buf, v.RawUint())
	case types.FieldFloat32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v.F64)))
	case types.FieldFloat64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.F64))
	}
	return buf
}

func decodeFixed(data []byte, ft types.FieldType) types.Value {
	switch ft {
	case types.FieldInt8:
		return types.Value{Kind: types.KindInt8, I: int64(int8(data[0]))}
	case types.FieldUint8:
		return types.Value{Kind: types.KindUint8, U: uint64(data[0])}
	case types.FieldBool:
		return types.Value{Kind: types.KindBool, I: int64(data[0])}
	case types.FieldInt16:
		return types.Value{Kind: types.KindInt16, I: int64(int16(binary.LittleEndian.Uint16(data)))}
	case types.FieldUint16:
		return types.Value{Kind: types.KindUint16, U: uint64(binary.LittleEndian.Uint16(data))}
	case types.FieldInt32:
		return types.Value{Kind: types.KindInt32, I: int64(int32(binary.LittleEndian.Uint32(data)))}
	case types.FieldUint32:
		return types.Value{Kind: types.KindUint32, U: uint64(binary.LittleEndian.Uint32(data))}
	case types.FieldDate:
		return types.Value{Kind: types.KindDate, I: int64(int32(binary.LittleEndian.Uint32(data)))}
	case types.FieldInt64:
		return types.Value{Kind: types.KindInt64, I: int64(binary.LittleEndian.Uint64(data))}
	case types.FieldUint64:
		return types.Value{Kind: types.KindUint64, U: binary.LittleEndian.Uint64(data)}
	case types.FieldDecimal:
		return types.Value{Kind: types.KindDecimal, I: int64(binary.LittleEndian.Uint64(data))}
	case types.FieldDatetime:
		return types.Value{Kind: types.KindDatetime, I: int64(binary.LittleEndian.Uint64(data))}
	case types.FieldFloat32:
		return types.Value{Kind: types.KindFloat32, F64: float64(math.Float32frombits(binary.LittleEndian.Uint32(data)))}
	case types.FieldFloat64:
		return types.Value{Kind: types.KindFloat64, F64: math.Float64frombits(binary.LittleEndian.Uint64(data))}
	default:
		return types.Value{}
	}
}
