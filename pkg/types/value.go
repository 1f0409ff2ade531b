// Package types implements the Segment V2 data model (§3): the tagged
// Value variant, column/tablet schema, and the physical field types,
// encodings and compressions that appear in the wire format (§6.1).
package types

import (
	"encoding/binary"
	"math"
)

// Kind is the physical type tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindBool
	KindDecimal // fixed-point, stored as (unscaled int64, scale)
	KindDate    // days since epoch, int32
	KindDatetime
	KindBytes // variable-length, interpretable as UTF-8
)

// Value is a tagged variant over every supported physical type (§3). Only
// the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	I     int64
	U     uint64
	F64   float64
	Scale int32 // KindDecimal only
	B     []byte
}

func NullValue() Value                { return Value{Kind: KindNull} }
func Int64Value(v int64) Value        { return Value{Kind: KindInt64, I: v} }
func Int32Value(v int32) Value        { return Value{Kind: KindInt32, I: int64(v)} }
func Float64Value(v float64) Value    { return Value{Kind: KindFloat64, F64: v} }
func BytesValue(b []byte) Value       { return Value{Kind: KindBytes, B: b} }
func BoolValue(v bool) Value          { return Value{Kind: KindBool, I: boolToInt(v)} }
func DateValue(daysSinceEpoch int32) Value {
	return Value{Kind: KindDate, I: int64(daysSinceEpoch)}
}
func DatetimeValue(microsSinceEpoch int64) Value {
	return Value{Kind: KindDatetime, I: microsSinceEpoch}
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (v Value) IsNull() bool { return v.Kind == KindNull }

// RawUint returns the raw bit pattern backing v's numeric field, signed
// values included (two's complement via int64->uint64 conversion). Used by
// codecs that pack values into fixed-width little-endian slots without
// caring whether the logical type is signed.
func (v Value) RawUint() uint64 {
	switch v.Kind {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return v.U
	default:
		return uint64(v.I)
	}
}

// SortKey produces a byte encoding of v suitable for ordering comparisons
// (zone-map min/max, bloom filter keys, short-key prefixes). Integers and
// floats are encoded big-endian with a sign/bias flip so that unsigned
// byte-wise comparison matches numeric ordering; bytes values pass through
// unchanged. Null must never appear in a key column (§3) and has no
// defined SortKey ordering; it encodes to an empty slice by convention.
func (v Value) SortKey() []byte {
	switch v.Kind {
	case KindNull:
		return nil
	case KindInt8, KindInt16, KindInt32, KindInt64, KindDate, KindDatetime, KindDecimal:
		var buf [8]byte
		// flip the sign bit so two's-complement negative/positive order
		// matches unsigned big-endian byte order.
		binary.BigEndian.PutUint64(buf[:], uint64(v.I)^(1<<63))
		return buf[:]
	case KindUint8, KindUint16, KindUint32, KindUint64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v.U)
		return buf[:]
	case KindBool:
		return []byte{byte(v.I)}
	case KindFloat32, KindFloat64:
		bits := math.Float64bits(v.F64)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], bits)
		return buf[:]
	case KindBytes:
		return v.B
	default:
		return nil
	}
}

// Compare orders two non-null Values of the same Kind. Behavior is
// undefined across differing Kinds or when either Value is Null (§3:
// "null ordering is unspecified").
func (v Value) Compare(other Value) int {
	a, b := v.SortKey(), other.SortKey()
	switch {
	case len(a) < len(b):
		return bytesCompareOrPad(a, b)
	default:
	}
	if len(a) != len(b) {
		return bytesCompareOrPad(a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func bytesCompareOrPad(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
