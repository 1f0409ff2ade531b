package types

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// FieldType is the physical, on-disk type of a column (§3, §6.1 footer
// "field_type u8").
type FieldType uint8

const (
	FieldInt8 FieldType = iota
	FieldInt16
	FieldInt32
	FieldInt64
	FieldUint8
	FieldUint16
	FieldUint32
	FieldUint64
	FieldFloat32
	FieldFloat64
	FieldBool
	FieldDecimal
	FieldDate
	FieldDatetime
	FieldBytes
)

// FixedSize returns the fixed byte width of the type, or (0, false) for the
// variable-length FieldBytes.
func (t FieldType) FixedSize() (int, bool) {
	switch t {
	case FieldInt8, FieldUint8, FieldBool:
		return 1, true
	case FieldInt16, FieldUint16:
		return 2, true
	case FieldInt32, FieldUint32, FieldFloat32, FieldDate:
		return 4, true
	case FieldInt64, FieldUint64, FieldFloat64, FieldDecimal, FieldDatetime:
		return 8, true
	case FieldBytes:
		return 0, false
	default:
		return 0, false
	}
}

func (t FieldType) IsInteger() bool {
	switch t {
	case FieldInt8, FieldInt16, FieldInt32, FieldInt64,
		FieldUint8, FieldUint16, FieldUint32, FieldUint64,
		FieldDate, FieldDatetime:
		return true
	default:
		return false
	}
}

// ValueKind maps a FieldType to the Value.Kind it produces.
func (t FieldType) ValueKind() Kind {
	switch t {
	case FieldInt8:
		return KindInt8
	case FieldInt16:
		return KindInt16
	case FieldInt32:
		return KindInt32
	case FieldInt64:
		return KindInt64
	case FieldUint8:
		return KindUint8
	case FieldUint16:
		return KindUint16
	case FieldUint32:
		return KindUint32
	case FieldUint64:
		return KindUint64
	case FieldFloat32:
		return KindFloat32
	case FieldFloat64:
		return KindFloat64
	case FieldBool:
		return KindBool
	case FieldDecimal:
		return KindDecimal
	case FieldDate:
		return KindDate
	case FieldDatetime:
		return KindDatetime
	case FieldBytes:
		return KindBytes
	default:
		return KindNull
	}
}

// Encoding is the column encoding hint/choice (§4.1).
type Encoding uint8

const (
	EncodingAuto Encoding = iota // hint only; never stored on a sealed page
	EncodingPlain
	EncodingRLE
	EncodingDelta
	EncodingDictionary
)

// Compression is the block compression choice (§4.2).
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionLZ4
)

// KeysType controls duplicate/unique/aggregate semantics at the (unbuilt)
// compaction layer; the segment layer is append-only regardless (§9).
type KeysType uint8

const (
	KeysDuplicate KeysType = iota
	KeysUnique
	KeysAggregate
)

// AggFunc names the aggregate function associated with a column under
// KeysAggregate tablets.
type AggFunc uint8

const (
	AggNone AggFunc = iota
	AggSum
	AggMin
	AggMax
	AggReplace
)

// ColumnSchema is one column's static metadata (§3).
type ColumnSchema struct {
	Name        string
	Type        FieldType
	Nullable    bool
	IsKey       bool
	Agg         AggFunc
	Encoding    Encoding
	Compression Compression
}

// TabletSchema is the ordered column list plus tablet-wide metadata (§3).
type TabletSchema struct {
	Columns         []ColumnSchema
	KeysType        KeysType
	schemaHash      uint64
	shortKeyColumns int
}

// NewTabletSchema validates and constructs a TabletSchema, computing its
// schema_hash and short-key prefix column count (the first 3 key columns,
// §3) up front.
func NewTabletSchema(columns []ColumnSchema, keysType KeysType) (*TabletSchema, error) {
	if len(columns) == 0 {
		return nil, xerr.New(xerr.InvalidArgument, "tablet schema must have at least one column")
	}
	ts := &TabletSchema{Columns: columns, KeysType: keysType}
	keyCols := 0
	for _, c := range columns {
		if c.IsKey {
			keyCols++
		}
	}
	if keyCols > 3 {
		keyCols = 3
	}
	ts.shortKeyColumns = keyCols
	ts.schemaHash = computeSchemaHash(columns, keysType)
	return ts, nil
}

// SchemaHash is a stable 64-bit digest of the column list and keys type.
func (ts *TabletSchema) SchemaHash() uint64 { return ts.schemaHash }

// ShortKeyColumns returns how many leading key columns participate in the
// short-key prefix (bounded to 3 per §3; further bounded to 36 bytes total
// at build time by pkg/index).
func (ts *TabletSchema) ShortKeyColumns() int { return ts.shortKeyColumns }

func computeSchemaHash(columns []ColumnSchema, keysType KeysType) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(b []byte) { _, _ = h.Write(b) }
	write([]byte{byte(keysType)})
	for _, c := range columns {
		write([]byte(c.Name))
		write([]byte{byte(c.Type), boolByte(c.Nullable), boolByte(c.IsKey), byte(c.Agg), byte(c.Encoding), byte(c.Compression)})
		binary.BigEndian.PutUint64(buf[:], 0) // reserved, keeps the digest stable if fields are appended
		write(buf[:])
	}
	return h.Sum64()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
