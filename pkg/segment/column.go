package segment

import (
	"github.com/matrixorigin/olapcore/pkg/codec"
	"github.com/matrixorigin/olapcore/pkg/index"
	"github.com/matrixorigin/olapcore/pkg/page"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// columnWriter holds the per-column state named in §4.4: an in-memory row
// buffer, the sealed-page byte stream, and the three per-column indexes
// (ordinal, zone-map, bloom accumulator).
type columnWriter struct {
	schema          types.ColumnSchema
	fieldType       types.FieldType
	pageLimit       int
	maxDict         int
	sampleRows      int
	autoMaxDistinct int

	buffered []types.Value
	rowCount uint32

	data     []byte
	ordinal  *index.OrdinalIndex
	zonemap  *index.ZoneMapIndex
	bloomAcc *index.BloomAccumulator

	// chosenEncoding is the encoding recorded in the footer: the schema's
	// explicit hint, or (for EncodingAuto) whatever the first sealed page's
	// sample resolves to. Later pages may still fall back to Plain
	// individually (§9 "Encoding fallback") without changing this value.
	chosenEncoding types.Encoding
	resolved       bool
}

func newColumnWriter(cs types.ColumnSchema, pageLimit, maxDict, sampleRows, autoMaxDistinct int) *columnWriter {
	return &columnWriter{
		schema:          cs,
		fieldType:       cs.Type,
		pageLimit:       pageLimit,
		maxDict:         maxDict,
		sampleRows:      sampleRows,
		autoMaxDistinct: autoMaxDistinct,
		ordinal:         &index.OrdinalIndex{},
		zonemap:         &index.ZoneMapIndex{},
		bloomAcc:        index.NewBloomAccumulator(),
		chosenEncoding:  cs.Encoding,
	}
}

// append validates v against the column's type/nullability and buffers it,
// sealing a page once pageLimit rows have accumulated (§4.4).
func (cw *columnWriter) append(v types.Value) error {
	if v.IsNull() {
		if !cw.schema.Nullable {
			return xerr.New(xerr.SchemaMismatch, "null value for non-nullable column", "column", cw.schema.Name)
		}
	} else if v.Kind != cw.fieldType.ValueKind() {
		return xerr.New(xerr.SchemaMismatch, "value kind does not match column type",
			"column", cw.schema.Name, "want", cw.fieldType.ValueKind(), "got", v.Kind)
	}
	cw.buffered = append(cw.buffered, v)
	cw.rowCount++
	if len(cw.buffered) >= cw.sealThreshold() {
		cw.sealPage()
	}
	return nil
}

// sealThreshold is normally pageLimit. While an auto-encoding column's
// encoding is still unresolved, the first page is instead held open until
// sampleRows rows have accumulated (when sampleRows exceeds pageLimit), so
// resolveEncoding's sample actually spans its full configured window
// instead of being truncated to whatever fits in one page.
func (cw *columnWriter) sealThreshold() int {
	if !cw.resolved && cw.schema.Encoding == types.EncodingAuto && cw.sampleRows > cw.pageLimit {
		return cw.sampleRows
	}
	return cw.pageLimit
}

// sealPage flushes the buffered rows (even a short tail page, §4.4) into a
// new data page plus index entries.
func (cw *columnWriter) sealPage() {
	n := len(cw.buffered)
	if n == 0 {
		return
	}
	enc := cw.resolveEncoding()

	nulls := make([]bool, n)
	hasNull, allNull := false, true
	var min, max []byte
	for i, v := range cw.buffered {
		if v.IsNull() {
			nulls[i] = true
			hasNull = true
			continue
		}
		allNull = false
		sk := v.SortKey()
		if min == nil || lessBytes(sk, min) {
			min = sk
		}
		if max == nil || lessBytes(max, sk) {
			max = sk
		}
		cw.bloomAcc.Add(sk)
	}
	if allNull {
		hasNull = true
	}

	encoded, actual := codec.Encode(cw.buffered, cw.fieldType, enc, cw.maxDict)
	nullBitmap := page.BuildNullBitmap(nulls)
	pageBytes := page.Build(uint32(n), encoded, actual, nullBitmap)

	firstRowID := cw.rowCount - uint32(n)
	cw.ordinal.Add(firstRowID, uint64(len(cw.data)), uint64(len(pageBytes)))
	cw.zonemap.Add(index.ZoneMapEntry{Min: min, Max: max, HasNull: hasNull, AllNull: allNull})
	cw.data = append(cw.data, pageBytes...)
	cw.buffered = cw.buffered[:0]
}

// resolveEncoding fixes the footer's recorded encoding choice on the first
// sealed page when the schema hint is "auto" (§4.1 auto-selection).
func (cw *columnWriter) resolveEncoding() types.Encoding {
	if cw.resolved {
		return cw.chosenEncoding
	}
	if cw.schema.Encoding != types.EncodingAuto {
		cw.resolved = true
		return cw.chosenEncoding
	}
	sample := cw.buffered
	if len(sample) > cw.sampleRows {
		sample = sample[:cw.sampleRows]
	}
	cw.chosenEncoding = codec.SelectEncoding(sample, cw.fieldType, cw.autoMaxDistinct)
	cw.resolved = true
	return cw.chosenEncoding
}

// finalizeResult is what finalize() hands back for one column (§4.4): the
// concatenated page bytes plus its three per-column indexes.
type finalizeResult struct {
	data     []byte
	ordinal  *index.OrdinalIndex
	zonemap  *index.ZoneMapIndex
	bloom    *index.BloomFilter
	encoding types.Encoding
}

func (cw *columnWriter) finalize(targetFPP float64) finalizeResult {
	cw.sealPage()
	if !cw.resolved {
		// zero-row column: no sample was ever seen, keep the literal hint.
		cw.chosenEncoding = cw.schema.Encoding
		if cw.chosenEncoding == types.EncodingAuto {
			cw.chosenEncoding = types.EncodingPlain
		}
	}
	return finalizeResult{
		data:     cw.data,
		ordinal:  cw.ordinal,
		zonemap:  cw.zonemap,
		bloom:    cw.bloomAcc.Finalize(targetFPP),
		encoding: cw.chosenEncoding,
	}
}

func lessBytes(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
