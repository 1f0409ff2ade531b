package segment

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/olapcore/pkg/codec"
	"github.com/matrixorigin/olapcore/pkg/index"
	"github.com/matrixorigin/olapcore/pkg/logutil"
	"github.com/matrixorigin/olapcore/pkg/page"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Reader validates and materializes a Segment V2 byte stream (§4.7).
type Reader struct {
	schema *types.TabletSchema
	data   []byte
	footer footer
}

// Open parses the trailing magic, footer length, and footer CRC, then
// validates the footer's schema digest against schema.
func Open(data []byte, schema *types.TabletSchema) (*Reader, error) {
	if len(data) < headerSize+8+4+4 {
		logutil.L().Error("segment open failed", zap.Int("size", len(data)), zap.String("reason", "shorter than header+trailer"))
		return nil, xerr.New(xerr.CorruptData, "segment shorter than header+trailer")
	}
	if !bytes.Equal(data[0:8], magic[:]) {
		logutil.L().Error("segment open failed", zap.String("reason", "leading magic mismatch"))
		return nil, xerr.New(xerr.CorruptData, "leading magic mismatch")
	}
	if v := binary.LittleEndian.Uint32(data[8:12]); v != formatVersion {
		logutil.L().Error("segment open failed", zap.Uint32("version", v), zap.String("reason", "unsupported version"))
		return nil, xerr.New(xerr.CorruptData, "unsupported segment version", "version", v)
	}
	n := len(data)
	if !bytes.Equal(data[n-8:], magic[:]) {
		logutil.L().Error("segment open failed", zap.String("reason", "trailing magic mismatch"))
		return nil, xerr.New(xerr.CorruptData, "trailing magic mismatch")
	}
	footerLen := int(binary.LittleEndian.Uint32(data[n-12 : n-8]))
	storedCRC := binary.LittleEndian.Uint32(data[n-16 : n-12])
	bodyStart := n - 16 - footerLen
	if bodyStart < headerSize {
		logutil.L().Error("segment open failed", zap.Int("footer_length", footerLen), zap.String("reason", "footer length inconsistent with segment size"))
		return nil, xerr.New(xerr.CorruptData, "footer length inconsistent with segment size")
	}
	body := data[bodyStart : n-16]
	if footerCRC(body) != storedCRC {
		logutil.L().Error("segment open failed", zap.String("reason", "footer CRC mismatch"))
		return nil, xerr.New(xerr.CorruptData, "footer CRC mismatch")
	}

	f, err := parseFooter(body)
	if err != nil {
		logutil.L().Error("segment open failed", zap.Error(err), zap.String("reason", "footer parse error"))
		return nil, err
	}
	if f.SchemaDigest != schema.SchemaHash() {
		logutil.L().Error("segment open failed",
			zap.Uint64("want_schema_hash", schema.SchemaHash()), zap.Uint64("got_schema_hash", f.SchemaDigest),
			zap.String("reason", "schema digest mismatch"))
		return nil, xerr.New(xerr.SchemaMismatch, "segment schema digest does not match expected schema",
			"want", schema.SchemaHash(), "got", f.SchemaDigest)
	}
	return &Reader{schema: schema, data: data, footer: f}, nil
}

func parseFooter(body []byte) (footer, error) {
	if len(body) < 8+8+4 {
		return footer{}, xerr.New(xerr.CorruptData, "footer shorter than fixed prefix")
	}
	f := footer{
		SchemaDigest: binary.LittleEndian.Uint64(body[0:8]),
		RowCount:     binary.LittleEndian.Uint64(body[8:16]),
	}
	colCount := int(binary.LittleEndian.Uint32(body[16:20]))
	pos := 20
	f.Columns = make([]columnDescriptor, 0, colCount)
	for i := 0; i < colCount; i++ {
		if pos+columnDescriptorSize > len(body) {
			return footer{}, xerr.New(xerr.CorruptData, "footer column descriptor truncated", "column", i)
		}
		f.Columns = append(f.Columns, parseColumnDescriptor(body[pos:pos+columnDescriptorSize]))
		pos += columnDescriptorSize
	}
	if pos+8 > len(body) {
		return footer{}, xerr.New(xerr.CorruptData, "footer shortkey offset truncated")
	}
	f.ShortKeyOffset = binary.LittleEndian.Uint64(body[pos : pos+8])
	return f, nil
}

// RowCount is the segment's total row count, identical across every column
// (§3 invariant).
func (r *Reader) RowCount() uint64 { return r.footer.RowCount }

func (r *Reader) loadOrdinal(desc columnDescriptor) (*index.OrdinalIndex, error) {
	payload, err := readTLV(r.data, desc.OrdinalOffset, tagOrdinal)
	if err != nil {
		return nil, err
	}
	return index.DeserializeOrdinal(payload)
}

func (r *Reader) loadZoneMap(desc columnDescriptor) (*index.ZoneMapIndex, error) {
	payload, err := readTLV(r.data, desc.ZoneMapOffset, tagZoneMap)
	if err != nil {
		return nil, err
	}
	return index.DeserializeZoneMap(payload)
}

func (r *Reader) loadBloom(desc columnDescriptor) (*index.BloomFilter, error) {
	payload, err := readTLV(r.data, desc.BloomOffset, tagBloom)
	if err != nil {
		return nil, err
	}
	return index.DeserializeBloom(payload)
}

// ShortKey loads the segment's single sparse prefix index.
func (r *Reader) ShortKey() (*index.ShortKeyIndex, error) {
	payload, err := readTLV(r.data, r.footer.ShortKeyOffset, tagShortKey)
	if err != nil {
		return nil, err
	}
	return index.DeserializeShortKey(payload)
}

// ReadColumn materializes a whole column in row order: locate its ordinal
// index, iterate pages, verify CRC, decompress, decode, rehydrate nulls
// from the page bitmap (§4.7).
func (r *Reader) ReadColumn(colIdx int) ([]types.Value, error) {
	if colIdx < 0 || colIdx >= len(r.footer.Columns) {
		return nil, xerr.New(xerr.InvalidArgument, "column index out of range", "column", colIdx)
	}
	desc := r.footer.Columns[colIdx]
	ord, err := r.loadOrdinal(desc)
	if err != nil {
		return nil, err
	}
	columnData := r.data[desc.DataOffset : desc.DataOffset+desc.DataLength]

	values := make([]types.Value, 0, r.footer.RowCount)
	for pageIdx, e := range ord.Entries {
		if e.PageOffset+e.PageLength > uint64(len(columnData)) {
			return nil, xerr.New(xerr.CorruptData, "page extent out of bounds", "column", colIdx, "page_index", pageIdx)
		}
		raw := columnData[e.PageOffset : e.PageOffset+e.PageLength]
		pg, err := page.Parse(raw)
		if err != nil {
			return nil, xerr.Wrap(xerr.CorruptData, err, "page parse failed", "column", colIdx, "page_index", pageIdx)
		}
		decoded, err := codec.Decode(pg.Payload, int(pg.NumRows), desc.FieldType, pg.Encoding)
		if err != nil {
			return nil, xerr.Wrap(xerr.DecodeError, err, "page decode failed", "column", colIdx, "page_index", pageIdx)
		}
		for i, v := range decoded {
			if page.IsNull(pg.NullBitmap, i) {
				v = types.NullValue()
			}
			values = append(values, v)
		}
	}
	return values, nil
}

// Predicate is a coarse candidate filter consulted by ReadColumnFiltered.
// Min/Max bound a range probe (either may be nil for an open end); Equality
// additionally permits a whole-segment bloom-filter skip. The index layer
// only proves pages/segments that cannot match; surviving rows must still
// be checked exactly by the caller (§4.7, §8.6).
type Predicate struct {
	Min, Max    []byte
	Equality    []byte
	HasEquality bool
}

// FilteredRow pairs a candidate row id with its decoded value.
type FilteredRow struct {
	RowID uint32
	Value types.Value
}

// ReadColumnFiltered skips pages whose zone map proves disjoint with pred,
// and (for an equality predicate) may skip the whole column if the bloom
// filter proves the value absent. The returned rows are candidates only:
// read_column_filtered(...) ⊆ read_column(...) filtered post-hoc (§8.6).
func (r *Reader) ReadColumnFiltered(colIdx int, pred Predicate) ([]FilteredRow, error) {
	if colIdx < 0 || colIdx >= len(r.footer.Columns) {
		return nil, xerr.New(xerr.InvalidArgument, "column index out of range", "column", colIdx)
	}
	desc := r.footer.Columns[colIdx]

	if pred.HasEquality {
		bf, err := r.loadBloom(desc)
		if err != nil {
			return nil, err
		}
		if !bf.MayContain(pred.Equality) {
			return nil, nil
		}
	}

	ord, err := r.loadOrdinal(desc)
	if err != nil {
		return nil, err
	}
	zm, err := r.loadZoneMap(desc)
	if err != nil {
		return nil, err
	}
	columnData := r.data[desc.DataOffset : desc.DataOffset+desc.DataLength]

	var rows []FilteredRow
	for pageIdx, e := range ord.Entries {
		if !zm.Intersects(pageIdx, pred.Min, pred.Max) {
			continue
		}
		raw := columnData[e.PageOffset : e.PageOffset+e.PageLength]
		pg, err := page.Parse(raw)
		if err != nil {
			return nil, xerr.Wrap(xerr.CorruptData, err, "page parse failed", "column", colIdx, "page_index", pageIdx)
		}
		decoded, err := codec.Decode(pg.Payload, int(pg.NumRows), desc.FieldType, pg.Encoding)
		if err != nil {
			return nil, xerr.Wrap(xerr.DecodeError, err, "page decode failed", "column", colIdx, "page_index", pageIdx)
		}
		for i, v := range decoded {
			if page.IsNull(pg.NullBitmap, i) {
				v = types.NullValue()
			}
			rows = append(rows, FilteredRow{RowID: e.FirstRowID + uint32(i), Value: v})
		}
	}
	return rows, nil
}

// ReadAllColumns decodes every column concurrently through a bounded worker
// pool (§4.7), returning results in column order.
func ReadAllColumns(r *Reader) ([][]types.Value, error) {
	pool, err := ants.NewPool(len(r.footer.Columns))
	if err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "failed to start column decode pool")
	}
	defer pool.Release()

	results := make([][]types.Value, len(r.footer.Columns))
	errs := make([]error, len(r.footer.Columns))
	var wg sync.WaitGroup
	for i := range r.footer.Columns {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i], errs[i] = r.ReadColumn(i)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			task()
		}
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	return results, nil
}
