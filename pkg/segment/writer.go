package segment

import (
	"encoding/binary"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/matrixorigin/olapcore/pkg/config"
	"github.com/matrixorigin/olapcore/pkg/index"
	"github.com/matrixorigin/olapcore/pkg/logutil"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Writer orchestrates one columnWriter per schema column (§4.6).
// append_row distributes one row's values to each column writer and
// maintains the short-key builder; Finalize lays out the full Segment V2
// byte stream.
type Writer struct {
	schema *types.TabletSchema
	cfg    config.Config

	columns  []*columnWriter
	keyCols  []int // indices into schema.Columns that are key columns, in order
	rowCount uint32

	shortKey *index.ShortKeyIndex
	pool     *ants.Pool
}

// NewWriter builds a segment writer for one rowset's worth of rows
// conforming to schema. cfg supplies the page row limit, dictionary
// ceiling, bloom FPP target, and short-key bounds (§4.3-§4.5).
func NewWriter(schema *types.TabletSchema, cfg config.Config) (*Writer, error) {
	pool, err := ants.NewPool(len(schema.Columns))
	if err != nil {
		return nil, xerr.Wrap(xerr.Io, err, "failed to start column worker pool")
	}
	w := &Writer{
		schema:   schema,
		cfg:      cfg,
		columns:  make([]*columnWriter, len(schema.Columns)),
		shortKey: index.NewShortKeyIndex(),
		pool:     pool,
	}
	for i, cs := range schema.Columns {
		w.columns[i] = newColumnWriter(cs, cfg.PageRowLimit, cfg.DictionaryMaxCardinality, cfg.DictionaryAutoSampleRows, cfg.DictionaryAutoMaxDistinct)
		if cs.IsKey && len(w.keyCols) < schema.ShortKeyColumns() && len(w.keyCols) < cfg.ShortKeyMaxColumns {
			w.keyCols = append(w.keyCols, i)
		}
	}
	return w, nil
}

// AppendRow checks arity, distributes values to each column writer, and
// records a short-key entry every ShortKeyInterval rows (§4.6).
func (w *Writer) AppendRow(values []types.Value) error {
	if len(values) != len(w.columns) {
		return xerr.New(xerr.InvalidArgument, "row arity does not match schema",
			"want", len(w.columns), "got", len(values))
	}
	if int(w.rowCount)%w.cfg.ShortKeyInterval == 0 {
		w.shortKey.Add(w.rowCount, w.buildShortKeyPrefix(values))
	}
	for i, v := range values {
		if err := w.columns[i].append(v); err != nil {
			return xerr.Wrap(xerr.SchemaMismatch, err, "append_row failed", "column", i, "row", w.rowCount)
		}
	}
	w.rowCount++
	return nil
}

func (w *Writer) buildShortKeyPrefix(values []types.Value) []byte {
	var prefix []byte
	for _, ci := range w.keyCols {
		if len(prefix) >= w.cfg.ShortKeyMaxBytes {
			break
		}
		prefix = append(prefix, values[ci].SortKey()...)
	}
	if len(prefix) > w.cfg.ShortKeyMaxBytes {
		prefix = prefix[:w.cfg.ShortKeyMaxBytes]
	}
	return prefix
}

// Finalize lays out the complete Segment V2 byte stream: magic+version,
// data region, index region, footer (§6.1). Column finalization (page
// sealing of the tail, bloom materialization) runs concurrently across
// columns via the worker pool; byte layout itself is assembled
// sequentially in column order afterward so the result is deterministic
// regardless of goroutine completion order.
func (w *Writer) Finalize() ([]byte, error) {
	defer w.pool.Release()

	results := make([]finalizeResult, len(w.columns))
	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex
	for i := range w.columns {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logutil.L().Error("column finalize panicked", zap.Int("column", i), zap.Any("panic", r))
					mu.Lock()
					if firstErr == nil {
						firstErr = xerr.New(xerr.Io, "column finalize panicked", "column", i, "panic", r)
					}
					mu.Unlock()
				}
			}()
			results[i] = w.columns[i].finalize(w.cfg.BloomTargetFPP)
		}
		if err := w.pool.Submit(task); err != nil {
			wg.Done()
			task()
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	out := make([]byte, headerSize, 4096)
	copy(out[0:8], magic[:])
	binary.LittleEndian.PutUint32(out[8:12], formatVersion)

	descriptors := make([]columnDescriptor, len(w.columns))
	for i, cs := range w.schema.Columns {
		dataOffset := uint64(len(out))
		out = append(out, results[i].data...)
		descriptors[i] = columnDescriptor{
			ColumnID:    uint32(i),
			FieldType:   cs.Type,
			Encoding:    results[i].encoding,
			Compression: cs.Compression,
			DataOffset:  dataOffset,
			DataLength:  uint64(len(results[i].data)),
		}
	}

	for i := range w.schema.Columns {
		var off uint64
		off, out = writeTLV(out, tagOrdinal, results[i].ordinal.Serialize())
		descriptors[i].OrdinalOffset = off
		off, out = writeTLV(out, tagZoneMap, results[i].zonemap.Serialize())
		descriptors[i].ZoneMapOffset = off
		off, out = writeTLV(out, tagBloom, results[i].bloom.Serialize())
		descriptors[i].BloomOffset = off
	}
	shortKeyOffset, out := writeTLV(out, tagShortKey, w.shortKey.Serialize())

	body := make([]byte, 0, 8+8+4+len(descriptors)*columnDescriptorSize+8)
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], w.schema.SchemaHash())
	body = append(body, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], uint64(w.rowCount))
	body = append(body, u64[:]...)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(descriptors)))
	body = append(body, u32[:]...)
	for _, d := range descriptors {
		body = d.appendTo(body)
	}
	binary.LittleEndian.PutUint64(u64[:], shortKeyOffset)
	body = append(body, u64[:]...)

	crc := footerCRC(body)
	out = append(out, body...)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	out = append(out, crcBuf[:]...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	out = append(out, lenBuf[:]...)
	out = append(out, magic[:]...)

	return out, nil
}
