package segment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/olapcore/pkg/config"
	"github.com/matrixorigin/olapcore/pkg/page"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

func threeColumnSchema(t *testing.T) *types.TabletSchema {
	t.Helper()
	schema, err := types.NewTabletSchema([]types.ColumnSchema{
		{Name: "id", Type: types.FieldInt64, IsKey: true, Encoding: types.EncodingDelta},
		{Name: "name", Type: types.FieldBytes, Encoding: types.EncodingDictionary},
		{Name: "amount", Type: types.FieldFloat64, Encoding: types.EncodingPlain},
	}, types.KeysDuplicate)
	require.NoError(t, err)
	return schema
}

func writeRows(t *testing.T, schema *types.TabletSchema, cfg config.Config, rows int) []byte {
	t.Helper()
	w, err := NewWriter(schema, cfg)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		err := w.AppendRow([]types.Value{
			types.Int64Value(int64(i)),
			types.BytesValue([]byte(fmt.Sprintf("u%d", i%100))),
			types.Float64Value(float64(i) * 1.5),
		})
		require.NoError(t, err)
	}
	data, err := w.Finalize()
	require.NoError(t, err)
	return data
}

func TestWriterReaderRoundTrip3000Rows(t *testing.T) {
	schema := threeColumnSchema(t)
	cfg := config.Default()
	data := writeRows(t, schema, cfg, 3000)

	r, err := Open(data, schema)
	require.NoError(t, err)
	require.Equal(t, uint64(3000), r.RowCount())

	ids, err := r.ReadColumn(0)
	require.NoError(t, err)
	require.Len(t, ids, 3000)
	for i, v := range ids {
		require.False(t, v.IsNull())
		require.Equal(t, int64(i), v.I)
	}

	names, err := r.ReadColumn(1)
	require.NoError(t, err)
	require.Len(t, names, 3000)
	for i, v := range names {
		require.Equal(t, fmt.Sprintf("u%d", i%100), string(v.B))
	}

	rows, err := r.ReadColumnFiltered(1, Predicate{Equality: []byte("u42"), HasEquality: true})
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	found := false
	for _, fr := range rows {
		if string(fr.Value.B) == "u42" {
			found = true
		}
	}
	require.True(t, found, "bloom-positive probe must surface the matching rows as candidates")

	rows, err = r.ReadColumnFiltered(1, Predicate{Equality: []byte("zzz"), HasEquality: true})
	require.NoError(t, err)
	require.Empty(t, rows, "bloom filter must prove \"zzz\" absent")
}

func TestAllColumnsConcurrentDecode(t *testing.T) {
	schema := threeColumnSchema(t)
	cfg := config.Default()
	data := writeRows(t, schema, cfg, 500)

	r, err := Open(data, schema)
	require.NoError(t, err)
	cols, err := ReadAllColumns(r)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	require.Len(t, cols[0], 500)
	require.Len(t, cols[1], 500)
	require.Len(t, cols[2], 500)
}

func TestEmptyColumnZeroPages(t *testing.T) {
	schema := threeColumnSchema(t)
	cfg := config.Default()
	data := writeRows(t, schema, cfg, 0)

	r, err := Open(data, schema)
	require.NoError(t, err)
	require.Equal(t, uint64(0), r.RowCount())
	require.Len(t, r.footer.Columns, 3)

	ord, err := r.loadOrdinal(r.footer.Columns[0])
	require.NoError(t, err)
	require.Empty(t, ord.Entries)

	values, err := r.ReadColumn(0)
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestSingleRowTailPage(t *testing.T) {
	schema := threeColumnSchema(t)
	cfg := config.Default()
	data := writeRows(t, schema, cfg, 1)

	r, err := Open(data, schema)
	require.NoError(t, err)
	require.Equal(t, uint64(1), r.RowCount())

	values, err := r.ReadColumn(2)
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Equal(t, float64(0), values[0].F64)
}

func TestNullableColumnRoundTrip(t *testing.T) {
	schema, err := types.NewTabletSchema([]types.ColumnSchema{
		{Name: "id", Type: types.FieldInt64, IsKey: true, Encoding: types.EncodingPlain},
		{Name: "maybe", Type: types.FieldInt32, Nullable: true, Encoding: types.EncodingPlain},
	}, types.KeysDuplicate)
	require.NoError(t, err)

	w, err := NewWriter(schema, config.Default())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		v := types.Int32Value(int32(i))
		if i%3 == 0 {
			v = types.NullValue()
		}
		require.NoError(t, w.AppendRow([]types.Value{types.Int64Value(int64(i)), v}))
	}
	data, err := w.Finalize()
	require.NoError(t, err)

	r, err := Open(data, schema)
	require.NoError(t, err)
	values, err := r.ReadColumn(1)
	require.NoError(t, err)
	require.Len(t, values, 10)
	for i, v := range values {
		if i%3 == 0 {
			require.True(t, v.IsNull(), "row %d", i)
		} else {
			require.False(t, v.IsNull(), "row %d", i)
			require.Equal(t, int32(i), int32(v.I))
		}
	}
}

func TestCorruptedPageDetected(t *testing.T) {
	schema := threeColumnSchema(t)
	cfg := config.Default()
	cfg.PageRowLimit = 100
	data := writeRows(t, schema, cfg, 250) // column 0 gets 3 pages: 100, 100, 50

	r, err := Open(data, schema)
	require.NoError(t, err)

	desc := r.footer.Columns[0]
	ord, err := r.loadOrdinal(desc)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ord.Entries), 2)

	secondPage := ord.Entries[1]
	columnDataStart := desc.DataOffset
	corruptAt := columnDataStart + secondPage.PageOffset + uint64(page.HeaderSize)
	data[corruptAt] ^= 0xFF

	_, err = r.ReadColumn(0)
	require.Error(t, err)
	require.Equal(t, xerr.CorruptData, xerr.KindOf(err))
}

func TestSchemaDigestMismatchOnOpen(t *testing.T) {
	schema := threeColumnSchema(t)
	data := writeRows(t, schema, config.Default(), 10)

	other, err := types.NewTabletSchema([]types.ColumnSchema{
		{Name: "different", Type: types.FieldInt64, Encoding: types.EncodingPlain},
	}, types.KeysDuplicate)
	require.NoError(t, err)

	_, err = Open(data, other)
	require.Error(t, err)
	require.Equal(t, xerr.SchemaMismatch, xerr.KindOf(err))
}

func TestOpenRejectsTruncatedInput(t *testing.T) {
	schema := threeColumnSchema(t)
	data := writeRows(t, schema, config.Default(), 10)

	_, err := Open(data[:len(data)-20], schema)
	require.Error(t, err)
	require.Equal(t, xerr.CorruptData, xerr.KindOf(err))
}

func TestZoneMapFilteredReadPrunesPages(t *testing.T) {
	schema := threeColumnSchema(t)
	cfg := config.Default()
	cfg.PageRowLimit = 100
	data := writeRows(t, schema, cfg, 500) // amount = row*1.5, monotonic -> clean page ranges

	r, err := Open(data, schema)
	require.NoError(t, err)

	lo := types.Float64Value(300 * 1.5).SortKey() // row 300 exactly
	hi := types.Float64Value(305 * 1.5).SortKey()
	rows, err := r.ReadColumnFiltered(2, Predicate{Min: lo, Max: hi})
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	for _, fr := range rows {
		require.GreaterOrEqual(t, fr.Value.F64, 300*1.5)
	}

	// a range entirely above the column's max must yield nothing.
	above := types.Float64Value(999999).SortKey()
	rows, err = r.ReadColumnFiltered(2, Predicate{Min: above, Max: above})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDictionaryOverflowMixedEncodingWithinColumn(t *testing.T) {
	schema, err := types.NewTabletSchema([]types.ColumnSchema{
		{Name: "tag", Type: types.FieldBytes, Encoding: types.EncodingDictionary},
	}, types.KeysDuplicate)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.PageRowLimit = 100
	cfg.DictionaryMaxCardinality = 20

	w, err := NewWriter(schema, cfg)
	require.NoError(t, err)
	// first page: low cardinality, fits the dictionary ceiling.
	for i := 0; i < 100; i++ {
		require.NoError(t, w.AppendRow([]types.Value{types.BytesValue([]byte(fmt.Sprintf("t%d", i%5)))}))
	}
	// second page: every value distinct, overflows the ceiling and falls
	// back to Plain for that page only.
	for i := 0; i < 100; i++ {
		require.NoError(t, w.AppendRow([]types.Value{types.BytesValue([]byte(fmt.Sprintf("distinct-%d", i)))}))
	}
	data, err := w.Finalize()
	require.NoError(t, err)

	r, err := Open(data, schema)
	require.NoError(t, err)
	values, err := r.ReadColumn(0)
	require.NoError(t, err)
	require.Len(t, values, 200)
	for i := 0; i < 100; i++ {
		require.Equal(t, fmt.Sprintf("t%d", i%5), string(values[i].B))
	}
	for i := 100; i < 200; i++ {
		require.Equal(t, fmt.Sprintf("distinct-%d", i-100), string(values[i].B))
	}
}

func TestAutoEncodingSampleSpansFullConfiguredWindow(t *testing.T) {
	schema, err := types.NewTabletSchema([]types.ColumnSchema{
		{Name: "tag", Type: types.FieldBytes, Encoding: types.EncodingAuto},
	}, types.KeysDuplicate)
	require.NoError(t, err)

	cfg := config.Default() // PageRowLimit=1024, DictionaryAutoSampleRows=4096, DictionaryAutoMaxDistinct=256
	w, err := NewWriter(schema, cfg)
	require.NoError(t, err)

	// rows 0..1023: only 10 distinct values, well under the 256 ceiling.
	for i := 0; i < cfg.PageRowLimit; i++ {
		require.NoError(t, w.AppendRow([]types.Value{types.BytesValue([]byte(fmt.Sprintf("v%d", i%10)))}))
	}
	// rows 1024..4095: every value distinct, pushing the true count over
	// 256 distinct values before the 4096-row sample window closes. A
	// heuristic truncated to the first page (1024 rows) would never see
	// this and would wrongly commit to Dictionary.
	for i := cfg.PageRowLimit; i < cfg.DictionaryAutoSampleRows; i++ {
		require.NoError(t, w.AppendRow([]types.Value{types.BytesValue([]byte(fmt.Sprintf("distinct-%d", i)))}))
	}
	data, err := w.Finalize()
	require.NoError(t, err)

	r, err := Open(data, schema)
	require.NoError(t, err)
	require.Equal(t, types.EncodingPlain, r.footer.Columns[0].Encoding,
		"the auto heuristic must see the full DictionaryAutoSampleRows window, not just the first page")
}

func TestDeltaEncodedLargeSortedColumnCompressesWell(t *testing.T) {
	schema, err := types.NewTabletSchema([]types.ColumnSchema{
		{Name: "id", Type: types.FieldInt64, IsKey: true, Encoding: types.EncodingDelta},
	}, types.KeysDuplicate)
	require.NoError(t, err)

	const rows = 50000
	w, err := NewWriter(schema, config.Default())
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		require.NoError(t, w.AppendRow([]types.Value{types.Int64Value(int64(i))}))
	}
	data, err := w.Finalize()
	require.NoError(t, err)

	require.Less(t, len(data), rows*8/5, "delta+LZ4 encoding of sequential ids should compress well under plain 8 bytes/row")

	r, err := Open(data, schema)
	require.NoError(t, err)
	values, err := r.ReadColumn(0)
	require.NoError(t, err)
	require.Len(t, values, rows)
	for i, v := range values {
		require.Equal(t, int64(i), v.I)
	}
}
