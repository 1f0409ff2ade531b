package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/olapcore/pkg/blob"
	"github.com/matrixorigin/olapcore/pkg/catalog"
	"github.com/matrixorigin/olapcore/pkg/config"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func testSchema(t *testing.T) *types.TabletSchema {
	t.Helper()
	schema, err := types.NewTabletSchema([]types.ColumnSchema{
		{Name: "id", Type: types.FieldInt64, IsKey: true, Encoding: types.EncodingDelta},
		{Name: "amount", Type: types.FieldFloat64, Encoding: types.EncodingPlain},
	}, types.KeysDuplicate)
	require.NoError(t, err)
	return schema
}

func TestCreateTableWithPartitionsPreCreatesEveryTablet(t *testing.T) {
	cfg := config.Default()
	cfg.ShardCount = 4
	e := New(blob.NewMemory(), cfg, fixedClock(time.Unix(100, 0)))
	ctx := context.Background()

	require.NoError(t, e.CreateDatabase(1, "sales"))
	schema := testSchema(t)
	partition := catalog.PartitionSpec{Column: "ts", Bounds: []types.Value{types.Int64Value(1000)}} // 2 partitions
	bucket := catalog.BucketSpec{Columns: []string{"id"}, NumBuckets: 3}

	err := e.CreateTableWithPartitions(ctx, 1, 10, "orders", schema, partition, bucket, 2)
	require.NoError(t, err)

	for p := 0; p < 2; p++ {
		for b := 0; b < 3; b++ {
			for r := 0; r < 2; r++ {
				tabletID := catalog.DeriveTabletID(10, p, b, r)
				tab, err := e.GetTablet(tabletID, schema.SchemaHash())
				require.NoError(t, err, "partition=%d bucket=%d replica=%d", p, b, r)
				require.Equal(t, tabletID, tab.TabletID())
			}
		}
	}
}

func TestCreateTableWithPartitionsRequiresDatabase(t *testing.T) {
	e := New(blob.NewMemory(), config.Default(), fixedClock(time.Unix(0, 0)))
	schema := testSchema(t)
	err := e.CreateTableWithPartitions(context.Background(), 99, 1, "orphan", schema,
		catalog.PartitionSpec{Column: "ts"}, catalog.BucketSpec{Columns: []string{"id"}, NumBuckets: 1}, 1)
	require.Error(t, err)
	require.Equal(t, xerr.NotFound, xerr.KindOf(err))
}

func TestTabletForRowRoutesConsistently(t *testing.T) {
	e := New(blob.NewMemory(), config.Default(), fixedClock(time.Unix(0, 0)))
	ctx := context.Background()
	require.NoError(t, e.CreateDatabase(1, "sales"))
	schema := testSchema(t)
	partition := catalog.PartitionSpec{Column: "id", Bounds: []types.Value{types.Int64Value(500)}}
	bucket := catalog.BucketSpec{Columns: []string{"id"}, NumBuckets: 4}
	require.NoError(t, e.CreateTableWithPartitions(ctx, 1, 10, "orders", schema, partition, bucket, 1))

	row := map[string]types.Value{"id": types.Int64Value(42)}
	tabletID1, err := e.TabletForRow(10, row)
	require.NoError(t, err)
	tabletID2, err := e.TabletForRow(10, row)
	require.NoError(t, err)
	require.Equal(t, tabletID1, tabletID2)

	tab, err := e.GetTablet(tabletID1, schema.SchemaHash())
	require.NoError(t, err)
	require.Equal(t, tabletID1, tab.TabletID())
}

func TestWriteRowsetPublishAndReadRoundTrip(t *testing.T) {
	e := New(blob.NewMemory(), config.Default(), fixedClock(time.Unix(0, 0)))
	ctx := context.Background()
	require.NoError(t, e.CreateDatabase(1, "sales"))
	schema := testSchema(t)
	partition := catalog.PartitionSpec{Column: "id"}
	bucket := catalog.BucketSpec{Columns: []string{"id"}, NumBuckets: 1}
	require.NoError(t, e.CreateTableWithPartitions(ctx, 1, 10, "orders", schema, partition, bucket, 1))

	tabletID := catalog.DeriveTabletID(10, 0, 0, 0)

	var rows [][]types.Value
	for i := 0; i < 200; i++ {
		rows = append(rows, []types.Value{types.Int64Value(int64(i)), types.Float64Value(float64(i) * 2)})
	}
	meta, err := e.WriteRowset(ctx, schema, 1, 0, 0, rows, fmt.Sprintf("tablet-%d/rowset-1.seg", tabletID))
	require.NoError(t, err)
	require.Equal(t, uint64(200), meta.RowCount)

	require.NoError(t, e.PublishRowset(tabletID, schema.SchemaHash(), meta))

	tab, err := e.GetTablet(tabletID, schema.SchemaHash())
	require.NoError(t, err)
	require.Equal(t, int64(0), tab.MaxContinuousVersion())

	r, err := e.OpenSegment(ctx, schema, meta.Segments[0])
	require.NoError(t, err)
	require.Equal(t, uint64(200), r.RowCount())

	ids, err := r.ReadColumn(0)
	require.NoError(t, err)
	require.Len(t, ids, 200)
	for i, v := range ids {
		require.Equal(t, int64(i), v.I)
	}
}

func TestWriteRowsetRejectsInvertedRange(t *testing.T) {
	e := New(blob.NewMemory(), config.Default(), fixedClock(time.Unix(0, 0)))
	schema := testSchema(t)
	_, err := e.WriteRowset(context.Background(), schema, 1, 5, 3, nil, "x.seg")
	require.Error(t, err)
	require.Equal(t, xerr.InvalidArgument, xerr.KindOf(err))
}
