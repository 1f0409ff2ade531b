package tablet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/olapcore/pkg/rowset"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

func testSchema(t *testing.T) *types.TabletSchema {
	t.Helper()
	schema, err := types.NewTabletSchema([]types.ColumnSchema{
		{Name: "id", Type: types.FieldInt64, IsKey: true, Encoding: types.EncodingDelta},
	}, types.KeysDuplicate)
	require.NoError(t, err)
	return schema
}

func TestTabletPublishDrivesMaxContinuousVersion(t *testing.T) {
	schema := testSchema(t)
	tab := New(7, schema, time.Unix(0, 0))

	publish := func(rowsetID, start, end uint64) error {
		return tab.Publish(rowset.Meta{
			RowsetID:   rowsetID,
			Start:      start,
			End:        end,
			SchemaHash: schema.SchemaHash(),
			State:      rowset.Visible,
		})
	}

	require.NoError(t, publish(1, 0, 0))
	require.NoError(t, publish(2, 1, 3))
	require.NoError(t, publish(3, 4, 4))
	require.NoError(t, publish(4, 5, 9))

	require.Equal(t, int64(9), tab.MaxContinuousVersion())

	ids, err := tab.CaptureConsistentVersions(0, 9)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3, 4}, ids)
}

func TestTabletPublishRejectsDuplicateRowsetID(t *testing.T) {
	schema := testSchema(t)
	tab := New(1, schema, time.Unix(0, 0))

	meta := rowset.Meta{RowsetID: 10, Start: 0, End: 0, SchemaHash: schema.SchemaHash(), State: rowset.Visible}
	require.NoError(t, tab.Publish(meta))

	err := tab.Publish(rowset.Meta{RowsetID: 10, Start: 1, End: 1, SchemaHash: schema.SchemaHash(), State: rowset.Visible})
	require.Error(t, err)
	require.Equal(t, xerr.AlreadyExists, xerr.KindOf(err))
}

func TestTabletPublishRejectsSchemaMismatch(t *testing.T) {
	schema := testSchema(t)
	tab := New(1, schema, time.Unix(0, 0))

	err := tab.Publish(rowset.Meta{RowsetID: 1, Start: 0, End: 0, SchemaHash: schema.SchemaHash() + 1, State: rowset.Visible})
	require.Error(t, err)
	require.Equal(t, xerr.SchemaMismatch, xerr.KindOf(err))
}

func TestTabletPublishRejectsNonVisibleState(t *testing.T) {
	schema := testSchema(t)
	tab := New(1, schema, time.Unix(0, 0))

	err := tab.Publish(rowset.Meta{RowsetID: 1, Start: 0, End: 0, SchemaHash: schema.SchemaHash(), State: rowset.Stale})
	require.Error(t, err)
	require.Equal(t, xerr.InvalidArgument, xerr.KindOf(err))
}

func TestTabletMarkRowsetStaleAndCompactionScore(t *testing.T) {
	schema := testSchema(t)
	tab := New(1, schema, time.Unix(0, 0))

	require.NoError(t, tab.Publish(rowset.Meta{RowsetID: 1, Start: 0, End: 0, SchemaHash: schema.SchemaHash(), State: rowset.Visible}))
	require.NoError(t, tab.Publish(rowset.Meta{RowsetID: 2, Start: 1, End: 1, SchemaHash: schema.SchemaHash(), State: rowset.Visible}))
	require.Equal(t, 2, tab.CompactionScore())

	require.NoError(t, tab.MarkRowsetStale(1))
	require.Equal(t, 1, tab.CompactionScore())

	meta, err := tab.RowsetMeta(1)
	require.NoError(t, err)
	require.Equal(t, rowset.Stale, meta.State)

	err = tab.MarkRowsetStale(999)
	require.Error(t, err)
	require.Equal(t, xerr.NotFound, xerr.KindOf(err))
}
