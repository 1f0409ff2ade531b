package tablet

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/olapcore/pkg/rowset"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

func TestManagerCreateGetDropTablet(t *testing.T) {
	schema := testSchema(t)
	m := NewManager(8)

	tab, err := m.CreateTablet(42, schema, time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, uint64(42), tab.TabletID())

	_, err = m.CreateTablet(42, schema, time.Unix(0, 0))
	require.Error(t, err)
	require.Equal(t, xerr.AlreadyExists, xerr.KindOf(err))

	got, err := m.GetTablet(42, schema.SchemaHash())
	require.NoError(t, err)
	require.Same(t, tab, got)

	require.NoError(t, m.DropTablet(42, schema.SchemaHash()))
	_, err = m.GetTablet(42, schema.SchemaHash())
	require.Error(t, err)
	require.Equal(t, xerr.NotFound, xerr.KindOf(err))
}

func TestManagerGetTabletNotFound(t *testing.T) {
	m := NewManager(8)
	_, err := m.GetTablet(1, 2)
	require.Error(t, err)
	require.Equal(t, xerr.NotFound, xerr.KindOf(err))
}

func TestManagerPublishRowsetViaLocateThenPublish(t *testing.T) {
	schema := testSchema(t)
	m := NewManager(8)
	_, err := m.CreateTablet(1, schema, time.Unix(0, 0))
	require.NoError(t, err)

	err = m.PublishRowset(1, schema.SchemaHash(), rowset.Meta{
		RowsetID: 1, Start: 0, End: 0, SchemaHash: schema.SchemaHash(), State: rowset.Visible,
	})
	require.NoError(t, err)

	tab, err := m.GetTablet(1, schema.SchemaHash())
	require.NoError(t, err)
	require.Equal(t, int64(0), tab.MaxContinuousVersion())
}

// TestManagerConcurrentPublishAcrossManyTablets reproduces many goroutines
// publishing concurrently to distinct tablets spread across shards,
// asserting no cross-tablet interference.
func TestManagerConcurrentPublishAcrossManyTablets(t *testing.T) {
	const tabletCount = 64
	schema := testSchema(t)
	m := NewManager(8)

	for i := uint64(0); i < tabletCount; i++ {
		_, err := m.CreateTablet(i, schema, time.Unix(0, 0))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := uint64(0); i < tabletCount; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.PublishRowset(i, schema.SchemaHash(), rowset.Meta{
				RowsetID: i, Start: 0, End: 9, SchemaHash: schema.SchemaHash(), State: rowset.Visible,
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := uint64(0); i < tabletCount; i++ {
		tab, err := m.GetTablet(i, schema.SchemaHash())
		require.NoError(t, err)
		require.Equal(t, int64(9), tab.MaxContinuousVersion())
		meta, err := tab.RowsetMeta(i)
		require.NoError(t, err)
		require.Equal(t, i, meta.RowsetID)
	}
}

func TestCollectCompactionCandidatesSortedByScoreDesc(t *testing.T) {
	schema := testSchema(t)
	m := NewManager(4)

	tabA, err := m.CreateTablet(1, schema, time.Unix(0, 0))
	require.NoError(t, err)
	tabB, err := m.CreateTablet(2, schema, time.Unix(0, 0))
	require.NoError(t, err)

	require.NoError(t, tabA.Publish(rowset.Meta{RowsetID: 1, Start: 0, End: 0, SchemaHash: schema.SchemaHash(), State: rowset.Visible}))

	require.NoError(t, tabB.Publish(rowset.Meta{RowsetID: 2, Start: 0, End: 0, SchemaHash: schema.SchemaHash(), State: rowset.Visible}))
	require.NoError(t, tabB.Publish(rowset.Meta{RowsetID: 3, Start: 1, End: 1, SchemaHash: schema.SchemaHash(), State: rowset.Visible}))

	candidates := m.CollectCompactionCandidates()
	require.Len(t, candidates, 2)
	require.Equal(t, uint64(2), candidates[0].TabletID)
	require.Equal(t, 2, candidates[0].Score)
	require.Equal(t, uint64(1), candidates[1].TabletID)
	require.Equal(t, 1, candidates[1].Score)
}
