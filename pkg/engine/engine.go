// Package engine is the top-level public API surface (§6.2): a facade
// wiring the catalog, tablet registry, blob capability, and segment
// reader/writer into the engine's literal operations.
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matrixorigin/olapcore/pkg/blob"
	"github.com/matrixorigin/olapcore/pkg/catalog"
	"github.com/matrixorigin/olapcore/pkg/config"
	"github.com/matrixorigin/olapcore/pkg/rowset"
	"github.com/matrixorigin/olapcore/pkg/segment"
	"github.com/matrixorigin/olapcore/pkg/tablet"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Clock supplies monotonic wall-clock timestamps for metadata (§6.3). The
// core never reads the system clock directly.
type Clock func() time.Time

// Engine wires every collaborator named in §6.3 behind the operations
// named in §6.2.
type Engine struct {
	cfg     config.Config
	catalog *catalog.Catalog
	tablets *tablet.Manager
	blob    blob.Store
	clock   Clock
}

func New(store blob.Store, cfg config.Config, clock Clock) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		cfg:     cfg,
		catalog: catalog.New(),
		tablets: tablet.NewManager(cfg.ShardCount),
		blob:    store,
		clock:   clock,
	}
}

// CreateDatabase is idempotent creation; fails with AlreadyExists on a
// conflicting duplicate id (§6.2).
func (e *Engine) CreateDatabase(id uint64, name string) error {
	return e.catalog.CreateDatabase(id, name)
}

// CreateTableWithPartitions registers the table and pre-creates every
// tablet its partition x bucket x replica grid implies, fanning the
// creation calls out across an errgroup since each tablet is independent
// (§6.2).
func (e *Engine) CreateTableWithPartitions(
	ctx context.Context,
	dbID, tableID uint64,
	name string,
	schema *types.TabletSchema,
	partition catalog.PartitionSpec,
	bucket catalog.BucketSpec,
	replicas int,
) error {
	if replicas <= 0 {
		replicas = 1
	}
	t := &catalog.Table{
		ID:        tableID,
		DBID:      dbID,
		Name:      name,
		Schema:    schema,
		Partition: partition,
		Bucket:    bucket,
		Replicas:  replicas,
	}

	createdAt := e.clock()
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < t.PartitionCount(); p++ {
		for b := 0; b < t.BucketCount(); b++ {
			for r := 0; r < replicas; r++ {
				p, b, r := p, b, r
				g.Go(func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					tabletID := catalog.DeriveTabletID(tableID, p, b, r)
					_, err := e.tablets.CreateTablet(tabletID, schema, createdAt)
					return err
				})
			}
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return e.catalog.RegisterTable(t)
}

// TabletForRow routes a row to its owning tablet via the catalog's pure
// routing function (§6.2).
func (e *Engine) TabletForRow(tableID uint64, row map[string]types.Value) (uint64, error) {
	t, err := e.catalog.Table(tableID)
	if err != nil {
		return 0, err
	}
	return catalog.TabletForRow(t, row), nil
}

// GetTablet returns an opaque tablet handle (§6.2).
func (e *Engine) GetTablet(tabletID, schemaHash uint64) (*tablet.Tablet, error) {
	return e.tablets.GetTablet(tabletID, schemaHash)
}

// PublishRowset runs the publish protocol (§4.9, §6.2).
func (e *Engine) PublishRowset(tabletID, schemaHash uint64, meta rowset.Meta) error {
	return e.tablets.PublishRowset(tabletID, schemaHash, meta)
}

// WriteRowset builds one segment from rows, persists it through the Blob
// capability, and returns the rowset metadata ready for PublishRowset. This
// is the write-path glue between the segment writer (§4.6) and the publish
// protocol (§4.9); §6.2 leaves segment construction itself to the caller.
func (e *Engine) WriteRowset(
	ctx context.Context,
	schema *types.TabletSchema,
	rowsetID, start, end uint64,
	rows [][]types.Value,
	segmentPath string,
) (rowset.Meta, error) {
	if start > end {
		return rowset.Meta{}, xerr.New(xerr.InvalidArgument, "rowset version range start > end", "start", start, "end", end)
	}
	w, err := segment.NewWriter(schema, e.cfg)
	if err != nil {
		return rowset.Meta{}, err
	}
	for _, row := range rows {
		if err := w.AppendRow(row); err != nil {
			return rowset.Meta{}, err
		}
	}
	data, err := w.Finalize()
	if err != nil {
		return rowset.Meta{}, err
	}
	if err := e.blob.Put(ctx, segmentPath, data); err != nil {
		return rowset.Meta{}, xerr.Wrap(xerr.Io, err, "segment put failed", "path", segmentPath)
	}
	return rowset.Meta{
		RowsetID:   rowsetID,
		Start:      start,
		End:        end,
		SchemaHash: schema.SchemaHash(),
		Segments:   []rowset.SegmentRef{{Path: segmentPath}},
		RowCount:   uint64(len(rows)),
		State:      rowset.Visible,
	}, nil
}

// OpenSegment fetches a rowset's segment bytes from the Blob capability and
// opens a reader against it (§4.7).
func (e *Engine) OpenSegment(ctx context.Context, schema *types.TabletSchema, ref rowset.SegmentRef) (*segment.Reader, error) {
	data, err := e.blob.Get(ctx, ref.Path)
	if err != nil {
		return nil, err
	}
	return segment.Open(data, schema)
}
