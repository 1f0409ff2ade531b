// Package tablet implements Tablet and TabletManager (§4.9): per-tablet
// RWMutex-guarded state and the 64-shard registry that arbitrates
// concurrent access across tablets.
package tablet

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matrixorigin/olapcore/pkg/logutil"
	"github.com/matrixorigin/olapcore/pkg/rowset"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/version"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Tablet is (tablet_id, schema_hash) -> {schema, rowsets, version graph,
// max_continuous_version, creation_time} (§3). All state is guarded by one
// readers-writer lock: readers (capture, read-column paths) share; publish,
// compaction, and schema changes take the lock exclusively (§4.9, §5).
type Tablet struct {
	mu sync.RWMutex

	tabletID   uint64
	schemaHash uint64
	schema     *types.TabletSchema

	rowsets              map[uint64]*rowset.Meta
	graph                *version.Graph
	maxContinuousVersion int64
	creationTime         time.Time
}

// New constructs an empty tablet. createdAt is supplied by the caller's
// Clock collaborator (§6.3) rather than read internally, keeping the core
// free of a wall-clock dependency.
func New(tabletID uint64, schema *types.TabletSchema, createdAt time.Time) *Tablet {
	return &Tablet{
		tabletID:             tabletID,
		schemaHash:           schema.SchemaHash(),
		schema:               schema,
		rowsets:              make(map[uint64]*rowset.Meta),
		graph:                version.New(),
		maxContinuousVersion: -1,
		creationTime:         createdAt,
	}
}

func (t *Tablet) TabletID() uint64   { return t.tabletID }
func (t *Tablet) SchemaHash() uint64 { return t.schemaHash }

func (t *Tablet) CreationTime() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.creationTime
}

// Publish runs steps 2-5 of the publish protocol (§4.9): exclusive lock,
// validate, insert, recompute max_continuous_version, release. Locating
// the tablet (step 1) is the TabletManager's responsibility.
func (t *Tablet) Publish(meta rowset.Meta) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if meta.SchemaHash != t.schemaHash {
		logutil.L().Error("publish rejected", zap.Uint64("tablet", t.tabletID),
			zap.Uint64("want_schema_hash", t.schemaHash), zap.Uint64("got_schema_hash", meta.SchemaHash))
		return xerr.New(xerr.SchemaMismatch, "rowset schema hash does not match tablet",
			"tablet", t.tabletID, "want", t.schemaHash, "got", meta.SchemaHash)
	}
	if meta.Start > meta.End {
		logutil.L().Error("publish rejected", zap.Uint64("tablet", t.tabletID),
			zap.Uint64("start", meta.Start), zap.Uint64("end", meta.End))
		return xerr.New(xerr.InvalidArgument, "rowset version range start > end", "start", meta.Start, "end", meta.End)
	}
	if meta.State != rowset.Visible {
		logutil.L().Error("publish rejected", zap.Uint64("tablet", t.tabletID), zap.Stringer("state", meta.State))
		return xerr.New(xerr.InvalidArgument, "published rowset must be Visible", "state", meta.State)
	}
	if _, exists := t.rowsets[meta.RowsetID]; exists {
		logutil.L().Error("publish rejected", zap.Uint64("tablet", t.tabletID), zap.Uint64("rowset_id", meta.RowsetID))
		return xerr.New(xerr.AlreadyExists, "rowset id already published", "rowset_id", meta.RowsetID)
	}
	if err := t.graph.AddRowset(meta.Start, meta.End, meta.RowsetID); err != nil {
		logutil.L().Error("publish rejected", zap.Uint64("tablet", t.tabletID), zap.Error(err))
		return err
	}

	m := meta
	t.rowsets[meta.RowsetID] = &m
	t.maxContinuousVersion = t.graph.MaxContinuousVersion()
	return nil
}

// CaptureConsistentVersions is a read-only operation sharing the tablet
// lock (§4.8, §5).
func (t *Tablet) CaptureConsistentVersions(from, to uint64) ([]uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.graph.CaptureConsistentVersions(from, to)
}

func (t *Tablet) MaxContinuousVersion() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.maxContinuousVersion
}

// CompactionScore is a read-only signal (count of Visible rowsets) for the
// out-of-scope external compactor to order candidates by; it implements no
// compaction policy itself (§1 Non-goal; supplemented from
// original_source/'s compute_compaction_score).
func (t *Tablet) CompactionScore() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	score := 0
	for _, r := range t.rowsets {
		if r.State == rowset.Visible {
			score++
		}
	}
	return score
}

// MarkRowsetStale retires a published rowset outside of publish, for use
// by an external compactor after it publishes a merged replacement
// (supplemented from original_source/'s mark_rowset_stale). It changes only
// the rowset's State; the rowset's edge stays in the version graph, so
// capture and MaxContinuousVersion still count it.
func (t *Tablet) MarkRowsetStale(rowsetID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rowsets[rowsetID]
	if !ok {
		return xerr.New(xerr.NotFound, "rowset not found", "rowset_id", rowsetID)
	}
	r.State = rowset.Stale
	return nil
}

// RowsetMeta returns a copy of one rowset's metadata.
func (t *Tablet) RowsetMeta(rowsetID uint64) (rowset.Meta, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rowsets[rowsetID]
	if !ok {
		return rowset.Meta{}, xerr.New(xerr.NotFound, "rowset not found", "rowset_id", rowsetID)
	}
	return *r, nil
}
