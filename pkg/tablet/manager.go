package tablet

import (
	"sort"
	"sync"
	"time"

	"github.com/matrixorigin/olapcore/pkg/rowset"
	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

type tabletKey struct {
	tabletID   uint64
	schemaHash uint64
}

type shard struct {
	mu      sync.RWMutex
	tablets map[tabletKey]*Tablet
}

// Manager partitions tablet_ids across shards by tablet_id mod shard
// count; each shard is an independently lockable map, so insertion and
// lookup contend on at most one shard (§4.9, §9 "Sharded registry").
type Manager struct {
	shards []*shard
}

// NewManager builds a registry with the given shard count (64 by
// default, per config.Default().ShardCount).
func NewManager(shardCount int) *Manager {
	if shardCount <= 0 {
		shardCount = 1
	}
	m := &Manager{shards: make([]*shard, shardCount)}
	for i := range m.shards {
		m.shards[i] = &shard{tablets: make(map[tabletKey]*Tablet)}
	}
	return m
}

func (m *Manager) shardFor(tabletID uint64) *shard {
	return m.shards[tabletID%uint64(len(m.shards))]
}

// CreateTablet registers a new tablet, failing with AlreadyExists if the
// (tablet_id, schema_hash) pair is already present.
func (m *Manager) CreateTablet(tabletID uint64, schema *types.TabletSchema, createdAt time.Time) (*Tablet, error) {
	key := tabletKey{tabletID, schema.SchemaHash()}
	sh := m.shardFor(tabletID)

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.tablets[key]; exists {
		return nil, xerr.New(xerr.AlreadyExists, "tablet already exists", "tablet_id", tabletID, "schema_hash", key.schemaHash)
	}
	t := New(tabletID, schema, createdAt)
	sh.tablets[key] = t
	return t, nil
}

// GetTablet locates a tablet: read-lock the shard, look up, release
// (§4.9 publish protocol step 1).
func (m *Manager) GetTablet(tabletID, schemaHash uint64) (*Tablet, error) {
	sh := m.shardFor(tabletID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	t, ok := sh.tablets[tabletKey{tabletID, schemaHash}]
	if !ok {
		return nil, xerr.New(xerr.NotFound, "tablet not found", "tablet_id", tabletID, "schema_hash", schemaHash)
	}
	return t, nil
}

// PublishRowset implements the full publish protocol (§4.9): locate (step
// 1, inside GetTablet), then the tablet's own exclusive-lock
// validate-insert-recompute sequence (steps 2-5, inside Tablet.Publish).
func (m *Manager) PublishRowset(tabletID, schemaHash uint64, meta rowset.Meta) error {
	t, err := m.GetTablet(tabletID, schemaHash)
	if err != nil {
		return err
	}
	return t.Publish(meta)
}

// DropTablet removes a tablet from the registry (§3 Lifecycle).
func (m *Manager) DropTablet(tabletID, schemaHash uint64) error {
	sh := m.shardFor(tabletID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	key := tabletKey{tabletID, schemaHash}
	if _, ok := sh.tablets[key]; !ok {
		return xerr.New(xerr.NotFound, "tablet not found", "tablet_id", tabletID, "schema_hash", schemaHash)
	}
	delete(sh.tablets, key)
	return nil
}

// CompactionCandidate is one read-only diagnostic entry returned by
// CollectCompactionCandidates.
type CompactionCandidate struct {
	TabletID   uint64
	SchemaHash uint64
	Score      int
}

// CollectCompactionCandidates sweeps every shard and returns
// (tablet_id, schema_hash, score) tuples sorted by score descending. It is
// a read-only diagnostic sweep, not a scheduler (supplemented from
// original_source/'s TabletManager::collect_compaction_candidates, §1
// Non-goal: no compaction policy is implemented here).
func (m *Manager) CollectCompactionCandidates() []CompactionCandidate {
	var out []CompactionCandidate
	for _, sh := range m.shards {
		sh.mu.RLock()
		for key, t := range sh.tablets {
			out = append(out, CompactionCandidate{
				TabletID:   key.tabletID,
				SchemaHash: key.schemaHash,
				Score:      t.CompactionScore(),
			})
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TabletID < out[j].TabletID
	})
	return out
}
