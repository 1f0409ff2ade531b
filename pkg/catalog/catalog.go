// Package catalog is the external collaborator of §6.3: a minimal
// database/table/partition registry and the tablet_for_row routing
// function, both explicitly documented as having no algorithmic depth
// beyond conventional range/list partitioning and hash bucketing (§1).
package catalog

import (
	"hash/fnv"
	"sync"

	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Database is the minimal metadata record behind create_database.
type Database struct {
	ID   uint64
	Name string
}

// PartitionSpec is range partitioning on one column: partition i covers
// (Bounds[i-1], Bounds[i]], the first partition covers everything up to
// Bounds[0], and one extra partition covers everything above the last
// bound. An empty Bounds list means "one partition, no range split".
type PartitionSpec struct {
	Column string
	Bounds []types.Value
}

func (p PartitionSpec) count() int { return len(p.Bounds) + 1 }

// indexFor returns which partition v falls into by linear scan of the
// (typically tiny) bound list.
func (p PartitionSpec) indexFor(v types.Value) int {
	for i, b := range p.Bounds {
		if v.Compare(b) <= 0 {
			return i
		}
	}
	return len(p.Bounds)
}

// BucketSpec is hash bucketing over one or more columns.
type BucketSpec struct {
	Columns    []string
	NumBuckets int
}

func (b BucketSpec) indexFor(row map[string]types.Value) int {
	h := fnv.New64a()
	for _, col := range b.Columns {
		_, _ = h.Write([]byte(col))
		_, _ = h.Write(row[col].SortKey())
	}
	return int(h.Sum64() % uint64(b.NumBuckets))
}

// Table is the registered metadata for one table: its schema and its
// partitioning/bucketing scheme. Tablet identity is never stored here —
// DeriveTabletID is a pure function of (table_id, partition_idx,
// bucket_idx, replica), so the registry carries no tablet grid.
type Table struct {
	ID        uint64
	DBID      uint64
	Name      string
	Schema    *types.TabletSchema
	Partition PartitionSpec
	Bucket    BucketSpec
	Replicas  int
}

// PartitionCount and BucketCount are read by the engine facade to enumerate
// every (partition, bucket, replica) tuple at table-creation time.
func (t *Table) PartitionCount() int { return t.Partition.count() }
func (t *Table) BucketCount() int    { return t.Bucket.NumBuckets }

// Catalog is the registry of databases and tables.
type Catalog struct {
	mu        sync.RWMutex
	databases map[uint64]*Database
	tables    map[uint64]*Table
}

func New() *Catalog {
	return &Catalog{databases: make(map[uint64]*Database), tables: make(map[uint64]*Table)}
}

// CreateDatabase is idempotent for an exact (id, name) repeat, and fails
// with AlreadyExists if id is already registered under a different name
// (§6.2).
func (c *Catalog) CreateDatabase(id uint64, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.databases[id]; ok {
		if existing.Name == name {
			return nil
		}
		return xerr.New(xerr.AlreadyExists, "database id already registered under a different name", "db_id", id)
	}
	c.databases[id] = &Database{ID: id, Name: name}
	return nil
}

// RegisterTable records a table's schema and partitioning scheme. The
// engine facade calls this after pre-creating every tablet the table's
// partition/bucket/replica grid implies.
func (c *Catalog) RegisterTable(t *Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.databases[t.DBID]; !ok {
		return xerr.New(xerr.NotFound, "database not found", "db_id", t.DBID)
	}
	if _, exists := c.tables[t.ID]; exists {
		return xerr.New(xerr.AlreadyExists, "table already exists", "table_id", t.ID)
	}
	c.tables[t.ID] = t
	return nil
}

func (c *Catalog) Table(tableID uint64) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[tableID]
	if !ok {
		return nil, xerr.New(xerr.NotFound, "table not found", "table_id", tableID)
	}
	return t, nil
}

// TabletForRow routes (table, row) -> tablet_id via partition predicate x
// hash(bucket columns) mod num_buckets, treated as a pure function (§6.3).
// Always routes to replica 0; replica fan-out for writes is the caller's
// concern.
func TabletForRow(t *Table, row map[string]types.Value) uint64 {
	partitionIdx := t.Partition.indexFor(row[t.Partition.Column])
	bucketIdx := t.Bucket.indexFor(row)
	return DeriveTabletID(t.ID, partitionIdx, bucketIdx, 0)
}

// DeriveTabletID is the pure (table_id, partition_idx, bucket_idx,
// replica) -> tablet_id mapping, shared by routing and by table-creation
// pre-creation so both agree without storing an explicit grid.
func DeriveTabletID(tableID uint64, partitionIdx, bucketIdx, replica int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(v uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	write(tableID)
	write(uint64(partitionIdx))
	write(uint64(bucketIdx))
	write(uint64(replica))
	return h.Sum64()
}
