// Package rowset defines RowsetMeta (§3): the immutable metadata record a
// segment writer's output is published under.
package rowset

// State is a rowset's lifecycle stage.
type State uint8

const (
	Visible State = iota
	Stale
	Dropped
)

func (s State) String() string {
	switch s {
	case Visible:
		return "Visible"
	case Stale:
		return "Stale"
	case Dropped:
		return "Dropped"
	default:
		return "Unknown"
	}
}

// SegmentRef names one segment file belonging to a rowset, by opaque
// storage path (interpreted by the Blob capability, §6.3).
type SegmentRef struct {
	Path string
}

// Meta is a rowset's immutable metadata: identity, the version range it
// covers, its schema hash, its segment files, and its current state.
// Rowsets are immutable after publication (§3); compaction produces a new
// Meta rather than mutating one in place, except for the State field,
// which transitions Visible -> Stale -> Dropped as the only allowed
// post-publish change.
type Meta struct {
	RowsetID   uint64
	Start      uint64
	End        uint64
	SchemaHash uint64
	Segments   []SegmentRef
	RowCount   uint64
	State      State
}
