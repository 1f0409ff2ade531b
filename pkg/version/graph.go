// Package version implements the per-tablet VersionGraph (§4.8): a DAG
// whose edges are rowsets, supporting duplicate detection, breadth-first
// consistent-snapshot capture, and longest-covered-prefix queries.
package version

import (
	"sort"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

type edge struct {
	end      uint64 // exclusive upper bound: end = rowset.End + 1
	rowsetID uint64
}

// Graph is an arena of edges keyed by their start version, per §9's
// "Version DAG as arenas" note: identity lives in the rowset id, the graph
// itself stores no owning references.
type Graph struct {
	adjacency map[uint64][]edge
	seen      map[[2]uint64]struct{} // (start, end) dedup for DuplicateVersion
}

func New() *Graph {
	return &Graph{adjacency: make(map[uint64][]edge), seen: make(map[[2]uint64]struct{})}
}

// AddRowset inserts the directed edge start -> end+1 (§3, §4.8).
func (g *Graph) AddRowset(start, end, rowsetID uint64) error {
	if start > end {
		return xerr.New(xerr.InvalidArgument, "rowset version range start > end", "start", start, "end", end)
	}
	key := [2]uint64{start, end + 1}
	if _, dup := g.seen[key]; dup {
		return xerr.New(xerr.DuplicateVersion, "duplicate version edge", "start", start, "end", end)
	}
	g.seen[key] = struct{}{}
	g.adjacency[start] = append(g.adjacency[start], edge{end: end + 1, rowsetID: rowsetID})
	return nil
}

// CaptureConsistentVersions runs a breadth-first search from `from` to
// `to+1`, preferring (among equal-length paths) edges of greatest span, and
// breaking remaining ties by ascending rowset_id (§4.8). Returns the
// rowset ids along the chosen path in version order.
func (g *Graph) CaptureConsistentVersions(from, to uint64) ([]uint64, error) {
	target := to + 1

	visited := map[uint64]struct{}{from: {}}
	maxVisited := from
	prevEdge := make(map[uint64]edge)
	prevNode := make(map[uint64]uint64)

	queue := []uint64{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			break
		}
		edges := append([]edge(nil), g.adjacency[cur]...)
		sort.Slice(edges, func(i, j int) bool {
			spanI, spanJ := edges[i].end-cur, edges[j].end-cur
			if spanI != spanJ {
				return spanI > spanJ // greatest span first
			}
			return edges[i].rowsetID < edges[j].rowsetID
		})
		for _, e := range edges {
			if _, ok := visited[e.end]; ok {
				continue
			}
			visited[e.end] = struct{}{}
			if e.end > maxVisited {
				maxVisited = e.end
			}
			prevEdge[e.end] = e
			prevNode[e.end] = cur
			queue = append(queue, e.end)
		}
	}

	if _, ok := visited[target]; !ok {
		return nil, xerr.New(xerr.VersionHole, "no path covers requested version range",
			"missing_version", maxVisited)
	}

	var ids []uint64
	for cur := target; cur != from; {
		e := prevEdge[cur]
		ids = append(ids, e.rowsetID)
		cur = prevNode[cur]
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

// MaxContinuousVersion returns the longest prefix 0..=v fully covered by
// the graph's edges, or -1 if version 0 itself is not covered (§4.8). The
// graph keeps no rowset state: every edge added through AddRowset counts,
// here and in CaptureConsistentVersions, including the edge of a rowset
// later marked Stale. Edges
// always advance strictly forward (end = rowset.End+1 > start), so this
// terminates in O(V).
func (g *Graph) MaxContinuousVersion() int64 {
	cur := uint64(0)
	for {
		edges := g.adjacency[cur]
		if len(edges) == 0 {
			break
		}
		best := edges[0].end
		for _, e := range edges[1:] {
			if e.end > best {
				best = e.end
			}
		}
		cur = best
	}
	if cur == 0 {
		return -1
	}
	return int64(cur - 1)
}
