// Package index implements §4.5's four segment-level auxiliary indexes:
// OrdinalIndex, ZoneMapIndex, BloomFilter, and ShortKeyIndex.
package index

import (
	"encoding/binary"
	"sort"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// OrdinalEntry is one page's location: the first row id it holds and
// where its bytes live in the segment's data region.
type OrdinalEntry struct {
	FirstRowID uint32
	PageOffset uint64
	PageLength uint64
}

// OrdinalIndex is a dense, sorted sequence of OrdinalEntry, one per page.
type OrdinalIndex struct {
	Entries []OrdinalEntry
}

// Add records a sealed page. Pages must be added in increasing row order.
func (idx *OrdinalIndex) Add(firstRowID uint32, pageOffset, pageLength uint64) {
	idx.Entries = append(idx.Entries, OrdinalEntry{firstRowID, pageOffset, pageLength})
}

// PageForRow returns the index of the page holding row r, found by binary
// search for the greatest FirstRowID <= r (§4.5).
func (idx *OrdinalIndex) PageForRow(r uint32) (int, bool) {
	n := len(idx.Entries)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return idx.Entries[i].FirstRowID > r })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

func (idx *OrdinalIndex) Serialize() []byte {
	out := make([]byte, 4, 4+len(idx.Entries)*20)
	binary.LittleEndian.PutUint32(out, uint32(len(idx.Entries)))
	for _, e := range idx.Entries {
		var b [20]byte
		binary.LittleEndian.PutUint32(b[0:4], e.FirstRowID)
		binary.LittleEndian.PutUint64(b[4:12], e.PageOffset)
		binary.LittleEndian.PutUint64(b[12:20], e.PageLength)
		out = append(out, b[:]...)
	}
	return out
}

func DeserializeOrdinal(data []byte) (*OrdinalIndex, error) {
	if len(data) < 4 {
		return nil, xerr.New(xerr.CorruptData, "ordinal index shorter than count header")
	}
	n := int(binary.LittleEndian.Uint32(data[:4]))
	idx := &OrdinalIndex{Entries: make([]OrdinalEntry, 0, n)}
	pos := 4
	for i := 0; i < n; i++ {
		if pos+20 > len(data) {
			return nil, xerr.New(xerr.CorruptData, "ordinal index entry truncated", "entry", i)
		}
		idx.Entries = append(idx.Entries, OrdinalEntry{
			FirstRowID: binary.LittleEndian.Uint32(data[pos : pos+4]),
			PageOffset: binary.LittleEndian.Uint64(data[pos+4 : pos+12]),
			PageLength: binary.LittleEndian.Uint64(data[pos+12 : pos+20]),
		})
		pos += 20
	}
	return idx, nil
}
