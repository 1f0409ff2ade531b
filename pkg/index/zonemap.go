package index

import (
	"bytes"
	"encoding/binary"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// ZoneMapEntry summarizes one page: its min/max sort-key bytes and whether
// it holds any/all nulls (§4.5).
type ZoneMapEntry struct {
	Min     []byte
	Max     []byte
	HasNull bool
	AllNull bool
}

// ZoneMapIndex is a parallel array to the OrdinalIndex, one entry per page.
type ZoneMapIndex struct {
	Entries []ZoneMapEntry
}

func (idx *ZoneMapIndex) Add(e ZoneMapEntry) {
	idx.Entries = append(idx.Entries, e)
}

// Intersects reports whether page i's [min,max] range could overlap
// [probeMin, probeMax]. Used by read_column_filtered (§4.7) to skip pages
// whose zone map proves disjoint with a predicate.
func (idx *ZoneMapIndex) Intersects(i int, probeMin, probeMax []byte) bool {
	e := idx.Entries[i]
	if e.AllNull {
		return false
	}
	if probeMin != nil && bytes.Compare(e.Max, probeMin) < 0 {
		return false
	}
	if probeMax != nil && bytes.Compare(e.Min, probeMax) > 0 {
		return false
	}
	return true
}

func (idx *ZoneMapIndex) Serialize() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(len(idx.Entries)))
	for _, e := range idx.Entries {
		var flags byte
		if e.HasNull {
			flags |= 1
		}
		if e.AllNull {
			flags |= 2
		}
		out = append(out, flags)
		out = appendLenPrefixed(out, e.Min)
		out = appendLenPrefixed(out, e.Max)
	}
	return out
}

func appendLenPrefixed(out, b []byte) []byte {
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(b)))
	out = append(out, lb[:]...)
	return append(out, b...)
}

func readLenPrefixed(data []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, xerr.New(xerr.CorruptData, "zone map entry truncated reading length")
	}
	n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+n > len(data) {
		return nil, 0, xerr.New(xerr.CorruptData, "zone map entry truncated reading bytes")
	}
	return data[pos : pos+n], pos + n, nil
}

func DeserializeZoneMap(data []byte) (*ZoneMapIndex, error) {
	if len(data) < 4 {
		return nil, xerr.New(xerr.CorruptData, "zone map index shorter than count header")
	}
	n := int(binary.LittleEndian.Uint32(data[:4]))
	idx := &ZoneMapIndex{Entries: make([]ZoneMapEntry, 0, n)}
	pos := 4
	for i := 0; i < n; i++ {
		if pos+1 > len(data) {
			return nil, xerr.New(xerr.CorruptData, "zone map entry truncated reading flags", "entry", i)
		}
		flags := data[pos]
		pos++
		min, next, err := readLenPrefixed(data, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		max, next, err := readLenPrefixed(data, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		idx.Entries = append(idx.Entries, ZoneMapEntry{
			Min: min, Max: max,
			HasNull: flags&1 != 0,
			AllNull: flags&2 != 0,
		})
	}
	return idx, nil
}
