package index

import (
	"bytes"
	"encoding/binary"

	"github.com/google/btree"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// MaxShortKeyBytes is the 36-byte cap on the concatenated leading
// key-column prefix (§3).
const MaxShortKeyBytes = 36

type shortKeyItem struct {
	prefix []byte
	rowID  uint32
}

func (a *shortKeyItem) Less(than btree.Item) bool {
	return bytes.Compare(a.prefix, than.(*shortKeyItem).prefix) < 0
}

// ShortKeyIndex is a segment-level sparse index: one entry per interval
// (1024 rows by default), holding the truncated leading key-column prefix
// and its starting row_id, ordered by prefix for prefix seeks (§4.5).
type ShortKeyIndex struct {
	tree    *btree.BTree
	entries []shortKeyItem // insertion order, also used for serialize/deserialize
}

func NewShortKeyIndex() *ShortKeyIndex {
	return &ShortKeyIndex{tree: btree.New(32)}
}

// Add records one sparse entry, truncating prefix to MaxShortKeyBytes. The
// segment writer owns the concatenation order of the key columns.
func (sk *ShortKeyIndex) Add(rowID uint32, prefix []byte) {
	if len(prefix) > MaxShortKeyBytes {
		prefix = prefix[:MaxShortKeyBytes]
	}
	item := shortKeyItem{prefix: append([]byte(nil), prefix...), rowID: rowID}
	sk.entries = append(sk.entries, item)
	sk.tree.ReplaceOrInsert(&item)
}

// Seek returns the starting row_id of the greatest entry whose prefix is
// <= probe (a lower-bound prefix seek, §4.5). An exact match wins outright;
// otherwise the greatest strictly-lesser entry is used. If probe sorts
// before every entry, the first-added entry's row_id is returned, and 0 for
// an empty index.
func (sk *ShortKeyIndex) Seek(probe []byte) uint32 {
	if exact := sk.tree.Get(&shortKeyItem{prefix: probe}); exact != nil {
		return exact.(*shortKeyItem).rowID
	}
	var found *shortKeyItem
	sk.tree.AscendLessThan(&shortKeyItem{prefix: probe}, func(i btree.Item) bool {
		found = i.(*shortKeyItem)
		return true
	})
	if found == nil {
		if len(sk.entries) == 0 {
			return 0
		}
		return sk.entries[0].rowID
	}
	return found.rowID
}

func (sk *ShortKeyIndex) Serialize() []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(len(sk.entries)))
	for _, e := range sk.entries {
		var rb [4]byte
		binary.LittleEndian.PutUint32(rb[:], e.rowID)
		out = append(out, rb[:]...)
		out = appendLenPrefixed(out, e.prefix)
	}
	return out
}

func DeserializeShortKey(data []byte) (*ShortKeyIndex, error) {
	if len(data) < 4 {
		return nil, xerr.New(xerr.CorruptData, "short key index shorter than count header")
	}
	n := int(binary.LittleEndian.Uint32(data[:4]))
	sk := NewShortKeyIndex()
	pos := 4
	for i := 0; i < n; i++ {
		if pos+4 > len(data) {
			return nil, xerr.New(xerr.CorruptData, "short key entry truncated reading row id", "entry", i)
		}
		rowID := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
		prefix, next, err := readLenPrefixed(data, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		sk.Add(rowID, prefix)
	}
	return sk, nil
}
