package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZoneMapIntersects(t *testing.T) {
	idx := &ZoneMapIndex{}
	idx.Add(ZoneMapEntry{Min: []byte{10}, Max: []byte{20}})
	idx.Add(ZoneMapEntry{Min: []byte{30}, Max: []byte{40}})
	idx.Add(ZoneMapEntry{AllNull: true})

	require.True(t, idx.Intersects(0, []byte{15}, []byte{25}))
	require.False(t, idx.Intersects(0, []byte{21}, []byte{25}))
	require.True(t, idx.Intersects(1, nil, nil))
	require.False(t, idx.Intersects(2, nil, nil), "all-null page never matches a range probe")
}

func TestZoneMapSerializeRoundTrip(t *testing.T) {
	idx := &ZoneMapIndex{}
	idx.Add(ZoneMapEntry{Min: []byte{1, 2}, Max: []byte{9, 9}, HasNull: true})
	idx.Add(ZoneMapEntry{AllNull: true})

	data := idx.Serialize()
	got, err := DeserializeZoneMap(data)
	require.NoError(t, err)
	require.Equal(t, idx.Entries, got.Entries)
}
