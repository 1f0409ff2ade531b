package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrdinalIndexPageForRow(t *testing.T) {
	idx := &OrdinalIndex{}
	idx.Add(0, 0, 100)
	idx.Add(1024, 100, 90)
	idx.Add(2048, 190, 80)

	cases := []struct {
		row  uint32
		want int
	}{
		{0, 0}, {500, 0}, {1023, 0},
		{1024, 1}, {2000, 1},
		{2048, 2}, {5000, 2},
	}
	for _, tc := range cases {
		got, ok := idx.PageForRow(tc.row)
		require.True(t, ok)
		require.Equal(t, tc.want, got, "row %d", tc.row)
	}
}

func TestOrdinalIndexEmpty(t *testing.T) {
	idx := &OrdinalIndex{}
	_, ok := idx.PageForRow(0)
	require.False(t, ok)
}

func TestOrdinalIndexSerializeRoundTrip(t *testing.T) {
	idx := &OrdinalIndex{}
	idx.Add(0, 0, 100)
	idx.Add(1024, 100, 90)

	data := idx.Serialize()
	got, err := DeserializeOrdinal(data)
	require.NoError(t, err)
	require.Equal(t, idx.Entries, got.Entries)
}
