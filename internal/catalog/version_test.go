package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionIDRoundTrip(t *testing.T) {
	for _, ms := range []int64{0, 1, 1000, 1700000000000} {
		enc := EncodeTimestamp(ms)
		require.Len(t, enc, tsWidth)
		dec, err := DecodeTimestamp(enc)
		require.NoError(t, err)
		require.Equal(t, ms, dec)
	}
}

func TestVersionIDOrdering(t *testing.T) {
	t1, t2 := int64(1000), int64(2000)
	e1 := EncodeTimestamp(t1)
	e2 := EncodeTimestamp(t2)
	require.Less(t, e2, e1) // newer timestamp sorts first (descending mtime)
}

func TestNewInstanceShape(t *testing.T) {
	inst, err := NewInstance(12345)
	require.NoError(t, err)
	require.Len(t, inst, tsWidth+instanceRandLen)
}

func TestObjectKeyNullVersion(t *testing.T) {
	k := NullKey("a")
	require.Equal(t, []byte{'a', Sep}, k)
}
