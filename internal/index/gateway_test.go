package index

import (
	"context"
	"testing"

	"github.com/objectgw/sal/internal/backend"
	"github.com/stretchr/testify/require"
)

func TestGatewayPutGetDel(t *testing.T) {
	ctx := context.Background()
	g := New(backend.NewFake())
	require.NoError(t, g.Ensure(ctx, "bucket-index.b"))
	require.NoError(t, g.Ensure(ctx, "bucket-index.b")) // idempotent

	require.NoError(t, g.Put(ctx, "bucket-index.b", []byte("a\x07"), []byte("v1"), false))

	err := g.Put(ctx, "bucket-index.b", []byte("a\x07"), []byte("v2"), false)
	require.Error(t, err)

	require.NoError(t, g.Put(ctx, "bucket-index.b", []byte("a\x07"), []byte("v2"), true))

	v, err := g.Get(ctx, "bucket-index.b", []byte("a\x07"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(v))

	require.NoError(t, g.Del(ctx, "bucket-index.b", []byte("a\x07")))
	_, err = g.Get(ctx, "bucket-index.b", []byte("a\x07"))
	require.Error(t, err)
}

func TestGatewayNextDirectoryCollapse(t *testing.T) {
	ctx := context.Background()
	g := New(backend.NewFake())
	require.NoError(t, g.Ensure(ctx, "bucket-index.b"))

	for _, k := range []string{"a/x\x07", "a/y\x07", "a/sub/z\x07"} {
		require.NoError(t, g.Put(ctx, "bucket-index.b", []byte(k), []byte("1"), false))
	}

	entries, truncated, err := g.Next(ctx, "bucket-index.b", NextOptions{
		Prefix: []byte("a/"),
		Delim:  []byte("/"),
		Max:    10,
	})
	require.NoError(t, err)
	require.False(t, truncated)

	var names []string
	var dirs []string
	for _, e := range entries {
		if e.Value == nil {
			dirs = append(dirs, string(e.Key))
		} else {
			names = append(names, string(e.Key))
		}
	}
	require.Equal(t, []string{"a/x\x07", "a/y\x07"}, names)
	require.Equal(t, []string{"a/sub/"}, dirs)
}

func TestIDForDeterministic(t *testing.T) {
	require.Equal(t, idFor("users"), idFor("users"))
	require.NotEqual(t, idFor("users"), idFor("emails"))
}
