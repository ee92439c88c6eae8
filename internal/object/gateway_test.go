package object

import (
	"bytes"
	"context"
	"testing"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/index"
	"github.com/stretchr/testify/require"
)

func newTestGateway() *Gateway {
	fb := backend.NewFake()
	return New(fb, fb, ids.NewGenerator(7), index.New(fb))
}

func TestCreateWriteReadPlain(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway()

	data := bytes.Repeat([]byte("x"), 10000)
	h, err := g.Create(ctx, int64(len(data)), true)
	require.NoError(t, err)

	require.NoError(t, h.Write(ctx, 0, data, true))

	var got []byte
	err = h.Read(ctx, 0, int64(len(data)-1), func(off int64, d []byte) error {
		got = append(got, d...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestCreateCompositeAndDelete(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway()

	h, err := g.CreateComposite(ctx, 1<<20)
	require.NoError(t, err)
	require.True(t, h.Meta().IsComposite)
	require.False(t, h.Meta().TopLayerOID.IsZero())

	data := []byte("hello composite")
	sub := &Handle{g: g, meta: Meta{ObjectID: h.Meta().TopLayerOID, LayoutID: h.Meta().LayoutID}, layout: h.Layout(), opened: true}
	require.NoError(t, sub.Write(ctx, 0, data, true))

	var got []byte
	err = h.Read(ctx, 0, int64(len(data)-1), func(off int64, d []byte) error {
		got = append(got, d...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, data, got)

	require.NoError(t, g.Delete(ctx, h.Meta()))
}

func TestOptimalBlockSize(t *testing.T) {
	l := backend.Layout{UnitSize: 4096, DataUnits: 2, ParityUnits: 1, SpareUnits: 0, PoolWidth: 4}
	g := l.GroupSize()
	require.Equal(t, int64(8192), g)

	// small last write pads to unit size.
	require.Equal(t, int64(4096), OptimalBlockSize(l, 10, true))
	// small non-last write rounds up to group size.
	require.Equal(t, g, OptimalBlockSize(l, 10, false))
}
