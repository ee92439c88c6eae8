package writer

import (
	"bytes"
	"context"
	"testing"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/object"
	"github.com/stretchr/testify/require"
)

func TestWriterAccumulatesAndFlushes(t *testing.T) {
	ctx := context.Background()
	fb := backend.NewFake()
	og := object.New(fb, fb, ids.NewGenerator(1), index.New(fb))

	size := int64(64 << 20) // 64 MiB, per spec.md S5
	h, err := og.Create(ctx, size, true)
	require.NoError(t, err)

	w := Prepare(h)
	data := bytes.Repeat([]byte("y"), int(size))

	chunk1 := data[:MaxAccSize]
	chunk2 := data[MaxAccSize:]

	require.NoError(t, w.Process(ctx, chunk1))
	require.Greater(t, w.BytesWritten(), int64(0))

	require.NoError(t, w.Process(ctx, chunk2))
	require.NoError(t, w.Process(ctx, nil)) // end-of-stream signal

	var got []byte
	require.NoError(t, h.Read(ctx, 0, size-1, func(off int64, d []byte) error {
		got = append(got, d...)
		return nil
	}))
	require.Equal(t, data, got)
}
