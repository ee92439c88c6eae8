package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/config"
	"github.com/objectgw/sal/internal/engine"
	"github.com/stretchr/testify/require"
)

func TestNewWiresEngineAndMultipart(t *testing.T) {
	ctx := context.Background()
	fb := backend.NewFake()
	cfg := config.Defaults()
	cfg.GCEnabled = false
	cfg.OperationTimeout = 0

	s, err := New(ctx, cfg, fb, fb, fb)
	require.NoError(t, err)
	defer s.Close()

	require.NotNil(t, s.Engine.Multipart)
	require.Same(t, s.Multipart, s.Engine.Multipart)

	tb := catalog.TenantBucket("", "b1")
	require.NoError(t, s.Catalog.EnsureBucketIndices(ctx, tb))
	bucket := catalog.BucketRecord{Bucket: "b1", VersioningFlag: catalog.VersioningUnversioned}

	body := []byte("hello store")
	entry, err := s.Engine.PutObject(ctx, engine.PutInput{
		TenantBucket: tb, Bucket: bucket, Name: "k", Size: int64(len(body)),
		Body: bytes.NewReader(body), Owner: "owner1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(len(body)), entry.Size)

	var got []byte
	_, err = s.Engine.GetObject(ctx, engine.GetInput{TenantBucket: tb, Name: "k"}, 0, -1, func(_ int64, d []byte) error {
		got = append(got, d...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, body, got)
}
