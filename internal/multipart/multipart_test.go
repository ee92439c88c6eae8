package multipart

import (
	"bytes"
	"context"
	"testing"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/cache"
	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/object"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, tiered bool) (*Engine, string) {
	fb := backend.NewFake()
	idxGW := index.New(fb)
	caches, err := cache.NewSet(100)
	require.NoError(t, err)
	cat := catalog.New(idxGW, caches)
	require.NoError(t, cat.Bootstrap(context.Background()))

	objs := object.New(fb, fb, ids.NewGenerator(1), idxGW)
	e := New(cat, objs, nil, tiered, 5<<20)

	tb := catalog.TenantBucket("", "b1")
	require.NoError(t, cat.EnsureBucketIndices(context.Background(), tb))
	return e, tb
}

func TestMultipartSeparateStrategyRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t, false)
	bucket := catalog.BucketRecord{Bucket: "b1", VersioningFlag: catalog.VersioningUnversioned}

	uploadID, err := e.Initiate(ctx, InitiateInput{TenantBucket: tb, Bucket: "b1", Name: "big", Owner: "owner1"})
	require.NoError(t, err)

	part1 := bytes.Repeat([]byte("A"), 5<<20)
	part2 := bytes.Repeat([]byte("B"), 8)

	p1, err := e.UploadPart(ctx, UploadPartInput{
		TenantBucket: tb, Bucket: "b1", Name: "big", UploadID: uploadID,
		Num: 1, Size: int64(len(part1)), Body: bytes.NewReader(part1),
	})
	require.NoError(t, err)

	p2, err := e.UploadPart(ctx, UploadPartInput{
		TenantBucket: tb, Bucket: "b1", Name: "big", UploadID: uploadID,
		Num: 2, Size: int64(len(part2)), Body: bytes.NewReader(part2),
	})
	require.NoError(t, err)

	entry, err := e.Complete(ctx, CompleteInput{
		TenantBucket: tb, Bucket: bucket, Name: "big", UploadID: uploadID,
		Parts: []PartSelector{{Num: p1.Num, ETag: p1.ETag}, {Num: p2.Num, ETag: p2.ETag}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(len(part1)+len(part2)), entry.Size)
	require.Contains(t, entry.ETag, "-2")

	var got []byte
	err = e.Read(ctx, tb, entry, 0, entry.Size-1, func(_ int64, d []byte) error {
		got = append(got, d...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, part1...), part2...), got)

	_, err = e.Catalog.GetInProgressUpload(ctx, tb, catalog.MultipartMetaKey("big", uploadID))
	require.Error(t, err)
}

func TestMultipartTieredStrategyRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t, true)
	bucket := catalog.BucketRecord{Bucket: "b1", VersioningFlag: catalog.VersioningUnversioned}

	uploadID, err := e.Initiate(ctx, InitiateInput{TenantBucket: tb, Bucket: "b1", Name: "tiered", Owner: "owner1"})
	require.NoError(t, err)

	part1 := bytes.Repeat([]byte("X"), 32)
	p1, err := e.UploadPart(ctx, UploadPartInput{
		TenantBucket: tb, Bucket: "b1", Name: "tiered", UploadID: uploadID,
		Num: 1, Size: int64(len(part1)), Body: bytes.NewReader(part1),
	})
	require.NoError(t, err)

	entry, err := e.Complete(ctx, CompleteInput{
		TenantBucket: tb, Bucket: bucket, Name: "tiered", UploadID: uploadID,
		Parts: []PartSelector{{Num: p1.Num, ETag: p1.ETag}},
	})
	require.NoError(t, err)
	require.True(t, entry.ObjectMeta.IsComposite)

	var got []byte
	err = e.Read(ctx, tb, entry, 0, entry.Size-1, func(_ int64, d []byte) error {
		got = append(got, d...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, part1, got)
}

func TestMultipartAbortRemovesState(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t, false)

	uploadID, err := e.Initiate(ctx, InitiateInput{TenantBucket: tb, Bucket: "b1", Name: "abandoned", Owner: "owner1"})
	require.NoError(t, err)

	body := []byte("partial")
	_, err = e.UploadPart(ctx, UploadPartInput{
		TenantBucket: tb, Bucket: "b1", Name: "abandoned", UploadID: uploadID,
		Num: 1, Size: int64(len(body)), Body: bytes.NewReader(body),
	})
	require.NoError(t, err)

	require.NoError(t, e.Abort(ctx, AbortInput{TenantBucket: tb, Bucket: "b1", Name: "abandoned", UploadID: uploadID}))

	_, err = e.Catalog.GetInProgressUpload(ctx, tb, catalog.MultipartMetaKey("abandoned", uploadID))
	require.Error(t, err)
	_, err = e.Catalog.GetPartRecord(ctx, tb, catalog.MultipartPartKey("abandoned", uploadID, 1))
	require.Error(t, err)
}

func TestListUploadsReturnsInitiated(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t, false)

	_, err := e.Initiate(ctx, InitiateInput{TenantBucket: tb, Bucket: "b1", Name: "one", Owner: "owner1"})
	require.NoError(t, err)
	_, err = e.Initiate(ctx, InitiateInput{TenantBucket: tb, Bucket: "b1", Name: "two", Owner: "owner1"})
	require.NoError(t, err)

	res, err := e.ListUploads(ctx, ListUploadsInput{TenantBucket: tb, Max: 10})
	require.NoError(t, err)
	require.Len(t, res.Uploads, 2)
}

func TestAbortAllClearsEveryUpload(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t, false)

	for _, name := range []string{"one", "two", "three"} {
		_, err := e.Initiate(ctx, InitiateInput{TenantBucket: tb, Bucket: "b1", Name: name, Owner: "owner1"})
		require.NoError(t, err)
	}

	require.NoError(t, e.AbortAll(ctx, AbortAllInput{TenantBucket: tb, Bucket: "b1"}))

	res, err := e.ListUploads(ctx, ListUploadsInput{TenantBucket: tb, Max: 10})
	require.NoError(t, err)
	require.Empty(t, res.Uploads)
}
