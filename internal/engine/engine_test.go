package engine

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/cache"
	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/object"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	fb := backend.NewFake()
	idxGW := index.New(fb)
	caches, err := cache.NewSet(100)
	require.NoError(t, err)
	cat := catalog.New(idxGW, caches)
	require.NoError(t, cat.Bootstrap(context.Background()))

	objs := object.New(fb, fb, ids.NewGenerator(1), idxGW)
	e := New(cat, objs, nil, nil)

	tb := catalog.TenantBucket("", "b1")
	require.NoError(t, cat.EnsureBucketIndices(context.Background(), tb))
	return e, tb
}

func TestPutGetDeleteUnversioned(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t)
	bucket := catalog.BucketRecord{Bucket: "b1", VersioningFlag: catalog.VersioningUnversioned}

	body := bytes.Repeat([]byte("a"), 1024)
	_, err := e.PutObject(ctx, PutInput{
		TenantBucket: tb, Bucket: bucket, Name: "obj1",
		Size: int64(len(body)), Body: bytes.NewReader(body), Owner: "owner1",
	})
	require.NoError(t, err)

	var got []byte
	rec, err := e.GetObject(ctx, GetInput{TenantBucket: tb, Name: "obj1"}, 0, -1, func(_ int64, d []byte) error {
		got = append(got, d...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, body, got)
	require.Equal(t, int64(len(body)), rec.Size)

	hdr, err := e.Catalog.GetStats(ctx, "owner1", "b1")
	require.NoError(t, err)
	require.EqualValues(t, 1, hdr.Categories[catalog.CategoryMain].NumEntries)

	_, err = e.DeleteObject(ctx, DeleteInput{TenantBucket: tb, Bucket: bucket, Name: "obj1", Owner: "owner1"})
	require.NoError(t, err)

	_, _, err = e.resolveRecord(ctx, GetInput{TenantBucket: tb, Name: "obj1"})
	require.Error(t, err)

	hdr, err = e.Catalog.GetStats(ctx, "owner1", "b1")
	require.NoError(t, err)
	require.EqualValues(t, 0, hdr.Categories[catalog.CategoryMain].NumEntries)
}

func TestPutVersionedReconcilesPredecessor(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t)
	bucket := catalog.BucketRecord{Bucket: "b1", VersioningFlag: catalog.VersioningEnabled}

	body1 := []byte("version one")
	rec1, err := e.PutObject(ctx, PutInput{
		TenantBucket: tb, Bucket: bucket, Name: "obj1",
		Size: int64(len(body1)), Body: bytes.NewReader(body1), Owner: "owner1",
	})
	require.NoError(t, err)
	require.True(t, rec1.Flags.Has(catalog.FlagCurrent))

	time.Sleep(time.Millisecond)
	body2 := []byte("version two, longer body")
	rec2, err := e.PutObject(ctx, PutInput{
		TenantBucket: tb, Bucket: bucket, Name: "obj1",
		Size: int64(len(body2)), Body: bytes.NewReader(body2), Owner: "owner1",
	})
	require.NoError(t, err)
	require.True(t, rec2.Flags.Has(catalog.FlagCurrent))
	require.NotEqual(t, rec1.Instance, rec2.Instance)

	prev, err := e.Catalog.GetObjectRecord(ctx, tb, catalog.ObjectKey("obj1", rec1.Instance))
	require.NoError(t, err)
	require.False(t, prev.Flags.Has(catalog.FlagCurrent))

	var got []byte
	_, err = e.GetObject(ctx, GetInput{TenantBucket: tb, Name: "obj1"}, 0, -1, func(_ int64, d []byte) error {
		got = append(got, d...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, body2, got)
}

func TestDeleteVersionedInsertsMarker(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t)
	bucket := catalog.BucketRecord{Bucket: "b1", VersioningFlag: catalog.VersioningEnabled}

	body := []byte("payload")
	_, err := e.PutObject(ctx, PutInput{
		TenantBucket: tb, Bucket: bucket, Name: "obj1",
		Size: int64(len(body)), Body: bytes.NewReader(body), Owner: "owner1",
	})
	require.NoError(t, err)

	res, err := e.DeleteObject(ctx, DeleteInput{TenantBucket: tb, Bucket: bucket, Name: "obj1", Owner: "owner1"})
	require.NoError(t, err)
	require.True(t, res.DeleteMarkerCreated)

	_, err = e.HeadObject(ctx, GetInput{TenantBucket: tb, Name: "obj1"})
	require.Error(t, err)

	_, err = e.HeadObject(ctx, GetInput{TenantBucket: tb, Name: "obj1", Instance: res.Instance})
	require.Error(t, err)
}

func TestCopyObjectStreamsBodyAndTags(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t)
	bucket := catalog.BucketRecord{Bucket: "b1", VersioningFlag: catalog.VersioningUnversioned}

	body := bytes.Repeat([]byte("z"), 4096)
	_, err := e.PutObject(ctx, PutInput{
		TenantBucket: tb, Bucket: bucket, Name: "src",
		Size: int64(len(body)), Body: bytes.NewReader(body), Owner: "owner1",
		Attrs: map[string]string{"tag": "v1"},
	})
	require.NoError(t, err)

	dst, err := e.CopyObject(ctx, CopyInput{
		SrcTenantBucket: tb, SrcName: "src",
		DstTenantBucket: tb, DstBucket: bucket, DstName: "dst", DstOwner: "owner1",
		Directive: TaggingCopy,
	})
	require.NoError(t, err)
	require.Equal(t, int64(len(body)), dst.Size)
	require.Equal(t, "v1", dst.Attrs["tag"])

	var got []byte
	_, err = e.GetObject(ctx, GetInput{TenantBucket: tb, Name: "dst"}, 0, -1, func(_ int64, d []byte) error {
		got = append(got, d...)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, body, got)
}

func TestListObjectsOrdersByName(t *testing.T) {
	ctx := context.Background()
	e, tb := newTestEngine(t)
	bucket := catalog.BucketRecord{Bucket: "b1", VersioningFlag: catalog.VersioningUnversioned}

	for _, name := range []string{"a", "b", "c"} {
		body := []byte(name)
		_, err := e.PutObject(ctx, PutInput{
			TenantBucket: tb, Bucket: bucket, Name: name,
			Size: int64(len(body)), Body: bytes.NewReader(body), Owner: "owner1",
		})
		require.NoError(t, err)
	}

	res, err := e.ListObjects(ctx, ListInput{TenantBucket: tb, Max: 10})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	require.Equal(t, "a", res.Entries[0].Record.Name)
	require.Equal(t, "b", res.Entries[1].Record.Name)
	require.Equal(t, "c", res.Entries[2].Record.Name)
	require.False(t, res.Truncated)
}
