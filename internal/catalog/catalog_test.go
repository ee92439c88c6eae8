package catalog

import (
	"context"
	"testing"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/cache"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/storageerr"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	fb := backend.NewFake()
	idx := index.New(fb)
	caches, err := cache.NewSet(100)
	require.NoError(t, err)
	c := New(idx, caches)
	require.NoError(t, c.Bootstrap(context.Background()))
	return c
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	require.NoError(t, c.PutUser(ctx, UserRecord{UserID: "u1", Info: []byte("hi")}, true))
	got, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)

	// RemoveUser also invalidates the users cache, so the lookup after it
	// must miss rather than return the cached record.
	require.NoError(t, c.RemoveUser(ctx, "u1"))
	_, err = c.GetUser(ctx, "u1")
	require.Error(t, err)
}

func TestUserAccessKeyAndEmailLookup(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	r := UserRecord{UserID: "u1", AccessKey: "AKIA1", Secret: "shh", Email: "u1@example.com"}
	require.NoError(t, c.CreateUser(ctx, r, true))

	byKey, err := c.GetUserByAccessKey(ctx, "AKIA1")
	require.NoError(t, err)
	require.Equal(t, "u1", byKey.UserID)

	byEmail, err := c.GetUserByEmail(ctx, "u1@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", byEmail)

	require.NoError(t, c.RemoveUser(ctx, "u1"))

	_, err = c.GetUserByAccessKey(ctx, "AKIA1")
	require.Error(t, err)
	_, err = c.GetUserByEmail(ctx, "u1@example.com")
	require.Error(t, err)
}

func TestCreateBucketThenRemove(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	r := BucketRecord{Bucket: "b1", OwnerID: "owner1"}
	require.NoError(t, c.CreateBucket(ctx, r))

	buckets, _, err := c.ListBuckets(ctx, "owner1", index.NextOptions{Max: 10})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, "b1", buckets[0].Bucket)

	tb := TenantBucket("", "b1")
	rec := ObjectMetaOrDir{DirEntry: DirEntry{Name: "k", Size: 1, Flags: FlagCurrent, Category: CategoryMain}}
	require.NoError(t, c.PutObjectRecord(ctx, tb, NullKey("k"), rec, true))

	err = c.RemoveBucket(ctx, r)
	require.Error(t, err)
	require.Equal(t, storageerr.KindNotEmpty, storageerr.KindOf(err))

	require.NoError(t, c.DelObjectRecord(ctx, tb, NullKey("k")))
	require.NoError(t, c.RemoveBucket(ctx, r))

	buckets, _, err = c.ListBuckets(ctx, "owner1", index.NextOptions{Max: 10})
	require.NoError(t, err)
	require.Empty(t, buckets)
}

func TestStatsUpdateAddSub(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	require.NoError(t, c.UpdateStats(ctx, "owner1", "b1", CategoryMain, 100, 128))
	hdr, err := c.GetStats(ctx, "owner1", "b1")
	require.NoError(t, err)
	require.EqualValues(t, 1, hdr.Categories[CategoryMain].NumEntries)
	require.EqualValues(t, 100, hdr.Categories[CategoryMain].TotalSize)

	require.NoError(t, c.UpdateStats(ctx, "owner1", "b1", CategoryMain, -100, -128))
	hdr, err = c.GetStats(ctx, "owner1", "b1")
	require.NoError(t, err)
	require.EqualValues(t, 0, hdr.Categories[CategoryMain].NumEntries)
	require.EqualValues(t, 0, hdr.Categories[CategoryMain].TotalSize)
}

func TestReconcileRecomputesStats(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalog(t)

	tb := TenantBucket("", "b1")
	require.NoError(t, c.EnsureBucketIndices(ctx, tb))

	for _, name := range []string{"a", "b", "c"} {
		rec := ObjectMetaOrDir{DirEntry: DirEntry{Name: name, Size: 10, Flags: FlagCurrent, Category: CategoryMain}}
		require.NoError(t, c.PutObjectRecord(ctx, tb, NullKey(name), rec, true))
	}

	hdr, err := c.Reconcile(ctx, "owner1", "b1", tb)
	require.NoError(t, err)
	require.EqualValues(t, 3, hdr.Categories[CategoryMain].NumEntries)
	require.EqualValues(t, 30, hdr.Categories[CategoryMain].TotalSize)
	require.NotNil(t, hdr.Histogram)
}
