package catalog

import (
	"context"

	"github.com/objectgw/sal/internal/logger"
	"github.com/objectgw/sal/internal/storageerr"
)

// UpdateStats implements spec.md §4.4's "Stats update protocol": for any
// PUT/DELETE of a Main-category DirEntry, after the bucket-index write
// succeeds, read user-stats.<owner>[bucket], apply the delta, and write
// it back. This is a two-op, non-atomic read-modify-write (spec.md §5
// race #2); callers must not fail the triggering mutation if this
// returns an error — the catalog treats stats as an approximation with
// Reconcile as the recovery path.
func (c *Catalog) UpdateStats(ctx context.Context, owner, bucket string, cat Category, sizeDelta, roundedDelta int64) error {
	idxName := UserStatsIndex(owner)
	if err := c.idx.Ensure(ctx, idxName); err != nil {
		return err
	}
	key := []byte(bucket)

	var hdr BucketHeader
	v, err := c.idx.Get(ctx, idxName, key)
	switch {
	case err == nil:
		hdr, err = DecodeBucketHeader(v)
		if err != nil {
			return err
		}
	case storageerr.KindOf(err) == storageerr.KindNotFound:
		hdr = NewBucketHeader()
	default:
		return err
	}

	if sizeDelta >= 0 {
		hdr.Add(cat, sizeDelta, roundedDelta)
	} else {
		hdr.Sub(cat, -sizeDelta, -roundedDelta)
	}

	nv, err := EncodeBucketHeader(hdr)
	if err != nil {
		return err
	}
	return c.idx.Put(ctx, idxName, key, nv, true)
}

// UpdateStatsTolerant calls UpdateStats and logs-and-continues on error,
// per spec.md §7's propagation policy for stats updates.
func (c *Catalog) UpdateStatsTolerant(ctx context.Context, owner, bucket string, cat Category, sizeDelta, roundedDelta int64) {
	if err := c.UpdateStats(ctx, owner, bucket, cat, sizeDelta, roundedDelta); err != nil {
		logger.LogIf(ctx, err)
	}
}

// GetStats returns the current (approximate) BucketHeader for
// owner/bucket.
func (c *Catalog) GetStats(ctx context.Context, owner, bucket string) (BucketHeader, error) {
	v, err := c.idx.Get(ctx, UserStatsIndex(owner), []byte(bucket))
	if err != nil {
		if storageerr.KindOf(err) == storageerr.KindNotFound {
			return NewBucketHeader(), nil
		}
		return BucketHeader{}, err
	}
	return DecodeBucketHeader(v)
}

// QuotaChecker is the external handler spec.md §4.4 delegates quota
// enforcement to: check(owner, bucket, size, count) -> ok | over-quota.
type QuotaChecker func(ctx context.Context, owner, bucket string, size, count int64) error
