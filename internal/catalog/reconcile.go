package catalog

import (
	"context"
	"math"

	humanize "github.com/dustin/go-humanize"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/logger"
)

// sizeHistogramIntervals mirrors the teacher's ObjectsHistogramIntervals
// (cmd/object-api-datatypes.go): named byte-size buckets used to report
// an object-size distribution.
var sizeHistogramIntervals = []struct {
	name       string
	start, end int64
}{
	{"LESS_THAN_1024_B", 0, 1024 - 1},
	{"BETWEEN_1024_B_AND_1_MB", 1024, 1<<20 - 1},
	{"BETWEEN_1_MB_AND_10_MB", 1 << 20, 10*(1<<20) - 1},
	{"BETWEEN_10_MB_AND_64_MB", 10 * (1 << 20), 64*(1<<20) - 1},
	{"BETWEEN_64_MB_AND_128_MB", 64 * (1 << 20), 128*(1<<20) - 1},
	{"BETWEEN_128_MB_AND_512_MB", 128 * (1 << 20), 512*(1<<20) - 1},
	{"GREATER_THAN_512_MB", 512 * (1 << 20), math.MaxInt64},
}

// versionHistogramIntervals mirrors the teacher's
// ObjectsVersionCountIntervals.
var versionHistogramIntervals = []struct {
	name       string
	start, end int
}{
	{"UNVERSIONED", 0, 0},
	{"SINGLE_VERSION", 1, 1},
	{"BETWEEN_2_AND_10", 2, 9},
	{"BETWEEN_10_AND_100", 10, 99},
	{"BETWEEN_100_AND_1000", 100, 999},
	{"BETWEEN_1000_AND_10000", 1000, 9999},
	{"GREATER_THAN_10000", 10000, math.MaxInt32},
}

func sizeBucket(size int64) string {
	for _, iv := range sizeHistogramIntervals {
		if size >= iv.start && size <= iv.end {
			return iv.name
		}
	}
	return sizeHistogramIntervals[len(sizeHistogramIntervals)-1].name
}

func versionBucket(n int) string {
	for _, iv := range versionHistogramIntervals {
		if n >= iv.start && n <= iv.end {
			return iv.name
		}
	}
	return versionHistogramIntervals[len(versionHistogramIntervals)-1].name
}

const reconcileBatch = 1000

// Reconcile recomputes owner's stats header for bucket from scratch by
// walking the bucket index with NEXT, the "offline reconciliation scan"
// spec.md §5 names as the recovery path for stats drift (SPEC_FULL.md
// §C.1). It also builds the size/version-count histogram SPEC_FULL.md
// §C.2 adds, attached to the recomputed BucketHeader.
func (c *Catalog) Reconcile(ctx context.Context, owner, bucket, tenantBucket string) (BucketHeader, error) {
	hdr := NewBucketHeader()
	hist := &Histogram{SizeBuckets: map[string]int64{}, VersionBuckets: map[string]int64{}}
	versionCounts := map[string]int{}

	cursor := []byte{}
	for {
		entries, truncated, err := c.NextObjectRecords(ctx, tenantBucket, index.NextOptions{
			Cursor: cursor,
			Max:    reconcileBatch,
		})
		if err != nil {
			return BucketHeader{}, err
		}
		for _, e := range entries {
			if e.Value == nil {
				continue // directory pseudo-entry; NEXT without delim shouldn't emit these
			}
			rec, err := DecodeObjectRecord(e.Value)
			if err != nil {
				logger.LogIf(ctx, err)
				continue
			}
			if rec.IsDeleteMarker() {
				continue
			}
			// The reconciliation scan approximates rounded size with
			// raw size: recomputing the true unit-rounded size would
			// require a layout lookup per object, which defeats the
			// point of a cheap recovery scan.
			hdr.Add(rec.Category, rec.Size, rec.Size)
			hist.SizeBuckets[sizeBucket(rec.Size)]++
			versionCounts[rec.Name]++
			cursor = append(append([]byte{}, e.Key...), 0x00)
		}
		if !truncated || len(entries) == 0 {
			break
		}
	}
	for _, n := range versionCounts {
		hist.VersionBuckets[versionBucket(n)]++
	}
	hdr.Histogram = hist

	if err := c.overwriteStats(ctx, owner, bucket, hdr); err != nil {
		return BucketHeader{}, err
	}
	logger.Info(ctx, "catalog.Reconcile: %s/%s now %s across %d objects", owner, bucket,
		humanize.Bytes(uint64(hdr.TotalSize())), hdr.TotalCount())
	return hdr, nil
}

func (c *Catalog) overwriteStats(ctx context.Context, owner, bucket string, hdr BucketHeader) error {
	idxName := UserStatsIndex(owner)
	if err := c.idx.Ensure(ctx, idxName); err != nil {
		return err
	}
	v, err := EncodeBucketHeader(hdr)
	if err != nil {
		return err
	}
	return c.idx.Put(ctx, idxName, []byte(bucket), v, true)
}
