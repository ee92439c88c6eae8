package multipart

import (
	"context"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/logger"
)

// AbortInput is the request shape for Abort.
type AbortInput struct {
	TenantBucket string
	Bucket       string
	Name         string
	UploadID     string
}

// Abort implements spec.md §4.6.6: remove the in-progress record, delete
// every part's byte object (or the composite, tiered), delete every part
// record, and subtract the accumulated size from stats.
func (e *Engine) Abort(ctx context.Context, in AbortInput) error {
	metaKey := catalog.MultipartMetaKey(in.Name, in.UploadID)
	upload, err := e.Catalog.GetInProgressUpload(ctx, in.TenantBucket, metaKey)
	if err != nil {
		return err
	}

	recs, err := e.collectParts(ctx, in.TenantBucket, in.Name, in.UploadID)
	if err != nil {
		return err
	}

	var totalSize, totalRounded int64
	for _, r := range recs {
		totalSize += r.Part.Size
		totalRounded += r.Part.RoundedSize
		if !upload.Tiered {
			e.enqueueOrDeleteObject(ctx, r.ObjectMeta, r.Part.Size)
		}
	}
	if upload.Tiered {
		e.enqueueOrDeleteObject(ctx, upload.ObjectMeta, totalSize)
	}

	if err := e.deletePartRecords(ctx, in.TenantBucket, in.Name, in.UploadID); err != nil {
		logger.LogIf(ctx, err)
	}
	if err := e.Catalog.DelInProgressUpload(ctx, in.TenantBucket, metaKey); err != nil {
		return err
	}

	e.Catalog.UpdateStatsTolerant(ctx, upload.Owner, in.Bucket, catalog.CategoryMultiMeta, -totalSize, -totalRounded)
	return nil
}

// AbortAllInput is the request shape for AbortAll.
type AbortAllInput struct {
	TenantBucket string
	Bucket       string
}

// AbortAll tears down every in-progress upload in a bucket (spec.md §6.2
// "multipart-list/abort-all"), used by bucket removal to clear uploads
// that would otherwise hold the bucket open. Enumeration re-seeds at the
// bucket's multiparts.in-progress prefix on every round so aborting an
// entry doesn't skip its successor; a per-upload abort failure is
// logged and does not stop the sweep.
func (e *Engine) AbortAll(ctx context.Context, in AbortAllInput) error {
	for {
		res, err := e.ListUploads(ctx, ListUploadsInput{TenantBucket: in.TenantBucket, Max: 256})
		if err != nil {
			return err
		}
		if len(res.Uploads) == 0 {
			return nil
		}
		for _, u := range res.Uploads {
			logger.LogIf(ctx, e.Abort(ctx, AbortInput{
				TenantBucket: in.TenantBucket,
				Bucket:       in.Bucket,
				Name:         u.Name,
				UploadID:     u.UploadID,
			}))
		}
		if !res.Truncated {
			return nil
		}
	}
}

// deletePartRecords re-queries from prefix on every round: each round
// deletes every record it fetched, so the next NEXT call (still seeded at
// prefix) only ever sees what remains.
func (e *Engine) deletePartRecords(ctx context.Context, tenantBucket, name, uploadID string) error {
	prefix := catalog.MultipartPartPrefix(name, uploadID)
	for {
		entries, more, err := e.Catalog.NextPartRecords(ctx, tenantBucket, index.NextOptions{
			Cursor: prefix,
			Prefix: prefix,
			Max:    256,
		})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for _, kv := range entries {
			if err := e.Catalog.DelPartRecord(ctx, tenantBucket, kv.Key); err != nil {
				logger.LogIf(ctx, err)
			}
		}
		if !more {
			return nil
		}
	}
}
