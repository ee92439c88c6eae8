package engine

import (
	"context"
	"io"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/logger"
	"github.com/objectgw/sal/internal/object"
)

// PutInput is the request shape for PutObject.
type PutInput struct {
	TenantBucket string
	Bucket       catalog.BucketRecord
	Name         string
	Size         int64
	Body         io.Reader
	Owner        string
	Attrs        map[string]string
}

// PutObject implements spec.md §4.5.1 (unversioned bucket) and §4.5.2
// (versioned bucket).
func (e *Engine) PutObject(ctx context.Context, in PutInput) (catalog.ObjectMetaOrDir, error) {
	if e.Quota != nil {
		if err := e.Quota(ctx, in.Owner, in.Bucket.Bucket, in.Size, 1); err != nil {
			return catalog.ObjectMetaOrDir{}, err
		}
	}

	meta, layout, etag, err := e.writeBody(ctx, in.Body, in.Size)
	if err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}
	roundedSize := object.RoundedSize(in.Size, layout)

	now := e.Now()
	entry := catalog.ObjectMetaOrDir{
		DirEntry: catalog.DirEntry{
			Name:     in.Name,
			MTime:    now,
			Size:     in.Size,
			ETag:     etag,
			Owner:    in.Owner,
			Category: catalog.CategoryMain,
		},
		Attrs:      in.Attrs,
		ObjectMeta: meta,
	}

	if !in.Bucket.VersioningFlag.Versioned() {
		if err := e.putUnversioned(ctx, in, entry, roundedSize); err != nil {
			return catalog.ObjectMetaOrDir{}, err
		}
		return entry, nil
	}

	if err := e.putVersioned(ctx, in, &entry, roundedSize); err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}
	return entry, nil
}

func (e *Engine) putUnversioned(ctx context.Context, in PutInput, entry catalog.ObjectMetaOrDir, roundedSize int64) error {
	key := catalog.NullKey(in.Name)

	// If a null-version record already exists, its byte object must be
	// destroyed (or GC-enqueued) and its index entry removed before the
	// new one is inserted — atomic replacement is not assumed (spec.md
	// §4.5.1 step 3).
	if prev, err := e.Catalog.GetObjectRecord(ctx, in.TenantBucket, key); err == nil {
		e.destroyPrevious(ctx, in.TenantBucket, in.Bucket.Bucket, key, prev)
	} else if !isNotFound(err) {
		return err
	}

	if err := e.Catalog.PutObjectRecord(ctx, in.TenantBucket, key, entry, true); err != nil {
		return err
	}
	e.Catalog.UpdateStatsTolerant(ctx, in.Owner, in.Bucket.Bucket, catalog.CategoryMain, in.Size, roundedSize)
	return nil
}

func (e *Engine) putVersioned(ctx context.Context, in PutInput, entry *catalog.ObjectMetaOrDir, roundedSize int64) error {
	instance, err := catalog.NewInstance(e.Now().UnixMilli())
	if err != nil {
		return err
	}
	entry.Instance = instance
	entry.Flags = catalog.FlagVersioned | catalog.FlagCurrent
	key := catalog.ObjectKey(in.Name, instance)

	if err := e.Catalog.PutObjectRecord(ctx, in.TenantBucket, key, *entry, true); err != nil {
		return err
	}

	// Reconcile predecessors: NEXT starting at <name>SEP for the first
	// two records; clear CURRENT on whichever (at most one) holds it
	// (spec.md §4.5.2 step 3). This targeted fetch races with concurrent
	// PUTs on the same name (spec.md §5 race #1); invariant 3.6.1 is
	// only eventually enforced.
	e.clearPredecessorCurrent(ctx, in.TenantBucket, in.Name, instance)

	e.Catalog.UpdateStatsTolerant(ctx, in.Owner, in.Bucket.Bucket, catalog.CategoryMain, in.Size, roundedSize)
	return nil
}

// clearPredecessorCurrent fetches the first two records at/after
// <name>SEP and, if one of them (other than the just-written instance)
// still carries CURRENT, rewrites it without that flag.
func (e *Engine) clearPredecessorCurrent(ctx context.Context, tenantBucket, name, skipInstance string) {
	entries, _, err := e.Catalog.NextObjectRecords(ctx, tenantBucket, index.NextOptions{
		Cursor: catalog.NullKey(name),
		Max:    2,
	})
	if err != nil {
		logger.LogIf(ctx, err)
		return
	}
	for _, kv := range entries {
		if kv.Value == nil {
			continue
		}
		rec, err := catalog.DecodeObjectRecord(kv.Value)
		if err != nil || rec.Name != name {
			continue
		}
		if rec.Instance == skipInstance || !rec.Flags.Has(catalog.FlagCurrent) {
			continue
		}
		rec.Flags &^= catalog.FlagCurrent
		if err := e.Catalog.PutObjectRecord(ctx, tenantBucket, kv.Key, rec, true); err != nil {
			logger.LogIf(ctx, err)
		}
	}
}

// destroyPrevious removes prev's underlying byte object (preferring the
// GC enqueue interface; spec.md §4.5.3) and, unless it was a delete
// marker, subtracts its size from the stats of prev's own category.
func (e *Engine) destroyPrevious(ctx context.Context, tenantBucket, bucket string, key []byte, prev catalog.ObjectMetaOrDir) {
	e.destroyRecordBytes(ctx, tenantBucket, prev)
	if err := e.Catalog.DelObjectRecord(ctx, tenantBucket, key); err != nil {
		logger.LogIf(ctx, err)
	}
	if !prev.IsDeleteMarker() {
		l := e.layoutOf(ctx, prev.ObjectMeta)
		e.Catalog.UpdateStatsTolerant(ctx, prev.Owner, bucket, prev.Category, -prev.Size, -object.RoundedSize(prev.Size, l))
	}
}
