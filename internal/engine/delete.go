package engine

import (
	"context"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/object"
)

// DeleteInput is the request shape for DeleteObject.
type DeleteInput struct {
	TenantBucket string
	Bucket       catalog.BucketRecord
	Name         string
	Instance     string // "" means "no instance given" (spec.md §4.5.3)
	Owner        string
}

// DeleteResult reports what DeleteObject actually did, mirroring the S3
// semantics callers need to shape a response (delete-marker creation
// produces a new version to report back).
type DeleteResult struct {
	DeleteMarkerCreated bool
	Instance            string
}

// DeleteObject implements spec.md §4.5.3's four sub-cases, distinguished
// by (bucket.versioned, request.has_instance, record.is_delete_marker).
func (e *Engine) DeleteObject(ctx context.Context, in DeleteInput) (DeleteResult, error) {
	versioned := in.Bucket.VersioningFlag.Versioned()
	switch {
	case !versioned:
		return DeleteResult{}, e.deleteUnversioned(ctx, in)
	case in.Instance != "":
		return DeleteResult{}, e.deleteSpecificInstance(ctx, in)
	case in.Bucket.VersioningFlag == catalog.VersioningSuspended:
		return e.deleteSuspendedMarker(ctx, in)
	default:
		return e.deleteVersionedMarker(ctx, in)
	}
}

// deleteUnversioned: remove the DirEntry at <name>SEP, delete its byte
// object, subtract stats (spec.md §4.5.3 "unversioned").
func (e *Engine) deleteUnversioned(ctx context.Context, in DeleteInput) error {
	key := catalog.NullKey(in.Name)
	rec, err := e.Catalog.GetObjectRecord(ctx, in.TenantBucket, key)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	return e.removeRecord(ctx, in.TenantBucket, in.Bucket.Bucket, key, rec)
}

// deleteSpecificInstance: remove that exact DirEntry, delete its byte
// object, subtract stats, and if it was CURRENT re-promote the new
// newest (spec.md §4.5.3 "versioned, instance given").
func (e *Engine) deleteSpecificInstance(ctx context.Context, in DeleteInput) error {
	key := catalog.ObjectKey(in.Name, in.Instance)
	rec, err := e.Catalog.GetObjectRecord(ctx, in.TenantBucket, key)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	wasCurrent := rec.Flags.Has(catalog.FlagCurrent)
	if err := e.removeRecord(ctx, in.TenantBucket, in.Bucket.Bucket, key, rec); err != nil {
		return err
	}
	if !wasCurrent {
		return nil
	}
	return e.promoteNewest(ctx, in.TenantBucket, in.Name)
}

// promoteNewest re-resolves the newest remaining record for name and, if
// found and not already CURRENT, sets its CURRENT flag.
func (e *Engine) promoteNewest(ctx context.Context, tenantBucket, name string) error {
	entries, _, err := e.Catalog.NextObjectRecords(ctx, tenantBucket, index.NextOptions{
		Cursor: catalog.NullKey(name),
		Max:    2,
	})
	if err != nil {
		return err
	}
	var (
		best    catalog.ObjectMetaOrDir
		bestKey []byte
		found   bool
	)
	for _, kv := range entries {
		if kv.Value == nil {
			continue
		}
		rec, err := catalog.DecodeObjectRecord(kv.Value)
		if err != nil || rec.Name != name {
			continue
		}
		if !found || rec.MTime.After(best.MTime) {
			best, bestKey, found = rec, kv.Key, true
		}
	}
	if !found || best.Flags.Has(catalog.FlagCurrent) {
		return nil
	}
	best.Flags |= catalog.FlagCurrent
	return e.Catalog.PutObjectRecord(ctx, tenantBucket, bestKey, best, true)
}

// deleteVersionedMarker: do not delete anything; insert a fresh
// delete-marker DirEntry and clear CURRENT on the predecessor (spec.md
// §4.5.3 "versioned, no instance").
func (e *Engine) deleteVersionedMarker(ctx context.Context, in DeleteInput) (DeleteResult, error) {
	instance, err := catalog.NewInstance(e.Now().UnixMilli())
	if err != nil {
		return DeleteResult{}, err
	}
	marker := catalog.ObjectMetaOrDir{
		DirEntry: catalog.DirEntry{
			Name:     in.Name,
			Instance: instance,
			MTime:    e.Now(),
			Size:     0,
			Owner:    in.Owner,
			Category: catalog.CategoryMain,
			Flags:    catalog.FlagDeleteMarker | catalog.FlagVersioned | catalog.FlagCurrent,
		},
	}
	key := catalog.ObjectKey(in.Name, instance)
	if err := e.Catalog.PutObjectRecord(ctx, in.TenantBucket, key, marker, true); err != nil {
		return DeleteResult{}, err
	}
	e.clearPredecessorCurrent(ctx, in.TenantBucket, in.Name, instance)
	return DeleteResult{DeleteMarkerCreated: true, Instance: instance}, nil
}

// deleteSuspendedMarker behaves like deleteVersionedMarker, except the
// marker is written as a null-version record (instance=""), and any
// existing null-version predecessor is removed first (spec.md §4.5.3
// "suspended").
func (e *Engine) deleteSuspendedMarker(ctx context.Context, in DeleteInput) (DeleteResult, error) {
	key := catalog.NullKey(in.Name)
	if prev, err := e.Catalog.GetObjectRecord(ctx, in.TenantBucket, key); err == nil {
		if err := e.removeRecord(ctx, in.TenantBucket, in.Bucket.Bucket, key, prev); err != nil {
			return DeleteResult{}, err
		}
	} else if !isNotFound(err) {
		return DeleteResult{}, err
	}

	marker := catalog.ObjectMetaOrDir{
		DirEntry: catalog.DirEntry{
			Name:     in.Name,
			MTime:    e.Now(),
			Size:     0,
			Owner:    in.Owner,
			Category: catalog.CategoryMain,
			Flags:    catalog.FlagDeleteMarker | catalog.FlagCurrent,
		},
	}
	if err := e.Catalog.PutObjectRecord(ctx, in.TenantBucket, key, marker, true); err != nil {
		return DeleteResult{}, err
	}
	e.clearPredecessorCurrent(ctx, in.TenantBucket, in.Name, "")
	return DeleteResult{DeleteMarkerCreated: true}, nil
}

// removeRecord deletes rec's index entry and underlying byte object
// (preferring GC enqueue) and, unless rec is a delete-marker, subtracts
// its stats contribution. Delete-markers are never counted in stats
// (spec.md §4.5.3).
func (e *Engine) removeRecord(ctx context.Context, tenantBucket, bucket string, key []byte, rec catalog.ObjectMetaOrDir) error {
	if err := e.Catalog.DelObjectRecord(ctx, tenantBucket, key); err != nil {
		return err
	}
	e.destroyRecordBytes(ctx, tenantBucket, rec)
	if rec.IsDeleteMarker() {
		return nil
	}
	l := e.layoutOf(ctx, rec.ObjectMeta)
	e.Catalog.UpdateStatsTolerant(ctx, rec.Owner, bucket, rec.Category, -rec.Size, -object.RoundedSize(rec.Size, l))
	return nil
}
