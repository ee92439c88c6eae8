package engine

import (
	"context"
	"time"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/object"
	"github.com/objectgw/sal/internal/storageerr"
)

// MultipartReader dispatches a read against a MultiMeta-category object
// to the Multipart Engine (C6), which knows whether the upload that
// produced it used the separate-part or composite-tiered strategy (spec.md
// §4.6.5). Engine depends only on this narrow interface so C5 does not
// need to import C6.
type MultipartReader interface {
	Read(ctx context.Context, tenantBucket string, entry catalog.ObjectMetaOrDir, start, end int64, cb object.ReadCallback) error

	// Destroy tears down a completed separate-strategy record's per-part
	// byte objects and part records. Composite (tiered) records need no
	// such dispatch: their bytes live at entry.ObjectMeta like any other
	// object, so the Object Engine destroys them directly.
	Destroy(ctx context.Context, tenantBucket string, entry catalog.ObjectMetaOrDir) error
}

// Conditional holds the If-Match/If-None-Match/If-Modified-Since/
// If-Unmodified-Since checks spec.md §4.5.4 step 3 runs against the
// resolved record's etag and mtime.
type Conditional struct {
	IfMatch           string
	IfNoneMatch       string
	IfModifiedSince   *time.Time
	IfUnmodifiedSince *time.Time
}

func (c Conditional) check(entry catalog.DirEntry) error {
	if c.IfMatch != "" && c.IfMatch != entry.ETag {
		return storageerr.New(storageerr.KindPreconditionFailed, "engine.Conditional", entry.Name, nil)
	}
	if c.IfNoneMatch != "" && c.IfNoneMatch == entry.ETag {
		return storageerr.New(storageerr.KindPreconditionFailed, "engine.Conditional", entry.Name, nil)
	}
	if c.IfModifiedSince != nil && !entry.MTime.After(*c.IfModifiedSince) {
		return storageerr.New(storageerr.KindPreconditionFailed, "engine.Conditional", entry.Name, nil)
	}
	if c.IfUnmodifiedSince != nil && entry.MTime.After(*c.IfUnmodifiedSince) {
		return storageerr.New(storageerr.KindPreconditionFailed, "engine.Conditional", entry.Name, nil)
	}
	return nil
}

// GetInput is the request shape for GetObject/HeadObject.
type GetInput struct {
	TenantBucket string
	Name         string
	Instance     string // "" resolves to the current/null version
	Cond         Conditional
}

// resolveRecord implements spec.md §4.5.4 steps 1-2: fetch the explicit
// instance directly, or resolve the newest record at/after <name>SEP by
// mtime.
func (e *Engine) resolveRecord(ctx context.Context, in GetInput) (catalog.ObjectMetaOrDir, []byte, error) {
	if in.Instance != "" {
		key := catalog.ObjectKey(in.Name, in.Instance)
		rec, err := e.Catalog.GetObjectRecord(ctx, in.TenantBucket, key)
		return rec, key, err
	}

	entries, _, err := e.Catalog.NextObjectRecords(ctx, in.TenantBucket, index.NextOptions{
		Cursor: catalog.NullKey(in.Name),
		Max:    2,
	})
	if err != nil {
		return catalog.ObjectMetaOrDir{}, nil, err
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
		if err != nil || rec.Name != in.Name {
			continue
		}
		if !found || rec.MTime.After(best.MTime) {
			best, bestKey, found = rec, kv.Key, true
		}
	}
	if !found {
		return catalog.ObjectMetaOrDir{}, nil, storageerr.New(storageerr.KindNotFound, "engine.resolveRecord", in.Name, nil)
	}
	return best, bestKey, nil
}

// HeadObject resolves and condition-checks a record without reading its
// body, per spec.md §4.5.4 steps 1-3.
func (e *Engine) HeadObject(ctx context.Context, in GetInput) (catalog.ObjectMetaOrDir, error) {
	rec, _, err := e.resolveRecord(ctx, in)
	if err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}
	if rec.IsDeleteMarker() {
		if in.Instance == "" {
			return catalog.ObjectMetaOrDir{}, storageerr.New(storageerr.KindNotFound, "engine.HeadObject", in.Name, nil)
		}
		return catalog.ObjectMetaOrDir{}, storageerr.New(storageerr.KindNotAllowed, "engine.HeadObject", in.Name, nil)
	}
	if err := in.Cond.check(rec.DirEntry); err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}
	return rec, nil
}

// GetObject implements spec.md §4.5.4 in full: resolve, check
// delete-marker visibility, apply conditionals, and stream the body
// through cb, dispatching to the Multipart Engine for MultiMeta records.
func (e *Engine) GetObject(ctx context.Context, in GetInput, start, end int64, cb object.ReadCallback) (catalog.ObjectMetaOrDir, error) {
	rec, err := e.HeadObject(ctx, in)
	if err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}
	if rec.Size == 0 {
		return rec, nil
	}
	if end < 0 || end >= rec.Size {
		end = rec.Size - 1
	}

	if rec.Category == catalog.CategoryMultiMeta {
		if e.Multipart == nil {
			return catalog.ObjectMetaOrDir{}, storageerr.New(storageerr.KindNotImplemented, "engine.GetObject", in.Name, nil)
		}
		return rec, e.Multipart.Read(ctx, in.TenantBucket, rec, start, end, cb)
	}

	h, err := e.Objects.Open(ctx, rec.ObjectMeta)
	if err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}
	defer h.Close(ctx)
	return rec, h.Read(ctx, start, end, cb)
}
