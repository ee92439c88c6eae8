// Package multipart implements the Multipart Engine (C6): initiate,
// upload-part (separate and composite-tiered strategies), complete,
// abort, read, and list, per spec.md §4.6.
package multipart

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/gc"
	"github.com/objectgw/sal/internal/object"
	"github.com/objectgw/sal/internal/writer"
)

// partSize is PART_SIZE from spec.md §4.6.3: fixed at 15 MiB for the
// tiered strategy. Spec.md §9 open question 1 flags this as a known
// limitation for heterogeneous part sizes; it is preserved rather than
// "fixed" since the source behaviour is unverified ground truth.
const partSize = 15 << 20

// uploadIDPrefix tags generated upload-ids so they are visually
// distinguishable from other opaque identifiers in logs (spec.md §4.6.1
// step 1 "fixed prefix").
const uploadIDPrefix = "UP"

// Engine ties the Catalog (C4) and Object Gateway (C2) together into the
// multipart operations spec.md §4.6 names.
type Engine struct {
	Catalog       *catalog.Catalog
	Objects       *object.Gateway
	GC            gc.Enqueuer
	TieredEnabled bool
	MinPartSize   int64
	Now           func() time.Time
}

// New constructs a Multipart Engine.
func New(cat *catalog.Catalog, objs *object.Gateway, enqueuer gc.Enqueuer, tieredEnabled bool, minPartSize int64) *Engine {
	return &Engine{
		Catalog:       cat,
		Objects:       objs,
		GC:            enqueuer,
		TieredEnabled: tieredEnabled,
		MinPartSize:   minPartSize,
		Now:           time.Now,
	}
}

// InitiateInput is the request shape for Initiate.
type InitiateInput struct {
	TenantBucket string
	Bucket       string
	Name         string
	Owner        string
	Attrs        map[string]string
}

// Initiate implements spec.md §4.6.1.
func (e *Engine) Initiate(ctx context.Context, in InitiateInput) (string, error) {
	uploadID := uploadIDPrefix + shortuuid.New()
	metaKey := catalog.MultipartMetaKey(in.Name, uploadID)

	var meta object.Meta
	if e.TieredEnabled {
		h, err := e.Objects.CreateComposite(ctx, writer.MaxAccSize)
		if err != nil {
			return "", err
		}
		meta = h.Meta()
	}

	rec := catalog.InProgressUpload{
		UploadID:   uploadID,
		Object:     in.Name,
		Owner:      in.Owner,
		Tiered:     e.TieredEnabled,
		ObjectMeta: meta,
		Initial: catalog.DirEntry{
			Name:     in.Name,
			Owner:    in.Owner,
			Category: catalog.CategoryMultiMeta,
			MTime:    e.Now(),
		},
		Attrs: in.Attrs,
		CTime: e.Now(),
	}
	if err := e.Catalog.PutInProgressUpload(ctx, in.TenantBucket, metaKey, rec, true); err != nil {
		return "", err
	}

	// "Increment the bucket's object count by 1 (size unchanged)"
	// (spec.md §4.6.1 step 5): the in-progress upload occupies a slot in
	// the bucket's accounting before any bytes are committed.
	e.Catalog.UpdateStatsTolerant(ctx, in.Owner, in.Bucket, catalog.CategoryMultiMeta, 0, 0)
	return uploadID, nil
}
