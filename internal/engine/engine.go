// Package engine implements the Object Engine (C5): versioned object
// PUT/GET/DELETE/LIST semantics, delete markers, and same-zone COPY, per
// spec.md §4.5.
package engine

import (
	"context"
	"crypto/md5"
	"io"
	"time"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/gc"
	"github.com/objectgw/sal/internal/logger"
	"github.com/objectgw/sal/internal/object"
	"github.com/objectgw/sal/internal/storageerr"
	"github.com/objectgw/sal/internal/writer"
)

// Engine ties the Catalog (C4), Object Gateway (C2), and GC enqueue
// interface together into the operations spec.md §4.5 names.
type Engine struct {
	Catalog *catalog.Catalog
	Objects *object.Gateway
	GC      gc.Enqueuer
	Quota   catalog.QuotaChecker
	Now     func() time.Time
	// Multipart dispatches reads of MultiMeta-category records to the
	// Multipart Engine (C6); nil until wired by the store context.
	Multipart MultipartReader
}

// New constructs an Engine. quota may be nil, in which case the quota
// check is skipped (spec.md §4.4 "delegated to an external handler").
func New(cat *catalog.Catalog, objs *object.Gateway, enqueuer gc.Enqueuer, quota catalog.QuotaChecker) *Engine {
	return &Engine{Catalog: cat, Objects: objs, GC: enqueuer, Quota: quota, Now: time.Now}
}

// writeBody streams r (totalSize bytes, 0 for an empty object) through
// the Writer Pipeline into a freshly created object, returning the
// resulting ObjectMeta (zero value, with IsComposite=false and a zero
// ObjectID, for a zero-byte object — spec.md §3.7: "zero-byte objects,
// which have none") and the hex MD5 etag of the streamed bytes.
func (e *Engine) writeBody(ctx context.Context, r io.Reader, totalSize int64) (object.Meta, backend.Layout, string, error) {
	hasher := md5.New()
	if totalSize == 0 {
		return object.Meta{}, backend.Layout{}, hexDigest(hasher), nil
	}

	h, err := e.Objects.Create(ctx, totalSize, true)
	if err != nil {
		return object.Meta{}, backend.Layout{}, "", err
	}
	w := writer.Prepare(h)

	buf := make([]byte, writer.MaxAccSize)
	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			hasher.Write(buf[:n])
			if perr := w.Process(ctx, buf[:n]); perr != nil {
				return object.Meta{}, backend.Layout{}, "", perr
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return object.Meta{}, backend.Layout{}, "", rerr
		}
	}
	if err := w.Complete(ctx); err != nil {
		return object.Meta{}, backend.Layout{}, "", err
	}
	return h.Meta(), h.Layout(), hexDigest(hasher), nil
}

// layoutOf resolves the layout describing an already-written object's
// Meta, used where only Meta (not a live Handle) is at hand, e.g. stats
// accounting against a previously-stored DirEntry. Zero Meta (a zero-byte
// object) yields a zero Layout; object.RoundedSize special-cases size==0
// so that's harmless.
func (e *Engine) layoutOf(ctx context.Context, m object.Meta) backend.Layout {
	if m.ObjectID.IsZero() {
		return backend.Layout{}
	}
	l, err := e.Objects.LayoutFor(ctx, m)
	if err != nil {
		logger.LogIf(ctx, err)
		return backend.Layout{}
	}
	return l
}

// destroyRecordBytes tears down rec's underlying bytes: a plain or
// composite object goes straight to enqueueOrDeleteObject, but a
// completed separate-strategy multipart record (Category=MultiMeta,
// !IsComposite) has no single ObjectMeta of its own — its bytes are its
// per-part objects, torn down via the Multipart Engine.
func (e *Engine) destroyRecordBytes(ctx context.Context, tenantBucket string, rec catalog.ObjectMetaOrDir) {
	if rec.Category == catalog.CategoryMultiMeta && !rec.ObjectMeta.IsComposite {
		if e.Multipart == nil {
			logger.LogIf(ctx, storageerr.New(storageerr.KindNotImplemented, "engine.destroyRecordBytes", rec.Name, nil))
			return
		}
		logger.LogIf(ctx, e.Multipart.Destroy(ctx, tenantBucket, rec))
		return
	}
	e.enqueueOrDeleteObject(ctx, rec.ObjectMeta, rec.Size)
}

// enqueueOrDeleteObject hands m off to the GC enqueue interface; on
// enqueue failure it falls back to a synchronous delete (spec.md §4.5.3:
// "only on GC-enqueue failure is a synchronous delete attempted").
func (e *Engine) enqueueOrDeleteObject(ctx context.Context, m object.Meta, size int64) {
	if m.ObjectID.IsZero() {
		return
	}
	if e.GC != nil {
		if err := e.GC.Enqueue(ctx, gc.Job{ObjectMeta: m, Size: size}); err == nil {
			return
		}
	}
	logger.LogIf(ctx, e.Objects.Delete(ctx, m))
}

func hexDigest(h interface{ Sum([]byte) []byte }) string {
	sum := h.Sum(nil)
	const hextable = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}

// isNotFound is a small readability helper over storageerr.KindOf.
func isNotFound(err error) bool {
	return storageerr.KindOf(err) == storageerr.KindNotFound
}
