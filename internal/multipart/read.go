package multipart

import (
	"context"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/object"
	"github.com/objectgw/sal/internal/storageerr"
)

// uploadIDAttr is a reserved Attrs key Complete stamps onto a completed
// separate-strategy record so Read can re-locate its part records; the
// final DirEntry itself carries no upload-id field (spec.md §4.6.4 step 5).
const uploadIDAttr = "_sal_multipart_upload_id"

// Read implements engine.MultipartReader, i.e. spec.md §4.6.5: a tiered
// composite reads transparently through the Object Gateway; a
// separate-part upload enumerates its part records in order and
// dispatches per-part reads scoped to the intersecting range.
func (e *Engine) Read(ctx context.Context, tenantBucket string, entry catalog.ObjectMetaOrDir, start, end int64, cb object.ReadCallback) error {
	if entry.ObjectMeta.IsComposite {
		h, err := e.Objects.Open(ctx, entry.ObjectMeta)
		if err != nil {
			return err
		}
		defer h.Close(ctx)
		return h.Read(ctx, start, end, cb)
	}

	upload, err := e.completedUploadFor(ctx, tenantBucket, entry)
	if err != nil {
		return err
	}
	recs, err := e.collectParts(ctx, tenantBucket, entry.Name, upload)
	if err != nil {
		return err
	}

	var partOff int64
	for _, r := range recs {
		partStart, partEnd := partOff, partOff+r.Part.Size-1
		partOff += r.Part.Size
		if partEnd < start || partStart > end {
			continue
		}
		lo, hi := start-partStart, end-partStart
		if lo < 0 {
			lo = 0
		}
		if hi > r.Part.Size-1 {
			hi = r.Part.Size - 1
		}
		h, err := e.Objects.Open(ctx, r.ObjectMeta)
		if err != nil {
			return err
		}
		err = h.Read(ctx, lo, hi, func(off int64, data []byte) error {
			return cb(partStart+off, data)
		})
		h.Close(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// completedUploadFor recovers the upload-id a completed MultiMeta record
// was produced from. The final DirEntry carries no upload-id of its own
// (spec.md §4.6.4 step 5 lists size/etag/category/flags only), so the
// upload-id is carried in Attrs under a reserved key set at Complete time.
func (e *Engine) completedUploadFor(ctx context.Context, tenantBucket string, entry catalog.ObjectMetaOrDir) (string, error) {
	if id, ok := entry.Attrs[uploadIDAttr]; ok {
		return id, nil
	}
	return "", storageerr.New(storageerr.KindInvalidArgument, "multipart.Read", entry.Name, nil)
}

// Destroy implements engine.MultipartReader's destruction half: it tears
// down a completed separate-strategy record's per-part byte objects and
// part records. Composite records never reach here (the Object Engine
// dispatches those straight to its own Object Gateway delete path).
func (e *Engine) Destroy(ctx context.Context, tenantBucket string, entry catalog.ObjectMetaOrDir) error {
	id, err := e.completedUploadFor(ctx, tenantBucket, entry)
	if err != nil {
		return err
	}
	e.destroyCompletedSeparateParts(ctx, tenantBucket, entry.Name, id)
	return nil
}
