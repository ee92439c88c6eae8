package multipart

import (
	"context"
	"crypto/md5"
	"io"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/logger"
	"github.com/objectgw/sal/internal/object"
	"github.com/objectgw/sal/internal/storageerr"
	"github.com/objectgw/sal/internal/writer"
)

// UploadPartInput is the request shape for UploadPart.
type UploadPartInput struct {
	TenantBucket string
	Bucket       string
	Name         string
	UploadID     string
	Num          int
	Size         int64
	Body         io.Reader
	Attrs        map[string]string
}

// UploadPart implements spec.md §4.6.2 (separate strategy) and §4.6.3
// (tiered strategy), dispatching on the in-progress upload's Tiered flag.
func (e *Engine) UploadPart(ctx context.Context, in UploadPartInput) (catalog.PartInfo, error) {
	metaKey := catalog.MultipartMetaKey(in.Name, in.UploadID)
	upload, err := e.Catalog.GetInProgressUpload(ctx, in.TenantBucket, metaKey)
	if err != nil {
		return catalog.PartInfo{}, err
	}

	if upload.Tiered {
		return e.uploadPartTiered(ctx, in, upload)
	}
	return e.uploadPartSeparate(ctx, in, upload)
}

func (e *Engine) uploadPartSeparate(ctx context.Context, in UploadPartInput, upload catalog.InProgressUpload) (catalog.PartInfo, error) {
	meta, etag, err := e.writePart(ctx, in.Body, in.Size)
	if err != nil {
		return catalog.PartInfo{}, err
	}

	part := catalog.PartInfo{
		Num:           in.Num,
		ETag:          etag,
		Size:          in.Size,
		RoundedSize:   object.RoundedSize(in.Size, e.layoutOf(ctx, meta)),
		AccountedSize: in.Size,
		MTime:         e.Now(),
	}
	rec := catalog.PartRecord{Part: part, Attrs: in.Attrs, ObjectMeta: meta}
	key := catalog.MultipartPartKey(in.Name, in.UploadID, in.Num)

	if prev, err := e.Catalog.GetPartRecord(ctx, in.TenantBucket, key); err == nil {
		if !prev.ObjectMeta.IsComposite {
			e.enqueueOrDeleteObject(ctx, prev.ObjectMeta, prev.Part.Size)
		}
		delta := in.Size - prev.Part.Size
		roundedDelta := part.RoundedSize - prev.Part.RoundedSize
		e.Catalog.UpdateStatsTolerant(ctx, upload.Owner, in.Bucket, catalog.CategoryMultiMeta, delta, roundedDelta)
	} else if !isNotFound(err) {
		return catalog.PartInfo{}, err
	}

	if err := e.Catalog.PutPartRecord(ctx, in.TenantBucket, key, rec, true); err != nil {
		return catalog.PartInfo{}, err
	}
	return part, nil
}

func (e *Engine) uploadPartTiered(ctx context.Context, in UploadPartInput, upload catalog.InProgressUpload) (catalog.PartInfo, error) {
	if in.Num < 1 {
		return catalog.PartInfo{}, storageerr.New(storageerr.KindInvalidArgument, "multipart.UploadPart", in.Name, nil)
	}
	offset := int64(in.Num-1) * partSize

	h, err := e.Objects.OpenLayerForWrite(ctx, upload.ObjectMeta)
	if err != nil {
		return catalog.PartInfo{}, err
	}

	hasher := md5.New()
	w := writer.PrepareAt(h, offset)
	buf := make([]byte, writer.MaxAccSize)
	for {
		n, rerr := io.ReadFull(in.Body, buf)
		if n > 0 {
			hasher.Write(buf[:n])
			if perr := w.Process(ctx, buf[:n]); perr != nil {
				return catalog.PartInfo{}, perr
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return catalog.PartInfo{}, rerr
		}
	}
	if err := w.Complete(ctx); err != nil {
		return catalog.PartInfo{}, err
	}

	part := catalog.PartInfo{
		Num:           in.Num,
		ETag:          hexDigest(hasher),
		Size:          in.Size,
		RoundedSize:   object.RoundedSize(in.Size, e.layoutOf(ctx, upload.ObjectMeta)),
		AccountedSize: in.Size,
		MTime:         e.Now(),
	}
	// No old-part byte deletion: in the tiered strategy there is no
	// separate part byte object to replace (spec.md §4.6.3 step 4).
	rec := catalog.PartRecord{Part: part, Attrs: in.Attrs, ObjectMeta: upload.ObjectMeta}
	key := catalog.MultipartPartKey(in.Name, in.UploadID, in.Num)
	if err := e.Catalog.PutPartRecord(ctx, in.TenantBucket, key, rec, true); err != nil {
		return catalog.PartInfo{}, err
	}
	return part, nil
}

func (e *Engine) writePart(ctx context.Context, r io.Reader, size int64) (object.Meta, string, error) {
	hasher := md5.New()
	if size == 0 {
		return object.Meta{}, hexDigest(hasher), nil
	}
	h, err := e.Objects.Create(ctx, size, true)
	if err != nil {
		return object.Meta{}, "", err
	}
	w := writer.Prepare(h)
	buf := make([]byte, writer.MaxAccSize)
	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			hasher.Write(buf[:n])
			if perr := w.Process(ctx, buf[:n]); perr != nil {
				return object.Meta{}, "", perr
			}
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return object.Meta{}, "", rerr
		}
	}
	if err := w.Complete(ctx); err != nil {
		return object.Meta{}, "", err
	}
	return h.Meta(), hexDigest(hasher), nil
}

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

func isNotFound(err error) bool {
	return storageerr.KindOf(err) == storageerr.KindNotFound
}
