package engine

import (
	"context"
	"io"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/storageerr"
)

// TaggingDirective selects where COPY's destination tags come from
// (spec.md §4.5.6 step 5).
type TaggingDirective int

const (
	TaggingCopy TaggingDirective = iota
	TaggingReplace
)

// CopyInput is the request shape for CopyObject.
type CopyInput struct {
	SrcTenantBucket string
	SrcName         string
	SrcInstance     string
	SrcZone         string
	SrcEncrypted    bool

	DstTenantBucket string
	DstBucket       catalog.BucketRecord
	DstName         string
	DstZone         string
	DstOwner        string

	Cond      Conditional
	Directive TaggingDirective
	NewAttrs  map[string]string
}

// CopyObject implements spec.md §4.5.6: same-zone copy, piping the
// source's read side into the destination's write side, preserving (or
// replacing) tag attributes.
func (e *Engine) CopyObject(ctx context.Context, in CopyInput) (catalog.ObjectMetaOrDir, error) {
	if in.SrcTenantBucket == in.DstTenantBucket && in.SrcName == in.DstName {
		return catalog.ObjectMetaOrDir{}, storageerr.New(storageerr.KindInvalidArgument, "engine.CopyObject", in.SrcName, nil)
	}
	if in.SrcZone != "" && in.DstZone != "" && in.SrcZone != in.DstZone {
		return catalog.ObjectMetaOrDir{}, storageerr.New(storageerr.KindNotImplemented, "engine.CopyObject", in.SrcName, nil)
	}
	if in.SrcEncrypted {
		return catalog.ObjectMetaOrDir{}, storageerr.New(storageerr.KindNotAllowed, "engine.CopyObject", in.SrcName, nil)
	}

	src, err := e.HeadObject(ctx, GetInput{
		TenantBucket: in.SrcTenantBucket,
		Name:         in.SrcName,
		Instance:     in.SrcInstance,
		Cond:         in.Cond,
	})
	if err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}

	attrs := src.Attrs
	if in.Directive == TaggingReplace {
		attrs = in.NewAttrs
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(e.streamSource(ctx, in.SrcTenantBucket, src, pw))
	}()

	put, err := e.PutObject(ctx, PutInput{
		TenantBucket: in.DstTenantBucket,
		Bucket:       in.DstBucket,
		Name:         in.DstName,
		Size:         src.Size,
		Body:         pr,
		Owner:        in.DstOwner,
		Attrs:        attrs,
	})
	if err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}
	return put, nil
}

// streamSource reads src's full body and writes it into pw — the same
// chunk-handler contract the read side (spec.md §4.5.4) uses, feeding an
// io.Writer instead of an arbitrary callback.
func (e *Engine) streamSource(ctx context.Context, tenantBucket string, src catalog.ObjectMetaOrDir, pw io.Writer) error {
	if src.Size == 0 {
		return nil
	}
	if src.Category == catalog.CategoryMultiMeta {
		if e.Multipart == nil {
			return storageerr.New(storageerr.KindNotImplemented, "engine.streamSource", src.Name, nil)
		}
		return e.Multipart.Read(ctx, tenantBucket, src, 0, src.Size-1, func(_ int64, data []byte) error {
			_, werr := pw.Write(data)
			return werr
		})
	}

	h, err := e.Objects.Open(ctx, src.ObjectMeta)
	if err != nil {
		return err
	}
	defer h.Close(ctx)
	return h.Read(ctx, 0, src.Size-1, func(_ int64, data []byte) error {
		_, werr := pw.Write(data)
		return werr
	})
}
