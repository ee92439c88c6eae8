package multipart

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/gc"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/logger"
	"github.com/objectgw/sal/internal/object"
	"github.com/objectgw/sal/internal/storageerr"
)

// PartSelector is one entry of the client-supplied part list Complete
// validates against the stored records (spec.md §4.6.4 step 2).
type PartSelector struct {
	Num  int
	ETag string
}

// CompleteInput is the request shape for Complete.
type CompleteInput struct {
	TenantBucket string
	Bucket       catalog.BucketRecord
	Name         string
	UploadID     string
	Parts        []PartSelector
}

// Complete implements spec.md §4.6.4.
func (e *Engine) Complete(ctx context.Context, in CompleteInput) (catalog.ObjectMetaOrDir, error) {
	metaKey := catalog.MultipartMetaKey(in.Name, in.UploadID)
	upload, err := e.Catalog.GetInProgressUpload(ctx, in.TenantBucket, metaKey)
	if err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}

	recs, err := e.collectParts(ctx, in.TenantBucket, in.Name, in.UploadID)
	if err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}
	if err := validateParts(in.Parts, recs, e.MinPartSize); err != nil {
		return catalog.ObjectMetaOrDir{}, err
	}

	var totalSize, totalRounded int64
	digestConcat := make([]byte, 0, len(recs)*md5.Size)
	for _, r := range recs {
		totalSize += r.Part.Size
		totalRounded += r.Part.RoundedSize
		raw, err := hex.DecodeString(r.Part.ETag)
		if err != nil {
			return catalog.ObjectMetaOrDir{}, storageerr.New(storageerr.KindInvalidArgument, "multipart.Complete", in.Name, err)
		}
		digestConcat = append(digestConcat, raw...)
	}
	sum := md5.Sum(digestConcat)
	etag := fmt.Sprintf("%s-%d", hex.EncodeToString(sum[:]), len(recs))

	if upload.Tiered {
		if err := e.addPartExtents(ctx, upload, recs); err != nil {
			return catalog.ObjectMetaOrDir{}, err
		}
	}

	now := e.Now()
	finalMeta := upload.ObjectMeta
	attrs := cloneAttrs(upload.Attrs)
	if !upload.Tiered {
		// Separate strategy: the final record carries no single byte
		// object of its own; reads re-enumerate the part records
		// (spec.md §4.6.5), keyed by the upload-id stamped here since
		// the in-progress record itself is deleted below.
		finalMeta = object.Meta{}
		attrs[uploadIDAttr] = in.UploadID
	}

	entry := catalog.ObjectMetaOrDir{
		DirEntry: catalog.DirEntry{
			Name:     in.Name,
			MTime:    now,
			Size:     totalSize,
			ETag:     etag,
			Owner:    upload.Owner,
			Category: catalog.CategoryMultiMeta,
		},
		Attrs:      attrs,
		ObjectMeta: finalMeta,
	}

	if !in.Bucket.VersioningFlag.Versioned() {
		if err := e.completeUnversioned(ctx, in, entry, totalRounded); err != nil {
			return catalog.ObjectMetaOrDir{}, err
		}
	} else {
		if err := e.completeVersioned(ctx, in, &entry, totalRounded); err != nil {
			return catalog.ObjectMetaOrDir{}, err
		}
	}

	if err := e.Catalog.DelInProgressUpload(ctx, in.TenantBucket, metaKey); err != nil {
		logger.LogIf(ctx, err)
	}
	return entry, nil
}

// collectParts enumerates every stored part record for (name, uploadID)
// in ascending part-number order (spec.md §4.6.4 step 1).
func (e *Engine) collectParts(ctx context.Context, tenantBucket, name, uploadID string) ([]catalog.PartRecord, error) {
	prefix := catalog.MultipartPartPrefix(name, uploadID)
	var out []catalog.PartRecord
	cursor := prefix
	for {
		entries, more, err := e.Catalog.NextPartRecords(ctx, tenantBucket, index.NextOptions{
			Cursor: cursor,
			Prefix: prefix,
			Max:    256,
		})
		if err != nil {
			return nil, err
		}
		for _, kv := range entries {
			rec, err := catalog.DecodePartRecord(kv.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
			cursor = append(append([]byte{}, kv.Key...), 0)
		}
		if !more || len(entries) == 0 {
			return out, nil
		}
	}
}

// validateParts implements spec.md §4.6.4 step 2: the client-supplied
// part list must match the stored records one-for-one (same count, same
// order, same etag), and every non-last part must meet min_part_size.
func validateParts(want []PartSelector, got []catalog.PartRecord, minPartSize int64) error {
	if len(want) != len(got) {
		return storageerr.New(storageerr.KindInvalidArgument, "multipart.Complete", "", nil)
	}
	for i, w := range want {
		g := got[i]
		if w.Num != g.Part.Num || w.ETag != g.Part.ETag {
			return storageerr.New(storageerr.KindInvalidArgument, "multipart.Complete", "", nil)
		}
		if i < len(got)-1 && g.Part.Size < minPartSize {
			return storageerr.New(storageerr.KindInvalidArgument, "multipart.Complete", "", nil)
		}
	}
	return nil
}

// addPartExtents carves one extent per part into the composite's top
// layer, at the part's fixed (num-1)*PART_SIZE offset (spec.md §4.6.4
// step 4, §4.6.3 step 2).
func (e *Engine) addPartExtents(ctx context.Context, upload catalog.InProgressUpload, recs []catalog.PartRecord) error {
	for _, r := range recs {
		offset := int64(r.Part.Num-1) * partSize
		if err := e.Objects.AddExtent(ctx, upload.ObjectMeta.TopLayerOID, offset, r.Part.Size); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) completeUnversioned(ctx context.Context, in CompleteInput, entry catalog.ObjectMetaOrDir, roundedSize int64) error {
	key := catalog.NullKey(in.Name)
	if prev, err := e.Catalog.GetObjectRecord(ctx, in.TenantBucket, key); err == nil {
		e.destroyPrevious(ctx, in.TenantBucket, in.Bucket.Bucket, key, prev)
	} else if !isNotFound(err) {
		return err
	}
	if err := e.Catalog.PutObjectRecord(ctx, in.TenantBucket, key, entry, true); err != nil {
		return err
	}
	e.Catalog.UpdateStatsTolerant(ctx, entry.Owner, in.Bucket.Bucket, catalog.CategoryMultiMeta, entry.Size, roundedSize)
	return nil
}

func (e *Engine) completeVersioned(ctx context.Context, in CompleteInput, entry *catalog.ObjectMetaOrDir, roundedSize int64) error {
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
	e.clearPredecessorCurrent(ctx, in.TenantBucket, in.Name, instance)
	if in.Bucket.VersioningFlag == catalog.VersioningSuspended {
		if prev, err := e.Catalog.GetObjectRecord(ctx, in.TenantBucket, catalog.NullKey(in.Name)); err == nil {
			e.destroyPrevious(ctx, in.TenantBucket, in.Bucket.Bucket, catalog.NullKey(in.Name), prev)
		} else if !isNotFound(err) {
			logger.LogIf(ctx, err)
		}
	}
	e.Catalog.UpdateStatsTolerant(ctx, entry.Owner, in.Bucket.Bucket, catalog.CategoryMultiMeta, entry.Size, roundedSize)
	return nil
}

// clearPredecessorCurrent mirrors engine.Engine's helper of the same name
// (spec.md §4.5.2 step 3): NEXT the first two records at/after <name>SEP
// and drop CURRENT from whichever (at most one) still carries it.
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

// destroyPrevious mirrors engine.Engine's helper of the same name, plus
// the multipart-specific case of a previously-completed separate-strategy
// record: its bytes live in per-part objects, not prev.ObjectMeta, so
// those are torn down via the upload-id stamped in prev.Attrs.
func (e *Engine) destroyPrevious(ctx context.Context, tenantBucket, bucket string, key []byte, prev catalog.ObjectMetaOrDir) {
	switch {
	case prev.ObjectMeta.IsComposite:
		// bytes live in the composite's own layer, torn down by
		// e.Objects.Delete via the Object Gateway's composite path.
		e.enqueueOrDeleteObject(ctx, prev.ObjectMeta, prev.Size)
	case prev.Category == catalog.CategoryMultiMeta:
		logger.LogIf(ctx, e.Destroy(ctx, tenantBucket, prev))
	default:
		e.enqueueOrDeleteObject(ctx, prev.ObjectMeta, prev.Size)
	}
	if err := e.Catalog.DelObjectRecord(ctx, tenantBucket, key); err != nil {
		logger.LogIf(ctx, err)
	}
	if !prev.IsDeleteMarker() {
		l := e.layoutOf(ctx, prev.ObjectMeta)
		e.Catalog.UpdateStatsTolerant(ctx, prev.Owner, bucket, prev.Category, -prev.Size, -object.RoundedSize(prev.Size, l))
	}
}

func (e *Engine) destroyCompletedSeparateParts(ctx context.Context, tenantBucket, name, uploadID string) {
	recs, err := e.collectParts(ctx, tenantBucket, name, uploadID)
	if err != nil {
		logger.LogIf(ctx, err)
		return
	}
	for _, r := range recs {
		e.enqueueOrDeleteObject(ctx, r.ObjectMeta, r.Part.Size)
	}
	if err := e.deletePartRecords(ctx, tenantBucket, name, uploadID); err != nil {
		logger.LogIf(ctx, err)
	}
}

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
