package object

import (
	"context"
	"encoding/binary"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/logger"
)

// topTierPriority mirrors the source behaviour spec.md §9 open question 2
// documents: ((0x00FFFFFF - gen) << 8) | top_tier with gen=0, top_tier=0,
// i.e. effectively constant. We preserve that constant rather than invent
// a priority scheme the spec says is unverified.
func topTierPriority() uint32 {
	const gen, topTier = 0, 0
	return uint32((0x00FFFFFF-gen)<<8) | topTier
}

// CreateComposite creates a composite object sized for size bytes: a
// plain root object with service-side metadata enabled, one top layer
// sub-object, and an initial extent (0, infinity) on both the layer's
// write and read extent indices (spec.md §4.2 "Create composite").
//
// On any failure after the root object is created, CreateComposite unwinds
// by deleting whatever layer/root state it had managed to create.
func (g *Gateway) CreateComposite(ctx context.Context, size int64) (*Handle, error) {
	h, err := g.Create(ctx, size, true)
	if err != nil {
		return nil, err
	}

	layerID := g.gen.Next()
	if _, err := g.objSvc.Create(ctx, layerID, h.meta.LayoutID, 0); err != nil {
		g.abandon(ctx, ids.Zero, h.meta.ObjectID)
		return nil, err
	}

	layout := h.layout
	layout.Composite = true
	layout.Layers = []backend.LayerRef{{LayerID: layerID, Priority: topTierPriority()}}
	if err := g.layouts.Set(ctx, h.meta.ObjectID, layout); err != nil {
		g.abandon(ctx, layerID, h.meta.ObjectID)
		return nil, err
	}

	infinite := extentValue(0, -1)
	wIdx, rIdx := layerIndexName(layerID, true), layerIndexName(layerID, false)
	for _, name := range []string{wIdx, rIdx} {
		if err := g.idx.Ensure(ctx, name); err != nil {
			g.abandon(ctx, layerID, h.meta.ObjectID)
			return nil, err
		}
	}
	if err := g.idx.Put(ctx, wIdx, extentKey(0), infinite, true); err != nil {
		g.abandon(ctx, layerID, h.meta.ObjectID)
		return nil, err
	}
	if err := g.idx.Put(ctx, rIdx, extentKey(0), infinite, true); err != nil {
		g.abandon(ctx, layerID, h.meta.ObjectID)
		return nil, err
	}

	h.meta.IsComposite = true
	h.meta.TopLayerOID = layerID
	h.layout = layout
	return h, nil
}

// abandon unwinds a partially-constructed composite: delete the layer
// sub-object (if any) and the root object, logging rather than failing
// further since the caller is already returning the original error.
func (g *Gateway) abandon(ctx context.Context, layerID, rootID ids.ID128) {
	if !layerID.IsZero() {
		if err := g.objSvc.Delete(ctx, layerID); err != nil {
			logger.LogIf(ctx, err)
		}
	}
	if err := g.objSvc.Delete(ctx, rootID); err != nil {
		logger.LogIf(ctx, err)
	}
}

// extentKey encodes an extent's start offset as a big-endian sortable key
// so NEXT enumerates extents in offset order.
func extentKey(offset int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(offset))
	return b
}

// extentValue encodes (offset, length) where length=-1 denotes "to
// infinity", used only for the initial (0, infinity) extent of a fresh
// composite layer before any part/write narrows it.
func extentValue(offset, length int64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], uint64(offset))
	binary.BigEndian.PutUint64(b[8:16], uint64(length))
	return b
}

func decodeExtentValue(v []byte) (offset, length int64) {
	if len(v) < 16 {
		return 0, 0
	}
	return int64(binary.BigEndian.Uint64(v[0:8])), int64(binary.BigEndian.Uint64(v[8:16]))
}

// AddExtent inserts one (offset, length) pair into the layer's write and
// read extent indices, used by the tiered multipart engine when it adds
// per-part extents at completion (spec.md §4.6.4 step 4). Invariant 3.6.5
// requires the union of a layer's extents to be contiguous and cover
// [0, object-size); callers are responsible for inserting extents in
// offset order so that invariant holds.
func (g *Gateway) AddExtent(ctx context.Context, layerID ids.ID128, offset, length int64) error {
	v := extentValue(offset, length)
	wIdx, rIdx := layerIndexName(layerID, true), layerIndexName(layerID, false)
	if err := g.idx.Put(ctx, wIdx, extentKey(offset), v, true); err != nil {
		return err
	}
	return g.idx.Put(ctx, rIdx, extentKey(offset), v, true)
}
