// Package object implements the Object Gateway (C2): create/open/read/
// write/delete of striped byte containers, both plain (single striped
// object) and composite (an umbrella object with one or more layers,
// each an own sub-object plus write/read extent indices), per spec.md
// §4.2.
package object

import (
	"context"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/logger"
	"github.com/objectgw/sal/internal/storageerr"
)

// extentIndexBatch bounds how many extent records a single composite
// delete pass removes per Next/Del round, per spec.md §4.2 "enumerate
// each layer's extents in bounded batches".
const extentIndexBatch = 256

// Gateway is the Object Gateway.
type Gateway struct {
	objSvc  backend.ObjectService
	layouts backend.LayoutCatalog
	gen     *ids.Generator
	idx     *index.Gateway // used only for composite layer extent indices
}

// New constructs a Gateway.
func New(objSvc backend.ObjectService, layouts backend.LayoutCatalog, gen *ids.Generator, idx *index.Gateway) *Gateway {
	return &Gateway{objSvc: objSvc, layouts: layouts, gen: gen, idx: idx}
}

// Handle is an opened object ready for Op calls. Its zero value is not
// valid; obtain one from Create, CreateComposite, or Open.
type Handle struct {
	g      *Gateway
	meta   Meta
	layout backend.Layout
	opened bool
}

// Meta returns the handle's ObjectMeta.
func (h *Handle) Meta() Meta { return h.meta }

// Layout returns the handle's resolved striping layout.
func (h *Handle) Layout() backend.Layout { return h.layout }

// Create reserves a new object ID and creates a plain striped object
// sized for size bytes (spec.md §4.2 "Create").
func (g *Gateway) Create(ctx context.Context, size int64, storeOwnMeta bool) (*Handle, error) {
	layoutID, err := g.layouts.FindByObjSize(ctx, size)
	if err != nil {
		return nil, storageerr.New(storageerr.KindInvalidArgument, "object.Create", "", err)
	}
	layout, err := g.layouts.Describe(ctx, layoutID)
	if err != nil {
		return nil, err
	}
	if err := validateLayout("object.Create", layout); err != nil {
		return nil, err
	}

	id := g.gen.Next()
	flags := backend.ObjectFlags(0)
	if storeOwnMeta {
		flags |= backend.FlagMeta
	}
	pver, err := g.objSvc.Create(ctx, id, layoutID, flags)
	if err != nil {
		return nil, err
	}
	return &Handle{
		g: g,
		meta: Meta{
			ObjectID:         id,
			PlacementVersion: pver,
			LayoutID:         layoutID,
		},
		layout: layout,
		opened: true,
	}, nil
}

// OpenLayerForWrite returns a Handle scoped to m's top layer sub-object
// rather than its (metadata-only) root, used by the tiered multipart
// strategy to append part data directly into the layer (spec.md §4.6.3).
func (g *Gateway) OpenLayerForWrite(ctx context.Context, m Meta) (*Handle, error) {
	layout, err := g.layouts.Describe(ctx, m.LayoutID)
	if err != nil {
		return nil, err
	}
	return &Handle{
		g:      g,
		meta:   Meta{ObjectID: m.TopLayerOID, LayoutID: m.LayoutID, PlacementVersion: m.PlacementVersion},
		layout: layout,
		opened: true,
	}, nil
}

// LayoutFor resolves the striping layout m.LayoutID names, without
// opening the object itself. Used by stats accounting (spec.md §4.4),
// which needs a rounded size for an object it is not otherwise touching.
func (g *Gateway) LayoutFor(ctx context.Context, m Meta) (backend.Layout, error) {
	return g.layouts.Describe(ctx, m.LayoutID)
}

// Open opens an existing plain or composite object for reads.
func (g *Gateway) Open(ctx context.Context, m Meta) (*Handle, error) {
	layout, err := g.layouts.Describe(ctx, m.LayoutID)
	if err != nil {
		return nil, err
	}
	if err := g.objSvc.Open(ctx, m.ObjectID, m.LayoutID, m.PlacementVersion, 0); err != nil {
		return nil, err
	}
	return &Handle{g: g, meta: m, layout: layout, opened: true}, nil
}

// Close releases the handle. Idempotent.
func (h *Handle) Close(ctx context.Context) error {
	if !h.opened {
		return nil
	}
	h.opened = false
	return h.g.objSvc.Close(ctx, h.meta.ObjectID)
}

// Delete destroys the underlying object. For composite objects it
// enumerates layers, deletes every extent record in bounded batches,
// deletes each layer sub-object, then deletes the root (spec.md §4.2
// "Delete"). Callers pass the last-known Meta; the handle need not be
// open.
func (g *Gateway) Delete(ctx context.Context, m Meta) error {
	if m.IsComposite {
		if err := g.deleteCompositeLayers(ctx, m); err != nil {
			logger.LogIf(ctx, err)
		}
	}
	return g.objSvc.Delete(ctx, m.ObjectID)
}

func (g *Gateway) deleteCompositeLayers(ctx context.Context, m Meta) error {
	layout, err := g.layouts.Get(ctx, m.ObjectID)
	if err != nil {
		return err
	}
	for _, layer := range layout.Layers {
		if err := g.drainExtentIndex(ctx, layer.LayerID, true); err != nil {
			logger.LogIf(ctx, err)
		}
		if err := g.drainExtentIndex(ctx, layer.LayerID, false); err != nil {
			logger.LogIf(ctx, err)
		}
		if err := g.objSvc.Delete(ctx, layer.LayerID); err != nil {
			logger.LogIf(ctx, err)
		}
	}
	return nil
}

func (g *Gateway) drainExtentIndex(ctx context.Context, layerID ids.ID128, isWrite bool) error {
	name := layerIndexName(layerID, isWrite)
	for {
		entries, _, err := g.idx.Next(ctx, name, index.NextOptions{Max: extentIndexBatch})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for _, e := range entries {
			if err := g.idx.Del(ctx, name, e.Key); err != nil {
				logger.LogIf(ctx, err)
			}
		}
	}
}

func layerIndexName(layerID ids.ID128, isWrite bool) string {
	if isWrite {
		return "layer-wext." + layerID.String()
	}
	return "layer-rext." + layerID.String()
}
