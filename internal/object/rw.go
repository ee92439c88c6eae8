package object

import (
	"context"

	"github.com/objectgw/sal/internal/backend"
)

// Write issues a single write of bytes at offset against a plain object
// (spec.md §4.2 "Write"). Chunking into block-sized operations is the
// Writer Pipeline's (C7) job; Write here performs exactly one
// backend.Op call and is used both directly for small objects and as the
// primitive C7 drives repeatedly for large ones.
func (h *Handle) Write(ctx context.Context, offset int64, data []byte, isLast bool) error {
	bs := OptimalBlockSize(h.layout, int64(len(data)), isLast)
	buf := data
	if isLast && int64(len(data)) < h.layout.UnitSize {
		padded := make([]byte, roundup(int64(len(data)), h.layout.UnitSize))
		copy(padded, data)
		buf = padded
	}
	flags := backend.OpFlags(0)
	if isLast {
		flags |= backend.FlagLast
	}
	_, err := h.g.objSvc.Op(ctx, h.meta.ObjectID, backend.OpWrite, backend.Extent{Offset: offset, Length: int64(len(buf))}, buf, flags)
	_ = bs // block sizing for multi-chunk writes is driven by the caller (C7); single-call Write just honours the final-chunk contract.
	return err
}

// ReadCallback receives one trimmed, in-order region of a read.
type ReadCallback func(offset int64, data []byte) error

// Read implements spec.md §4.2 "Read": starting at rounddown(start, unit),
// issue block-aligned reads of bs bytes until end+1 is covered, trim head/
// tail, and invoke cb with each trimmed region in order. The final parity
// group is read with the last-block flag.
func (h *Handle) Read(ctx context.Context, start, end int64, cb ReadCallback) error {
	if h.meta.IsComposite {
		return h.readComposite(ctx, start, end, cb)
	}
	return h.readPlain(ctx, start, end, cb)
}

func (h *Handle) readPlain(ctx context.Context, start, end int64, cb ReadCallback) error {
	u := h.layout.UnitSize
	if u <= 0 {
		u = 1
	}
	cursor := rounddown(start, u)
	for cursor <= end {
		remaining := end - cursor + 1
		bs := OptimalBlockSize(h.layout, remaining, true)
		isLast := cursor+bs > end
		flags := backend.OpFlags(0)
		if isLast {
			flags |= backend.FlagLast
		}
		data, err := h.g.objSvc.Op(ctx, h.meta.ObjectID, backend.OpRead, backend.Extent{Offset: cursor, Length: bs}, nil, flags)
		if err != nil {
			return err
		}
		lo := int64(0)
		if cursor < start {
			lo = start - cursor
		}
		hi := int64(len(data))
		if cursor+int64(len(data))-1 > end {
			hi = end - cursor + 1
		}
		if lo < hi {
			if err := cb(cursor+lo, data[lo:hi]); err != nil {
				return err
			}
		}
		cursor += bs
	}
	return nil
}

// readComposite serves a read from the top layer's sub-object: the
// requested range is read with readPlain directly against that object at
// the same byte offsets. The extent indices are not consulted, so ranges
// are not split per extent and other layers are not read.
func (h *Handle) readComposite(ctx context.Context, start, end int64, cb ReadCallback) error {
	layerID := h.meta.TopLayerOID
	sub := &Handle{g: h.g, meta: Meta{ObjectID: layerID, LayoutID: h.meta.LayoutID, PlacementVersion: h.meta.PlacementVersion}, layout: h.layout, opened: true}
	return sub.readPlain(ctx, start, end, cb)
}
