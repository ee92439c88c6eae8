package object

import "github.com/objectgw/sal/internal/ids"

// Meta is the ObjectMeta record of spec.md §3.4: the triple that
// identifies and describes one byte container, plus the bookkeeping a
// composite (tiered) object needs to enumerate its own layers without a
// public linked-list traversal from the backend (spec.md §9).
type Meta struct {
	ObjectID         ids.ID128
	PlacementVersion uint64
	LayoutID         uint32
	IsComposite      bool
	// TopLayerOID is the sub-object ID of the composite's top (and,
	// today, only) layer. Zero when !IsComposite.
	TopLayerOID ids.ID128
}
