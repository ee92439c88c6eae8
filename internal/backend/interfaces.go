package backend

import (
	"context"

	"github.com/objectgw/sal/internal/ids"
)

// IndexService is the ordered key->value map primitive (spec.md §1, §6.1).
// One IndexService instance manages all indices in the store; indices are
// identified by their 128-bit ID (internal/ids.HashIndexName derives that
// ID from a textual name, a C1 concern, not this interface's).
type IndexService interface {
	// CreateIndex creates a new, empty index under id. AlreadyExists if
	// id is already in use.
	CreateIndex(ctx context.Context, id ids.ID128) error
	// DeleteIndex deletes the index and all of its entries.
	DeleteIndex(ctx context.Context, id ids.ID128) error
	// Put writes key->value into the index named by id. If overwrite is
	// false and key already exists, returns AlreadyExists.
	Put(ctx context.Context, id ids.ID128, key, value []byte, overwrite bool) error
	// Get returns the value stored at key, or NotFound.
	Get(ctx context.Context, id ids.ID128, key []byte) ([]byte, error)
	// Del removes key, or returns NotFound if absent.
	Del(ctx context.Context, id ids.ID128, key []byte) error
	// Next returns up to max entries in key order starting at the
	// smallest key >= cursor. If prefix is non-nil, iteration stops at
	// the first key not sharing prefix. If delim is non-nil, keys
	// containing delim beyond prefix collapse into directory
	// pseudo-entries (spec.md §4.1); the returned KV.Value is nil for
	// those. truncated is true iff there may be more entries beyond
	// what was returned.
	Next(ctx context.Context, id ids.ID128, cursor []byte, max int, prefix, delim []byte) (entries []KV, truncated bool, err error)
}

// ObjectService is the striped byte-container primitive (spec.md §1,
// §6.1). One handle (returned by Create/Open) is used for a bounded
// sequence of Op calls and then Closed.
type ObjectService interface {
	// Create reserves storage for a new object of the given layout. It
	// returns the placement version actually used, for the caller to
	// persist in ObjectMeta; later Op calls address the object by id.
	Create(ctx context.Context, id ids.ID128, layoutID uint32, flags ObjectFlags) (placementVersion uint64, err error)
	// Open opens an existing object for Op calls.
	Open(ctx context.Context, id ids.ID128, layoutID uint32, placementVersion uint64, flags ObjectFlags) error
	// Close releases any handle-local resources. Idempotent.
	Close(ctx context.Context, id ids.ID128) error
	// Delete destroys the object and all of its data.
	Delete(ctx context.Context, id ids.ID128) error
	// Op issues one read or write against a single extent. For writes,
	// buf must be exactly extent.Length bytes (already padded by the
	// caller when FlagLast is set). For reads, Op returns exactly
	// extent.Length bytes.
	Op(ctx context.Context, id ids.ID128, kind OpKind, extent Extent, buf []byte, flags OpFlags) ([]byte, error)
}

// LayoutCatalog resolves object sizes to layout IDs and layout IDs to
// their striping parameters (spec.md §6.1 layout.* operations).
type LayoutCatalog interface {
	// FindByObjSize returns the layout-id best matching size, or
	// InvalidArgument if no layout is available for it.
	FindByObjSize(ctx context.Context, size int64) (uint32, error)
	// UnitSize returns the stripe unit size U for a layout ID.
	UnitSize(ctx context.Context, layoutID uint32) (int64, error)
	// Describe returns the full Layout for a layout ID.
	Describe(ctx context.Context, layoutID uint32) (Layout, error)
	// Get returns the layout currently associated with an object.
	Get(ctx context.Context, objID ids.ID128) (Layout, error)
	// Set updates the layout associated with an object (used to turn a
	// plain object into a composite one by adding its first layer).
	Set(ctx context.Context, objID ids.ID128, layout Layout) error
}
