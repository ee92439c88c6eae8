// Package backend defines the narrow interfaces the storage abstraction
// layer consumes from the underlying index/object service (spec.md §6.1),
// and ships an in-memory fake implementing them for tests.
//
// Everything in this package is an external collaborator per spec.md §1:
// the real backend lives outside this module. Production wiring supplies
// its own implementation of IndexService/ObjectService/LayoutCatalog.
package backend

import "github.com/objectgw/sal/internal/ids"

// KV is one key/value pair as returned by IndexService.Next.
type KV struct {
	Key   []byte
	Value []byte
}

// Layout is the striping recipe a layout ID names: unit size, N data + K
// parity + S spare stripe units, and pool width P (spec.md Glossary).
type Layout struct {
	ID          uint32
	UnitSize    int64
	DataUnits   int // N
	ParityUnits int // K
	SpareUnits  int // S
	PoolWidth   int // P
	// Composite marks a layout that resolves its bytes through one or
	// more layers rather than a single striped extent.
	Composite bool
	// Layers enumerates layer sub-object IDs in priority order. The
	// spec's §9 design note on "composite layer list traversal" calls
	// for this side-catalog when the backend exposes no public
	// enumeration of its own linked list.
	Layers []LayerRef
}

// LayerRef names one layer of a composite object: its own sub-object ID
// and the priority it was inserted at.
type LayerRef struct {
	LayerID  ids.ID128
	Priority uint32
}

// GroupSize returns N*UnitSize, the parity-group size writes must align to.
func (l Layout) GroupSize() int64 {
	return int64(l.DataUnits) * l.UnitSize
}

// ObjectFlags are passed to ObjectService.Create/Open (spec.md §6.1).
type ObjectFlags uint32

const (
	// FlagGenDI asks the service to generate its own data-integrity
	// metadata.
	FlagGenDI ObjectFlags = 1 << iota
	// FlagMeta asks the service to store its own object metadata
	// (disabled for composite layers that carry their own metadata in
	// ObjectMeta instead).
	FlagMeta
)

// OpFlags are passed to ObjectService.Op.
type OpFlags uint32

const (
	// FlagLast marks the final block of a write (or the final parity
	// group of a read), enabling zero-pad-to-unit-size semantics.
	FlagLast OpFlags = 1 << iota
	// FlagFull marks a full parity-group operation as opposed to a
	// partial/degraded one.
	FlagFull
)

// OpKind distinguishes read from write for ObjectService.Op.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
)

// Extent is a byte range within an object, [Offset, Offset+Length).
type Extent struct {
	Offset int64
	Length int64
}
