package object

import (
	"github.com/klauspost/reedsolomon"
	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/storageerr"
)

const kib32 = 32 * 1024

// validateLayout confirms a layout's N data-units/K parity-units can
// actually back a Reed-Solomon encoder before any I/O is attempted
// against it — the same data/parity shard-count constraints
// (1 <= dataShards, 0 <= parityShards, dataShards+parityShards <= 256)
// the erasure backend's own encoder enforces.
func validateLayout(op string, l backend.Layout) error {
	if l.Composite {
		return nil // a composite's own layer layouts are validated when each layer is created
	}
	if _, err := reedsolomon.New(l.DataUnits, l.ParityUnits); err != nil {
		return storageerr.New(storageerr.KindInvalidArgument, op, "", err)
	}
	return nil
}

// roundup rounds n up to the nearest multiple of unit.
func roundup(n, unit int64) int64 {
	if unit <= 0 {
		return n
	}
	if n%unit == 0 {
		return n
	}
	return (n/unit + 1) * unit
}

// rounddown rounds n down to the nearest multiple of unit.
func rounddown(n, unit int64) int64 {
	if unit <= 0 {
		return n
	}
	return (n / unit) * unit
}

// RoundedSize returns roundup(size, layout.UnitSize), the "rounded size"
// spec.md §4.4 uses for stats accounting, or 0 for a zero-byte object
// which has no underlying byte container.
func RoundedSize(size int64, l backend.Layout) int64 {
	if size == 0 {
		return 0
	}
	u := l.UnitSize
	if u <= 0 {
		u = 1
	}
	return roundup(size, u)
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// OptimalBlockSize implements get_optimal_bs(len, is_last) from spec.md
// §4.7: given the layout's unit size U and N/K/S/P parameters, compute
// the block size a single write chunk should use.
//
//   G = N*U                                  (group size)
//   depth = 128 / ceil(U/32KiB)               (saturation depth, in units)
//   max_bs = roundup(depth*U*P*N/(N+K+S), G)
//
//   len >= max_bs  => max_bs
//   is_last        => roundup(len, U)
//   otherwise      => roundup(len, G)
func OptimalBlockSize(l backend.Layout, length int64, isLast bool) int64 {
	u := l.UnitSize
	if u <= 0 {
		u = 1
	}
	n := int64(l.DataUnits)
	if n <= 0 {
		n = 1
	}
	k := int64(l.ParityUnits)
	s := int64(l.SpareUnits)
	p := int64(l.PoolWidth)
	if p <= 0 {
		p = n + k + s
	}

	g := n * u
	depthUnits := ceilDiv(128, ceilDiv(u, kib32))
	maxBS := depthUnits * u * p * n / (n + k + s)
	maxBS = roundup(maxBS, g)

	switch {
	case length >= maxBS:
		return maxBS
	case isLast:
		return roundup(length, u)
	default:
		return roundup(length, g)
	}
}
