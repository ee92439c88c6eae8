// Package index implements the Index Gateway (C1): a uniform PUT/GET/DEL/
// NEXT surface over named indices, with deterministic name->ID hashing
// (spec.md §4.1).
package index

import (
	"context"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/storageerr"
)

// Gateway is the Index Gateway. It is safe for concurrent use; the
// underlying IndexService is assumed to serialize per-key operations
// itself (spec.md §5).
type Gateway struct {
	svc backend.IndexService
}

// New constructs a Gateway over the given IndexService.
func New(svc backend.IndexService) *Gateway {
	return &Gateway{svc: svc}
}

// idFor hashes a textual index name into its 128-bit ID (spec.md §3.1).
func idFor(name string) ids.ID128 {
	return ids.HashIndexName(name)
}

// Ensure creates the named index if it does not already exist. Idempotent
// from the caller's perspective: AlreadyExists is swallowed.
func (g *Gateway) Ensure(ctx context.Context, name string) error {
	err := g.svc.CreateIndex(ctx, idFor(name))
	if err == nil {
		return nil
	}
	if isAlreadyExists(err) {
		return nil
	}
	return err
}

// Drop deletes the named index and all of its entries. NotFound is
// swallowed: dropping an index that was never created (or already
// dropped) is not an error from the caller's perspective.
func (g *Gateway) Drop(ctx context.Context, name string) error {
	err := g.svc.DeleteIndex(ctx, idFor(name))
	if err == nil || storageerr.KindOf(err) == storageerr.KindNotFound {
		return nil
	}
	return err
}

// Put writes key->value into the named index.
func (g *Gateway) Put(ctx context.Context, name string, key, value []byte, overwrite bool) error {
	return g.svc.Put(ctx, idFor(name), key, value, overwrite)
}

// Get reads the value for key from the named index.
func (g *Gateway) Get(ctx context.Context, name string, key []byte) ([]byte, error) {
	return g.svc.Get(ctx, idFor(name), key)
}

// Del removes key from the named index.
func (g *Gateway) Del(ctx context.Context, name string, key []byte) error {
	return g.svc.Del(ctx, idFor(name), key)
}

// Entry is one (key, value) pair returned by Next; Value is nil for
// directory pseudo-entries.
type Entry struct {
	Key   []byte
	Value []byte
}

// NextOptions configures a Next call (spec.md §4.1).
type NextOptions struct {
	Cursor []byte
	Max    int
	Prefix []byte
	Delim  []byte
}

// Next returns up to opts.Max entries from the named index, in key order,
// starting at the smallest key >= opts.Cursor (Max defaults to 1000 when
// not positive). It makes a single backend Next call and does not batch
// or concatenate results itself (spec.md §4.1's batching note); the
// backend's own iteration and prefix/delimiter collapsing are used as
// returned. Gateway.Next is a thin, directly-forwarding wrapper that
// exists to keep the name->ID hash and the public signature in one place.
func (g *Gateway) Next(ctx context.Context, name string, opts NextOptions) (entries []Entry, truncated bool, err error) {
	max := opts.Max
	if max <= 0 {
		max = 1000
	}
	kvs, trunc, err := g.svc.Next(ctx, idFor(name), opts.Cursor, max, opts.Prefix, opts.Delim)
	if err != nil {
		return nil, false, err
	}
	out := make([]Entry, len(kvs))
	for i, kv := range kvs {
		out[i] = Entry{Key: kv.Key, Value: kv.Value}
	}
	return out, trunc, nil
}

func isAlreadyExists(err error) bool {
	return storageerr.KindOf(err) == storageerr.KindAlreadyExists
}
