// Package store wires the external collaborators (spec.md §6.1's
// IndexService/ObjectService/LayoutCatalog) and the core's own layers
// (C2-C6) into the capability set spec.md §6.2 exposes to a caller:
// Engine for single-object operations and Multipart for multipart
// uploads, both backed by the same Catalog and Object Gateway.
package store

import (
	"context"
	"time"

	"github.com/objectgw/sal/internal/backend"
	"github.com/objectgw/sal/internal/cache"
	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/config"
	"github.com/objectgw/sal/internal/engine"
	"github.com/objectgw/sal/internal/gc"
	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/multipart"
	"github.com/objectgw/sal/internal/object"
	"github.com/objectgw/sal/internal/storageerr"
)

// wrapIfTimeout turns a backend call that failed because the operation
// timeout (cfg.OperationTimeout) elapsed into a storageerr Transport
// error with a stack trace attached; any other error (including the
// backend's own typed errors) passes through unchanged.
func wrapIfTimeout(ctx context.Context, op string, err error) error {
	if err == nil || ctx.Err() != context.DeadlineExceeded {
		return err
	}
	return storageerr.WrapTransport(op, "", err)
}

// Store is the assembled capability set spec.md §6.2 names.
type Store struct {
	Catalog   *catalog.Catalog
	Objects   *object.Gateway
	Engine    *engine.Engine
	Multipart *multipart.Engine

	gc closer
}

// closer matches gc.NatsEnqueuer.Close, released on shutdown when
// GCEnabled wired up a live NATS connection.
type closer interface {
	Close()
}

// New wires the capability set from cfg and the three backend
// collaborators. Object IDs come from a generator seeded with cfg.Epoch
// (spec.md §6.4 "Epoch"); idxSvc, objSvc and layouts are the production or test implementations of
// spec.md §6.1's external interfaces.
func New(ctx context.Context, cfg config.Config, idxSvc backend.IndexService, objSvc backend.ObjectService, layouts backend.LayoutCatalog) (*Store, error) {
	if cfg.OperationTimeout > 0 {
		idxSvc = timeoutIndexService{inner: idxSvc, timeout: cfg.OperationTimeout}
		objSvc = timeoutObjectService{inner: objSvc, timeout: cfg.OperationTimeout}
	}

	idxGW := index.New(idxSvc)

	caches, err := cache.NewSet(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	caches.SetEnabled(cfg.UseMetadataCache)

	cat := catalog.New(idxGW, caches)
	if err := cat.Bootstrap(ctx); err != nil {
		return nil, err
	}

	gen := ids.NewGenerator(cfg.Epoch)
	objs := object.New(objSvc, layouts, gen, idxGW)

	var enqueuer gc.Enqueuer
	var gcConn closer
	if cfg.GCEnabled {
		nats, err := gc.NewNatsEnqueuer(cfg.GCNatsURL, cfg.GCSubject)
		if err != nil {
			return nil, err
		}
		enqueuer = nats
		gcConn = nats
	} else {
		enqueuer = &gc.SyncDeleter{Delete: objs.Delete}
	}

	eng := engine.New(cat, objs, enqueuer, nil)
	mp := multipart.New(cat, objs, enqueuer, cfg.TieredEnabled, cfg.MinPartSize)
	eng.Multipart = mp

	return &Store{Catalog: cat, Objects: objs, Engine: eng, Multipart: mp, gc: gcConn}, nil
}

// Close releases the GC enqueuer's connection, if one was opened.
func (s *Store) Close() {
	if s.gc != nil {
		s.gc.Close()
	}
}

type timeoutIndexService struct {
	inner   backend.IndexService
	timeout time.Duration
}

func (t timeoutIndexService) CreateIndex(ctx context.Context, id ids.ID128) error {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return wrapIfTimeout(cctx, "index.CreateIndex", t.inner.CreateIndex(cctx, id))
}

func (t timeoutIndexService) DeleteIndex(ctx context.Context, id ids.ID128) error {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return wrapIfTimeout(cctx, "index.DeleteIndex", t.inner.DeleteIndex(cctx, id))
}

func (t timeoutIndexService) Put(ctx context.Context, id ids.ID128, key, value []byte, overwrite bool) error {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return wrapIfTimeout(cctx, "index.Put", t.inner.Put(cctx, id, key, value, overwrite))
}

func (t timeoutIndexService) Get(ctx context.Context, id ids.ID128, key []byte) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	v, err := t.inner.Get(cctx, id, key)
	return v, wrapIfTimeout(cctx, "index.Get", err)
}

func (t timeoutIndexService) Del(ctx context.Context, id ids.ID128, key []byte) error {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return wrapIfTimeout(cctx, "index.Del", t.inner.Del(cctx, id, key))
}

func (t timeoutIndexService) Next(ctx context.Context, id ids.ID128, cursor []byte, max int, prefix, delim []byte) ([]backend.KV, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	entries, truncated, err := t.inner.Next(cctx, id, cursor, max, prefix, delim)
	return entries, truncated, wrapIfTimeout(cctx, "index.Next", err)
}

type timeoutObjectService struct {
	inner   backend.ObjectService
	timeout time.Duration
}

func (t timeoutObjectService) Create(ctx context.Context, id ids.ID128, layoutID uint32, flags backend.ObjectFlags) (uint64, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	pv, err := t.inner.Create(cctx, id, layoutID, flags)
	return pv, wrapIfTimeout(cctx, "object.Create", err)
}

func (t timeoutObjectService) Open(ctx context.Context, id ids.ID128, layoutID uint32, placementVersion uint64, flags backend.ObjectFlags) error {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return wrapIfTimeout(cctx, "object.Open", t.inner.Open(cctx, id, layoutID, placementVersion, flags))
}

func (t timeoutObjectService) Close(ctx context.Context, id ids.ID128) error {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return wrapIfTimeout(cctx, "object.Close", t.inner.Close(cctx, id))
}

func (t timeoutObjectService) Delete(ctx context.Context, id ids.ID128) error {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return wrapIfTimeout(cctx, "object.Delete", t.inner.Delete(cctx, id))
}

func (t timeoutObjectService) Op(ctx context.Context, id ids.ID128, kind backend.OpKind, extent backend.Extent, buf []byte, flags backend.OpFlags) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	out, err := t.inner.Op(cctx, id, kind, extent, buf, flags)
	return out, wrapIfTimeout(cctx, "object.Op", err)
}
