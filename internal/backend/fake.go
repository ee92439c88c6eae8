package backend

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/objectgw/sal/internal/ids"
	"github.com/objectgw/sal/internal/storageerr"
)

// Fake is an in-memory implementation of IndexService, ObjectService and
// LayoutCatalog, used by this module's tests so the suite never depends
// on a live index/object service, and by salserver's -demo mode.
type Fake struct {
	mu      sync.Mutex
	indices map[ids.ID128]map[string][]byte
	objects map[ids.ID128][]byte
	layouts map[ids.ID128]Layout
	catalog map[uint32]Layout
}

// NewFake constructs a Fake with a default small-object layout (id 1:
// 4 KiB unit, 2 data + 1 parity + 0 spare, pool width 4) and large-object
// layout (id 2: 1 MiB unit, 4 data + 2 parity + 0 spare, pool width 8)
// registered, matching the kind of layouts a development-scale cluster
// would use.
func NewFake() *Fake {
	f := &Fake{
		indices: map[ids.ID128]map[string][]byte{},
		objects: map[ids.ID128][]byte{},
		layouts: map[ids.ID128]Layout{},
		catalog: map[uint32]Layout{
			1: {ID: 1, UnitSize: 4096, DataUnits: 2, ParityUnits: 1, SpareUnits: 0, PoolWidth: 4},
			2: {ID: 2, UnitSize: 1 << 20, DataUnits: 4, ParityUnits: 2, SpareUnits: 0, PoolWidth: 8},
		},
	}
	return f
}

// --- IndexService ---

func (f *Fake) CreateIndex(ctx context.Context, id ids.ID128) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.indices[id]; ok {
		return storageerr.New(storageerr.KindAlreadyExists, "fake.CreateIndex", id.String(), nil)
	}
	f.indices[id] = map[string][]byte{}
	return nil
}

func (f *Fake) DeleteIndex(ctx context.Context, id ids.ID128) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.indices[id]; !ok {
		return storageerr.New(storageerr.KindNotFound, "fake.DeleteIndex", id.String(), nil)
	}
	delete(f.indices, id)
	return nil
}

func (f *Fake) Put(ctx context.Context, id ids.ID128, key, value []byte, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indices[id]
	if !ok {
		return storageerr.New(storageerr.KindNotFound, "fake.Put", id.String(), nil)
	}
	if _, exists := idx[string(key)]; exists && !overwrite {
		return storageerr.New(storageerr.KindAlreadyExists, "fake.Put", string(key), nil)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	idx[string(key)] = cp
	return nil
}

func (f *Fake) Get(ctx context.Context, id ids.ID128, key []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indices[id]
	if !ok {
		return nil, storageerr.New(storageerr.KindNotFound, "fake.Get", id.String(), nil)
	}
	v, ok := idx[string(key)]
	if !ok {
		return nil, storageerr.New(storageerr.KindNotFound, "fake.Get", string(key), nil)
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (f *Fake) Del(ctx context.Context, id ids.ID128, key []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indices[id]
	if !ok {
		return storageerr.New(storageerr.KindNotFound, "fake.Del", id.String(), nil)
	}
	if _, exists := idx[string(key)]; !exists {
		return storageerr.New(storageerr.KindNotFound, "fake.Del", string(key), nil)
	}
	delete(idx, string(key))
	return nil
}

func (f *Fake) Next(ctx context.Context, id ids.ID128, cursor []byte, max int, prefix, delim []byte) ([]KV, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.indices[id]
	if !ok {
		return nil, false, storageerr.New(storageerr.KindNotFound, "fake.Next", id.String(), nil)
	}
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := sort.SearchStrings(keys, string(cursor))

	var out []KV
	var lastDir string
	i := start
	for i < len(keys) && len(out) < max {
		k := keys[i]
		if prefix != nil && !bytes.HasPrefix([]byte(k), prefix) {
			break
		}
		if delim != nil {
			rest := []byte(k)
			if prefix != nil {
				rest = rest[len(prefix):]
			}
			if idx2 := bytes.Index(rest, delim); idx2 >= 0 {
				dirKey := string(k[:len(k)-len(rest)+idx2+len(delim)])
				if dirKey != lastDir {
					out = append(out, KV{Key: []byte(dirKey), Value: nil})
					lastDir = dirKey
				}
				// skip to next key >= dirKey + 0xFF
				skipTo := dirKey + "\xff"
				j := sort.SearchStrings(keys, skipTo)
				i = j
				continue
			}
		}
		out = append(out, KV{Key: []byte(k), Value: idx[k]})
		i++
	}
	truncated := i < len(keys) && (prefix == nil || bytes.HasPrefix([]byte(keys[i]), prefix))
	return out, truncated, nil
}

// --- ObjectService ---

func (f *Fake) Create(ctx context.Context, id ids.ID128, layoutID uint32, flags ObjectFlags) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[id]; ok {
		return 0, storageerr.New(storageerr.KindAlreadyExists, "fake.Create", id.String(), nil)
	}
	f.objects[id] = []byte{}
	f.layouts[id] = f.catalog[layoutID]
	return 1, nil
}

func (f *Fake) Open(ctx context.Context, id ids.ID128, layoutID uint32, placementVersion uint64, flags ObjectFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[id]; !ok {
		return storageerr.New(storageerr.KindNotFound, "fake.Open", id.String(), nil)
	}
	return nil
}

func (f *Fake) Close(ctx context.Context, id ids.ID128) error { return nil }

func (f *Fake) Delete(ctx context.Context, id ids.ID128) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[id]; !ok {
		return storageerr.New(storageerr.KindNotFound, "fake.Delete", id.String(), nil)
	}
	delete(f.objects, id)
	delete(f.layouts, id)
	return nil
}

func (f *Fake) Op(ctx context.Context, id ids.ID128, kind OpKind, extent Extent, buf []byte, flags OpFlags) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[id]
	if !ok {
		return nil, storageerr.New(storageerr.KindNotFound, "fake.Op", id.String(), nil)
	}
	end := extent.Offset + extent.Length
	switch kind {
	case OpWrite:
		if int64(len(data)) < end {
			grown := make([]byte, end)
			copy(grown, data)
			data = grown
		}
		copy(data[extent.Offset:end], buf)
		f.objects[id] = data
		return nil, nil
	default: // OpRead
		out := make([]byte, extent.Length)
		if int64(len(data)) > extent.Offset {
			n := copy(out, data[extent.Offset:minI64(end, int64(len(data)))])
			_ = n
		}
		return out, nil
	}
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// --- LayoutCatalog ---

func (f *Fake) FindByObjSize(ctx context.Context, size int64) (uint32, error) {
	if size <= 4<<20 {
		return 1, nil
	}
	return 2, nil
}

func (f *Fake) UnitSize(ctx context.Context, layoutID uint32) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.catalog[layoutID]
	if !ok {
		return 0, storageerr.New(storageerr.KindInvalidArgument, "fake.UnitSize", "", nil)
	}
	return l.UnitSize, nil
}

func (f *Fake) Describe(ctx context.Context, layoutID uint32) (Layout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.catalog[layoutID]
	if !ok {
		return Layout{}, storageerr.New(storageerr.KindInvalidArgument, "fake.Describe", "", nil)
	}
	return l, nil
}

func (f *Fake) Get(ctx context.Context, objID ids.ID128) (Layout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.layouts[objID]
	if !ok {
		return Layout{}, storageerr.New(storageerr.KindNotFound, "fake.Get", objID.String(), nil)
	}
	return l, nil
}

func (f *Fake) Set(ctx context.Context, objID ids.ID128, layout Layout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.layouts[objID] = layout
	return nil
}
