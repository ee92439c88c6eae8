package catalog

import (
	"context"

	"github.com/objectgw/sal/internal/index"
)

// Multipart records (spec.md §3.3 "bucket.<tenant-bucket>.multiparts" and
// "...multiparts.in-progress") are not covered by the Metadata Cache
// (spec.md §4.3 "Coverage" names only objects/users/bucket-instances), so
// these pass straight through to the Index Gateway.

func (c *Catalog) GetInProgressUpload(ctx context.Context, tenantBucket string, key []byte) (InProgressUpload, error) {
	v, err := c.idx.Get(ctx, MultipartsInProgressIndex(tenantBucket), key)
	if err != nil {
		return InProgressUpload{}, err
	}
	return DecodeInProgressUpload(v)
}

func (c *Catalog) PutInProgressUpload(ctx context.Context, tenantBucket string, key []byte, u InProgressUpload, overwrite bool) error {
	v, err := EncodeInProgressUpload(u)
	if err != nil {
		return err
	}
	return c.idx.Put(ctx, MultipartsInProgressIndex(tenantBucket), key, v, overwrite)
}

func (c *Catalog) DelInProgressUpload(ctx context.Context, tenantBucket string, key []byte) error {
	return c.idx.Del(ctx, MultipartsInProgressIndex(tenantBucket), key)
}

func (c *Catalog) NextInProgressUploads(ctx context.Context, tenantBucket string, opts index.NextOptions) ([]index.Entry, bool, error) {
	return c.idx.Next(ctx, MultipartsInProgressIndex(tenantBucket), opts)
}

func (c *Catalog) GetPartRecord(ctx context.Context, tenantBucket string, key []byte) (PartRecord, error) {
	v, err := c.idx.Get(ctx, MultipartsIndex(tenantBucket), key)
	if err != nil {
		return PartRecord{}, err
	}
	return DecodePartRecord(v)
}

func (c *Catalog) PutPartRecord(ctx context.Context, tenantBucket string, key []byte, r PartRecord, overwrite bool) error {
	v, err := EncodePartRecord(r)
	if err != nil {
		return err
	}
	return c.idx.Put(ctx, MultipartsIndex(tenantBucket), key, v, overwrite)
}

func (c *Catalog) DelPartRecord(ctx context.Context, tenantBucket string, key []byte) error {
	return c.idx.Del(ctx, MultipartsIndex(tenantBucket), key)
}

func (c *Catalog) NextPartRecords(ctx context.Context, tenantBucket string, opts index.NextOptions) ([]index.Entry, bool, error) {
	return c.idx.Next(ctx, MultipartsIndex(tenantBucket), opts)
}
