// Package catalog implements the Catalog (C4): the schema of global and
// per-entity indices, record encodings, and bucket/user statistics
// accounting, per spec.md §3 and §4.4.
package catalog

import (
	"context"
	"time"

	"github.com/objectgw/sal/internal/cache"
	"github.com/objectgw/sal/internal/index"
	"github.com/objectgw/sal/internal/logger"
	"github.com/objectgw/sal/internal/storageerr"
)

// BucketEntry is the value stored in "user-info.<user-id>" (spec.md §3.3):
// one bucket a user owns.
type BucketEntry struct {
	Bucket string    `json:"bucket"`
	Size   int64     `json:"size"`
	CTime  time.Time `json:"ctime"`
}

func EncodeBucketEntry(e BucketEntry) ([]byte, error) {
	return Encode(1, 1, e)
}

func DecodeBucketEntry(data []byte) (BucketEntry, error) {
	var e BucketEntry
	err := Decode(data, 1, &e)
	return e, err
}

// AccessKeyRecord is the value stored in "access-keys" (spec.md §3.2).
type AccessKeyRecord struct {
	UserID string `json:"user_id"`
	Secret string `json:"secret"`
}

func EncodeAccessKeyRecord(r AccessKeyRecord) ([]byte, error) {
	return Encode(1, 1, r)
}

func DecodeAccessKeyRecord(data []byte) (AccessKeyRecord, error) {
	var r AccessKeyRecord
	err := Decode(data, 1, &r)
	return r, err
}

// Catalog is the schema-aware facade over the Index Gateway (C1), with
// the Metadata Cache (C3) applied in front of every GET/PUT it performs.
type Catalog struct {
	idx    *index.Gateway
	caches *cache.Set
}

// New constructs a Catalog.
func New(idx *index.Gateway, caches *cache.Set) *Catalog {
	return &Catalog{idx: idx, caches: caches}
}

// Bootstrap creates the global, fixed-ID indices (spec.md §3.2).
func (c *Catalog) Bootstrap(ctx context.Context) error {
	for _, name := range GlobalIndices {
		if err := c.idx.Ensure(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureBucketIndices creates the per-bucket indices create_bucket needs:
// the bucket's object directory and its two multipart indices (spec.md
// §3.7 BucketRecord lifecycle). The empty stats header is written by
// CreateBucket, not here.
func (c *Catalog) EnsureBucketIndices(ctx context.Context, tenantBucket string) error {
	for _, name := range []string{
		BucketIndex(tenantBucket),
		MultipartsInProgressIndex(tenantBucket),
		MultipartsIndex(tenantBucket),
	} {
		if err := c.idx.Ensure(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// --- Users ---

func (c *Catalog) GetUser(ctx context.Context, userID string) (UserRecord, error) {
	key := []byte(userID)
	if e, ok := c.caches.Users.Get(IndexUsers, key); ok {
		return DecodeUserRecord(e.Value)
	}
	v, err := c.idx.Get(ctx, IndexUsers, key)
	if err != nil {
		return UserRecord{}, err
	}
	c.caches.Users.Put(IndexUsers, key, cache.Entry{Value: v, MTime: time.Now()})
	return DecodeUserRecord(v)
}

func (c *Catalog) PutUser(ctx context.Context, r UserRecord, overwrite bool) error {
	v, err := EncodeUserRecord(r)
	if err != nil {
		return err
	}
	key := []byte(r.UserID)
	if err := c.idx.Put(ctx, IndexUsers, key, v, overwrite); err != nil {
		return err
	}
	c.caches.Users.Put(IndexUsers, key, cache.Entry{Value: v, MTime: time.Now()})
	return nil
}

// StoreUser performs the optimistic version check spec.md §5 describes:
// if expectedVer is non-zero, the existing record's version must match or
// VersionConflict is returned (the source surfaces ECANCELED; this core
// uses the shared taxonomy's VersionConflict, spec.md §7).
func (c *Catalog) StoreUser(ctx context.Context, r UserRecord, expectedVer uint64) error {
	if expectedVer != 0 {
		existing, err := c.GetUser(ctx, r.UserID)
		if err != nil && storageerr.KindOf(err) != storageerr.KindNotFound {
			return err
		}
		if err == nil && existing.Version.Ver != expectedVer {
			return storageerr.New(storageerr.KindVersionConflict, "catalog.StoreUser", r.UserID, nil)
		}
	}
	r.Version.Ver++
	return c.PutUser(ctx, r, true)
}

// CreateUser stores a new UserRecord and wires its access-key/email
// lookups into the global access-keys/emails indices (spec.md §3.2: the
// two indices are populated by store_user alongside the user record).
func (c *Catalog) CreateUser(ctx context.Context, r UserRecord, overwrite bool) error {
	if err := c.PutUser(ctx, r, overwrite); err != nil {
		return err
	}
	if r.AccessKey != "" {
		if err := c.PutAccessKey(ctx, r.AccessKey, AccessKeyRecord{UserID: r.UserID, Secret: r.Secret}); err != nil {
			return err
		}
	}
	if r.Email != "" {
		if err := c.PutEmail(ctx, r.Email, r.UserID); err != nil {
			return err
		}
	}
	return nil
}

// PutAccessKey writes an access-key -> {user-id, secret} mapping into the
// "access-keys" global index (spec.md §3.2).
func (c *Catalog) PutAccessKey(ctx context.Context, accessKey string, r AccessKeyRecord) error {
	v, err := EncodeAccessKeyRecord(r)
	if err != nil {
		return err
	}
	return c.idx.Put(ctx, IndexAccessKeys, []byte(accessKey), v, true)
}

// GetUserByAccessKey resolves an access-key to its owning user (spec.md
// §6.2 "lookup by access-key/email").
func (c *Catalog) GetUserByAccessKey(ctx context.Context, accessKey string) (AccessKeyRecord, error) {
	v, err := c.idx.Get(ctx, IndexAccessKeys, []byte(accessKey))
	if err != nil {
		return AccessKeyRecord{}, err
	}
	return DecodeAccessKeyRecord(v)
}

// DelAccessKey removes an access-key -> user mapping.
func (c *Catalog) DelAccessKey(ctx context.Context, accessKey string) error {
	if accessKey == "" {
		return nil
	}
	err := c.idx.Del(ctx, IndexAccessKeys, []byte(accessKey))
	if err != nil && storageerr.KindOf(err) == storageerr.KindNotFound {
		return nil
	}
	return err
}

// PutEmail writes an email -> user-id mapping into the "emails" global
// index (spec.md §3.2).
func (c *Catalog) PutEmail(ctx context.Context, email, userID string) error {
	return c.idx.Put(ctx, IndexEmails, []byte(email), []byte(userID), true)
}

// GetUserByEmail resolves an email to its owning user-id (spec.md §6.2
// "lookup by access-key/email").
func (c *Catalog) GetUserByEmail(ctx context.Context, email string) (string, error) {
	v, err := c.idx.Get(ctx, IndexEmails, []byte(email))
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// DelEmail removes an email -> user-id mapping.
func (c *Catalog) DelEmail(ctx context.Context, email string) error {
	if email == "" {
		return nil
	}
	err := c.idx.Del(ctx, IndexEmails, []byte(email))
	if err != nil && storageerr.KindOf(err) == storageerr.KindNotFound {
		return nil
	}
	return err
}

// RemoveUser implements spec.md §3.7's remove_user lifecycle: drop the
// user record, its per-entity user-info/user-stats indices, and its
// access-key/email mappings. The user record is fetched first so its
// AccessKey/Email fields are known; a NotFound on the user record itself
// is still propagated (removing a user that doesn't exist is an error),
// but every subsequent drop is best-effort so a partially-populated user
// (e.g. no email on file) doesn't abort the whole removal.
func (c *Catalog) RemoveUser(ctx context.Context, userID string) error {
	r, err := c.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := c.idx.Del(ctx, IndexUsers, []byte(userID)); err != nil {
		return err
	}
	c.caches.Users.InvalidateRemove(IndexUsers, []byte(userID))

	logger.LogIf(ctx, c.DelAccessKey(ctx, r.AccessKey))
	logger.LogIf(ctx, c.DelEmail(ctx, r.Email))
	logger.LogIf(ctx, c.idx.Drop(ctx, UserInfoIndex(userID)))
	logger.LogIf(ctx, c.idx.Drop(ctx, UserStatsIndex(userID)))
	return nil
}

// --- Buckets ---

func (c *Catalog) GetBucket(ctx context.Context, tenantBucket string) (BucketRecord, error) {
	key := []byte(tenantBucket)
	if e, ok := c.caches.BucketInstances.Get(IndexBucketInstances, key); ok {
		return DecodeBucketRecord(e.Value)
	}
	v, err := c.idx.Get(ctx, IndexBucketInstances, key)
	if err != nil {
		return BucketRecord{}, err
	}
	c.caches.BucketInstances.Put(IndexBucketInstances, key, cache.Entry{Value: v, MTime: time.Now()})
	return DecodeBucketRecord(v)
}

func (c *Catalog) PutBucket(ctx context.Context, r BucketRecord, overwrite bool) error {
	v, err := EncodeBucketRecord(r)
	if err != nil {
		return err
	}
	key := []byte(TenantBucket(r.Tenant, r.Bucket))
	if err := c.idx.Put(ctx, IndexBucketInstances, key, v, overwrite); err != nil {
		return err
	}
	c.caches.BucketInstances.Put(IndexBucketInstances, key, cache.Entry{Value: v, MTime: time.Now()})
	return nil
}

// CreateBucket implements spec.md §3.7's create_bucket lifecycle: store
// the BucketRecord, create its bucket-index and multipart indices plus
// an empty stats header (spec.md §3.7), and register a BucketEntry under
// the owner's user-info index (spec.md §3.3).
func (c *Catalog) CreateBucket(ctx context.Context, r BucketRecord) error {
	if err := c.PutBucket(ctx, r, false); err != nil {
		return err
	}
	tb := TenantBucket(r.Tenant, r.Bucket)
	if err := c.EnsureBucketIndices(ctx, tb); err != nil {
		return err
	}

	if err := c.idx.Ensure(ctx, UserStatsIndex(r.OwnerID)); err != nil {
		return err
	}
	hdr, err := EncodeBucketHeader(NewBucketHeader())
	if err != nil {
		return err
	}
	if err := c.idx.Put(ctx, UserStatsIndex(r.OwnerID), []byte(r.Bucket), hdr, true); err != nil {
		return err
	}

	if err := c.idx.Ensure(ctx, UserInfoIndex(r.OwnerID)); err != nil {
		return err
	}
	entry, err := EncodeBucketEntry(BucketEntry{Bucket: r.Bucket, CTime: time.Now()})
	if err != nil {
		return err
	}
	return c.idx.Put(ctx, UserInfoIndex(r.OwnerID), []byte(r.Bucket), entry, true)
}

// RemoveBucket implements spec.md §3.7: a BucketRecord "is destroyed by
// remove_bucket after all contained objects are deleted or explicitly
// purged" — enforced here by rejecting with storageerr.KindNotEmpty
// (spec.md §7) if the bucket's object index still holds any entry.
// Callers that need to tear down in-progress multipart uploads first
// should use multipart.Engine.AbortAll (spec.md §6.2 "multipart-...
// abort-all") before calling this.
func (c *Catalog) RemoveBucket(ctx context.Context, r BucketRecord) error {
	tb := TenantBucket(r.Tenant, r.Bucket)
	entries, _, err := c.NextObjectRecords(ctx, tb, index.NextOptions{Max: 1})
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return storageerr.New(storageerr.KindNotEmpty, "catalog.RemoveBucket", tb, nil)
	}

	if err := c.idx.Del(ctx, IndexBucketInstances, []byte(tb)); err != nil {
		return err
	}
	c.caches.BucketInstances.InvalidateRemove(IndexBucketInstances, []byte(tb))

	logger.LogIf(ctx, c.idx.Drop(ctx, BucketIndex(tb)))
	logger.LogIf(ctx, c.idx.Drop(ctx, MultipartsInProgressIndex(tb)))
	logger.LogIf(ctx, c.idx.Drop(ctx, MultipartsIndex(tb)))
	logger.LogIf(ctx, c.idx.Del(ctx, UserStatsIndex(r.OwnerID), []byte(r.Bucket)))
	logger.LogIf(ctx, c.idx.Del(ctx, UserInfoIndex(r.OwnerID), []byte(r.Bucket)))
	return nil
}

// ListBuckets enumerates an owner's buckets via NEXT on their
// user-info.<owner> index (spec.md §3.3, §6.2 "Bucket ... list").
func (c *Catalog) ListBuckets(ctx context.Context, ownerID string, opts index.NextOptions) ([]BucketEntry, bool, error) {
	entries, truncated, err := c.idx.Next(ctx, UserInfoIndex(ownerID), opts)
	if err != nil {
		if storageerr.KindOf(err) == storageerr.KindNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	out := make([]BucketEntry, 0, len(entries))
	for _, e := range entries {
		if e.Value == nil {
			continue // directory pseudo-entry; bucket names never nest
		}
		be, err := DecodeBucketEntry(e.Value)
		if err != nil {
			return nil, false, err
		}
		out = append(out, be)
	}
	return out, truncated, nil
}

// --- Object records (bucket index) ---

func (c *Catalog) GetObjectRecord(ctx context.Context, tenantBucket string, key []byte) (ObjectMetaOrDir, error) {
	idxName := BucketIndex(tenantBucket)
	if e, ok := c.caches.Objects.Get(idxName, key); ok {
		return DecodeObjectRecord(e.Value)
	}
	v, err := c.idx.Get(ctx, idxName, key)
	if err != nil {
		return ObjectMetaOrDir{}, err
	}
	c.caches.Objects.Put(idxName, key, cache.Entry{Value: v, MTime: time.Now()})
	return DecodeObjectRecord(v)
}

func (c *Catalog) PutObjectRecord(ctx context.Context, tenantBucket string, key []byte, r ObjectMetaOrDir, overwrite bool) error {
	v, err := EncodeObjectRecord(r)
	if err != nil {
		return err
	}
	idxName := BucketIndex(tenantBucket)
	if err := c.idx.Put(ctx, idxName, key, v, overwrite); err != nil {
		return err
	}
	c.caches.Objects.Put(idxName, key, cache.Entry{Value: v, MTime: time.Now()})
	return nil
}

func (c *Catalog) DelObjectRecord(ctx context.Context, tenantBucket string, key []byte) error {
	idxName := BucketIndex(tenantBucket)
	if err := c.idx.Del(ctx, idxName, key); err != nil {
		return err
	}
	c.caches.Objects.InvalidateRemove(idxName, key)
	return nil
}

// NextObjectRecords is a thin pass-through to the Index Gateway's Next
// for the bucket index, used by PUT's predecessor-reconciliation
// (spec.md §4.5.2) and by GET/LIST (§4.5.4, §4.5.5).
func (c *Catalog) NextObjectRecords(ctx context.Context, tenantBucket string, opts index.NextOptions) ([]index.Entry, bool, error) {
	return c.idx.Next(ctx, BucketIndex(tenantBucket), opts)
}
