package catalog

import "fmt"

// Global indices with fixed IDs, created at bootstrap (spec.md §3.2).
const (
	IndexUsers           = "users"
	IndexBucketInstances = "bucket-instances"
	IndexBucketHeaders   = "bucket-headers"
	IndexAccessKeys      = "access-keys"
	IndexEmails          = "emails"
)

// GlobalIndices lists every index Bootstrap must create.
var GlobalIndices = []string{
	IndexUsers,
	IndexBucketInstances,
	IndexBucketHeaders,
	IndexAccessKeys,
	IndexEmails,
}

// TenantBucket joins tenant and bucket the way spec.md §3.2 describes the
// bucket-instances key: "<tenant>$<bucket>" or "<bucket>" if tenant is
// empty.
func TenantBucket(tenant, bucket string) string {
	if tenant == "" {
		return bucket
	}
	return tenant + "$" + bucket
}

// Per-entity indices, created on demand (spec.md §3.3).

// UserInfoIndex is the per-user index of owned buckets.
func UserInfoIndex(userID string) string {
	return fmt.Sprintf("user-info.%s", userID)
}

// UserStatsIndex is the per-user index of per-bucket statistics headers.
func UserStatsIndex(userID string) string {
	return fmt.Sprintf("user-stats.%s", userID)
}

// BucketIndex is a bucket's object directory.
func BucketIndex(tenantBucket string) string {
	return fmt.Sprintf("bucket-index.%s", tenantBucket)
}

// MultipartsInProgressIndex tracks in-progress uploads for a bucket.
func MultipartsInProgressIndex(tenantBucket string) string {
	return fmt.Sprintf("bucket.%s.multiparts.in-progress", tenantBucket)
}

// MultipartsIndex tracks per-part records for a bucket.
func MultipartsIndex(tenantBucket string) string {
	return fmt.Sprintf("bucket.%s.multiparts", tenantBucket)
}

// MultipartMetaKey is the in-progress-index key for one upload, per
// spec.md §4.6.1 step 2: "_multipart_<name>.<upload-id>".
func MultipartMetaKey(name, uploadID string) []byte {
	return []byte(fmt.Sprintf("_multipart_%s.%s", name, uploadID))
}

// MultipartPartKey is the multiparts-index key for one part record, per
// spec.md §4.6.2 step 4: "<name>.<upload-id>.<num-zero-padded-8>".
func MultipartPartKey(name, uploadID string, num int) []byte {
	return []byte(fmt.Sprintf("%s.%s.%08d", name, uploadID, num))
}

// MultipartPartPrefix is the common prefix of every part key for one
// upload, used to enumerate parts in ascending order via NEXT.
func MultipartPartPrefix(name, uploadID string) []byte {
	return []byte(fmt.Sprintf("%s.%s.", name, uploadID))
}
