package catalog

import (
	"time"

	"github.com/objectgw/sal/internal/object"
)

// schema/compat versions for each record type (spec.md §6.3).
const (
	userRecordStructVersion   = 1
	userRecordCompatVersion   = 1
	bucketRecordStructVersion = 1
	bucketRecordCompatVersion = 1
	objectRecordStructVersion = 1
	objectRecordCompatVersion = 1
	partRecordStructVersion   = 1
	partRecordCompatVersion   = 1
	headerStructVersion       = 1
	headerCompatVersion       = 1
)

// RecordVersion is the (ver, tag) optimistic-concurrency pair spec.md
// §3.4 attaches to UserRecord and BucketRecord.
type RecordVersion struct {
	Ver uint64 `json:"ver"`
	Tag string `json:"tag"`
}

// UserRecord is the value stored in the "users" index (spec.md §3.4).
// AccessKey/Secret/Email are carried on the record (rather than tracked
// separately) so RemoveUser knows which access-keys/emails entries to
// drop alongside it (spec.md §3.7).
type UserRecord struct {
	UserID     string            `json:"user_id"`
	Info       []byte            `json:"info"`
	Version    RecordVersion     `json:"version"`
	Attributes map[string]string `json:"attributes"`
	AccessKey  string            `json:"access_key,omitempty"`
	Secret     string            `json:"secret,omitempty"`
	Email      string            `json:"email,omitempty"`
}

func EncodeUserRecord(r UserRecord) ([]byte, error) {
	return Encode(userRecordStructVersion, userRecordCompatVersion, r)
}

func DecodeUserRecord(data []byte) (UserRecord, error) {
	var r UserRecord
	err := Decode(data, userRecordCompatVersion, &r)
	return r, err
}

// BucketRecord is the value stored in the "bucket-instances" index
// (spec.md §3.2, §3.4).
type BucketRecord struct {
	Tenant         string            `json:"tenant"`
	Bucket         string            `json:"bucket"`
	OwnerID        string            `json:"owner_id"`
	Info           []byte            `json:"info"`
	PlacementRule  string            `json:"placement_rule"`
	Attributes     map[string]string `json:"attributes"`
	MTime          time.Time         `json:"mtime"`
	Version        RecordVersion     `json:"version"`
	VersioningFlag VersioningFlag    `json:"versioning_flag"`
}

// VersioningFlag models a bucket's versioning state: unversioned,
// versioning-enabled, or versioning-suspended (flags contain VERSIONED
// but not ENABLED, per spec.md §4.5.3 "suspended" case).
type VersioningFlag uint8

const (
	VersioningUnversioned VersioningFlag = iota
	VersioningEnabled
	VersioningSuspended
)

func (v VersioningFlag) Versioned() bool {
	return v == VersioningEnabled || v == VersioningSuspended
}

func EncodeBucketRecord(r BucketRecord) ([]byte, error) {
	return Encode(bucketRecordStructVersion, bucketRecordCompatVersion, r)
}

func DecodeBucketRecord(data []byte) (BucketRecord, error) {
	var r BucketRecord
	err := Decode(data, bucketRecordCompatVersion, &r)
	return r, err
}

// Category distinguishes an ordinary object record from a multipart
// meta-object record (spec.md §3.4 DirEntry.category).
type Category uint8

const (
	CategoryMain Category = iota
	CategoryMultiMeta
)

// DirFlags are the DirEntry flag bits of spec.md §3.4.
type DirFlags uint8

const (
	FlagVersioned DirFlags = 1 << iota
	FlagCurrent
	FlagDeleteMarker
)

func (f DirFlags) Has(bit DirFlags) bool { return f&bit != 0 }

// DirEntry is the primary metadata of one (name, instance) pair, per
// spec.md §3.4.
type DirEntry struct {
	Name     string    `json:"name"`
	Instance string    `json:"instance"`
	MTime    time.Time `json:"mtime"`
	Size     int64     `json:"size"`
	ETag     string    `json:"etag"`
	Owner    string    `json:"owner"`
	Category Category  `json:"category"`
	Flags    DirFlags  `json:"flags"`
}

func (e DirEntry) IsVisible() bool {
	return e.Flags.Has(FlagCurrent) && !e.Flags.Has(FlagDeleteMarker)
}

func (e DirEntry) IsDeleteMarker() bool { return e.Flags.Has(FlagDeleteMarker) }

// ObjectRecord is the full value stored in a bucket-index entry: DirEntry
// plus user attributes (tags, content-type, etc.) plus ObjectMeta
// (spec.md §3.3 "bucket-index.<tenant-bucket>").
type ObjectRecord struct {
	Entry ObjectMetaOrDir `json:"entry"`
}

// ObjectMetaOrDir avoids import duplication: it embeds the DirEntry
// fields, free-form attributes, and the object.Meta byte-container
// descriptor in one record, matching how the bucket index actually
// stores "DirEntry + attrs + ObjectMeta" as spec.md §3.3 lists them.
type ObjectMetaOrDir struct {
	DirEntry
	Attrs      map[string]string `json:"attrs"`
	ObjectMeta object.Meta       `json:"object_meta"`
}

func EncodeObjectRecord(r ObjectMetaOrDir) ([]byte, error) {
	return Encode(objectRecordStructVersion, objectRecordCompatVersion, r)
}

func DecodeObjectRecord(data []byte) (ObjectMetaOrDir, error) {
	var r ObjectMetaOrDir
	err := Decode(data, objectRecordCompatVersion, &r)
	return r, err
}

// PartInfo is one multipart part's metadata (spec.md §3.4).
type PartInfo struct {
	Num            int       `json:"num"`
	ETag           string    `json:"etag"`
	Size           int64     `json:"size"`
	RoundedSize    int64     `json:"rounded_size"`
	AccountedSize  int64     `json:"accounted_size"`
	MTime          time.Time `json:"mtime"`
	CompressionAlg string    `json:"compression_alg,omitempty"`
}

// PartRecord is PartInfo + attrs + ObjectMeta, the value stored in
// "bucket.<tenant-bucket>.multiparts" (spec.md §3.3).
type PartRecord struct {
	Part       PartInfo          `json:"part"`
	Attrs      map[string]string `json:"attrs"`
	ObjectMeta object.Meta       `json:"object_meta"`
}

func EncodePartRecord(r PartRecord) ([]byte, error) {
	return Encode(partRecordStructVersion, partRecordCompatVersion, r)
}

func DecodePartRecord(data []byte) (PartRecord, error) {
	var r PartRecord
	err := Decode(data, partRecordCompatVersion, &r)
	return r, err
}

// InProgressUpload is the value stored in
// "bucket.<tenant-bucket>.multiparts.in-progress" (spec.md §3.3, §4.6.1).
type InProgressUpload struct {
	UploadID      string            `json:"upload_id"`
	Object        string            `json:"object"`
	Owner         string            `json:"owner"`
	PlacementRule string            `json:"placement_rule"`
	Tiered        bool              `json:"tiered"`
	ObjectMeta    object.Meta       `json:"object_meta"`
	Initial       DirEntry          `json:"initial"`
	Attrs         map[string]string `json:"attrs"`
	CTime         time.Time         `json:"ctime"`
}

func EncodeInProgressUpload(u InProgressUpload) ([]byte, error) {
	return Encode(objectRecordStructVersion, objectRecordCompatVersion, u)
}

func DecodeInProgressUpload(data []byte) (InProgressUpload, error) {
	var u InProgressUpload
	err := Decode(data, objectRecordCompatVersion, &u)
	return u, err
}

// CategoryStats is one category's accounting: count, total size, and the
// rounded/"actual" size the layout's unit rounding produces (spec.md
// §3.4 BucketHeader).
type CategoryStats struct {
	NumEntries int64 `json:"num_entries"`
	TotalSize  int64 `json:"total_size"`
	ActualSize int64 `json:"actual_size"`
}

// BucketHeader maps category -> CategoryStats (spec.md §3.4).
type BucketHeader struct {
	Categories map[Category]*CategoryStats `json:"categories"`
	// Histogram is populated only by the stats reconciliation scan
	// (SPEC_FULL.md §C.1); nil otherwise.
	Histogram *Histogram `json:"histogram,omitempty"`
}

func NewBucketHeader() BucketHeader {
	return BucketHeader{Categories: map[Category]*CategoryStats{}}
}

func (h BucketHeader) stat(cat Category) *CategoryStats {
	s, ok := h.Categories[cat]
	if !ok {
		s = &CategoryStats{}
		h.Categories[cat] = s
	}
	return s
}

// Add applies a +(size, roundedSize, +1) delta to cat.
func (h BucketHeader) Add(cat Category, size, roundedSize int64) {
	s := h.stat(cat)
	s.NumEntries++
	s.TotalSize += size
	s.ActualSize += roundedSize
}

// Sub applies a -(size, roundedSize, -1) delta to cat.
func (h BucketHeader) Sub(cat Category, size, roundedSize int64) {
	s := h.stat(cat)
	s.NumEntries--
	s.TotalSize -= size
	s.ActualSize -= roundedSize
}

// TotalSize sums TotalSize across every category.
func (h BucketHeader) TotalSize() int64 {
	var total int64
	for _, s := range h.Categories {
		total += s.TotalSize
	}
	return total
}

// TotalCount sums NumEntries across every category.
func (h BucketHeader) TotalCount() int64 {
	var total int64
	for _, s := range h.Categories {
		total += s.NumEntries
	}
	return total
}

func EncodeBucketHeader(h BucketHeader) ([]byte, error) {
	return Encode(headerStructVersion, headerCompatVersion, h)
}

func DecodeBucketHeader(data []byte) (BucketHeader, error) {
	var h BucketHeader
	err := Decode(data, headerCompatVersion, &h)
	if h.Categories == nil {
		h.Categories = map[Category]*CategoryStats{}
	}
	return h, err
}

// Histogram buckets object sizes and per-name version counts into the
// named intervals the stats reconciliation scan reports (SPEC_FULL.md
// §C.2).
type Histogram struct {
	SizeBuckets    map[string]int64 `json:"size_buckets"`
	VersionBuckets map[string]int64 `json:"version_buckets"`
}
