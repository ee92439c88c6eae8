package multipart

import (
	"context"
	"strings"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/index"
)

// multipartKeyPrefix is the leading part of every in-progress upload key
// (catalog.MultipartMetaKey).
const multipartKeyPrefix = "_multipart_"

// UploadHandle is one entry of a ListUploads result: just enough to let
// a caller address a specific upload-id for subsequent UploadPart/
// Complete/Abort calls (spec.md §4.6.7).
type UploadHandle struct {
	Name     string
	UploadID string
	Owner    string
}

// ListUploadsInput is the request shape for ListUploads.
type ListUploadsInput struct {
	TenantBucket string
	Prefix       string
	Delim        string
	Marker       []byte
	Max          int
}

// ListUploadsResult is the response shape for ListUploads.
type ListUploadsResult struct {
	Uploads        []UploadHandle
	CommonPrefixes []string
	Truncated      bool
	NextMarker     []byte
}

// ListUploads implements spec.md §4.6.7: NEXT on multiparts.in-progress
// with prefix=object-prefix (applied after the "_multipart_" key prefix
// that every in-progress key carries) and delim, returning upload handles
// for client-side pagination. An empty Delim lists without grouping.
func (e *Engine) ListUploads(ctx context.Context, in ListUploadsInput) (ListUploadsResult, error) {
	prefix := []byte(multipartKeyPrefix + in.Prefix)
	var delim []byte
	if in.Delim != "" {
		delim = []byte(in.Delim)
	}
	cursor := in.Marker
	if cursor == nil {
		cursor = prefix
	}
	entries, truncated, err := e.Catalog.NextInProgressUploads(ctx, in.TenantBucket, index.NextOptions{
		Cursor: cursor,
		Prefix: prefix,
		Delim:  delim,
		Max:    in.Max,
	})
	if err != nil {
		return ListUploadsResult{}, err
	}

	var res ListUploadsResult
	for _, kv := range entries {
		if kv.Value == nil {
			res.CommonPrefixes = append(res.CommonPrefixes, strings.TrimPrefix(string(kv.Key), multipartKeyPrefix))
			continue
		}
		u, err := catalog.DecodeInProgressUpload(kv.Value)
		if err != nil {
			return ListUploadsResult{}, err
		}
		res.Uploads = append(res.Uploads, UploadHandle{Name: u.Object, UploadID: u.UploadID, Owner: u.Owner})
	}
	res.Truncated = truncated
	if truncated && len(entries) > 0 {
		res.NextMarker = entries[len(entries)-1].Key
	}
	return res, nil
}
