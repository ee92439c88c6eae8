package engine

import (
	"bytes"
	"context"

	"github.com/objectgw/sal/internal/catalog"
	"github.com/objectgw/sal/internal/index"
)

// listBatch is the internal page size ListObjects requests from the
// Index Gateway per round, independent of the caller's max (spec.md §4.1
// "batching is the backend's own choice"; the engine just needs enough
// per round to make progress on pending-null positioning).
const listBatch = 256

// ListInput is the request shape for ListObjects (spec.md §4.5.5).
type ListInput struct {
	TenantBucket string
	Prefix       string
	Marker       string
	Delim        string
	Max          int
	ListVersions bool
	// MarkerInstance implements the tie-break of spec.md §4.5.5 step 4:
	// when resuming a paginated, list_versions listing mid-name, filter
	// out versions strictly older than this instance. The value "null"
	// only suppresses the null-version record; versioned records are not
	// filtered in that case.
	MarkerInstance string
}

// ListEntry is one emitted (non-common-prefix) result row.
type ListEntry struct {
	Key    []byte
	Record catalog.ObjectMetaOrDir
}

// ListResult is ListObjects's return shape.
type ListResult struct {
	Entries        []ListEntry
	CommonPrefixes []string
	Truncated      bool
	NextMarker     []byte
}

// ListObjects implements spec.md §4.5.5.
func (e *Engine) ListObjects(ctx context.Context, in ListInput) (ListResult, error) {
	max := in.Max
	if max <= 0 {
		max = 1000
	}

	cursor := seedCursor(in.Marker, in.Delim)
	var prefix []byte
	if in.Prefix != "" {
		prefix = []byte(in.Prefix)
	}
	var delim []byte
	if in.Delim != "" {
		delim = []byte(in.Delim)
	}

	var (
		result  ListResult
		pending *ListEntry
	)

	emit := func(entry ListEntry) bool {
		result.Entries = append(result.Entries, entry)
		if len(result.Entries) >= max {
			result.Truncated = true
			result.NextMarker = entry.Key
			return true
		}
		return false
	}

	// flushPending emits the held-back null-version entry, positioned
	// correctly by mtime relative to whatever subsequent record just
	// triggered the flush (spec.md §4.5.5 step 2).
	flushPending := func() bool {
		if pending == nil {
			return false
		}
		p := *pending
		pending = nil
		return emit(p)
	}

	for {
		entries, truncated, err := e.Catalog.NextObjectRecords(ctx, in.TenantBucket, index.NextOptions{
			Cursor: cursor,
			Max:    listBatch,
			Prefix: prefix,
			Delim:  delim,
		})
		if err != nil {
			return ListResult{}, err
		}
		if len(entries) == 0 {
			flushPending()
			return result, nil
		}

		for _, kv := range entries {
			cursor = append(append([]byte{}, kv.Key...), 0x00)

			if kv.Value == nil {
				if flushPending() {
					return result, nil
				}
				result.CommonPrefixes = append(result.CommonPrefixes, string(kv.Key))
				if len(result.CommonPrefixes)+len(result.Entries) >= max {
					result.Truncated = true
					result.NextMarker = kv.Key
					return result, nil
				}
				continue
			}

			rec, err := catalog.DecodeObjectRecord(kv.Value)
			if err != nil {
				continue
			}

			if pending != nil && (rec.Name != pending.Record.Name || rec.MTime.Before(pending.Record.MTime)) {
				if flushPending() {
					return result, nil
				}
			}

			if rec.Instance == "" {
				if !in.ListVersions && rec.IsDeleteMarker() {
					continue
				}
				if in.MarkerInstance == "null" {
					// Already emitted on the page that produced this
					// marker; resuming a listing never re-considers the
					// null-version as a pending candidate.
					continue
				}
				k := append([]byte{}, kv.Key...)
				pending = &ListEntry{Key: k, Record: rec}
				continue
			}

			if !in.ListVersions && !rec.IsVisible() {
				continue
			}
			// Instance strings encode an inverted timestamp, so newest
			// sorts lexicographically smallest (spec.md §3.5); "strictly
			// older than the marker" is therefore instance > marker.
			if in.MarkerInstance != "" && in.MarkerInstance != "null" && rec.Instance > in.MarkerInstance {
				continue
			}
			if emit(ListEntry{Key: append([]byte{}, kv.Key...), Record: rec}) {
				return result, nil
			}
		}

		if !truncated {
			flushPending()
			return result, nil
		}
	}
}

// seedCursor implements spec.md §4.5.5 step 1: seed NEXT with the
// marker's name, bumped past any common-prefix pseudo-entry when the
// marker itself ends in the delimiter.
func seedCursor(marker, delim string) []byte {
	if marker == "" {
		return nil
	}
	k := []byte(marker)
	if delim != "" && bytes.HasSuffix(k, []byte(delim)) {
		k = append(k, 0xFF)
	}
	return k
}
