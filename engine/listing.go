package engine

import (
	"context"
	"strings"
	"time"
)

// ListEntry is one row surfaced by List, carrying just enough of the
// cached object-header metadata to render an S3 Contents element.
type ListEntry struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

const selectObjectsBaseCQL = `SELECT key, metadata_json FROM objects WHERE bucket_id = ?`

// prefixUpperBound returns the smallest string greater than every string
// with the given prefix, used to bound a clustering-key range scan. The
// second return is false when prefix is empty or made entirely of 0xff
// bytes, in which case no upper bound is needed.
func prefixUpperBound(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

// List implements the listing engine (spec.md §4.4): prefix filtering,
// delimiter collapsing into CommonPrefixes, and a max_keys cutoff. Unlike
// the source this resolution of spec.md §9's open question actually
// applies marker (resume strictly after the given key) and reports
// IsTruncated honestly.
func List(ctx context.Context, sess Session, bucketName, marker, prefix string, maxKeys int, delimiter string) (matches []ListEntry, commonPrefixes []string, isTruncated bool, nextMarker string, err error) {
	bucket, err := GetBucket(ctx, sess, bucketName)
	if err != nil {
		return nil, nil, false, "", err
	}
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	stmt := selectObjectsBaseCQL
	args := []interface{}{bucket.ID}
	switch {
	case marker != "":
		stmt += " AND key > ?"
		args = append(args, marker)
	case prefix != "":
		stmt += " AND key >= ?"
		args = append(args, prefix)
	}
	if upper, ok := prefixUpperBound(prefix); ok {
		stmt += " AND key < ?"
		args = append(args, upper)
	}
	stmt += " LIMIT ?"
	args = append(args, int64(maxKeys+1))

	iter := sess.Query(stmt, args...).WithContext(ctx).Iter()

	collapse := delimiter != "" && (prefix == "" || strings.HasSuffix(prefix, delimiter))
	seenPrefix := make(map[string]bool)

	rowCount := 0
	var lastKey string
	for {
		var key, meta string
		if !iter.Scan(&key, &meta) {
			break
		}
		rowCount++
		if rowCount > maxKeys {
			isTruncated = true
			break
		}
		lastKey = key
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}

		if collapse {
			suffix := key[len(prefix):]
			if idx := strings.Index(suffix, delimiter); idx >= 0 {
				cp := prefix + suffix[:idx+len(delimiter)]
				if !seenPrefix[cp] {
					seenPrefix[cp] = true
					commonPrefixes = append(commonPrefixes, cp)
				}
				continue
			}
		}

		var vm versionMetadata
		if meta != "" {
			_ = json.UnmarshalFromString(meta, &vm)
		}
		matches = append(matches, ListEntry{
			Key: key, Size: vm.Size, ETag: vm.Digest, LastModified: vm.CreationDate,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, nil, false, "", err
	}
	if isTruncated {
		nextMarker = lastKey
	}
	return matches, commonPrefixes, isTruncated, nextMarker, nil
}
