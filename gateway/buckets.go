package gateway

import (
	"net/http"
	"strconv"

	"github.com/sitano/s3-scylla/engine"
	"github.com/sitano/s3-scylla/s3compat"
)

// listBuckets serves GET / (spec.md §6).
func (gw *Gateway) listBuckets(w http.ResponseWriter, r *http.Request) error {
	buckets, err := engine.ListAllBuckets(r.Context(), gw.Sess)
	if err != nil {
		writeErr(w, r, "", "", err)
		return err
	}
	result := s3compat.NewListAllMyBucketsResult()
	result.Owner = s3compat.Owner{ID: "s3gw", DisplayName: "s3gw"}
	for _, b := range buckets {
		result.Buckets = append(result.Buckets, &s3compat.BucketEntry{
			Name: b.Name, CreationDate: s3compat.FormatTime(b.CreationDate),
		})
	}
	w.Header().Set(headerContentType, contentTypeXML)
	w.Write(s3compat.MustMarshal(result))
	return nil
}

// createBucket serves PUT /<bucket> (spec.md §4.6, §9: 400 not 409 on
// collision).
func (gw *Gateway) createBucket(w http.ResponseWriter, r *http.Request, bucket string) error {
	if _, err := engine.CreateBucket(r.Context(), gw.Sess, bucket); err != nil {
		writeErr(w, r, bucket, "", err)
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

// listKeys serves GET /<bucket> (spec.md §4.4 listing engine), reading
// prefix/delimiter/marker/max-keys from the query string.
func (gw *Gateway) listKeys(w http.ResponseWriter, r *http.Request, bucket string) error {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	delimiter := q.Get("delimiter")
	marker := q.Get("marker")
	maxKeys := 1000
	if v := q.Get("max-keys"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxKeys = n
		}
	}

	matches, commonPrefixes, isTruncated, nextMarker, err := engine.List(r.Context(), gw.Sess, bucket, marker, prefix, maxKeys, delimiter)
	if err != nil {
		writeErr(w, r, bucket, "", err)
		return err
	}

	result := s3compat.NewListBucketResult()
	result.Name = bucket
	result.Prefix = prefix
	result.Marker = marker
	result.NextMarker = nextMarker
	result.Delimiter = delimiter
	result.MaxKeys = maxKeys
	result.IsTruncated = isTruncated
	for _, m := range matches {
		result.Contents = append(result.Contents, &s3compat.ObjInfo{
			Key: m.Key, Size: m.Size, ETag: quote(m.ETag),
			LastModified: s3compat.FormatTime(m.LastModified), Class: "STANDARD",
		})
	}
	for _, cp := range commonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, &s3compat.Prefix{Prefix: cp})
	}
	w.Header().Set(headerContentType, contentTypeXML)
	w.Write(s3compat.MustMarshal(result))
	return nil
}
