package gateway

import (
	"encoding/xml"
	"net/http"

	"github.com/sitano/s3-scylla/engine"
	"github.com/sitano/s3-scylla/s3compat"
)

// getObject serves GET /<bucket>/<key>, honoring an optional Range
// header (spec.md §6 "Range semantics").
func (gw *Gateway) getObject(w http.ResponseWriter, r *http.Request, bucket, key string) error {
	ctx := r.Context()
	item, err := engine.GetItem(ctx, gw.Sess, bucket, key)
	if err != nil {
		writeErr(w, r, bucket, key, err)
		return err
	}

	rng := parseRange(r.Header.Get(headerRange), item.Size)
	setHeadersFromItem(w.Header(), item)
	start, length := int64(0), item.Size
	if rng.has {
		start, length = rng.start, rng.end-rng.start+1
		w.Header().Set(headerContentRange, "bytes "+itoa(rng.start)+"-"+itoa(rng.end)+"/"+itoa(item.Size))
	}
	w.Header().Set(headerContentLength, itoa(length))
	if rng.has {
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	err = engine.ReadParts(ctx, gw.Sess, w, item.ObjectID, item.Version, start, length, item.ChunkSize, item.ChunksPerPartition)
	if err != nil {
		if gw.Metrics != nil {
			if _, ok := err.(*engine.ErrChunkMissing); ok {
				gw.Metrics.ChunkMiss()
			}
		}
		return err
	}
	return nil
}

// headObject serves HEAD /<bucket>/<key>: same header resolution as
// getObject without a body.
func (gw *Gateway) headObject(w http.ResponseWriter, r *http.Request, bucket, key string) error {
	item, err := engine.GetItem(r.Context(), gw.Sess, bucket, key)
	if err != nil {
		writeErr(w, r, bucket, key, err)
		return err
	}
	setHeadersFromItem(w.Header(), item)
	w.Header().Set(headerContentLength, itoa(item.Size))
	w.WriteHeader(http.StatusOK)
	return nil
}

// putObject serves PUT /<bucket>/<key> with no copy-source and no
// partNumber -- the simple-PUT pipeline (spec.md §4.3).
func (gw *Gateway) putObject(w http.ResponseWriter, r *http.Request, bucket, key string) error {
	size := r.ContentLength
	if size < 0 {
		size = 0
	}
	contentType := r.Header.Get(headerContentType)
	item, err := engine.StoreItem(r.Context(), gw.Sess, gw.Cfg, bucket, key, headersFromRequest(r), contentType, size, r.Body)
	if err != nil {
		writeErr(w, r, bucket, key, err)
		return err
	}
	w.Header().Set(headerETag, quote(item.Digest))
	w.WriteHeader(http.StatusOK)
	return nil
}

// deleteObject serves DELETE /<bucket>/<key> (spec.md §9: tombstones the
// object header only).
func (gw *Gateway) deleteObject(w http.ResponseWriter, r *http.Request, bucket, key string) error {
	if err := engine.DeleteItem(r.Context(), gw.Sess, bucket, key); err != nil {
		if !engine.IsNotFound(err) {
			writeErr(w, r, bucket, key, err)
			return err
		}
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// getACL answers GET /<bucket>/<key>?acl with a fixed full-control stub
// (spec.md §1 non-goal: ACL enforcement out of scope, response is fixed).
func (gw *Gateway) getACL(w http.ResponseWriter, r *http.Request, bucket, key string) {
	acl := &s3compat.AccessControlPolicy{Ns: "http://s3.amazonaws.com/doc/2006-03-01/"}
	acl.Owner = s3compat.Owner{ID: "s3gw", DisplayName: "s3gw"}
	grant := s3compat.Grant{Permission: "FULL_CONTROL"}
	grant.Grantee.Type = "CanonicalUser"
	grant.Grantee.ID = "s3gw"
	grant.Grantee.DisplayName = "s3gw"
	acl.AccessControlList.Grant = []s3compat.Grant{grant}
	w.Header().Set(headerContentType, contentTypeXML)
	w.Write(s3compat.MustMarshal(acl))
}

// bulkDelete serves POST /<bucket>?delete: per-key delete from a decoded
// XML body, collecting successes/errors into a DeleteResult (SPEC_FULL.md
// §4.7).
func (gw *Gateway) bulkDelete(w http.ResponseWriter, r *http.Request, bucket string) error {
	var req s3compat.DeleteObjectsRequest
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, bucket, "", err)
		return err
	}
	result := s3compat.NewDeleteResult()
	ctx := r.Context()
	for _, obj := range req.Objects {
		if err := engine.DeleteItem(ctx, gw.Sess, bucket, obj.Key); err != nil && !engine.IsNotFound(err) {
			result.Errors = append(result.Errors, s3compat.DeleteError{Key: obj.Key, Code: "InternalError", Message: err.Error()})
			continue
		}
		if !req.Quiet {
			result.Deleted = append(result.Deleted, s3compat.DeletedEntry{Key: obj.Key})
		}
	}
	w.Header().Set(headerContentType, contentTypeXML)
	w.Write(s3compat.MustMarshal(result))
	return nil
}
