package gateway

import (
	"errors"
	"net/http"

	"github.com/golang/glog"
	"github.com/sitano/s3-scylla/engine"
	"github.com/sitano/s3-scylla/s3compat"
)

// writeErr maps an engine error onto an S3 Error XML body and the status
// codes spec.md §7 names; anything not recognized is a cluster error and
// is logged before degrading to a 500 (the engine never retries it).
func writeErr(w http.ResponseWriter, r *http.Request, bucket, key string, err error) {
	code, status := classify(err)
	if status == http.StatusInternalServerError {
		glog.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	resource := "/" + bucket
	if key != "" {
		resource += "/" + key
	}
	body := s3compat.MustMarshal(&s3compat.Error{
		Code: code, Message: err.Error(), Resource: resource,
	})
	w.Header().Set(headerContentType, contentTypeXML)
	w.WriteHeader(status)
	w.Write(body)
}

func classify(err error) (code string, status int) {
	var noSuchBucket *engine.ErrNoSuchBucket
	var noSuchKey *engine.ErrNoSuchKey
	var noSuchUpload *engine.ErrNoSuchUpload
	var bucketExists *engine.ErrBucketAlreadyExists
	var chunkMissing *engine.ErrChunkMissing
	switch {
	case errors.As(err, &noSuchBucket):
		return "NoSuchBucket", http.StatusNotFound
	case errors.As(err, &noSuchKey):
		return "NoSuchKey", http.StatusNotFound
	case errors.As(err, &noSuchUpload):
		return "NoSuchUpload", http.StatusNotFound
	case errors.As(err, &bucketExists):
		// spec.md §9: non-canonical 400, not the canonical 409.
		return "BucketAlreadyExists", http.StatusBadRequest
	case errors.As(err, &chunkMissing):
		return "InternalError", http.StatusInternalServerError
	case errors.As(err, new(*invalidPartNumberError)):
		return "InvalidArgument", http.StatusBadRequest
	default:
		return "InternalError", http.StatusInternalServerError
	}
}

// writeErr405 answers with an empty 405 body and an Allow header listing
// the supported methods, matching spec.md §7's "NotImplemented: 405 with
// empty body" for copy/ACL-write and unrecognized verbs.
func writeErr405(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	w.WriteHeader(http.StatusMethodNotAllowed)
}
