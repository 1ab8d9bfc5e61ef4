package gateway

import (
	"net/http"
	"strconv"

	"github.com/sitano/s3-scylla/engine"
	"github.com/sitano/s3-scylla/s3compat"
)

// initiateMultipart serves POST /<bucket>/<key>?uploads (spec.md §4.5).
func (gw *Gateway) initiateMultipart(w http.ResponseWriter, r *http.Request, bucket, key string) error {
	uploadID, err := engine.InitiateMultipart(r.Context(), gw.Sess, gw.Cfg, bucket, key)
	if err != nil {
		writeErr(w, r, bucket, key, err)
		return err
	}
	result := &s3compat.InitiateMultipartUploadResult{
		Ns: "http://s3.amazonaws.com/doc/2006-03-01/", Bucket: bucket, Key: key, UploadID: uploadID,
	}
	w.Header().Set(headerContentType, contentTypeXML)
	w.Write(s3compat.MustMarshal(result))
	return nil
}

// uploadPart serves PUT /<bucket>/<key>?partNumber=n&uploadId=u (spec.md
// §4.5 "Upload part").
func (gw *Gateway) uploadPart(w http.ResponseWriter, r *http.Request, bucket, key, partNoStr, uploadID string) error {
	partNo, perr := strconv.ParseInt(partNoStr, 10, 64)
	if perr != nil || partNo < 1 {
		err := &invalidPartNumberError{partNoStr}
		writeErr(w, r, bucket, key, err)
		return err
	}
	size := r.ContentLength
	if size < 0 {
		size = 0
	}
	digest, err := engine.UploadPart(r.Context(), gw.Sess, key, uploadID, partNo, r.Body, size)
	if err != nil {
		writeErr(w, r, bucket, key, err)
		return err
	}
	w.Header().Set(headerETag, quote(digest))
	w.WriteHeader(http.StatusOK)
	return nil
}

// completeMultipart serves POST /<bucket>/<key>?uploadId=u (spec.md §4.5
// "Complete").
func (gw *Gateway) completeMultipart(w http.ResponseWriter, r *http.Request, bucket, key, uploadID string) error {
	digest, _, err := engine.CompleteMultipart(r.Context(), gw.Sess, key, uploadID)
	if err != nil {
		writeErr(w, r, bucket, key, err)
		return err
	}
	result := &s3compat.CompleteMultipartUploadResult{
		Ns: "http://s3.amazonaws.com/doc/2006-03-01/", Bucket: bucket, Key: key, ETag: quote(digest),
	}
	w.Header().Set(headerContentType, contentTypeXML)
	w.Write(s3compat.MustMarshal(result))
	return nil
}

type invalidPartNumberError struct{ value string }

func (e *invalidPartNumberError) Error() string { return "invalid partNumber: " + e.value }
