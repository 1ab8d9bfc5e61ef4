package gateway

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sitano/s3-scylla/cmn"
	"github.com/sitano/s3-scylla/engine"
	"github.com/sitano/s3-scylla/s3compat"
)

func newGateway(t *testing.T) *Gateway {
	t.Helper()
	cmn.InitIDGen(1)
	return &Gateway{
		Sess: engine.NewMemorySession(),
		Cfg:  engine.Config{ChunkSize: 64 * 1024, ChunksPerPartition: 64},
	}
}

func TestScenario1CreateBucket(t *testing.T) {
	gw := newGateway(t)
	req := httptest.NewRequest(http.MethodPut, "/b", nil)
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /b = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/", nil)
	getRec := httptest.NewRecorder()
	gw.ServeHTTP(getRec, getReq)
	var result s3compat.ListAllMyBucketsResult
	if err := xml.Unmarshal(getRec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.Buckets) != 1 || result.Buckets[0].Name != "b" {
		t.Fatalf("buckets = %+v, want [b]", result.Buckets)
	}
}

func TestScenario2And3PutGetRange(t *testing.T) {
	gw := newGateway(t)
	mustCreateBucket(t, gw, "b")

	putReq := httptest.NewRequest(http.MethodPut, "/b/k", bytes.NewReader([]byte("hello")))
	putReq.Header.Set(headerContentType, "text/plain")
	putReq.ContentLength = 5
	putRec := httptest.NewRecorder()
	gw.ServeHTTP(putRec, putReq)
	if putRec.Code != http.StatusOK {
		t.Fatalf("PUT /b/k = %d, want 200; body=%s", putRec.Code, putRec.Body.String())
	}
	wantETag := `"5d41402abc4b2a76b9719d911017c592"`
	if got := putRec.Header().Get(headerETag); got != wantETag {
		t.Fatalf("PUT ETag = %s, want %s", got, wantETag)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/b/k", nil)
	getRec := httptest.NewRecorder()
	gw.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("GET /b/k = %d, want 200", getRec.Code)
	}
	if getRec.Body.String() != "hello" {
		t.Fatalf("GET body = %q, want %q", getRec.Body.String(), "hello")
	}
	if ct := getRec.Header().Get(headerContentType); ct != "text/plain" {
		t.Fatalf("Content-Type = %s, want text/plain", ct)
	}
	if cl := getRec.Header().Get(headerContentLength); cl != "5" {
		t.Fatalf("Content-Length = %s, want 5", cl)
	}

	rangeReq := httptest.NewRequest(http.MethodGet, "/b/k", nil)
	rangeReq.Header.Set(headerRange, "bytes=1-3")
	rangeRec := httptest.NewRecorder()
	gw.ServeHTTP(rangeRec, rangeReq)
	if rangeRec.Code != http.StatusPartialContent {
		t.Fatalf("Range GET = %d, want 206", rangeRec.Code)
	}
	if rangeRec.Body.String() != "ell" {
		t.Fatalf("Range body = %q, want %q", rangeRec.Body.String(), "ell")
	}
	if cr := rangeRec.Header().Get(headerContentRange); cr != "bytes 1-3/5" {
		t.Fatalf("Content-Range = %s, want %s", cr, "bytes 1-3/5")
	}
	if cl := rangeRec.Header().Get(headerContentLength); cl != "3" {
		t.Fatalf("Content-Length = %s, want 3", cl)
	}
}

func TestScenario5Multipart(t *testing.T) {
	gw := newGateway(t)
	mustCreateBucket(t, gw, "b")

	initReq := httptest.NewRequest(http.MethodPost, "/b/k?uploads", nil)
	initRec := httptest.NewRecorder()
	gw.ServeHTTP(initRec, initReq)
	var initResult s3compat.InitiateMultipartUploadResult
	if err := xml.Unmarshal(initRec.Body.Bytes(), &initResult); err != nil {
		t.Fatalf("unmarshal initiate: %v", err)
	}
	if initResult.UploadID == "" {
		t.Fatal("expected non-empty upload id")
	}

	for partNo, body := range map[string]string{"1": "AAAA", "2": "BB"} {
		url := "/b/k?partNumber=" + partNo + "&uploadId=" + initResult.UploadID
		req := httptest.NewRequest(http.MethodPut, url, bytes.NewReader([]byte(body)))
		req.ContentLength = int64(len(body))
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("uploadPart %s = %d, want 200; body=%s", partNo, rec.Code, rec.Body.String())
		}
	}

	completeReq := httptest.NewRequest(http.MethodPost, "/b/k?uploadId="+initResult.UploadID, nil)
	completeRec := httptest.NewRecorder()
	gw.ServeHTTP(completeRec, completeReq)
	if completeRec.Code != http.StatusOK {
		t.Fatalf("complete = %d, want 200; body=%s", completeRec.Code, completeRec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/b/k", nil)
	getRec := httptest.NewRecorder()
	gw.ServeHTTP(getRec, getReq)
	if getRec.Body.String() != "AAAABB" {
		t.Fatalf("assembled body = %q, want %q", getRec.Body.String(), "AAAABB")
	}
}

func TestScenario6ListPrefixDelimiter(t *testing.T) {
	gw := newGateway(t)
	mustCreateBucket(t, gw, "b")
	for _, key := range []string{"a/x", "a/y", "b"} {
		req := httptest.NewRequest(http.MethodPut, "/b/"+key, bytes.NewReader([]byte("x")))
		req.ContentLength = 1
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("PUT /b/%s = %d", key, rec.Code)
		}
	}

	listReq := httptest.NewRequest(http.MethodGet, "/b?prefix=a/&delimiter=/", nil)
	listRec := httptest.NewRecorder()
	gw.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list = %d, want 200; body=%s", listRec.Code, listRec.Body.String())
	}
	var result s3compat.ListBucketResult
	if err := xml.Unmarshal(listRec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.CommonPrefixes) != 0 {
		t.Fatalf("CommonPrefixes = %v, want none", result.CommonPrefixes)
	}
	if len(result.Contents) != 2 || result.Contents[0].Key != "a/x" || result.Contents[1].Key != "a/y" {
		t.Fatalf("Contents = %+v, want [a/x a/y]", result.Contents)
	}
}

func TestDeleteObjectReturns204(t *testing.T) {
	gw := newGateway(t)
	mustCreateBucket(t, gw, "b")
	putReq := httptest.NewRequest(http.MethodPut, "/b/k", bytes.NewReader([]byte("x")))
	putReq.ContentLength = 1
	putRec := httptest.NewRecorder()
	gw.ServeHTTP(putRec, putReq)

	delReq := httptest.NewRequest(http.MethodDelete, "/b/k", nil)
	delRec := httptest.NewRecorder()
	gw.ServeHTTP(delRec, delReq)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d, want 204", delRec.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/b/k", nil)
	getRec := httptest.NewRecorder()
	gw.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusNotFound {
		t.Fatalf("GET after delete = %d, want 404", getRec.Code)
	}
}

func TestCopyUnsupportedReturns405(t *testing.T) {
	gw := newGateway(t)
	mustCreateBucket(t, gw, "b")
	req := httptest.NewRequest(http.MethodPut, "/b/k", nil)
	req.Header.Set(headerObjSrc, "/other/src")
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("copy = %d, want 405", rec.Code)
	}
}

func TestVirtualHostAddressing(t *testing.T) {
	gw := newGateway(t)
	gw.MockHostname = "s3.example.com"
	mustCreateBucket(t, gw, "b")

	req := httptest.NewRequest(http.MethodPut, "/k", bytes.NewReader([]byte("x")))
	req.Host = "b.s3.example.com"
	req.ContentLength = 1
	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("virtual-host PUT = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
}

func mustCreateBucket(t *testing.T, gw *Gateway, name string) {
	t.Helper()
	if _, err := engine.CreateBucket(context.Background(), gw.Sess, name); err != nil {
		t.Fatalf("CreateBucket(%s): %v", name, err)
	}
}
