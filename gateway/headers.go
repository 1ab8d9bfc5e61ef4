package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sitano/s3-scylla/engine"
	"github.com/sitano/s3-scylla/s3compat"
)

const (
	headerContentType        = "Content-Type"
	headerContentLength      = "Content-Length"
	headerContentRange       = "Content-Range"
	headerETag               = "ETag"
	headerLastModified       = "Last-Modified"
	headerRange              = "Range"
	headerCacheControl       = "Cache-Control"
	headerContentDisposition = "Content-Disposition"
	headerContentEncoding    = "Content-Encoding"
	headerContentLanguage    = "Content-Language"
	headerExpires            = "Expires"
	headerObjSrc             = "X-Amz-Copy-Source"

	contentTypeXML       = "application/xml"
	contentTypeDirectory = "application/x-directory"
)

// headersFromRequest extracts the subset of request headers SPEC_FULL.md
// §3 persists on PUT for later replay on GET/HEAD.
func headersFromRequest(r *http.Request) engine.HeaderSet {
	return engine.HeaderSet{
		CacheControl:       r.Header.Get(headerCacheControl),
		ContentDisposition: r.Header.Get(headerContentDisposition),
		ContentEncoding:    r.Header.Get(headerContentEncoding),
		ContentLanguage:    r.Header.Get(headerContentLanguage),
		Expires:            r.Header.Get(headerExpires),
	}
}

// setHeadersFromItem replays a stored item's headers onto a GET/HEAD
// response, synthesising the x-amz-meta-{ctime,mtime,mode,uid,gid}
// headers spec.md §6 names for directory-like objects.
func setHeadersFromItem(h http.Header, item *engine.Item) {
	h.Set(headerETag, quote(item.Digest))
	h.Set(headerLastModified, s3compat.FormatTime(item.CreationDate))
	h.Set(headerContentType, item.ContentType)
	if item.Headers.CacheControl != "" {
		h.Set(headerCacheControl, item.Headers.CacheControl)
	}
	if item.Headers.ContentDisposition != "" {
		h.Set(headerContentDisposition, item.Headers.ContentDisposition)
	}
	if item.Headers.ContentEncoding != "" {
		h.Set(headerContentEncoding, item.Headers.ContentEncoding)
	}
	if item.Headers.ContentLanguage != "" {
		h.Set(headerContentLanguage, item.Headers.ContentLanguage)
	}
	if item.Headers.Expires != "" {
		h.Set(headerExpires, item.Headers.Expires)
	}
	if item.ContentType == contentTypeDirectory {
		setDirectoryMeta(h, item.CreationDate)
	}
}

func setDirectoryMeta(h http.Header, t time.Time) {
	epoch := strconv.FormatInt(t.Unix(), 10)
	h.Set("X-Amz-Meta-Ctime", epoch)
	h.Set("X-Amz-Meta-Mtime", epoch)
	h.Set("X-Amz-Meta-Mode", "16877") // drwxr-xr-x, matches a synthesised directory placeholder
	h.Set("X-Amz-Meta-Uid", "0")
	h.Set("X-Amz-Meta-Gid", "0")
}

func quote(etag string) string { return `"` + etag + `"` }
