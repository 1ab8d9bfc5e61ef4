package engine

import "fmt"

// Error kinds surfaced by the engine (spec.md §7). The gateway layer maps
// these onto HTTP status codes and S3 Error XML bodies; the engine itself
// never retries a cluster error.
type (
	// ErrNoSuchBucket is returned when a bucket name has no row.
	ErrNoSuchBucket struct{ Name string }
	// ErrNoSuchKey is returned when an object header has no row for
	// (bucket, key), or the object header exists but its current
	// version row is missing (treated the same by callers).
	ErrNoSuchKey struct {
		Bucket, Key string
	}
	// ErrBucketAlreadyExists is returned by CreateBucket on a name
	// collision (spec.md §9: 400 in this revision, not canonical 409).
	ErrBucketAlreadyExists struct{ Name string }
	// ErrChunkMissing is returned by the chunk codec when an expected
	// chunk row is absent (spec.md §4.1).
	ErrChunkMissing struct {
		BlobID    string
		Partition int64
		IX        int64
	}
	// ErrNoSuchUpload is returned when an (key, upload_id) pair has no
	// multipart_uploads row.
	ErrNoSuchUpload struct {
		Key, UploadID string
	}
)

func (e *ErrNoSuchBucket) Error() string { return fmt.Sprintf("no such bucket: %s", e.Name) }
func (e *ErrNoSuchKey) Error() string {
	return fmt.Sprintf("no such key: %s/%s", e.Bucket, e.Key)
}
func (e *ErrBucketAlreadyExists) Error() string {
	return fmt.Sprintf("bucket already exists: %s", e.Name)
}
func (e *ErrChunkMissing) Error() string {
	return fmt.Sprintf("chunk missing: blob=%s partition=%d ix=%d", e.BlobID, e.Partition, e.IX)
}
func (e *ErrNoSuchUpload) Error() string {
	return fmt.Sprintf("no such upload: %s/%s", e.Key, e.UploadID)
}

// IsNotFound reports whether err is any of the engine's not-found kinds.
func IsNotFound(err error) bool {
	switch err.(type) {
	case *ErrNoSuchBucket, *ErrNoSuchKey, *ErrNoSuchUpload:
		return true
	default:
		return false
	}
}
