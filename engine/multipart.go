package engine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/gocql/gocql"
	"github.com/sitano/s3-scylla/cmn"
)

const (
	insertUploadCQL = `INSERT INTO multipart_uploads (key, upload_id, object_id, version, bucket_id, metadata_json) VALUES (?, ?, ?, ?, ?, ?)`
	selectUploadCQL = `SELECT object_id, version, bucket_id, metadata_json FROM multipart_uploads WHERE key = ? AND upload_id = ?`
	deleteUploadCQL = `DELETE FROM multipart_uploads WHERE key = ? AND upload_id = ?`
)

// InitiateMultipart resolves the target (object_id, version) for a new
// upload -- reusing the object's id if the key already exists, allocating
// a fresh one otherwise -- and records a pending version row with size 0
// (spec.md §4.5 "Initiate").
func InitiateMultipart(ctx context.Context, sess Session, cfg Config, bucketName, key string) (uploadID string, err error) {
	bucket, err := GetBucket(ctx, sess, bucketName)
	if err != nil {
		return "", err
	}

	objectID := ""
	newVersion := int64(1)
	oh, err := getObjectHeader(ctx, sess, bucket.ID, key)
	switch {
	case err == nil:
		objectID = oh.ObjectID
		if oh.CurrentVersion > 0 {
			prev, found, verr := getVersionHeader(ctx, sess, objectID, oh.CurrentVersion)
			if verr != nil {
				return "", verr
			}
			if found {
				newVersion = prev.Version + 1
			}
		}
	case isNoSuchKey(err):
		objectID = cmn.NewID("obj")
	default:
		return "", err
	}

	now := time.Now().UTC()
	if err := sess.Query(insertVersionCQL, objectID, newVersion, bucket.ID, cfg.ChunkSize, cfg.ChunksPerPartition,
		defaultContentType(""), now, int64(0), false, "", "").WithContext(ctx).Exec(); err != nil {
		return "", err
	}

	uploadID = cmn.NewID("up")
	if err := sess.Query(insertUploadCQL, key, uploadID, objectID, newVersion, bucket.ID, "").WithContext(ctx).Exec(); err != nil {
		return "", err
	}
	return uploadID, nil
}

func isNoSuchKey(err error) bool {
	_, ok := err.(*ErrNoSuchKey)
	return ok
}

func getUpload(ctx context.Context, sess Session, key, uploadID string) (*MultipartUpload, error) {
	u := &MultipartUpload{Key: key, UploadID: uploadID}
	err := sess.Query(selectUploadCQL, key, uploadID).WithContext(ctx).Scan(&u.ObjectID, &u.Version, &u.BucketID, &u.Metadata)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, &ErrNoSuchUpload{Key: key, UploadID: uploadID}
		}
		return nil, err
	}
	return u, nil
}

// UploadPart looks up the upload row to find the target (object_id,
// version) and streams size bytes into part partNo, returning its digest
// (the part's ETag) (spec.md §4.5 "Upload part").
func UploadPart(ctx context.Context, sess Session, key, uploadID string, partNo int64, r io.Reader, size int64) (digest string, err error) {
	u, err := getUpload(ctx, sess, key, uploadID)
	if err != nil {
		return "", err
	}
	vh, found, err := getVersionHeader(ctx, sess, u.ObjectID, u.Version)
	if err != nil {
		return "", err
	}
	if !found {
		return "", &ErrNoSuchUpload{Key: key, UploadID: uploadID}
	}
	digest, _, err = WritePart(ctx, sess, u.ObjectID, u.Version, partNo, r, size, vh.ChunkSize, vh.ChunksPerPartition)
	return digest, err
}

// compositeDigest is MD5 over the ASCII-hex per-part digests concatenated
// in ascending part_no order -- matches the source's (non-canonical)
// multipart ETag scheme (spec.md §9).
func compositeDigest(parts []PartHeader) string {
	h := md5.New()
	for _, p := range parts {
		io.WriteString(h, p.Digest)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CompleteMultipart loads all parts, computes the composite size and
// digest, promotes the pending version into the object header's current
// version, and deletes the upload row (spec.md §4.5 "Complete").
func CompleteMultipart(ctx context.Context, sess Session, key, uploadID string) (digest string, size int64, err error) {
	u, err := getUpload(ctx, sess, key, uploadID)
	if err != nil {
		return "", 0, err
	}
	vh, found, err := getVersionHeader(ctx, sess, u.ObjectID, u.Version)
	if err != nil {
		return "", 0, err
	}
	if !found {
		return "", 0, &ErrNoSuchUpload{Key: key, UploadID: uploadID}
	}

	parts, err := loadParts(ctx, sess, u.ObjectID, u.Version)
	if err != nil {
		return "", 0, err
	}
	for _, p := range parts {
		size += p.Size
	}
	digest = compositeDigest(parts)

	vh.Digest = digest
	vh.Size = size
	vh.ContentType = defaultContentType(vh.ContentType)
	meta, err := versionToMetadata(vh)
	if err != nil {
		return "", 0, err
	}
	if err := sess.Query(updateVersionCQL, digest, size, meta, true, u.ObjectID, u.Version).WithContext(ctx).Exec(); err != nil {
		return "", 0, err
	}
	// a key uploaded purely through multipart (never simple-PUT first)
	// has no object header row yet -- InitiateMultipart only wrote the
	// version and upload rows -- so one must be created under the same
	// object_id before the UPDATE below can promote current_version.
	if _, err := createObjectHeaderIfAbsent(ctx, sess, u.BucketID, key, u.ObjectID); err != nil {
		return "", 0, err
	}
	if err := sess.Query(updateObjectCQL, u.Version, meta, u.BucketID, key).WithContext(ctx).Exec(); err != nil {
		return "", 0, err
	}
	if err := sess.Query(deleteUploadCQL, key, uploadID).WithContext(ctx).Exec(); err != nil {
		return "", 0, err
	}
	return digest, size, nil
}

func defaultContentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
