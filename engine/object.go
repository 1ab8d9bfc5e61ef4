package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gocql/gocql"
	jsoniter "github.com/json-iterator/go"
	"github.com/sitano/s3-scylla/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	insertObjectIfNotExistsCQL = `INSERT INTO objects (bucket_id, key, object_id, current_version, metadata_json) VALUES (?, ?, ?, ?, ?) IF NOT EXISTS`
	selectObjectCQL            = `SELECT object_id, current_version, metadata_json FROM objects WHERE bucket_id = ? AND key = ?`
	updateObjectCQL            = `UPDATE objects SET current_version = ?, metadata_json = ? WHERE bucket_id = ? AND key = ?`
	deleteObjectCQL            = `DELETE FROM objects WHERE bucket_id = ? AND key = ?`

	insertVersionCQL = `INSERT INTO versions (object_id, version, bucket_id, chunk_size, chunks_per_partition, content_type, creation_date, size, parts_flag, digest, metadata_json) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectVersionCQL = `SELECT bucket_id, chunk_size, chunks_per_partition, content_type, creation_date, digest, size, parts_flag, metadata_json FROM versions WHERE object_id = ? AND version = ?`
	updateVersionCQL = `UPDATE versions SET digest = ?, size = ?, metadata_json = ?, parts_flag = ? WHERE object_id = ? AND version = ?`
)

// createObjectHeaderIfAbsent returns the current object header for
// (bucketID, key), inserting a fresh row keyed by objectID first if none
// exists yet. StoreItem needs this for a brand new key; CompleteMultipart
// needs it too, since InitiateMultipart never creates the header row up
// front -- it only touches the version and upload rows (spec.md §4.5
// "Initiate"), so a multipart upload targeting a key with no prior
// simple-PUT would otherwise promote a current_version pointer onto a
// header row that was never created.
func createObjectHeaderIfAbsent(ctx context.Context, sess Session, bucketID, key, objectID string) (*ObjectHeader, error) {
	oh, err := getObjectHeader(ctx, sess, bucketID, key)
	if err == nil {
		return oh, nil
	}
	if _, ok := err.(*ErrNoSuchKey); !ok {
		return nil, err
	}
	applied := false
	insErr := sess.Query(insertObjectIfNotExistsCQL, bucketID, key, objectID, int64(0), "").
		WithContext(ctx).Scan(&applied)
	if insErr != nil && !errors.Is(insErr, gocql.ErrNotFound) {
		return nil, insErr
	}
	return getObjectHeader(ctx, sess, bucketID, key)
}

func getObjectHeader(ctx context.Context, sess Session, bucketID, key string) (*ObjectHeader, error) {
	oh := &ObjectHeader{BucketID: bucketID, Key: key}
	err := sess.Query(selectObjectCQL, bucketID, key).WithContext(ctx).Scan(&oh.ObjectID, &oh.CurrentVersion, &oh.Metadata)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, &ErrNoSuchKey{Bucket: bucketID, Key: key}
		}
		return nil, err
	}
	return oh, nil
}

func getVersionHeader(ctx context.Context, sess Session, objectID string, version int64) (*VersionHeader, bool, error) {
	vh := &VersionHeader{ObjectID: objectID, Version: version}
	var meta string
	err := sess.Query(selectVersionCQL, objectID, version).WithContext(ctx).
		Scan(&vh.BucketID, &vh.ChunkSize, &vh.ChunksPerPartition, &vh.ContentType, &vh.CreationDate, &vh.Digest, &vh.Size, &vh.PartsFlag, &meta)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	vh.Metadata = meta
	var vm versionMetadata
	if meta != "" {
		_ = json.UnmarshalFromString(meta, &vm)
		vh.HeaderReplay = vm.HeaderSet
	}
	return vh, true, nil
}

// versionToMetadata composes the JSON blob shared, per spec.md §9, by a
// version row and the object header's cached copy.
func versionToMetadata(vh *VersionHeader) (string, error) {
	vm := versionMetadata{
		ContentType:  vh.ContentType,
		CreationDate: vh.CreationDate,
		Digest:       vh.Digest,
		Size:         vh.Size,
		HeaderSet:    vh.HeaderReplay,
	}
	return json.MarshalToString(vm)
}

// StoreItem implements the simple PUT pipeline: allocate a new version,
// stream size bytes into part 1 via the chunk codec, then atomically
// promote the object header to the new version (spec.md §4.3
// "store_item").
func StoreItem(ctx context.Context, sess Session, cfg Config, bucketName, key string, headers HeaderSet, contentType string, size int64, r io.Reader) (*Item, error) {
	bucket, err := GetBucket(ctx, sess, bucketName)
	if err != nil {
		return nil, err
	}

	oh, err := createObjectHeaderIfAbsent(ctx, sess, bucket.ID, key, cmn.NewID("obj"))
	if err != nil {
		return nil, err
	}

	newVersion := int64(1)
	if oh.CurrentVersion > 0 {
		prev, found, verr := getVersionHeader(ctx, sess, oh.ObjectID, oh.CurrentVersion)
		if verr != nil {
			return nil, verr
		}
		if found {
			newVersion = prev.Version + 1
		}
	}

	now := time.Now().UTC()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err = sess.Query(insertVersionCQL, oh.ObjectID, newVersion, bucket.ID, cfg.ChunkSize, cfg.ChunksPerPartition,
		contentType, now, size, false, "", "").WithContext(ctx).Exec()
	if err != nil {
		return nil, err
	}

	digest, _, err := WritePart(ctx, sess, oh.ObjectID, newVersion, 1, r, size, cfg.ChunkSize, cfg.ChunksPerPartition)
	if err != nil {
		return nil, err
	}

	vh := &VersionHeader{
		ObjectID: oh.ObjectID, Version: newVersion, BucketID: bucket.ID,
		ChunkSize: cfg.ChunkSize, ChunksPerPartition: cfg.ChunksPerPartition,
		ContentType: contentType, CreationDate: now, Digest: digest, Size: size,
		PartsFlag: true, HeaderReplay: headers,
	}
	meta, err := versionToMetadata(vh)
	if err != nil {
		return nil, err
	}
	if err := sess.Query(updateVersionCQL, digest, size, meta, true, oh.ObjectID, newVersion).WithContext(ctx).Exec(); err != nil {
		return nil, err
	}
	if err := sess.Query(updateObjectCQL, newVersion, meta, bucket.ID, key).WithContext(ctx).Exec(); err != nil {
		return nil, err
	}

	return &Item{
		BucketID: bucket.ID, Key: key, ObjectID: oh.ObjectID, Version: newVersion,
		ChunkSize: cfg.ChunkSize, ChunksPerPartition: cfg.ChunksPerPartition,
		Size: size, ContentType: contentType, Digest: digest, CreationDate: now, Headers: headers,
	}, nil
}

// GetItem resolves bucket -> object header -> current version row and
// returns a frozen descriptor sufficient to drive a subsequent range
// read without further lookups (spec.md §4.3 "get_item").
func GetItem(ctx context.Context, sess Session, bucketName, key string) (*Item, error) {
	bucket, err := GetBucket(ctx, sess, bucketName)
	if err != nil {
		return nil, err
	}
	oh, err := getObjectHeader(ctx, sess, bucket.ID, key)
	if err != nil {
		return nil, err
	}
	vh, found, err := getVersionHeader(ctx, sess, oh.ObjectID, oh.CurrentVersion)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &ErrNoSuchKey{Bucket: bucketName, Key: key}
	}
	return &Item{
		BucketID: bucket.ID, Key: key, ObjectID: oh.ObjectID, Version: vh.Version,
		ChunkSize: vh.ChunkSize, ChunksPerPartition: vh.ChunksPerPartition,
		Size: vh.Size, ContentType: vh.ContentType, Digest: vh.Digest,
		CreationDate: vh.CreationDate, Headers: vh.HeaderReplay,
	}, nil
}

// DeleteItem tombstones the object header only; version, part, and chunk
// rows are left as background litter for a future lifecycle sweep
// (spec.md §9, resolving the "delete is stubbed" open question).
func DeleteItem(ctx context.Context, sess Session, bucketName, key string) error {
	bucket, err := GetBucket(ctx, sess, bucketName)
	if err != nil {
		return err
	}
	return sess.Query(deleteObjectCQL, bucket.ID, key).WithContext(ctx).Exec()
}
