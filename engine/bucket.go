package engine

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"
	"github.com/sitano/s3-scylla/cmn"
)

const (
	insertBucketIfNotExistsCQL = `INSERT INTO buckets (name, bucket_id, creation_date, metadata_json) VALUES (?, ?, ?, ?) IF NOT EXISTS`
	selectBucketCQL            = `SELECT bucket_id, creation_date, metadata_json FROM buckets WHERE name = ?`
	selectAllBucketsCQL        = `SELECT name, bucket_id, creation_date, metadata_json FROM buckets`
)

// CreateBucket inserts a new bucket row, failing with
// ErrBucketAlreadyExists on a name collision (spec.md §4.6).
func CreateBucket(ctx context.Context, sess Session, name string) (*Bucket, error) {
	b := &Bucket{ID: cmn.NewID("bkt"), Name: name, CreationDate: time.Now().UTC()}
	applied := false
	err := sess.Query(insertBucketIfNotExistsCQL, b.Name, b.ID, b.CreationDate, b.Metadata).
		WithContext(ctx).Scan(&applied)
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		return nil, err
	}
	if !applied {
		return nil, &ErrBucketAlreadyExists{Name: name}
	}
	return b, nil
}

// GetBucket looks up a bucket by name, returning ErrNoSuchBucket if
// absent (spec.md §4.6).
func GetBucket(ctx context.Context, sess Session, name string) (*Bucket, error) {
	b := &Bucket{Name: name}
	err := sess.Query(selectBucketCQL, name).WithContext(ctx).Scan(&b.ID, &b.CreationDate, &b.Metadata)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, &ErrNoSuchBucket{Name: name}
		}
		return nil, err
	}
	return b, nil
}

// ListAllBuckets returns every bucket row (spec.md §4.6).
func ListAllBuckets(ctx context.Context, sess Session) ([]*Bucket, error) {
	iter := sess.Query(selectAllBucketsCQL).WithContext(ctx).Iter()
	var buckets []*Bucket
	for {
		b := &Bucket{}
		if !iter.Scan(&b.Name, &b.ID, &b.CreationDate, &b.Metadata) {
			break
		}
		buckets = append(buckets, b)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return buckets, nil
}
