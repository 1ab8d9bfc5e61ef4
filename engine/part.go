package engine

import (
	"context"
	"io"
	"sort"

	"github.com/sitano/s3-scylla/cmn"
)

const (
	insertPartCQL = `INSERT INTO parts (object_id, version, part_no, blob_id, digest, size) VALUES (?, ?, ?, ?, ?, ?)`
	selectPartsCQL = `SELECT part_no, blob_id, digest, size FROM parts WHERE object_id = ? AND version = ?`
)

// WritePart inserts a part header with a freshly allocated blob id,
// streams size bytes from r through the chunk codec using the geometry
// pinned on the version, and returns the part's digest (spec.md §4.2
// "write_part"). Retrying upload_part with the same part_no allocates a
// new blob id and overwrites the part row, per spec.md §4.5.
func WritePart(ctx context.Context, sess Session, objectID string, version, partNo int64, r io.Reader, size, chunkSize, chunksPerPartition int64) (digest, blobID string, err error) {
	blobID = cmn.NewID("blob")
	digest, err = WriteChunks(ctx, sess, blobID, r, size, chunkSize, chunksPerPartition)
	if err != nil {
		return "", "", err
	}
	err = sess.Query(insertPartCQL, objectID, version, partNo, blobID, digest, size).WithContext(ctx).Exec()
	if err != nil {
		return "", "", err
	}
	return digest, blobID, nil
}

// loadParts enumerates the part rows for (object_id, version) and sorts
// them by part_no ascending; the schema's clustering order is not relied
// on across versions (spec.md §4.2).
func loadParts(ctx context.Context, sess Session, objectID string, version int64) ([]PartHeader, error) {
	iter := sess.Query(selectPartsCQL, objectID, version).WithContext(ctx).Iter()
	var parts []PartHeader
	for {
		var p PartHeader
		if !iter.Scan(&p.PartNo, &p.BlobID, &p.Digest, &p.Size) {
			break
		}
		p.ObjectID = objectID
		p.Version = version
		parts = append(parts, p)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNo < parts[j].PartNo })
	return parts, nil
}

// ReadParts walks the parts of (object_id, version) in ascending part_no
// order, keeping a running current_start, and reads [start, start+length)
// of the logical object through the chunk codec (spec.md §4.2
// "read_parts").
func ReadParts(ctx context.Context, sess Session, out io.Writer, objectID string, version, start, length, chunkSize, chunksPerPartition int64) error {
	parts, err := loadParts(ctx, sess, objectID, version)
	if err != nil {
		return err
	}

	currentStart := int64(0)
	remaining := length
	for _, part := range parts {
		if remaining <= 0 {
			break
		}
		partStart := start - currentStart
		if partStart < 0 {
			partStart = 0
		}
		if partStart >= part.Size {
			currentStart += part.Size
			continue
		}
		readLen := part.Size - partStart
		if readLen > remaining {
			readLen = remaining
		}
		if err := ReadChunks(ctx, sess, out, part.BlobID, partStart, readLen, chunkSize, chunksPerPartition); err != nil {
			return err
		}
		remaining -= readLen
		currentStart += part.Size
	}
	return nil
}
