package engine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"

	"github.com/gocql/gocql"
)

const (
	insertChunkCQL = `INSERT INTO chunks (blob_id, partition, ix, data_blob) VALUES (?, ?, ?, ?)`
	selectChunkCQL = `SELECT data_blob FROM chunks WHERE blob_id = ? AND partition = ? AND ix = ?`
)

// ceilDiv returns ceil(a/b) for non-negative a and positive b.
func ceilDiv(a, b int64) int64 {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// WriteChunks reads exactly size bytes from r, splits them into
// chunk_size-sized rows grouped chunks_per_partition to a partition, and
// inserts them under blobID. It returns the lowercase hex MD5 digest of
// the raw bytes streamed (spec.md §4.1 "write_chunks").
func WriteChunks(ctx context.Context, sess Session, blobID string, r io.Reader, size, chunkSize, chunksPerPartition int64) (string, error) {
	h := md5.New()
	chunkCount := ceilDiv(size, chunkSize)
	remaining := size
	for n := int64(0); n < chunkCount; n++ {
		this := chunkSize
		if remaining < chunkSize {
			this = remaining
		}
		buf := make([]byte, this)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		h.Write(buf)

		partition := n / chunksPerPartition
		ix := n % chunksPerPartition
		if err := sess.Query(insertChunkCQL, blobID, partition, ix, buf).WithContext(ctx).Exec(); err != nil {
			return "", err
		}
		remaining -= this
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadChunks writes exactly length bytes to out, starting at absolute
// offset start within the blob identified by blobID (spec.md §4.1
// "read_chunks"). A zero-length read writes nothing.
func ReadChunks(ctx context.Context, sess Session, out io.Writer, blobID string, start, length, chunkSize, chunksPerPartition int64) error {
	if length <= 0 {
		return nil
	}
	startChunk := start / chunkSize
	endChunk := (start + length - 1) / chunkSize

	for n := startChunk; n <= endChunk; n++ {
		partition := n / chunksPerPartition
		ix := n % chunksPerPartition

		var data []byte
		err := sess.Query(selectChunkCQL, blobID, partition, ix).WithContext(ctx).Scan(&data)
		if err != nil {
			if errors.Is(err, gocql.ErrNotFound) {
				return &ErrChunkMissing{BlobID: blobID, Partition: partition, IX: ix}
			}
			return err
		}

		head := 0
		if n == startChunk {
			head = int(start % chunkSize)
		}
		tail := len(data)
		if n == endChunk {
			tail = int((start+length-1)%chunkSize) + 1
		}
		if head > len(data) {
			head = len(data)
		}
		if tail > len(data) {
			tail = len(data)
		}
		if head > tail {
			head = tail
		}
		if _, err := out.Write(data[head:tail]); err != nil {
			return err
		}
	}
	return nil
}
