package engine

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestWriteReadChunksRoundTrip(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		data               []byte
		chunkSize          int64
		chunksPerPartition int64
	}{
		{[]byte("hello"), 4, 2},
		{[]byte("abcdefghij"), 4, 2},
		{make([]byte, 1024), 256, 3},
		{[]byte(""), 4, 2},
		{[]byte("x"), 1, 1},
	}

	for i, tc := range testCases {
		t.Logf("testcase %d/%d size=%d chunk_size=%d", i+1, len(testCases), len(tc.data), tc.chunkSize)
		sess := NewMemorySession()
		blobID := "blob-test"

		digest, err := WriteChunks(ctx, sess, blobID, bytes.NewReader(tc.data), int64(len(tc.data)), tc.chunkSize, tc.chunksPerPartition)
		if err != nil {
			t.Fatalf("WriteChunks: %v", err)
		}
		sum := md5.Sum(tc.data)
		if want := hex.EncodeToString(sum[:]); digest != want {
			t.Fatalf("digest mismatch: got %s want %s", digest, want)
		}

		var out bytes.Buffer
		if err := ReadChunks(ctx, sess, &out, blobID, 0, int64(len(tc.data)), tc.chunkSize, tc.chunksPerPartition); err != nil {
			t.Fatalf("ReadChunks: %v", err)
		}
		if !bytes.Equal(out.Bytes(), tc.data) {
			t.Fatalf("round trip mismatch: got %q want %q", out.Bytes(), tc.data)
		}
	}
}

func TestReadChunksRange(t *testing.T) {
	ctx := context.Background()
	data := []byte("abcdefghij")
	sess := NewMemorySession()
	blobID := "blob-range"
	if _, err := WriteChunks(ctx, sess, blobID, bytes.NewReader(data), int64(len(data)), 4, 2); err != nil {
		t.Fatalf("WriteChunks: %v", err)
	}

	for s := 0; s < len(data); s++ {
		for e := s; e < len(data); e++ {
			var out bytes.Buffer
			length := int64(e - s + 1)
			if err := ReadChunks(ctx, sess, &out, blobID, int64(s), length, 4, 2); err != nil {
				t.Fatalf("ReadChunks(%d,%d): %v", s, e, err)
			}
			want := data[s : e+1]
			if !bytes.Equal(out.Bytes(), want) {
				t.Fatalf("range [%d,%d]: got %q want %q", s, e, out.Bytes(), want)
			}
		}
	}
}

func TestChunkLayout(t *testing.T) {
	// spec.md scenario #4: chunk_size=4, chunks_per_partition=2, 10 bytes.
	ctx := context.Background()
	sess := NewMemorySession()
	blobID := "blob-layout"
	data := []byte("abcdefghij")

	if _, err := WriteChunks(ctx, sess, blobID, bytes.NewReader(data), int64(len(data)), 4, 2); err != nil {
		t.Fatalf("WriteChunks: %v", err)
	}

	want := map[[2]int64]string{
		{0, 0}: "abcd",
		{0, 1}: "efgh",
		{1, 0}: "ij",
	}
	if got := sess.ChunkCount(); got != len(want) {
		t.Fatalf("chunk count = %d, want %d", got, len(want))
	}
	for k, v := range want {
		got, ok := sess.ChunkBytes(blobID, k[0], k[1])
		if !ok {
			t.Fatalf("missing chunk partition=%d ix=%d", k[0], k[1])
		}
		if string(got) != v {
			t.Fatalf("chunk partition=%d ix=%d = %q, want %q", k[0], k[1], got, v)
		}
	}
}

func TestReadChunksMissing(t *testing.T) {
	ctx := context.Background()
	sess := NewMemorySession()
	var out bytes.Buffer
	err := ReadChunks(ctx, sess, &out, "nonexistent", 0, 4, 4, 2)
	if err == nil {
		t.Fatal("expected ErrChunkMissing, got nil")
	}
	if _, ok := err.(*ErrChunkMissing); !ok {
		t.Fatalf("expected *ErrChunkMissing, got %T: %v", err, err)
	}
}

func TestReadChunksZeroLength(t *testing.T) {
	ctx := context.Background()
	sess := NewMemorySession()
	var out bytes.Buffer
	if err := ReadChunks(ctx, sess, &out, "whatever", 0, 0, 4, 2); err != nil {
		t.Fatalf("zero-length read should not error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("zero-length read wrote %d bytes", out.Len())
	}
}
