package engine

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestMultipartUploadCompositeDigest(t *testing.T) {
	ctx := context.Background()
	sess, cfg := newTestEngine(t)
	if _, err := CreateBucket(ctx, sess, "b"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}

	uploadID, err := InitiateMultipart(ctx, sess, cfg, "b", "k")
	if err != nil {
		t.Fatalf("InitiateMultipart: %v", err)
	}
	if uploadID == "" {
		t.Fatal("expected non-empty upload id")
	}

	part1 := []byte("AAAA")
	part2 := []byte("BB")
	if _, err := UploadPart(ctx, sess, "k", uploadID, 1, bytes.NewReader(part1), int64(len(part1))); err != nil {
		t.Fatalf("UploadPart 1: %v", err)
	}
	if _, err := UploadPart(ctx, sess, "k", uploadID, 2, bytes.NewReader(part2), int64(len(part2))); err != nil {
		t.Fatalf("UploadPart 2: %v", err)
	}

	digest, size, err := CompleteMultipart(ctx, sess, "k", uploadID)
	if err != nil {
		t.Fatalf("CompleteMultipart: %v", err)
	}
	if size != int64(len(part1)+len(part2)) {
		t.Fatalf("size = %d, want %d", size, len(part1)+len(part2))
	}

	sum1 := md5.Sum(part1)
	sum2 := md5.Sum(part2)
	h := md5.New()
	h.Write([]byte(hex.EncodeToString(sum1[:])))
	h.Write([]byte(hex.EncodeToString(sum2[:])))
	want := hex.EncodeToString(h.Sum(nil))
	if digest != want {
		t.Fatalf("digest = %s, want %s", digest, want)
	}

	item, err := GetItem(ctx, sess, "b", "k")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item.Digest != want || item.Size != size {
		t.Fatalf("GetItem after complete = %+v", item)
	}
	if item.ContentType != "application/octet-stream" {
		t.Fatalf("ContentType = %q, want default octet-stream", item.ContentType)
	}

	var out bytes.Buffer
	if err := ReadParts(ctx, sess, &out, item.ObjectID, item.Version, 0, item.Size, item.ChunkSize, item.ChunksPerPartition); err != nil {
		t.Fatalf("ReadParts: %v", err)
	}
	if out.String() != "AAAABB" {
		t.Fatalf("assembled body = %q, want %q", out.String(), "AAAABB")
	}

	if _, err := getUpload(ctx, sess, "k", uploadID); !IsNotFound(err) {
		t.Fatalf("expected upload row removed after complete, got err=%v", err)
	}
}

func TestUploadPartUnknownUpload(t *testing.T) {
	ctx := context.Background()
	sess, _ := newTestEngine(t)
	if _, err := CreateBucket(ctx, sess, "b"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	_, err := UploadPart(ctx, sess, "k", "bogus-upload", 1, bytes.NewReader([]byte("x")), 1)
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestInitiateMultipartReusesExistingObjectID(t *testing.T) {
	ctx := context.Background()
	sess, cfg := newTestEngine(t)
	if _, err := CreateBucket(ctx, sess, "b"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	existing, err := StoreItem(ctx, sess, cfg, "b", "k", HeaderSet{}, "", 1, bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("StoreItem: %v", err)
	}

	uploadID, err := InitiateMultipart(ctx, sess, cfg, "b", "k")
	if err != nil {
		t.Fatalf("InitiateMultipart: %v", err)
	}
	u, err := getUpload(ctx, sess, "k", uploadID)
	if err != nil {
		t.Fatalf("getUpload: %v", err)
	}
	if u.ObjectID != existing.ObjectID {
		t.Fatalf("ObjectID = %s, want reused %s", u.ObjectID, existing.ObjectID)
	}
	if u.Version != existing.Version+1 {
		t.Fatalf("Version = %d, want %d", u.Version, existing.Version+1)
	}
}
