package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gocql/gocql"
)

// memStore is a tiny in-memory stand-in for the cluster, used to exercise
// the engine's business logic (and, via MemorySession, the gateway's
// HTTP handlers) without a running Cassandra/Scylla. It only understands
// the fixed set of statements this package issues.
type memStore struct {
	buckets  map[string]*Bucket // by name
	objects  map[string]*ObjectHeader
	versions map[string]*VersionHeader
	parts    map[string]*PartHeader
	chunks   map[string][]byte
	uploads  map[string]*MultipartUpload
}

func newMemStore() *memStore {
	return &memStore{
		buckets:  map[string]*Bucket{},
		objects:  map[string]*ObjectHeader{},
		versions: map[string]*VersionHeader{},
		parts:    map[string]*PartHeader{},
		chunks:   map[string][]byte{},
		uploads:  map[string]*MultipartUpload{},
	}
}

func objKey(bucketID, key string) string         { return bucketID + "\x00" + key }
func verKey(objectID string, v int64) string     { return objectID + "\x00" + itoa(v) }
func partKey(objectID string, v, no int64) string { return verKey(objectID, v) + "\x00" + itoa(no) }
func chunkKey(blobID string, p, ix int64) string  { return blobID + "\x00" + itoa(p) + "\x00" + itoa(ix) }
func uploadKey(key, uploadID string) string       { return key + "\x00" + uploadID }

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// MemorySession is a Session backed entirely by process memory -- no
// cluster, no network. It is exported so both this package's own tests
// and gateway/gateway_test.go can drive the engine end to end without a
// live Cassandra/Scylla.
type MemorySession struct{ store *memStore }

// NewMemorySession returns a fresh, empty in-memory cluster.
func NewMemorySession() *MemorySession { return &MemorySession{store: newMemStore()} }

// ChunkBytes exposes one stored chunk row for layout assertions (e.g.
// verifying SPEC_FULL.md §4.1's partition/ix formula directly).
func (s *MemorySession) ChunkBytes(blobID string, partition, ix int64) ([]byte, bool) {
	b, ok := s.store.chunks[chunkKey(blobID, partition, ix)]
	return b, ok
}

// ChunkCount reports how many chunk rows currently exist, for asserting
// an exact chunk count after a write (spec.md §8 property 3).
func (s *MemorySession) ChunkCount() int { return len(s.store.chunks) }

func (s *MemorySession) Query(stmt string, args ...interface{}) Query {
	return &memQuery{store: s.store, stmt: stmt, args: args}
}
func (s *MemorySession) Close() {}

type memQuery struct {
	store *memStore
	stmt  string
	args  []interface{}
}

func (q *memQuery) WithContext(ctx context.Context) Query { return q }

func (q *memQuery) Exec() error {
	switch q.stmt {
	case insertChunkCQL:
		blobID := q.args[0].(string)
		p := q.args[1].(int64)
		ix := q.args[2].(int64)
		data := append([]byte(nil), q.args[3].([]byte)...)
		q.store.chunks[chunkKey(blobID, p, ix)] = data
		return nil
	case insertPartCQL:
		objectID := q.args[0].(string)
		v := q.args[1].(int64)
		no := q.args[2].(int64)
		q.store.parts[partKey(objectID, v, no)] = &PartHeader{
			ObjectID: objectID, Version: v, PartNo: no,
			BlobID: q.args[3].(string), Digest: q.args[4].(string), Size: q.args[5].(int64),
		}
		return nil
	case insertVersionCQL:
		objectID := q.args[0].(string)
		v := q.args[1].(int64)
		q.store.versions[verKey(objectID, v)] = &VersionHeader{
			ObjectID: objectID, Version: v, BucketID: q.args[2].(string),
			ChunkSize: q.args[3].(int64), ChunksPerPartition: q.args[4].(int64),
			ContentType: q.args[5].(string), CreationDate: mustTime(q.args[6]),
			Size: q.args[7].(int64), PartsFlag: q.args[8].(bool),
			Digest: q.args[9].(string), Metadata: q.args[10].(string),
		}
		return nil
	case updateVersionCQL:
		objectID := q.args[4].(string)
		v := q.args[5].(int64)
		vh := q.store.versions[verKey(objectID, v)]
		vh.Digest = q.args[0].(string)
		vh.Size = q.args[1].(int64)
		vh.Metadata = q.args[2].(string)
		vh.PartsFlag = q.args[3].(bool)
		return nil
	case updateObjectCQL:
		bucketID := q.args[2].(string)
		key := q.args[3].(string)
		oh, ok := q.store.objects[objKey(bucketID, key)]
		if !ok {
			// UPDATE is an upsert in CQL too: a row with no object_id set
			// would appear here, not a missing row -- mirror that instead
			// of panicking on a nil header.
			oh = &ObjectHeader{BucketID: bucketID, Key: key}
			q.store.objects[objKey(bucketID, key)] = oh
		}
		oh.CurrentVersion = q.args[0].(int64)
		oh.Metadata = q.args[1].(string)
		return nil
	case deleteObjectCQL:
		bucketID := q.args[0].(string)
		key := q.args[1].(string)
		delete(q.store.objects, objKey(bucketID, key))
		return nil
	case insertUploadCQL:
		key := q.args[0].(string)
		uploadID := q.args[1].(string)
		q.store.uploads[uploadKey(key, uploadID)] = &MultipartUpload{
			Key: key, UploadID: uploadID, ObjectID: q.args[2].(string),
			Version: q.args[3].(int64), BucketID: q.args[4].(string), Metadata: q.args[5].(string),
		}
		return nil
	case deleteUploadCQL:
		key := q.args[0].(string)
		uploadID := q.args[1].(string)
		delete(q.store.uploads, uploadKey(key, uploadID))
		return nil
	default:
		return nil // DDL and other no-ops
	}
}

func mustTime(v interface{}) time.Time {
	return v.(time.Time)
}

func (q *memQuery) Scan(dest ...interface{}) error {
	switch q.stmt {
	case insertBucketIfNotExistsCQL:
		name := q.args[0].(string)
		applied := dest[0].(*bool)
		if _, exists := q.store.buckets[name]; exists {
			*applied = false
			return nil
		}
		q.store.buckets[name] = &Bucket{
			ID: q.args[1].(string), Name: name, CreationDate: mustTime(q.args[2]),
			Metadata: q.args[3].(string),
		}
		*applied = true
		return nil
	case selectBucketCQL:
		name := q.args[0].(string)
		b, ok := q.store.buckets[name]
		if !ok {
			return gocql.ErrNotFound
		}
		*dest[0].(*string) = b.ID
		*dest[1].(*time.Time) = b.CreationDate
		*dest[2].(*string) = b.Metadata
		return nil
	case insertObjectIfNotExistsCQL:
		bucketID := q.args[0].(string)
		key := q.args[1].(string)
		applied := dest[0].(*bool)
		if _, exists := q.store.objects[objKey(bucketID, key)]; exists {
			*applied = false
			return nil
		}
		q.store.objects[objKey(bucketID, key)] = &ObjectHeader{
			BucketID: bucketID, Key: key, ObjectID: q.args[2].(string),
			CurrentVersion: q.args[3].(int64), Metadata: q.args[4].(string),
		}
		*applied = true
		return nil
	case selectObjectCQL:
		bucketID := q.args[0].(string)
		key := q.args[1].(string)
		oh, ok := q.store.objects[objKey(bucketID, key)]
		if !ok {
			return gocql.ErrNotFound
		}
		*dest[0].(*string) = oh.ObjectID
		*dest[1].(*int64) = oh.CurrentVersion
		*dest[2].(*string) = oh.Metadata
		return nil
	case selectVersionCQL:
		objectID := q.args[0].(string)
		v := q.args[1].(int64)
		vh, ok := q.store.versions[verKey(objectID, v)]
		if !ok {
			return gocql.ErrNotFound
		}
		*dest[0].(*string) = vh.BucketID
		*dest[1].(*int64) = vh.ChunkSize
		*dest[2].(*int64) = vh.ChunksPerPartition
		*dest[3].(*string) = vh.ContentType
		*dest[4].(*time.Time) = vh.CreationDate
		*dest[5].(*string) = vh.Digest
		*dest[6].(*int64) = vh.Size
		*dest[7].(*bool) = vh.PartsFlag
		*dest[8].(*string) = vh.Metadata
		return nil
	case selectChunkCQL:
		blobID := q.args[0].(string)
		p := q.args[1].(int64)
		ix := q.args[2].(int64)
		data, ok := q.store.chunks[chunkKey(blobID, p, ix)]
		if !ok {
			return gocql.ErrNotFound
		}
		*dest[0].(*[]byte) = data
		return nil
	case selectUploadCQL:
		key := q.args[0].(string)
		uploadID := q.args[1].(string)
		u, ok := q.store.uploads[uploadKey(key, uploadID)]
		if !ok {
			return gocql.ErrNotFound
		}
		*dest[0].(*string) = u.ObjectID
		*dest[1].(*int64) = u.Version
		*dest[2].(*string) = u.BucketID
		*dest[3].(*string) = u.Metadata
		return nil
	default:
		return gocql.ErrNotFound
	}
}

type memIter struct {
	rows [][]interface{}
	i    int
}

func (it *memIter) Scan(dest ...interface{}) bool {
	if it.i >= len(it.rows) {
		return false
	}
	row := it.rows[it.i]
	it.i++
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case *[]byte:
			*d = v.([]byte)
		}
	}
	return true
}
func (it *memIter) Close() error { return nil }

func (q *memQuery) Iter() Iter {
	switch {
	case q.stmt == selectAllBucketsCQL:
		var names []string
		for n := range q.store.buckets {
			names = append(names, n)
		}
		sort.Strings(names)
		var rows [][]interface{}
		for _, n := range names {
			b := q.store.buckets[n]
			rows = append(rows, []interface{}{b.Name, b.ID, b.CreationDate, b.Metadata})
		}
		return &memIter{rows: rows}
	case q.stmt == selectPartsCQL:
		objectID := q.args[0].(string)
		v := q.args[1].(int64)
		var rows [][]interface{}
		for _, p := range q.store.parts {
			if p.ObjectID == objectID && p.Version == v {
				rows = append(rows, []interface{}{p.PartNo, p.BlobID, p.Digest, p.Size})
			}
		}
		return &memIter{rows: rows}
	case strings.HasPrefix(q.stmt, selectObjectsBaseCQL):
		return q.iterObjects()
	default:
		return &memIter{}
	}
}

func (q *memQuery) iterObjects() Iter {
	argIdx := 1 // args[0] is bucket_id
	bucketID := q.args[0].(string)

	var lowerOp, lowerVal string
	if strings.Contains(q.stmt, "key > ?") {
		lowerOp, lowerVal = ">", q.args[argIdx].(string)
		argIdx++
	} else if strings.Contains(q.stmt, "key >= ?") {
		lowerOp, lowerVal = ">=", q.args[argIdx].(string)
		argIdx++
	}
	var upperVal string
	hasUpper := strings.Contains(q.stmt, "key < ?")
	if hasUpper {
		upperVal = q.args[argIdx].(string)
		argIdx++
	}
	limit := q.args[argIdx].(int64)

	var keys []string
	for _, oh := range q.store.objects {
		if oh.BucketID != bucketID {
			continue
		}
		keys = append(keys, oh.Key)
	}
	sort.Strings(keys)

	var rows [][]interface{}
	for _, key := range keys {
		if lowerOp == ">" && !(key > lowerVal) {
			continue
		}
		if lowerOp == ">=" && !(key >= lowerVal) {
			continue
		}
		if hasUpper && !(key < upperVal) {
			continue
		}
		oh := q.store.objects[objKey(bucketID, key)]
		rows = append(rows, []interface{}{oh.Key, oh.Metadata})
		if int64(len(rows)) >= limit {
			break
		}
	}
	return &memIter{rows: rows}
}
