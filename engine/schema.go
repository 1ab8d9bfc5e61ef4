package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/golang/glog"
)

// Query and Iter narrow gocql's surface to what the engine needs so that
// every other file in this package can be driven by a fake in tests
// without standing up a cluster.
type (
	Query interface {
		WithContext(ctx context.Context) Query
		Exec() error
		Scan(dest ...interface{}) error
		Iter() Iter
	}
	Iter interface {
		Scan(dest ...interface{}) bool
		Close() error
	}
	// Session is the engine's view of a long-lived cluster connection.
	Session interface {
		Query(stmt string, args ...interface{}) Query
		Close()
	}
)

// gocqlSession adapts *gocql.Session to Session.
type gocqlSession struct{ sess *gocql.Session }

func (s *gocqlSession) Query(stmt string, args ...interface{}) Query {
	return &gocqlQuery{q: s.sess.Query(stmt, args...)}
}
func (s *gocqlSession) Close() { s.sess.Close() }

type gocqlQuery struct{ q *gocql.Query }

func (q *gocqlQuery) WithContext(ctx context.Context) Query {
	q.q = q.q.WithContext(ctx)
	return q
}
func (q *gocqlQuery) Exec() error                      { return q.q.Exec() }
func (q *gocqlQuery) Scan(dest ...interface{}) error   { return q.q.Scan(dest...) }
func (q *gocqlQuery) Iter() Iter                       { return &gocqlIter{it: q.q.Iter()} }

type gocqlIter struct{ it *gocql.Iter }

func (i *gocqlIter) Scan(dest ...interface{}) bool { return i.it.Scan(dest...) }
func (i *gocqlIter) Close() error                  { return i.it.Close() }

const keyspaceDDL = `CREATE KEYSPACE IF NOT EXISTS %s
WITH replication = {'class': 'NetworkTopologyStrategy', 'replication_factor': 3}
AND durable_writes = true`

var tableDDL = []string{
	`CREATE TABLE IF NOT EXISTS buckets (
		name text PRIMARY KEY,
		bucket_id text,
		creation_date timestamp,
		metadata_json text
	)`,
	`CREATE TABLE IF NOT EXISTS objects (
		bucket_id text,
		key text,
		object_id text,
		current_version bigint,
		metadata_json text,
		PRIMARY KEY (bucket_id, key)
	) WITH CLUSTERING ORDER BY (key ASC)`,
	`CREATE TABLE IF NOT EXISTS versions (
		object_id text,
		version bigint,
		bucket_id text,
		chunk_size bigint,
		chunks_per_partition bigint,
		content_type text,
		creation_date timestamp,
		digest text,
		size bigint,
		parts_flag boolean,
		metadata_json text,
		PRIMARY KEY (object_id, version)
	) WITH CLUSTERING ORDER BY (version DESC)`,
	`CREATE TABLE IF NOT EXISTS parts (
		object_id text,
		version bigint,
		part_no bigint,
		blob_id text,
		digest text,
		size bigint,
		PRIMARY KEY ((object_id, version), part_no)
	) WITH CLUSTERING ORDER BY (part_no ASC)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		blob_id text,
		partition bigint,
		ix bigint,
		data_blob blob,
		PRIMARY KEY ((blob_id, partition), ix)
	) WITH CLUSTERING ORDER BY (ix ASC)`,
	`CREATE TABLE IF NOT EXISTS multipart_uploads (
		key text,
		upload_id text,
		object_id text,
		version bigint,
		bucket_id text,
		metadata_json text,
		PRIMARY KEY (key, upload_id)
	)`,
}

// withCompaction appends the configured compaction strategy to a table
// DDL statement, if one was set on the command line.
func withCompaction(ddl, strategy string) string {
	if strategy == "" {
		return ddl
	}
	return fmt.Sprintf("%s WITH compaction = {'class': '%s'}", ddl, strategy)
}

// Connect opens the long-lived cluster session, creating the keyspace
// and tables on first boot (spec.md §2 "Schema & session manager").
func Connect(ctx context.Context, cfg Config) (Session, error) {
	boot := gocql.NewCluster(cfg.Hosts...)
	boot.Port = cfg.Port
	boot.Timeout = 10 * time.Second
	boot.Consistency = gocql.Quorum
	if cfg.Username != "" {
		boot.Authenticator = gocql.PasswordAuthenticator{Username: cfg.Username, Password: cfg.Password}
	}

	bootSess, err := boot.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to cluster: %w", err)
	}
	ddl := fmt.Sprintf(keyspaceDDL, cfg.Keyspace)
	if err := bootSess.Query(ddl).WithContext(ctx).Exec(); err != nil {
		bootSess.Close()
		return nil, fmt.Errorf("create keyspace %s: %w", cfg.Keyspace, err)
	}
	bootSess.Close()

	main := gocql.NewCluster(cfg.Hosts...)
	main.Port = cfg.Port
	main.Keyspace = cfg.Keyspace
	main.Timeout = 10 * time.Second
	main.Consistency = gocql.Quorum
	if cfg.Username != "" {
		main.Authenticator = gocql.PasswordAuthenticator{Username: cfg.Username, Password: cfg.Password}
	}
	sess, err := main.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", cfg.Keyspace, err)
	}

	wrapped := &gocqlSession{sess: sess}
	for i, ddl := range tableDDL {
		stmt := withCompaction(ddl, cfg.CompactionStrategy)
		if err := wrapped.Query(stmt).WithContext(ctx).Exec(); err != nil {
			sess.Close()
			return nil, fmt.Errorf("create table #%d: %w", i, err)
		}
	}
	glog.Infof("engine: keyspace %s ready on %v", cfg.Keyspace, cfg.Hosts)
	return wrapped, nil
}
