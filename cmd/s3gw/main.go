// Package main is the s3gw executable: parses flags, brings up the
// cluster session, and serves the S3 gateway over HTTP.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitano/s3-scylla/cmn"
	"github.com/sitano/s3-scylla/engine"
	"github.com/sitano/s3-scylla/gateway"
	"github.com/sitano/s3-scylla/stats"
)

var cli struct {
	hostname           string
	port               int
	scyllaHosts        string
	scyllaPort         int
	chunkSize          int64
	chunksPerPartition int64
	username           string
	password            string
	compactionStrategy string
	keyspace           string

	logLevel    string
	readTimeout time.Duration
	writeTimeout time.Duration
}

func init() {
	flag.StringVar(&cli.hostname, "hostname", "", "virtual-host addressing suffix, e.g. s3.example.com")
	flag.IntVar(&cli.port, "port", 8080, "HTTP listen port")
	flag.StringVar(&cli.scyllaHosts, "scylla.hosts", "127.0.0.1", "comma-separated list of cluster contact points")
	flag.IntVar(&cli.scyllaPort, "scylla.port", 9042, "cluster CQL port")
	flag.Int64Var(&cli.chunkSize, "chunk_size", 1<<20, "bytes per chunk row")
	flag.Int64Var(&cli.chunksPerPartition, "chunks_per_partition", 64, "chunk rows per cluster partition")
	flag.StringVar(&cli.username, "username", "", "cluster auth username")
	flag.StringVar(&cli.password, "password", "", "cluster auth password")
	flag.StringVar(&cli.compactionStrategy, "compaction_strategy", "", "compaction strategy class appended to table DDL")
	flag.StringVar(&cli.keyspace, "keyspace", "s3gw", "keyspace name")

	flag.StringVar(&cli.logLevel, "log_level", "1", "glog: verbosity level (-v)")
	flag.DurationVar(&cli.readTimeout, "read_timeout", 30*time.Second, "HTTP server read timeout")
	flag.DurationVar(&cli.writeTimeout, "write_timeout", 30*time.Second, "HTTP server write timeout")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	setupLogging()
	defer glog.Flush()

	cfg := engine.Config{
		Hosts:              strings.Split(cli.scyllaHosts, ","),
		Port:               cli.scyllaPort,
		Keyspace:           cli.keyspace,
		Username:           cli.username,
		Password:           cli.password,
		CompactionStrategy: cli.compactionStrategy,
		ChunkSize:          cli.chunkSize,
		ChunksPerPartition: cli.chunksPerPartition,
	}
	cmn.InitIDGen(uint64(time.Now().UnixNano()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	sess, err := engine.Connect(ctx, cfg)
	cancel()
	if err != nil {
		glog.Errorf("connect: %v", err)
		return 1
	}
	defer sess.Close()

	reg := prometheus.NewRegistry()
	gw := &gateway.Gateway{
		Sess:         sess,
		Cfg:          cfg,
		MockHostname: cli.hostname,
		Metrics:      stats.NewRegistry(reg),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", gw)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cli.port),
		Handler:      mux,
		ReadTimeout:  cli.readTimeout,
		WriteTimeout: cli.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("s3gw: listening on %s (hostname=%q keyspace=%q)", srv.Addr, cli.hostname, cli.keyspace)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			glog.Errorf("listen: %v", err)
			return 1
		}
	case sig := <-sigCh:
		glog.Infof("s3gw: received %v, shutting down", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			glog.Errorf("shutdown: %v", err)
			return 1
		}
	}
	glog.Infoln("s3gw: terminated OK")
	return 0
}

// setupLogging maps --log_level onto glog's -v. --log_dir is glog's own
// flag and needs no mapping.
func setupLogging() {
	flag.Set("v", cli.logLevel)
}
