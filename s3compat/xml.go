// Package s3compat provides the Amazon S3 XML wire schema and header
// conventions the gateway speaks, adapted from the teacher's
// ais/s3compat package onto the (bucket, object, version) model in
// package engine.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package s3compat

import (
	"encoding/xml"
	"strings"
	"time"
)

const s3Namespace = "http://s3.amazonaws.com/doc/2006-03-01/"

type (
	// ListAllMyBucketsResult is the GET / response body.
	ListAllMyBucketsResult struct {
		XMLName xml.Name       `xml:"ListAllMyBucketsResult"`
		Ns      string         `xml:"xmlns,attr"`
		Owner   Owner          `xml:"Owner"`
		Buckets []*BucketEntry `xml:"Buckets>Bucket"`
	}
	BucketEntry struct {
		Name         string `xml:"Name"`
		CreationDate string `xml:"CreationDate"`
	}
	Owner struct {
		ID          string `xml:"ID"`
		DisplayName string `xml:"DisplayName"`
	}

	// ListBucketResult is the GET /<bucket> response body (spec.md §4.4).
	ListBucketResult struct {
		XMLName        xml.Name   `xml:"ListBucketResult"`
		Ns             string     `xml:"xmlns,attr"`
		Name           string     `xml:"Name"`
		Prefix         string     `xml:"Prefix"`
		Marker         string     `xml:"Marker"`
		NextMarker     string     `xml:"NextMarker,omitempty"`
		Delimiter      string     `xml:"Delimiter,omitempty"`
		MaxKeys        int        `xml:"MaxKeys"`
		IsTruncated    bool       `xml:"IsTruncated"`
		Contents       []*ObjInfo `xml:"Contents"`
		CommonPrefixes []*Prefix  `xml:"CommonPrefixes,omitempty"`
	}
	ObjInfo struct {
		Key          string `xml:"Key"`
		LastModified string `xml:"LastModified"`
		ETag         string `xml:"ETag"`
		Size         int64  `xml:"Size"`
		Class        string `xml:"StorageClass"`
	}
	Prefix struct {
		Prefix string `xml:"Prefix"`
	}

	// AccessControlPolicy is a fixed-owner, full-control ACL stub (spec.md
	// §9 non-goal: auth/ACL enforcement is out of scope, but a GET ?acl
	// must still return something clients parse; PUT ?acl gets a 405).
	AccessControlPolicy struct {
		XMLName           xml.Name `xml:"AccessControlPolicy"`
		Ns                string   `xml:"xmlns,attr"`
		Owner             Owner    `xml:"Owner"`
		AccessControlList struct {
			Grant []Grant `xml:"Grant"`
		} `xml:"AccessControlList"`
	}
	Grant struct {
		Grantee struct {
			Type        string `xml:"xsi:type,attr"`
			ID          string `xml:"ID"`
			DisplayName string `xml:"DisplayName"`
		} `xml:"Grantee"`
		Permission string `xml:"Permission"`
	}

	// DeleteObjectsRequest is the POST /<bucket>?delete request body
	// (bulk delete, SPEC_FULL.md §4 expanded operation).
	DeleteObjectsRequest struct {
		XMLName xml.Name           `xml:"Delete"`
		Objects []DeleteObjectItem `xml:"Object"`
		Quiet   bool               `xml:"Quiet"`
	}
	DeleteObjectItem struct {
		Key string `xml:"Key"`
	}
	// DeleteResult is the bulk-delete response body.
	DeleteResult struct {
		XMLName xml.Name       `xml:"DeleteResult"`
		Ns      string         `xml:"xmlns,attr"`
		Deleted []DeletedEntry `xml:"Deleted,omitempty"`
		Errors  []DeleteError  `xml:"Error,omitempty"`
	}
	DeletedEntry struct {
		Key string `xml:"Key"`
	}
	DeleteError struct {
		Key     string `xml:"Key"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	}

	InitiateMultipartUploadResult struct {
		XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
		Ns       string   `xml:"xmlns,attr"`
		Bucket   string   `xml:"Bucket"`
		Key      string   `xml:"Key"`
		UploadID string   `xml:"UploadId"`
	}
	CompleteMultipartUpload struct {
		XMLName xml.Name              `xml:"CompleteMultipartUpload"`
		Parts   []CompletedPartUpload `xml:"Part"`
	}
	CompletedPartUpload struct {
		PartNumber int64  `xml:"PartNumber"`
		ETag       string `xml:"ETag"`
	}
	CompleteMultipartUploadResult struct {
		XMLName  xml.Name `xml:"CompleteMultipartUploadResult"`
		Ns       string   `xml:"xmlns,attr"`
		Location string   `xml:"Location"`
		Bucket   string   `xml:"Bucket"`
		Key      string   `xml:"Key"`
		ETag     string   `xml:"ETag"`
	}

	CopyObjectResult struct {
		XMLName      xml.Name `xml:"CopyObjectResult"`
		LastModified string   `xml:"LastModified"`
		ETag         string   `xml:"ETag"`
	}

	// Error is the canonical S3 error body (spec.md §7).
	Error struct {
		XMLName   xml.Name `xml:"Error"`
		Code      string   `xml:"Code"`
		Message   string   `xml:"Message"`
		Resource  string   `xml:"Resource,omitempty"`
		RequestID string   `xml:"RequestId,omitempty"`
	}
)

func NewListAllMyBucketsResult() *ListAllMyBucketsResult {
	return &ListAllMyBucketsResult{Ns: s3Namespace, Buckets: make([]*BucketEntry, 0)}
}

func NewListBucketResult() *ListBucketResult {
	return &ListBucketResult{Ns: s3Namespace, MaxKeys: 1000, Contents: make([]*ObjInfo, 0)}
}

func NewDeleteResult() *DeleteResult {
	return &DeleteResult{Ns: s3Namespace}
}

// MustMarshal renders v as an XML document with the standard header,
// mirroring the teacher's ListObjectResult.MustMarshal/CopyObjectResult.MustMarshal.
// Marshal failure here means a programming error in the schema, not bad
// input, so it panics rather than threading an error back through every
// handler -- same tradeoff the teacher makes with cmn.AssertNoErr.
func MustMarshal(v interface{}) []byte {
	b, err := xml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return []byte(xml.Header + string(b))
}

// FormatTime renders t as the RFC1123 timestamp S3 clients expect,
// substituting GMT for Go's UTC abbreviation (teacher's
// ais/s3compat/object.go FormatTime).
func FormatTime(t time.Time) string {
	s := t.UTC().Format(time.RFC1123)
	return strings.Replace(s, "UTC", "GMT", 1)
}
