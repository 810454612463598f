// Package storage keeps uploaded PDFs and hands out expiring download links.
package storage

import (
	"context"
	"errors"
	"io"
)

// Buckets used by the portal.
const (
	BucketAssignments = "assignments"
	BucketSubmissions = "submissions"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// BlobStore stores objects addressed by bucket and key. Put overwrites.
type BlobStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader) error
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// KnownBucket reports whether the bucket is one the portal serves.
func KnownBucket(bucket string) bool {
	return bucket == BucketAssignments || bucket == BucketSubmissions
}
