// Package storage mirrors finished artifacts to S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// ObjectStorage is the subset of object storage the artifact archiver needs.
type ObjectStorage interface {
	// Upload stores an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL of key.
	GetURL(key string) string

	// Exists reports whether key is already stored.
	Exists(ctx context.Context, key string) (bool, error)

	// EnsureBucket creates the bucket when it does not exist yet.
	EnsureBucket(ctx context.Context) error
}
