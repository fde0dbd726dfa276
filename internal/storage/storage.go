// Package storage keeps uploaded recordings in a temporary directory and
// optionally publishes written tracks to S3.
package storage

import (
	"context"
	"io"
)

// Storage defines temporary file handling and track publication.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns its path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open opens a local file for reading.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish uploads data under key and returns its URL.
	// Returns ErrPublishNotConfigured when no bucket is configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
