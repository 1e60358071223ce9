// Package storage provides staging and publishing of rendered files.
// It defines the Storage interface (port) and implementations for local disk
// and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for staging an encode and delivering the result.
// An encode is written to a reserved staging path and promoted over the final
// path only once it has succeeded.
type Storage interface {
	// Reserve creates an empty staging file and returns its path.
	// The pattern is passed to os.CreateTemp, so "out_*.mp4" keeps the extension.
	Reserve(ctx context.Context, pattern string) (path string, err error)

	// Promote moves a staged file to dst, replacing dst if it exists.
	Promote(ctx context.Context, staged, dst string) error

	// Open returns a reader for a local file.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified staging files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Upload publishes data under key and returns its URL.
	// Returns ErrS3NotConfigured if no remote store is configured.
	Upload(ctx context.Context, key string, data io.Reader) (url string, err error)
}
