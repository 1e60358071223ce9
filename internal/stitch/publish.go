package stitch

import (
	"context"
	"fmt"

	"github.com/maauso/stitcher/internal/storage"
)

// Publisher makes a written output available remotely.
type Publisher interface {
	Publish(ctx context.Context, path string) (url string, err error)
}

// StoragePublisher uploads outputs through a storage.Storage.
type StoragePublisher struct {
	store storage.Storage
	key   func(path string) string
}

// NewStoragePublisher creates a StoragePublisher. key maps a local output
// path to the object key it is uploaded under.
func NewStoragePublisher(store storage.Storage, key func(path string) string) *StoragePublisher {
	return &StoragePublisher{store: store, key: key}
}

// Publish implements Publisher.
func (p *StoragePublisher) Publish(ctx context.Context, path string) (string, error) {
	f, err := p.store.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	url, err := p.store.Upload(ctx, p.key(path), f)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	return url, nil
}
