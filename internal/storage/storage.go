// Package storage stores uploaded files in an external object store.
package storage

import (
	"context"
	"fmt"
	"io"

	"InternHub-backend/internal/config"
)

// Backend names reported by Storage.Backend and used in metrics labels.
const (
	BackendGCS      = "gcs"
	BackendMinIO    = "minio"
	BackendDatabase = "db"
)

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Storage is an object store client. Implementations stream content and
// are safe for concurrent use.
type Storage interface {
	// Put uploads size bytes from r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns the object content, which the caller must close.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Backend() string
}

// New builds the store selected by cfg.Driver. It returns nil, nil for the
// "db" driver, in which case file content is kept in the database.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", BackendDatabase:
		return nil, nil
	case BackendGCS:
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentials)
	case BackendMinIO:
		return NewMinIO(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
