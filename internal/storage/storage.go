// Package storage provides durable object storage backends. Pipeline stages
// depend on the ObjectStore interface; the filesystem backend serves
// development and tests, S3 serves production.
package storage

import "context"

// ObjectStore persists opaque blobs under hierarchical keys and derives a
// stable public URL for each stored object.
type ObjectStore interface {
	// Put writes data under key and returns the object's durable URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get reads the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// URL derives the public URL for key without touching the backend.
	URL(key string) string
}
