package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"
)

// GCSBackend stores each key as an object gs://<bucket>/<prefix>/<key>.json.
type GCSBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSBackend creates a storage client using Application Default Credentials.
func NewGCSBackend(ctx context.Context, bucket, prefix string) (*GCSBackend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSBackend: create storage client: %w", err)
	}
	return NewGCSBackendWithClient(client, bucket, prefix), nil
}

// NewGCSBackendWithClient uses an existing client. The backend takes ownership of it.
func NewGCSBackendWithClient(client *storage.Client, bucket, prefix string) *GCSBackend {
	return &GCSBackend{client: client, bucket: bucket, prefix: prefix}
}

func (g *GCSBackend) object(key string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(path.Join(g.prefix, key+".json"))
}

func (g *GCSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := g.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GCSBackend.Get: reading object %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("GCSBackend.Get: reading bytes: %w", err)
	}
	return data, nil
}

func (g *GCSBackend) Put(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.object(key).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("GCSBackend.Put: writing %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCSBackend.Put: finalize upload: %w", err)
	}
	return nil
}

func (g *GCSBackend) Delete(ctx context.Context, key string) error {
	err := g.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("GCSBackend.Delete: %w", err)
	}
	return nil
}

func (g *GCSBackend) Close() error {
	return g.client.Close()
}

var _ Backend = (*GCSBackend)(nil)
