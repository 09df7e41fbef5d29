package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore keeps uploads under a directory and hands out file:// URIs.
type LocalStore struct {
	root string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("NewLocalStore: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("NewLocalStore: creating %s: %w", abs, err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) Save(ctx context.Context, name, contentType string, r io.Reader) (*Document, error) {
	now := time.Now().UTC()
	p := filepath.Join(s.root, filepath.FromSlash(objectName(now, name)))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("LocalStore.Save: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("LocalStore.Save: create %s: %w", p, err)
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(p)
		return nil, fmt.Errorf("LocalStore.Save: write %s: %w", p, err)
	}

	return &Document{
		URI:         "file://" + filepath.ToSlash(p),
		Name:        name,
		ContentType: DetectMIME(name, contentType),
		Size:        written,
		UploadedAt:  now,
	}, nil
}

// Fetch reads a file:// URI. Paths outside the root are rejected.
func (s *LocalStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "file://") {
		return nil, fmt.Errorf("invalid file URI: %s", uri)
	}
	p := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(uri, "file://")))
	if !strings.HasPrefix(p, s.root+string(os.PathSeparator)) {
		return nil, fmt.Errorf("LocalStore.Fetch: %s is outside the document root", uri)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("LocalStore.Fetch: %w", err)
	}
	return data, nil
}

var _ Store = (*LocalStore)(nil)
