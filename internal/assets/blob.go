// Package assets stores uploaded art. Image bytes live in a BlobStore
// (local directory or S3-compatible bucket); metadata lives in storage.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/youruser/cardsmith/internal/util"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps asset bytes under slash-separated keys.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// FSStore is a BlobStore backed by a local directory.
type FSStore struct {
	Root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := util.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("asset dir: %w", err)
	}
	return &FSStore{Root: root}, nil
}

// path maps a key inside Root; ".." segments cannot escape it.
func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("%w: empty key", ErrBlobNotFound)
	}
	return filepath.Join(s.Root, clean), nil
}

func (s *FSStore) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(p, data, 0o644)
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return b, err
}

// Delete removes the blob; a missing blob is not an error.
func (s *FSStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func extFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	}
	return ""
}
