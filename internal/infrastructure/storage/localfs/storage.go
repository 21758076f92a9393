package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dkravets/ragline/internal/core/domain"
	"github.com/dkravets/ragline/internal/core/ports"
)

// Storage is a filesystem BlobStore for local development. Buckets map to
// directories under the base path.
type Storage struct {
	basePath string
}

var _ ports.BlobStore = (*Storage)(nil)

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/blobs"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) Upload(_ context.Context, bucket, key string, data io.Reader, _ int64) error {
	dir := filepath.Join(s.basePath, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bucket dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, key))
	if err != nil {
		return fmt.Errorf("create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write blob file: %w", err)
	}
	return nil
}

func (s *Storage) Download(_ context.Context, bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.basePath, bucket, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrEmptyDownload, "read blob file", err)
		}
		return nil, fmt.Errorf("read blob file: %w", err)
	}
	return data, nil
}
