package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileBackend stores artifacts under a root directory on local disk.
type FileBackend struct {
	root string
}

// NewFileBackend creates the root directory if needed and returns a backend
// rooted there.
func NewFileBackend(root string) (*FileBackend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolving artifact root")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating artifact root")
	}
	return &FileBackend{root: abs}, nil
}

// Root returns the absolute artifact root directory.
func (f *FileBackend) Root() string {
	return f.root
}

// Path implements Backend.
func (f *FileBackend) Path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

// Write stores data at key, creating parent directories as needed. The
// write goes through a temp file and rename so a concurrent reader never
// sees a partial artifact.
func (f *FileBackend) Write(ctx context.Context, key string, data []byte) (SavedArtifact, error) {
	if err := ctx.Err(); err != nil {
		return SavedArtifact{}, err
	}
	path := f.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return SavedArtifact{}, errors.Wrapf(err, "creating directory for %s", key)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".iris-*")
	if err != nil {
		return SavedArtifact{}, errors.Wrap(err, "creating temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return SavedArtifact{}, errors.Wrapf(err, "writing %s", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return SavedArtifact{}, errors.Wrapf(err, "closing %s", key)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return SavedArtifact{}, errors.Wrapf(err, "renaming into place: %s", key)
	}
	return SavedArtifact{
		Path:   path,
		Size:   int64(len(data)),
		Format: formatForKey(key),
	}, nil
}

// Read loads the artifact at key.
func (f *FileBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", key)
	}
	return data, nil
}

// Exists implements Backend.
func (f *FileBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "statting %s", key)
	}
	return true, nil
}

func formatForKey(key string) string {
	ext := filepath.Ext(key)
	if len(ext) > 1 {
		return ext[1:]
	}
	return ""
}
