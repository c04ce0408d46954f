package chatstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileBackend keeps each key in <dir>/<key>.json. Writes go through a temp
// file and a rename so a crash never leaves a half-written collection.
type FileBackend struct {
	dir string
}

var _ Backend = &FileBackend{}

func NewFileBackend(dir string) (*FileBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("file chat backend: empty dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "file chat backend: create dir")
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *FileBackend) Load(_ context.Context, key string) ([]byte, bool, error) {
	if b == nil {
		return nil, false, errors.New("file chat backend: backend is nil")
	}
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "file chat backend: read")
	}
	return data, true, nil
}

func (b *FileBackend) Save(_ context.Context, key string, data []byte) error {
	if b == nil {
		return errors.New("file chat backend: backend is nil")
	}
	tmp, err := os.CreateTemp(b.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "file chat backend: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file chat backend: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file chat backend: close temp file")
	}
	if err := os.Rename(tmpName, b.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file chat backend: rename")
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
