package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrSkipWrite returned from an Update func leaves the file untouched and
// makes Update succeed.
var ErrSkipWrite = errors.New("skip write")

// ShortID is the first 8 characters of a random UUID.
func ShortID() string {
	return uuid.NewString()[:8]
}

// ListFile is a JSON array persisted as a whole file. Every mutation is a
// read-modify-write of the full list under the locker key.
type ListFile[T any] struct {
	path   string
	key    string
	locker Locker
}

// NewListFile binds a file path to a lock key.
func NewListFile[T any](path, key string, locker Locker) *ListFile[T] {
	return &ListFile[T]{path: path, key: key, locker: locker}
}

// Load returns the stored list, or an empty list when the file is absent.
func (f *ListFile[T]) Load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadList[T](f.path)
}

// Update runs fn on the current list and writes its result back. When fn
// returns an error nothing is written.
func (f *ListFile[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	unlock, err := f.locker.Lock(ctx, f.key)
	if err != nil {
		return fmt.Errorf("lock %s: %w", f.key, err)
	}
	defer unlock()

	items, err := ReadList[T](f.path)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if errors.Is(err, ErrSkipWrite) {
		return nil
	}
	if err != nil {
		return err
	}
	return WriteJSON(f.path, items)
}

// Exists reports whether the backing file is present.
func (f *ListFile[T]) Exists() (bool, error) {
	_, err := os.Stat(f.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadList decodes a JSON array file; a missing file yields an empty list.
func ReadList[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// WriteJSON replaces path with the indented encoding of v. The new content
// is written to a temp file in the same directory and renamed over path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
