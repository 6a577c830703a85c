package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"attendance/internal/apperr"
	"attendance/internal/store"
)

// Store keeps one uploaded spreadsheet per project.
type Store struct {
	paths  store.Paths
	locker store.Locker
}

// NewStore creates a store rooted at paths.UploadDir.
func NewStore(paths store.Paths, locker store.Locker) *Store {
	return &Store{paths: paths, locker: locker}
}

// Save replaces the project's spreadsheet with the content of r.
func (s *Store) Save(ctx context.Context, projectID string, r io.Reader) error {
	unlock, err := s.locker.Lock(ctx, "upload:"+projectID)
	if err != nil {
		return fmt.Errorf("lock upload %s: %w", projectID, err)
	}
	defer unlock()

	path := s.paths.UploadFile(projectID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+projectID+".*")
	if err != nil {
		return fmt.Errorf("temp upload file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write upload %s: %w", projectID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close upload %s: %w", projectID, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace upload %s: %w", projectID, err)
	}
	return nil
}

// Parse loads the project's spreadsheet. A missing upload is NotFound,
// anything unreadable is a processing error.
func (s *Store) Parse(projectID string) (*Table, error) {
	data, err := os.ReadFile(s.paths.UploadFile(projectID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("Excel file not found")
	}
	if err != nil {
		return nil, apperr.Processing(err)
	}
	table, err := Parse(data)
	if err != nil {
		return nil, apperr.Processing(err)
	}
	return table, nil
}

// Project parses the spreadsheet and selects columns from every row.
func (s *Store) Project(projectID string, columns []string) ([]Row, error) {
	table, err := s.Parse(projectID)
	if err != nil {
		return nil, err
	}
	return table.Project(columns)
}
