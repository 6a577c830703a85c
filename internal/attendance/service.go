package attendance

import (
	"context"

	"attendance/internal/apperr"
	"attendance/internal/spreadsheet"
	"attendance/internal/store"
)

// Projector selects columns out of a project's uploaded spreadsheet.
type Projector interface {
	Project(projectID string, columns []string) ([]spreadsheet.Row, error)
}

// UpsertInput is the body of a save-or-update request.
type UpsertInput struct {
	Title   string
	Columns []string
	Rows    []spreadsheet.Row
	EntryID string
}

// Service coordinates entry upserts against the spreadsheet store.
type Service struct {
	repo   *Repository
	sheets Projector
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, sheets Projector) *Service {
	return &Service{repo: repo, sheets: sheets}
}

// List returns the project's entries.
func (s *Service) List(ctx context.Context, projectID string) ([]Entry, error) {
	return s.repo.List(ctx, projectID)
}

// Upsert replaces the entry named by in.EntryID with the caller's rows, or
// when there is no such entry projects in.Columns out of the uploaded
// spreadsheet into a new entry.
func (s *Service) Upsert(ctx context.Context, projectID string, in UpsertInput) (Entry, string, error) {
	columns := in.Columns
	if columns == nil {
		columns = []string{}
	}

	if in.EntryID != "" {
		entry := Entry{
			ID:        in.EntryID,
			Title:     in.Title,
			Columns:   columns,
			Timestamp: store.Now(),
			Rows:      in.Rows,
		}
		found, err := s.repo.Replace(ctx, projectID, entry)
		if err != nil {
			return Entry{}, "", err
		}
		if found {
			return entry, StatusUpdated, nil
		}
	}

	rows, err := s.sheets.Project(projectID, columns)
	if err != nil {
		return Entry{}, "", err
	}
	if rows == nil {
		rows = []spreadsheet.Row{}
	}
	entry, err := s.repo.Append(ctx, projectID, Entry{
		Title:     in.Title,
		Columns:   columns,
		Timestamp: store.Now(),
		Rows:      rows,
	})
	if err != nil {
		return Entry{}, "", err
	}
	return entry, StatusSaved, nil
}

// Replace overwrites an existing entry. title, columns and rows must all be
// non-empty.
func (s *Service) Replace(ctx context.Context, projectID, entryID, title string, columns []string, rows []spreadsheet.Row) (Entry, error) {
	if title == "" || len(columns) == 0 || len(rows) == 0 {
		return Entry{}, apperr.Validation("Missing title, columns or rows")
	}
	entry := Entry{
		ID:        entryID,
		Title:     title,
		Columns:   columns,
		Timestamp: store.Now(),
		Rows:      rows,
	}
	found, err := s.repo.Replace(ctx, projectID, entry)
	if err != nil {
		return Entry{}, err
	}
	if !found {
		return Entry{}, apperr.NotFound("Entry not found")
	}
	return entry, nil
}

// Delete removes an entry. Deleting an absent entry succeeds.
func (s *Service) Delete(ctx context.Context, projectID, entryID string) (bool, error) {
	return s.repo.Delete(ctx, projectID, entryID)
}

// EnsureFile creates the project's empty entry list if missing.
func (s *Service) EnsureFile(ctx context.Context, projectID string) (bool, error) {
	return s.repo.EnsureFile(ctx, projectID)
}
