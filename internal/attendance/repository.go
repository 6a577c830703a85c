package attendance

import (
	"context"

	"attendance/internal/store"
)

// Repository persists one entry list per project.
type Repository struct {
	paths  store.Paths
	locker store.Locker
}

// NewRepository creates a repo.
func NewRepository(paths store.Paths, locker store.Locker) *Repository {
	return &Repository{paths: paths, locker: locker}
}

func (r *Repository) file(projectID string) *store.ListFile[Entry] {
	return store.NewListFile[Entry](r.paths.AttendanceFile(projectID), "attendance:"+projectID, r.locker)
}

// List returns the project's entries, empty when none were saved.
func (r *Repository) List(ctx context.Context, projectID string) ([]Entry, error) {
	return r.file(projectID).Load(ctx)
}

// EnsureFile creates an empty entry list if the project has none.
func (r *Repository) EnsureFile(ctx context.Context, projectID string) (bool, error) {
	f := r.file(projectID)
	created := false
	err := f.Update(ctx, func(entries []Entry) ([]Entry, error) {
		exists, err := f.Exists()
		if err != nil {
			return nil, err
		}
		if exists {
			return entries, store.ErrSkipWrite
		}
		created = true
		return entries, nil
	})
	return created, err
}

// Replace overwrites the entry with the same id. It reports false and
// writes nothing when no entry matches.
func (r *Repository) Replace(ctx context.Context, projectID string, entry Entry) (bool, error) {
	found := false
	err := r.file(projectID).Update(ctx, func(entries []Entry) ([]Entry, error) {
		for i := range entries {
			if entries[i].ID == entry.ID {
				entries[i] = entry
				found = true
				return entries, nil
			}
		}
		return entries, store.ErrSkipWrite
	})
	return found, err
}

// Append adds entry at the end, assigning an unused id when it has none.
func (r *Repository) Append(ctx context.Context, projectID string, entry Entry) (Entry, error) {
	err := r.file(projectID).Update(ctx, func(entries []Entry) ([]Entry, error) {
		if entry.ID == "" {
			entry.ID = newID(entries)
		}
		return append(entries, entry), nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Delete removes the entry with entryID. The list is written back even when
// nothing matched.
func (r *Repository) Delete(ctx context.Context, projectID, entryID string) (bool, error) {
	removed := false
	err := r.file(projectID).Update(ctx, func(entries []Entry) ([]Entry, error) {
		kept := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if e.ID == entryID {
				removed = true
				continue
			}
			kept = append(kept, e)
		}
		return kept, nil
	})
	return removed, err
}

func newID(entries []Entry) string {
	taken := make(map[string]bool, len(entries))
	for _, e := range entries {
		taken[e.ID] = true
	}
	for {
		id := store.ShortID()
		if !taken[id] {
			return id
		}
	}
}
