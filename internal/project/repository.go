package project

import (
	"context"

	"attendance/internal/apperr"
	"attendance/internal/store"
)

const storeKey = "projects"

// Repository persists the project list in one JSON file.
type Repository struct {
	file *store.ListFile[Project]
}

// NewRepository creates a repo.
func NewRepository(paths store.Paths, locker store.Locker) *Repository {
	return &Repository{file: store.NewListFile[Project](paths.ProjectsFile, storeKey, locker)}
}

// List returns every project in creation order.
func (r *Repository) List(ctx context.Context) ([]Project, error) {
	return r.file.Load(ctx)
}

// Create appends a project. name and description must be present; an empty
// description is allowed.
func (r *Repository) Create(ctx context.Context, name, description *string) (Project, error) {
	if name == nil || description == nil {
		return Project{}, apperr.Validation("Missing name or description")
	}

	var created Project
	err := r.file.Update(ctx, func(projects []Project) ([]Project, error) {
		created = Project{
			ID:          newID(projects),
			Name:        *name,
			Description: *description,
			LastEdited:  store.Now(),
		}
		return append(projects, created), nil
	})
	if err != nil {
		return Project{}, err
	}
	return created, nil
}

// EnsureNamed returns the project called name, creating it with an empty
// description when absent. The lookup and the insert share one lock.
func (r *Repository) EnsureNamed(ctx context.Context, name string) (Project, bool, error) {
	var (
		found   Project
		created bool
	)
	err := r.file.Update(ctx, func(projects []Project) ([]Project, error) {
		for _, p := range projects {
			if p.Name == name {
				found = p
				return projects, store.ErrSkipWrite
			}
		}
		found = Project{
			ID:         newID(projects),
			Name:       name,
			LastEdited: store.Now(),
		}
		created = true
		return append(projects, found), nil
	})
	if err != nil {
		return Project{}, false, err
	}
	return found, created, nil
}

// newID returns a short id not used by any project in the list.
func newID(projects []Project) string {
	taken := make(map[string]bool, len(projects))
	for _, p := range projects {
		taken[p.ID] = true
	}
	for {
		id := store.ShortID()
		if !taken[id] {
			return id
		}
	}
}
