package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"attendance/internal/project"
)

// DateLayout names the daily project.
const DateLayout = "2006-01-02"

// ProjectStore finds or creates a project by name.
type ProjectStore interface {
	EnsureNamed(ctx context.Context, name string) (project.Project, bool, error)
}

// EntryFiles creates a project's empty attendance list.
type EntryFiles interface {
	EnsureFile(ctx context.Context, projectID string) (bool, error)
}

// Daily creates the project for the current day once the cutoff hour has
// been reached.
type Daily struct {
	// OnCreate, when set, is called after a new daily project is stored.
	OnCreate func(ctx context.Context, p project.Project)

	projects   ProjectStore
	files      EntryFiles
	cutoffHour int
	logger     logrus.FieldLogger
	now        func() time.Time
}

// NewDaily builds the startup step. cutoffHour is local time, 0-23.
func NewDaily(projects ProjectStore, files EntryFiles, cutoffHour int, logger logrus.FieldLogger) *Daily {
	return &Daily{
		projects:   projects,
		files:      files,
		cutoffHour: cutoffHour,
		logger:     logger,
		now:        time.Now,
	}
}

// Run waits for the cutoff if needed, then ensures today's project and its
// attendance file exist. It returns ctx.Err() if cancelled while waiting.
func (d *Daily) Run(ctx context.Context) (project.Project, error) {
	now := d.now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), d.cutoffHour, 0, 0, 0, now.Location())
	if now.Before(cutoff) {
		wait := cutoff.Sub(now)
		d.logger.Infof("waiting until %s (%d seconds) before creating today's project", cutoff.Format("15:04"), int(wait.Seconds()))

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return project.Project{}, ctx.Err()
		}
		now = cutoff
	}

	today := now.Format(DateLayout)
	p, created, err := d.projects.EnsureNamed(ctx, today)
	if err != nil {
		return project.Project{}, fmt.Errorf("ensure project %s: %w", today, err)
	}
	if created {
		d.logger.Infof("created new project: %s", today)
		if d.OnCreate != nil {
			d.OnCreate(ctx, p)
		}
	} else {
		d.logger.Infof("project for %s already exists", today)
	}

	fileCreated, err := d.files.EnsureFile(ctx, p.ID)
	if err != nil {
		return project.Project{}, fmt.Errorf("ensure attendance file %s: %w", p.ID, err)
	}
	if fileCreated {
		d.logger.Infof("created empty attendance file for project ID %s", p.ID)
	} else {
		d.logger.Infof("attendance file for project ID %s already exists", p.ID)
	}
	return p, nil
}
