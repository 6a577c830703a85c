package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance/internal/attendance"
	"attendance/internal/project"
	"attendance/internal/spreadsheet"
	"attendance/internal/store"
)

type env struct {
	projects *project.Repository
	entries  *attendance.Service
	paths    store.Paths
}

func newEnv(t *testing.T) env {
	t.Helper()
	paths := store.NewPaths(t.TempDir())
	require.NoError(t, paths.Ensure())
	locker := store.NewKeyedMutex()
	repo := attendance.NewRepository(paths, locker)
	return env{
		projects: project.NewRepository(paths, locker),
		entries:  attendance.NewService(repo, spreadsheet.NewStore(paths, locker)),
		paths:    paths,
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRunAfterCutoffCreatesProjectAndFile(t *testing.T) {
	e := newEnv(t)
	d := NewDaily(e.projects, e.entries, 12, quietLogger())
	d.now = func() time.Time { return time.Date(2025, 6, 3, 14, 0, 0, 0, time.Local) }

	p, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-03", p.Name)
	assert.Equal(t, "", p.Description)

	exists, err := store.NewListFile[attendance.Entry](e.paths.AttendanceFile(p.ID), "", store.NewKeyedMutex()).Exists()
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunIsIdempotent(t *testing.T) {
	e := newEnv(t)
	d := NewDaily(e.projects, e.entries, 12, quietLogger())
	d.now = func() time.Time { return time.Date(2025, 6, 3, 12, 0, 0, 0, time.Local) }
	var created []string
	d.OnCreate = func(_ context.Context, p project.Project) { created = append(created, p.ID) }

	first, err := d.Run(context.Background())
	require.NoError(t, err)
	second, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{first.ID}, created)

	projects, err := e.projects.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestRunRecreatesMissingAttendanceFile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	existing, _, err := e.projects.EnsureNamed(ctx, "2025-06-03")
	require.NoError(t, err)

	d := NewDaily(e.projects, e.entries, 12, quietLogger())
	d.now = func() time.Time { return time.Date(2025, 6, 3, 18, 0, 0, 0, time.Local) }

	p, err := d.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, p.ID)

	entries, err := e.entries.List(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunWaitsForCutoff(t *testing.T) {
	e := newEnv(t)
	d := NewDaily(e.projects, e.entries, 12, quietLogger())
	noon := time.Date(2025, 6, 3, 12, 0, 0, 0, time.Local)
	d.now = func() time.Time { return noon.Add(-30 * time.Millisecond) }

	start := time.Now()
	p, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	assert.Equal(t, "2025-06-03", p.Name)
}

func TestRunCancelledWhileWaiting(t *testing.T) {
	e := newEnv(t)
	d := NewDaily(e.projects, e.entries, 12, quietLogger())
	d.now = func() time.Time { return time.Date(2025, 6, 3, 8, 0, 0, 0, time.Local) }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	projects, err := e.projects.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects, "nothing is created when the wait is cancelled")
}
