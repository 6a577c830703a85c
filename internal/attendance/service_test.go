package attendance_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance/internal/apperr"
	"attendance/internal/attendance"
	"attendance/internal/spreadsheet"
	"attendance/internal/spreadsheet/spreadsheettest"
	"attendance/internal/store"
)

type fixture struct {
	paths  store.Paths
	sheets *spreadsheet.Store
	svc    *attendance.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	paths := store.NewPaths(t.TempDir())
	require.NoError(t, paths.Ensure())
	locker := store.NewKeyedMutex()
	sheets := spreadsheet.NewStore(paths, locker)
	repo := attendance.NewRepository(paths, locker)
	return fixture{paths: paths, sheets: sheets, svc: attendance.NewService(repo, sheets)}
}

func (f fixture) upload(t *testing.T, projectID string, rows [][]any) {
	t.Helper()
	data := spreadsheettest.XLSX(t, rows)
	require.NoError(t, f.sheets.Save(context.Background(), projectID, bytes.NewReader(data)))
}

func TestUpsertProjectsSpreadsheetColumns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.upload(t, "p1", [][]any{{"Name", "Age"}, {"Alice", 30}})

	entry, status, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{Title: "T", Columns: []string{"Name"}})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusSaved, status)
	assert.Len(t, entry.ID, 8)

	entries, err := f.svc.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "T", entries[0].Title)
	assert.Equal(t, []string{"Name"}, entries[0].Columns)
	assert.Equal(t, []spreadsheet.Row{{"Name": "Alice"}}, entries[0].Rows)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestUpsertWithEntryIDReplacesInPlace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.upload(t, "p1", [][]any{{"Name", "Age"}, {"Alice", 30}})

	first, _, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{Title: "first", Columns: []string{"Name"}})
	require.NoError(t, err)
	second, _, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{Title: "second", Columns: []string{"Age"}})
	require.NoError(t, err)

	rows := []spreadsheet.Row{{"Name": "Bob", "Status": "present"}}
	updated, status, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{
		Title:   "renamed",
		Columns: []string{"Name", "Status"},
		Rows:    rows,
		EntryID: first.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusUpdated, status)
	assert.Equal(t, first.ID, updated.ID)

	entries, err := f.svc.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, "renamed", entries[0].Title)
	assert.Equal(t, []string{"Name", "Status"}, entries[0].Columns)
	assert.Equal(t, rows, entries[0].Rows)
	assert.False(t, entries[0].Timestamp.Before(first.Timestamp.Time))
	assert.Equal(t, second.ID, entries[1].ID)
}

func TestUpsertUnknownEntryIDFallsBackToSpreadsheet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.upload(t, "p1", [][]any{{"Name"}, {"Alice"}})

	entry, status, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{Title: "T", Columns: []string{"Name"}, EntryID: "missing1"})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusSaved, status)
	assert.NotEqual(t, "missing1", entry.ID)
}

func TestUpsertWithoutUploadIsNotFound(t *testing.T) {
	f := setup(t)

	_, _, err := f.svc.Upsert(context.Background(), "p1", attendance.UpsertInput{Title: "T", Columns: []string{"Name"}})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.EqualError(t, err, "Excel file not found")
}

func TestUpsertMissingColumnIsProcessingError(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.upload(t, "p1", [][]any{{"Name"}, {"Alice"}})

	_, _, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{Title: "T", Columns: []string{"Email"}})
	assert.Equal(t, apperr.KindProcessing, apperr.KindOf(err))

	entries, err := f.svc.List(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReplace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.upload(t, "p1", [][]any{{"Name"}, {"Alice"}})
	created, _, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{Title: "T", Columns: []string{"Name"}})
	require.NoError(t, err)

	rows := []spreadsheet.Row{{"Name": "Carol"}}
	updated, err := f.svc.Replace(ctx, "p1", created.ID, "T2", []string{"Name"}, rows)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	entries, err := f.svc.List(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "T2", entries[0].Title)
	assert.Equal(t, rows, entries[0].Rows)
}

func TestReplaceValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rows := []spreadsheet.Row{{"Name": "Carol"}}

	cases := map[string]struct {
		title   string
		columns []string
		rows    []spreadsheet.Row
	}{
		"missing title":   {"", []string{"Name"}, rows},
		"missing columns": {"T", nil, rows},
		"empty columns":   {"T", []string{}, rows},
		"missing rows":    {"T", []string{"Name"}, nil},
		"empty rows":      {"T", []string{"Name"}, []spreadsheet.Row{}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Replace(ctx, "p1", "abc", tc.title, tc.columns, tc.rows)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestReplaceUnknownEntry(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Replace(context.Background(), "p1", "nope", "T", []string{"Name"}, []spreadsheet.Row{{"Name": "x"}})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.upload(t, "p1", [][]any{{"Name"}, {"Alice"}})
	created, _, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{Title: "T", Columns: []string{"Name"}})
	require.NoError(t, err)

	removed, err := f.svc.Delete(ctx, "p1", "unknown")
	require.NoError(t, err)
	assert.False(t, removed)
	entries, err := f.svc.List(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	removed, err = f.svc.Delete(ctx, "p1", created.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	entries, err = f.svc.List(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnsureFile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.svc.EnsureFile(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(f.paths.AttendanceFile("p1"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	created, err = f.svc.EnsureFile(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEntryJSONShape(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.upload(t, "p1", [][]any{{"Name", "Age"}, {"Alice", 30}})
	_, _, err := f.svc.Upsert(ctx, "p1", attendance.UpsertInput{Title: "T", Columns: []string{"Name", "Age"}})
	require.NoError(t, err)

	data, err := os.ReadFile(f.paths.AttendanceFile("p1"))
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Contains(t, raw[0], "_id")
	assert.Contains(t, raw[0], "timestamp")
	assert.Equal(t, []any{map[string]any{"Name": "Alice", "Age": float64(30)}}, raw[0]["rows"])
}
