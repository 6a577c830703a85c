package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string    `json:"id"`
	When Timestamp `json:"when"`
}

func TestReadListMissingFile(t *testing.T) {
	items, err := ReadList[item](filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestReadListNullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "null.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o644))

	items, err := ReadList[item](path)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewListFile[item](filepath.Join(t.TempDir(), "items.json"), "items", NewKeyedMutex())

	now := Now()
	err := f.Update(ctx, func(items []item) ([]item, error) {
		return append(items, item{ID: "a", When: now}, item{ID: "b", When: now}), nil
	})
	require.NoError(t, err)

	got, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.True(t, now.Equal(got[0].When.Time))
}

func TestListFileUpdateErrorSkipsWrite(t *testing.T) {
	ctx := context.Background()
	f := NewListFile[item](filepath.Join(t.TempDir(), "items.json"), "items", NewKeyedMutex())

	boom := errors.New("boom")
	err := f.Update(ctx, func(items []item) ([]item, error) {
		return append(items, item{ID: "x"}), boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := f.Exists()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListFileConcurrentUpdatesKeepEveryWrite(t *testing.T) {
	ctx := context.Background()
	f := NewListFile[item](filepath.Join(t.TempDir(), "items.json"), "items", NewKeyedMutex())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.Update(ctx, func(items []item) ([]item, error) {
				return append(items, item{ID: "x"}), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestWriteJSONIsIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, []string{"a"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"a\"\n]", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestTimestampFormats(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-04T12:30:15.123456"`), &ts))
	assert.Equal(t, 2025, ts.Year())
	assert.Equal(t, 123456*int(time.Microsecond), ts.Nanosecond())

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-04T12:30:15.123456"`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`"2025-03-04T12:30:15"`), &ts))
	assert.Equal(t, 15, ts.Second())

	require.NoError(t, json.Unmarshal([]byte(`"2025-03-04T12:30:15Z"`), &ts))
	assert.False(t, ts.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestListFileSkipWrite(t *testing.T) {
	f := NewListFile[item](filepath.Join(t.TempDir(), "items.json"), "items", NewKeyedMutex())

	err := f.Update(context.Background(), func(items []item) ([]item, error) {
		return items, ErrSkipWrite
	})
	require.NoError(t, err)

	exists, err := f.Exists()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestShortID(t *testing.T) {
	a, b := ShortID(), ShortID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}
