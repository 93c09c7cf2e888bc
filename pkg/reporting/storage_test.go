package reporting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioTime = time.Date(2024, 9, 27, 14, 0, 0, 0, time.UTC)

func newStorage(t *testing.T, keepLastN int) *ResponseStorage {
	t.Helper()
	s, err := NewResponseStorage(filepath.Join(t.TempDir(), "responses"), keepLastN, NewNopLogger())
	require.NoError(t, err)
	return s
}

func TestStorageSaveAndLoad(t *testing.T) {
	s := newStorage(t, 10)

	type payload struct {
		Query  string `json:"query"`
		Routes int    `json:"routes"`
	}

	path, err := s.Save(scenarioTime, payload{Query: "water to shelters", Routes: 2})
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "response-20240927-140000")

	var got payload
	require.NoError(t, s.Load(path, &got))
	assert.Equal(t, "water to shelters", got.Query)
	assert.Equal(t, 2, got.Routes)
}

func TestStorageCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "responses")
	s, err := NewResponseStorage(dir, 5, NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, dir, s.GetOutputDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStorageListNewestFirst(t *testing.T) {
	s := newStorage(t, 10)

	for i := 0; i < 3; i++ {
		_, err := s.Save(scenarioTime.Add(time.Duration(i)*time.Hour), map[string]int{"n": i})
		require.NoError(t, err)
	}

	paths, err := s.List()
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Contains(t, filepath.Base(paths[0]), "response-20240927-160000")
	assert.Contains(t, filepath.Base(paths[2]), "response-20240927-140000")
}

func TestStorageListIgnoresForeignFiles(t *testing.T) {
	s := newStorage(t, 10)
	require.NoError(t, os.WriteFile(filepath.Join(s.GetOutputDir(), "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.GetOutputDir(), "archive"), 0755))

	paths, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestStorageKeepsLastN(t *testing.T) {
	s := newStorage(t, 2)

	for i := 0; i < 5; i++ {
		_, err := s.Save(scenarioTime.Add(time.Duration(i)*time.Minute), map[string]int{"n": i})
		require.NoError(t, err)
	}

	paths, err := s.List()
	require.NoError(t, err)
	require.Len(t, paths, 2)

	// The two newest survive.
	assert.Contains(t, filepath.Base(paths[0]), "response-20240927-140400")
	assert.Contains(t, filepath.Base(paths[1]), "response-20240927-140300")
}

func TestStorageLoadMissingFile(t *testing.T) {
	s := newStorage(t, 10)
	var out map[string]any
	assert.Error(t, s.Load(filepath.Join(s.GetOutputDir(), "gone.json"), &out))
}
