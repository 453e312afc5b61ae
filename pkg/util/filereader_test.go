package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReader_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "App.jsx")
	content := `import { Button } from "@mrc/ui";`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reader := NewFileReader(nil)

	var got string
	err := reader.Read(path, func(data []byte) error {
		got = string(data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, content, got)

	stats := reader.Stats()
	assert.Equal(t, int64(1), stats.FilesRead)
	assert.Equal(t, int64(len(content)), stats.BytesRead)
}

func TestFileReader_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.js")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	data, err := NewFileReader(nil).ReadAll(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFileReader_ReadAllCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.js")
	content := strings.Repeat("// line\n", 2000)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	data, err := NewFileReader(nil).ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "copy must survive unmapping")
}

func TestFileReader_MissingFile(t *testing.T) {
	err := NewFileReader(nil).Read(filepath.Join(t.TempDir(), "nope.js"), func([]byte) error { return nil })
	assert.Error(t, err)
}

func TestFileReader_Directory(t *testing.T) {
	err := NewFileReader(nil).Read(t.TempDir(), func([]byte) error { return nil })
	assert.Error(t, err)
}

func TestFileReader_CallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.js")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	err := NewFileReader(nil).Read(path, func([]byte) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}
