package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupIndexAll(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"search", "checkout", ".cache", "node_modules"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0644))

	legacy := filepath.Join(t.TempDir(), "legacy-app")
	index := NewGroupIndex(root, map[string]string{"legacy": legacy})

	groups, err := index.All()
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{Name: "checkout", Root: filepath.Join(root, "checkout")},
		{Name: "legacy", Root: legacy},
		{Name: "search", Root: filepath.Join(root, "search")},
	}, groups)
}

func TestGroupIndexAllMissingRoot(t *testing.T) {
	index := NewGroupIndex(filepath.Join(t.TempDir(), "missing"), nil)

	_, err := index.All()
	assert.Error(t, err)
}

func TestGroupIndexResolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "checkout"), 0755))
	index := NewGroupIndex(root, map[string]string{"legacy": "/srv/legacy"})

	groups := index.Resolve([]string{"legacy", " checkout ", "checkout", "", "unknown"})
	assert.Equal(t, []Group{
		{Name: "legacy", Root: "/srv/legacy"},
		{Name: "checkout", Root: filepath.Join(root, "checkout")},
		{Name: "unknown", Root: filepath.Join(root, "unknown")},
	}, groups)
}
