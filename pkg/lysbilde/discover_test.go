package lysbilde

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		dest := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
		require.NoError(t, os.WriteFile(dest, []byte("x"), 0o644))
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"root.jpg",
		"2025-china-trip/b.jpg",
		"2025-china-trip/a.png",
		"2025-china-trip/shanghai/c.jpg",
		"2025-china-trip/notes.txt",
	)

	root, err := Discover(dir)
	require.NoError(t, err)

	assert.Equal(t, "", root.Path)
	require.Len(t, root.Photos, 1)
	assert.Equal(t, "root", root.Photos[0].Stem)

	require.Len(t, root.Children, 1)
	trip := root.Children[0]
	assert.Equal(t, "2025 China Trip", trip.Name)
	assert.Equal(t, "2025-china-trip", trip.Slug)
	assert.Equal(t, "2025-china-trip", trip.Path)

	// Photos sorted by stem; the text file never shows up.
	require.Len(t, trip.Photos, 2)
	assert.Equal(t, "a", trip.Photos[0].Stem)
	assert.Equal(t, "b", trip.Photos[1].Stem)

	require.Len(t, trip.Children, 1)
	assert.Equal(t, "2025-china-trip/shanghai", trip.Children[0].Path)
	assert.Equal(t, 4, root.PhotoCount())
}

func TestDiscoverPrunesEmptyDirs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "keep/a.jpg", "empty/readme.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "reallyempty"), 0o755))

	root, err := Discover(dir)
	require.NoError(t, err)

	require.Len(t, root.Children, 1)
	assert.Equal(t, "keep", root.Children[0].Slug)
}

func TestDiscoverKeepsEmptyParentOfPhotos(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "parent/child/a.jpg")

	root, err := Discover(dir)
	require.NoError(t, err)

	require.Len(t, root.Children, 1)
	parent := root.Children[0]
	assert.Equal(t, "parent", parent.Slug)
	assert.Empty(t, parent.Photos)
	require.Len(t, parent.Children, 1)
	assert.Equal(t, "parent/child", parent.Children[0].Path)
}

func TestDiscoverSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", ".hidden/b.jpg", ".DS_Store", "sub/.thumb.jpg", "sub/ok.jpg")

	root, err := Discover(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, root.PhotoCount())
	require.Len(t, root.Children, 1)
	assert.Equal(t, "sub", root.Children[0].Slug)
}

func TestDiscoverChildOrder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "zebra/a.jpg", "alpha/a.jpg", "mango/a.jpg")

	root, err := Discover(dir)
	require.NoError(t, err)

	require.Len(t, root.Children, 3)
	assert.Equal(t, "alpha", root.Children[0].Slug)
	assert.Equal(t, "mango", root.Children[1].Slug)
	assert.Equal(t, "zebra", root.Children[2].Slug)
}

func TestDiscoverEmpty(t *testing.T) {
	_, err := Discover(t.TempDir())
	assert.ErrorIs(t, err, ErrNoPhotos)

	dir := t.TempDir()
	writeFiles(t, dir, "only/notes.txt")
	_, err = Discover(dir)
	assert.ErrorIs(t, err, ErrNoPhotos)
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
