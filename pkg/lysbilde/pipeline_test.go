package lysbilde

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSite() *Site {
	return &Site{
		Domain:      "photos.example.com",
		Title:       "Test Gallery",
		Theme:       "basic",
		Photos:      "photos",
		Build:       "dist",
		Minify:      true,
		Gps:         GpsOn,
		Languages:   []string{"en"},
		DefaultLang: "en",
	}
}

func buildTestSite(t *testing.T) (string, *Pipeline) {
	t.Helper()
	siteDir := t.TempDir()
	writeJPEG(t, filepath.Join(siteDir, "photos", "hello.jpg"), 200, 150)
	writeJPEG(t, filepath.Join(siteDir, "photos", "trip", "a.jpg"), 150, 200)
	writeJPEG(t, filepath.Join(siteDir, "photos", "trip", "b.jpg"), 100, 100)

	p, err := LoadPipeline(siteDir, testSite())
	require.NoError(t, err)
	require.NoError(t, p.Build())
	return siteDir, p
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func TestBuildFullSite(t *testing.T) {
	siteDir, p := buildTestSite(t)
	dist := filepath.Join(siteDir, "dist")

	// Pages.
	assert.FileExists(t, filepath.Join(dist, "index.html"))
	assert.FileExists(t, filepath.Join(dist, "trip", "index.html"))
	assert.FileExists(t, filepath.Join(dist, "hello.html"))
	assert.FileExists(t, filepath.Join(dist, "trip", "a.html"))
	assert.FileExists(t, filepath.Join(dist, "trip", "b.html"))

	index, err := os.ReadFile(filepath.Join(dist, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "Test Gallery")

	// Image variants for every photo.
	hello := p.Root.Photos[0]
	for _, variant := range []string{"micro", "thumb", "full"} {
		assert.FileExists(t, filepath.Join(dist, "images", hello.variantName(variant)))
	}
	assert.FileExists(t, filepath.Join(dist, "images", hello.originalName(GpsOn)))

	// Hashed static assets and data files.
	for _, pattern := range []string{
		"static/style-*.css",
		"static/gallery-*.js",
		"static/gallery-*.json",
		"static/i18n/en-*.json",
	} {
		matches, err := filepath.Glob(filepath.Join(dist, filepath.FromSlash(pattern)))
		require.NoError(t, err)
		assert.Len(t, matches, 1, "expected one match for %s", pattern)
	}
}

func TestBuildGalleryData(t *testing.T) {
	siteDir, _ := buildTestSite(t)

	matches, err := filepath.Glob(filepath.Join(siteDir, "dist", "static", "gallery-*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)

	var g galleryData
	require.NoError(t, json.Unmarshal(raw, &g))

	assert.Equal(t, "photos.example.com", g.Site.Domain)
	require.Len(t, g.Albums, 1)
	assert.Equal(t, "trip", g.Albums[0].Slug)
	require.Len(t, g.Photos, 3)

	for _, photo := range g.Photos {
		assert.Len(t, photo.Hash, 8)
		assert.Contains(t, photo.ThumbPath, "/images/")
		assert.Contains(t, photo.HTMLPath, ".html")
	}
}

func TestBuildPhotoNavigation(t *testing.T) {
	siteDir, _ := buildTestSite(t)
	dist := filepath.Join(siteDir, "dist")

	a, err := os.ReadFile(filepath.Join(dist, "trip", "a.html"))
	require.NoError(t, err)
	assert.Contains(t, string(a), "/trip/b.html")

	b, err := os.ReadFile(filepath.Join(dist, "trip", "b.html"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "/trip/a.html")
}

func TestBuildIdempotent(t *testing.T) {
	siteDir, _ := buildTestSite(t)
	dist := filepath.Join(siteDir, "dist")
	before := listFiles(t, dist)

	// A fresh pipeline over unchanged inputs reproduces the same tree.
	p, err := LoadPipeline(siteDir, testSite())
	require.NoError(t, err)
	require.NoError(t, p.Build())

	assert.Equal(t, before, listFiles(t, dist))
}

func TestBuildRemovesStaleOutputs(t *testing.T) {
	siteDir, p := buildTestSite(t)
	dist := filepath.Join(siteDir, "dist")

	removed := p.Root.Children[0].Photos[1] // trip/b.jpg
	require.NoError(t, os.Remove(filepath.Join(siteDir, "photos", "trip", "b.jpg")))

	p2, err := LoadPipeline(siteDir, testSite())
	require.NoError(t, err)
	require.NoError(t, p2.Build())

	assert.NoFileExists(t, filepath.Join(dist, "trip", "b.html"))
	assert.NoFileExists(t, filepath.Join(dist, "images", "trip", removed.variantName("thumb")))
	assert.NoFileExists(t, filepath.Join(dist, "images", "trip", removed.originalName(GpsOn)))

	// Survivors stay cached in place.
	assert.FileExists(t, filepath.Join(dist, "trip", "a.html"))
}

func TestBuildRemovesWholeAlbum(t *testing.T) {
	siteDir, _ := buildTestSite(t)
	dist := filepath.Join(siteDir, "dist")

	require.NoError(t, os.RemoveAll(filepath.Join(siteDir, "photos", "trip")))

	p, err := LoadPipeline(siteDir, testSite())
	require.NoError(t, err)
	require.NoError(t, p.Build())

	assert.NoDirExists(t, filepath.Join(dist, "trip"))
	assert.NoDirExists(t, filepath.Join(dist, "images", "trip"))
}

func TestBuildPrivacyModeSwitch(t *testing.T) {
	siteDir, p := buildTestSite(t)
	dist := filepath.Join(siteDir, "dist")
	hello := p.Root.Photos[0]

	assert.FileExists(t, filepath.Join(dist, "images", hello.originalName(GpsOn)))

	site := testSite()
	site.Gps = GpsGeneral
	p2, err := LoadPipeline(siteDir, site)
	require.NoError(t, err)
	require.NoError(t, p2.Build())

	// Stripped originals replace the untouched ones.
	assert.FileExists(t, filepath.Join(dist, "images", hello.originalName(GpsGeneral)))
	assert.NoFileExists(t, filepath.Join(dist, "images", hello.originalName(GpsOn)))
}

func TestBuildUnminified(t *testing.T) {
	siteDir := t.TempDir()
	writeJPEG(t, filepath.Join(siteDir, "photos", "a.jpg"), 50, 50)

	site := testSite()
	site.Minify = false
	p, err := LoadPipeline(siteDir, site)
	require.NoError(t, err)
	require.NoError(t, p.Build())

	index, err := os.ReadFile(filepath.Join(siteDir, "dist", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "\n")
}

func TestDoBuild(t *testing.T) {
	siteDir := t.TempDir()
	writeJPEG(t, filepath.Join(siteDir, "photos", "a.jpg"), 50, 50)
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "site.toml"),
		[]byte("domain = \"example.com\"\nlanguages = [\"en\"]\n"), 0o644))

	require.NoError(t, DoBuild(siteDir, "", "", false))
	assert.FileExists(t, filepath.Join(siteDir, "dist", "index.html"))
}
