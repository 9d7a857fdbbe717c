package lysbilde

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// expectedSet is the set of output paths one build run should produce. It
// is rebuilt from scratch every run and never persisted; reconciliation
// compares it directly against the live output tree.
type expectedSet map[string]struct{}

func (e expectedSet) add(p string) {
	e[filepath.Clean(p)] = struct{}{}
}

func (e expectedSet) contains(p string) bool {
	_, ok := e[filepath.Clean(p)]
	return ok
}

// siteInfo is the site block shared by templates and the gallery JSON.
type siteInfo struct {
	Domain  string `json:"domain"`
	Title   string `json:"title"`
	Version string `json:"version"`
}

// dataManifest records the hashed URLs of the generated data files.
type dataManifest struct {
	// I18n maps language code to its translation JSON URL.
	I18n map[string]string `json:"i18n"`
	// Gallery is the URL of the gallery data JSON.
	Gallery string `json:"gallery"`
}

// photoView is a photo plus its precomputed URL paths, handed to templates.
type photoView struct {
	*Photo
	ImagePath    string
	ThumbPath    string
	MicroPath    string
	OriginalPath string
	HTMLPath     string
}

// pageData is the context passed to every template.
type pageData struct {
	Site        siteInfo
	Data        dataManifest
	Languages   []string
	DefaultLang string
	Root        *Album
	Photos      []photoView
	Album       *Album
	Photo       *photoView
	Prev        *photoView
	Next        *photoView
}

type albumData struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Path string `json:"path"`
}

type photoData struct {
	Stem         string        `json:"stem"`
	Hash         string        `json:"hash"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	ImagePath    string        `json:"imagePath"`
	ThumbPath    string        `json:"thumbPath"`
	MicroPath    string        `json:"microPath"`
	OriginalPath string        `json:"originalPath"`
	HTMLPath     string        `json:"htmlPath"`
	Metadata     PhotoMetadata `json:"metadata"`
}

type galleryData struct {
	Site   siteInfo    `json:"site"`
	Albums []albumData `json:"albums"`
	Photos []photoData `json:"photos"`
}

// Pipeline combines configuration, theme, and the album tree to build a
// site.
type Pipeline struct {
	Site  *Site
	Theme *Theme
	Root  *Album
	// SiteDir is the directory holding site.toml; all configured paths are
	// relative to it.
	SiteDir string
	// SourceMaps copies .map files through without hashing.
	SourceMaps bool

	Engine Engine
}

// LoadPipeline resolves the theme and discovers photos for a site.
func LoadPipeline(siteDir string, site *Site) (*Pipeline, error) {
	theme, err := LoadTheme(siteDir, site.Theme)
	if err != nil {
		return nil, fmt.Errorf("load theme: %w", err)
	}

	root, err := Discover(filepath.Join(siteDir, site.Photos))
	if err != nil {
		return nil, fmt.Errorf("discover photos: %w", err)
	}

	return &Pipeline{Site: site, Theme: theme, Root: root, SiteDir: siteDir}, nil
}

// Build generates the whole site. Re-running with unchanged inputs produces
// byte-identical output and performs only existence checks. The step order
// is load-bearing: processing finalizes the hashes that every later path
// computation depends on, and the final sweep trusts only this run's
// expected set.
func (p *Pipeline) Build() error {
	outputDir := filepath.Join(p.SiteDir, p.Site.Build)
	imagesDir := filepath.Join(outputDir, "images")
	expected := expectedSet{}

	klog.Infof("building site into %s", outputDir)

	// The output tree is never wiped wholesale; that is what makes the
	// cross-build image cache effective.
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return fmt.Errorf("create output directories: %w", err)
	}

	stats, err := p.Engine.Process(p.Root, imagesDir, p.Site.Gps)
	if err != nil {
		return fmt.Errorf("process photos: %w", err)
	}
	klog.Infof("photos processed: total=%d cached=%d generated=%d copied=%d skipped=%d",
		stats.Total, stats.Cached, stats.Generated, stats.Copied, stats.Skipped)

	p.collectExpectedImages(p.Root, imagesDir, expected)

	data, err := p.writeDataFiles(outputDir, expected)
	if err != nil {
		return fmt.Errorf("write data files: %w", err)
	}

	assets, err := p.copyStatic(outputDir, expected)
	if err != nil {
		return fmt.Errorf("copy static assets: %w", err)
	}
	p.Theme.SetAssets(assets)
	p.Theme.SetLanguage(p.Site.DefaultLang)

	if err := p.renderIndex(outputDir, data, expected); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	if p.Theme.HasAlbum {
		if err := p.renderAlbums(p.Root, outputDir, data, expected); err != nil {
			return fmt.Errorf("render albums: %w", err)
		}
	}
	if p.Theme.HasPhoto {
		if err := p.renderPhotos(p.Root, outputDir, data, expected); err != nil {
			return fmt.Errorf("render photos: %w", err)
		}
	}

	removed, err := p.sweep(outputDir, expected)
	if err != nil {
		return fmt.Errorf("sweep stale files: %w", err)
	}
	if removed > 0 {
		klog.Infof("removed %d stale files", removed)
	}

	klog.Infof("build complete")
	return nil
}

// collectExpectedImages records every derived image path implied by the
// processed tree, including micro thumbnails.
func (p *Pipeline) collectExpectedImages(album *Album, imagesDir string, expected expectedSet) {
	albumDir := imagesDir
	if album.Path != "" {
		albumDir = filepath.Join(imagesDir, filepath.FromSlash(album.Path))
	}

	for _, photo := range album.Photos {
		expected.add(filepath.Join(albumDir, photo.variantName("micro")))
		expected.add(filepath.Join(albumDir, photo.variantName("thumb")))
		expected.add(filepath.Join(albumDir, photo.variantName("full")))
		expected.add(filepath.Join(albumDir, photo.originalName(p.Site.Gps)))
	}

	for _, child := range album.Children {
		p.collectExpectedImages(child, imagesDir, expected)
	}
}

// writeDataFiles emits the per-language translation JSON and the gallery
// snapshot JSON, each content-hashed for cache busting.
func (p *Pipeline) writeDataFiles(outputDir string, expected expectedSet) (dataManifest, error) {
	manifest := dataManifest{I18n: map[string]string{}}

	i18nDir := filepath.Join(outputDir, "static", "i18n")
	if err := os.MkdirAll(i18nDir, 0o755); err != nil {
		return manifest, fmt.Errorf("create %s: %w", i18nDir, err)
	}

	langs := append([]string(nil), p.Site.Languages...)
	sort.Strings(langs)
	for _, lang := range langs {
		data, err := json.Marshal(translations[lang])
		if err != nil {
			return manifest, fmt.Errorf("marshal %s translations: %w", lang, err)
		}
		name := fmt.Sprintf("%s-%s.json", lang, shortHash(data))
		dest := filepath.Join(i18nDir, name)
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return manifest, fmt.Errorf("write %s: %w", dest, err)
		}
		expected.add(dest)
		manifest.I18n[lang] = "/static/i18n/" + name
	}

	gallery, err := json.Marshal(p.galleryData())
	if err != nil {
		return manifest, fmt.Errorf("marshal gallery: %w", err)
	}
	name := fmt.Sprintf("gallery-%s.json", shortHash(gallery))
	dest := filepath.Join(outputDir, "static", name)
	if err := os.WriteFile(dest, gallery, 0o644); err != nil {
		return manifest, fmt.Errorf("write %s: %w", dest, err)
	}
	expected.add(dest)
	manifest.Gallery = "/static/" + name

	klog.V(1).Infof("generated %d translation files and %s", len(manifest.I18n), manifest.Gallery)
	return manifest, nil
}

// galleryData flattens the whole collection into one JSON-serializable
// snapshot: site info, albums, and photos with precomputed URLs.
func (p *Pipeline) galleryData() galleryData {
	g := galleryData{Site: p.siteInfo()}

	for _, a := range p.Root.AllAlbums() {
		g.Albums = append(g.Albums, albumData{Name: a.Name, Slug: a.Slug, Path: a.Path})
	}

	for _, photo := range p.Root.AllPhotos() {
		albumPath, _ := findAlbumPath(p.Root, photo)
		g.Photos = append(g.Photos, photoData{
			Stem:         photo.Stem,
			Hash:         photo.Hash,
			Width:        photo.Width,
			Height:       photo.Height,
			ImagePath:    photo.ImagePath(albumPath),
			ThumbPath:    photo.ThumbPath(albumPath),
			MicroPath:    photo.MicroPath(albumPath),
			OriginalPath: photo.OriginalPath(albumPath, p.Site.Gps),
			HTMLPath:     photo.HTMLPath(albumPath),
			Metadata:     photo.Meta,
		})
	}
	return g
}

// copyStatic copies the theme's static assets into /static with hashed
// filenames, minifying css/js before hashing so the hash reflects the bytes
// actually served. Returns the logical-name to hashed-URL manifest.
func (p *Pipeline) copyStatic(outputDir string, expected expectedSet) (map[string]string, error) {
	manifest := map[string]string{}

	var src fs.FS
	switch {
	case p.Theme.staticDir != "":
		src = os.DirFS(p.Theme.staticDir)
	case p.Theme.staticFS != nil:
		src = p.Theme.staticFS
	default:
		return manifest, nil
	}

	dest := filepath.Join(outputDir, "static")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dest, err)
	}

	err := fs.WalkDir(src, ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(dest, filepath.FromSlash(rel)), 0o755)
		}

		logical := path.Clean(rel)

		// Source maps pass through unhashed so browsers can find them next
		// to their minified counterparts.
		if strings.HasSuffix(d.Name(), ".map") {
			if !p.SourceMaps {
				return nil
			}
			destPath := filepath.Join(dest, filepath.FromSlash(rel))
			if p.Theme.staticDir != "" {
				if err := copy.Copy(filepath.Join(p.Theme.staticDir, filepath.FromSlash(rel)), destPath); err != nil {
					return fmt.Errorf("copy %s: %w", rel, err)
				}
			} else {
				contents, err := fs.ReadFile(src, rel)
				if err != nil {
					return err
				}
				if err := os.WriteFile(destPath, contents, 0o644); err != nil {
					return err
				}
			}
			expected.add(destPath)
			manifest[logical] = "/static/" + logical
			return nil
		}

		contents, err := fs.ReadFile(src, rel)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		processed, err := p.processAsset(d.Name(), contents)
		if err != nil {
			return fmt.Errorf("process %s: %w", rel, err)
		}

		hashed := hashFilename(d.Name(), processed)
		relDir := path.Dir(logical)
		destPath := filepath.Join(dest, filepath.FromSlash(relDir), hashed)
		if err := os.WriteFile(destPath, processed, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", destPath, err)
		}
		expected.add(destPath)

		if relDir == "." {
			manifest[logical] = "/static/" + hashed
		} else {
			manifest[logical] = "/static/" + relDir + "/" + hashed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	klog.V(1).Infof("copied %d static assets", len(manifest))
	return manifest, nil
}

// processAsset minifies css/js assets by content type when minification is
// enabled; everything else passes through untouched.
func (p *Pipeline) processAsset(name string, contents []byte) ([]byte, error) {
	if !p.Site.Minify {
		return contents, nil
	}
	switch path.Ext(name) {
	case ".css":
		return minifyCSS(contents)
	case ".js":
		return minifyJS(contents), nil
	}
	return contents, nil
}

func (p *Pipeline) siteInfo() siteInfo {
	return siteInfo{Domain: p.Site.Domain, Title: p.Site.Title, Version: Version}
}

func (p *Pipeline) baseData(data dataManifest) pageData {
	return pageData{
		Site:        p.siteInfo(),
		Data:        data,
		Languages:   p.Site.Languages,
		DefaultLang: p.Site.DefaultLang,
		Root:        p.Root,
	}
}

func (p *Pipeline) newPhotoView(photo *Photo, albumPath string) photoView {
	return photoView{
		Photo:        photo,
		ImagePath:    photo.ImagePath(albumPath),
		ThumbPath:    photo.ThumbPath(albumPath),
		MicroPath:    photo.MicroPath(albumPath),
		OriginalPath: photo.OriginalPath(albumPath, p.Site.Gps),
		HTMLPath:     photo.HTMLPath(albumPath),
	}
}

func (p *Pipeline) renderIndex(outputDir string, data dataManifest, expected expectedSet) error {
	d := p.baseData(data)
	for _, photo := range p.Root.AllPhotos() {
		albumPath, _ := findAlbumPath(p.Root, photo)
		d.Photos = append(d.Photos, p.newPhotoView(photo, albumPath))
	}

	html, err := p.Theme.Render(TemplateIndex, d)
	if err != nil {
		return err
	}
	return p.writePage(filepath.Join(outputDir, "index.html"), html, expected)
}

// renderAlbums writes one page per album. The root album is covered by the
// index page.
func (p *Pipeline) renderAlbums(album *Album, outputDir string, data dataManifest, expected expectedSet) error {
	if album.Path != "" {
		d := p.baseData(data)
		d.Album = album
		for _, photo := range album.Photos {
			d.Photos = append(d.Photos, p.newPhotoView(photo, album.Path))
		}

		html, err := p.Theme.Render(TemplateAlbum, d)
		if err != nil {
			return err
		}
		dest := filepath.Join(outputDir, filepath.FromSlash(album.Path), "index.html")
		if err := p.writePage(dest, html, expected); err != nil {
			return err
		}
		klog.V(1).Infof("rendered album %s", album.Path)
	}

	for _, child := range album.Children {
		if err := p.renderAlbums(child, outputDir, data, expected); err != nil {
			return err
		}
	}
	return nil
}

// renderPhotos writes one page per photo with prev/next links within its
// album.
func (p *Pipeline) renderPhotos(album *Album, outputDir string, data dataManifest, expected expectedSet) error {
	for i, photo := range album.Photos {
		d := p.baseData(data)
		d.Album = album

		pv := p.newPhotoView(photo, album.Path)
		d.Photo = &pv
		if i > 0 {
			prev := p.newPhotoView(album.Photos[i-1], album.Path)
			d.Prev = &prev
		}
		if i+1 < len(album.Photos) {
			next := p.newPhotoView(album.Photos[i+1], album.Path)
			d.Next = &next
		}

		html, err := p.Theme.Render(TemplatePhoto, d)
		if err != nil {
			return err
		}
		dest := filepath.Join(outputDir, filepath.FromSlash(album.Path), photo.Stem+".html")
		if err := p.writePage(dest, html, expected); err != nil {
			return err
		}
	}

	for _, child := range album.Children {
		if err := p.renderPhotos(child, outputDir, data, expected); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) writePage(dest string, html []byte, expected expectedSet) error {
	if p.Site.Minify {
		min, err := minifyHTML(html)
		if err != nil {
			return fmt.Errorf("minify %s: %w", dest, err)
		}
		html = min
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(dest, html, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	expected.add(dest)
	return nil
}

// sweep deletes every file under outputDir that this run did not expect,
// then removes directories left empty. Stale artifacts from removed photos,
// pages, and theme files disappear; everything still expected is untouched.
func (p *Pipeline) sweep(outputDir string, expected expectedSet) (int, error) {
	removed := 0

	err := godirwalk.Walk(outputDir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if expected.contains(path) {
				return nil
			}
			if err := os.Remove(path); err != nil {
				return err
			}
			klog.V(1).Infof("removed stale file %s", path)
			removed++
			return nil
		},
		PostChildrenCallback: func(path string, de *godirwalk.Dirent) error {
			if path == outputDir {
				return nil
			}
			entries, err := os.ReadDir(path)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				if err := os.Remove(path); err != nil {
					return err
				}
				klog.V(1).Infof("removed empty directory %s", path)
			}
			return nil
		},
	})
	if err != nil {
		return removed, err
	}
	return removed, nil
}
