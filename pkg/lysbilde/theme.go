package lysbilde

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

//go:embed themes
var builtinThemes embed.FS

// Well-known template names.
const (
	// TemplateIndex is the site homepage (required).
	TemplateIndex = "index.html"
	// TemplateAlbum renders album pages (optional; its presence enables them).
	TemplateAlbum = "album.html"
	// TemplatePhoto renders per-photo pages (optional; its presence enables them).
	TemplatePhoto = "photo.html"
)

var (
	ErrThemeNotFound        = errors.New("theme not found")
	ErrMissingIndexTemplate = errors.New("theme missing required template: index.html")
)

// Theme is a loaded theme: parsed templates plus a static-asset source,
// which is a local directory, an embedded bundle, or absent.
type Theme struct {
	tmpl *template.Template

	// HasAlbum and HasPhoto report whether the optional templates exist;
	// the pipeline only generates those page kinds when they do.
	HasAlbum bool
	HasPhoto bool

	staticDir string
	staticFS  fs.FS

	// assets maps logical asset names to hashed URLs; set by the pipeline
	// before rendering and resolved by the static template function.
	assets map[string]string

	// strings is the translation table for the site's default language,
	// resolved by the t template function.
	strings Translations
}

// LoadTheme resolves a theme by name: a local directory under siteDir
// first, then a built-in theme, otherwise ErrThemeNotFound.
func LoadTheme(siteDir, name string) (*Theme, error) {
	localDir := filepath.Join(siteDir, name)
	if fi, err := os.Stat(localDir); err == nil && fi.IsDir() {
		klog.V(1).Infof("loading local theme %s", localDir)
		return loadThemeDir(localDir)
	}

	sub, err := fs.Sub(builtinThemes, "themes/"+name)
	if err == nil {
		if _, err := fs.Stat(sub, "templates/index.html"); err == nil {
			klog.V(1).Infof("loading built-in theme %q", name)
			return loadThemeFS(sub)
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrThemeNotFound, name)
}

func loadThemeDir(dir string) (*Theme, error) {
	t := &Theme{}

	matches, err := filepath.Glob(filepath.Join(dir, "templates", "*.html"))
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrMissingIndexTemplate
	}

	t.tmpl, err = template.New("theme").Funcs(t.funcs()).ParseFiles(matches...)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	// Vite themes build into dist/, classic themes serve static/ as-is.
	if detectViteTheme(dir) {
		dist, err := buildViteTheme(dir)
		if err != nil {
			return nil, fmt.Errorf("vite build: %w", err)
		}
		t.staticDir = dist
	} else if fi, err := os.Stat(filepath.Join(dir, "static")); err == nil && fi.IsDir() {
		t.staticDir = filepath.Join(dir, "static")
	}

	return t.validate()
}

func loadThemeFS(themeFS fs.FS) (*Theme, error) {
	t := &Theme{}

	var err error
	t.tmpl, err = template.New("theme").Funcs(t.funcs()).ParseFS(themeFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if fi, err := fs.Stat(themeFS, "static"); err == nil && fi.IsDir() {
		t.staticFS, _ = fs.Sub(themeFS, "static")
	}

	return t.validate()
}

func (t *Theme) validate() (*Theme, error) {
	if t.tmpl.Lookup(TemplateIndex) == nil {
		return nil, ErrMissingIndexTemplate
	}
	t.HasAlbum = t.tmpl.Lookup(TemplateAlbum) != nil
	t.HasPhoto = t.tmpl.Lookup(TemplatePhoto) != nil

	klog.V(1).Infof("theme loaded: album=%v photo=%v static=%v",
		t.HasAlbum, t.HasPhoto, t.staticDir != "" || t.staticFS != nil)
	return t, nil
}

func (t *Theme) funcs() template.FuncMap {
	return template.FuncMap{
		"static": t.staticURL,
		"t":      t.translate,
	}
}

// translate resolves an i18n key in the site's default language, falling
// back to English and then to the key itself.
func (t *Theme) translate(key string) string {
	if s, ok := t.strings[key]; ok {
		return s
	}
	if s, ok := translations["en"][key]; ok {
		return s
	}
	return key
}

// SetLanguage selects the translation table consulted by the t template
// function. Unknown languages fall back to English.
func (t *Theme) SetLanguage(lang string) {
	t.strings = translations[lang]
}

// staticURL resolves a logical asset name to its hashed URL. Templates use
// it so they never need to know content hashes.
func (t *Theme) staticURL(name string) (string, error) {
	url, ok := t.assets[name]
	if !ok {
		return "", fmt.Errorf("static asset not found: %q", name)
	}
	return url, nil
}

// SetAssets installs the logical-name to hashed-URL manifest consulted by
// the static template function.
func (t *Theme) SetAssets(manifest map[string]string) {
	t.assets = manifest
}

// Render executes the named template and returns the HTML.
func (t *Theme) Render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
