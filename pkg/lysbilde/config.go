// Package lysbilde turns a directory tree of photographs into a static
// photo-gallery website: resized WebP variants, rendered HTML pages, and
// content-hashed JSON data files, rebuilt incrementally.
package lysbilde

import (
	"fmt"

	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// GpsMode controls how much location data is visible in the generated site.
type GpsMode int

const (
	// GpsOff omits GPS entirely and strips location tags from originals.
	GpsOff GpsMode = iota
	// GpsGeneral shows place/country only; coordinates are hidden and
	// location tags are stripped from originals.
	GpsGeneral
	// GpsOn shows full coordinates and leaves originals untouched.
	GpsOn
)

// ParseGpsMode parses the "gps" config value.
func ParseGpsMode(s string) (GpsMode, error) {
	switch s {
	case "off":
		return GpsOff, nil
	case "general":
		return GpsGeneral, nil
	case "on", "":
		return GpsOn, nil
	}
	return GpsOn, fmt.Errorf("invalid gps mode %q (want off, general, or on)", s)
}

func (m GpsMode) String() string {
	switch m {
	case GpsOff:
		return "off"
	case GpsGeneral:
		return "general"
	default:
		return "on"
	}
}

// OriginalSuffix returns the filename suffix for original files. Stripped
// originals get "-nogps" so they never collide with untouched ones in the
// cache.
func (m GpsMode) OriginalSuffix() string {
	if m == GpsOn {
		return ""
	}
	return "-nogps"
}

// Site is the site configuration, loaded from site.toml.
type Site struct {
	// Domain where the site will be hosted (required).
	Domain string
	// Title of the site; defaults to Domain.
	Title string
	// Theme name: a local directory or a built-in theme.
	Theme string
	// Photos is the source photo directory, relative to the site dir.
	Photos string
	// Build is the output directory, relative to the site dir.
	Build string
	// Minify controls HTML/CSS/JS minification.
	Minify bool
	// Gps is the location privacy mode.
	Gps GpsMode
	// Languages to emit translation files for.
	Languages []string
	// DefaultLang is the language templates fall back to.
	DefaultLang string
}

// LoadSite reads and validates a site configuration file.
func LoadSite(path string) (*Site, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("theme", "basic")
	v.SetDefault("photos", "photos")
	v.SetDefault("build", "dist")
	v.SetDefault("minify", true)
	v.SetDefault("gps", "on")
	v.SetDefault("languages", supportedLanguages())
	v.SetDefault("default_lang", "en")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	s := &Site{
		Domain:      v.GetString("domain"),
		Title:       v.GetString("title"),
		Theme:       v.GetString("theme"),
		Photos:      v.GetString("photos"),
		Build:       v.GetString("build"),
		Minify:      v.GetBool("minify"),
		Languages:   v.GetStringSlice("languages"),
		DefaultLang: v.GetString("default_lang"),
	}

	if s.Domain == "" {
		return nil, fmt.Errorf("%s: domain is required", path)
	}
	if s.Title == "" {
		s.Title = s.Domain
	}

	mode, err := ParseGpsMode(v.GetString("gps"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Gps = mode

	for _, lang := range s.Languages {
		if _, ok := translations[lang]; !ok {
			return nil, fmt.Errorf("%s: unsupported language %q", path, lang)
		}
	}

	klog.V(1).Infof("loaded %s: domain=%s theme=%s gps=%s", path, s.Domain, s.Theme, s.Gps)
	return s, nil
}
