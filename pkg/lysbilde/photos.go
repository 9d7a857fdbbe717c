package lysbilde

import (
	"fmt"
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"gif":  true,
}

// Photo is a single photo in the gallery. Discovery creates it as a
// skeleton; the processing engine fills in Hash, dimensions, and Meta.
type Photo struct {
	// Source is the absolute path to the source file.
	Source string `json:"-"`
	// Stem is the filename without extension, e.g. "DSC01234".
	Stem string `json:"stem"`
	// Ext is the lowercased extension without the dot, e.g. "jpg".
	Ext string `json:"extension"`
	// Hash is the first 8 hex chars of the BLAKE3 digest of the source
	// bytes. Empty until processed; cleared again when a photo is skipped.
	Hash string `json:"hash"`

	Width        int   `json:"width"`
	Height       int   `json:"height"`
	OriginalSize int64 `json:"originalSize"`

	Meta PhotoMetadata `json:"metadata"`
}

// PhotoMetadata is best-effort EXIF/XMP data. Absent fields stay empty;
// extraction never fabricates values.
type PhotoMetadata struct {
	DateTaken string     `json:"dateTaken,omitempty"`
	Copyright string     `json:"copyright,omitempty"`
	Camera    string     `json:"camera,omitempty"`
	Lens      string     `json:"lens,omitempty"`
	Rating    int        `json:"rating,omitempty"`
	Exposure  *Exposure  `json:"exposure,omitempty"`
	GPS       *GpsCoords `json:"gps,omitempty"`
}

// Exposure holds formatted camera exposure settings.
type Exposure struct {
	// Aperture, e.g. "f/2.8".
	Aperture string `json:"aperture,omitempty"`
	// ShutterSpeed, e.g. "1/250" or "2s".
	ShutterSpeed string `json:"shutterSpeed,omitempty"`
	ISO          int    `json:"iso,omitempty"`
	// FocalLength, e.g. "50mm".
	FocalLength string `json:"focalLength,omitempty"`
	// Program is an i18n key such as "program.aperture_priority".
	Program string `json:"program,omitempty"`
}

// GpsCoords is the location block of a photo. Which fields are populated
// depends on the privacy mode: GpsOn sets everything, GpsGeneral sets only
// the place fields, and under GpsOff the whole block is nil.
type GpsCoords struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	// Display is a human-readable coordinate string, e.g. "35.0000° N, 139.0000° E".
	Display     string `json:"display,omitempty"`
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Flag        string `json:"flag,omitempty"`
}

// newPhoto builds a photo skeleton from a source path, or nil for
// non-image files.
func newPhoto(source string) *Photo {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")
	if !imageExtensions[ext] {
		return nil
	}

	base := filepath.Base(source)
	return &Photo{
		Source: source,
		Stem:   strings.TrimSuffix(base, filepath.Ext(base)),
		Ext:    ext,
	}
}

// variantName returns the derived filename for a WebP variant:
// {stem}-{hash}-{variant}.webp
func (p *Photo) variantName(variant string) string {
	return fmt.Sprintf("%s-%s-%s.webp", p.Stem, p.Hash, variant)
}

// originalName returns the derived filename for the original copy, with a
// -nogps suffix when location tags are stripped.
func (p *Photo) originalName(mode GpsMode) string {
	return fmt.Sprintf("%s-%s-original%s.%s", p.Stem, p.Hash, mode.OriginalSuffix(), p.Ext)
}

func (p *Photo) variantURL(albumPath, variant string) string {
	stem := urlEncode(p.Stem)
	if albumPath == "" {
		return fmt.Sprintf("/images/%s-%s-%s.webp", stem, p.Hash, variant)
	}
	return fmt.Sprintf("/images/%s/%s-%s-%s.webp", urlEncodePath(albumPath), stem, p.Hash, variant)
}

// ImagePath is the URL path to the full-size WebP.
func (p *Photo) ImagePath(albumPath string) string {
	return p.variantURL(albumPath, "full")
}

// ThumbPath is the URL path to the grid thumbnail WebP.
func (p *Photo) ThumbPath(albumPath string) string {
	return p.variantURL(albumPath, "thumb")
}

// MicroPath is the URL path to the micro thumbnail WebP, used for
// filmstrips and other places where loading speed beats detail.
func (p *Photo) MicroPath(albumPath string) string {
	return p.variantURL(albumPath, "micro")
}

// OriginalPath is the URL path to the downloadable original.
func (p *Photo) OriginalPath(albumPath string, mode GpsMode) string {
	stem := urlEncode(p.Stem)
	suffix := mode.OriginalSuffix()
	if albumPath == "" {
		return fmt.Sprintf("/images/%s-%s-original%s.%s", stem, p.Hash, suffix, p.Ext)
	}
	return fmt.Sprintf("/images/%s/%s-%s-original%s.%s", urlEncodePath(albumPath), stem, p.Hash, suffix, p.Ext)
}

// HTMLPath is the URL path to the photo's own page.
func (p *Photo) HTMLPath(albumPath string) string {
	stem := urlEncode(p.Stem)
	if albumPath == "" {
		return "/" + stem + ".html"
	}
	return "/" + urlEncodePath(albumPath) + "/" + stem + ".html"
}

// Album is a directory of photos, possibly with child albums. The root
// album has an empty Path.
type Album struct {
	// Name is the display name, the titlecased directory name.
	Name string `json:"name"`
	// Slug is the lowercased directory name.
	Slug string `json:"slug"`
	// Path is slash-separated and relative to the photo root.
	Path string `json:"path"`

	Photos   []*Photo `json:"photos"`
	Children []*Album `json:"children"`
}

// AllPhotos returns the album's photos followed by all descendants',
// depth-first.
func (a *Album) AllPhotos() []*Photo {
	all := make([]*Photo, 0, len(a.Photos))
	all = append(all, a.Photos...)
	for _, c := range a.Children {
		all = append(all, c.AllPhotos()...)
	}
	return all
}

// AllAlbums returns all descendant albums, depth-first, excluding a itself.
func (a *Album) AllAlbums() []*Album {
	var all []*Album
	for _, c := range a.Children {
		all = append(all, c)
		all = append(all, c.AllAlbums()...)
	}
	return all
}

// PhotoCount counts photos in this album and all descendants.
func (a *Album) PhotoCount() int {
	n := len(a.Photos)
	for _, c := range a.Children {
		n += c.PhotoCount()
	}
	return n
}

// HTMLPath is the URL path to the album's index page.
func (a *Album) HTMLPath() string {
	if a.Path == "" {
		return "/"
	}
	return "/" + urlEncodePath(a.Path) + "/"
}

// findAlbumPath returns the path of the album directly containing p.
func findAlbumPath(a *Album, p *Photo) (string, bool) {
	for _, ap := range a.Photos {
		if ap == p {
			return a.Path, true
		}
	}
	for _, c := range a.Children {
		if path, ok := findAlbumPath(c, p); ok {
			return path, true
		}
	}
	return "", false
}
