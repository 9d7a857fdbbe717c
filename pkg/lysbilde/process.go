package lysbilde

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	// Decoders for the supported source formats. Dimension probing and
	// pixel decoding both go through the image registry.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/anthonynsimon/bild/transform"
	"github.com/chai2010/webp"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Variant presets. Each tier trades size for quality independently.
const (
	microSize    = 120
	microQuality = 70

	thumbSize    = 600
	thumbQuality = 80

	fullSize    = 2400
	fullQuality = 90
)

// Stats summarizes one processing pass over the album tree.
type Stats struct {
	// Total photos that survived processing.
	Total int
	// Cached photos needed no work at all.
	Cached int
	// Generated counts photos with at least one new WebP variant.
	Generated int
	// Copied counts photos whose original was (re)written.
	Copied int
	// Skipped photos hit an unrecoverable error and were dropped.
	Skipped int
}

type counters struct {
	total     atomic.Int64
	cached    atomic.Int64
	generated atomic.Int64
	copied    atomic.Int64
	skipped   atomic.Int64
}

// photoResult records what a single photo actually required.
type photoResult struct {
	generatedWebP  bool
	copiedOriginal bool
}

// Engine is the photo processing engine. The zero value is ready to use;
// Geocoder may be set to override the built-in offline reverse geocoder.
type Engine struct {
	Geocoder Geocoder
}

// Process hashes, measures, and derives variants for every photo in the
// tree, writing files under imagesDir/{albumPath}/. Photos are mutated in
// place; photos that fail unrecoverably are dropped from their album and
// counted as skipped. Only a directory-creation failure aborts the build.
func (e *Engine) Process(root *Album, imagesDir string, mode GpsMode) (Stats, error) {
	var c counters
	if err := e.processAlbum(root, imagesDir, mode, &c); err != nil {
		return Stats{}, err
	}

	return Stats{
		Total:     int(c.total.Load()),
		Cached:    int(c.cached.Load()),
		Generated: int(c.generated.Load()),
		Copied:    int(c.copied.Load()),
		Skipped:   int(c.skipped.Load()),
	}, nil
}

func (e *Engine) processAlbum(album *Album, imagesDir string, mode GpsMode, c *counters) error {
	albumDir := imagesDir
	if album.Path != "" {
		albumDir = filepath.Join(imagesDir, filepath.FromSlash(album.Path))
	}
	if err := os.MkdirAll(albumDir, 0o755); err != nil {
		return fmt.Errorf("create album directory %s: %w", albumDir, err)
	}

	// Photos within one album are processed concurrently. Each task owns
	// its photo; the only shared mutable state is the counters.
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, photo := range album.Photos {
		photo := photo
		g.Go(func() error {
			res, err := e.processPhoto(photo, albumDir, mode)
			if err != nil {
				klog.Warningf("skipping %s: %v", photo.Source, err)
				c.skipped.Add(1)
				photo.Hash = ""
				return nil
			}

			c.total.Add(1)
			if !res.generatedWebP && !res.copiedOriginal {
				c.cached.Add(1)
			}
			if res.generatedWebP {
				c.generated.Add(1)
			}
			if res.copiedOriginal {
				c.copied.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	// Drop skipped photos, marked by their cleared hash.
	kept := album.Photos[:0]
	for _, p := range album.Photos {
		if p.Hash != "" {
			kept = append(kept, p)
		}
	}
	album.Photos = kept

	// Child albums run after the parent's photos complete.
	for _, child := range album.Children {
		if err := e.processAlbum(child, imagesDir, mode, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) processPhoto(p *Photo, albumDir string, mode GpsMode) (photoResult, error) {
	var res photoResult

	data, err := os.ReadFile(p.Source)
	if err != nil {
		return res, fmt.Errorf("read: %w", err)
	}
	p.OriginalSize = int64(len(data))

	// The hash covers content only, so moving or renaming a photo never
	// invalidates its cache entries.
	p.Hash = shortHash(data)

	p.Meta = extractMetadata(data, p.Source, mode, e.Geocoder)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return res, fmt.Errorf("probe dimensions: %w", err)
	}
	p.Width = cfg.Width
	p.Height = cfg.Height

	microPath := filepath.Join(albumDir, p.variantName("micro"))
	thumbPath := filepath.Join(albumDir, p.variantName("thumb"))
	fullPath := filepath.Join(albumDir, p.variantName("full"))
	originalPath := filepath.Join(albumDir, p.originalName(mode))

	// Existence of the hash-qualified filename is the entire cache test.
	needMicro := !fileExists(microPath)
	needThumb := !fileExists(thumbPath)
	needFull := !fileExists(fullPath)
	needOriginal := !fileExists(originalPath)

	if !needMicro && !needThumb && !needFull && !needOriginal {
		klog.V(1).Infof("%s-%s cached", p.Stem, p.Hash)
		return res, nil
	}

	// Decode pixels only when a WebP variant is actually missing.
	if needMicro || needThumb || needFull {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return res, fmt.Errorf("decode: %w", err)
		}

		variants := []struct {
			need    bool
			path    string
			size    int
			quality float32
		}{
			{needMicro, microPath, microSize, microQuality},
			{needThumb, thumbPath, thumbSize, thumbQuality},
			{needFull, fullPath, fullSize, fullQuality},
		}
		for _, v := range variants {
			if !v.need {
				continue
			}
			out, err := encodeVariant(img, v.size, v.quality)
			if err != nil {
				return res, fmt.Errorf("encode %s: %w", filepath.Base(v.path), err)
			}
			if err := os.WriteFile(v.path, out, 0o644); err != nil {
				return res, fmt.Errorf("write %s: %w", v.path, err)
			}
		}
		res.generatedWebP = true
	}

	if needOriginal {
		final := data
		if mode != GpsOn {
			final = stripLocationTags(data, p.Ext, p.Source)
		}
		if err := os.WriteFile(originalPath, final, 0o644); err != nil {
			return res, fmt.Errorf("write original: %w", err)
		}
		res.copiedOriginal = true
	}

	return res, nil
}

// encodeVariant shrinks img into a maxSize box (never upscaling) and
// encodes it as lossy WebP.
func encodeVariant(img image.Image, maxSize int, quality float32) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > maxSize || b.Dy() > maxSize {
		w, h := fitBox(b.Dx(), b.Dy(), maxSize)
		img = transform.Resize(img, w, h, transform.Lanczos)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitBox scales w x h down to fit a square box, preserving aspect ratio.
func fitBox(w, h, box int) (int, int) {
	if w >= h {
		return box, max(1, h*box/w)
	}
	return max(1, w*box/h), box
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
