package lysbilde

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"k8s.io/klog/v2"
)

const exifDateLayout = "2006:01:02 15:04:05"

// extractMetadata pulls EXIF and XMP metadata out of raw image bytes. It is
// a total, best-effort function: missing tags yield empty fields and a
// parser crash on malformed input degrades to empty metadata. It must never
// return an error or abort the batch.
func extractMetadata(data []byte, source string, mode GpsMode, geocode Geocoder) (meta PhotoMetadata) {
	defer func() {
		if r := recover(); r != nil {
			klog.Warningf("metadata extraction panicked for %s, skipping metadata: %v", source, r)
			meta = PhotoMetadata{}
		}
	}()

	meta.Rating = xmpRating(data)

	payload := exifPayload(data, source)
	if payload == nil {
		klog.V(1).Infof("no EXIF container in %s", source)
		return meta
	}

	x, err := exif.Decode(bytes.NewReader(payload))
	if err != nil {
		klog.V(1).Infof("no EXIF in %s: %v", source, err)
		return meta
	}

	if ds := tagString(x, exif.DateTimeOriginal); ds != "" {
		if t, err := time.Parse(exifDateLayout, ds); err == nil {
			meta.DateTaken = t.Format("2006-01-02T15:04:05")
		} else {
			meta.DateTaken = ds
		}
	}

	meta.Copyright = tagString(x, exif.Copyright)
	meta.Camera = mergeCamera(tagString(x, exif.Make), tagString(x, exif.Model))
	meta.Lens = tagString(x, exif.LensModel)
	meta.Exposure = extractExposure(x)

	if mode != GpsOff {
		if lat, lon, err := x.LatLong(); err == nil {
			meta.GPS = newGpsCoords(lat, lon, mode, geocode)
		}
	}

	return meta
}

// exifPayload locates the EXIF bytes for the source's container format.
// JPEG files are handed to the decoder whole; PNG and WebP carry their EXIF
// in a dedicated chunk whose raw TIFF payload the decoder accepts directly.
// GIF has no EXIF container.
func exifPayload(data []byte, source string) []byte {
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".") {
	case "jpg", "jpeg":
		return data
	case "png":
		if payload := pngExifPayload(data); payload != nil {
			return bytes.TrimPrefix(payload, exifHeaderPrefix)
		}
	case "webp":
		if _, payload, err := findWebpChunk(data, "EXIF"); err == nil {
			return bytes.TrimPrefix(payload, exifHeaderPrefix)
		}
	}
	return nil
}

// tagString fetches a string tag, returning "" when absent or unreadable.
func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// mergeCamera joins make and model, deduplicating strings like
// "Canon" + "Canon EOS R5".
func mergeCamera(maker, model string) string {
	switch {
	case maker == "":
		return model
	case model == "":
		return maker
	case strings.Contains(model, maker):
		return model
	case strings.Contains(maker, model):
		return maker
	}
	return maker + " " + model
}

func extractExposure(x *exif.Exif) *Exposure {
	e := &Exposure{}

	if tag, err := x.Get(exif.FNumber); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			e.Aperture = fmt.Sprintf("f/%.1f", float64(num)/float64(den))
		}
	}

	if tag, err := x.Get(exif.ExposureTime); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 && num != 0 {
			e.ShutterSpeed = formatShutter(num, den)
		}
	}

	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil {
			e.ISO = iso
		}
	}

	if tag, err := x.Get(exif.FocalLength); err == nil {
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			e.FocalLength = fmt.Sprintf("%dmm", num/den)
		}
	}

	if tag, err := x.Get(exif.ExposureProgram); err == nil {
		if program, err := tag.Int(0); err == nil {
			e.Program = exposureProgramKey(program)
		}
	}

	if (Exposure{}) == *e {
		return nil
	}
	return e
}

// formatShutter renders an exposure time as whole seconds ("2s") or a
// fraction ("1/250").
func formatShutter(num, den int64) string {
	if num >= den {
		return fmt.Sprintf("%ds", num/den)
	}
	return fmt.Sprintf("1/%d", den/num)
}

// exposureProgramKey maps an EXIF ExposureProgram value to an i18n key.
// Value 0 means "not defined"; higher values are reserved.
func exposureProgramKey(v int) string {
	switch v {
	case 1:
		return "program.manual"
	case 2:
		return "program.program"
	case 3:
		return "program.aperture_priority"
	case 4:
		return "program.shutter_priority"
	case 5:
		return "program.creative"
	case 6:
		return "program.action"
	case 7:
		return "program.portrait"
	case 8:
		return "program.landscape"
	}
	return ""
}

var (
	xpacketBegin = []byte("<?xpacket begin=")
	xpacketEnd   = []byte("<?xpacket end=")

	xmpRatingAttr = regexp.MustCompile(`xmp:Rating\s*=\s*["'](\d+)["']`)
	xmpRatingElem = regexp.MustCompile(`<xmp:Rating>\s*(\d+)\s*</xmp:Rating>`)
)

// xmpRating finds an embedded XMP packet and parses the xmp:Rating value,
// returning 0 when absent. Ratings are 0-5.
func xmpRating(data []byte) int {
	start := bytes.Index(data, xpacketBegin)
	if start < 0 {
		return 0
	}
	end := bytes.Index(data[start:], xpacketEnd)
	if end < 0 {
		return 0
	}
	packet := data[start : start+end]

	m := xmpRatingAttr.FindSubmatch(packet)
	if m == nil {
		m = xmpRatingElem.FindSubmatch(packet)
	}
	if m == nil {
		return 0
	}

	rating, err := strconv.Atoi(string(m[1]))
	if err != nil || rating < 0 || rating > 5 {
		return 0
	}
	return rating
}
