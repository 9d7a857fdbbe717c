package lysbilde

import (
	"bytes"
	"encoding/binary"
	"fmt"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	"k8s.io/klog/v2"
)

// gpsIfdPointerTag is the IFD0 tag that points at the GPS sub-IFD. Dropping
// it removes every GPS field (coordinates, altitude, timestamp, processing
// method, and the rest of the GPS IFD) in one cut while leaving all other
// metadata intact.
const gpsIfdPointerTag = 0x8825

// exifHeaderPrefix precedes the TIFF payload in JPEG APP1 segments and some
// WebP EXIF chunks.
var exifHeaderPrefix = []byte("Exif\x00\x00")

// stripLocationTags rewrites an original so that its location tags are gone
// but everything else (camera, lens, exposure, copyright) survives. JPEG,
// PNG, and WebP containers are supported; GIF has no EXIF container, so GIF
// originals are already location-free. It is best-effort: files without
// EXIF, unparseable files, and internal parser crashes all fall back to the
// unmodified input rather than losing the file.
func stripLocationTags(data []byte, ext, source string) (out []byte) {
	out = data
	defer func() {
		if r := recover(); r != nil {
			klog.Warningf("location stripping panicked for %s, copying original unchanged: %v", source, r)
			out = data
		}
	}()

	var stripped []byte
	var err error
	switch ext {
	case "jpg", "jpeg":
		stripped, err = stripJpegGps(data)
	case "png":
		stripped, err = stripPngGps(data)
	case "webp":
		stripped, err = stripWebpGps(data)
	default:
		klog.V(1).Infof("no location tags to strip in .%s file %s", ext, source)
		return data
	}
	if err != nil {
		klog.V(1).Infof("not stripping %s: %v", source, err)
		return data
	}
	return stripped
}

func stripJpegGps(data []byte) ([]byte, error) {
	jmp := jpegstructure.NewJpegMediaParser()

	intfc, err := jmp.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse jpeg: %w", err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	if _, _, err := sl.Exif(); err != nil {
		return nil, fmt.Errorf("no exif: %w", err)
	}

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return nil, fmt.Errorf("exif builder: %w", err)
	}

	if _, err := rootIb.DeleteAll(gpsIfdPointerTag); err != nil {
		return nil, fmt.Errorf("delete gps ifd: %w", err)
	}

	if err := sl.SetExif(rootIb); err != nil {
		return nil, fmt.Errorf("set exif: %w", err)
	}

	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return nil, fmt.Errorf("write jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func stripPngGps(data []byte) ([]byte, error) {
	pmp := pngstructure.NewPngMediaParser()

	intfc, err := pmp.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse png: %w", err)
	}
	cs := intfc.(*pngstructure.ChunkSlice)

	if _, _, err := cs.Exif(); err != nil {
		return nil, fmt.Errorf("no exif: %w", err)
	}

	rootIb, err := cs.ConstructExifBuilder()
	if err != nil {
		return nil, fmt.Errorf("exif builder: %w", err)
	}

	if _, err := rootIb.DeleteAll(gpsIfdPointerTag); err != nil {
		return nil, fmt.Errorf("delete gps ifd: %w", err)
	}

	if err := cs.SetExif(rootIb); err != nil {
		return nil, fmt.Errorf("set exif: %w", err)
	}

	var buf bytes.Buffer
	if err := cs.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write png: %w", err)
	}
	return buf.Bytes(), nil
}

// stripWebpGps rewrites the EXIF RIFF chunk in place. The chunk survives
// with its non-location tags, so any VP8X EXIF flag stays accurate.
func stripWebpGps(data []byte) ([]byte, error) {
	off, payload, err := findWebpChunk(data, "EXIF")
	if err != nil {
		return nil, err
	}

	tiff := bytes.TrimPrefix(payload, exifHeaderPrefix)
	prefix := payload[:len(payload)-len(tiff)]

	stripped, err := stripTiffGps(tiff)
	if err != nil {
		return nil, err
	}
	newPayload := append(append([]byte{}, prefix...), stripped...)

	// The old chunk spans its header, payload, and a pad byte on odd sizes.
	end := off + 8 + len(payload) + len(payload)%2
	if end > len(data) {
		end = len(data)
	}

	var buf bytes.Buffer
	buf.Write(data[:off])
	buf.WriteString("EXIF")
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(newPayload))); err != nil {
		return nil, err
	}
	buf.Write(newPayload)
	if len(newPayload)%2 == 1 {
		buf.WriteByte(0)
	}
	buf.Write(data[end:])

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out, nil
}

// stripTiffGps removes the GPS IFD from a raw TIFF-format EXIF block and
// re-encodes it.
func stripTiffGps(tiff []byte) ([]byte, error) {
	im := exifcommon.NewIfdMapping()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return nil, fmt.Errorf("load ifds: %w", err)
	}
	ti := exif.NewTagIndex()

	_, index, err := exif.Collect(im, ti, tiff)
	if err != nil {
		return nil, fmt.Errorf("parse exif: %w", err)
	}

	rootIb := exif.NewIfdBuilderFromExistingChain(index.RootIfd)
	if _, err := rootIb.DeleteAll(gpsIfdPointerTag); err != nil {
		return nil, fmt.Errorf("delete gps ifd: %w", err)
	}

	return exif.NewIfdByteEncoder().EncodeToExif(rootIb)
}

// findWebpChunk scans a RIFF WebP container for the named chunk, returning
// the offset of its header and its payload.
func findWebpChunk(data []byte, fourcc string) (int, []byte, error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return 0, nil, fmt.Errorf("not a webp container")
	}

	off := 12
	for off+8 <= len(data) {
		name := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		end := off + 8 + size
		if end > len(data) {
			return 0, nil, fmt.Errorf("truncated %s chunk", name)
		}
		if name == fourcc {
			return off, data[off+8 : end], nil
		}
		off = end + size%2
	}
	return 0, nil, fmt.Errorf("no %s chunk", fourcc)
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// pngExifPayload returns the payload of a PNG eXIf chunk, or nil when the
// file carries none.
func pngExifPayload(data []byte) []byte {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}

	off := len(pngSignature)
	for off+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		name := string(data[off+4 : off+8])
		end := off + 8 + size
		if end+4 > len(data) {
			return nil
		}
		switch name {
		case "eXIf":
			return data[off+8 : end]
		case "IEND":
			return nil
		}
		off = end + 4
	}
	return nil
}
