package lysbilde

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripTestImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 16, 16))
}

// newTaggedExifBuilder returns a root IFD builder carrying camera, date,
// and GPS tags for 35°N 139°E.
func newTaggedExifBuilder(t *testing.T) *exif.IfdBuilder {
	t.Helper()

	im := exifcommon.NewIfdMapping()
	require.NoError(t, exifcommon.LoadStandardIfds(im))
	ti := exif.NewTagIndex()
	rootIb := exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)

	require.NoError(t, rootIb.SetStandardWithName("Make", "Canon"))
	require.NoError(t, rootIb.SetStandardWithName("Model", "Canon EOS R5"))

	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	require.NoError(t, err)
	require.NoError(t, exifIb.SetStandardWithName("DateTimeOriginal", "2024:06:01 12:00:00"))

	gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	require.NoError(t, err)

	dms := func(deg uint32) []exifcommon.Rational {
		return []exifcommon.Rational{
			{Numerator: deg, Denominator: 1},
			{Numerator: 0, Denominator: 1},
			{Numerator: 0, Denominator: 1},
		}
	}
	require.NoError(t, gpsIb.SetStandardWithName("GPSLatitudeRef", "N"))
	require.NoError(t, gpsIb.SetStandardWithName("GPSLatitude", dms(35)))
	require.NoError(t, gpsIb.SetStandardWithName("GPSLongitudeRef", "E"))
	require.NoError(t, gpsIb.SetStandardWithName("GPSLongitude", dms(139)))

	return rootIb
}

func jpegWithGps(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, stripTestImage(), nil))

	intfc, err := jpegstructure.NewJpegMediaParser().ParseBytes(buf.Bytes())
	require.NoError(t, err)
	sl := intfc.(*jpegstructure.SegmentList)
	require.NoError(t, sl.SetExif(newTaggedExifBuilder(t)))

	var out bytes.Buffer
	require.NoError(t, sl.Write(&out))
	return out.Bytes()
}

func pngWithGps(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, stripTestImage()))

	intfc, err := pngstructure.NewPngMediaParser().ParseBytes(buf.Bytes())
	require.NoError(t, err)
	cs := intfc.(*pngstructure.ChunkSlice)
	require.NoError(t, cs.SetExif(newTaggedExifBuilder(t)))

	var out bytes.Buffer
	require.NoError(t, cs.WriteTo(&out))
	return out.Bytes()
}

func webpWithGps(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, stripTestImage(), &webp.Options{Quality: 80}))

	payload, err := exif.NewIfdByteEncoder().EncodeToExif(newTaggedExifBuilder(t))
	require.NoError(t, err)

	out := append([]byte{}, buf.Bytes()...)
	out = append(out, []byte("EXIF")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)
	if len(payload)%2 == 1 {
		out = append(out, 0)
	}
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out
}

func TestStripLocationTagsRemovesGps(t *testing.T) {
	loc := &Location{City: "Tokyo", Country: "Japan", CountryCode: "JP"}

	for _, tc := range []struct {
		ext  string
		data []byte
	}{
		{"jpg", jpegWithGps(t)},
		{"png", pngWithGps(t)},
		{"webp", webpWithGps(t)},
	} {
		t.Run(tc.ext, func(t *testing.T) {
			source := "in." + tc.ext

			before := extractMetadata(tc.data, source, GpsOn, fakeGeocoder(loc, nil))
			require.NotNil(t, before.GPS, "fixture must carry GPS")

			stripped := stripLocationTags(tc.data, tc.ext, source)
			assert.NotEqual(t, tc.data, stripped)

			after := extractMetadata(stripped, source, GpsOn, fakeGeocoder(loc, nil))
			assert.Nil(t, after.GPS)

			// Non-location tags survive the rewrite.
			assert.Equal(t, "Canon EOS R5", after.Camera)
			assert.Equal(t, "2024-06-01T12:00:00", after.DateTaken)
		})
	}
}

func TestStripLocationTagsNoExif(t *testing.T) {
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, stripTestImage()))
	assert.Equal(t, pngBuf.Bytes(), stripLocationTags(pngBuf.Bytes(), "png", "plain.png"))

	var webpBuf bytes.Buffer
	require.NoError(t, webp.Encode(&webpBuf, stripTestImage(), &webp.Options{Quality: 80}))
	assert.Equal(t, webpBuf.Bytes(), stripLocationTags(webpBuf.Bytes(), "webp", "plain.webp"))
}

func TestStripLocationTagsGif(t *testing.T) {
	// GIF has no EXIF container, so the bytes pass through untouched.
	data := []byte("GIF89a not really a gif")
	assert.Equal(t, data, stripLocationTags(data, "gif", "a.gif"))
}

func TestStripLocationTagsMalformed(t *testing.T) {
	// Unparseable inputs fall back to the untouched bytes.
	data := []byte("\xff\xd8 definitely not a full jpeg")
	assert.Equal(t, data, stripLocationTags(data, "jpg", "bad.jpg"))
	assert.Equal(t, data, stripLocationTags(data, "png", "bad.png"))
	assert.Equal(t, data, stripLocationTags(data, "webp", "bad.webp"))
}
