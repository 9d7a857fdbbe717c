package lysbilde

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGeocoder(loc *Location, err error) Geocoder {
	return func(lat, lon float64) (*Location, error) {
		return loc, err
	}
}

func TestCountryFlag(t *testing.T) {
	assert.Equal(t, "🇯🇵", countryFlag("JP"))
	assert.Equal(t, "🇺🇸", countryFlag("us"))
	assert.Equal(t, "", countryFlag(""))
	assert.Equal(t, "", countryFlag("12"))
}

func TestFormatCoords(t *testing.T) {
	assert.Equal(t, "35.6895° N, 139.6917° E", formatCoords(35.6895, 139.6917))
	assert.Equal(t, "33.8688° S, 151.2093° E", formatCoords(-33.8688, 151.2093))
	assert.Equal(t, "40.7128° N, 74.0060° W", formatCoords(40.7128, -74.006))
}

func TestNewGpsCoordsOff(t *testing.T) {
	assert.Nil(t, newGpsCoords(35, 139, GpsOff, fakeGeocoder(&Location{City: "Tokyo"}, nil)))
}

func TestNewGpsCoordsOn(t *testing.T) {
	loc := &Location{City: "Tokyo", Region: "Tokyo", Country: "Japan", CountryCode: "JP"}
	g := newGpsCoords(35.6895, 139.6917, GpsOn, fakeGeocoder(loc, nil))
	require.NotNil(t, g)

	require.NotNil(t, g.Latitude)
	assert.InDelta(t, 35.6895, *g.Latitude, 1e-9)
	require.NotNil(t, g.Longitude)
	assert.InDelta(t, 139.6917, *g.Longitude, 1e-9)
	assert.Equal(t, "35.6895° N, 139.6917° E", g.Display)
	assert.Equal(t, "Tokyo", g.City)
	assert.Equal(t, "Japan", g.Country)
	assert.Equal(t, "🇯🇵", g.Flag)
}

func TestNewGpsCoordsGeneral(t *testing.T) {
	loc := &Location{City: "Tokyo", Country: "Japan", CountryCode: "JP"}
	g := newGpsCoords(35.6895, 139.6917, GpsGeneral, fakeGeocoder(loc, nil))
	require.NotNil(t, g)

	// Exact coordinates never leak in general mode.
	assert.Nil(t, g.Latitude)
	assert.Nil(t, g.Longitude)
	assert.Empty(t, g.Display)
	assert.Equal(t, "Tokyo", g.City)
	assert.Equal(t, "JP", g.CountryCode)
}

func TestNewGpsCoordsGeocodeFailure(t *testing.T) {
	g := newGpsCoords(35.6895, 139.6917, GpsOn, fakeGeocoder(nil, errors.New("no dataset")))
	require.NotNil(t, g)

	// Coordinates survive even when the place lookup fails.
	assert.NotNil(t, g.Latitude)
	assert.Empty(t, g.City)
	assert.Empty(t, g.Flag)
}
