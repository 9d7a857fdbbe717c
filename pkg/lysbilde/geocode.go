package lysbilde

import (
	"fmt"
	"sync"

	"github.com/sams96/rgeo"
	"k8s.io/klog/v2"
)

// Location is the result of reverse-geocoding a coordinate pair.
type Location struct {
	City        string
	Region      string
	Country     string
	CountryCode string
}

// Geocoder maps coordinates to a place. The build never hits the network:
// the default implementation uses rgeo's embedded dataset.
type Geocoder func(lat, lon float64) (*Location, error)

var (
	rgeoOnce sync.Once
	rgeoInst *rgeo.Rgeo
	rgeoErr  error
)

// offlineGeocoder is the default Geocoder. The underlying dataset is
// loaded once, on first use, since it is expensive to parse.
func offlineGeocoder(lat, lon float64) (*Location, error) {
	rgeoOnce.Do(func() {
		rgeoInst, rgeoErr = rgeo.New(rgeo.Provinces10, rgeo.Cities10)
	})
	if rgeoErr != nil {
		return nil, fmt.Errorf("init geocoder: %w", rgeoErr)
	}

	loc, err := rgeoInst.ReverseGeocode([]float64{lon, lat})
	if err != nil {
		return nil, fmt.Errorf("reverse geocode (%f, %f): %w", lat, lon, err)
	}

	return &Location{
		City:        loc.City,
		Region:      loc.Province,
		Country:     loc.Country,
		CountryCode: loc.CountryCode2,
	}, nil
}

// countryFlag converts an ISO 3166-1 alpha-2 code to its flag emoji by
// mapping each letter to a regional indicator symbol.
func countryFlag(cc string) string {
	flag := make([]rune, 0, 2)
	for _, c := range cc {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			continue
		}
		flag = append(flag, 0x1F1E6+c-'A')
	}
	return string(flag)
}

// newGpsCoords builds the GPS block for the given privacy mode. GpsOff
// returns nil; GpsGeneral omits coordinates and keeps only the place.
func newGpsCoords(lat, lon float64, mode GpsMode, geocode Geocoder) *GpsCoords {
	if mode == GpsOff {
		return nil
	}
	if geocode == nil {
		geocode = offlineGeocoder
	}

	g := &GpsCoords{}
	if mode == GpsOn {
		latCopy, lonCopy := lat, lon
		g.Latitude = &latCopy
		g.Longitude = &lonCopy
		g.Display = formatCoords(lat, lon)
	}

	loc, err := geocode(lat, lon)
	if err != nil {
		klog.Warningf("reverse geocode failed: %v", err)
		return g
	}

	g.City = loc.City
	g.Region = loc.Region
	g.Country = loc.Country
	g.CountryCode = loc.CountryCode
	g.Flag = countryFlag(loc.CountryCode)
	return g
}

func formatCoords(lat, lon float64) string {
	latDir, lonDir := "N", "E"
	if lat < 0 {
		latDir, lat = "S", -lat
	}
	if lon < 0 {
		lonDir, lon = "W", -lon
	}
	return fmt.Sprintf("%.4f° %s, %.4f° %s", lat, latDir, lon, lonDir)
}
