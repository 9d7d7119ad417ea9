package geo

import (
	"errors"
	"fmt"
	"math"
)

// Earth radius used for great-circle distances, in meters.
const earthRadiusMeters = 6371000.0

// ErrInvalidCoordinates indicates a latitude or longitude out of range.
var ErrInvalidCoordinates = errors.New("geo: coordinates out of range")

// Location is an immutable geographic point. Altitude is optional and does
// not participate in distance calculations.
type Location struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	AltitudeM *float64 `json:"altitudeM,omitempty"`
}

// NewLocation validates and constructs a Location.
func NewLocation(lat, lng float64) (Location, error) {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return Location{}, err
	}
	return Location{Lat: lat, Lng: lng}, nil
}

// NewLocationAlt is NewLocation with an altitude attached.
func NewLocationAlt(lat, lng, altitudeM float64) (Location, error) {
	loc, err := NewLocation(lat, lng)
	if err != nil {
		return Location{}, err
	}
	loc.AltitudeM = &altitudeM
	return loc, nil
}

// ValidateCoordinates checks latitude ∈ [-90,90] and longitude ∈ [-180,180].
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90.0 || lat > 90.0 {
		return fmt.Errorf("%w: latitude %.6f", ErrInvalidCoordinates, lat)
	}
	if lng < -180.0 || lng > 180.0 {
		return fmt.Errorf("%w: longitude %.6f", ErrInvalidCoordinates, lng)
	}
	return nil
}

// DistanceTo returns the Haversine great-circle distance to other.
func (l Location) DistanceTo(other Location) Distance {
	dLat := radians(other.Lat - l.Lat)
	dLng := radians(other.Lng - l.Lng)
	rLat1 := radians(l.Lat)
	rLat2 := radians(other.Lat)

	sinLat := math.Sin(dLat / 2.0)
	sinLng := math.Sin(dLng / 2.0)
	a := sinLat*sinLat + math.Cos(rLat1)*math.Cos(rLat2)*sinLng*sinLng
	c := 2.0 * math.Atan2(math.Sqrt(a), math.Sqrt(1.0-a))
	return Meters(earthRadiusMeters * c)
}

// Blur rounds the coordinates to the given number of decimal places.
// Two decimal places is roughly a 1.1 km grid.
func (l Location) Blur(decimalPlaces int) Location {
	mult := math.Pow(10, float64(decimalPlaces))
	return Location{
		Lat:       math.Round(l.Lat*mult) / mult,
		Lng:       math.Round(l.Lng*mult) / mult,
		AltitudeM: l.AltitudeM,
	}
}

func (l Location) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", l.Lat, l.Lng)
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }

// Distance is a length in meters. Negative values are not meaningful.
type Distance float64

// Meters constructs a Distance from meters.
func Meters(m float64) Distance { return Distance(m) }

// Kilometers constructs a Distance from kilometers.
func Kilometers(km float64) Distance { return Distance(km * 1000.0) }

// Meters returns the distance in meters.
func (d Distance) Meters() float64 { return float64(d) }

// Kilometers returns the distance in kilometers.
func (d Distance) Kilometers() float64 { return float64(d) / 1000.0 }

// Within reports whether d is less than or equal to limit. The boundary is
// inclusive: a viewer exactly at the reveal radius is inside it.
func (d Distance) Within(limit Distance) bool { return d <= limit }

func (d Distance) String() string {
	if d >= 1000 {
		return fmt.Sprintf("%.2f km", d.Kilometers())
	}
	return fmt.Sprintf("%.0f m", float64(d))
}
