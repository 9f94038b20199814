// Package geo holds the coordinate domain core: the CoordinatePair value
// type, DMS/rational normalization, the shared coordinate-string parser and
// the regional hemisphere policy.
package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotFound signals an expected miss: no GPS tag, no text match.
	// Callers fall through to the next extraction tier; never log it as an
	// error.
	ErrNotFound = errors.New("coordinates not found")

	// ErrInvalidFormat signals a malformed candidate: a short DMS triple, a
	// non-numeric component or an out-of-range result.
	ErrInvalidFormat = errors.New("invalid coordinate format")
)

// CoordinatePair is a transient (latitude, longitude) in signed decimal
// degrees. Validate before accepting it anywhere downstream.
type CoordinatePair struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks global bounds: latitude [-90,90], longitude [-180,180].
func (p CoordinatePair) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return fmt.Errorf("%w: coordinate is NaN", ErrInvalidFormat)
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90, 90]", ErrInvalidFormat, p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180, 180]", ErrInvalidFormat, p.Longitude)
	}
	return nil
}

// String renders the pair in the display format also used as the geocoder
// fallback: "lat, lng" with six decimals.
func (p CoordinatePair) String() string {
	return fmt.Sprintf("%.6f, %.6f", p.Latitude, p.Longitude)
}

// Round returns v rounded to the given number of decimal places.
func Round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
