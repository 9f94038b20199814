package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"geopin/geo"
)

// exifStrategy reads the embedded GPS geotag: GPSLatitude/GPSLongitude as
// rational DMS triples plus their hemisphere reference tags. A missing
// reference is filled from the region hint when the magnitude falls inside
// the hint box.
type exifStrategy struct {
	hint geo.RegionHint
}

func (s *exifStrategy) Name() string { return "exif" }

func (s *exifStrategy) Extract(_ context.Context, m *Media) (Result, error) {
	x, err := exif.Decode(bytes.NewReader(m.Data))
	if err != nil {
		// No EXIF block at all is the expected case for most files.
		return Result{}, geo.ErrNotFound
	}

	latVals, err := gpsTriple(x, exif.GPSLatitude)
	if err != nil {
		return Result{}, err
	}
	lngVals, err := gpsTriple(x, exif.GPSLongitude)
	if err != nil {
		return Result{}, err
	}

	latRef := refByte(x, exif.GPSLatitudeRef)
	lngRef := refByte(x, exif.GPSLongitudeRef)

	guessed := false
	if latRef == 0 {
		if unsigned, dErr := geo.ToDecimalDegrees(latVals, 0); dErr == nil {
			if ref := s.hint.AssumeLatRef(unsigned); ref != 0 {
				latRef = ref
				guessed = true
			}
		}
	}
	if lngRef == 0 {
		if unsigned, dErr := geo.ToDecimalDegrees(lngVals, 0); dErr == nil {
			if ref := s.hint.AssumeLngRef(unsigned); ref != 0 {
				lngRef = ref
				guessed = true
			}
		}
	}

	lat, err := geo.ToDecimalDegrees(latVals, latRef)
	if err != nil {
		return Result{}, err
	}
	lng, err := geo.ToDecimalDegrees(lngVals, lngRef)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Pair:    geo.CoordinatePair{Latitude: lat, Longitude: lng},
		Guessed: guessed,
	}, nil
}

// gpsTriple reads a GPS coordinate tag as three rational components.
// An absent tag is ErrNotFound; a present but malformed tag is
// ErrInvalidFormat, which the chain treats as a rejected candidate.
func gpsTriple(x *exif.Exif, field exif.FieldName) ([]geo.DMSValue, error) {
	tag, err := x.Get(field)
	if err != nil {
		return nil, geo.ErrNotFound
	}
	if tag.Count < 3 {
		return nil, fmt.Errorf("%w: %s has %d components", geo.ErrInvalidFormat, field, tag.Count)
	}

	vals := make([]geo.DMSValue, 3)
	for i := 0; i < 3; i++ {
		num, den, rErr := tag.Rat2(i)
		if rErr != nil {
			// Some writers store the triple as plain values instead of
			// rationals.
			if f, fErr := tagFloat(tag, i); fErr == nil {
				vals[i] = geo.Degree(f)
				continue
			}
			return nil, fmt.Errorf("%w: %s component %d: %v", geo.ErrInvalidFormat, field, i, rErr)
		}
		vals[i] = geo.Rational{Num: num, Den: den}
	}
	return vals, nil
}

func tagFloat(tag *tiff.Tag, i int) (float64, error) {
	if v, err := tag.Float(i); err == nil {
		return v, nil
	}
	v, err := tag.Int64(i)
	return float64(v), err
}

func refByte(x *exif.Exif, field exif.FieldName) byte {
	tag, err := x.Get(field)
	if err != nil {
		return 0
	}
	s, err := tag.StringVal()
	if err != nil || s == "" {
		return 0
	}
	return s[0]
}
