package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DMSValue is one component of a degrees/minutes/seconds triple. EXIF and
// free-text sources mix plain numbers, numeric strings and rational
// numerator/denominator pairs; each variant knows how to become a float.
type DMSValue interface {
	Decimal() (float64, error)
}

// Degree is a component already expressed as a plain number.
type Degree float64

func (d Degree) Decimal() (float64, error) {
	if math.IsNaN(float64(d)) || math.IsInf(float64(d), 0) {
		return 0, fmt.Errorf("%w: non-finite DMS component", ErrInvalidFormat)
	}
	return float64(d), nil
}

// Rational is an EXIF-style numerator/denominator component. Conversion uses
// full floating-point division to keep the sub-second precision the tag
// carries. A zero denominator is a corrupt tag, not a value.
type Rational struct {
	Num int64
	Den int64
}

func (r Rational) Decimal() (float64, error) {
	if r.Den == 0 {
		return 0, fmt.Errorf("%w: rational %d/0 has zero denominator", ErrInvalidFormat, r.Num)
	}
	return float64(r.Num) / float64(r.Den), nil
}

// Numeral is a component carried as a numeric string.
type Numeral string

func (n Numeral) Decimal() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrInvalidFormat, string(n))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrInvalidFormat, string(n))
	}
	return v, nil
}

// ToDecimalDegrees converts a [degrees, minutes, seconds] triple plus an
// optional hemisphere reference (N/S/E/W, case-insensitive, 0 for none) into
// signed decimal degrees: d + m/60 + s/3600, negated for S and W.
//
// Fewer than three components or any component that fails to convert to a
// finite number is ErrInvalidFormat. The function is pure; identical inputs
// produce bit-identical results.
func ToDecimalDegrees(dms []DMSValue, ref byte) (float64, error) {
	if len(dms) < 3 {
		return 0, fmt.Errorf("%w: DMS needs 3 components, got %d", ErrInvalidFormat, len(dms))
	}

	degrees, err := dms[0].Decimal()
	if err != nil {
		return 0, err
	}
	minutes, err := dms[1].Decimal()
	if err != nil {
		return 0, err
	}
	seconds, err := dms[2].Decimal()
	if err != nil {
		return 0, err
	}

	dd := degrees + minutes/60 + seconds/3600
	if math.IsNaN(dd) || math.IsInf(dd, 0) {
		return 0, fmt.Errorf("%w: DMS result is not finite", ErrInvalidFormat)
	}

	switch ref {
	case 'S', 's', 'W', 'w':
		dd = -dd
	}
	return dd, nil
}
