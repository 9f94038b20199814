package geo

import (
	"regexp"
	"strconv"
	"strings"
)

// Pattern templates for loosely formatted coordinate text, tried in order.
// This parser is the single implementation behind manual entry, OCR output
// and any future text source.
var (
	// "lat 22.889299 lon 22.169399", optional colon, any label casing.
	reLabeledDecimal = regexp.MustCompile(`(?is)(?:lat|latitude)[:\s]*([+-]?\d+\.\d+)°?.*?(?:lon|long|longitude)[:\s]*([+-]?\d+\.\d+)°?`)

	// "13.323528, 75.771964" or "13.323528 75.771964".
	reDecimalPair = regexp.MustCompile(`([+-]?\d+\.\d+)[,\s]+([+-]?\d+\.\d+)`)

	// "Latitude: 26; 6; 22.889 ... Longitude: 28; 10; 22.169". Each axis is
	// matched separately so label order and separators can vary.
	reLabeledDMSLat = regexp.MustCompile(`(?i)(?:lat|latitude)[:\s]*([+-]?\d+)[;\s,]+(\d+)[;\s,]+(\d+(?:\.\d+)?)`)
	reLabeledDMSLng = regexp.MustCompile(`(?i)(?:lon|long|longitude)[:\s]*([+-]?\d+)[;\s,]+(\d+)[;\s,]+(\d+(?:\.\d+)?)`)

	// `13°19'24.7"N 75°46'19.1"E`
	reSymbolDMS = regexp.MustCompile(`(\d+)°\s*(\d+)'\s*(\d+(?:\.\d+)?)"\s*([NSns])[\s,]+(\d+)°\s*(\d+)'\s*(\d+(?:\.\d+)?)"\s*([EWew])`)

	reNumberToken = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)
)

// ParseCoordinateString extracts a best-effort (lat, lng) from free text:
// typed input, OCR output with stray whitespace, coordinates copied out of a
// properties dialog. Templates are tried in order, first candidate inside
// global bounds wins; nil when nothing matches.
//
// The second result reports whether the text carried an explicit hemisphere
// marker for the latitude, a N/S suffix or a leading sign. Callers holding a
// regional hemisphere policy must not apply it to explicit input.
func ParseCoordinateString(text string) (*CoordinatePair, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	// 1. Labeled decimal pair.
	if m := reLabeledDecimal.FindStringSubmatch(text); m != nil {
		if p := decimalPair(m[1], m[2]); p != nil {
			return p, signedToken(m[1])
		}
	}

	// 2. Comma or space separated decimal pair.
	if m := reDecimalPair.FindStringSubmatch(text); m != nil {
		if p := decimalPair(m[1], m[2]); p != nil {
			return p, signedToken(m[1])
		}
	}

	// 3. Labeled DMS with semicolon/comma separators.
	latM := reLabeledDMSLat.FindStringSubmatch(text)
	lngM := reLabeledDMSLng.FindStringSubmatch(text)
	if latM != nil && lngM != nil {
		lat, latErr := ToDecimalDegrees(numerals(latM[1], latM[2], latM[3]), 0)
		lng, lngErr := ToDecimalDegrees(numerals(lngM[1], lngM[2], lngM[3]), 0)
		if latErr == nil && lngErr == nil {
			p := CoordinatePair{Latitude: lat, Longitude: lng}
			if p.Validate() == nil {
				return &p, signedToken(latM[1])
			}
		}
	}

	// 4. Symbol-delimited DMS with hemisphere suffixes.
	if m := reSymbolDMS.FindStringSubmatch(text); m != nil {
		lat, latErr := ToDecimalDegrees(numerals(m[1], m[2], m[3]), m[4][0])
		lng, lngErr := ToDecimalDegrees(numerals(m[5], m[6], m[7]), m[8][0])
		if latErr == nil && lngErr == nil {
			p := CoordinatePair{Latitude: lat, Longitude: lng}
			if p.Validate() == nil {
				return &p, true
			}
		}
	}

	// 5. Fallback: first two bare numeric tokens. Transposed input is common
	// enough that an impossible latitude paired with a possible one gets
	// swapped before validation.
	if nums := reNumberToken.FindAllString(text, 2); len(nums) == 2 {
		lat, latErr := strconv.ParseFloat(nums[0], 64)
		lng, lngErr := strconv.ParseFloat(nums[1], 64)
		if latErr == nil && lngErr == nil {
			latToken := nums[0]
			if (lat < -90 || lat > 90) && lng >= -90 && lng <= 90 {
				lat, lng = lng, lat
				latToken = nums[1]
			}
			p := CoordinatePair{Latitude: lat, Longitude: lng}
			if p.Validate() == nil {
				return &p, signedToken(latToken)
			}
		}
	}

	return nil, false
}

func decimalPair(latStr, lngStr string) *CoordinatePair {
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		return nil
	}
	p := CoordinatePair{Latitude: lat, Longitude: lng}
	if p.Validate() != nil {
		return nil
	}
	return &p
}

// signedToken reports whether a numeric token carries an explicit sign, which
// counts as a hemisphere statement.
func signedToken(s string) bool {
	return strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")
}

func numerals(parts ...string) []DMSValue {
	vals := make([]DMSValue, len(parts))
	for i, s := range parts {
		vals[i] = Numeral(s)
	}
	return vals
}
