package geo

import (
	"regexp"
	"strconv"
	"strings"
)

// Salvage patterns for DMS triples mangled by optical recognition. These are
// quirks of Tesseract's output observed on real screenshots, not a general
// grammar: the engine tends to drop the decimal point in long second values
// and split them into two tokens ("22 8892999999952629"), and to confuse
// semicolons with commas. Verified against captured OCR samples; revisit when
// the engine changes.
var ocrDMSPatterns = []*regexp.Regexp{
	// Labeled triples, seconds possibly split at the decimal point.
	regexp.MustCompile(`(?is)(?:lat|latitude)[:\s]*(\d+)[;\s,]+(\d+)[;\s,]+(\d+(?:\.\d+)?)[ \t]*(\d+)?.*?(?:lon|longitude)[:\s]*(\d+)[;\s,]+(\d+)[;\s,]+(\d+(?:\.\d+)?)[ \t]*(\d+)?`),
	// Unlabeled triples with split seconds.
	regexp.MustCompile(`(?s)(\d+)[;,]\s*(\d+)[;,]\s*(\d+)[ \t]+(\d+).*?(\d+)[;,]\s*(\d+)[;,]\s*(\d+(?:\.\d+)?)[ \t]*(\d+)?`),
	// Semicolon/comma separated triples.
	regexp.MustCompile(`(?s)(\d+)[;,]\s*(\d+)[;,]\s*(\d+(?:\.\d+)?)()[^\d]+?(\d+)[;,]\s*(\d+)[;,]\s*(\d+(?:\.\d+)?)()`),
	// Plain space-separated triples.
	regexp.MustCompile(`(?s)(\d+)\s+(\d+)\s+(\d+\.\d+)()[^\d.]+?(\d+)\s+(\d+)\s+(\d+\.\d+)()`),
}

// ParseOCRText layers the engine-specific salvage patterns on top of the
// shared grammar. The quirk patterns run first: the general parser would
// otherwise match a split-seconds triple with the fraction token dropped and
// return a coordinate that is off by tens of meters. Returns nil on no match.
// The second result mirrors ParseCoordinateString's explicit-reference flag;
// the salvage patterns only match unsigned, unreferenced triples.
func ParseOCRText(text string) (*CoordinatePair, bool) {
	for _, re := range ocrDMSPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		latSec, ok1 := joinSplitSeconds(m[3], m[4])
		lngSec, ok2 := joinSplitSeconds(m[7], m[8])
		if !ok1 || !ok2 {
			continue
		}

		lat, latErr := ToDecimalDegrees([]DMSValue{Numeral(m[1]), Numeral(m[2]), Degree(latSec)}, 0)
		lng, lngErr := ToDecimalDegrees([]DMSValue{Numeral(m[5]), Numeral(m[6]), Degree(lngSec)}, 0)
		if latErr != nil || lngErr != nil {
			continue
		}

		p := CoordinatePair{Latitude: lat, Longitude: lng}
		if p.Validate() == nil {
			return &p, false
		}
	}

	return ParseCoordinateString(text)
}

// joinSplitSeconds rebuilds a seconds value whose decimal point the OCR
// engine dropped: "22" + "8892999999952629" -> 22.8892999999952629.
func joinSplitSeconds(whole, frac string) (float64, bool) {
	if frac == "" {
		v, err := strconv.ParseFloat(whole, 64)
		return v, err == nil
	}
	if strings.Contains(whole, ".") {
		// Seconds already carried a decimal point; the trailing token is
		// recognition noise, ignore it.
		v, err := strconv.ParseFloat(whole, 64)
		return v, err == nil
	}
	v, err := strconv.ParseFloat(whole+"."+frac, 64)
	return v, err == nil
}
