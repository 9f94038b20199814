package extract

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/disintegration/imaging"

	"geopin/geo"
	"geopin/ocr"
)

// ocrStrategy recognizes text rendered into the image (camera overlays,
// screenshots of a properties dialog) and feeds it through the shared
// coordinate grammar plus the OCR salvage patterns. Recognition is
// time-bounded so a slow engine degrades to the next tier instead of stalling
// the upload.
type ocrStrategy struct {
	recognizer ocr.Recognizer
	hint       geo.RegionHint
	timeout    time.Duration
}

func (s *ocrStrategy) Name() string { return "ocr" }

func (s *ocrStrategy) Extract(ctx context.Context, m *Media) (Result, error) {
	img, err := imaging.Decode(bytes.NewReader(m.Data))
	if err != nil {
		return Result{}, geo.ErrNotFound
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.recognizer.Recognize(ctx, img)
	if err != nil {
		return Result{}, err
	}

	pair, explicit := geo.ParseOCRText(text)
	if pair == nil {
		return Result{}, geo.ErrNotFound
	}
	if explicit {
		// The overlay named its hemisphere; the regional guess does not
		// apply.
		return Result{Pair: *pair}, nil
	}

	applied, guessed := s.hint.Apply(*pair)
	return Result{Pair: applied, Guessed: guessed}, nil
}

// reFilenamePair matches two fractional decimals in a filename, e.g.
// "site_-26.106358_28.172825.jpg". Bare integers are deliberately excluded:
// sequence numbers and dates would otherwise turn into coordinates.
var reFilenamePair = regexp.MustCompile(`([+-]?\d{1,3}\.\d+)[,_\s-]+([+-]?\d{1,3}\.\d+)`)

// overlayStrategy is the last best-effort tier: a cheap scan of the filename
// for coordinate-looking text (exporters sometimes encode the position in the
// name). It legitimately returns not-found for almost every file; that is an
// explicit non-extraction outcome, not a failure.
type overlayStrategy struct{}

func (s *overlayStrategy) Name() string { return "overlay" }

func (s *overlayStrategy) Extract(_ context.Context, m *Media) (Result, error) {
	m2 := reFilenamePair.FindStringSubmatch(m.Filename)
	if m2 == nil {
		return Result{}, geo.ErrNotFound
	}
	lat, latErr := strconv.ParseFloat(m2[1], 64)
	lng, lngErr := strconv.ParseFloat(m2[2], 64)
	if latErr != nil || lngErr != nil {
		return Result{}, geo.ErrNotFound
	}
	pair := geo.CoordinatePair{Latitude: lat, Longitude: lng}
	if pair.Validate() != nil {
		return Result{}, geo.ErrNotFound
	}
	return Result{Pair: pair}, nil
}
