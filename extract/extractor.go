// Package extract implements the ordered coordinate-extraction chain for
// uploaded media: EXIF GPS tags, then optical recognition of visible
// coordinate overlays, then a lightweight filename scan. Every tier returns a
// typed outcome; an expected miss (geo.ErrNotFound) falls through to the next
// tier, and so does a hard error after logging. The chain never fabricates a
// result: when all tiers miss, the caller must supply coordinates.
package extract

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"geopin/geo"
	"geopin/model"
	"geopin/ocr"
)

// Media is the decoded upload a strategy inspects.
type Media struct {
	Filename string
	Kind     model.Kind
	Data     []byte
}

// Result is a successful extraction: where the pair came from, and whether a
// regional hemisphere guess was applied to produce it.
type Result struct {
	Pair    geo.CoordinatePair
	Source  string
	Guessed bool
}

// Strategy is one tier of the chain.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, m *Media) (Result, error)
}

// Extractor walks strategies in order, first success wins.
type Extractor struct {
	strategies []Strategy
	log        *zap.Logger
}

// New assembles the standard chain. A nil recognizer disables the OCR tier.
func New(hint geo.RegionHint, recognizer ocr.Recognizer, ocrTimeout time.Duration, log *zap.Logger) *Extractor {
	strategies := []Strategy{&exifStrategy{hint: hint}}
	if recognizer != nil {
		strategies = append(strategies, &ocrStrategy{
			recognizer: recognizer,
			hint:       hint,
			timeout:    ocrTimeout,
		})
	}
	strategies = append(strategies, &overlayStrategy{})
	return &Extractor{strategies: strategies, log: log}
}

// NewWithStrategies builds an extractor over an explicit strategy list.
func NewWithStrategies(log *zap.Logger, strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies, log: log}
}

// Extract runs the chain. Videos carry no extractable metadata, so they skip
// it entirely and the caller's manual coordinates are required. The returned
// error is geo.ErrNotFound when every tier missed; that outcome is expected
// and should prompt manual entry, not an error page.
func (e *Extractor) Extract(ctx context.Context, m *Media) (Result, error) {
	if m.Kind != model.KindImage {
		return Result{}, geo.ErrNotFound
	}

	for _, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		res, err := s.Extract(ctx, m)
		if err == nil {
			if vErr := res.Pair.Validate(); vErr != nil {
				e.log.Warn("extracted coordinates out of bounds",
					zap.String("strategy", s.Name()),
					zap.String("file", m.Filename),
					zap.Error(vErr))
				continue
			}
			res.Source = s.Name()
			e.log.Info("coordinates extracted",
				zap.String("strategy", s.Name()),
				zap.String("file", m.Filename),
				zap.Float64("latitude", res.Pair.Latitude),
				zap.Float64("longitude", res.Pair.Longitude),
				zap.Bool("region_guess", res.Guessed))
			return res, nil
		}

		if errors.Is(err, geo.ErrNotFound) {
			e.log.Debug("extraction tier found nothing",
				zap.String("strategy", s.Name()),
				zap.String("file", m.Filename))
			continue
		}

		// Hard errors (malformed metadata, recognizer failures) also fall
		// through so a broken tier never blocks the upload.
		e.log.Error("extraction tier failed",
			zap.String("strategy", s.Name()),
			zap.String("file", m.Filename),
			zap.Error(err))
	}

	return Result{}, geo.ErrNotFound
}
