// Package geocode resolves coordinate pairs to human-readable addresses via
// a Nominatim-compatible reverse geocoder, memoizing results by rounded
// coordinate key so external request volume stays bounded.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"geopin/geo"
)

// CachePrecision is the decimal-place count for cache keys. Four places
// (~11 m) is deliberately finer than the marker clustering precision:
// coarse enough for a useful hit rate, fine enough that neighboring streets
// keep distinct addresses.
const CachePrecision = 4

// Cache stores resolved addresses for the process (or longer, for durable
// implementations) lifetime. Entries are append-only and never invalidated;
// addresses are assumed stable, and last-write-wins on a key is acceptable
// because concurrent writers produce the same value.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, address string)
}

// nominatimResponse mirrors the fields of a Nominatim /reverse payload the
// resolver consumes.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road    string `json:"road"`
		Suburb  string `json:"suburb"`
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"address"`
}

// Resolver turns (lat, lng) into a display-safe address string. Resolve never
// fails its caller: any lookup problem degrades to a formatted "lat, lng"
// string, which is cached too so a dead geocoder is not hammered.
type Resolver struct {
	baseURL   string
	userAgent string
	client    *http.Client
	cache     Cache
	group     singleflight.Group
	log       *zap.Logger
}

// NewResolver builds a resolver against a Nominatim-compatible endpoint.
// userAgent is the distinguishing client identifier Nominatim's usage policy
// requires.
func NewResolver(baseURL, userAgent string, cache Cache, log *zap.Logger) *Resolver {
	return &Resolver{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
		cache:     cache,
		log:       log,
	}
}

// CacheKey is the rounded coordinate key addresses are memoized under.
func CacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.*f_%.*f", CachePrecision, lat, CachePrecision, lng)
}

// Resolve returns an address for the pair, hitting the external geocoder at
// most once per cache key. Concurrent misses on the same key are coalesced
// into a single request.
func (r *Resolver) Resolve(ctx context.Context, p geo.CoordinatePair) string {
	key := CacheKey(p.Latitude, p.Longitude)
	if addr, ok := r.cache.Get(key); ok {
		return addr
	}

	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		// A racing caller may have filled the cache while this one queued.
		if addr, ok := r.cache.Get(key); ok {
			return addr, nil
		}
		addr := r.lookup(ctx, p)
		r.cache.Put(key, addr)
		return addr, nil
	})
	return v.(string)
}

// lookup performs the single reverse-geocoding attempt. No retries: address
// display is non-critical and the coordinate string is an acceptable stand-in.
func (r *Resolver) lookup(ctx context.Context, p geo.CoordinatePair) string {
	fallback := p.String()

	url := fmt.Sprintf("%s/reverse?format=json&lat=%f&lon=%f&zoom=18&addressdetails=1", r.baseURL, p.Latitude, p.Longitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.log.Warn("building reverse geocode request failed", zap.Error(err))
		return fallback
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn("reverse geocoding unreachable, using coordinate fallback",
			zap.Float64("latitude", p.Latitude), zap.Float64("longitude", p.Longitude), zap.Error(err))
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.Warn("reverse geocoding returned non-OK status",
			zap.Int("status", resp.StatusCode))
		return fallback
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		r.log.Warn("malformed reverse geocoding response", zap.Error(err))
		return fallback
	}

	if addr := formatAddress(result); addr != "" {
		return addr
	}
	return fallback
}

// formatAddress joins the most specific available components in priority
// order, falling back to the geocoder's full display string.
func formatAddress(result nominatimResponse) string {
	addr := result.Address
	var parts []string

	if addr.Road != "" {
		parts = append(parts, addr.Road)
	}
	if addr.Suburb != "" {
		parts = append(parts, addr.Suburb)
	}
	if settlement := firstNonEmpty(addr.City, addr.Town, addr.Village); settlement != "" {
		parts = append(parts, settlement)
	}
	if region := firstNonEmpty(addr.State, addr.Region); region != "" {
		parts = append(parts, region)
	}
	if addr.Country != "" {
		parts = append(parts, addr.Country)
	}

	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return result.DisplayName
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
