package model

import (
	"fmt"
	"sort"

	"geopin/geo"
)

// MarkerPrecision is the decimal-place count used to bucket media into map
// markers. Three places is roughly a 111 m clustering radius at the equator.
const MarkerPrecision = 3

// CategoryAll is the filter value that disables category filtering.
const CategoryAll = "all"

// LocationMarker is a derived coordinate bucket: media records whose rounded
// coordinates and category coincide. Markers are never persisted or mutated
// in place; they are rebuilt from the current record set on every read.
type LocationMarker struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Category  Category      `json:"category"`
	Count     int           `json:"media_count"`
	Address   string        `json:"address,omitempty"`
	Media     []MediaRecord `json:"media"`
}

// Pair returns the marker's bucket coordinate.
func (m LocationMarker) Pair() geo.CoordinatePair {
	return geo.CoordinatePair{Latitude: m.Latitude, Longitude: m.Longitude}
}

// AggregateMarkers groups records into markers keyed by
// (round(lat, MarkerPrecision), round(lng, MarkerPrecision), category).
// The projection is pure and order-independent over its input: markers come
// out sorted by count descending (ties by bucket key), and media within a
// marker by upload time descending for display. An optional category filter
// ("" and "all" mean no filter) restricts the input set. Empty input yields
// an empty, non-nil slice.
func AggregateMarkers(records []MediaRecord, category string) []LocationMarker {
	type bucketKey struct {
		lat float64
		lng float64
		cat Category
	}

	buckets := make(map[bucketKey]*LocationMarker)
	for _, rec := range records {
		if category != "" && category != CategoryAll && string(rec.Category) != category {
			continue
		}
		key := bucketKey{
			lat: geo.Round(rec.Latitude, MarkerPrecision),
			lng: geo.Round(rec.Longitude, MarkerPrecision),
			cat: rec.Category,
		}
		marker, ok := buckets[key]
		if !ok {
			marker = &LocationMarker{
				Latitude:  key.lat,
				Longitude: key.lng,
				Category:  key.cat,
			}
			buckets[key] = marker
		}
		marker.Media = append(marker.Media, rec)
	}

	markers := make([]LocationMarker, 0, len(buckets))
	for _, marker := range buckets {
		sort.Slice(marker.Media, func(i, j int) bool {
			a, b := marker.Media[i], marker.Media[j]
			if !a.UploadedAt.Equal(b.UploadedAt) {
				return a.UploadedAt.After(b.UploadedAt)
			}
			return a.ID > b.ID
		})
		marker.Count = len(marker.Media)
		markers = append(markers, *marker)
	}

	sort.Slice(markers, func(i, j int) bool {
		if markers[i].Count != markers[j].Count {
			return markers[i].Count > markers[j].Count
		}
		return markerKey(markers[i]) < markerKey(markers[j])
	})
	return markers
}

func markerKey(m LocationMarker) string {
	return fmt.Sprintf("%.*f_%.*f_%s", MarkerPrecision, m.Latitude, MarkerPrecision, m.Longitude, m.Category)
}
