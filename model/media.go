package model

import (
	"fmt"
	"strings"
	"time"

	"geopin/geo"
)

// Kind discriminates the two supported media types.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// KindFromContentType maps a MIME type to a media kind. Anything that is not
// an image or a video is unsupported.
func KindFromContentType(ct string) (Kind, bool) {
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage, true
	case strings.HasPrefix(ct, "video/"):
		return KindVideo, true
	}
	return "", false
}

// Category is the enumerated annotation tag attached to every record.
type Category string

const (
	CategorySolar          Category = "solar"
	CategoryEquipment      Category = "equipment"
	CategoryBuilding       Category = "building"
	CategoryInfrastructure Category = "infrastructure"
	CategoryOther          Category = "other"
)

// Categories lists every valid tag.
var Categories = []Category{
	CategorySolar,
	CategoryEquipment,
	CategoryBuilding,
	CategoryInfrastructure,
	CategoryOther,
}

// ParseCategory validates a user-supplied category value.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// MediaRecord is one uploaded, geotagged photo or video. Records are created
// after successful coordinate extraction and are immutable afterwards except
// for deletion by their owner. Both coordinates must be present and inside
// global bounds before a record is persisted; Validate enforces that.
type MediaRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Filename    string    `gorm:"not null" json:"filename"`
	StoredName  string    `gorm:"not null" json:"-"`
	ThumbName   string    `json:"-"`
	Latitude    float64   `gorm:"not null" json:"latitude"`
	Longitude   float64   `gorm:"not null" json:"longitude"`
	Category    Category  `gorm:"index;not null" json:"category"`
	Description string    `json:"description"`
	Kind        Kind      `gorm:"not null" json:"file_type"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `gorm:"index" json:"upload_date"`
	UserID      *uint     `gorm:"index" json:"user_id,omitempty"`
}

func (MediaRecord) TableName() string { return "media" }

// Coordinates returns the record's position as a pair.
func (m MediaRecord) Coordinates() geo.CoordinatePair {
	return geo.CoordinatePair{Latitude: m.Latitude, Longitude: m.Longitude}
}

// Validate checks the persistence invariant.
func (m MediaRecord) Validate() error {
	if m.Filename == "" {
		return fmt.Errorf("filename required")
	}
	if _, err := ParseCategory(string(m.Category)); err != nil {
		return err
	}
	if m.Kind != KindImage && m.Kind != KindVideo {
		return fmt.Errorf("unsupported media kind %q", m.Kind)
	}
	return m.Coordinates().Validate()
}
