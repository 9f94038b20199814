// Package storage persists media records, users and sessions in a relational
// store, and media payloads in a blob store (local disk or MinIO).
package storage

import (
	"errors"
	"io"

	"geopin/model"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist or does not
	// belong to the caller.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when registering an email that exists.
	ErrDuplicateEmail = errors.New("email already exists")
)

// LocationEpsilon is the half-width of the coordinate box used by
// ListMediaNear: records within ±0.001° of the query point on both axes.
const LocationEpsilon = 0.001

// MediaStore provides the relational operations the pipeline consumes.
type MediaStore interface {
	SaveMedia(rec *model.MediaRecord) error
	GetMedia(id uint) (*model.MediaRecord, error)
	// ListMedia returns records, newest first, optionally filtered by
	// category ("" and "all" mean every category).
	ListMedia(category string) ([]model.MediaRecord, error)
	// ListMediaNear returns records within LocationEpsilon of the point.
	ListMediaNear(lat, lng float64, category string) ([]model.MediaRecord, error)
	// ListMediaInBounds returns records inside the bounding box.
	ListMediaInBounds(minLat, maxLat, minLng, maxLng float64, category string) ([]model.MediaRecord, error)
	ListMediaByUser(userID uint) ([]model.MediaRecord, error)
	// DeleteMedia removes a record owned by userID; ErrNotFound otherwise.
	DeleteMedia(id, userID uint) error
}

// UserStore manages accounts.
type UserStore interface {
	CreateUser(user *model.User) error
	GetUserByEmail(email string) (*model.User, error)
}

// SessionStore manages revocable login sessions.
type SessionStore interface {
	CreateSession(session *model.Session) error
	// GetSession returns the session only while it is unexpired.
	GetSession(tokenID string) (*model.Session, error)
	DeleteSession(tokenID string) error
}

// Store is the full relational surface.
type Store interface {
	MediaStore
	UserStore
	SessionStore
}

// BlobStore holds media payloads by server-assigned name.
type BlobStore interface {
	Save(name string, r io.Reader, size int64, contentType string) error
	Open(name string) (io.ReadCloser, error)
	Delete(name string) error
}
