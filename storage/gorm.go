package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"geopin/model"
)

// GormStore implements Store over SQLite through GORM. The driver is pure Go,
// so tests open ":memory:" databases without cgo.
type GormStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects, migrates the schema and returns a ready store.
func Open(path string, log *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&model.MediaRecord{}, &model.User{}, &model.Session{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	log.Info("database ready", zap.String("path", path))
	return &GormStore{db: db, log: log}, nil
}

func (s *GormStore) SaveMedia(rec *model.MediaRecord) error {
	// Persistence invariant: never store a record with a missing or
	// out-of-range coordinate.
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now()
	}
	if err := s.db.Create(rec).Error; err != nil {
		return err
	}
	s.log.Info("media record saved",
		zap.Uint("id", rec.ID),
		zap.String("filename", rec.Filename),
		zap.String("category", string(rec.Category)))
	return nil
}

func (s *GormStore) GetMedia(id uint) (*model.MediaRecord, error) {
	var rec model.MediaRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) ListMedia(category string) ([]model.MediaRecord, error) {
	records := []model.MediaRecord{}
	query := s.db.Order("uploaded_at DESC, id DESC")
	query = filterCategory(query, category)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) ListMediaNear(lat, lng float64, category string) ([]model.MediaRecord, error) {
	records := []model.MediaRecord{}
	query := s.db.
		Where("ABS(latitude - ?) < ? AND ABS(longitude - ?) < ?", lat, LocationEpsilon, lng, LocationEpsilon).
		Order("uploaded_at DESC, id DESC")
	query = filterCategory(query, category)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) ListMediaInBounds(minLat, maxLat, minLng, maxLng float64, category string) ([]model.MediaRecord, error) {
	records := []model.MediaRecord{}
	query := s.db.
		Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?", minLat, maxLat, minLng, maxLng).
		Order("uploaded_at DESC, id DESC")
	query = filterCategory(query, category)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) ListMediaByUser(userID uint) ([]model.MediaRecord, error) {
	records := []model.MediaRecord{}
	err := s.db.Where("user_id = ?", userID).
		Order("uploaded_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *GormStore) DeleteMedia(id, userID uint) error {
	res := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.MediaRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.log.Info("media record deleted", zap.Uint("id", id), zap.Uint("user_id", userID))
	return nil
}

func (s *GormStore) CreateUser(user *model.User) error {
	err := s.db.Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *GormStore) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) CreateSession(session *model.Session) error {
	return s.db.Create(session).Error
}

func (s *GormStore) GetSession(tokenID string) (*model.Session, error) {
	var session model.Session
	err := s.db.Where("token_id = ? AND expires_at > ?", tokenID, time.Now()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *GormStore) DeleteSession(tokenID string) error {
	return s.db.Where("token_id = ?", tokenID).Delete(&model.Session{}).Error
}

func filterCategory(query *gorm.DB, category string) *gorm.DB {
	if category == "" || category == model.CategoryAll {
		return query
	}
	return query.Where("category = ?", category)
}
