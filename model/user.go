package model

import "time"

// User is an account in the illustrative login layer. Passwords are stored as
// bcrypt hashes; this is not a hardened security model.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a revocable login session. The token the client holds is a
// signed JWT whose jti claim points at one of these rows; logout deletes the
// row, which invalidates the token before its expiry.
type Session struct {
	ID        uint      `gorm:"primaryKey"`
	TokenID   string    `gorm:"uniqueIndex;not null"`
	UserID    uint      `gorm:"index;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`
}
