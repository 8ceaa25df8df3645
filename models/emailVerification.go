package models

import "time"

const EmailVerificationTTL = 24 * time.Hour

type EmailVerification struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex"`
	User      User
	Token     string    `gorm:"size:128;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (v EmailVerification) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
