package models

import (
	"time"
)

type LoginToken struct {
	ID             uint      `gorm:"primaryKey"`
	Token          string    `gorm:"size:700;not null;index"`
	ExpirationTime time.Time `gorm:"not null"`
	UserID         uint      `gorm:"not null;index"`
	Role           string    `gorm:"size:20"`
	CreatedAt      time.Time
}
