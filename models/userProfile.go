package models

import "time"

type UserProfile struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;uniqueIndex" json:"-"`
	Phone          string     `gorm:"size:30" json:"phone"`
	DateOfBirth    *time.Time `gorm:"type:date" json:"date_of_birth"`
	ProfilePicture string     `gorm:"size:255" json:"profile_picture"`
	EmailVerified  bool       `gorm:"not null" json:"email_verified"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
