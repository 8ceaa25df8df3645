package models

import "time"

type UserSettings struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex" json:"-"`
	Language           string    `gorm:"size:10;not null" json:"language"`
	Currency           string    `gorm:"size:10;not null" json:"currency"`
	DarkMode           bool      `gorm:"not null" json:"dark_mode"`
	EmailNotifications bool      `gorm:"not null" json:"email_notifications"`
	OrderUpdates       bool      `gorm:"not null" json:"order_updates"`
	PromotionalEmails  bool      `gorm:"not null" json:"promotional_emails"`
	Newsletter         bool      `gorm:"not null" json:"newsletter"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func DefaultUserSettings(userID uint) UserSettings {
	return UserSettings{
		UserID:             userID,
		Language:           "en",
		Currency:           "USD",
		EmailNotifications: true,
		OrderUpdates:       true,
		PromotionalEmails:  true,
		Newsletter:         true,
	}
}
