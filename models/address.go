package models

import "time"

type Address struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"-"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	AddressLine1 string    `gorm:"size:255;not null" json:"address_line1"`
	AddressLine2 *string   `gorm:"size:255" json:"address_line2"`
	City         string    `gorm:"size:100;not null" json:"city"`
	State        string    `gorm:"size:100;not null" json:"state"`
	ZipCode      string    `gorm:"size:20;not null" json:"zip_code"`
	Phone        string    `gorm:"size:30;not null" json:"phone"`
	IsDefault    bool      `gorm:"not null" json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
