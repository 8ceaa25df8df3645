package models

type Category struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"size:255;not null" json:"name"`
	Slug     string    `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Products []Product `json:"products,omitempty"`
}
