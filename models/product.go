package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CategoryID  uint            `gorm:"not null;index" json:"-"`
	Category    *Category       `json:"-"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Slug        string          `gorm:"size:255;not null;index" json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(9,2);not null" json:"price"`
	Image       string          `gorm:"size:255" json:"image"`
	Thumbnail   string          `gorm:"size:255" json:"thumbnail"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AbsoluteURL 對應前端商品頁路徑
func (p Product) AbsoluteURL() string {
	if p.Category == nil {
		return ""
	}
	return "/" + p.Category.Slug + "/" + p.Slug + "/"
}
