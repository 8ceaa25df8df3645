package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem 的 Price 是加入當下的商品單價快照
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;uniqueIndex:idx_order_items_order_product" json:"-"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_order_items_order_product" json:"-"`
	Product   Product         `json:"product"`
	Price     decimal.Decimal `gorm:"type:decimal(9,2);not null" json:"price"`
	Quantity  uint            `gorm:"not null" json:"quantity"`
	CreatedAt time.Time       `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
