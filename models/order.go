package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order 的 PaidAmount 為 NULL 時即為該使用者的購物車。
// CartOwnerID 只在購物車狀態下等於 UserID，唯一索引保證每位使用者最多一台購物車。
type Order struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	UserID         uint                `gorm:"not null;uniqueIndex:idx_orders_user_idempotency" json:"-"`
	CartOwnerID    *uint               `gorm:"uniqueIndex" json:"-"`
	FirstName      string              `gorm:"size:100" json:"first_name"`
	LastName       string              `gorm:"size:100" json:"last_name"`
	Email          string              `gorm:"size:100" json:"email"`
	Address        string              `gorm:"size:100" json:"address"`
	Zipcode        string              `gorm:"size:100" json:"zipcode"`
	Place          string              `gorm:"size:100" json:"place"`
	Phone          string              `gorm:"size:100" json:"phone"`
	PaidAmount     decimal.NullDecimal `gorm:"type:decimal(9,2)" json:"paid_amount"`
	StripeToken    string              `gorm:"size:100" json:"stripe_token"`
	ChargeID       string              `gorm:"size:100;index" json:"-"`
	IdempotencyKey *string             `gorm:"size:100;uniqueIndex:idx_orders_user_idempotency" json:"-"`
	Status         OrderStatus         `gorm:"size:20;not null" json:"status"`
	Items          []OrderItem         `json:"items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"-"`
}
