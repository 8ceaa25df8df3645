package services

import (
	"context"
	"errors"
	"time"

	"Storefront/apperror"
	"Storefront/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cart 是使用者唯一一筆 paid_amount 為 NULL 的訂單及其明細
type Cart struct {
	db *gorm.DB
}

func (c *Cart) Get(ctx context.Context, userID uint) ([]models.OrderItem, error) {
	return cartLines(c.db.WithContext(ctx), userID)
}

func cartLines(db *gorm.DB, userID uint) ([]models.OrderItem, error) {
	lines := []models.OrderItem{}
	err := db.
		Where("order_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Order{}).
			Select("id").
			Where("cart_owner_id = ?", userID)).
		Preload("Product").
		Order("id").
		Find(&lines).
		Error
	return lines, err
}

// openCart 取得使用者的購物車訂單，create為true時不存在則建立
func openCart(tx *gorm.DB, userID uint, create bool) (models.Order, error) {
	var order models.Order
	err := tx.Where("cart_owner_id = ?", userID).First(&order).Error
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) || !create {
		return order, err
	}

	owner := userID
	order = models.Order{
		UserID:      userID,
		CartOwnerID: &owner,
		Status:      models.OrderStatusPending,
	}
	return order, tx.Create(&order).Error
}

func validateLine(productID uint, quantity int) error {
	if productID == 0 {
		return apperror.Validation("product_id", "is required")
	}
	if quantity < 1 {
		return apperror.Validation("quantity", "must be at least 1")
	}
	return nil
}

// AddItem 已存在相同商品時累加數量並保留原本的單價快照
func (c *Cart) AddItem(ctx context.Context, userID, productID uint, quantity int) (models.OrderItem, error) {
	if err := validateLine(productID, quantity); err != nil {
		return models.OrderItem{}, err
	}

	var line models.OrderItem
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			return notFound(err, "product %d not found", productID)
		}

		order, err := openCart(tx, userID, true)
		if err != nil {
			return err
		}

		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Price:     product.Price,
			Quantity:  uint(quantity),
		}
		err = tx.
			Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"quantity":   gorm.Expr("order_items.quantity + ?", quantity),
					"updated_at": time.Now(),
				}),
			}).
			Create(&item).
			Error
		if err != nil {
			return err
		}

		return tx.
			Preload("Product").
			Where("order_id = ? AND product_id = ?", order.ID, product.ID).
			First(&line).
			Error
	})
	return line, err
}

// SetQuantity 直接覆寫購物車內商品數量
func (c *Cart) SetQuantity(ctx context.Context, userID, productID uint, quantity int) (models.OrderItem, error) {
	if err := validateLine(productID, quantity); err != nil {
		return models.OrderItem{}, err
	}

	var line models.OrderItem
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		order, err := openCart(tx, userID, false)
		if err != nil {
			return notFound(err, "product %d is not in the cart", productID)
		}

		err = tx.
			Preload("Product").
			Where("order_id = ? AND product_id = ?", order.ID, productID).
			First(&line).
			Error
		if err != nil {
			return notFound(err, "product %d is not in the cart", productID)
		}

		line.Quantity = uint(quantity)
		return tx.Model(&line).Update("quantity", line.Quantity).Error
	})
	return line, err
}

func (c *Cart) RemoveItem(ctx context.Context, userID, productID uint) error {
	if productID == 0 {
		return apperror.Validation("product_id", "is required")
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}

		order, err := openCart(tx, userID, false)
		if err != nil {
			return notFound(err, "product %d is not in the cart", productID)
		}

		result := tx.
			Where("order_id = ? AND product_id = ?", order.ID, productID).
			Delete(&models.OrderItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.NotFound("product %d is not in the cart", productID)
		}
		return nil
	})
}

// clearCart 刪除使用者的購物車訂單及其明細
func clearCart(tx *gorm.DB, userID uint) error {
	order, err := openCart(tx, userID, false)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&order).Error
}

// settleCart 從購物車扣除已結帳的數量，沒有剩餘明細時刪除購物車訂單
func settleCart(tx *gorm.DB, userID uint, settled map[uint]uint) error {
	order, err := openCart(tx, userID, false)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for productID, quantity := range settled {
		err := tx.
			Where("order_id = ? AND product_id = ? AND quantity <= ?", order.ID, productID, quantity).
			Delete(&models.OrderItem{}).
			Error
		if err != nil {
			return err
		}
		err = tx.
			Model(&models.OrderItem{}).
			Where("order_id = ? AND product_id = ? AND quantity > ?", order.ID, productID, quantity).
			Update("quantity", gorm.Expr("quantity - ?", quantity)).
			Error
		if err != nil {
			return err
		}
	}

	var remaining int64
	if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&remaining).Error; err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}
	return tx.Delete(&order).Error
}
