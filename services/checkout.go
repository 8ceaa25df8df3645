package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Storefront/apperror"
	"Storefront/cache"
	"Storefront/mailer"
	"Storefront/metrics"
	"Storefront/models"
	"Storefront/payment"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const checkoutCurrency = "USD"

type CheckoutItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type Shipping struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Zipcode   string `json:"zipcode"`
	Place     string `json:"place"`
	Phone     string `json:"phone"`
}

// CheckoutInput 的 Items 為 nil 時改用購物車內容
type CheckoutInput struct {
	Items []CheckoutItem `json:"items"`
	Shipping
	StripeToken    string `json:"stripe_token"`
	IdempotencyKey string `json:"idempotency_key"`
}

type CheckoutResult struct {
	Order    models.Order
	Replayed bool
}

type Checkout struct {
	db      *gorm.DB
	cart    *Cart
	gateway payment.Gateway
	mailer  mailer.Sender
	locker  *cache.Locker
	timeout time.Duration
	log     zerolog.Logger
}

func (in CheckoutInput) validate() error {
	required := []struct {
		field, value string
	}{
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
		{"email", in.Email},
		{"address", in.Address},
		{"zipcode", in.Zipcode},
		{"place", in.Place},
		{"phone", in.Phone},
		{"stripe_token", in.StripeToken},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.Validation(r.field, "is required")
		}
	}
	if in.Items != nil && len(in.Items) == 0 {
		return apperror.Validation("items", "must not be empty")
	}
	for _, item := range in.Items {
		if err := validateLine(item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

type pricedLine struct {
	product  models.Product
	quantity uint
}

// Checkout 依序執行：驗證、計算金額、扣款(不持有交易)、單一交易寫入訂單並清空購物車
func (c *Checkout) Checkout(ctx context.Context, userID uint, in CheckoutInput) (CheckoutResult, error) {
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if err := in.validate(); err != nil {
		metrics.CheckoutTotal.WithLabelValues("invalid").Inc()
		return CheckoutResult{}, err
	}

	if in.IdempotencyKey != "" {
		if order, ok, err := c.existing(ctx, userID, in.IdempotencyKey); err != nil || ok {
			return c.replay(order, ok, err)
		}

		if c.locker != nil {
			release, acquired, err := c.locker.Acquire(ctx, fmt.Sprintf("%d:%s", userID, in.IdempotencyKey))
			if err != nil {
				return CheckoutResult{}, err
			}
			if !acquired {
				metrics.CheckoutTotal.WithLabelValues("conflict").Inc()
				return CheckoutResult{}, apperror.Conflict("a checkout with this idempotency key is already in progress")
			}
			defer release()

			//取得鎖之前另一個請求可能已完成
			if order, ok, err := c.existing(ctx, userID, in.IdempotencyKey); err != nil || ok {
				return c.replay(order, ok, err)
			}
		}
	}

	lines, total, fromCart, err := c.price(ctx, userID, in.Items)
	if err != nil {
		metrics.CheckoutTotal.WithLabelValues("invalid").Inc()
		return CheckoutResult{}, err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	charge, err := c.gateway.Charge(chargeCtx, payment.ChargeRequest{
		AmountMinor:    total.Shift(2).IntPart(),
		Currency:       checkoutCurrency,
		Source:         in.StripeToken,
		Description:    fmt.Sprintf("order for user %d", userID),
		IdempotencyKey: in.IdempotencyKey,
	})
	cancel()
	if err != nil {
		metrics.CheckoutTotal.WithLabelValues("payment_failed").Inc()
		c.log.Warn().Err(err).Uint("user_id", userID).Str("amount", total.StringFixed(2)).Msg("charge failed")
		return CheckoutResult{}, apperror.PaymentFailed(payment.Reason(err), err)
	}

	order, err := c.persist(ctx, userID, in, lines, total, charge, fromCart)
	if err != nil {
		return c.orphaned(ctx, userID, in.IdempotencyKey, total, charge, err)
	}

	metrics.CheckoutTotal.WithLabelValues("success").Inc()
	c.confirm(ctx, userID, order)
	return CheckoutResult{Order: order}, nil
}

func (c *Checkout) replay(order models.Order, ok bool, err error) (CheckoutResult, error) {
	if err != nil {
		return CheckoutResult{}, err
	}
	metrics.CheckoutTotal.WithLabelValues("replayed").Inc()
	return CheckoutResult{Order: order, Replayed: ok}, nil
}

func (c *Checkout) existing(ctx context.Context, userID uint, key string) (models.Order, bool, error) {
	var order models.Order
	err := c.db.WithContext(ctx).
		Preload("Items.Product").
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return order, false, nil
	}
	return order, err == nil, err
}

// price 合併重複商品並以目前商品單價計算總額，fromCart表示商品取自購物車
func (c *Checkout) price(ctx context.Context, userID uint, items []CheckoutItem) ([]pricedLine, decimal.Decimal, bool, error) {
	fromCart := items == nil
	if fromCart {
		cartItems, err := c.cart.Get(ctx, userID)
		if err != nil {
			return nil, decimal.Zero, false, err
		}
		if len(cartItems) == 0 {
			return nil, decimal.Zero, false, apperror.Validation("items", "cart is empty")
		}
		for _, line := range cartItems {
			items = append(items, CheckoutItem{ProductID: line.ProductID, Quantity: int(line.Quantity)})
		}
	}

	var order []uint
	quantities := map[uint]uint{}
	for _, item := range items {
		if _, seen := quantities[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		quantities[item.ProductID] += uint(item.Quantity)
	}

	var products []models.Product
	if err := c.db.WithContext(ctx).Where("id IN ?", order).Find(&products).Error; err != nil {
		return nil, decimal.Zero, false, err
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]pricedLine, 0, len(order))
	total := decimal.Zero
	for _, id := range order {
		product, ok := byID[id]
		if !ok {
			return nil, decimal.Zero, false, apperror.NotFound("product %d not found", id)
		}
		qty := quantities[id]
		lines = append(lines, pricedLine{product: product, quantity: qty})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return lines, total, fromCart, nil
}

// persist 只有交易本身失敗才回傳錯誤，提交後直接以記憶體中的資料回應
func (c *Checkout) persist(ctx context.Context, userID uint, in CheckoutInput, lines []pricedLine, total decimal.Decimal, charge payment.Charge, fromCart bool) (models.Order, error) {
	order := models.Order{
		UserID:      userID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Address:     in.Address,
		Zipcode:     in.Zipcode,
		Place:       in.Place,
		Phone:       in.Phone,
		PaidAmount:  decimal.NewNullDecimal(total),
		StripeToken: in.StripeToken,
		ChargeID:    charge.ID,
		Status:      models.OrderStatusPending,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		order.IdempotencyKey = &key
	}

	var items []models.OrderItem
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return err
		}

		items = make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.product.ID,
				Price:     line.product.Price,
				Quantity:  line.quantity,
			})
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return err
		}

		if !fromCart {
			return clearCart(tx, userID)
		}
		//結帳期間加入購物車的商品不在這次扣款內，保留在購物車
		settled := make(map[uint]uint, len(lines))
		for _, line := range lines {
			settled[line.product.ID] = line.quantity
		}
		return settleCart(tx, userID, settled)
	})
	if err != nil {
		return models.Order{}, err
	}

	for i := range items {
		items[i].Product = lines[i].product
	}
	order.Items = items
	return order, nil
}

// orphaned 扣款成功但訂單寫入失敗，記錄並嘗試退款
func (c *Checkout) orphaned(ctx context.Context, userID uint, key string, total decimal.Decimal, charge payment.Charge, cause error) (CheckoutResult, error) {
	lookup := c.db.WithContext(context.WithoutCancel(ctx))

	//交易實際已提交，這筆扣款屬於已存在的訂單
	var committed models.Order
	err := lookup.Preload("Items.Product").Where("user_id = ? AND charge_id = ?", userID, charge.ID).First(&committed).Error
	if err == nil {
		c.log.Warn().Err(cause).Str("charge_id", charge.ID).Uint("order_id", committed.ID).Msg("order stored despite persist error")
		metrics.CheckoutTotal.WithLabelValues("success").Inc()
		return CheckoutResult{Order: committed}, nil
	}

	if key != "" {
		//同一個idempotency key已寫入訂單，退回這筆重複扣款
		if order, ok, err := c.existing(context.WithoutCancel(ctx), userID, key); err == nil && ok {
			c.refund(ctx, userID, charge)
			return c.replay(order, true, nil)
		}
	}

	metrics.CheckoutTotal.WithLabelValues("orphaned").Inc()
	metrics.OrphanedCharges.Inc()
	c.log.Error().
		Err(cause).
		Str("event", "checkout.orphaned_charge").
		Str("charge_id", charge.ID).
		Str("amount", total.StringFixed(2)).
		Uint("user_id", userID).
		Msg("charge succeeded but order was not stored")

	c.refund(ctx, userID, charge)
	return CheckoutResult{}, fmt.Errorf("store order for charge %s: %w", charge.ID, cause)
}

func (c *Checkout) refund(ctx context.Context, userID uint, charge payment.Charge) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.gateway.Refund(refundCtx, charge.ID); err != nil {
		c.log.Error().Err(err).Str("charge_id", charge.ID).Uint("user_id", userID).Msg("refund failed")
		return
	}
	c.log.Info().Str("charge_id", charge.ID).Uint("user_id", userID).Msg("charge refunded")
}

// confirm 寄送訂單確認信，失敗只記錄不影響結帳結果
func (c *Checkout) confirm(ctx context.Context, userID uint, order models.Order) {
	if c.mailer == nil {
		return
	}

	var settings models.UserSettings
	err := c.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.log.Warn().Err(err).Uint("user_id", userID).Msg("load settings for order confirmation")
		return
	}
	if err == nil && !settings.OrderUpdates {
		return
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\nThank you for your order #%d.\n\n", order.FirstName, order.ID)
	for _, item := range order.Items {
		fmt.Fprintf(&body, "%d x %s  %s\n", item.Quantity, item.Product.Name, item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&body, "\nTotal paid: %s %s\n", order.PaidAmount.Decimal.StringFixed(2), checkoutCurrency)

	subject := fmt.Sprintf("Order confirmation #%d", order.ID)
	if err := c.mailer.Send(ctx, order.Email, subject, body.String()); err != nil {
		c.log.Warn().Err(err).Uint("order_id", order.ID).Msg("order confirmation mail failed")
	}
}

type Orders struct {
	db *gorm.DB
}

// List 只列出已付款的訂單，購物車不會出現
func (o *Orders) List(ctx context.Context, userID uint) ([]models.Order, error) {
	orders := []models.Order{}
	err := o.db.WithContext(ctx).
		Preload("Items.Product").
		Where("user_id = ? AND paid_amount IS NOT NULL", userID).
		Order("created_at desc, id desc").
		Find(&orders).
		Error
	return orders, err
}

func (o *Orders) Get(ctx context.Context, id, userID uint) (models.Order, error) {
	var order models.Order
	err := o.db.WithContext(ctx).
		Preload("Items.Product").
		Where("id = ? AND user_id = ? AND paid_amount IS NOT NULL", id, userID).
		First(&order).
		Error
	return order, notFound(err, "order %d not found", id)
}
