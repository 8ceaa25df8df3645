package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"Storefront/apperror"
	"Storefront/models"
	"Storefront/payment"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func shipping() Shipping {
	return Shipping{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Address:   "1 Analytical Way",
		Zipcode:   "10001",
		Place:     "London",
		Phone:     "555-0100",
	}
}

func TestCheckoutFromCart(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0001", "buyer@example.com")

	if _, err := env.svc.Cart.AddItem(env.ctx, user.ID, 1, 2); err != nil {
		t.Fatalf("add product 1: %v", err)
	}
	if _, err := env.svc.Cart.AddItem(env.ctx, user.ID, 2, 1); err != nil {
		t.Fatalf("add product 2: %v", err)
	}
	lines, err := env.svc.Cart.Get(env.ctx, user.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(lines) != 2 || lines[0].Quantity != 2 || lines[1].Quantity != 1 {
		t.Fatalf("expected quantities [2 1], got %+v", lines)
	}

	result, err := env.svc.Checkout.Checkout(env.ctx, user.ID, CheckoutInput{
		Shipping:    shipping(),
		StripeToken: payment.TokenVisa,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	order := result.Order
	if result.Replayed {
		t.Errorf("first checkout must not be a replay")
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("expected pending, got %s", order.Status)
	}
	if !order.PaidAmount.Valid || order.PaidAmount.Decimal.StringFixed(2) != "24.98" {
		t.Errorf("expected paid amount 24.98, got %v", order.PaidAmount)
	}
	if len(order.Items) != 2 {
		t.Errorf("expected two order items, got %d", len(order.Items))
	}

	charges := env.gateway.Charges()
	if len(charges) != 1 || charges[0].AmountMinor != 2498 || charges[0].Currency != "USD" {
		t.Errorf("unexpected charges %+v", charges)
	}

	lines, err = env.svc.Cart.Get(env.ctx, user.ID)
	if err != nil {
		t.Fatalf("get cart after checkout: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected empty cart, got %d lines", len(lines))
	}
	if n := env.count(t, &models.Order{}, "user_id = ? AND paid_amount IS NULL", user.ID); n != 0 {
		t.Errorf("expected no open order, got %d", n)
	}
}

func TestCheckoutExplicitItemsUseCurrentPrices(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0002", "explicit@example.com")

	if err := env.db.Model(&models.Product{}).Where("id = ?", 3).Update("price", "15.00").Error; err != nil {
		t.Fatalf("reprice: %v", err)
	}

	result, err := env.svc.Checkout.Checkout(env.ctx, user.ID, CheckoutInput{
		Items: []CheckoutItem{
			{ProductID: 3, Quantity: 1},
			{ProductID: 2, Quantity: 2},
			{ProductID: 3, Quantity: 1},
		},
		Shipping:    shipping(),
		StripeToken: payment.TokenVisa,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if got := result.Order.PaidAmount.Decimal.StringFixed(2); got != "40.00" {
		t.Errorf("expected 40.00, got %s", got)
	}
	if len(result.Order.Items) != 2 {
		t.Fatalf("duplicates should merge into two items, got %d", len(result.Order.Items))
	}
	for _, item := range result.Order.Items {
		if item.ProductID == 3 && item.Quantity != 2 {
			t.Errorf("expected merged quantity 2 for product 3, got %d", item.Quantity)
		}
	}
}

func TestCheckoutPaymentFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0003", "declined@example.com")

	if _, err := env.svc.Cart.AddItem(env.ctx, user.ID, 1, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := env.svc.Checkout.Checkout(env.ctx, user.ID, CheckoutInput{
		Shipping:    shipping(),
		StripeToken: payment.TokenDeclined,
	})
	if !apperror.Is(err, apperror.KindPaymentFailed) {
		t.Fatalf("expected payment failure, got %v", err)
	}
	if !errors.Is(err, payment.ErrDeclined) {
		t.Errorf("payment failure should wrap the gateway error, got %v", err)
	}

	if n := env.count(t, &models.Order{}, "user_id = ? AND paid_amount IS NOT NULL", user.ID); n != 0 {
		t.Errorf("expected no placed orders, got %d", n)
	}
	lines, err := env.svc.Cart.Get(env.ctx, user.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("cart should be untouched, got %d lines", len(lines))
	}
}

func TestCheckoutGatewayTimeout(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0004", "timeout@example.com")
	env.gateway.Err = context.DeadlineExceeded

	_, err := env.svc.Checkout.Checkout(env.ctx, user.ID, CheckoutInput{
		Items:       []CheckoutItem{{ProductID: 1, Quantity: 1}},
		Shipping:    shipping(),
		StripeToken: payment.TokenVisa,
	})
	if !apperror.Is(err, apperror.KindPaymentFailed) {
		t.Fatalf("expected payment failure, got %v", err)
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Message != "payment gateway timed out" {
		t.Errorf("unexpected reason %q", appErr.Message)
	}
}

func TestCheckoutValidation(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0005", "validate@example.com")

	missingPhone := shipping()
	missingPhone.Phone = " "

	cases := []struct {
		name  string
		input CheckoutInput
		kind  apperror.Kind
		field string
	}{
		{"empty cart", CheckoutInput{Shipping: shipping(), StripeToken: payment.TokenVisa}, apperror.KindValidation, "items"},
		{"empty items", CheckoutInput{Items: []CheckoutItem{}, Shipping: shipping(), StripeToken: payment.TokenVisa}, apperror.KindValidation, "items"},
		{"zero quantity", CheckoutInput{Items: []CheckoutItem{{ProductID: 1}}, Shipping: shipping(), StripeToken: payment.TokenVisa}, apperror.KindValidation, "quantity"},
		{"blank phone", CheckoutInput{Items: []CheckoutItem{{ProductID: 1, Quantity: 1}}, Shipping: missingPhone, StripeToken: payment.TokenVisa}, apperror.KindValidation, "phone"},
		{"no token", CheckoutInput{Items: []CheckoutItem{{ProductID: 1, Quantity: 1}}, Shipping: shipping()}, apperror.KindValidation, "stripe_token"},
		{"unknown product", CheckoutInput{Items: []CheckoutItem{{ProductID: 42, Quantity: 1}}, Shipping: shipping(), StripeToken: payment.TokenVisa}, apperror.KindNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Checkout.Checkout(env.ctx, user.ID, tc.input)
			if !apperror.Is(err, tc.kind) {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
			var appErr *apperror.Error
			if errors.As(err, &appErr) && appErr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, appErr.Field)
			}
		})
	}
	if len(env.gateway.Charges()) != 0 {
		t.Errorf("invalid checkouts must not charge")
	}
}

func TestCheckoutIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0006", "replay@example.com")

	input := CheckoutInput{
		Items:          []CheckoutItem{{ProductID: 1, Quantity: 1}},
		Shipping:       shipping(),
		StripeToken:    payment.TokenVisa,
		IdempotencyKey: "order-abc",
	}
	first, err := env.svc.Checkout.Checkout(env.ctx, user.ID, input)
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	second, err := env.svc.Checkout.Checkout(env.ctx, user.ID, input)
	if err != nil {
		t.Fatalf("replayed checkout: %v", err)
	}

	if !second.Replayed || second.Order.ID != first.Order.ID {
		t.Errorf("expected replay of order %d, got %+v", first.Order.ID, second)
	}
	if len(env.gateway.Charges()) != 1 {
		t.Errorf("expected one charge, got %d", len(env.gateway.Charges()))
	}
}

func TestCheckoutConcurrentDuplicateConflicts(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0007", "inflight@example.com")

	//以相同鍵值模擬仍在處理中的請求
	release, ok, err := env.svc.Checkout.locker.Acquire(env.ctx, fmt.Sprintf("%d:dup-key", user.ID))
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	defer release()

	_, err = env.svc.Checkout.Checkout(env.ctx, user.ID, CheckoutInput{
		Items:          []CheckoutItem{{ProductID: 1, Quantity: 1}},
		Shipping:       shipping(),
		StripeToken:    payment.TokenVisa,
		IdempotencyKey: "dup-key",
	})
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(env.gateway.Charges()) != 0 {
		t.Errorf("conflicting request must not charge")
	}
}

func TestCheckoutParallelSameKeyChargesOnce(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0008", "parallel@example.com")

	input := CheckoutInput{
		Items:          []CheckoutItem{{ProductID: 2, Quantity: 1}},
		Shipping:       shipping(),
		StripeToken:    payment.TokenVisa,
		IdempotencyKey: "same-key",
	}

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Checkout.Checkout(env.ctx, user.ID, input)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil && !apperror.Is(err, apperror.KindConflict) {
			t.Errorf("unexpected error %v", err)
		}
	}
	if len(env.gateway.Charges()) != 1 {
		t.Errorf("expected exactly one charge, got %d", len(env.gateway.Charges()))
	}
	if n := env.count(t, &models.Order{}, "user_id = ? AND idempotency_key = ?", user.ID, "same-key"); n != 1 {
		t.Errorf("expected one stored order, got %d", n)
	}
}

func TestCheckoutOrphanedChargeIsRefunded(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0009", "orphan@example.com")

	//讓寫入訂單失敗
	if err := env.db.Migrator().DropTable(&models.OrderItem{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := env.svc.Checkout.Checkout(env.ctx, user.ID, CheckoutInput{
		Items:       []CheckoutItem{{ProductID: 1, Quantity: 1}},
		Shipping:    shipping(),
		StripeToken: payment.TokenVisa,
	})
	if err == nil {
		t.Fatalf("expected persistence failure")
	}
	if apperror.KindOf(err) != apperror.KindInternal {
		t.Errorf("expected internal error, got %s", apperror.KindOf(err))
	}
	if len(env.gateway.Charges()) != 1 || len(env.gateway.Refunds()) != 1 {
		t.Errorf("expected one charge and one refund, got %d/%d", len(env.gateway.Charges()), len(env.gateway.Refunds()))
	}
	if n := env.count(t, &models.Order{}, "user_id = ?", user.ID); n != 0 {
		t.Errorf("order insert should have rolled back, got %d", n)
	}
}

// failOrdersAfterCommit 在購物車訂單於交易中刪除後，讓之後所有orders查詢失敗
func failOrdersAfterCommit(t *testing.T, db *gorm.DB) (disarm func()) {
	t.Helper()
	var armed atomic.Bool
	err := db.Callback().Delete().After("gorm:delete").Register("test:arm_orders_failure", func(tx *gorm.DB) {
		if tx.Statement.Table == "orders" {
			armed.Store(true)
		}
	})
	if err != nil {
		t.Fatalf("register delete callback: %v", err)
	}
	err = db.Callback().Query().Before("gorm:query").Register("test:fail_orders", func(tx *gorm.DB) {
		if armed.Load() && tx.Statement.Table == "orders" {
			tx.AddError(errors.New("connection reset"))
		}
	})
	if err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	return func() { armed.Store(false) }
}

func TestCheckoutStoredOrderIsNeverRefunded(t *testing.T) {
	for _, key := range []string{"", "after-commit"} {
		t.Run("key="+key, func(t *testing.T) {
			env := newTestEnv(t)
			user := env.register(t, "buyer0011", "stored@example.com")
			if _, err := env.svc.Cart.AddItem(env.ctx, user.ID, 1, 1); err != nil {
				t.Fatalf("add: %v", err)
			}
			disarm := failOrdersAfterCommit(t, env.db)

			result, err := env.svc.Checkout.Checkout(env.ctx, user.ID, CheckoutInput{
				Shipping:       shipping(),
				StripeToken:    payment.TokenVisa,
				IdempotencyKey: key,
			})
			disarm()
			if err != nil {
				t.Fatalf("checkout: %v", err)
			}
			if result.Replayed {
				t.Errorf("a fresh checkout must not be reported as a replay")
			}
			if len(result.Order.Items) != 1 || result.Order.Items[0].Product.Name != "Sun Hat" {
				t.Errorf("expected the stored items in the response, got %+v", result.Order.Items)
			}
			if refunds := env.gateway.Refunds(); len(refunds) != 0 {
				t.Errorf("stored order must keep its charge, got refunds %v", refunds)
			}
			if n := env.count(t, &models.Order{}, "user_id = ? AND paid_amount IS NOT NULL", user.ID); n != 1 {
				t.Errorf("expected one paid order, got %d", n)
			}
		})
	}
}

func TestOrphanedRecognisesCommittedOrder(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0012", "commit@example.com")

	key := "commit-ack-lost"
	stored := models.Order{
		UserID:         user.ID,
		PaidAmount:     decimal.NewNullDecimal(decimal.RequireFromString("9.99")),
		ChargeID:       "ch_stored",
		IdempotencyKey: &key,
		Status:         models.OrderStatusPending,
	}
	if err := env.db.Create(&stored).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	total := decimal.RequireFromString("9.99")

	result, err := env.svc.Checkout.orphaned(env.ctx, user.ID, key, total, payment.Charge{ID: "ch_stored"}, errors.New("commit ack lost"))
	if err != nil || result.Order.ID != stored.ID || result.Replayed {
		t.Fatalf("same charge: expected the stored order, got %+v %v", result, err)
	}
	result, err = env.svc.Checkout.orphaned(env.ctx, user.ID, "", total, payment.Charge{ID: "ch_stored"}, errors.New("commit ack lost"))
	if err != nil || result.Order.ID != stored.ID {
		t.Fatalf("same charge without key: expected the stored order, got %+v %v", result, err)
	}
	if len(env.gateway.Refunds()) != 0 {
		t.Errorf("charge of the stored order must not be refunded")
	}

	result, err = env.svc.Checkout.orphaned(env.ctx, user.ID, key, total, payment.Charge{ID: "ch_duplicate"}, errors.New("duplicate key"))
	if err != nil || !result.Replayed {
		t.Fatalf("other charge: expected a replay, got %+v %v", result, err)
	}
	if refunds := env.gateway.Refunds(); len(refunds) != 1 || refunds[0] != "ch_duplicate" {
		t.Errorf("expected the duplicate charge refunded, got %v", refunds)
	}
}

// cartChangingGateway 在扣款期間修改購物車
type cartChangingGateway struct {
	payment.Gateway
	during func()
}

func (g cartChangingGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.Charge, error) {
	g.during()
	return g.Gateway.Charge(ctx, req)
}

func TestCheckoutKeepsLinesAddedDuringCharge(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0013", "race@example.com")
	if _, err := env.svc.Cart.AddItem(env.ctx, user.ID, 1, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	env.svc.Checkout.gateway = cartChangingGateway{
		Gateway: env.gateway,
		during: func() {
			if _, err := env.svc.Cart.AddItem(env.ctx, user.ID, 3, 1); err != nil {
				t.Errorf("add product 3: %v", err)
			}
			if _, err := env.svc.Cart.AddItem(env.ctx, user.ID, 1, 2); err != nil {
				t.Errorf("add product 1: %v", err)
			}
		},
	}

	result, err := env.svc.Checkout.Checkout(env.ctx, user.ID, CheckoutInput{
		Shipping:    shipping(),
		StripeToken: payment.TokenVisa,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if got := result.Order.PaidAmount.Decimal.StringFixed(2); got != "9.99" || len(result.Order.Items) != 1 {
		t.Errorf("expected only the priced line, got %s with %d items", got, len(result.Order.Items))
	}

	lines, err := env.svc.Cart.Get(env.ctx, user.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected two lines left in the cart, got %+v", lines)
	}
	left := map[uint]uint{}
	for _, line := range lines {
		left[line.ProductID] = line.Quantity
	}
	if left[1] != 2 || left[3] != 1 {
		t.Errorf("expected product 1 x2 and product 3 x1 left, got %v", left)
	}
}

func TestCheckoutConfirmationMail(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "buyer0010", "mail@example.com")

	input := CheckoutInput{
		Items:       []CheckoutItem{{ProductID: 1, Quantity: 1}},
		Shipping:    shipping(),
		StripeToken: payment.TokenVisa,
	}
	if _, err := env.svc.Checkout.Checkout(env.ctx, user.ID, input); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	sent := env.mail.messages()
	if len(sent) != 1 || sent[0].to != "ada@example.com" {
		t.Fatalf("expected one confirmation to the shipping email, got %+v", sent)
	}

	off := false
	if _, err := env.svc.Account.UpdateSettings(env.ctx, user.ID, SettingsUpdate{OrderUpdates: &off}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := env.svc.Checkout.Checkout(env.ctx, user.ID, input); err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if len(env.mail.messages()) != 1 {
		t.Errorf("order_updates off must suppress the mail")
	}

	env.mail.err = errors.New("broker down")
	on := true
	if _, err := env.svc.Account.UpdateSettings(env.ctx, user.ID, SettingsUpdate{OrderUpdates: &on}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := env.svc.Checkout.Checkout(env.ctx, user.ID, input); err != nil {
		t.Errorf("mail failure must not fail checkout: %v", err)
	}
}

func TestOrdersListAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "orderown1", "owner@example.com")
	other := env.register(t, "orderoth1", "other@example.com")

	result, err := env.svc.Checkout.Checkout(env.ctx, owner.ID, CheckoutInput{
		Items:       []CheckoutItem{{ProductID: 1, Quantity: 1}},
		Shipping:    shipping(),
		StripeToken: payment.TokenVisa,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := env.svc.Cart.AddItem(env.ctx, owner.ID, 2, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	orders, err := env.svc.Orders.List(env.ctx, owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != result.Order.ID {
		t.Errorf("expected only the placed order, got %+v", orders)
	}
	if len(orders[0].Items) != 1 || orders[0].Items[0].Product.ID != 1 {
		t.Errorf("expected items with products preloaded, got %+v", orders[0].Items)
	}

	if _, err := env.svc.Orders.Get(env.ctx, result.Order.ID, other.ID); !apperror.Is(err, apperror.KindNotFound) {
		t.Errorf("foreign order: expected not found, got %v", err)
	}
	if _, err := env.svc.Orders.Get(env.ctx, result.Order.ID, owner.ID); err != nil {
		t.Errorf("own order: %v", err)
	}
}
