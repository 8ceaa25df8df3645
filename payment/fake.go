package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Stripe test tokens that the fake gateway understands.
const (
	TokenVisa     = "tok_visa"
	TokenDeclined = "tok_chargeDeclined"
)

// Fake is an in-memory gateway. Charges succeed unless the source is
// TokenDeclined or Err is set.
type Fake struct {
	mu      sync.Mutex
	Err     error
	charges []ChargeRequest
	refunds []string
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Charge(ctx context.Context, req ChargeRequest) (Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Charge{}, err
	}
	if f.Err != nil {
		return Charge{}, f.Err
	}
	if req.Source == TokenDeclined {
		return Charge{}, &DeclineError{Code: "card_declined", Reason: "Your card was declined."}
	}

	f.charges = append(f.charges, req)
	return Charge{ID: "ch_" + uuid.NewString()}, nil
}

func (f *Fake) Refund(ctx context.Context, chargeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refunds = append(f.refunds, chargeID)
	return nil
}

func (f *Fake) Charges() []ChargeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChargeRequest(nil), f.charges...)
}

func (f *Fake) Refunds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refunds...)
}
