// Package payment holds the gateway abstraction checkout charges through.
package payment

import (
	"context"
	"errors"
	"fmt"
)

// ErrDeclined is wrapped by gateway errors that represent a refusal by the
// card issuer or processor rather than a transport failure.
var ErrDeclined = errors.New("payment declined")

type ChargeRequest struct {
	AmountMinor int64
	Currency    string
	Source      string
	Description string
	// IdempotencyKey is forwarded to gateways that support it.
	IdempotencyKey string
}

type Charge struct {
	ID string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (Charge, error)
	Refund(ctx context.Context, chargeID string) error
}

type DeclineError struct {
	Code   string
	Reason string
}

func (e *DeclineError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", ErrDeclined, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", ErrDeclined, e.Code, e.Reason)
}

func (e *DeclineError) Unwrap() error {
	return ErrDeclined
}

// Reason returns the message to show the buyer for a failed charge.
func Reason(err error) string {
	var decline *DeclineError
	if errors.As(err, &decline) && decline.Reason != "" {
		return decline.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "payment gateway timed out"
	}
	return "payment could not be processed"
}
