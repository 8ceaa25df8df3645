package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Stripe talks to the Stripe charges API (or any server speaking the same
// form-encoded protocol).
type Stripe struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

func NewStripe(baseURL, secretKey string, timeout time.Duration) *Stripe {
	return &Stripe{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		Client:    &http.Client{Timeout: timeout},
	}
}

type stripeError struct {
	Error *struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"error"`
}

type stripeCharge struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Paid           bool   `json:"paid"`
	FailureCode    string `json:"failure_code"`
	FailureMessage string `json:"failure_message"`
}

func (s *Stripe) Charge(ctx context.Context, req ChargeRequest) (Charge, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("source", req.Source)
	if req.Description != "" {
		form.Set("description", req.Description)
	}

	var charge stripeCharge
	if err := s.post(ctx, "/v1/charges", form, req.IdempotencyKey, &charge); err != nil {
		return Charge{}, err
	}

	if !charge.Paid || charge.Status == "failed" {
		return Charge{}, &DeclineError{Code: charge.FailureCode, Reason: charge.FailureMessage}
	}

	return Charge{ID: charge.ID}, nil
}

func (s *Stripe) Refund(ctx context.Context, chargeID string) error {
	form := url.Values{}
	form.Set("charge", chargeID)

	var refund struct {
		ID string `json:"id"`
	}
	return s.post(ctx, "/v1/refunds", form, "refund-"+chargeID, &refund)
}

func (s *Stripe) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.SecretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr stripeError
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == nil {
			return fmt.Errorf("payment gateway error (%d): %s", resp.StatusCode, string(body))
		}
		//card_error代表發卡行拒絕，其他則視為閘道錯誤
		if apiErr.Error.Type == "card_error" {
			code := apiErr.Error.DeclineCode
			if code == "" {
				code = apiErr.Error.Code
			}
			return &DeclineError{Code: code, Reason: apiErr.Error.Message}
		}
		return fmt.Errorf("payment gateway error (%d): %s", resp.StatusCode, apiErr.Error.Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}
	return nil
}
