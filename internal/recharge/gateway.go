package recharge

import (
	"bytes"         // Request body buffer
	"context"       // Context carries the charge timeout
	"encoding/json" // JSON request/response bodies
	"fmt"           // Error wrapping
	"net/http"      // HTTP client for the gateway API
	"wallet_engine/internal/domain" // Money type

	"github.com/google/uuid" // Per-attempt request IDs
)

// ChargeResult is a successful gateway charge
type ChargeResult struct {
	GatewayRef string // Gateway transaction reference, doubles as the credit idempotency key
}

// PaymentGateway is the external payment collaborator. Charge blocks until
// the gateway answers or ctx expires; implementations must honor ctx.
type PaymentGateway interface {
	Charge(ctx context.Context, paymentMethod string, amount domain.Money) (*ChargeResult, error)
}

// HTTPGateway calls a JSON-over-HTTP payment gateway
type HTTPGateway struct {
	url    string       // Charge endpoint
	client *http.Client // Shared HTTP client; timeouts come from ctx
}

// NewHTTPGateway creates an HTTPGateway
func NewHTTPGateway(url string) *HTTPGateway {
	return &HTTPGateway{url: url, client: &http.Client{}}
}

// chargeRequest is the wire shape sent to the gateway
type chargeRequest struct {
	RequestID     string `json:"request_id"`     // Unique per attempt, lets the gateway dedup retries
	PaymentMethod string `json:"payment_method"` // Stored payment method token
	Amount        string `json:"amount"`         // Decimal string, e.g. "50.00"
	AmountCents   int64  `json:"amount_cents"`   // Same amount in cents
}

// chargeResponse is the wire shape returned by the gateway
type chargeResponse struct {
	Success    bool   `json:"success"`     // Charge outcome
	GatewayRef string `json:"gateway_ref"` // Reference for successful charges
	Reason     string `json:"reason"`      // Rejection reason for failures
}

// Charge posts the charge request and maps failures onto GatewayError:
// transport problems and 5xx answers are retryable, gateway rejections are
// terminal.
func (g *HTTPGateway) Charge(ctx context.Context, paymentMethod string, amount domain.Money) (*ChargeResult, error) {
	requestID := uuid.NewString()
	body, err := json.Marshal(chargeRequest{
		RequestID:     requestID,
		PaymentMethod: paymentMethod,
		Amount:        amount.String(),
		AmountCents:   int64(amount),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal charge request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		// Network failure or ctx timeout: retryable on the next qualifying debit
		return nil, &GatewayError{Reason: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, &GatewayError{Reason: fmt.Sprintf("gateway returned %d", resp.StatusCode), Retryable: true}
	}
	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &GatewayError{Reason: fmt.Sprintf("invalid gateway response: %v", err), Retryable: true}
	}
	if !out.Success {
		return nil, &GatewayError{Reason: out.Reason, Retryable: false} // Terminal rejection
	}
	ref := out.GatewayRef
	if ref == "" {
		// A gateway that answers success without a reference still needs a
		// stable idempotency key for the credit
		ref = requestID
	}
	return &ChargeResult{GatewayRef: ref}, nil
}
