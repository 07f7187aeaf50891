package payment

import (
	"context"
	"strings"
)

// Status is the canonical, gateway-agnostic payment state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// StatusFromState maps a gateway's textual state onto the canonical enum.
// Unknown states are treated as pending.
func StatusFromState(state string) Status {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// CheckoutParams carries everything a gateway needs to start a checkout.
type CheckoutParams struct {
	AmountMajor float64
	Currency    string
	PlanID      string
	UserID      string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the descriptor returned to the client. For hosted
// gateways the client follows CheckoutURL; for redirect-form gateways the
// client submits FormFields to CheckoutURL via the given method. It is a
// value object, never mutated after creation.
type CheckoutSession struct {
	SessionID      string            `json:"session_id"`
	Gateway        string            `json:"gateway"`
	PlanID         string            `json:"plan_id"`
	UserID         string            `json:"user_id"`
	CheckoutURL    string            `json:"checkout_url"`
	AmountMajor    float64           `json:"amount"`
	Currency       string            `json:"currency"`
	RedirectMethod string            `json:"method"`
	FormFields     map[string]string `json:"form_data,omitempty"`
}

// Event is the canonical representation of a payment outcome. It is produced
// exclusively by webhook/verify normalization and consumed by the ledger.
type Event struct {
	Gateway               string  `json:"gateway"`
	ExternalTransactionID string  `json:"transaction_id"`
	Status                Status  `json:"status"`
	AmountMajor           float64 `json:"amount"`
	Currency              string  `json:"currency"`
	UserID                string  `json:"user_id"`
	PlanID                string  `json:"plan_id"`
	ResponseCode          string  `json:"response_code,omitempty"`
	ResponseMessage       string  `json:"response_message,omitempty"`
	RawPayload            string  `json:"-"`
}

// RefundResult describes the outcome of a refund request.
type RefundResult struct {
	RefundID    string  `json:"refund_id"`
	Gateway     string  `json:"gateway"`
	Status      string  `json:"status"`
	AmountMajor float64 `json:"amount"`
}

// Gateway is the capability interface every payment provider implements.
type Gateway interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	VerifyPayment(ctx context.Context, externalID string, payload map[string]string) (*Event, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*Event, error)
	RefundPayment(ctx context.Context, externalID string, amountMajor float64, reason string) (*RefundResult, error)
}

// MinorUnits converts a major-unit amount (rupees) to the smallest currency
// unit (paisa).
func MinorUnits(amountMajor float64) int64 {
	return int64(amountMajor * 100)
}

// MajorUnits converts minor units back to the display unit.
func MajorUnits(amountMinor int64) float64 {
	return float64(amountMinor) / 100
}
