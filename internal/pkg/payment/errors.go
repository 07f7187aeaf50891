package payment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPlan            = errors.New("invalid plan")
	ErrGatewayUnavailable     = errors.New("gateway unavailable")
	ErrCheckoutCreationFailed = errors.New("checkout creation failed")
	ErrGatewayRequestFailed   = errors.New("gateway request failed")
	ErrSignatureInvalid       = errors.New("invalid signature")
	ErrMalformedPayload       = errors.New("malformed payload")
	ErrRefundNotSupported     = errors.New("refund not supported")
)

// GatewayError wraps a failure with the identity of the gateway it came from.
// It always carries one of the sentinel errors above so callers can branch
// with errors.Is while still logging the gateway-specific detail.
type GatewayError struct {
	Gateway string
	Detail  string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Gateway, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Gateway, e.Err, e.Detail)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func newGatewayError(gateway string, sentinel error, detail string) *GatewayError {
	return &GatewayError{Gateway: gateway, Err: sentinel, Detail: detail}
}
