package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	safepaySandboxURL    = "https://sandbox.api.safepay.com.pk"
	safepayProductionURL = "https://api.safepay.com.pk"

	hostedRequestTimeout = 10 * time.Second
)

// HostedCheckoutConfig carries the Safepay credentials and endpoints.
type HostedCheckoutConfig struct {
	APIKey        string
	WebhookSecret string
	Environment   string // "sandbox" or "production"
	WebhookURL    string
	BaseURL       string // optional override, defaults per environment
}

// HostedCheckoutAdapter integrates the JSON/REST hosted-checkout gateway.
// Session creation is a synchronous API call that returns a gateway-hosted
// payment page URL; completion arrives later via webhook.
type HostedCheckoutAdapter struct {
	cfg        HostedCheckoutConfig
	httpClient *http.Client
}

// NewHostedCheckoutAdapter validates credentials and builds the adapter.
func NewHostedCheckoutAdapter(cfg HostedCheckoutConfig) (*HostedCheckoutAdapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("safepay api key and webhook secret are required")
	}
	if cfg.BaseURL == "" {
		if cfg.Environment == "production" {
			cfg.BaseURL = safepayProductionURL
		} else {
			cfg.BaseURL = safepaySandboxURL
		}
	}
	return &HostedCheckoutAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: hostedRequestTimeout},
	}, nil
}

func (a *HostedCheckoutAdapter) Name() string {
	return "safepay"
}

type hostedCheckoutRequest struct {
	Environment string            `json:"environment"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	OrderID     string            `json:"order_id"`
	Source      string            `json:"source"`
	WebhookURL  string            `json:"webhook_url"`
	RedirectURL string            `json:"redirect_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

type hostedPaymentData struct {
	CheckoutURL   string            `json:"checkout_url"`
	Token         string            `json:"token"`
	State         string            `json:"state"`
	Amount        int64             `json:"amount"`
	PaymentMethod string            `json:"payment_method"`
	RefundID      string            `json:"refund_id"`
	Metadata      map[string]string `json:"metadata"`
}

type hostedResponse struct {
	Data hostedPaymentData `json:"data"`
}

// CreateCheckoutSession creates a hosted checkout session and returns the
// gateway-hosted payment page URL.
func (a *HostedCheckoutAdapter) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	metadata := map[string]string{
		"plan_type": params.PlanID,
		"user_id":   params.UserID,
	}
	for k, v := range params.Metadata {
		metadata[k] = v
	}

	payload := hostedCheckoutRequest{
		Environment: a.cfg.Environment,
		Amount:      MinorUnits(params.AmountMajor),
		Currency:    strings.ToUpper(params.Currency),
		OrderID:     fmt.Sprintf("taleem_%s_%d", params.UserID, time.Now().Unix()),
		Source:      "custom",
		WebhookURL:  a.cfg.WebhookURL,
		RedirectURL: params.SuccessURL,
		CancelURL:   params.CancelURL,
		Metadata:    metadata,
	}

	var out hostedResponse
	if err := a.doJSON(ctx, http.MethodPost, "/checkout/create", payload, &out); err != nil {
		return nil, newGatewayError(a.Name(), ErrCheckoutCreationFailed, err.Error())
	}
	if out.Data.CheckoutURL == "" {
		return nil, newGatewayError(a.Name(), ErrCheckoutCreationFailed, "gateway did not return a checkout url")
	}

	return &CheckoutSession{
		SessionID:      out.Data.Token,
		Gateway:        a.Name(),
		PlanID:         params.PlanID,
		UserID:         params.UserID,
		CheckoutURL:    out.Data.CheckoutURL,
		AmountMajor:    params.AmountMajor,
		Currency:       params.Currency,
		RedirectMethod: http.MethodGet,
	}, nil
}

// VerifyPayment fetches the payment by token and maps its state onto the
// canonical enum.
func (a *HostedCheckoutAdapter) VerifyPayment(ctx context.Context, externalID string, _ map[string]string) (*Event, error) {
	var out hostedResponse
	if err := a.doJSON(ctx, http.MethodGet, "/payments/"+externalID, nil, &out); err != nil {
		return nil, newGatewayError(a.Name(), ErrGatewayRequestFailed, "verify request failed: "+err.Error())
	}

	data := out.Data
	return &Event{
		Gateway:               a.Name(),
		ExternalTransactionID: data.Token,
		Status:                StatusFromState(data.State),
		AmountMajor:           MajorUnits(data.Amount),
		Currency:              DefaultCurrency,
		UserID:                data.Metadata["user_id"],
		PlanID:                data.Metadata["plan_type"],
	}, nil
}

type hostedWebhookPayload struct {
	Event struct {
		Type string `json:"type"`
	} `json:"event"`
	Data hostedPaymentData `json:"data"`
}

// HandleWebhook validates the body-level HMAC-SHA256 signature over the exact
// raw JSON body and maps the payload to a canonical event. A missing or
// mismatched signature is a hard failure.
func (a *HostedCheckoutAdapter) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*Event, error) {
	_ = ctx
	if !a.verifySignature(rawBody, signature) {
		return nil, newGatewayError(a.Name(), ErrSignatureInvalid, "webhook signature mismatch")
	}

	var payload hostedWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, newGatewayError(a.Name(), ErrMalformedPayload, err.Error())
	}

	return &Event{
		Gateway:               a.Name(),
		ExternalTransactionID: payload.Data.Token,
		Status:                StatusFromState(payload.Data.State),
		AmountMajor:           MajorUnits(payload.Data.Amount),
		Currency:              DefaultCurrency,
		UserID:                payload.Data.Metadata["user_id"],
		PlanID:                payload.Data.Metadata["plan_type"],
		RawPayload:            string(rawBody),
	}, nil
}

// verifySignature compares HMAC-SHA256(rawBody, webhookSecret) against the
// hex signature in constant time. Distinct from the redirect-form hash
// scheme: this signs the body bytes, not concatenated field values.
func (a *HostedCheckoutAdapter) verifySignature(rawBody []byte, signature string) bool {
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return false
	}
	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(a.cfg.WebhookSecret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), decoded)
}

// RefundPayment requests a full or partial refund for a payment token.
func (a *HostedCheckoutAdapter) RefundPayment(ctx context.Context, externalID string, amountMajor float64, reason string) (*RefundResult, error) {
	payload := map[string]interface{}{
		"token": externalID,
	}
	if amountMajor > 0 {
		payload["amount"] = MinorUnits(amountMajor)
	}
	if reason != "" {
		payload["reason"] = reason
	}

	var out hostedResponse
	if err := a.doJSON(ctx, http.MethodPost, "/payments/"+externalID+"/refund", payload, &out); err != nil {
		return nil, newGatewayError(a.Name(), ErrGatewayRequestFailed, "refund request failed: "+err.Error())
	}

	status := out.Data.State
	if status == "" {
		status = "pending"
	}
	return &RefundResult{
		RefundID:    out.Data.RefundID,
		Gateway:     a.Name(),
		Status:      status,
		AmountMajor: MajorUnits(out.Data.Amount),
	}, nil
}

func (a *HostedCheckoutAdapter) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway request failed: status=%d body=%s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}
