package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adeelqureshi/taleempay/app/models"
	"github.com/adeelqureshi/taleempay/internal/pkg/ledger"
	"github.com/adeelqureshi/taleempay/internal/pkg/notify"
	"github.com/adeelqureshi/taleempay/internal/pkg/payment"
)

const testIntegritySalt = "integrity-salt"

type memoryRepository struct {
	mu      sync.Mutex
	users   map[string]*models.User
	claimed map[string]bool
	updates int
}

func newMemoryRepository(users ...*models.User) *memoryRepository {
	repo := &memoryRepository{
		users:   make(map[string]*models.User),
		claimed: make(map[string]bool),
	}
	for _, u := range users {
		repo.users[u.ExternalID] = u
	}
	return repo
}

func (r *memoryRepository) GetUserByExternalID(externalID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[externalID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *memoryRepository) ApplyTransaction(txn *models.PaymentTransaction, tier string, credits uint, safepayCustomerRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := txn.Gateway + "/" + txn.ExternalTransactionID
	if r.claimed[key] {
		return false, nil
	}
	r.claimed[key] = true
	r.updates++
	for _, u := range r.users {
		if u.ID == txn.UserID {
			u.SubscriptionTier = tier
			u.CreditBalance = credits
		}
	}
	return true, nil
}

type recordingSession struct {
	mu       sync.Mutex
	received []interface{}
}

func (s *recordingSession) SendJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, v)
	return nil
}

func (s *recordingSession) Close() error { return nil }

func newTestPaymentApp(t *testing.T, repo ledger.Repository) (*fiber.App, *notify.Hub) {
	t.Helper()

	registry := payment.NewRegistry()
	jazzcash, err := payment.NewRedirectFormAdapter(payment.RedirectFormConfig{
		Brand:         models.GatewayJazzCash,
		MerchantID:    "MC1234",
		Password:      "secret",
		IntegritySalt: testIntegritySalt,
	})
	require.NoError(t, err)
	registry.Register(jazzcash)

	orchestrator := payment.NewOrchestrator(registry, "http://localhost:3000")
	hub := notify.NewHub()
	pc := NewPaymentController(orchestrator, registry, ledger.New(repo, nil), hub)

	app := fiber.New()
	app.Get("/api/v1/payments/plans", pc.HandleGetPlans)
	app.Post("/api/v1/payments/create", pc.HandleCreateCheckout)
	app.Post("/api/v1/payments/verify", pc.HandleVerifyPayment)
	app.Post("/api/v1/payments/webhook/:gateway", pc.HandleWebhook)
	app.Get("/api/v1/payments/webhook/:gateway", pc.HandleWebhook)
	return app, hub
}

func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func signedWebhookForm(txnRef string) url.Values {
	payload := map[string]string{
		"pp_TxnRefNo":     txnRef,
		"pp_ResponseCode": "000",
		"pp_Amount":       "350000",
		"ppmpf_1":         "user1234",
		"ppmpf_2":         "pro",
	}
	payload["pp_SecureHash"] = payment.SecureHash(payload, testIntegritySalt)

	form := url.Values{}
	for k, v := range payload {
		form.Set(k, v)
	}
	return form
}

func TestHandleGetPlans(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/payments/plans", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	plans, ok := body["plans"].([]interface{})
	require.True(t, ok)
	assert.Len(t, plans, 3)
}

func TestHandleCreateCheckoutValidation(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing gateway", `{"plan_type":"pro","user_id":"user1234"}`},
		{"missing plan", `{"gateway_choice":"jazzcash","user_id":"user1234"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/payments/create", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleCreateCheckoutInvalidPlan(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	req := httptest.NewRequest("POST", "/api/v1/payments/create",
		strings.NewReader(`{"plan_type":"platinum","gateway_choice":"jazzcash","user_id":"user1234"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_plan", decodeBody(t, resp.Body)["error"])
}

func TestHandleCreateCheckoutUnknownGateway(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	req := httptest.NewRequest("POST", "/api/v1/payments/create",
		strings.NewReader(`{"plan_type":"pro","gateway_choice":"paypal","user_id":"user1234"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "gateway_unavailable", decodeBody(t, resp.Body)["error"])
}

func TestHandleCreateCheckoutRedirectForm(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	req := httptest.NewRequest("POST", "/api/v1/payments/create",
		strings.NewReader(`{"plan_type":"pro","gateway_choice":"jazzcash","user_id":"user1234"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, models.GatewayJazzCash, body["gateway"])
	assert.Equal(t, "POST", body["method"])
	assert.EqualValues(t, 3500, body["amount"])

	formData, ok := body["form_data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "350000", formData["pp_Amount"])
	assert.NotEmpty(t, formData["pp_SecureHash"])
}

func TestHandleCreateCheckoutIdentityHeaderFallback(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	req := httptest.NewRequest("POST", "/api/v1/payments/create",
		strings.NewReader(`{"plan_type":"pro","gateway_choice":"jazzcash"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "header-user")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "header-user", decodeBody(t, resp.Body)["user_id"])
}

func TestHandleWebhookCompletedPayment(t *testing.T) {
	user := &models.User{ID: 7, ExternalID: "user1234", SubscriptionTier: models.TIER_FREE}
	repo := newMemoryRepository(user)
	app, hub := newTestPaymentApp(t, repo)

	session := &recordingSession{}
	hub.Register("user1234", session)

	req := httptest.NewRequest("POST", "/api/v1/payments/webhook/jazzcash",
		strings.NewReader(signedWebhookForm("T20240315103000user12").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", decodeBody(t, resp.Body)["status"])

	assert.Equal(t, models.TIER_PRO, user.SubscriptionTier)
	assert.Equal(t, uint(500), user.CreditBalance)
	require.Len(t, session.received, 1, "live session should get a payment_success push")
}

func TestHandleWebhookDuplicateDelivery(t *testing.T) {
	user := &models.User{ID: 7, ExternalID: "user1234", SubscriptionTier: models.TIER_FREE}
	repo := newMemoryRepository(user)
	app, hub := newTestPaymentApp(t, repo)

	session := &recordingSession{}
	hub.Register("user1234", session)

	send := func() int {
		req := httptest.NewRequest("POST", "/api/v1/payments/webhook/jazzcash",
			strings.NewReader(signedWebhookForm("T20240315103000user12").Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "success", decodeBody(t, resp.Body)["status"])
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, send())
	assert.Equal(t, fiber.StatusOK, send())

	assert.Equal(t, 1, repo.updates, "duplicate webhook must not re-apply")
	assert.Len(t, session.received, 1, "duplicate webhook must not re-notify")
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	form := signedWebhookForm("T20240315103000user12")
	form.Set("pp_Amount", "1") // breaks the hash

	req := httptest.NewRequest("POST", "/api/v1/payments/webhook/jazzcash",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_signature", decodeBody(t, resp.Body)["status"])
}

func TestHandleWebhookUnknownGateway(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	req := httptest.NewRequest("POST", "/api/v1/payments/webhook/stripe", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported_gateway", decodeBody(t, resp.Body)["status"])
}

func TestHandleWebhookUnknownUserStillAcknowledged(t *testing.T) {
	repo := newMemoryRepository() // no users
	app, _ := newTestPaymentApp(t, repo)

	req := httptest.NewRequest("POST", "/api/v1/payments/webhook/jazzcash",
		strings.NewReader(signedWebhookForm("T20240315103000user12").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	// Acknowledged to stop gateway redelivery even though nothing was applied.
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", decodeBody(t, resp.Body)["status"])
	assert.Equal(t, 0, repo.updates)
}

func TestHandleWebhookGetCallback(t *testing.T) {
	user := &models.User{ID: 7, ExternalID: "user1234", SubscriptionTier: models.TIER_FREE}
	repo := newMemoryRepository(user)
	app, _ := newTestPaymentApp(t, repo)

	form := signedWebhookForm("T20240315103001user12")
	req := httptest.NewRequest("GET", "/api/v1/payments/webhook/jazzcash?"+form.Encode(), nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.TIER_PRO, user.SubscriptionTier)
}

func TestHandleWebhookFailedPaymentAcknowledged(t *testing.T) {
	user := &models.User{ID: 7, ExternalID: "user1234", SubscriptionTier: models.TIER_FREE}
	repo := newMemoryRepository(user)
	app, _ := newTestPaymentApp(t, repo)

	payload := map[string]string{
		"pp_TxnRefNo":     "T20240315103000user12",
		"pp_ResponseCode": "001",
		"pp_Amount":       "350000",
		"ppmpf_1":         "user1234",
		"ppmpf_2":         "pro",
	}
	payload["pp_SecureHash"] = payment.SecureHash(payload, testIntegritySalt)
	form := url.Values{}
	for k, v := range payload {
		form.Set(k, v)
	}

	req := httptest.NewRequest("POST", "/api/v1/payments/webhook/jazzcash",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.TIER_FREE, user.SubscriptionTier, "failed payment must not upgrade")
	assert.Equal(t, 0, repo.updates)
}

func TestHandleVerifyPaymentValidation(t *testing.T) {
	app, _ := newTestPaymentApp(t, newMemoryRepository())

	req := httptest.NewRequest("POST", "/api/v1/payments/verify", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
