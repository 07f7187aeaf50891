package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adeelqureshi/taleempay/app/models"
)

const (
	jazzCashSandboxURL    = "https://sandbox.jazzcash.com.pk/CustomerPortal/transactionmanagement/merchantform"
	jazzCashProductionURL = "https://payments.jazzcash.com.pk/CustomerPortal/transactionmanagement/merchantform"
	easypaisaProdURL      = "https://easypay.easypaisa.com.pk/easypay/Index.jsf"

	secureHashField = "pp_SecureHash"
	txnExpiryWindow = 30 * time.Minute
)

// RedirectFormConfig parameterizes one redirect-form brand. JazzCash and
// Easypaisa share the wire protocol and hash scheme; they differ only in
// merchant credentials and production endpoint, so both are instances of the
// same adapter type rather than separate implementations.
type RedirectFormConfig struct {
	Brand         string // models.GatewayJazzCash or models.GatewayEasypaisa
	MerchantID    string
	Password      string
	IntegritySalt string
	Environment   string // "sandbox" or "production"
	EndpointURL   string // optional override, defaults per brand+environment
}

// RedirectFormAdapter integrates the legacy HTTP-POST-redirect gateways.
// Session creation never calls the gateway; the browser performs the POST
// with merchant-signed form fields, and the gateway posts the outcome back to
// the return URL.
type RedirectFormAdapter struct {
	cfg RedirectFormConfig
	now func() time.Time
}

// NewRedirectFormAdapter validates merchant credentials and builds one brand
// instance.
func NewRedirectFormAdapter(cfg RedirectFormConfig) (*RedirectFormAdapter, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" || strings.TrimSpace(cfg.Password) == "" || strings.TrimSpace(cfg.IntegritySalt) == "" {
		return nil, errors.New("merchant id, password and integrity salt are required")
	}
	if cfg.EndpointURL == "" {
		cfg.EndpointURL = defaultRedirectEndpoint(cfg.Brand, cfg.Environment)
	}
	return &RedirectFormAdapter{cfg: cfg, now: time.Now}, nil
}

func defaultRedirectEndpoint(brand, environment string) string {
	if environment != "production" {
		// Both brands share the JazzCash sandbox.
		return jazzCashSandboxURL
	}
	if brand == models.GatewayEasypaisa {
		return easypaisaProdURL
	}
	return jazzCashProductionURL
}

func (a *RedirectFormAdapter) Name() string {
	return a.cfg.Brand
}

// CreateCheckoutSession builds the signed form-field map for the browser
// POST. No network call is made.
func (a *RedirectFormAdapter) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	_ = ctx
	now := a.now()
	txnRef := transactionRef(now, params.UserID)

	fields := map[string]string{
		"pp_Version":           "1.1",
		"pp_TxnType":           "MWALLET",
		"pp_Language":          "EN",
		"pp_MerchantID":        a.cfg.MerchantID,
		"pp_SubMerchantID":     "",
		"pp_Password":          a.cfg.Password,
		"pp_BankID":            "TBANK",
		"pp_ProductID":         "RETL",
		"pp_TxnRefNo":          txnRef,
		"pp_Amount":            strconv.FormatInt(MinorUnits(params.AmountMajor), 10),
		"pp_TxnCurrency":       strings.ToUpper(params.Currency),
		"pp_TxnDateTime":       now.Format("20060102150405"),
		"pp_BillReference":     "taleem_" + params.PlanID,
		"pp_Description":       "TaleemPay " + titleCase(params.PlanID) + " Plan",
		"pp_TxnExpiryDateTime": now.Add(txnExpiryWindow).Format("20060102 150405"),
		"pp_ReturnURL":         params.SuccessURL,
		"ppmpf_1":              params.UserID,
		"ppmpf_2":              params.PlanID,
		"ppmpf_3":              "",
		"ppmpf_4":              "",
		"ppmpf_5":              "",
	}
	fields[secureHashField] = SecureHash(fields, a.cfg.IntegritySalt)

	return &CheckoutSession{
		SessionID:      txnRef,
		Gateway:        a.Name(),
		PlanID:         params.PlanID,
		UserID:         params.UserID,
		CheckoutURL:    a.cfg.EndpointURL,
		AmountMajor:    params.AmountMajor,
		Currency:       params.Currency,
		RedirectMethod: http.MethodPost,
		FormFields:     fields,
	}, nil
}

// VerifyPayment validates the response hash over the inbound fields and maps
// the response code. Response code "000" is the only success code. The
// transaction expiry field is informational to the gateway; it is not
// re-validated here, so an expired reference with a correct hash still
// verifies.
func (a *RedirectFormAdapter) VerifyPayment(ctx context.Context, externalID string, payload map[string]string) (*Event, error) {
	_ = ctx
	if !VerifySecureHash(payload, secureHashField, a.cfg.IntegritySalt) {
		return nil, newGatewayError(a.Name(), ErrSignatureInvalid, "response hash mismatch")
	}

	responseCode := payload["pp_ResponseCode"]
	status := StatusFailed
	if responseCode == "000" {
		status = StatusCompleted
	}

	amountMinor, _ := strconv.ParseInt(payload["pp_Amount"], 10, 64)

	txnRef := payload["pp_TxnRefNo"]
	if txnRef == "" {
		txnRef = externalID
	}

	return &Event{
		Gateway:               a.Name(),
		ExternalTransactionID: txnRef,
		Status:                status,
		AmountMajor:           MajorUnits(amountMinor),
		Currency:              DefaultCurrency,
		UserID:                payload["ppmpf_1"],
		PlanID:                payload["ppmpf_2"],
		ResponseCode:          responseCode,
		ResponseMessage:       payload["pp_ResponseMessage"],
	}, nil
}

// HandleWebhook processes the return-URL callback. These gateways post
// form-encoded fields back to the merchant instead of calling a JSON webhook;
// the hash travels inside the payload, so the signature argument is unused.
func (a *RedirectFormAdapter) HandleWebhook(ctx context.Context, rawBody []byte, _ string) (*Event, error) {
	values, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return nil, newGatewayError(a.Name(), ErrMalformedPayload, err.Error())
	}

	payload := make(map[string]string, len(values))
	for k := range values {
		payload[k] = values.Get(k)
	}

	event, err := a.VerifyPayment(ctx, payload["pp_TxnRefNo"], payload)
	if err != nil {
		return nil, err
	}
	event.RawPayload = string(rawBody)
	return event, nil
}

// RefundPayment always fails: API-level refunds are genuinely unavailable
// for this brand pairing and must go through the merchant portal.
func (a *RedirectFormAdapter) RefundPayment(ctx context.Context, externalID string, amountMajor float64, reason string) (*RefundResult, error) {
	_ = ctx
	return nil, newGatewayError(a.Name(), ErrRefundNotSupported, "refunds must be processed through the merchant portal")
}

// transactionRef generates the merchant transaction reference:
// "T" + 14-digit timestamp + up to 6 chars of the user id.
func transactionRef(now time.Time, userID string) string {
	suffix := userID
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return "T" + now.Format("20060102150405") + suffix
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
