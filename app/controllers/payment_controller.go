package controllers

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/adeelqureshi/taleempay/internal/pkg/ledger"
	"github.com/adeelqureshi/taleempay/internal/pkg/notify"
	"github.com/adeelqureshi/taleempay/internal/pkg/payment"
)

const webhookTimeout = 15 * time.Second

var validate = validator.New()

// CreateCheckoutRequest is the inbound payload for starting a checkout.
type CreateCheckoutRequest struct {
	PlanType      string `json:"plan_type" validate:"required"`
	GatewayChoice string `json:"gateway_choice" validate:"required"`
	UserID        string `json:"user_id" validate:"required"`
}

// VerifyPaymentRequest asks a gateway for the current state of a payment.
type VerifyPaymentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Gateway   string `json:"gateway" validate:"required"`
}

// PaymentController wires the checkout orchestrator, webhook pipeline,
// subscription ledger and notification hub behind the payments API.
type PaymentController struct {
	orchestrator *payment.Orchestrator
	registry     *payment.Registry
	ledger       *ledger.Ledger
	hub          *notify.Hub
}

func NewPaymentController(orchestrator *payment.Orchestrator, registry *payment.Registry, ldg *ledger.Ledger, hub *notify.Hub) *PaymentController {
	return &PaymentController{
		orchestrator: orchestrator,
		registry:     registry,
		ledger:       ldg,
		hub:          hub,
	}
}

// HandleCreateCheckout creates a checkout session for the selected gateway.
// For redirect-form gateways the response carries the signed form fields for
// the browser POST.
func (pc *PaymentController) HandleCreateCheckout(c *fiber.Ctx) error {
	var req CreateCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if req.UserID == "" {
		req.UserID = identityFromHeader(c)
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	session, err := pc.orchestrator.CreateCheckout(c.Context(), req.PlanType, req.GatewayChoice, req.UserID)
	if err != nil {
		status := fiber.StatusBadRequest
		code := "checkout_failed"
		switch {
		case errors.Is(err, payment.ErrInvalidPlan):
			code = "invalid_plan"
		case errors.Is(err, payment.ErrGatewayUnavailable):
			code = "gateway_unavailable"
		}
		log.Printf("checkout creation failed: gateway=%s plan=%s user=%s: %v", req.GatewayChoice, req.PlanType, req.UserID, err)
		return c.Status(status).JSON(fiber.Map{"error": code, "message": err.Error()})
	}

	log.Printf("checkout session created: %s - %s - user: %s", session.Gateway, session.PlanID, session.UserID)
	return c.Status(fiber.StatusOK).JSON(session)
}

// HandleWebhook processes a gateway callback: normalize, verify, apply to the
// ledger and notify live clients. The gateway is always acknowledged with
// {"status":"success"} once the event was handled, including the
// user-not-found case, to stop redelivery storms.
func (pc *PaymentController) HandleWebhook(c *fiber.Ctx) error {
	// Correlation id for tracing one delivery through the log lines below.
	deliveryID := uuid.NewString()
	gatewayName := c.Params("gateway")
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	event, err := payment.Normalize(ctx, pc.registry, payment.WebhookRequest{
		Gateway:         gatewayName,
		ContentType:     c.Get(fiber.HeaderContentType),
		RawBody:         rawBody,
		HeaderSignature: c.Get("X-Safepay-Signature"),
		QueryParams:     c.Queries(),
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrGatewayUnavailable):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "unsupported_gateway"})
		case errors.Is(err, payment.ErrSignatureInvalid):
			log.Printf("webhook rejected: delivery=%s gateway=%s: %v", deliveryID, gatewayName, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "invalid_signature"})
		case errors.Is(err, payment.ErrMalformedPayload):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "malformed_payload"})
		default:
			log.Printf("webhook processing failed: delivery=%s gateway=%s: %v", deliveryID, gatewayName, err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "webhook_failed"})
		}
	}

	log.Printf("webhook verified: delivery=%s gateway=%s txn=%s status=%s", deliveryID, event.Gateway, event.ExternalTransactionID, event.Status)

	if event.Status == payment.StatusCompleted {
		result, applyErr := pc.ledger.Apply(ctx, event)
		if applyErr != nil {
			if errors.Is(applyErr, ledger.ErrUserNotFound) || errors.Is(applyErr, payment.ErrInvalidPlan) {
				// Data error on our side: acknowledge receipt so the gateway
				// stops redelivering, and alert through the log instead.
				log.Printf("ALERT: completed payment not applied: delivery=%s txn=%s: %v", deliveryID, event.ExternalTransactionID, applyErr)
				return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "success"})
			}
			log.Printf("ledger apply failed: delivery=%s txn=%s: %v", deliveryID, event.ExternalTransactionID, applyErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "ledger_failed"})
		}

		if result.Duplicate {
			log.Printf("duplicate webhook ignored: delivery=%s gateway=%s txn=%s", deliveryID, event.Gateway, event.ExternalTransactionID)
		} else {
			log.Printf("payment applied: user=%s tier=%s credits=%d", result.ExternalID, result.SubscriptionTier, result.CreditBalance)
			// Notification failures never roll back the ledger change.
			pc.hub.Push(result.ExternalID, fiber.Map{
				"type": "payment_success",
				"data": fiber.Map{
					"subscription_status": strings.ToUpper(result.SubscriptionTier),
					"credits":             result.CreditBalance,
					"plan_type":           result.PlanID,
					"message":             "Payment successful! Your account has been upgraded.",
				},
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "success"})
}

// HandleVerifyPayment asks the gateway for the state of a payment. Used by
// the frontend after a redirect to confirm the outcome.
func (pc *PaymentController) HandleVerifyPayment(c *fiber.Ctx) error {
	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	gateway, err := pc.registry.Get(req.Gateway)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "gateway_unavailable", "message": err.Error()})
	}

	event, err := gateway.VerifyPayment(c.Context(), req.PaymentID, map[string]string{})
	if err != nil {
		log.Printf("payment verification failed: gateway=%s id=%s: %v", req.Gateway, req.PaymentID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "verification_failed", "message": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"verified":       event.Status == payment.StatusCompleted,
		"status":         event.Status,
		"amount":         event.AmountMajor,
		"transaction_id": event.ExternalTransactionID,
	})
}

// HandleGetPlans lists the available subscription plans with pricing.
func (pc *PaymentController) HandleGetPlans(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"plans": payment.Plans()})
}

// identityFromHeader trusts the external identity header as-is; upstream
// authentication is out of scope for this service.
func identityFromHeader(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get("X-User-ID"))
}
