package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Orchestrator turns a plan + gateway choice into a checkout descriptor. It
// owns plan pricing lookup and return-URL construction; the adapters own the
// wire formats. It never retries a failed adapter call.
type Orchestrator struct {
	registry     *Registry
	frontendBase string
}

func NewOrchestrator(registry *Registry, frontendBase string) *Orchestrator {
	return &Orchestrator{
		registry:     registry,
		frontendBase: strings.TrimRight(frontendBase, "/"),
	}
}

// CreateCheckout validates the plan, resolves the adapter and forwards the
// checkout request. Unknown plans and unknown gateways fail fast with
// distinct errors before any network call is attempted.
func (o *Orchestrator) CreateCheckout(ctx context.Context, planID, gatewayName, userID string) (*CheckoutSession, error) {
	plan, ok := PlanByID(planID)
	if !ok {
		return nil, newGatewayError(gatewayName, ErrInvalidPlan, "unknown plan: "+planID)
	}

	gateway, err := o.registry.Get(gatewayName)
	if err != nil {
		return nil, err
	}

	session, err := gateway.CreateCheckoutSession(ctx, CheckoutParams{
		AmountMajor: plan.PriceMajor,
		Currency:    plan.Currency,
		PlanID:      plan.ID,
		UserID:      userID,
		SuccessURL:  o.frontendBase + "/dashboard/payment/success",
		CancelURL:   o.frontendBase + "/dashboard/payment/cancelled",
		Metadata: map[string]string{
			"exams_limit":       strconv.Itoa(plan.ExamQuota),
			"submissions_limit": strconv.Itoa(plan.SubmissionQuota),
		},
	})
	if err != nil {
		if errors.Is(err, ErrCheckoutCreationFailed) {
			return nil, err
		}
		return nil, newGatewayError(gateway.Name(), ErrCheckoutCreationFailed, err.Error())
	}
	return session, nil
}
