package payment

import "github.com/adeelqureshi/taleempay/app/models"

// DefaultCurrency is the only currency the gateways are contracted for.
const DefaultCurrency = "PKR"

// QuotaUnlimited marks an unrestricted exam/submission quota.
const QuotaUnlimited = -1

// PlanDefinition is a static subscription plan. The table is fixed at compile
// time and immutable at runtime.
type PlanDefinition struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	PriceMajor      float64  `json:"price"`
	Currency        string   `json:"currency"`
	Tier            string   `json:"tier"`
	CreditGrant     uint     `json:"credit_grant"`
	ExamQuota       int      `json:"exams"`
	SubmissionQuota int      `json:"submissions"`
	Features        []string `json:"features"`
}

var planTable = []PlanDefinition{
	{
		ID:              "starter",
		Name:            "Starter",
		PriceMajor:      1500,
		Currency:        DefaultCurrency,
		Tier:            models.TIER_PRO,
		CreditGrant:     500,
		ExamQuota:       10,
		SubmissionQuota: 100,
		Features:        []string{"10 exams per month", "100 submissions", "Basic support"},
	},
	{
		ID:              "pro",
		Name:            "Pro",
		PriceMajor:      3500,
		Currency:        DefaultCurrency,
		Tier:            models.TIER_PRO,
		CreditGrant:     500,
		ExamQuota:       50,
		SubmissionQuota: 500,
		Features:        []string{"50 exams per month", "500 submissions", "Priority support", "Excel export"},
	},
	{
		ID:              "enterprise",
		Name:            "Enterprise",
		PriceMajor:      7500,
		Currency:        DefaultCurrency,
		Tier:            models.TIER_PRO,
		CreditGrant:     500,
		ExamQuota:       QuotaUnlimited,
		SubmissionQuota: QuotaUnlimited,
		Features:        []string{"Unlimited exams", "Unlimited submissions", "24/7 support", "Custom features"},
	},
}

// PlanByID looks up a plan in the static table.
func PlanByID(id string) (PlanDefinition, bool) {
	for _, p := range planTable {
		if p.ID == id {
			return p, true
		}
	}
	return PlanDefinition{}, false
}

// Plans returns all plans in display order.
func Plans() []PlanDefinition {
	out := make([]PlanDefinition, len(planTable))
	copy(out, planTable)
	return out
}
