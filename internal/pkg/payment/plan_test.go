package payment

import (
	"testing"

	"github.com/adeelqureshi/taleempay/app/models"
)

func TestPlanByID(t *testing.T) {
	tests := []struct {
		id        string
		wantPrice float64
		wantFound bool
	}{
		{"starter", 1500, true},
		{"pro", 3500, true},
		{"enterprise", 7500, true},
		{"unknown", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		plan, ok := PlanByID(tc.id)
		if ok != tc.wantFound {
			t.Fatalf("%s: expected found=%v, got %v", tc.id, tc.wantFound, ok)
		}
		if ok && plan.PriceMajor != tc.wantPrice {
			t.Fatalf("%s: expected price %f, got %f", tc.id, tc.wantPrice, plan.PriceMajor)
		}
	}
}

func TestPlanTableInvariants(t *testing.T) {
	for _, plan := range Plans() {
		if plan.Currency != DefaultCurrency {
			t.Fatalf("%s: expected currency %s, got %s", plan.ID, DefaultCurrency, plan.Currency)
		}
		if plan.Tier != models.TIER_PRO {
			t.Fatalf("%s: every paid plan maps to the pro tier, got %s", plan.ID, plan.Tier)
		}
		if plan.CreditGrant != 500 {
			t.Fatalf("%s: expected credit grant 500, got %d", plan.ID, plan.CreditGrant)
		}
	}
}

func TestEnterpriseQuotasUnlimited(t *testing.T) {
	plan, ok := PlanByID("enterprise")
	if !ok {
		t.Fatalf("enterprise plan missing")
	}
	if plan.ExamQuota != QuotaUnlimited || plan.SubmissionQuota != QuotaUnlimited {
		t.Fatalf("expected unlimited quotas, got %d/%d", plan.ExamQuota, plan.SubmissionQuota)
	}
}

func TestUnitConversion(t *testing.T) {
	if MinorUnits(1500) != 150000 {
		t.Fatalf("MinorUnits(1500) = %d", MinorUnits(1500))
	}
	if MajorUnits(350000) != 3500 {
		t.Fatalf("MajorUnits(350000) = %f", MajorUnits(350000))
	}
}

func TestStatusFromState(t *testing.T) {
	tests := []struct {
		state string
		want  Status
	}{
		{"completed", StatusCompleted},
		{" Completed ", StatusCompleted},
		{"failed", StatusFailed},
		{"cancelled", StatusCancelled},
		{"canceled", StatusCancelled},
		{"tracker_started", StatusPending},
		{"", StatusPending},
	}

	for _, tc := range tests {
		if got := StatusFromState(tc.state); got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.state, tc.want, got)
		}
	}
}
