package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/adeelqureshi/taleempay/app/models"
	"github.com/adeelqureshi/taleempay/internal/pkg/cache"
	"github.com/adeelqureshi/taleempay/internal/pkg/payment"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNotCompleted = errors.New("event is not completed")
)

const dedupKeyTTL = 48 * time.Hour

// DedupGuard is an optional fast-path claim ahead of the durable DB unique
// index. Claim reports whether this caller won the key; Release undoes a
// claim whose database apply failed so a redelivery can try again.
type DedupGuard interface {
	Claim(key string) (bool, error)
	Release(key string) error
}

type cacheGuard struct{}

func (cacheGuard) Claim(key string) (bool, error) {
	return cache.SetNX(key, 1, dedupKeyTTL)
}

func (cacheGuard) Release(key string) error {
	return cache.Delete(key)
}

// ApplyResult reports what a completed event did to the user record.
type ApplyResult struct {
	UserID           uint
	ExternalID       string
	PlanID           string
	SubscriptionTier string
	CreditBalance    uint
	Duplicate        bool
}

// Ledger applies verified completed payment events to user records with
// at-least-once-safe semantics: redelivery of the same transaction is a
// successful no-op, and a failed apply leaves no claim behind, so the
// gateway's retry gets a clean attempt.
type Ledger struct {
	repo  Repository
	guard DedupGuard
}

// New creates a ledger from an injected repository and dedup guard. A nil
// guard disables the cache fast path; the DB unique index still guarantees
// exactly-once application.
func New(repo Repository, guard DedupGuard) *Ledger {
	return &Ledger{repo: repo, guard: guard}
}

// NewFromDB creates a ledger backed by GORM with the Redis dedup fast path.
func NewFromDB(db *gorm.DB) *Ledger {
	return New(NewRepository(db), cacheGuard{})
}

// Apply applies a completed event: looks up the user, then atomically claims
// the transaction id and sets the subscription tier and credit balance (reset
// to the plan's grant) in one database transaction. Duplicate deliveries
// return Duplicate=true and leave the balance untouched. If the apply fails,
// both the claim record and the cache key are released before the error is
// returned.
func (l *Ledger) Apply(ctx context.Context, event *payment.Event) (*ApplyResult, error) {
	_ = ctx
	if event.Status != payment.StatusCompleted {
		return nil, ErrNotCompleted
	}

	plan, ok := payment.PlanByID(event.PlanID)
	if !ok {
		return nil, fmt.Errorf("%w: %q in event %s", payment.ErrInvalidPlan, event.PlanID, event.ExternalTransactionID)
	}

	user, err := l.repo.GetUserByExternalID(event.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, event.UserID)
		}
		return nil, err
	}

	duplicate := ApplyResult{
		UserID:           user.ID,
		ExternalID:       user.ExternalID,
		PlanID:           event.PlanID,
		SubscriptionTier: user.SubscriptionTier,
		CreditBalance:    user.CreditBalance,
		Duplicate:        true,
	}

	key := dedupKey(event)
	guardClaimed := false
	if l.guard != nil {
		won, guardErr := l.guard.Claim(key)
		if guardErr != nil {
			// Cache unavailable: fall through to the DB unique index.
			log.Printf("ledger: dedup cache unavailable, relying on db guard: %v", guardErr)
		} else if !won {
			return &duplicate, nil
		} else {
			guardClaimed = true
		}
	}

	customerRef := ""
	if event.Gateway == models.GatewaySafepay {
		customerRef = event.ExternalTransactionID
	}

	applied, err := l.repo.ApplyTransaction(&models.PaymentTransaction{
		Gateway:               event.Gateway,
		ExternalTransactionID: event.ExternalTransactionID,
		UserID:                user.ID,
		PlanID:                event.PlanID,
		Status:                string(event.Status),
		AmountMajor:           event.AmountMajor,
		Currency:              event.Currency,
		RawPayload:            event.RawPayload,
	}, plan.Tier, plan.CreditGrant, customerRef)
	if err != nil {
		if guardClaimed {
			if releaseErr := l.guard.Release(key); releaseErr != nil {
				log.Printf("ledger: failed to release dedup key %s: %v", key, releaseErr)
			}
		}
		return nil, err
	}
	if !applied {
		return &duplicate, nil
	}

	return &ApplyResult{
		UserID:           user.ID,
		ExternalID:       user.ExternalID,
		PlanID:           event.PlanID,
		SubscriptionTier: plan.Tier,
		CreditBalance:    plan.CreditGrant,
	}, nil
}

func dedupKey(event *payment.Event) string {
	return fmt.Sprintf("payment:applied:%s:%s", event.Gateway, event.ExternalTransactionID)
}
