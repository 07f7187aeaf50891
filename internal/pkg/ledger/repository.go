package ledger

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adeelqureshi/taleempay/app/models"
)

// Repository provides the user-store and transaction-record operations the
// ledger needs.
type Repository interface {
	GetUserByExternalID(externalID string) (*models.User, error)
	// ApplyTransaction atomically claims the transaction record and updates
	// the user's tier and credits. It reports applied=false when the
	// transaction was already claimed. A failed user update rolls the claim
	// back so a redelivery can apply it again.
	ApplyTransaction(txn *models.PaymentTransaction, tier string, credits uint, safepayCustomerRef string) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByExternalID(externalID string) (*models.User, error) {
	return models.GetUserByExternalID(r.db, externalID)
}

// ApplyTransaction inserts the transaction record unless one already exists
// for the same (gateway, external transaction id), then updates the user in
// the same database transaction. The unique index makes the insert the atomic
// check-and-set that guards against concurrent duplicate webhook delivery;
// the loser of the race reports applied=false. If the user update fails the
// whole transaction rolls back, claim included, so the delivery can be
// retried.
func (r *gormRepository) ApplyTransaction(txn *models.PaymentTransaction, tier string, credits uint, safepayCustomerRef string) (bool, error) {
	now := time.Now()
	txn.AppliedAt = &now

	applied := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "gateway"},
				{Name: "external_transaction_id"},
			},
			DoNothing: true,
		}).Create(txn)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		updates := map[string]interface{}{
			"subscription_tier": tier,
			"credit_balance":    credits,
		}
		if safepayCustomerRef != "" {
			updates["safepay_customer_id"] = safepayCustomerRef
		}
		if err := tx.Model(&models.User{}).Where("id = ?", txn.UserID).Updates(updates).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
