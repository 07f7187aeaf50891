package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	TIER_FREE = "free"
	TIER_PRO  = "pro"

	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User mirrors the account record owned by the external identity provider.
// The payment pipeline only reads it by ExternalID and mutates tier, credits
// and gateway references through atomic updates.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	ExternalID        string         `gorm:"uniqueIndex;type:varchar(191);not null" json:"external_id" validate:"required,min=3,max=191"`
	Name              string         `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email             string         `gorm:"type:varchar(200);default:''" json:"email" validate:"omitempty,email,max=200"`
	Status            string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	SubscriptionTier  string         `gorm:"type:varchar(50);default:'free';index" json:"subscription_tier" validate:"oneof=free pro"`
	CreditBalance     uint           `gorm:"not null;default:0" json:"credit_balance"`
	SafepayCustomerID string         `gorm:"type:varchar(191);default:''" json:"-"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// UseCredit decrements the credit balance by one without going below zero.
// The grading pipeline calls this per submission; the payment pipeline never does.
func UseCredit(db *gorm.DB, userID uint) error {
	return db.Model(&User{}).
		Where("id = ? AND credit_balance > 0", userID).
		UpdateColumn("credit_balance", gorm.Expr("credit_balance - 1")).Error
}

// GetUserByExternalID resolves the identity-provider id to a local user record.
func GetUserByExternalID(db *gorm.DB, externalID string) (*User, error) {
	var u User
	if err := db.Where("external_id = ?", externalID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
