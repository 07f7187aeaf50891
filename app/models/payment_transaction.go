package models

import "time"

// Gateway name constants used across payment-related models.
const (
	GatewaySafepay   = "safepay"
	GatewayJazzCash  = "jazzcash"
	GatewayEasypaisa = "easypaisa"
)

// PaymentTransaction records every gateway callback we applied, keyed by the
// gateway's transaction id. The unique (gateway, external_transaction_id)
// index is the durable guard against double-applying a redelivered webhook.
type PaymentTransaction struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	Gateway               string     `gorm:"type:varchar(20);not null;index:ux_payment_txns_gateway_txn,unique,priority:1" json:"gateway"`
	ExternalTransactionID string     `gorm:"type:varchar(191);not null;index:ux_payment_txns_gateway_txn,unique,priority:2" json:"external_transaction_id"`
	UserID                uint       `gorm:"not null;index" json:"user_id"`
	PlanID                string     `gorm:"type:varchar(50);not null" json:"plan_id"`
	Status                string     `gorm:"type:varchar(20);not null;index" json:"status"`
	AmountMajor           float64    `gorm:"not null;default:0" json:"amount_major"`
	Currency              string     `gorm:"type:varchar(10);not null;default:'PKR'" json:"currency"`
	RawPayload            string     `gorm:"type:longtext" json:"raw_payload"`
	AppliedAt             *time.Time `gorm:"type:timestamp;default:null" json:"applied_at,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
