package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentTransaction is the single source of truth for one payment
// attempt. Reference is the idempotency key shared by the client-poll
// and webhook paths; rows are never deleted (financial audit).
type PaymentTransaction struct {
	BaseModel
	Reference      string            `gorm:"uniqueIndex;not null" json:"reference"`
	Status         TransactionStatus `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	Amount         float64           `gorm:"not null" json:"amount"` // base currency units, fixed at init
	Email          string            `gorm:"not null" json:"email"`
	PhoneNumber    string            `json:"phoneNumber"`
	Name           string            `json:"name"`
	CourseCategory string            `json:"courseCategory"`
	ResultID       string            `gorm:"index" json:"resultId"`

	// Set only when a terminal transition is applied.
	GatewayReference string         `json:"gatewayReference"`
	WebhookData      datatypes.JSON `json:"-"` // last raw gateway payload, audit only
	CompletedAt      *time.Time     `json:"completedAt"`

	// Set after downstream side effects (notification, receipt) have
	// run for a completed transaction. A completed row with a nil
	// NotifiedAt means the process died between transition and
	// effects; the reconciliation worker retries the effects without
	// ever re-running the transition.
	NotifiedAt *time.Time `json:"-"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// EligibilityResult is the computed artifact a completed payment
// unlocks. The computation that fills Data lives outside this service;
// the row only needs to exist so the access gate has a join target.
type EligibilityResult struct {
	BaseModel
	Email       string         `json:"email"`
	PhoneNumber string         `json:"phoneNumber"`
	Name        string         `json:"name"`
	Data        datatypes.JSON `json:"data"`
}

func (EligibilityResult) TableName() string {
	return "eligibility_results"
}

// LegacyPaymentRecord is a read-only view of the older payment
// recording path. Kept only so previously paid users do not lose
// access; new completions always go to payment_transactions.
type LegacyPaymentRecord struct {
	BaseModel
	ResultID  string     `gorm:"index" json:"resultId"`
	Reference string     `json:"reference"`
	Amount    float64    `json:"amount"`
	PaidAt    *time.Time `json:"paidAt"`
}

func (LegacyPaymentRecord) TableName() string {
	return "legacy_payment_records"
}
