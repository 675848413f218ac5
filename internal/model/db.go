package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is one merchant-side payment attempt. Money fields are fixed at
// construction time from the payable item and never recomputed: a later
// price change must not retroactively alter an existing order.
type Order struct {
	ID             uint   `gorm:"primaryKey"`
	IdempotencyKey string `gorm:"size:36;index;not null"`

	Component   string `gorm:"size:64;index;not null"`
	PaymentArea string `gorm:"size:64;not null"`
	ItemID      int64  `gorm:"index;not null"`
	UserID      int64  `gorm:"index;not null"`
	AccountID   uint   `gorm:"index;not null"` // FK -> gateway_accounts

	RawCost     decimal.Decimal `gorm:"type:decimal(20,5);not null"` // pre-surcharge
	Cost        decimal.Decimal `gorm:"type:decimal(20,5);not null"` // charged amount
	Currency    string          `gorm:"size:8;not null"`
	AmountCents int64           `gorm:"not null"` // Cost in minor units

	Status string `gorm:"size:32;index;not null"`

	// Processor order id, or a composite intention id for the modern
	// API. Immutable once set: it is the join key for callbacks.
	PmOrderID string `gorm:"column:pm_order_id;size:64;index"`

	// Set only on the transition to success.
	PaymentID *uint

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderNote is one append-only audit entry recording a processor
// transaction event applied to an order. Never mutated after insert.
type OrderNote struct {
	ID            uint   `gorm:"primaryKey"`
	OrderID       uint   `gorm:"index;not null"`
	IntegrationID int64  `gorm:"not null"`
	Type          string `gorm:"size:32"` // payment method type (card, wallet, ...)
	SubType       string `gorm:"size:32"` // (mastercard, visa, ...)
	TransactionID int64  `gorm:"index"`
	PaymobOrderID string `gorm:"size:64"`
	Extra         string `gorm:"size:255"` // data message (Approved, Declined, ...)
	CreatedAt     time.Time
}

// Payment is the completed-payment ledger entry written exactly once
// when an order transitions to success.
type Payment struct {
	ID          uint            `gorm:"primaryKey"`
	AccountID   uint            `gorm:"index;not null"`
	Component   string          `gorm:"size:64;not null"`
	PaymentArea string          `gorm:"size:64;not null"`
	ItemID      int64           `gorm:"not null"`
	UserID      int64           `gorm:"index;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,5);not null"`
	Currency    string          `gorm:"size:8;not null"`
	Gateway     string          `gorm:"size:16;not null"`
	CreatedAt   time.Time
}

// PayableItem is one priced thing a user can pay for, keyed by the
// component/area/item triple the front end sends.
type PayableItem struct {
	ID          uint            `gorm:"primaryKey"`
	Component   string          `gorm:"size:64;uniqueIndex:idx_payable_ref;not null"`
	PaymentArea string          `gorm:"size:64;uniqueIndex:idx_payable_ref;not null"`
	ItemID      int64           `gorm:"uniqueIndex:idx_payable_ref;not null"`
	Name        string          `gorm:"size:128;not null"`
	Cost        decimal.Decimal `gorm:"type:decimal(20,5);not null"`
	Currency    string          `gorm:"size:8;not null"`
	AccountID   uint            `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GatewayAccount holds one merchant account's processor credentials and
// settings. Read-only from the reconciliation core's perspective.
type GatewayAccount struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:64;not null"`
	APIKey     string `gorm:"column:api_key;size:1024;not null"`
	PublicKey  string `gorm:"size:128"`
	PrivateKey string `gorm:"size:128"`
	HMACSecret string `gorm:"column:hmac_secret;size:128;not null"`

	// Legacy accounts use the flash/intention webhook protocol and the
	// old API generation; modern accounts never do. Selected here, not
	// by trial-and-error against the payload.
	Legacy bool `gorm:"not null"`

	// Integration ids as configured, "id:name(type):(CUR)" entries
	// joined by commas.
	IntegrationIDs string `gorm:"size:1024"`
	// Subset of said ids currently enabled, comma separated.
	EnabledIntegrationIDs string `gorm:"size:512"`

	MinimumAllowed    decimal.Decimal `gorm:"type:decimal(20,5)"`
	DiscountPercent   decimal.Decimal `gorm:"type:decimal(8,4)"`
	DiscountThreshold decimal.Decimal `gorm:"type:decimal(20,5)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
