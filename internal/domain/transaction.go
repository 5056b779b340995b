package domain

import "time"

// Transaction kinds
const (
	TransactionKindCredit = "credit" // Balance increase
	TransactionKindDebit  = "debit"  // Balance decrease
)

// Transaction statuses
const (
	TransactionStatusPending   = "pending"   // Created, balance move not yet visible
	TransactionStatusCompleted = "completed" // Finalized, counted in the ledger sum
	TransactionStatusFailed    = "failed"    // Finalized without a balance move
)

// Transaction Model. Rows are append-only: once the status reaches
// completed or failed the row is never mutated again.
type Transaction struct {
	ID               uint       `gorm:"primaryKey" json:"id"`                                                      // Primary key
	WalletID         uint       `gorm:"index;not null;uniqueIndex:idx_wallet_sequence,priority:1;uniqueIndex:idx_wallet_idem,priority:1" json:"wallet_id"` // Owning wallet
	Kind             string     `gorm:"type:varchar(16);not null" json:"kind"`                                     // credit or debit
	Amount           Money      `gorm:"not null" json:"amount"`                                                    // Always positive; Kind carries the sign
	Status           string     `gorm:"type:varchar(16);index;not null" json:"status"`                             // pending, completed or failed
	Description      string     `gorm:"type:varchar(255)" json:"description"`                                      // Human-readable reason
	PaymentMethod    string     `gorm:"type:varchar(64)" json:"payment_method,omitempty"`                          // Payment method for externally funded credits
	ServiceReference string     `gorm:"type:varchar(120);index" json:"service_reference,omitempty"`                // What was paid for, if anything
	IdempotencyKey   *string    `gorm:"type:varchar(120);uniqueIndex:idx_wallet_idem,priority:2" json:"idempotency_key,omitempty"` // Dedup token for externally-triggered credits
	Sequence         uint64     `gorm:"not null;uniqueIndex:idx_wallet_sequence,priority:2" json:"sequence"`       // Monotonic per wallet, matches balance visibility order
	CreatedAt        time.Time  `json:"created_at"`                                                                // Timestamp of creation
	UpdatedAt        time.Time  `json:"updated_at"`                                                                // Timestamp of finalization
	CompletedAt      *time.Time `json:"completed_at,omitempty"`                                                    // Set when status becomes completed
}

// TableName overrides the default table name
func (Transaction) TableName() string {
	return "wallet_transactions"
}
