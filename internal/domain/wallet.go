package domain

import "time"

// Wallet Model
type Wallet struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                   // Primary key
	OwnerID     uint      `gorm:"uniqueIndex;not null" json:"owner_id"`   // One wallet per owner
	Balance     Money     `gorm:"not null;default:0" json:"balance"`      // Current balance in cents, never negative
	TotalEarned Money     `gorm:"not null;default:0" json:"total_earned"` // Lifetime credited amount
	TotalSpent  Money     `gorm:"not null;default:0" json:"total_spent"`  // Lifetime debited amount
	Version     uint64    `gorm:"not null;default:0" json:"version"`      // Bumped on every balance mutation (optimistic concurrency)
	CreatedAt   time.Time `json:"created_at"`                             // Timestamp of creation
	UpdatedAt   time.Time `json:"updated_at"`                             // Timestamp of last update
}

// TableName overrides the default table name
func (Wallet) TableName() string {
	return "wallets"
}
