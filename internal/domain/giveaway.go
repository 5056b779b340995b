package domain

import "time"

// GiveawayWin Model. Created by the external giveaway resolver;
// IsClaimed transitions false -> true exactly once.
type GiveawayWin struct {
	ID           uint       `gorm:"primaryKey" json:"id"`                    // Primary key
	GiveawayID   uint       `gorm:"index;not null" json:"giveaway_id"`       // The giveaway this win came from
	WalletID     uint       `gorm:"index;not null" json:"wallet_id"`         // Wallet that receives the reward
	RewardAmount Money      `gorm:"not null" json:"reward_amount"`           // Credited on claim
	IsClaimed    bool       `gorm:"not null;default:false" json:"is_claimed"` // Terminal once true
	WonAt        time.Time  `gorm:"not null" json:"won_at"`                  // When the giveaway was resolved
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`                    // When the reward was claimed
	CreatedAt    time.Time  `json:"created_at"`                              // Timestamp of creation
	UpdatedAt    time.Time  `json:"updated_at"`                              // Timestamp of last update
}

// TableName overrides the default table name
func (GiveawayWin) TableName() string {
	return "giveaway_wins"
}
