package domain

import "time"

// AutoRechargeSettings Model. One row per wallet, created lazily on first
// configuration. Bookkeeping fields are written only by the recharge executor.
type AutoRechargeSettings struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`                              // Primary key
	WalletID             uint       `gorm:"uniqueIndex;not null" json:"wallet_id"`             // Owning wallet
	IsEnabled            bool       `gorm:"not null;default:false" json:"is_enabled"`          // Whether auto-recharge is active
	ThresholdAmount      Money      `gorm:"not null;default:0" json:"threshold_amount"`        // Recharge when balance drops below this
	RechargeAmount       Money      `gorm:"not null;default:0" json:"recharge_amount"`         // Amount charged per top-up
	PaymentMethodType    string     `gorm:"type:varchar(64)" json:"payment_method_type"`       // Gateway payment method
	LastRechargeAt       *time.Time `json:"last_recharge_at,omitempty"`                        // Time of the last successful top-up
	TotalRecharges       uint64     `gorm:"not null;default:0" json:"total_recharges"`         // Count of successful top-ups
	TotalRechargedAmount Money      `gorm:"not null;default:0" json:"total_recharged_amount"`  // Sum of successful top-ups
	CreatedAt            time.Time  `json:"created_at"`                                        // Timestamp of creation
	UpdatedAt            time.Time  `json:"updated_at"`                                        // Timestamp of last update
}

// TableName overrides the default table name
func (AutoRechargeSettings) TableName() string {
	return "auto_recharge_settings"
}
