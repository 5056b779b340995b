package recharge

import (
	"context"                      // Context for DB operations
	"errors"                       // Sentinel error matching
	"fmt"                          // Error wrapping
	"wallet_engine/internal/domain" // Importing domain models
	"wallet_engine/internal/wallet" // Balance reads

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Policy manages per-wallet auto-recharge configuration and evaluates
// whether a wallet's balance should trigger a top-up.
type Policy struct {
	db           *gorm.DB        // Database handle
	wallets      *wallet.Service // Balance reads
	locker       Locker          // Single-flight guard, consulted by ShouldRecharge
	minThreshold domain.Money    // Platform floor for threshold_amount
	minRecharge  domain.Money    // Platform floor for recharge_amount
}

// NewPolicy creates a Policy
func NewPolicy(db *gorm.DB, wallets *wallet.Service, locker Locker, minThreshold, minRecharge domain.Money) *Policy {
	return &Policy{
		db:           db,
		wallets:      wallets,
		locker:       locker,
		minThreshold: minThreshold,
		minRecharge:  minRecharge,
	}
}

// Configure creates or updates the wallet's auto-recharge settings. The
// settings row is created lazily on first configuration; reconfiguration
// never touches the executor's bookkeeping fields.
func (p *Policy) Configure(ctx context.Context, walletID uint, enabled bool, threshold, amount domain.Money, paymentMethod string) (*domain.AutoRechargeSettings, error) {
	// Validate against the platform floors
	if threshold < p.minThreshold {
		return nil, ErrThresholdBelowMinimum
	}
	if amount < p.minRecharge {
		return nil, ErrRechargeBelowMinimum
	}
	// The wallet must exist before settings can be attached to it
	if _, err := p.wallets.Get(ctx, walletID); err != nil {
		return nil, err
	}
	var settings domain.AutoRechargeSettings
	err := p.db.WithContext(ctx).Where("wallet_id = ?", walletID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Lazy creation on first configuration
		settings = domain.AutoRechargeSettings{
			WalletID:          walletID,
			IsEnabled:         enabled,
			ThresholdAmount:   threshold,
			RechargeAmount:    amount,
			PaymentMethodType: paymentMethod,
		}
		if err := p.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create settings: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to find settings: %w", err)
	} else {
		// Update configuration fields in place, bookkeeping untouched
		updates := map[string]interface{}{
			"is_enabled":          enabled,
			"threshold_amount":    int64(threshold),
			"recharge_amount":     int64(amount),
			"payment_method_type": paymentMethod,
		}
		if err := p.db.WithContext(ctx).Model(&settings).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update settings: %w", err)
		}
		settings.IsEnabled = enabled
		settings.ThresholdAmount = threshold
		settings.RechargeAmount = amount
		settings.PaymentMethodType = paymentMethod
	}
	// Log configuration change
	logrus.WithFields(logrus.Fields{
		"wallet_id":  walletID,           // Wallet ID
		"is_enabled": enabled,            // Enabled flag
		"threshold":  threshold.String(), // Trigger threshold
		"amount":     amount.String(),    // Top-up amount
	}).Info("Auto-recharge configured")
	return &settings, nil
}

// Get returns the wallet's auto-recharge settings
func (p *Policy) Get(ctx context.Context, walletID uint) (*domain.AutoRechargeSettings, error) {
	var settings domain.AutoRechargeSettings
	if err := p.db.WithContext(ctx).Where("wallet_id = ?", walletID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to find settings: %w", err)
	}
	return &settings, nil
}

// Disable turns auto-recharge off. Idempotent: disabling a wallet that is
// already disabled, or was never configured, is a no-op rather than an error.
// History and thresholds are kept so re-enabling resumes where it left off.
func (p *Policy) Disable(ctx context.Context, walletID uint) error {
	res := p.db.WithContext(ctx).Model(&domain.AutoRechargeSettings{}).
		Where("wallet_id = ? AND is_enabled = ?", walletID, true).
		Update("is_enabled", false)
	if res.Error != nil {
		return fmt.Errorf("failed to disable auto-recharge: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logrus.WithFields(logrus.Fields{"wallet_id": walletID}).Info("Auto-recharge disabled")
	}
	return nil
}

// ShouldRecharge reports whether a top-up should be triggered for the wallet:
// enabled, balance below threshold, and no recharge currently in flight.
// Pure decision function with no side effects.
func (p *Policy) ShouldRecharge(ctx context.Context, walletID uint) (bool, error) {
	settings, err := p.Get(ctx, walletID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return false, nil // Never configured
		}
		return false, err
	}
	if !settings.IsEnabled {
		return false, nil
	}
	w, err := p.wallets.Get(ctx, walletID)
	if err != nil {
		return false, err
	}
	if w.Balance >= settings.ThresholdAmount {
		return false, nil // Balance still healthy
	}
	held, err := p.locker.Held(ctx, walletID)
	if err != nil {
		return false, err
	}
	return !held, nil // Trigger only when no recharge is in flight
}
