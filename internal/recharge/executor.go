package recharge

import (
	"context"                      // Contexts bound the gateway call
	"errors"                       // Sentinel error matching
	"fmt"                          // Error wrapping
	"sync"                         // State registry guard
	"time"                         // Timeouts and bookkeeping timestamps
	"wallet_engine/internal/domain" // Importing domain models
	"wallet_engine/internal/events" // Recharge outcome events
	"wallet_engine/internal/wallet" // Applying the top-up credit

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Recharge states, observable per wallet
const (
	StateIdle      = "idle"      // No recharge activity
	StateTriggered = "triggered" // Lock acquired, about to charge
	StateCharging  = "charging"  // Waiting on the payment gateway
	StateCompleted = "completed" // Gateway succeeded, credit applied
	StateFailed    = "failed"    // Gateway failed or timed out, no credit
)

// Executor orchestrates a single-flight, idempotent top-up per wallet:
// Idle -> Triggered -> Charging -> {Completed | Failed} -> Idle.
// Only concurrent recharge attempts are mutually excluded; ordinary credits
// and debits on the wallet are never blocked by a recharge in flight.
type Executor struct {
	db             *gorm.DB         // Settings bookkeeping
	wallets        *wallet.Service  // Applies the top-up credit
	policy         *Policy          // Eligibility evaluation
	gateway        PaymentGateway   // External payment collaborator
	locker         Locker           // Per-wallet single-flight guard
	publisher      events.Publisher // Recharge outcome events
	lockTTL        time.Duration    // Lock expiry, the stuck-wallet safety net
	gatewayTimeout time.Duration    // Upper bound on a single gateway call

	mu     sync.Mutex      // Guards states
	states map[uint]string // Wallet ID -> current state
}

// NewExecutor creates an Executor. gatewayTimeout should not exceed lockTTL,
// otherwise a second attempt could start while the first still waits on the
// gateway.
func NewExecutor(db *gorm.DB, wallets *wallet.Service, policy *Policy, gateway PaymentGateway, locker Locker, publisher events.Publisher, lockTTL, gatewayTimeout time.Duration) *Executor {
	return &Executor{
		db:             db,
		wallets:        wallets,
		policy:         policy,
		gateway:        gateway,
		locker:         locker,
		publisher:      publisher,
		lockTTL:        lockTTL,
		gatewayTimeout: gatewayTimeout,
		states:         make(map[uint]string),
	}
}

// State returns the wallet's current recharge state
func (e *Executor) State(walletID uint) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.states[walletID]; ok {
		return s
	}
	return StateIdle
}

// setState records a state transition
func (e *Executor) setState(walletID uint, state string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state == StateIdle {
		delete(e.states, walletID)
		return
	}
	e.states[walletID] = state
}

// EvaluateAfterDebit implements wallet.RechargeTrigger. It runs on the debit
// goroutine's detached successor, so a failed or slow recharge can never be
// observed by the debit caller.
func (e *Executor) EvaluateAfterDebit(walletID uint) {
	// Detached context: the debit request that triggered us has already
	// returned, so only the lock TTL bounds the whole attempt
	ctx, cancel := context.WithTimeout(context.Background(), e.lockTTL)
	defer cancel()
	if err := e.Run(ctx, walletID); err != nil && !errors.Is(err, ErrRechargeInProgress) {
		logrus.WithFields(logrus.Fields{
			"wallet_id": walletID,    // Wallet ID
			"error":     err.Error(), // Recharge error
		}).Warn("Auto-recharge attempt failed")
	}
}

// Run performs one recharge attempt for the wallet. Returns
// ErrRechargeInProgress when the trigger is dropped because another attempt
// holds the single-flight lock; the policy re-evaluates on the next debit.
func (e *Executor) Run(ctx context.Context, walletID uint) error {
	should, err := e.policy.ShouldRecharge(ctx, walletID)
	if err != nil {
		return err
	}
	if !should {
		return nil // Nothing to do
	}
	// Single-flight: at most one in-flight recharge per wallet. A held lock
	// drops the trigger rather than queueing it.
	token, acquired, err := e.locker.Acquire(ctx, walletID, e.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire recharge lock: %w", err)
	}
	if !acquired {
		return ErrRechargeInProgress
	}
	defer func() {
		// Release even when ctx expired; the token keeps an attempt that
		// outlived its TTL from deleting a successor's lock
		_ = e.locker.Release(context.Background(), walletID, token)
		e.setState(walletID, StateIdle)
	}()
	e.setState(walletID, StateTriggered)
	// Re-read settings and balance under the lock: the trigger raced other
	// debits/credits and the wallet may no longer qualify
	settings, err := e.policy.Get(ctx, walletID)
	if err != nil {
		return err
	}
	w, err := e.wallets.Get(ctx, walletID)
	if err != nil {
		return err
	}
	if !settings.IsEnabled || w.Balance >= settings.ThresholdAmount {
		return nil // No longer qualifies
	}
	e.setState(walletID, StateCharging)
	logrus.WithFields(logrus.Fields{
		"wallet_id": walletID,                          // Wallet ID
		"balance":   w.Balance.String(),                // Balance that triggered the top-up
		"threshold": settings.ThresholdAmount.String(), // Configured threshold
		"amount":    settings.RechargeAmount.String(),  // Amount to charge
	}).Info("Auto-recharge charging")
	// The gateway call runs outside any balance-mutation critical section;
	// its timeout turns a hung gateway into a Failed attempt
	gctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	defer cancel()
	result, err := e.gateway.Charge(gctx, settings.PaymentMethodType, settings.RechargeAmount)
	if err != nil {
		e.failed(walletID, settings, err)
		return nil // Absorbed: the next qualifying debit retries
	}
	// Gateway succeeded: apply the credit with the gateway reference as the
	// idempotency key, so a duplicate success callback cannot double-credit
	txn, err := e.wallets.Credit(ctx, walletID, settings.RechargeAmount,
		"auto-recharge", settings.PaymentMethodType, result.GatewayRef, result.GatewayRef)
	if err != nil {
		return fmt.Errorf("failed to credit recharge: %w", err)
	}
	// Executor-owned bookkeeping on the settings row
	now := time.Now()
	if err := e.db.WithContext(ctx).Model(&domain.AutoRechargeSettings{}).
		Where("wallet_id = ?", walletID).
		Updates(map[string]interface{}{
			"last_recharge_at":       now,
			"total_recharges":        gorm.Expr("total_recharges + 1"),
			"total_recharged_amount": gorm.Expr("total_recharged_amount + ?", int64(settings.RechargeAmount)),
		}).Error; err != nil {
		return fmt.Errorf("failed to update recharge bookkeeping: %w", err)
	}
	e.setState(walletID, StateCompleted)
	logrus.WithFields(logrus.Fields{
		"wallet_id":      walletID,                         // Wallet ID
		"transaction_id": txn.ID,                           // Credit ledger entry
		"amount":         settings.RechargeAmount.String(), // Charged amount
		"gateway_ref":    result.GatewayRef,                // Gateway reference
	}).Info("Auto-recharge completed")
	return nil
}

// failed records a gateway failure for observability. No balance change, no
// settings change: the policy stays enabled and retries on the next
// qualifying debit, so failures cannot cause tight retry loops.
func (e *Executor) failed(walletID uint, settings *domain.AutoRechargeSettings, cause error) {
	e.setState(walletID, StateFailed)
	var gwErr *GatewayError
	retryable := errors.As(cause, &gwErr) && gwErr.Retryable
	logrus.WithFields(logrus.Fields{
		"wallet_id": walletID,                         // Wallet ID
		"amount":    settings.RechargeAmount.String(), // Attempted amount
		"retryable": retryable,                        // Transport failure vs terminal rejection
		"error":     cause.Error(),                    // Gateway error
	}).Warn("Auto-recharge failed")
	events.Publish(context.Background(), e.publisher, events.TransactionEvent{
		WalletID:    walletID,
		Kind:        domain.TransactionKindCredit,
		Status:      domain.TransactionStatusFailed,
		AmountCents: int64(settings.RechargeAmount),
		Description: fmt.Sprintf("auto-recharge failed: %v", cause),
	})
}
