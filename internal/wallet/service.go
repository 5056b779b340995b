package wallet

import (
	"context"                      // Context for DB operations
	"errors"                       // Sentinel error matching
	"fmt"                          // Error wrapping
	"time"                         // Completion timestamps
	"wallet_engine/internal/domain" // Importing domain models
	"wallet_engine/internal/events" // Wallet event publishing
	"wallet_engine/internal/ledger" // Append-only transaction ledger

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// RechargeTrigger is evaluated after every successful debit. Implemented by
// the recharge executor; declared here so the wallet package does not depend
// on the recharge package.
type RechargeTrigger interface {
	EvaluateAfterDebit(walletID uint)
}

// CacheInvalidator drops cached reads for a wallet after a balance mutation.
// Wired at startup; mutations that bypass the HTTP handlers (auto-recharge
// top-ups, reward credits) invalidate through the same path as everything else.
type CacheInvalidator func(ctx context.Context, walletID uint)

// Snapshot is a point-in-time read of a wallet's totals
type Snapshot struct {
	WalletID    uint         `json:"wallet_id"`    // Wallet ID
	Balance     domain.Money `json:"balance"`      // Current balance
	TotalEarned domain.Money `json:"total_earned"` // Lifetime credited amount
	TotalSpent  domain.Money `json:"total_spent"`  // Lifetime debited amount
}

// Service owns all balance mutations. Every credit and debit is a single
// database transaction covering the balance update and the ledger append, so
// no observer can see one without the other.
type Service struct {
	db         *gorm.DB         // Database handle
	ledger     *ledger.Ledger   // Append-only transaction store
	publisher  events.Publisher // Best-effort event delivery
	trigger    RechargeTrigger  // Post-debit recharge evaluation, may be nil
	invalidate CacheInvalidator // Cached-read invalidation, may be nil
}

// NewService creates a wallet Service
func NewService(db *gorm.DB, l *ledger.Ledger, publisher events.Publisher) *Service {
	return &Service{db: db, ledger: l, publisher: publisher}
}

// DB exposes the underlying handle for read-only collaborators (ledger
// queries, admin listings)
func (s *Service) DB() *gorm.DB {
	return s.db
}

// SetRechargeTrigger wires the recharge executor in after construction
// (the executor itself needs the Service to apply the top-up credit).
func (s *Service) SetRechargeTrigger(t RechargeTrigger) {
	s.trigger = t
}

// SetCacheInvalidator wires cached-read invalidation in after construction
func (s *Service) SetCacheInvalidator(f CacheInvalidator) {
	s.invalidate = f
}

// invalidateCache drops cached reads after a successful mutation
func (s *Service) invalidateCache(ctx context.Context, walletID uint) {
	if s.invalidate != nil {
		s.invalidate(ctx, walletID)
	}
}

// CreateWallet creates the single wallet for an owner
func (s *Service) CreateWallet(ctx context.Context, ownerID uint) (*domain.Wallet, error) {
	// Check if the owner already has a wallet
	var existing domain.Wallet
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&existing).Error; err == nil {
		return nil, ErrWalletExists
	}
	wallet := domain.Wallet{OwnerID: ownerID, Balance: 0}
	// The unique index on owner_id catches a concurrent create
	if err := s.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"owner_id":  ownerID,   // Wallet owner
		"wallet_id": wallet.ID, // New wallet ID
	}).Info("Wallet created")
	return &wallet, nil
}

// GetByOwner returns the wallet belonging to an owner
func (s *Service) GetByOwner(ctx context.Context, ownerID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return &wallet, nil
}

// Get returns a wallet by ID
func (s *Service) Get(ctx context.Context, walletID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := s.db.WithContext(ctx).First(&wallet, walletID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}
	return &wallet, nil
}

// GetSnapshot returns a point-in-time read of a wallet's totals; no side effects
func (s *Service) GetSnapshot(ctx context.Context, walletID uint) (*Snapshot, error) {
	wallet, err := s.Get(ctx, walletID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		WalletID:    wallet.ID,
		Balance:     wallet.Balance,
		TotalEarned: wallet.TotalEarned,
		TotalSpent:  wallet.TotalSpent,
	}, nil
}

// Credit increases the wallet balance and appends a completed ledger entry.
// If idempotencyKey is non-empty and a completed transaction with that key
// already exists for the wallet, the existing transaction is returned
// unchanged and no balance change happens (webhook replays, duplicate
// gateway callbacks).
func (s *Service) Credit(ctx context.Context, walletID uint, amount domain.Money, description, paymentMethod, serviceRef, idempotencyKey string) (*domain.Transaction, error) {
	// Validate amount
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	// Fast path: an already-applied idempotent credit returns the original entry
	if idempotencyKey != "" {
		if existing, err := s.findByIdempotencyKey(ctx, walletID, idempotencyKey); err == nil {
			return existing, nil
		}
	}
	txn, err := s.applyCredit(ctx, walletID, amount, description, paymentMethod, serviceRef, idempotencyKey)
	if err != nil {
		// A concurrent duplicate hits the unique (wallet_id, idempotency_key)
		// index; resolve the race by returning the winning entry. The winner
		// may not have committed yet, so the lookup gets a few attempts.
		if idempotencyKey != "" {
			for attempt := 0; attempt < 3; attempt++ {
				if existing, lookupErr := s.findByIdempotencyKey(ctx, walletID, idempotencyKey); lookupErr == nil {
					return existing, nil
				}
				select {
				case <-ctx.Done():
					return nil, err
				case <-time.After(25 * time.Millisecond):
				}
			}
		}
		return nil, err
	}
	// Log successful credit
	logrus.WithFields(logrus.Fields{
		"wallet_id":      walletID,      // Wallet ID
		"transaction_id": txn.ID,        // Ledger entry ID
		"amount":         amount.String(), // Credited amount
		"type":           domain.TransactionKindCredit,
		"description":    description, // Reason
	}).Info("Credit transaction")
	// The balance changed; cached reads are stale
	s.invalidateCache(ctx, walletID)
	// Best-effort event for downstream consumers
	events.Publish(ctx, s.publisher, events.TransactionEvent{
		WalletID:      walletID,
		TransactionID: txn.ID,
		Kind:          domain.TransactionKindCredit,
		Status:        txn.Status,
		AmountCents:   int64(amount),
		Sequence:      txn.Sequence,
		Description:   description,
	})
	return txn, nil
}

// applyCredit performs the atomic balance increase + ledger append
func (s *Service) applyCredit(ctx context.Context, walletID uint, amount domain.Money, description, paymentMethod, serviceRef, idempotencyKey string) (*domain.Transaction, error) {
	var txn *domain.Transaction // Resulting ledger entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet domain.Wallet // Target wallet
		if err := tx.First(&wallet, walletID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return fmt.Errorf("failed to find wallet: %w", err)
		}
		// Increase balance in place; the row lock taken here orders the
		// ledger append below against concurrent mutations of this wallet
		if err := tx.Model(&domain.Wallet{}).Where("id = ?", wallet.ID).Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", int64(amount)),        // Balance increase
			"total_earned": gorm.Expr("total_earned + ?", int64(amount)),   // Bookkeeping
			"version":      gorm.Expr("version + 1"),                       // Mutation counter
		}).Error; err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
		// Append the pending entry with the next sequence number
		entry := domain.Transaction{
			WalletID:         wallet.ID,
			Kind:             domain.TransactionKindCredit,
			Amount:           amount,
			Status:           domain.TransactionStatusPending,
			Description:      description,
			PaymentMethod:    paymentMethod,
			ServiceReference: serviceRef,
		}
		if idempotencyKey != "" {
			entry.IdempotencyKey = &idempotencyKey // Store the dedup token
		}
		if err := s.ledger.Append(tx, &entry); err != nil {
			return err
		}
		// Finalize the entry inside the same transaction, so no observer
		// ever sees the balance move without the completed entry
		now := time.Now()
		if err := tx.Model(&domain.Transaction{}).Where("id = ?", entry.ID).Updates(map[string]interface{}{
			"status":       domain.TransactionStatusCompleted,
			"completed_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to complete transaction: %w", err)
		}
		entry.Status = domain.TransactionStatusCompleted
		entry.CompletedAt = &now
		txn = &entry
		return nil // Commit transaction
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Debit decreases the wallet balance and appends a completed ledger entry.
// The balance check and the decrease are one conditional UPDATE, so two
// concurrent debits against a balance sufficient for only one resolve with
// exactly one success; the balance can never go negative.
func (s *Service) Debit(ctx context.Context, walletID uint, amount domain.Money, description, serviceRef string) (*domain.Transaction, error) {
	// Validate amount
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	var txn *domain.Transaction // Resulting ledger entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wallet domain.Wallet // Target wallet
		if err := tx.First(&wallet, walletID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWalletNotFound
			}
			return fmt.Errorf("failed to find wallet: %w", err)
		}
		// The balance >= amount predicate is evaluated against the current
		// committed row under its lock, never against the stale read above
		res := tx.Model(&domain.Wallet{}).
			Where("id = ? AND balance >= ?", wallet.ID, int64(amount)).
			Updates(map[string]interface{}{
				"balance":     gorm.Expr("balance - ?", int64(amount)),     // Balance decrease
				"total_spent": gorm.Expr("total_spent + ?", int64(amount)), // Bookkeeping
				"version":     gorm.Expr("version + 1"),                    // Mutation counter
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds // Condition failed: balance too low
		}
		// Append the completed entry with the next sequence number
		now := time.Now()
		entry := domain.Transaction{
			WalletID:         wallet.ID,
			Kind:             domain.TransactionKindDebit,
			Amount:           amount,
			Status:           domain.TransactionStatusCompleted,
			Description:      description,
			ServiceReference: serviceRef,
			CompletedAt:      &now,
		}
		if err := s.ledger.Append(tx, &entry); err != nil {
			return err
		}
		txn = &entry
		return nil // Commit transaction
	})
	if err != nil {
		return nil, err
	}
	// Log successful debit
	logrus.WithFields(logrus.Fields{
		"wallet_id":      walletID,        // Wallet ID
		"transaction_id": txn.ID,          // Ledger entry ID
		"amount":         amount.String(), // Debited amount
		"type":           domain.TransactionKindDebit,
		"description":    description, // Reason
	}).Info("Debit transaction")
	// The balance changed; cached reads are stale
	s.invalidateCache(ctx, walletID)
	// Best-effort event for downstream consumers
	events.Publish(ctx, s.publisher, events.TransactionEvent{
		WalletID:      walletID,
		TransactionID: txn.ID,
		Kind:          domain.TransactionKindDebit,
		Status:        txn.Status,
		AmountCents:   int64(amount),
		Sequence:      txn.Sequence,
		Description:   description,
	})
	// Post-debit policy evaluation is a side effect and must never block or
	// fail the debit itself, so it runs on its own goroutine
	if s.trigger != nil {
		go s.trigger.EvaluateAfterDebit(walletID)
	}
	return txn, nil
}

// findByIdempotencyKey returns the completed transaction recorded under the
// given key for a wallet, if any
func (s *Service) findByIdempotencyKey(ctx context.Context, walletID uint, key string) (*domain.Transaction, error) {
	var existing domain.Transaction
	err := s.db.WithContext(ctx).
		Where("wallet_id = ? AND idempotency_key = ? AND status = ?", walletID, key, domain.TransactionStatusCompleted).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}
