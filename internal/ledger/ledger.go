package ledger

import (
	"context"                      // Context for query cancellation
	"fmt"                          // Error wrapping
	"wallet_engine/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Ledger is the append-only store of transaction records for a wallet.
// Appends run inside the caller's database transaction so that the sequence
// assignment and the balance mutation it records are one atomic unit.
type Ledger struct{}

// New creates a Ledger
func New() *Ledger {
	return &Ledger{}
}

// Append assigns the next per-wallet sequence number and inserts the entry.
// Must be called inside the same database transaction as the balance update
// it records; the wallet row lock taken by that update orders concurrent
// appends, and the unique (wallet_id, sequence) index backs the guarantee.
func (l *Ledger) Append(tx *gorm.DB, txn *domain.Transaction) error {
	var maxSeq uint64 // Highest sequence used so far for this wallet
	if err := tx.Model(&domain.Transaction{}).
		Where("wallet_id = ?", txn.WalletID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&maxSeq).Error; err != nil {
		return fmt.Errorf("failed to read ledger sequence: %w", err)
	}
	txn.Sequence = maxSeq + 1 // Next sequence number
	if err := tx.Create(txn).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// ListByWallet returns up to limit entries with sequence greater than
// afterSequence, ordered by sequence ascending. The cursor for the next
// page is the sequence of the last returned entry.
func (l *Ledger) ListByWallet(ctx context.Context, db *gorm.DB, walletID uint, afterSequence uint64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20 // Default page size
	}
	var entries []domain.Transaction // Slice to hold entries
	if err := db.WithContext(ctx).
		Where("wallet_id = ? AND sequence > ?", walletID, afterSequence).
		Order("sequence asc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// SumCompleted returns the signed sum (credits minus debits) of all completed
// entries for a wallet. It must equal the wallet's cached balance at every
// observable instant; the admin consistency check relies on this.
func (l *Ledger) SumCompleted(ctx context.Context, db *gorm.DB, walletID uint) (domain.Money, error) {
	var total int64 // Signed sum in cents
	if err := db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("wallet_id = ? AND status = ?", walletID, domain.TransactionStatusCompleted).
		Select("COALESCE(SUM(CASE WHEN kind = ? THEN amount ELSE -amount END), 0)", domain.TransactionKindCredit).
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return domain.Money(total), nil
}
