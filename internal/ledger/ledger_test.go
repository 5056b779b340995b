package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"
	"wallet_engine/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&domain.Wallet{}, &domain.Transaction{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func appendEntry(t *testing.T, l *Ledger, db *gorm.DB, walletID uint, kind string, amount domain.Money, status string) domain.Transaction {
	t.Helper()
	entry := domain.Transaction{
		WalletID: walletID,
		Kind:     kind,
		Amount:   amount,
		Status:   status,
	}
	if err := l.Append(db, &entry); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	return entry
}

func TestAppendAssignsMonotonicSequences(t *testing.T) {
	db := setupTestDB(t)
	l := New()
	for i := 1; i <= 5; i++ {
		entry := appendEntry(t, l, db, 1, domain.TransactionKindCredit, domain.Money(100), domain.TransactionStatusCompleted)
		if entry.Sequence != uint64(i) {
			t.Fatalf("entry %d got sequence %d", i, entry.Sequence)
		}
	}
	// Sequences are per wallet, not global
	entry := appendEntry(t, l, db, 2, domain.TransactionKindCredit, domain.Money(100), domain.TransactionStatusCompleted)
	if entry.Sequence != 1 {
		t.Fatalf("other wallet should start at sequence 1, got %d", entry.Sequence)
	}
}

func TestListByWalletCursorPagination(t *testing.T) {
	db := setupTestDB(t)
	l := New()
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		appendEntry(t, l, db, 1, domain.TransactionKindCredit, domain.Money(100), domain.TransactionStatusCompleted)
	}

	// First page
	page, err := l.ListByWallet(ctx, db, 1, 0, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 3 || page[0].Sequence != 1 || page[2].Sequence != 3 {
		t.Fatalf("first page wrong: %d entries, sequences %v..%v", len(page), page[0].Sequence, page[len(page)-1].Sequence)
	}
	// Restart from the cursor: the walk is restartable at any sequence
	page, err = l.ListByWallet(ctx, db, 1, page[2].Sequence, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 3 || page[0].Sequence != 4 {
		t.Fatalf("second page wrong: %d entries, first sequence %d", len(page), page[0].Sequence)
	}
	// Last page is short
	page, err = l.ListByWallet(ctx, db, 1, page[2].Sequence, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 1 || page[0].Sequence != 7 {
		t.Fatalf("last page wrong: %d entries", len(page))
	}
}

func TestSumCompletedIsSignedAndIgnoresUnfinalized(t *testing.T) {
	db := setupTestDB(t)
	l := New()
	ctx := context.Background()
	appendEntry(t, l, db, 1, domain.TransactionKindCredit, domain.Money(5000), domain.TransactionStatusCompleted)
	appendEntry(t, l, db, 1, domain.TransactionKindDebit, domain.Money(1200), domain.TransactionStatusCompleted)
	appendEntry(t, l, db, 1, domain.TransactionKindCredit, domain.Money(900), domain.TransactionStatusPending)
	appendEntry(t, l, db, 1, domain.TransactionKindCredit, domain.Money(400), domain.TransactionStatusFailed)

	sum, err := l.SumCompleted(ctx, db, 1)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if sum != 3800 {
		t.Fatalf("signed sum wrong: got %v want 3800", sum)
	}
	// Empty wallet sums to zero
	sum, err = l.SumCompleted(ctx, db, 42)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if sum != 0 {
		t.Fatalf("empty wallet sum should be zero, got %v", sum)
	}
}
