package reward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	"wallet_engine/internal/domain"
	"wallet_engine/internal/events"
	"wallet_engine/internal/ledger"
	"wallet_engine/internal/wallet"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestService(t *testing.T) (*Service, *wallet.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:reward_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.Wallet{}, &domain.Transaction{}, &domain.GiveawayWin{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	wallets := wallet.NewService(db, ledger.New(), events.NopPublisher{})
	return NewService(db, wallets), wallets, db
}

func TestClaimCreditsWalletExactlyOnce(t *testing.T) {
	svc, wallets, db := setupTestService(t)
	ctx := context.Background()
	w, err := wallets.CreateWallet(ctx, 1)
	if err != nil {
		t.Fatalf("create wallet failed: %v", err)
	}
	win, err := svc.CreateWin(ctx, 7, w.ID, domain.Money(2500))
	if err != nil {
		t.Fatalf("create win failed: %v", err)
	}
	if win.IsClaimed {
		t.Fatal("new win should start unclaimed")
	}

	txn, err := svc.Claim(ctx, win.ID)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if txn.Amount != 2500 || txn.Kind != domain.TransactionKindCredit {
		t.Fatalf("claim credit wrong: %+v", txn)
	}
	snap, _ := wallets.GetSnapshot(ctx, w.ID)
	if snap.Balance != 2500 {
		t.Fatalf("balance after claim: got %v want 2500", snap.Balance)
	}

	// Second claim of the same win fails and does not credit again
	if _, err := svc.Claim(ctx, win.ID); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	snap, _ = wallets.GetSnapshot(ctx, w.ID)
	if snap.Balance != 2500 {
		t.Fatalf("balance changed on repeat claim: got %v", snap.Balance)
	}
	var count int64
	db.Model(&domain.Transaction{}).Where("wallet_id = ?", w.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected one ledger entry, got %d", count)
	}
	claimed, _ := svc.Get(ctx, win.ID)
	if !claimed.IsClaimed || claimed.ClaimedAt == nil {
		t.Fatalf("win not marked claimed: %+v", claimed)
	}
}

func TestConcurrentClaimsExactlyOneSucceeds(t *testing.T) {
	svc, wallets, db := setupTestService(t)
	ctx := context.Background()
	w, err := wallets.CreateWallet(ctx, 1)
	if err != nil {
		t.Fatalf("create wallet failed: %v", err)
	}
	win, err := svc.CreateWin(ctx, 7, w.ID, domain.Money(2500))
	if err != nil {
		t.Fatalf("create win failed: %v", err)
	}

	n := 10
	results := make([]error, n)
	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, results[idx] = svc.Claim(ctx, win.ID)
		}(i)
	}
	wg.Wait()

	succeeded, alreadyClaimed := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyClaimed):
			alreadyClaimed++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if succeeded != 1 || alreadyClaimed != n-1 {
		t.Fatalf("got %d successes and %d already-claimed, want 1 and %d", succeeded, alreadyClaimed, n-1)
	}
	snap, _ := wallets.GetSnapshot(ctx, w.ID)
	if snap.Balance != 2500 {
		t.Fatalf("balance after concurrent claims: got %v want 2500", snap.Balance)
	}
	var count int64
	db.Model(&domain.Transaction{}).Where("wallet_id = ?", w.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected one ledger entry, got %d", count)
	}
}

func TestCreateWinValidation(t *testing.T) {
	svc, wallets, _ := setupTestService(t)
	ctx := context.Background()
	w, err := wallets.CreateWallet(ctx, 1)
	if err != nil {
		t.Fatalf("create wallet failed: %v", err)
	}
	if _, err := svc.CreateWin(ctx, 1, w.ID, 0); !errors.Is(err, wallet.ErrInvalidAmount) {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.CreateWin(ctx, 1, w.ID, domain.Money(-100)); !errors.Is(err, wallet.ErrInvalidAmount) {
		t.Fatalf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.CreateWin(ctx, 1, 404, domain.Money(100)); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("unknown wallet: expected ErrWalletNotFound, got %v", err)
	}
}

func TestClaimUnknownWin(t *testing.T) {
	svc, _, _ := setupTestService(t)
	if _, err := svc.Claim(context.Background(), 404); !errors.Is(err, ErrWinNotFound) {
		t.Fatalf("expected ErrWinNotFound, got %v", err)
	}
}

func TestListByWalletMostRecentFirst(t *testing.T) {
	svc, wallets, db := setupTestService(t)
	ctx := context.Background()
	w, err := wallets.CreateWallet(ctx, 1)
	if err != nil {
		t.Fatalf("create wallet failed: %v", err)
	}
	other, err := wallets.CreateWallet(ctx, 2)
	if err != nil {
		t.Fatalf("create wallet failed: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		win, err := svc.CreateWin(ctx, uint(10+i), w.ID, domain.Money(100*(int64(i)+1)))
		if err != nil {
			t.Fatalf("create win failed: %v", err)
		}
		// Spread won_at so the ordering is deterministic
		if err := db.Model(&domain.GiveawayWin{}).Where("id = ?", win.ID).
			Update("won_at", base.Add(time.Duration(i)*time.Minute)).Error; err != nil {
			t.Fatalf("backdate win failed: %v", err)
		}
	}
	if _, err := svc.CreateWin(ctx, 99, other.ID, domain.Money(500)); err != nil {
		t.Fatalf("create win failed: %v", err)
	}

	wins, err := svc.ListByWallet(ctx, w.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(wins) != 3 {
		t.Fatalf("expected 3 wins, got %d", len(wins))
	}
	for i := 1; i < len(wins); i++ {
		if wins[i].WonAt.After(wins[i-1].WonAt) {
			t.Fatalf("wins not ordered most recent first: %v before %v", wins[i-1].WonAt, wins[i].WonAt)
		}
	}
	if wins[0].GiveawayID != 12 {
		t.Fatalf("most recent win wrong: %+v", wins[0])
	}
}
