package recharge

import (
	"context"
	"errors"
	"testing"
	"time"
	"wallet_engine/internal/domain"
	"wallet_engine/internal/wallet"
)

func TestConfigureEnforcesPlatformFloors(t *testing.T) {
	e := setupEngine(t, time.Second)
	ctx := context.Background()
	w := e.seedWallet(t, 1, 0)

	// Threshold below the $1.00 floor
	if _, err := e.policy.Configure(ctx, w.ID, true, domain.Money(99), domain.Money(5000), "card"); !errors.Is(err, ErrThresholdBelowMinimum) {
		t.Fatalf("expected ErrThresholdBelowMinimum, got %v", err)
	}
	// Recharge amount below the $5.00 floor
	if _, err := e.policy.Configure(ctx, w.ID, true, domain.Money(1000), domain.Money(499), "card"); !errors.Is(err, ErrRechargeBelowMinimum) {
		t.Fatalf("expected ErrRechargeBelowMinimum, got %v", err)
	}
	// Floors apply even when disabling via Configure
	if _, err := e.policy.Configure(ctx, w.ID, false, domain.Money(50), domain.Money(5000), "card"); !errors.Is(err, ErrThresholdBelowMinimum) {
		t.Fatalf("floors should apply regardless of enabled flag, got %v", err)
	}
	// Nothing was persisted by the rejected calls
	if _, err := e.policy.Get(ctx, w.ID); !errors.Is(err, ErrSettingsNotFound) {
		t.Fatalf("rejected configure persisted settings: %v", err)
	}
	// Exactly at the floors is accepted
	settings, err := e.policy.Configure(ctx, w.ID, true, testMinThreshold, testMinRecharge, "card")
	if err != nil {
		t.Fatalf("configure at floors failed: %v", err)
	}
	if settings.ThresholdAmount != testMinThreshold || settings.RechargeAmount != testMinRecharge {
		t.Fatalf("stored settings wrong: %+v", settings)
	}
}

func TestConfigureUnknownWallet(t *testing.T) {
	e := setupEngine(t, time.Second)
	if _, err := e.policy.Configure(context.Background(), 404, true, domain.Money(1000), domain.Money(5000), "card"); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestReconfigureKeepsBookkeeping(t *testing.T) {
	e := setupEngine(t, time.Second)
	ctx := context.Background()
	w := e.seedWallet(t, 1, domain.Money(500))
	if _, err := e.policy.Configure(ctx, w.ID, true, domain.Money(1000), domain.Money(5000), "card"); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if err := e.executor.Run(ctx, w.ID); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// Changing the policy must not reset the recharge history
	settings, err := e.policy.Configure(ctx, w.ID, true, domain.Money(2000), domain.Money(10000), "bank")
	if err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}
	if settings.TotalRecharges != 1 || settings.TotalRechargedAmount != 5000 {
		t.Fatalf("reconfigure reset bookkeeping: %+v", settings)
	}
	if settings.ThresholdAmount != 2000 || settings.RechargeAmount != 10000 || settings.PaymentMethodType != "bank" {
		t.Fatalf("reconfigure did not apply new values: %+v", settings)
	}
}

func TestDisableIsIdempotent(t *testing.T) {
	e := setupEngine(t, time.Second)
	ctx := context.Background()
	w := e.seedWallet(t, 1, 0)

	// Disabling a wallet that never configured auto-recharge succeeds
	if err := e.policy.Disable(ctx, w.ID); err != nil {
		t.Fatalf("disable without settings failed: %v", err)
	}
	if _, err := e.policy.Configure(ctx, w.ID, true, domain.Money(1000), domain.Money(5000), "card"); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if err := e.policy.Disable(ctx, w.ID); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	// Second disable is a no-op, not an error
	if err := e.policy.Disable(ctx, w.ID); err != nil {
		t.Fatalf("repeat disable failed: %v", err)
	}
	settings, err := e.policy.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if settings.IsEnabled {
		t.Fatal("settings still enabled after disable")
	}
}

func TestShouldRecharge(t *testing.T) {
	e := setupEngine(t, time.Second)
	ctx := context.Background()
	w := e.seedWallet(t, 1, domain.Money(800))

	// No settings configured
	should, err := e.policy.ShouldRecharge(ctx, w.ID)
	if err != nil || should {
		t.Fatalf("unconfigured wallet: should=%v err=%v", should, err)
	}
	if _, err := e.policy.Configure(ctx, w.ID, true, domain.Money(1000), domain.Money(5000), "card"); err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	// Balance below threshold
	should, err = e.policy.ShouldRecharge(ctx, w.ID)
	if err != nil || !should {
		t.Fatalf("below threshold: should=%v err=%v", should, err)
	}
	// Balance exactly at threshold does not trigger
	if _, err := e.wallets.Credit(ctx, w.ID, domain.Money(200), "top", "", "", ""); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	should, err = e.policy.ShouldRecharge(ctx, w.ID)
	if err != nil || should {
		t.Fatalf("at threshold: should=%v err=%v", should, err)
	}
	// Back below threshold, but a recharge is already in flight
	if _, err := e.wallets.Debit(ctx, w.ID, domain.Money(500), "svc", ""); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	token, ok, _ := e.locker.Acquire(ctx, w.ID, time.Minute)
	if !ok {
		t.Fatal("lock acquire failed")
	}
	should, err = e.policy.ShouldRecharge(ctx, w.ID)
	if err != nil || should {
		t.Fatalf("lock held: should=%v err=%v", should, err)
	}
	_ = e.locker.Release(ctx, w.ID, token)
	// Disabled policy never qualifies
	if err := e.policy.Disable(ctx, w.ID); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	should, err = e.policy.ShouldRecharge(ctx, w.ID)
	if err != nil || should {
		t.Fatalf("disabled: should=%v err=%v", should, err)
	}
}

func TestMemoryLockerTTLExpiry(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	_, ok, err := l.Acquire(ctx, 1, 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	// Held until the TTL elapses
	if _, ok, _ := l.Acquire(ctx, 1, time.Minute); ok {
		t.Fatal("second acquire succeeded while lock held")
	}
	if held, _ := l.Held(ctx, 1); !held {
		t.Fatal("lock not reported as held")
	}
	// A different wallet is unaffected
	if _, ok, _ := l.Acquire(ctx, 2, time.Minute); !ok {
		t.Fatal("unrelated wallet could not acquire")
	}
	time.Sleep(80 * time.Millisecond)
	// Expired locks can be re-acquired
	token, ok, _ := l.Acquire(ctx, 1, time.Minute)
	if !ok {
		t.Fatal("acquire after TTL expiry failed")
	}
	if err := l.Release(ctx, 1, token); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if held, _ := l.Held(ctx, 1); held {
		t.Fatal("lock still held after release")
	}
}

func TestReleaseAfterExpiryKeepsNewOwner(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	// First attempt acquires, then outlives its TTL
	staleToken, ok, err := l.Acquire(ctx, 1, 20*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	time.Sleep(40 * time.Millisecond)
	// Second attempt legitimately acquires after the expiry
	currentToken, ok, err := l.Acquire(ctx, 1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after expiry: ok=%v err=%v", ok, err)
	}
	// The stale attempt's deferred release must not unlock the second
	if err := l.Release(ctx, 1, staleToken); err != nil {
		t.Fatalf("stale release failed: %v", err)
	}
	if held, _ := l.Held(ctx, 1); !held {
		t.Fatal("stale release dropped the current holder's lock")
	}
	if _, ok, _ := l.Acquire(ctx, 1, time.Minute); ok {
		t.Fatal("third attempt acquired while the second still holds the lock")
	}
	// The current owner's release still works
	if err := l.Release(ctx, 1, currentToken); err != nil {
		t.Fatalf("owner release failed: %v", err)
	}
	if held, _ := l.Held(ctx, 1); held {
		t.Fatal("lock still held after the owner released it")
	}
}
