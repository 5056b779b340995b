package reward

import (
	"context"                      // Context for DB operations
	"errors"                       // Sentinel error matching
	"fmt"                          // Error wrapping
	"time"                         // Claim timestamps
	"wallet_engine/internal/domain" // Importing domain models
	"wallet_engine/internal/wallet" // Applying the reward credit

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Errors surfaced to reward claim callers
var (
	ErrAlreadyClaimed = errors.New("reward already claimed") // is_claimed was already true
	ErrWinNotFound    = errors.New("giveaway win not found") // unknown win ID
)

// Service credits wallets from one-time giveaway wins, idempotently.
type Service struct {
	db      *gorm.DB        // Database handle
	wallets *wallet.Service // Applies the reward credit
}

// NewService creates a reward Service
func NewService(db *gorm.DB, wallets *wallet.Service) *Service {
	return &Service{db: db, wallets: wallets}
}

// CreateWin records a giveaway win for a wallet. Called by the external
// giveaway resolver when a giveaway is decided.
func (s *Service) CreateWin(ctx context.Context, giveawayID, walletID uint, amount domain.Money) (*domain.GiveawayWin, error) {
	if amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	// The wallet must exist to receive the reward later
	if _, err := s.wallets.Get(ctx, walletID); err != nil {
		return nil, err
	}
	win := domain.GiveawayWin{
		GiveawayID:   giveawayID,
		WalletID:     walletID,
		RewardAmount: amount,
		WonAt:        time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&win).Error; err != nil {
		return nil, fmt.Errorf("failed to create giveaway win: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"giveaway_id": giveawayID,      // Source giveaway
		"wallet_id":   walletID,        // Winning wallet
		"win_id":      win.ID,          // New win ID
		"amount":      amount.String(), // Reward amount
	}).Info("Giveaway win recorded")
	return &win, nil
}

// Get returns a giveaway win by ID
func (s *Service) Get(ctx context.Context, winID uint) (*domain.GiveawayWin, error) {
	var win domain.GiveawayWin
	if err := s.db.WithContext(ctx).First(&win, winID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWinNotFound
		}
		return nil, fmt.Errorf("failed to find giveaway win: %w", err)
	}
	return &win, nil
}

// ListByWallet returns a wallet's giveaway wins, most recent first
func (s *Service) ListByWallet(ctx context.Context, walletID uint) ([]domain.GiveawayWin, error) {
	var wins []domain.GiveawayWin
	if err := s.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("won_at desc").
		Find(&wins).Error; err != nil {
		return nil, fmt.Errorf("failed to list giveaway wins: %w", err)
	}
	return wins, nil
}

// Claim flips the win to claimed and credits the wallet, exactly once.
// The conditional UPDATE guarantees that of two concurrent claims exactly one
// wins; the loser sees ErrAlreadyClaimed. The credit carries an idempotency
// key derived from the win ID, so even a retried claim request that raced the
// flag update cannot double-credit the wallet.
func (s *Service) Claim(ctx context.Context, winID uint) (*domain.Transaction, error) {
	win, err := s.Get(ctx, winID)
	if err != nil {
		return nil, err
	}
	// Atomic false -> true transition; RowsAffected == 0 means someone else won
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&domain.GiveawayWin{}).
		Where("id = ? AND is_claimed = ?", winID, false).
		Updates(map[string]interface{}{
			"is_claimed": true,
			"claimed_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to claim giveaway win: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyClaimed
	}
	// Idempotency key derived from the win ID dedups duplicated claim calls
	idemKey := fmt.Sprintf("giveaway-win:%d", winID)
	txn, err := s.wallets.Credit(ctx, win.WalletID, win.RewardAmount,
		"giveaway reward", "", fmt.Sprintf("giveaway:%d", win.GiveawayID), idemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to credit reward: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"win_id":         winID,                     // Claimed win
		"wallet_id":      win.WalletID,              // Credited wallet
		"transaction_id": txn.ID,                    // Credit ledger entry
		"amount":         win.RewardAmount.String(), // Reward amount
	}).Info("Giveaway reward claimed")
	return txn, nil
}
