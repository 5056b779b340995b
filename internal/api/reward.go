package api

import (
	"errors"                       // Sentinel error matching
	"net/http"                     // HTTP status codes
	"strconv"                      // Path parameter conversion
	"wallet_engine/internal/reward" // Reward claims
	"wallet_engine/internal/wallet" // Wallet lookups

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreateGiveawayWinRequest represents the giveaway resolver's notification
// that a wallet has won
type CreateGiveawayWinRequest struct {
	GiveawayID   uint   `json:"giveaway_id" binding:"required"`   // Source giveaway
	WalletID     uint   `json:"wallet_id" binding:"required"`     // Winning wallet
	RewardAmount string `json:"reward_amount" binding:"required"` // Decimal amount string
}

// CreateGiveawayWinHandler records a giveaway win (admin surface; called by
// the giveaway resolution collaborator)
func CreateGiveawayWinHandler(rs *reward.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateGiveawayWinRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		amount, ok := parseAmount(c, req.RewardAmount)
		if !ok {
			return
		}
		win, err := rs.CreateWin(c.Request.Context(), req.GiveawayID, req.WalletID, amount)
		if err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record giveaway win"})
			return
		}
		// Return the recorded win
		c.JSON(http.StatusCreated, gin.H{"message": "Giveaway win recorded", "win": win})
	}
}

// ListGiveawayWinsHandler returns the authenticated owner's giveaway wins
func ListGiveawayWinsHandler(ws *wallet.Service, rs *reward.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get owner from context
		ownerID, ok := currentOwnerID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		w, err := ws.GetByOwner(ctx, ownerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		wins, err := rs.ListByWallet(ctx, w.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list giveaway wins"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"wins": wins})
	}
}

// ClaimRewardHandler claims a giveaway win for the authenticated owner,
// crediting the wallet exactly once
func ClaimRewardHandler(ws *wallet.Service, rs *reward.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get owner from context
		ownerID, ok := currentOwnerID(c)
		if !ok {
			return
		}
		// Parse the win ID from the path
		winID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid win ID"})
			return
		}
		ctx := c.Request.Context()
		w, err := ws.GetByOwner(ctx, ownerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		win, err := rs.Get(ctx, uint(winID))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Giveaway win not found"})
			return
		}
		// Owners can only claim wins on their own wallet
		if win.WalletID != w.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Win belongs to another wallet"})
			return
		}
		txn, err := rs.Claim(ctx, uint(winID))
		if err != nil {
			// Exactly-once claim
			if errors.Is(err, reward.ErrAlreadyClaimed) {
				c.JSON(http.StatusConflict, gin.H{"error": "Reward already claimed"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to claim reward"})
			return
		}
		// Cached reads are invalidated by the wallet service's credit path
		c.JSON(http.StatusOK, gin.H{"message": "Reward claimed", "transaction": txn})
	}
}
