package api

import (
	"errors"                        // Sentinel error matching
	"net/http"                      // HTTP status codes
	"wallet_engine/internal/domain"  // Importing domain models
	"wallet_engine/internal/recharge" // Auto-recharge policy
	"wallet_engine/internal/wallet"   // Wallet lookups

	"github.com/gin-gonic/gin" // Gin web framework
)

// ConfigureAutoRechargeRequest represents an auto-recharge configuration
type ConfigureAutoRechargeRequest struct {
	IsEnabled         bool   `json:"is_enabled"`                           // Whether auto-recharge is active
	ThresholdAmount   string `json:"threshold_amount" binding:"required"`  // Decimal amount string
	RechargeAmount    string `json:"recharge_amount" binding:"required"`   // Decimal amount string
	PaymentMethodType string `json:"payment_method_type" binding:"required"` // Gateway payment method
}

// ConfigureAutoRechargeHandler creates or updates the owner's auto-recharge settings
func ConfigureAutoRechargeHandler(ws *wallet.Service, policy *recharge.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get owner from context
		ownerID, ok := currentOwnerID(c)
		if !ok {
			return
		}
		var req ConfigureAutoRechargeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		threshold, ok := parseAmount(c, req.ThresholdAmount)
		if !ok {
			return
		}
		amount, ok := parseAmount(c, req.RechargeAmount)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		w, err := ws.GetByOwner(ctx, ownerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		settings, err := policy.Configure(ctx, w.ID, req.IsEnabled, threshold, amount, req.PaymentMethodType)
		if err != nil {
			// Platform floors on both configured amounts
			if errors.Is(err, recharge.ErrThresholdBelowMinimum) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Threshold amount below platform minimum"})
				return
			}
			if errors.Is(err, recharge.ErrRechargeBelowMinimum) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Recharge amount below platform minimum"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to configure auto-recharge"})
			return
		}
		// Return the stored settings
		c.JSON(http.StatusOK, gin.H{"message": "Auto-recharge configured", "settings": settingsResponse(settings)})
	}
}

// GetAutoRechargeHandler returns the owner's auto-recharge settings
func GetAutoRechargeHandler(ws *wallet.Service, policy *recharge.Policy) gin.HandlerFunc {
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
		settings, err := policy.Get(ctx, w.ID)
		if err != nil {
			// Lazily created: unconfigured wallets simply have no settings yet
			if errors.Is(err, recharge.ErrSettingsNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Auto-recharge not configured"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"settings": settingsResponse(settings)})
	}
}

// DisableAutoRechargeHandler turns auto-recharge off; disabling an already
// disabled wallet is a no-op
func DisableAutoRechargeHandler(ws *wallet.Service, policy *recharge.Policy) gin.HandlerFunc {
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
		if err := policy.Disable(ctx, w.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disable auto-recharge"})
			return
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Auto-recharge disabled"})
	}
}

// settingsResponse renders settings with decimal amount strings
func settingsResponse(s *domain.AutoRechargeSettings) gin.H {
	return gin.H{
		"wallet_id":              s.WalletID,                       // Owning wallet
		"is_enabled":             s.IsEnabled,                      // Enabled flag
		"threshold_amount":       s.ThresholdAmount.String(),       // Trigger threshold
		"recharge_amount":        s.RechargeAmount.String(),        // Top-up amount
		"payment_method_type":    s.PaymentMethodType,              // Gateway payment method
		"last_recharge_at":       s.LastRechargeAt,                 // Last successful top-up
		"total_recharges":        s.TotalRecharges,                 // Count of successful top-ups
		"total_recharged_amount": s.TotalRechargedAmount.String(),  // Sum of successful top-ups
	}
}
