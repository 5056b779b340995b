package api

import (
	"errors"                       // Sentinel error matching
	"net/http"                     // HTTP status codes
	"strconv"                      // Query parameter conversion
	"time"                         // Cache TTLs
	"wallet_engine/internal/domain" // Importing domain models
	"wallet_engine/internal/ledger" // Ledger reads
	"wallet_engine/internal/utils"  // Cache helpers
	"wallet_engine/internal/wallet" // Wallet operations

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Decimal amount parsing
)

// currentOwnerID reads the authenticated owner from the request context
func currentOwnerID(c *gin.Context) (uint, bool) {
	ownerID, exists := c.Get("ownerID") // Set by the JWT middleware
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return ownerID.(uint), true
}

// parseAmount converts a decimal amount string (e.g. "12.34") to Money.
// Amounts with sub-cent precision are rejected, not truncated.
func parseAmount(c *gin.Context, raw string) (domain.Money, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return 0, false
	}
	m, ok := domain.MoneyFromDecimalExact(d)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must not have more than two decimal places"})
		return 0, false
	}
	return m, true
}

// CreateWalletHandler creates the wallet for an owner (one wallet per owner)
func CreateWalletHandler(ws *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get owner from context
		ownerID, ok := currentOwnerID(c)
		if !ok {
			return
		}
		w, err := ws.CreateWallet(c.Request.Context(), ownerID)
		if err != nil {
			// One wallet per owner
			if errors.Is(err, wallet.ErrWalletExists) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wallet"})
			return
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created", "wallet": w})
	}
}

// GetWalletHandler returns the snapshot for the authenticated owner's wallet
func GetWalletHandler(ws *wallet.Service, rdb *redis.Client) gin.HandlerFunc {
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
		cacheKey := utils.SnapshotCacheKey(w.ID) // Cache key for the snapshot
		var snap wallet.Snapshot
		// Try to get from cache
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &snap); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"snapshot": snapshotResponse(&snap), "cached": true})
			return
		}
		// If not in cache, fetch from DB
		s, err := ws.GetSnapshot(ctx, w.ID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, s, 60*time.Second) // Cache the snapshot for 60 seconds
		c.JSON(http.StatusOK, gin.H{"snapshot": snapshotResponse(s), "cached": false})
	}
}

// snapshotResponse renders a snapshot with decimal amount strings
func snapshotResponse(s *wallet.Snapshot) gin.H {
	return gin.H{
		"wallet_id":    s.WalletID,              // Wallet ID
		"balance":      s.Balance.String(),      // Current balance
		"total_earned": s.TotalEarned.String(),  // Lifetime credited amount
		"total_spent":  s.TotalSpent.String(),   // Lifetime debited amount
	}
}

// CreditRequest represents an inbound credit, e.g. the billing collaborator's
// "invoice paid" notification
type CreditRequest struct {
	Amount         string `json:"amount" binding:"required"` // Decimal amount string
	Description    string `json:"description"`               // Human-readable reason
	PaymentMethod  string `json:"payment_method"`            // How the money arrived
	SourceRef      string `json:"source_ref"`                // Invoice or payment reference
	IdempotencyKey string `json:"idempotency_key"`           // Dedup token for webhook replays
}

// CreditHandler credits the authenticated owner's wallet
func CreditHandler(ws *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get owner from context
		ownerID, ok := currentOwnerID(c)
		if !ok {
			return
		}
		var req CreditRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		amount, ok := parseAmount(c, req.Amount)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		w, err := ws.GetByOwner(ctx, ownerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		txn, err := ws.Credit(ctx, w.ID, amount, req.Description, req.PaymentMethod, req.SourceRef, req.IdempotencyKey)
		if err != nil {
			if errors.Is(err, wallet.ErrInvalidAmount) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Credit failed"})
			return
		}
		// Cached reads are invalidated by the wallet service itself
		c.JSON(http.StatusOK, gin.H{"message": "Credit successful", "transaction": txn})
	}
}

// DebitRequest represents a debit, e.g. a paid service being consumed
type DebitRequest struct {
	Amount      string `json:"amount" binding:"required"` // Decimal amount string
	Description string `json:"description"`               // Human-readable reason
	ServiceRef  string `json:"service_ref"`               // What was paid for
}

// DebitHandler debits the authenticated owner's wallet. A successful debit
// may trigger an auto-recharge as a side effect; the recharge outcome is
// never part of this response.
func DebitHandler(ws *wallet.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get owner from context
		ownerID, ok := currentOwnerID(c)
		if !ok {
			return
		}
		var req DebitRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		amount, ok := parseAmount(c, req.Amount)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		w, err := ws.GetByOwner(ctx, ownerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		txn, err := ws.Debit(ctx, w.ID, amount, req.Description, req.ServiceRef)
		if err != nil {
			// Check for insufficient funds
			if errors.Is(err, wallet.ErrInsufficientFunds) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient funds"})
				return
			}
			if errors.Is(err, wallet.ErrInvalidAmount) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Debit failed"})
			return
		}
		// Cached reads are invalidated by the wallet service itself
		c.JSON(http.StatusOK, gin.H{"message": "Debit successful", "transaction": txn})
	}
}

// GetTransactionHistoryHandler returns one ledger page for the authenticated
// owner's wallet, ordered by sequence ascending. The cursor for the next page
// is the sequence of the last returned entry.
func GetTransactionHistoryHandler(ws *wallet.Service, l *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
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
		var afterSeq uint64 // Cursor: return entries after this sequence
		if v, err := strconv.ParseUint(c.Query("cursor"), 10, 64); err == nil {
			afterSeq = v
		}
		limit := 20 // Default page size
		if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
			limit = v
		}
		cacheKey := utils.LedgerCacheKey(w.ID, afterSeq, limit) // Cache key for this page
		var cached []domain.Transaction
		// Try to get from cache
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, historyResponse(cached, true))
			return
		}
		entries, err := l.ListByWallet(ctx, ws.DB(), w.ID, afterSeq, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, entries, 30*time.Second) // Cache the page for 30 seconds
		c.JSON(http.StatusOK, historyResponse(entries, false))
	}
}

// historyResponse renders a ledger page with its continuation cursor
func historyResponse(entries []domain.Transaction, cached bool) gin.H {
	var nextCursor uint64 // Sequence of the last entry, zero for an empty page
	if len(entries) > 0 {
		nextCursor = entries[len(entries)-1].Sequence
	}
	return gin.H{
		"transactions": entries,    // Ledger page, sequence ascending
		"next_cursor":  nextCursor, // Pass back as ?cursor= for the next page
		"cached":       cached,     // Whether the page came from cache
	}
}
