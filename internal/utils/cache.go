package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"fmt"           // Cache key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// SnapshotCacheKey is the cache key for a wallet's snapshot
func SnapshotCacheKey(walletID uint) string {
	return fmt.Sprintf("wallet:snapshot:%d", walletID)
}

// LedgerCacheKey is the cache key for one page of a wallet's ledger
func LedgerCacheKey(walletID uint, afterSequence uint64, limit int) string {
	return fmt.Sprintf("wallet:ledger:%d:after:%d:limit:%d", walletID, afterSequence, limit)
}

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes a key from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err() // Delete key from Redis
}

// InvalidateWallet drops all cached reads for a wallet after a mutation.
// Ledger pages carry a short TTL, so deleting the snapshot key plus scanning
// the wallet's ledger keys keeps reads fresh without tracking every cursor.
func InvalidateWallet(ctx context.Context, rdb *redis.Client, walletID uint) {
	if rdb == nil {
		return
	}
	_ = DeleteCache(ctx, rdb, SnapshotCacheKey(walletID)) // Invalidate snapshot
	// Invalidate ledger pages for this wallet
	pattern := fmt.Sprintf("wallet:ledger:%d:*", walletID)
	iter := rdb.Scan(ctx, 0, pattern, 50).Iterator()
	for iter.Next(ctx) {
		_ = DeleteCache(ctx, rdb, iter.Val())
	}
}
