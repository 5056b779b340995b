package recharge

import (
	"context" // Context for Redis operations
	"fmt"     // Key formatting
	"sync"    // In-process locker state
	"time"    // Lock TTLs

	"github.com/google/uuid"       // Per-attempt lock tokens
	"github.com/redis/go-redis/v9" // Redis client
)

// Locker is the per-wallet single-flight guard for recharge attempts. The
// lock must expire on its own (TTL) so a stuck gateway call can never leave a
// wallet permanently in-flight. Acquire returns a token identifying the
// attempt; Release only drops the lock while that token still owns it, so an
// attempt that outlived its TTL cannot release a successor's lock.
type Locker interface {
	Acquire(ctx context.Context, walletID uint, ttl time.Duration) (string, bool, error) // ok is false when already held
	Release(ctx context.Context, walletID uint, token string) error
	Held(ctx context.Context, walletID uint) (bool, error)
}

// RedisLocker implements Locker with SET NX PX, which makes the guard hold
// across multiple service instances.
type RedisLocker struct {
	client *redis.Client
}

// releaseScript deletes the lock only while the caller's token is still its
// value; GET and DEL must be one atomic step or the ownership check races
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// NewRedisLocker creates a RedisLocker
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// lockKey builds the Redis key for a wallet's recharge lock
func lockKey(walletID uint) string {
	return fmt.Sprintf("recharge:lock:%d", walletID)
}

// Acquire takes the lock unless it is already held; the TTL releases it
// independently of callback delivery. The stored value is the attempt token.
func (l *RedisLocker) Acquire(ctx context.Context, walletID uint, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(walletID), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Release drops the lock if the token still owns it
func (l *RedisLocker) Release(ctx context.Context, walletID uint, token string) error {
	return releaseScript.Run(ctx, l.client, []string{lockKey(walletID)}, token).Err()
}

// Held reports whether the lock is currently held
func (l *RedisLocker) Held(ctx context.Context, walletID uint) (bool, error) {
	n, err := l.client.Exists(ctx, lockKey(walletID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// memoryLock is one in-process lock holding
type memoryLock struct {
	token    string    // Owning attempt
	deadline time.Time // Lock expiry
}

// MemoryLocker implements Locker in process memory with the same expiry and
// ownership semantics; used in tests and single-node deployments without Redis.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[uint]memoryLock // Wallet ID -> current holder
}

// NewMemoryLocker creates a MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[uint]memoryLock)}
}

// Acquire takes the lock unless a non-expired holder exists
func (l *MemoryLocker) Acquire(ctx context.Context, walletID uint, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[walletID]; ok && time.Now().Before(held.deadline) {
		return "", false, nil // Still held
	}
	token := uuid.NewString()
	l.locks[walletID] = memoryLock{token: token, deadline: time.Now().Add(ttl)}
	return token, true, nil
}

// Release drops the lock if the token still owns it
func (l *MemoryLocker) Release(ctx context.Context, walletID uint, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[walletID]; ok && held.token == token {
		delete(l.locks, walletID)
	}
	return nil
}

// Held reports whether a non-expired holder exists
func (l *MemoryLocker) Held(ctx context.Context, walletID uint) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	held, ok := l.locks[walletID]
	return ok && time.Now().Before(held.deadline), nil
}
