package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records token ids that must no longer be accepted.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevoker keeps revoked ids in process memory. It suits a single
// instance; restarts forget revocations.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, until := range r.revoked {
		if !until.After(now) {
			delete(r.revoked, id)
		}
	}
	r.revoked[jti] = now.Add(ttl)
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[jti]
	return ok && until.After(r.now()), nil
}

const revokedPrefix = "wishlist:session:revoked:"

// RedisRevoker shares revocations between instances through Redis keys that
// expire together with the token.
type RedisRevoker struct {
	rdb *redis.Client
}

// NewRedisRevoker connects to addr and verifies the connection with PING.
func NewRedisRevoker(ctx context.Context, addr, password string, db int) (*RedisRevoker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisRevoker{rdb: rdb}, nil
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisRevoker) Close() error {
	return r.rdb.Close()
}
