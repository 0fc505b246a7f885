package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// JwtBlacklistStore remembers revoked tokens until they expire.
type JwtBlacklistStore interface {
	// IsBlacklisted checks if the given token is blacklisted.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	// AddToBlacklist revokes the given token until exp.
	AddToBlacklist(ctx context.Context, token string, exp time.Time) error
}

// DefaultBlacklistCleanup is how often an in-memory store drops expired tokens.
const DefaultBlacklistCleanup = 5 * time.Minute

// InMemoryBlacklistStore keeps revoked tokens in process memory. It is lost
// on restart and not shared between replicas.
type InMemoryBlacklistStore struct {
	blacklist map[string]time.Time
	mu        sync.RWMutex
	interval  time.Duration
}

// NewInMemoryBlacklistStore returns a store that drops expired entries
// every cleanupInterval until ctx is done.
func NewInMemoryBlacklistStore(ctx context.Context, cleanupInterval time.Duration) *InMemoryBlacklistStore {
	store := &InMemoryBlacklistStore{
		blacklist: make(map[string]time.Time),
		interval:  cleanupInterval,
	}
	if cleanupInterval > 0 {
		go store.periodicCleanUp(ctx, cleanupInterval)
	}
	return store
}

func (s *InMemoryBlacklistStore) periodicCleanUp(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanUpExpired()
		}
	}
}

// CleanupInterval reports the sweep period, zero when expired entries are
// only removed by explicit CleanUpExpired calls.
func (s *InMemoryBlacklistStore) CleanupInterval() time.Duration { return s.interval }

// CleanUpExpired removes entries whose token has already expired.
func (s *InMemoryBlacklistStore) CleanUpExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for token, exp := range s.blacklist {
		if exp.Before(now) {
			delete(s.blacklist, token)
		}
	}
}

func (s *InMemoryBlacklistStore) IsBlacklisted(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.blacklist[token]
	return exists, nil
}

func (s *InMemoryBlacklistStore) AddToBlacklist(_ context.Context, token string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blacklist[token] = exp
	return nil
}

// Len returns the number of tracked tokens.
func (s *InMemoryBlacklistStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blacklist)
}

const redisBlacklistPrefix = "internhub:revoked:"

// RedisBlacklistStore keeps revoked tokens in Redis so every replica sees
// them. Keys expire together with the token.
type RedisBlacklistStore struct {
	client redis.UniversalClient
}

// NewRedisBlacklistStore wraps client.
func NewRedisBlacklistStore(client redis.UniversalClient) *RedisBlacklistStore {
	return &RedisBlacklistStore{client: client}
}

func redisBlacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return redisBlacklistPrefix + hex.EncodeToString(sum[:])
}

func (s *RedisBlacklistStore) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	err := s.client.Get(ctx, redisBlacklistKey(token)).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (s *RedisBlacklistStore) AddToBlacklist(ctx context.Context, token string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, redisBlacklistKey(token), 1, ttl).Err()
}
