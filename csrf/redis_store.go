package csrf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dokq/core"
)

const (
	tokenKeyPrefix   = "csrf:token:"
	sessionKeyPrefix = "csrf:session:"
)

// RedisStore is the Store for deployments where the gateway process is
// not long-lived (serverless, multiple replicas) and an in-process map
// would silently lose tokens. Redis key TTLs replace the expiry sweep.
type RedisStore struct {
	client        *redis.Client
	maxPerSession int
	logger        *zap.SugaredLogger
}

// NewRedisStore connects and verifies the Redis backend.
func NewRedisStore(ctx context.Context, addr, password string, db, poolSize int, logger *zap.SugaredLogger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{
		client:        client,
		maxPerSession: core.CSRFMaxTokensPerSession,
		logger:        logger,
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, token string, data TokenData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	ttl := time.Until(data.Expiry)
	if ttl <= 0 {
		return fmt.Errorf("token already expired")
	}

	sessionKey := sessionKeyPrefix + data.SessionID
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKeyPrefix+token, payload, ttl)
	pipe.RPush(ctx, sessionKey, token)
	// The session list outlives its newest token by a margin, so cleanup
	// of a fully expired session is handled by Redis itself.
	pipe.Expire(ctx, sessionKey, ttl+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	// Enforce the per-session cap, oldest first.
	for {
		size, err := s.client.LLen(ctx, sessionKey).Result()
		if err != nil {
			return fmt.Errorf("failed to read session token set: %w", err)
		}
		if size <= int64(s.maxPerSession) {
			return nil
		}
		oldest, err := s.client.LPop(ctx, sessionKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return fmt.Errorf("failed to evict oldest token: %w", err)
		}
		if err := s.client.Del(ctx, tokenKeyPrefix+oldest).Err(); err != nil {
			return fmt.Errorf("failed to delete evicted token: %w", err)
		}
	}
}

func (s *RedisStore) Get(ctx context.Context, token string) (TokenData, bool, error) {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return TokenData{}, false, nil
		}
		return TokenData{}, false, fmt.Errorf("failed to look up token: %w", err)
	}

	var data TokenData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return TokenData{}, false, fmt.Errorf("failed to unmarshal token data: %w", err)
	}
	// The key TTL normally handles expiry; this guards clock skew between
	// writer and Redis.
	if time.Now().After(data.Expiry) {
		_ = s.Remove(ctx, token)
		return TokenData{}, false, nil
	}
	return data, true, nil
}

func (s *RedisStore) Remove(ctx context.Context, token string) error {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to look up token for removal: %w", err)
	}

	var data TokenData
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		s.client.LRem(ctx, sessionKeyPrefix+data.SessionID, 1, token)
	}
	if err := s.client.Del(ctx, tokenKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveSession(ctx context.Context, sessionID string) error {
	sessionKey := sessionKeyPrefix + sessionID
	tokens, err := s.client.LRange(ctx, sessionKey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read session token set: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, tokenKeyPrefix+token)
	}
	pipe.Del(ctx, sessionKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove session tokens: %w", err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	tokenKeys, err := s.scanKeys(ctx, tokenKeyPrefix+"*")
	if err != nil {
		return stats, err
	}
	sessionKeys, err := s.scanKeys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return stats, err
	}

	stats.TotalTokens = len(tokenKeys)
	stats.ActiveSessions = len(sessionKeys)
	return stats, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
