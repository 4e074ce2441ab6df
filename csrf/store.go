// Package csrf implements the double-submit CSRF token protocol: token
// issuance, validation, rotation, and the backing token stores.
package csrf

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"dokq/core"
)

// TokenData is the server-side record for one outstanding token.
type TokenData struct {
	SessionID string    `json:"sessionId"`
	Created   time.Time `json:"created"`
	Expiry    time.Time `json:"expiry"`
}

// Stats is a point-in-time snapshot of a store.
type Stats struct {
	TotalTokens    int `json:"totalTokens"`
	ActiveSessions int `json:"activeSessions"`
}

// Store holds CSRF tokens keyed by value, with per-session bookkeeping.
// Implementations enforce the per-session cap (oldest evicted first) and
// expire tokens at their recorded expiry.
type Store interface {
	// Put records a token for a session, evicting the session's oldest
	// token if the cap is exceeded.
	Put(ctx context.Context, token string, data TokenData) error
	// Get returns the record for a token. A found-but-expired token is
	// removed and reported as absent.
	Get(ctx context.Context, token string) (TokenData, bool, error)
	// Remove deletes a token. Removing an absent token is a no-op.
	Remove(ctx context.Context, token string) error
	// RemoveSession deletes every token owned by a session (logout).
	RemoveSession(ctx context.Context, sessionID string) error
	Stats(ctx context.Context) (Stats, error)
	// Close releases resources and stops background maintenance.
	Close() error
}

// MemoryStore is the in-process Store. A background sweep removes
// expired tokens on a fixed interval; the sweep is owned by the store and
// stops on Close.
type MemoryStore struct {
	mu       sync.Mutex
	tokens   map[string]TokenData
	sessions map[string][]string // insertion-ordered token values per session

	maxPerSession int
	logger        *zap.SugaredLogger
	stopCh        chan struct{}
	closeOnce     sync.Once
}

// NewMemoryStore creates the store and starts its expiry sweep.
func NewMemoryStore(logger *zap.SugaredLogger) *MemoryStore {
	s := &MemoryStore{
		tokens:        make(map[string]TokenData),
		sessions:      make(map[string][]string),
		maxPerSession: core.CSRFMaxTokensPerSession,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
	go s.sweepLoop(core.CSRFSweepInterval)
	return s
}

func (s *MemoryStore) Put(_ context.Context, token string, data TokenData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = data
	s.sessions[data.SessionID] = append(s.sessions[data.SessionID], token)

	// Oldest-first eviction once the session exceeds its cap.
	for len(s.sessions[data.SessionID]) > s.maxPerSession {
		oldest := s.sessions[data.SessionID][0]
		s.removeLocked(oldest)
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (TokenData, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.tokens[token]
	if !ok {
		return TokenData{}, false, nil
	}
	if time.Now().After(data.Expiry) {
		s.removeLocked(token)
		return TokenData{}, false, nil
	}
	return data, true, nil
}

func (s *MemoryStore) Remove(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(token)
	return nil
}

func (s *MemoryStore) RemoveSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.sessions[sessionID] {
		delete(s.tokens, token)
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{TotalTokens: len(s.tokens), ActiveSessions: len(s.sessions)}, nil
}

func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopCh) })
	return nil
}

// removeLocked deletes a token and its session bookkeeping. Idempotent:
// the sweep and explicit removal may race over the same token.
func (s *MemoryStore) removeLocked(token string) {
	data, ok := s.tokens[token]
	if !ok {
		return
	}
	delete(s.tokens, token)

	owned := s.sessions[data.SessionID]
	for i, t := range owned {
		if t == token {
			s.sessions[data.SessionID] = append(owned[:i], owned[i+1:]...)
			break
		}
	}
	if len(s.sessions[data.SessionID]) == 0 {
		delete(s.sessions, data.SessionID)
	}
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired()
		case <-s.stopCh:
			return
		}
	}
}

// sweepExpired removes all expired tokens store-wide.
func (s *MemoryStore) sweepExpired() {
	now := time.Now()

	s.mu.Lock()
	var expired []string
	for token, data := range s.tokens {
		if now.After(data.Expiry) {
			expired = append(expired, token)
		}
	}
	for _, token := range expired {
		s.removeLocked(token)
	}
	s.mu.Unlock()

	if len(expired) > 0 && s.logger != nil {
		s.logger.Infow("Cleaned up expired CSRF tokens", "count", len(expired))
	}
}
