// Package history serves a customer's order history enriched with product
// and area details cached per history session.
package history

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/veryfrut/storefront/internal/domain"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
	"github.com/veryfrut/storefront/pkg/middleware"
)

// Config tunes refresh and session lifetime.
type Config struct {
	MinRefreshInterval time.Duration
	PollInterval       time.Duration
	SessionIdle        time.Duration
	FetchConcurrency   int
	Now                func() time.Time
}

// DefaultConfig returns the production intervals.
func DefaultConfig() Config {
	return Config{
		MinRefreshInterval: 5 * time.Second,
		PollInterval:       60 * time.Second,
		SessionIdle:        30 * time.Minute,
		FetchConcurrency:   8,
		Now:                time.Now,
	}
}

// Manager keeps one Session per customer and evicts idle ones.
type Manager struct {
	fetch    Fetcher
	enricher *Enricher
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewManager creates a session manager fetching orders through fetch.
func NewManager(fetch Fetcher, cfg Config, logger *slog.Logger) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		fetch:    fetch,
		enricher: NewEnricher(fetch, cfg.FetchConcurrency, logger),
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Orders returns the customer's enriched orders, opening a session on first
// use. force bypasses the refresh throttle.
func (m *Manager) Orders(ctx context.Context, customerID string, force bool) ([]domain.Order, error) {
	s, err := m.session(customerID, middleware.TokenFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return s.Refresh(ctx, force)
}

// ForceRefresh refetches the customer's history if a session is open. It is a
// no-op otherwise since the next view loads fresh data anyway.
func (m *Manager) ForceRefresh(ctx context.Context, customerID string) error {
	m.mu.Lock()
	s, ok := m.sessions[customerID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	_, err := s.Refresh(ctx, true)
	return err
}

// session returns the open session for customerID, creating it if needed. It
// is touched under m.mu so evictIdle cannot close it before the caller uses it.
func (m *Manager) session(customerID, token string) (*Session, error) {
	userID, err := strconv.Atoi(customerID)
	if err != nil || userID <= 0 {
		return nil, apperrors.InvalidInput("customer id must be numeric")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, apperrors.ServiceUnavailable("history is shutting down")
	}
	s, ok := m.sessions[customerID]
	if !ok {
		s = newSession(customerID, userID, m.fetch, m.enricher, m.cfg, m.logger)
		m.sessions[customerID] = s
		activeSessions.Inc()
	}
	s.touch(token)
	return s, nil
}

// Run evicts idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.cfg.SessionIdle <= 0 {
		return
	}
	every := m.cfg.SessionIdle / 2
	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.evictIdle(); n > 0 {
				m.logger.Debug("evicted idle history sessions", slog.Int("count", n))
			}
		}
	}
}

// evictIdle closes every session unused for longer than SessionIdle.
func (m *Manager) evictIdle() int {
	cutoff := m.cfg.Now().Add(-m.cfg.SessionIdle)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		activeSessions.Dec()
	}
	return len(idle)
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops every session. Later calls to Orders fail.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		activeSessions.Dec()
	}
}
