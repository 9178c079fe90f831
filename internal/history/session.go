package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/veryfrut/storefront/internal/domain"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
	"github.com/veryfrut/storefront/pkg/middleware"
)

// OrderLister lists a customer's orders.
type OrderLister interface {
	ListCustomerOrders(ctx context.Context, userID int) ([]domain.Order, error)
}

// Fetcher is everything a session needs from the backend.
type Fetcher interface {
	OrderLister
	DetailFetcher
}

// Session is one customer's history view: the detail cache, the last
// enriched order list, the refresh throttle and the background poller.
type Session struct {
	customerID string
	userID     int
	fetch      OrderLister
	enricher   *Enricher
	cache      *Cache
	cfg        Config
	logger     *slog.Logger

	// refreshMu serializes refreshes and guards the fields below it.
	refreshMu sync.Mutex
	orders    []domain.Order
	fetchedAt time.Time
	loaded    bool

	stateMu  sync.Mutex
	token    string
	lastUsed time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(customerID string, userID int, fetch OrderLister, enricher *Enricher, cfg Config, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		customerID: customerID,
		userID:     userID,
		fetch:      fetch,
		enricher:   enricher,
		cache:      NewCache(),
		cfg:        cfg,
		logger:     logger.With(slog.String("customer_id", customerID)),
		lastUsed:   cfg.Now(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	if cfg.PollInterval > 0 {
		go s.poll()
	} else {
		close(s.done)
	}
	return s
}

// Refresh returns the enriched order list. Unless force is set, a call within
// MinRefreshInterval of the last fetch returns the cached list. The first call
// always fetches.
func (s *Session) Refresh(ctx context.Context, force bool) ([]domain.Order, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.loaded && !force && s.cfg.Now().Sub(s.fetchedAt) < s.cfg.MinRefreshInterval {
		refreshes.WithLabelValues("throttled").Inc()
		return s.snapshot(), nil
	}

	ctx, cancel := context.WithCancel(s.authContext(ctx))
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	orders, err := s.fetch.ListCustomerOrders(ctx, s.userID)
	if err != nil {
		refreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	s.orders = s.enricher.Enrich(ctx, orders, s.cache)
	s.fetchedAt = s.cfg.Now()
	s.loaded = true
	refreshes.WithLabelValues("fetched").Inc()
	return s.snapshot(), nil
}

func (s *Session) snapshot() []domain.Order {
	out := make([]domain.Order, len(s.orders))
	for i, o := range s.orders {
		out[i] = o.Clone()
	}
	return out
}

// touch records activity and the most recent token seen for the customer.
func (s *Session) touch(token string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.lastUsed = s.cfg.Now()
	if token != "" {
		s.token = token
	}
}

func (s *Session) idleSince() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastUsed
}

// authContext returns ctx carrying the customer's last token when ctx has
// none, as for polls and event-driven refreshes.
func (s *Session) authContext(ctx context.Context) context.Context {
	if middleware.TokenFromContext(ctx) != "" {
		return ctx
	}
	s.stateMu.Lock()
	token := s.token
	s.stateMu.Unlock()
	if token == "" {
		return ctx
	}
	return middleware.WithClaims(ctx, token, &middleware.Claims{UserID: s.customerID})
}

func (s *Session) poll() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(s.ctx, true); err != nil {
				if s.ctx.Err() != nil {
					return
				}
				if errors.Is(err, apperrors.ErrUnauthorized) {
					s.logger.Info("history poller stopped, session token rejected")
					return
				}
				s.logger.Warn("history poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Close stops the poller, cancels in-flight fetches and waits for the poller
// to exit.
func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}
