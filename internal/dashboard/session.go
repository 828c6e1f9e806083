package dashboard

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"absstitch/internal/domain"
	"absstitch/internal/freshness"
	"absstitch/internal/query"
)

// Dashboard sections. Each maps to one entity type, one engine per session
// and one freshness counter.
const (
	SectionOrders   = "orders"
	SectionInvoices = "invoices"
	SectionDesigns  = "designs"
)

type Config struct {
	QuietPeriod      time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	FreshnessWindow  time.Duration
}

// engineHandle erases the engine's element type so one session can route
// section names to engines of different entities.
type engineHandle interface {
	UpdateParams(patch query.Patch)
	Refetch(force bool)
	State() any
	Close()
}

type handle[T any] struct {
	*query.Engine[T]
}

func (h handle[T]) State() any {
	return h.Engine.Snapshot()
}

// Session is one viewer's dashboard state: a query engine per section plus
// a per-viewer freshness tracker. Engines across sessions share the
// process-wide cache and coordinators, so identical queries from two
// viewers still collapse into one fetch.
type Session struct {
	ID      string
	Badges  *freshness.Tracker
	engines map[string]engineHandle
}

func (s *Session) Section(name string) (engineHandle, bool) {
	h, ok := s.engines[name]
	return h, ok
}

func (s *Session) Close() {
	for _, h := range s.engines {
		h.Close()
	}
}

// Fetchers bundles the per-section fetchers the factory builds engines on.
type Fetchers struct {
	Orders   query.Fetcher[domain.Order]
	Invoices query.Fetcher[domain.Invoice]
	Designs  query.Fetcher[domain.Design]
}

// Registry creates sessions on first use and owns their shutdown.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  func(id string) *Session
}

func NewRegistry(cache *query.Cache, fetchers Fetchers, counters freshness.Counter, cfg Config, logger *zap.Logger) *Registry {
	orderCoord := query.NewCoordinator[domain.Order](cache, cfg.RetryMaxAttempts, cfg.RetryBaseDelay, logger)
	invoiceCoord := query.NewCoordinator[domain.Invoice](cache, cfg.RetryMaxAttempts, cfg.RetryBaseDelay, logger)
	designCoord := query.NewCoordinator[domain.Design](cache, cfg.RetryMaxAttempts, cfg.RetryBaseDelay, logger)

	factory := func(id string) *Session {
		return &Session{
			ID:     id,
			Badges: freshness.NewTracker(counters, cfg.FreshnessWindow),
			engines: map[string]engineHandle{
				SectionOrders: handle[domain.Order]{query.NewEngine(
					query.NewParams(SectionOrders), cache, orderCoord, fetchers.Orders, cfg.QuietPeriod, logger,
				)},
				SectionInvoices: handle[domain.Invoice]{query.NewEngine(
					query.NewParams(SectionInvoices), cache, invoiceCoord, fetchers.Invoices, cfg.QuietPeriod, logger,
				)},
				SectionDesigns: handle[domain.Design]{query.NewEngine(
					query.NewParams(SectionDesigns), cache, designCoord, fetchers.Designs, cfg.QuietPeriod, logger,
				)},
			},
		}
	}

	return &Registry{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Get returns the session, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := r.factory(id)
	r.sessions[id] = s
	return s
}

func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
