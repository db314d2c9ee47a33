package coordinator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/notewall/internal/clock"
	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/observability/metrics"
	"github.com/smallbiznis/notewall/internal/organization/detailcache"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config      config.Config
	Membership  domain.MembershipResolver
	Roster      domain.RosterBuilder
	Feed        domain.NoteFeed
	Projector   domain.ChartProjector
	Caches      *detailcache.Factory
	Clock       clock.Clock
	Log         *zap.Logger
	Metrics     *metrics.AggregationMetrics `optional:"true"`
	OTelMetrics *metrics.Metrics            `optional:"true"`
}

type session struct {
	coordinator *Coordinator
	cache       *detailcache.Cache
	lastSeen    time.Time
}

// Registry keeps one coordinator per session email. Sessions idle for longer
// than the configured session TTL are ended on next access or by Sweep.
type Registry struct {
	membership domain.MembershipResolver
	roster     domain.RosterBuilder
	feed       domain.NoteFeed
	projector  domain.ChartProjector
	caches     *detailcache.Factory
	clock      clock.Clock
	ttl        time.Duration
	log        *zap.Logger
	metrics    *metrics.AggregationMetrics
	otel       *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRegistry(p Params) *Registry {
	return &Registry{
		membership: p.Membership,
		roster:     p.Roster,
		feed:       p.Feed,
		projector:  p.Projector,
		caches:     p.Caches,
		clock:      p.Clock,
		ttl:        p.Config.SessionTTL,
		log:        p.Log.Named("organization.coordinator"),
		metrics:    p.Metrics,
		otel:       p.OTelMetrics,
		sessions:   make(map[string]*session),
	}
}

// Establish returns the coordinator of email, creating it if needed, and
// (re)loads its roster and note list.
func (r *Registry) Establish(ctx context.Context, email string) (*Coordinator, Snapshot, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, Snapshot{}, domain.ErrInvalidEmail
	}

	r.mu.Lock()
	s, ok := r.sessions[email]
	if ok && r.expiredLocked(s) {
		r.mu.Unlock()
		r.End(ctx, email)
		r.mu.Lock()
		s, ok = r.sessions[email]
	}
	if !ok {
		s = r.newSessionLocked(email)
		r.sessions[email] = s
	}
	s.lastSeen = r.clock.Now()
	r.mu.Unlock()

	snapshot := s.coordinator.Start(ctx)
	r.otel.RecordSessionEstablished(ctx, snapshot.CurrentOrganization != nil)
	r.log.Info("session established",
		zap.Int("organizations", len(snapshot.Roster)),
		zap.Bool("has_organization", snapshot.CurrentOrganization != nil),
	)
	return s.coordinator, snapshot, nil
}

// Get returns the coordinator of an established session.
func (r *Registry) Get(ctx context.Context, email string) (*Coordinator, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}

	r.mu.Lock()
	s, ok := r.sessions[email]
	if !ok {
		r.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}
	if r.expiredLocked(s) {
		r.mu.Unlock()
		r.End(ctx, email)
		return nil, domain.ErrSessionNotFound
	}
	s.lastSeen = r.clock.Now()
	r.mu.Unlock()
	return s.coordinator, nil
}

// End drops the session and every detail cached for it.
func (r *Registry) End(ctx context.Context, email string) bool {
	email = strings.TrimSpace(email)

	r.mu.Lock()
	s, ok := r.sessions[email]
	delete(r.sessions, email)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.cache.Reset(ctx)
	return true
}

// Sweep ends every session idle longer than the session TTL and reports how
// many were ended.
func (r *Registry) Sweep(ctx context.Context) int {
	r.mu.Lock()
	var idle []string
	for email, s := range r.sessions {
		if r.expiredLocked(s) {
			idle = append(idle, email)
		}
	}
	r.mu.Unlock()

	ended := 0
	for _, email := range idle {
		r.mu.Lock()
		s, ok := r.sessions[email]
		stillIdle := ok && r.expiredLocked(s)
		r.mu.Unlock()
		if stillIdle && r.End(ctx, email) {
			ended++
		}
	}
	if ended > 0 {
		r.log.Info("idle sessions ended", zap.Int("sessions", ended))
	}
	return ended
}

// RunSweeper sweeps idle sessions for the lifetime of the application.
func RunSweeper(lc fx.Lifecycle, r *Registry) {
	if r.ttl <= 0 {
		return
	}
	interval := min(max(r.ttl/4, time.Minute), 15*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						r.Sweep(ctx)
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) newSessionLocked(email string) *session {
	cache := r.caches.ForSession(email)
	return &session{
		cache: cache,
		coordinator: &Coordinator{
			email:      email,
			membership: r.membership,
			roster:     r.roster,
			feed:       r.feed,
			projector:  r.projector,
			cache:      cache,
			log:        r.log,
			metrics:    r.metrics,
			otel:       r.otel,
			state:      StateUnselected,
			orgs:       []domain.Organization{},
			notes:      []domain.Note{},
		},
	}
}

func (r *Registry) expiredLocked(s *session) bool {
	if r.ttl <= 0 {
		return false
	}
	return r.clock.Now().Sub(s.lastSeen) > r.ttl
}
