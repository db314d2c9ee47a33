// Package detailcache lazily populates organization details and keeps them
// until they are explicitly invalidated.
package detailcache

import (
	"context"
	"sync"

	"github.com/smallbiznis/notewall/internal/observability/metrics"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Params struct {
	fx.In

	Store   Store
	Loader  domain.DetailLoader
	Log     *zap.Logger
	Metrics *metrics.AggregationMetrics `optional:"true"`
}

// Factory hands out one Cache per session over a shared Store.
type Factory struct {
	store   Store
	loader  domain.DetailLoader
	log     *zap.Logger
	metrics *metrics.AggregationMetrics
}

func NewFactory(p Params) *Factory {
	return &Factory{
		store:   p.Store,
		loader:  p.Loader,
		log:     p.Log.Named("organization.detailcache"),
		metrics: p.Metrics,
	}
}

func (f *Factory) ForSession(session string) *Cache {
	return &Cache{
		session: session,
		store:   f.store,
		loader:  f.loader,
		log:     f.log,
		metrics: f.metrics,
		epochs:  make(map[string]uint64),
	}
}

// Cache is the detail cache of one session. Concurrent misses for the same
// organization share a single population.
type Cache struct {
	session string
	store   Store
	loader  domain.DetailLoader
	log     *zap.Logger
	metrics *metrics.AggregationMetrics
	group   singleflight.Group

	// mu orders store writes against invalidation.
	mu         sync.Mutex
	generation uint64
	epochs     map[string]uint64
}

type epoch struct {
	generation uint64
	name       uint64
}

// Get returns the cached detail, populating it on a miss. It never fails:
// population errors degrade to empty members or notes and are cached as such.
func (c *Cache) Get(ctx context.Context, organizationName string) domain.OrganizationDetail {
	if detail, ok := c.Peek(ctx, organizationName); ok {
		c.metrics.RecordCacheRequest(metrics.CacheResultHit)
		return detail
	}

	populated := false
	v, _, shared := c.group.Do(organizationName, func() (any, error) {
		if detail, ok := c.Peek(ctx, organizationName); ok {
			return detail, nil
		}
		populated = true
		token := c.currentEpoch(organizationName)
		// One caller going away must not fail the population shared with others.
		detail := c.loader.LoadDetail(context.WithoutCancel(ctx), organizationName)
		c.storeIfCurrent(context.WithoutCancel(ctx), organizationName, token, detail)
		return detail, nil
	})

	// singleflight reports shared to the loading caller too once others joined.
	switch {
	case populated:
		c.metrics.RecordCacheRequest(metrics.CacheResultMiss)
	case shared:
		c.metrics.RecordCacheRequest(metrics.CacheResultShared)
	default:
		c.metrics.RecordCacheRequest(metrics.CacheResultHit)
	}
	return v.(domain.OrganizationDetail)
}

// Peek reports a cached detail without populating it.
func (c *Cache) Peek(ctx context.Context, organizationName string) (domain.OrganizationDetail, bool) {
	detail, ok, err := c.store.Get(ctx, c.session, organizationName)
	if err != nil {
		c.log.Warn("detail cache read failed", zap.Error(err))
		return domain.OrganizationDetail{}, false
	}
	return detail, ok
}

// Invalidate drops one entry. A population already in flight for it will not be stored.
func (c *Cache) Invalidate(ctx context.Context, organizationName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epochs[organizationName]++
	c.group.Forget(organizationName)
	if err := c.store.Delete(ctx, c.session, organizationName); err != nil {
		c.log.Warn("detail cache delete failed", zap.Error(err))
	}
}

// Reset drops every entry of the session.
func (c *Cache) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if err := c.store.Clear(ctx, c.session); err != nil {
		c.log.Warn("detail cache clear failed", zap.Error(err))
	}
}

func (c *Cache) currentEpoch(organizationName string) epoch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return epoch{generation: c.generation, name: c.epochs[organizationName]}
}

func (c *Cache) storeIfCurrent(ctx context.Context, organizationName string, token epoch, detail domain.OrganizationDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token.generation != c.generation || token.name != c.epochs[organizationName] {
		return
	}
	if err := c.store.Put(ctx, c.session, organizationName, detail); err != nil {
		c.log.Warn("detail cache write failed", zap.Error(err))
		c.metrics.RecordPartialFailure(metrics.StageCacheStore)
	}
}
