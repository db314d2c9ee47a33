package detailcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Store persists populated details per session. Entries are never rewritten
// by the cache once stored; Delete and Clear are the only removals.
type Store interface {
	Get(ctx context.Context, session, organizationName string) (domain.OrganizationDetail, bool, error)
	Put(ctx context.Context, session, organizationName string, detail domain.OrganizationDetail) error
	Delete(ctx context.Context, session, organizationName string) error
	Clear(ctx context.Context, session string) error
}

// NewStore selects the backing store from DETAIL_CACHE_BACKEND.
func NewStore(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Store, error) {
	switch cfg.DetailCacheBackend {
	case config.CacheBackendRedis:
		redisURL := strings.TrimSpace(cfg.RedisURL)
		if redisURL == "" {
			return nil, errors.New("detail cache redis url is required")
		}
		store, err := NewRedisStore(redisURL, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("detail cache: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return store.Close()
			},
		})
		log.Info("detail cache backed by redis")
		return store, nil
	default:
		return NewMemoryStore(), nil
	}
}

func sessionTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 12 * time.Hour
	}
	return ttl
}
