package detailcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/notewall/internal/organization/domain"
)

const keyDetailSession = "notewall:detail:%s"

// RedisStore keeps one hash per session, one field per organization, so a
// multi-instance deployment shares populated details.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	store := NewRedisStoreWithClient(redis.NewClient(opts), ttl)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return store, nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: sessionTTL(ttl)}
}

func (s *RedisStore) key(session string) string {
	return fmt.Sprintf(keyDetailSession, session)
}

// Get reads one detail and extends the session hash to a full TTL, so details
// a session keeps reading live as long as the session does.
func (s *RedisStore) Get(ctx context.Context, session, organizationName string) (domain.OrganizationDetail, bool, error) {
	key := s.key(session)
	pipe := s.client.TxPipeline()
	get := pipe.HGet(ctx, key, organizationName)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return domain.OrganizationDetail{}, false, fmt.Errorf("get detail: %w", err)
	}

	raw, err := get.Result()
	if err == redis.Nil {
		return domain.OrganizationDetail{}, false, nil
	}
	if err != nil {
		return domain.OrganizationDetail{}, false, fmt.Errorf("get detail: %w", err)
	}

	var detail domain.OrganizationDetail
	if err := json.Unmarshal([]byte(raw), &detail); err != nil {
		return domain.OrganizationDetail{}, false, fmt.Errorf("unmarshal detail: %w", err)
	}
	return detail, true, nil
}

func (s *RedisStore) Put(ctx context.Context, session, organizationName string, detail domain.OrganizationDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}

	key := s.key(session)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, organizationName, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put detail: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, session, organizationName string) error {
	if err := s.client.HDel(ctx, s.key(session), organizationName).Err(); err != nil {
		return fmt.Errorf("delete detail: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, session string) error {
	if err := s.client.Del(ctx, s.key(session)).Err(); err != nil {
		return fmt.Errorf("clear details: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
