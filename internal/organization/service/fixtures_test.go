package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/notewall/internal/clock"
	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"github.com/smallbiznis/notewall/internal/organization/repository"
	"github.com/smallbiznis/notewall/pkg/db"
	"github.com/stretchr/testify/require"
)

var (
	fixtureBase = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	errStore    = errors.New("store unavailable")
)

func strPtr(v string) *string { return &v }

func testAggregationConfig() *config.AggregationConfigHolder {
	return config.NewStaticAggregationConfigHolder(config.AggregationConfig{
		MaxConcurrency: 4,
		FetchTimeout:   time.Second,
	})
}

func testClock() *clock.FakeClock {
	return clock.NewFakeClock(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
}

// setupRepository seeds two organizations, one user without an organization and
// a note whose author is not a known user.
func setupRepository(t *testing.T) domain.Repository {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}, &domain.Note{}))

	repo := repository.NewRepository(conn)
	ctx := context.Background()
	require.NoError(t, repo.CreateUsers(ctx, []domain.User{
		{Email: "a@x.io", OrganizationName: strPtr("Acme")},
		{Email: "b@x.io", OrganizationName: strPtr("Acme")},
		{Email: "c@y.io", OrganizationName: strPtr("Globex")},
		{Email: "solo@z.io"},
	}))
	require.NoError(t, repo.CreateNotes(ctx, []domain.Note{
		{ID: 1, Title: "a1", AuthorEmail: "a@x.io", CreatedAt: fixtureBase},
		{ID: 2, Title: "a2", AuthorEmail: "a@x.io", CreatedAt: fixtureBase.Add(2 * time.Hour)},
		{ID: 3, Title: "b1", AuthorEmail: "b@x.io", CreatedAt: fixtureBase.Add(48 * time.Hour)},
		{ID: 4, Title: "solo", AuthorEmail: "solo@z.io", CreatedAt: fixtureBase},
		{ID: 5, Title: "ghost", AuthorEmail: "ghost@x.io", CreatedAt: fixtureBase},
	}))
	return repo
}

// faultyRepository fails selected calls and delegates the rest.
type faultyRepository struct {
	domain.Repository

	failUsers   bool
	failMembers map[string]bool
	failAuthor  map[string]bool
	failLookup  bool
}

func (r *faultyRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if r.failLookup {
		return nil, errStore
	}
	return r.Repository.FindUserByEmail(ctx, email)
}

func (r *faultyRepository) ListUsersWithOrganization(ctx context.Context) ([]domain.User, error) {
	if r.failUsers {
		return nil, errStore
	}
	return r.Repository.ListUsersWithOrganization(ctx)
}

func (r *faultyRepository) ListMembers(ctx context.Context, name string) ([]domain.User, error) {
	if r.failMembers[name] {
		return nil, errStore
	}
	return r.Repository.ListMembers(ctx, name)
}

func (r *faultyRepository) ListNotesByAuthor(ctx context.Context, email string) ([]domain.Note, error) {
	if r.failAuthor[email] {
		return nil, errStore
	}
	return r.Repository.ListNotesByAuthor(ctx, email)
}
