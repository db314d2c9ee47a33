package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/notewall/internal/organization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestRegistryEstablishReturnsSameCoordinator(t *testing.T) {
	f := newFixture(t, defaultRoster())
	ctx := context.Background()

	first, _, err := f.registry.Establish(ctx, "a@x.io")
	require.NoError(t, err)
	second, _, err := f.registry.Establish(ctx, " a@x.io ")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.registry.Len())
}

func TestRegistryGetUnknownSession(t *testing.T) {
	f := newFixture(t, defaultRoster())

	_, err := f.registry.Get(context.Background(), "nobody@x.io")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = f.registry.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, _, err = f.registry.Establish(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestRegistryEndResetsCache(t *testing.T) {
	f := newFixture(t, defaultRoster())
	ctx := context.Background()

	c, _, err := f.registry.Establish(ctx, "a@x.io")
	require.NoError(t, err)
	_, err = c.Select(ctx, "Acme")
	require.NoError(t, err)

	assert.True(t, f.registry.End(ctx, "a@x.io"))
	assert.False(t, f.registry.End(ctx, "a@x.io"))

	_, err = f.registry.Get(ctx, "a@x.io")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	c, _, err = f.registry.Establish(ctx, "a@x.io")
	require.NoError(t, err)
	_, err = c.Select(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 2, f.loader.count("Acme"))
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	f := newFixture(t, defaultRoster())
	ctx := context.Background()

	_, _, err := f.registry.Establish(ctx, "a@x.io")
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	_, err = f.registry.Get(ctx, "a@x.io")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.registry.Get(ctx, "a@x.io")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 0, f.registry.Len())
}

func TestRegistrySweepEndsOnlyIdleSessions(t *testing.T) {
	f := newFixture(t, defaultRoster())
	ctx := context.Background()

	idle, _, err := f.registry.Establish(ctx, "a@x.io")
	require.NoError(t, err)
	_, err = idle.Select(ctx, "Acme")
	require.NoError(t, err)
	_, _, err = f.registry.Establish(ctx, "c@y.io")
	require.NoError(t, err)

	f.clock.Advance(50 * time.Minute)
	_, err = f.registry.Get(ctx, "c@y.io")
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)

	assert.Equal(t, 1, f.registry.Sweep(ctx))
	assert.Equal(t, 1, f.registry.Len())
	_, err = f.registry.Get(ctx, "c@y.io")
	assert.NoError(t, err)

	again, _, err := f.registry.Establish(ctx, "a@x.io")
	require.NoError(t, err)
	assert.NotSame(t, idle, again)
	_, err = again.Select(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, 2, f.loader.count("Acme"))
}

func TestRunSweeperStartsAndStops(t *testing.T) {
	f := newFixture(t, defaultRoster())
	lc := fxtest.NewLifecycle(t)

	RunSweeper(lc, f.registry)
	lc.RequireStart()
	lc.RequireStop()
}
