// Package coordinator drives roster building and organization selection for
// one session.
package coordinator

import (
	"context"
	"sync"

	"github.com/smallbiznis/notewall/internal/observability/metrics"
	"github.com/smallbiznis/notewall/internal/organization/detailcache"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateUnselected State = "unselected"
	StateLoading    State = "loading"
	StateReady      State = "ready"
)

// Snapshot is a consistent copy of a coordinator's presentation state.
type Snapshot struct {
	Email               string                     `json:"email"`
	CurrentOrganization *string                    `json:"current_organization"`
	Roster              []domain.Organization      `json:"roster"`
	State               State                      `json:"state"`
	Selected            string                     `json:"selected,omitempty"`
	Generation          uint64                     `json:"generation"`
	Detail              *domain.OrganizationDetail `json:"detail"`
	Chart               *domain.ChartSeries        `json:"chart"`
	LoadedNotes         int                        `json:"loaded_notes"`
}

// Coordinator owns the selection state machine of one session:
// unselected -> loading -> ready, keyed by organization name. Every selection
// change bumps a generation; detail results from an older generation are
// never applied.
type Coordinator struct {
	email      string
	membership domain.MembershipResolver
	roster     domain.RosterBuilder
	feed       domain.NoteFeed
	projector  domain.ChartProjector
	cache      *detailcache.Cache
	log        *zap.Logger
	metrics    *metrics.AggregationMetrics
	otel       *metrics.Metrics

	// mu is never held across a fetch.
	mu         sync.Mutex
	currentOrg *string
	orgs       []domain.Organization
	notes      []domain.Note
	state      State
	selected   string
	generation uint64
	detail     *domain.OrganizationDetail
	chart      *domain.ChartSeries
}

// Start resolves membership and loads the roster and the visible note list.
func (c *Coordinator) Start(ctx context.Context) Snapshot {
	return c.RefreshRoster(ctx)
}

// RefreshRoster re-resolves membership, then rebuilds the roster and note list
// concurrently. The current selection is kept.
func (c *Coordinator) RefreshRoster(ctx context.Context) Snapshot {
	var currentOrg *string
	if name, ok := c.membership.Resolve(ctx, c.email); ok {
		currentOrg = &name
	}

	var (
		orgs  []domain.Organization
		notes []domain.Note
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orgs = c.roster.BuildRoster(gctx, currentOrg)
		return nil
	})
	g.Go(func() error {
		notes = c.feed.VisibleNotes(gctx, c.email, currentOrg)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentOrg = currentOrg
	c.orgs = orgs
	c.notes = notes
	if c.state == StateReady {
		chart := c.projector.Project(c.detail, c.notes)
		c.chart = &chart
	}
	return c.snapshotLocked()
}

// Select moves the selection to organizationName and returns once the detail
// for it is loaded or a newer selection has superseded it.
func (c *Coordinator) Select(ctx context.Context, organizationName string) (Snapshot, error) {
	if !domain.ValidOrganizationName(organizationName) {
		return Snapshot{}, domain.ErrInvalidOrganization
	}

	c.mu.Lock()
	if c.state == StateReady && domain.SameOrganization(c.selected, organizationName) {
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		return snapshot, nil
	}
	c.mu.Unlock()

	if detail, ok := c.cache.Peek(ctx, organizationName); ok {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.generation++
		c.applyReadyLocked(ctx, organizationName, detail)
		return c.snapshotLocked(), nil
	}

	c.mu.Lock()
	if c.state != StateLoading || !domain.SameOrganization(c.selected, organizationName) {
		c.generation++
		c.state = StateLoading
		c.selected = organizationName
		c.detail = nil
		c.chart = nil
		c.recordTransition(ctx, StateLoading)
	}
	generation := c.generation
	c.mu.Unlock()

	detail := c.cache.Get(ctx, organizationName)

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		c.metrics.RecordStaleSelection()
		c.log.Debug("discarding superseded detail",
			zap.Uint64("generation", generation),
			zap.Uint64("current_generation", c.generation),
		)
		return c.snapshotLocked(), nil
	}
	c.applyReadyLocked(ctx, organizationName, detail)
	return c.snapshotLocked(), nil
}

// Invalidate drops the cached detail of organizationName. If it is the
// current selection the coordinator returns to unselected.
func (c *Coordinator) Invalidate(ctx context.Context, organizationName string) Snapshot {
	c.cache.Invalidate(ctx, organizationName)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUnselected && domain.SameOrganization(c.selected, organizationName) {
		c.generation++
		c.state = StateUnselected
		c.selected = ""
		c.detail = nil
		c.chart = nil
		c.recordTransition(ctx, StateUnselected)
	}
	return c.snapshotLocked()
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Notes returns a copy of the loaded note list.
func (c *Coordinator) Notes() []domain.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	notes := make([]domain.Note, len(c.notes))
	copy(notes, c.notes)
	return notes
}

func (c *Coordinator) applyReadyLocked(ctx context.Context, organizationName string, detail domain.OrganizationDetail) {
	chart := c.projector.Project(&detail, c.notes)
	c.state = StateReady
	c.selected = organizationName
	c.detail = &detail
	c.chart = &chart
	c.recordTransition(ctx, StateReady)
}

func (c *Coordinator) recordTransition(ctx context.Context, to State) {
	c.metrics.RecordSelectionTransition(string(to))
	c.otel.RecordSelection(ctx, string(to))
}

func (c *Coordinator) snapshotLocked() Snapshot {
	roster := make([]domain.Organization, len(c.orgs))
	copy(roster, c.orgs)

	snapshot := Snapshot{
		Email:       c.email,
		Roster:      roster,
		State:       c.state,
		Selected:    c.selected,
		Generation:  c.generation,
		Detail:      c.detail,
		Chart:       c.chart,
		LoadedNotes: len(c.notes),
	}
	if c.currentOrg != nil {
		name := *c.currentOrg
		snapshot.CurrentOrganization = &name
	}
	return snapshot
}
