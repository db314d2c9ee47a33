package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/observability/metrics"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "notewall/organization"

type RosterParams struct {
	fx.In

	Repo        domain.Repository
	Log         *zap.Logger
	Config      *config.AggregationConfigHolder
	Metrics     *metrics.AggregationMetrics `optional:"true"`
	OTelMetrics *metrics.Metrics            `optional:"true"`
}

type rosterBuilder struct {
	repo        domain.Repository
	log         *zap.Logger
	cfg         *config.AggregationConfigHolder
	metrics     *metrics.AggregationMetrics
	otelMetrics *metrics.Metrics
}

func NewRosterBuilder(p RosterParams) domain.RosterBuilder {
	return &rosterBuilder{
		repo:        p.Repo,
		log:         p.Log.Named("organization.roster"),
		cfg:         p.Config,
		metrics:     p.Metrics,
		otelMetrics: p.OTelMetrics,
	}
}

// BuildRoster fans out one member and note fetch per organization and returns
// only after every fetch has finished. Failed organizations report zero counts.
func (b *rosterBuilder) BuildRoster(ctx context.Context, currentUserOrg *string) []domain.Organization {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "organization.build_roster")
	defer span.End()

	cfg := b.cfg.Get()
	roster := make([]domain.Organization, 0)

	usersCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	users, err := b.repo.ListUsersWithOrganization(usersCtx)
	cancel()
	if err != nil {
		b.log.Warn("failed to list users with organization", zap.Error(err))
		b.metrics.RecordPartialFailure(metrics.StageRosterUsers)
		span.RecordError(err)
		return roster
	}

	names, _ := domain.GroupByOrganization(users)
	roster = make([]domain.Organization, len(names))

	var (
		mu       sync.Mutex
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)
	for i, name := range names {
		g.Go(func() error {
			entry := domain.Organization{
				Name:             name,
				Slug:             slug.Make(name),
				IsCurrentUserOrg: currentUserOrg != nil && domain.SameOrganization(name, *currentUserOrg),
			}
			members, notes, err := b.countOrganization(gctx, name, cfg.FetchTimeout)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("organization %q: %w", name, err))
				mu.Unlock()
			} else {
				entry.MemberCount = members
				entry.NoteCount = notes
			}
			roster[i] = entry
			// A failed organization must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		b.log.Warn("roster built with partial failures",
			zap.Int("failed_organizations", len(failures)),
			zap.Error(errors.Join(failures...)),
		)
	}

	sort.SliceStable(roster, func(i, j int) bool {
		return roster[i].Name < roster[j].Name
	})

	span.SetAttributes(
		attribute.Int("organization.count", len(roster)),
		attribute.Int("organization.failed", len(failures)),
	)
	b.metrics.ObserveRosterBuild(time.Since(start))
	b.otelMetrics.RecordRosterBuild(ctx, len(roster))
	return roster
}

func (b *rosterBuilder) countOrganization(ctx context.Context, name string, timeout time.Duration) (int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	members, err := b.repo.ListMembers(ctx, name)
	if err != nil {
		b.metrics.RecordPartialFailure(metrics.StageRosterMembers)
		return 0, 0, fmt.Errorf("list members: %w", err)
	}

	emails := make([]string, 0, len(members))
	for _, member := range members {
		emails = append(emails, member.Email)
	}

	notes, err := b.repo.ListNotesByAuthors(ctx, emails)
	if err != nil {
		b.metrics.RecordPartialFailure(metrics.StageRosterNotes)
		return 0, 0, fmt.Errorf("list notes: %w", err)
	}

	return len(members), len(notes), nil
}
