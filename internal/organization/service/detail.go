package service

import (
	"context"
	"time"

	"github.com/smallbiznis/notewall/internal/clock"
	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/observability/metrics"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type DetailParams struct {
	fx.In

	Repo    domain.Repository
	Log     *zap.Logger
	Clock   clock.Clock
	Config  *config.AggregationConfigHolder
	Metrics *metrics.AggregationMetrics `optional:"true"`
}

type detailLoader struct {
	repo    domain.Repository
	log     *zap.Logger
	clock   clock.Clock
	cfg     *config.AggregationConfigHolder
	metrics *metrics.AggregationMetrics
}

func NewDetailLoader(p DetailParams) domain.DetailLoader {
	return &detailLoader{
		repo:    p.Repo,
		log:     p.Log.Named("organization.detail"),
		clock:   p.Clock,
		cfg:     p.Config,
		metrics: p.Metrics,
	}
}

// LoadDetail fetches the members of an organization, then each member's notes
// in parallel, newest first. Failures degrade to empty lists.
func (l *detailLoader) LoadDetail(ctx context.Context, organizationName string) domain.OrganizationDetail {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "organization.load_detail")
	defer span.End()

	cfg := l.cfg.Get()
	detail := domain.OrganizationDetail{
		OrganizationName: organizationName,
		Members:          []domain.Member{},
	}

	membersCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	users, err := l.repo.ListMembers(membersCtx, organizationName)
	cancel()
	if err != nil {
		l.log.Warn("failed to list organization members", zap.Error(err))
		l.metrics.RecordPartialFailure(metrics.StageDetailMembers)
		span.RecordError(err)
		detail.LoadedAt = l.clock.Now()
		return detail
	}

	members := make([]domain.Member, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)
	for i, user := range users {
		g.Go(func() error {
			members[i] = domain.Member{
				Email: user.Email,
				Notes: l.memberNotes(gctx, user.Email, cfg.FetchTimeout),
			}
			return nil
		})
	}
	_ = g.Wait()

	detail.Members = members
	detail.LoadedAt = l.clock.Now()

	span.SetAttributes(attribute.Int("organization.members", len(members)))
	l.metrics.ObserveDetailPopulation(time.Since(start))
	return detail
}

func (l *detailLoader) memberNotes(ctx context.Context, email string, timeout time.Duration) []domain.NoteSummary {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	notes, err := l.repo.ListNotesByAuthor(ctx, email)
	if err != nil {
		l.log.Warn("failed to list member notes", zap.Error(err))
		l.metrics.RecordPartialFailure(metrics.StageDetailNotes)
		return []domain.NoteSummary{}
	}

	summaries := make([]domain.NoteSummary, 0, len(notes))
	for _, note := range notes {
		summaries = append(summaries, domain.SummarizeNote(note))
	}
	return summaries
}
