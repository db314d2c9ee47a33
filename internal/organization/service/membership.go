package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/observability/metrics"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type MembershipParams struct {
	fx.In

	Repo    domain.Repository
	Log     *zap.Logger
	Config  *config.AggregationConfigHolder
	Metrics *metrics.AggregationMetrics `optional:"true"`
}

type membershipResolver struct {
	repo    domain.Repository
	log     *zap.Logger
	cfg     *config.AggregationConfigHolder
	metrics *metrics.AggregationMetrics
}

func NewMembershipResolver(p MembershipParams) domain.MembershipResolver {
	return &membershipResolver{
		repo:    p.Repo,
		log:     p.Log.Named("organization.membership"),
		cfg:     p.Config,
		metrics: p.Metrics,
	}
}

// Resolve never fails: a missing user, a user without an organization and a
// lookup error all resolve to no organization.
func (r *membershipResolver) Resolve(ctx context.Context, email string) (string, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Get().FetchTimeout)
	defer cancel()

	user, err := r.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			r.log.Warn("membership lookup failed", zap.Error(err))
			r.metrics.RecordPartialFailure(metrics.StageMembership)
		}
		return "", false
	}
	return domain.OrganizationOf(*user)
}
