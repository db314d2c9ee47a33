package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/observability/metrics"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type FeedParams struct {
	fx.In

	Repo    domain.Repository
	Log     *zap.Logger
	Config  *config.AggregationConfigHolder
	Metrics *metrics.AggregationMetrics `optional:"true"`
}

type noteFeed struct {
	repo    domain.Repository
	log     *zap.Logger
	cfg     *config.AggregationConfigHolder
	metrics *metrics.AggregationMetrics
}

func NewNoteFeed(p FeedParams) domain.NoteFeed {
	return &noteFeed{
		repo:    p.Repo,
		log:     p.Log.Named("organization.feed"),
		cfg:     p.Config,
		metrics: p.Metrics,
	}
}

// VisibleNotes returns the notes of every member of the caller's organization,
// oldest first. A caller without an organization only sees their own notes.
func (f *noteFeed) VisibleNotes(ctx context.Context, email string, organizationName *string) []domain.Note {
	email = strings.TrimSpace(email)
	if email == "" {
		return []domain.Note{}
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Get().FetchTimeout)
	defer cancel()

	authors := []string{email}
	if organizationName != nil {
		members, err := f.repo.ListMembers(ctx, *organizationName)
		if err != nil {
			return f.degrade(err)
		}
		authors = make([]string, 0, len(members))
		for _, member := range members {
			authors = append(authors, member.Email)
		}
	}

	notes, err := f.repo.ListNotesByAuthors(ctx, authors)
	if err != nil {
		return f.degrade(err)
	}
	if notes == nil {
		return []domain.Note{}
	}
	return notes
}

func (f *noteFeed) degrade(err error) []domain.Note {
	f.log.Warn("failed to load visible notes", zap.Error(err))
	f.metrics.RecordPartialFailure(metrics.StageFeed)
	return []domain.Note{}
}
