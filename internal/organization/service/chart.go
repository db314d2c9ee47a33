package service

import (
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/notewall/internal/organization/domain"
)

type chartProjector struct{}

func NewChartProjector() domain.ChartProjector {
	return chartProjector{}
}

// Project derives the categorical series from detail and the time series from
// the loaded note list. A nil detail yields an empty categorical series.
func (chartProjector) Project(detail *domain.OrganizationDetail, notes []domain.Note) domain.ChartSeries {
	return domain.ChartSeries{
		Categorical: Categorical(detail),
		TimeSeries:  TimeSeries(notes),
	}
}

// Categorical emits one point per member in detail order.
func Categorical(detail *domain.OrganizationDetail) []domain.CategoryPoint {
	points := make([]domain.CategoryPoint, 0)
	if detail == nil {
		return points
	}
	for _, member := range detail.Members {
		points = append(points, domain.CategoryPoint{
			Label: emailLocalPart(member.Email),
			Value: len(member.Notes),
		})
	}
	return points
}

// TimeSeries counts notes per UTC calendar day, ascending, skipping empty days.
func TimeSeries(notes []domain.Note) []domain.TimePoint {
	points := make([]domain.TimePoint, 0)
	if len(notes) == 0 {
		return points
	}

	ordered := make([]domain.Note, len(notes))
	copy(ordered, notes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	for _, note := range ordered {
		day := dayKey(note.CreatedAt)
		if n := len(points); n > 0 && points[n-1].Date == day {
			points[n-1].Count++
			continue
		}
		points = append(points, domain.TimePoint{Date: day, Count: 1})
	}
	return points
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)[:10]
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
