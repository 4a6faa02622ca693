package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) CheckView(ctx context.Context, monitorID uuid.UUID) (CheckView, error) {
	return s.repo.GetCheckView(ctx, monitorID)
}

func (s *Service) StatusView(ctx context.Context, monitorID uuid.UUID) (StatusView, error) {
	return s.repo.GetStatusView(ctx, monitorID)
}

func (s *Service) SetStatus(ctx context.Context, monitorID uuid.UUID, status Status, checkedAt time.Time) error {
	return s.repo.UpdateStatus(ctx, monitorID, status, checkedAt)
}

func (s *Service) AppendResult(ctx context.Context, monitorID uuid.UUID, statusCode *int32, responseTimeMs *int64, isUp bool, checkedAt time.Time) error {
	return s.repo.AppendResult(ctx, monitorID, statusCode, responseTimeMs, isUp, checkedAt)
}

func (s *Service) RecentLatencies(ctx context.Context, monitorID uuid.UUID, limit int) ([]*int64, error) {
	return s.repo.RecentLatencies(ctx, monitorID, limit)
}

func (s *Service) ActiveMonitors(ctx context.Context) ([]ScheduleView, error) {
	return s.repo.ListActive(ctx)
}

// RecentFailures lists a monitor's latest failed checks with a
// human-readable reason: "Timeout" when no status code was observed,
// otherwise the code itself.
func (s *Service) RecentFailures(ctx context.Context, monitorID uuid.UUID, limit int) ([]FailureView, error) {
	results, err := s.repo.RecentFailures(ctx, monitorID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]FailureView, 0, len(results))
	for _, res := range results {
		view := FailureView{
			CheckedAt:  res.CheckedAt,
			StatusCode: res.StatusCode,
			Reason:     "Timeout",
		}
		if res.StatusCode != nil && *res.StatusCode != 0 {
			view.Reason = fmt.Sprintf("%d Error", *res.StatusCode)
		}
		views = append(views, view)
	}
	return views, nil
}

// Stats aggregates a monitor's history over a named period. Unknown
// periods fall back to 24h, matching the dashboard's default window.
func (s *Service) Stats(ctx context.Context, monitorID uuid.UUID, period string) (Stats, error) {
	now := time.Now()

	var since time.Time
	switch period {
	case "7d":
		since = now.Add(-7 * 24 * time.Hour)
	case "30d":
		since = now.Add(-30 * 24 * time.Hour)
	default:
		period = "24h"
		since = now.Add(-24 * time.Hour)
	}

	stats, err := s.repo.GetStats(ctx, monitorID, since)
	if err != nil {
		return Stats{}, err
	}

	stats.Period = period
	if stats.TotalChecks > 0 {
		stats.UptimePercentage = float64(stats.UpCount) / float64(stats.TotalChecks) * 100
	}
	return stats, nil
}
