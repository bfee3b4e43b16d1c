package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/model"
)

// ChangeRequestQuota is how many change requests a client may submit per project per week.
const ChangeRequestQuota = 1

// WeekStart returns the most recent Monday 00:00:00 in loc at or before t.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	sinceMonday := (int(local.Weekday()) + 6) % 7
	y, m, d := local.Date()
	return time.Date(y, m, d-sinceMonday, 0, 0, 0, 0, loc)
}

// NextWeekStart returns the Monday 00:00:00 after WeekStart(t, loc).
func NextWeekStart(t time.Time, loc *time.Location) time.Time {
	return WeekStart(t, loc).AddDate(0, 0, 7)
}

type changeRequestCounter interface {
	CountChangeRequestsSince(ctx context.Context, projectID, authorID string, since time.Time) (int, error)
}

// ChangeRequestLimiter enforces the weekly client quota.
type ChangeRequestLimiter struct {
	counter changeRequestCounter
	loc     *time.Location
	quota   int
	now     func() time.Time
}

// NewChangeRequestLimiter builds a limiter whose week boundary is Monday 00:00 in loc.
func NewChangeRequestLimiter(counter changeRequestCounter, loc *time.Location, now func() time.Time) *ChangeRequestLimiter {
	if now == nil {
		now = time.Now
	}
	return &ChangeRequestLimiter{counter: counter, loc: loc, quota: ChangeRequestQuota, now: now}
}

// Check returns a *model.RateLimitError when author already used this week's quota.
// Internal users are never limited.
func (l *ChangeRequestLimiter) Check(ctx context.Context, projectID string, author model.Actor) error {
	if !author.IsClient() {
		return nil
	}

	now := l.now()
	since := WeekStart(now, l.loc)
	count, err := l.counter.CountChangeRequestsSince(ctx, projectID, author.UserID, since)
	if err != nil {
		return fmt.Errorf("erro ao verificar cota semanal: %w", err)
	}
	if count < l.quota {
		return nil
	}

	retryAt := NextWeekStart(now, l.loc)
	metrics.Get().IncrementChangeRequest(true)
	logger.Get(ctx).Info().
		Str("project_id", projectID).
		Str("user_id", author.UserID).
		Int("count", count).
		Time("retry_at", retryAt).
		Msg("Cota semanal de change requests atingida")
	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionChangeRequestLimited,
		UserID:     author.UserID,
		Resource:   "project",
		ResourceID: projectID,
		Success:    false,
		Details:    map[string]interface{}{"retry_at": retryAt.Format(time.RFC3339)},
	})

	return &model.RateLimitError{RetryAt: retryAt}
}
