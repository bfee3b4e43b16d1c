package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/model"
)

const (
	// ReleaseNotesMarker identifies generated release notes inside an update body.
	ReleaseNotesMarker = "Sprint release notes"

	// DefaultCompletionWindow is how far back the scheduled re-check looks.
	DefaultCompletionWindow = 7 * 24 * time.Hour

	releaseLockTTL   = time.Minute
	noneCompleted    = "No deliverables were completed in this sprint."
	unassignedLabel  = "Unassigned"
	releaseKeyPrefix = "sprint-release:"
)

// SprintView is a sprint with its derived progress.
type SprintView struct {
	model.Sprint
	Progress     Progress `json:"progress"`
	TimeProgress int      `json:"time_progress"`
	Complete     bool     `json:"complete"`
}

// CreateSprintInput holds the fields for a new sprint. The end date is derived.
type CreateSprintInput struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Goal      string    `json:"goal"`
	StartDate time.Time `json:"start_date"`
}

// SprintCheckResult reports what a completion check did.
type SprintCheckResult struct {
	SprintID  string `json:"sprint_id"`
	Complete  bool   `json:"complete"`
	Generated bool   `json:"generated"`
	Skipped   bool   `json:"skipped"`
	UpdateID  string `json:"update_id,omitempty"`
}

// CreateSprint schedules a 14-day sprint that must not overlap any other
// sprint of the project.
func (e *Engine) CreateSprint(ctx context.Context, in CreateSprintInput, actor model.Actor) (*SprintView, error) {
	if err := requireInternal(actor, "criar sprint"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, model.Invalid("nome é obrigatório")
	}
	if in.StartDate.IsZero() {
		return nil, model.Invalid("data de início é obrigatória")
	}
	if _, err := e.store.GetProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	in.StartDate = in.StartDate.UTC()
	end := model.SprintEnd(in.StartDate)
	if err := e.checkOverlap(ctx, in.ProjectID, "", in.StartDate, end); err != nil {
		return nil, err
	}

	now := e.now()
	s := &model.Sprint{
		ProjectID: in.ProjectID,
		Name:      strings.TrimSpace(in.Name),
		Goal:      in.Goal,
		StartDate: in.StartDate,
		EndDate:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateSprint(ctx, s); err != nil {
		return nil, err
	}

	logger.AuditTransition(ctx, logger.AuditActionSprintCreate, "sprint", s.ID, map[string]interface{}{
		"project_id": s.ProjectID,
		"start_date": s.StartDate.Format(time.RFC3339),
	})
	return e.sprintView(ctx, s), nil
}

// RetimeSprint moves a sprint to a new start date. When the new window has
// already ended, the completion check runs right away.
func (e *Engine) RetimeSprint(ctx context.Context, id string, start time.Time, actor model.Actor) (*SprintView, error) {
	if err := requireInternal(actor, "alterar sprint"); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, model.Invalid("data de início é obrigatória")
	}

	s, err := e.store.GetSprint(ctx, id)
	if err != nil {
		return nil, err
	}

	start = start.UTC()
	end := model.SprintEnd(start)
	if err := e.checkOverlap(ctx, s.ProjectID, s.ID, start, end); err != nil {
		return nil, err
	}

	old := s.StartDate
	s.StartDate = start
	s.EndDate = end
	s.UpdatedAt = e.now()
	if err := e.store.SaveSprint(ctx, s); err != nil {
		return nil, err
	}

	metrics.Get().IncrementTransition(old.Equal(start))
	logger.AuditTransition(ctx, logger.AuditActionSprintRetime, "sprint", s.ID, map[string]interface{}{
		"from": old.Format(time.RFC3339),
		"to":   start.Format(time.RFC3339),
	})

	if !end.After(e.now()) {
		BestEffort(ctx, "sprint-completion", func(ctx context.Context) error {
			_, err := e.CheckSprintCompletion(ctx, s.ID)
			return err
		})
	}

	return e.sprintView(ctx, s), nil
}

// checkOverlap rejects a window that intersects another sprint of the
// project. Windows are half-open, so a sprint may start the day another ends.
func (e *Engine) checkOverlap(ctx context.Context, projectID, excludeID string, start, end time.Time) error {
	sprints, err := e.store.ListSprints(ctx, projectID)
	if err != nil {
		return err
	}
	for _, other := range sprints {
		if other.ID == excludeID {
			continue
		}
		if other.Overlaps(start, end) {
			metrics.Get().IncrementTransitionFailure()
			return model.Invalid("sprint sobrepõe %q (%s a %s)", other.Name,
				other.StartDate.Format("2006-01-02"), other.EndDate.Format("2006-01-02"))
		}
	}
	return nil
}

// CheckSprintCompletion generates release notes for an ended sprint, once.
// Generation is a cascade: its failures are logged and reported through the
// result, not returned.
func (e *Engine) CheckSprintCompletion(ctx context.Context, id string) (*SprintCheckResult, error) {
	s, err := e.store.GetSprint(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &SprintCheckResult{SprintID: s.ID}
	if s.EndDate.After(e.now()) {
		return result, nil
	}
	result.Complete = true

	BestEffort(ctx, "sprint-release-notes", func(ctx context.Context) error {
		acquired, err := e.withLock(ctx, releaseKeyPrefix+s.ID, releaseLockTTL, func() error {
			return e.releaseNotes(ctx, *s, result)
		})
		if !acquired {
			result.Skipped = true
		}
		return err
	})

	if result.Generated {
		BestEffort(ctx, "sprint-phase-milestone", func(ctx context.Context) error {
			project, err := e.store.GetProject(ctx, s.ProjectID)
			if err != nil {
				return err
			}
			_, _, err = e.EnsurePhaseMilestone(ctx, project.ID, project.Phase)
			return err
		})
	}

	return result, nil
}

func (e *Engine) releaseNotes(ctx context.Context, s model.Sprint, result *SprintCheckResult) error {
	existing, err := e.existingReleaseNotes(ctx, s)
	if err != nil {
		return err
	}
	if existing != nil {
		result.Skipped = true
		result.UpdateID = existing.ID
		metrics.Get().IncrementReleaseNotes(true)
		logger.Get(ctx).Debug().Str("sprint_id", s.ID).Str("update_id", existing.ID).Msg("Release notes já existem")
		return nil
	}

	done, err := e.store.ListDeliverables(ctx, model.DeliverableFilter{SprintID: s.ID, Status: model.DeliverableDone})
	if err != nil {
		return err
	}
	var assigneeIDs []string
	for _, d := range done {
		if id := strValue(d.AssigneeID); id != "" {
			assigneeIDs = append(assigneeIDs, id)
		}
	}
	users, err := e.store.GetUsers(ctx, assigneeIDs)
	if err != nil {
		return err
	}

	update, err := e.ledger.Publish(ctx, UpdateInput{
		ProjectID: s.ProjectID,
		Type:      model.UpdateLaunch,
		Title:     "Release notes: " + s.Name,
		Body:      releaseNotesBody(s, done, users),
		SourceKey: releaseKeyPrefix + s.ID,
	}, "")
	if err != nil {
		return err
	}

	result.Generated = true
	result.UpdateID = update.ID
	metrics.Get().IncrementReleaseNotes(false)
	logger.AuditTransition(ctx, logger.AuditActionSprintComplete, "sprint", s.ID, map[string]interface{}{
		"update_id":    update.ID,
		"deliverables": len(done),
	})
	return nil
}

// existingReleaseNotes looks up the idempotency key first, then the legacy
// match on title and marker text.
func (e *Engine) existingReleaseNotes(ctx context.Context, s model.Sprint) (*model.ProjectUpdate, error) {
	byKey, err := e.store.FindUpdate(ctx, model.UpdateQuery{ProjectID: s.ProjectID, SourceKey: releaseKeyPrefix + s.ID})
	if err != nil || byKey != nil {
		return byKey, err
	}
	return e.store.FindUpdate(ctx, model.UpdateQuery{
		ProjectID:     s.ProjectID,
		Type:          model.UpdateLaunch,
		TitleContains: s.Name,
		BodyContains:  ReleaseNotesMarker,
	})
}

func releaseNotesBody(s model.Sprint, done []model.Deliverable, users map[string]model.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s (%s to %s)\n\n", ReleaseNotesMarker, s.Name,
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"))

	if len(done) == 0 {
		b.WriteString(noneCompleted)
		return b.String()
	}
	for _, d := range done {
		assignee := unassignedLabel
		if u, ok := users[strValue(d.AssigneeID)]; ok {
			assignee = u.DisplayName()
		}
		fmt.Fprintf(&b, "- %s (%s)\n", d.Title, assignee)
	}
	return strings.TrimRight(b.String(), "\n")
}

// CheckRecentSprintCompletions checks every sprint that ended within window
// (DefaultCompletionWindow when <= 0). One failing sprint does not stop the others.
func (e *Engine) CheckRecentSprintCompletions(ctx context.Context, window time.Duration) ([]SprintCheckResult, error) {
	if window <= 0 {
		window = DefaultCompletionWindow
	}
	now := e.now()
	sprints, err := e.store.ListSprintsEndedBetween(ctx, now.Add(-window), now)
	if err != nil {
		return nil, err
	}

	log := logger.Get(ctx)
	results := make([]SprintCheckResult, 0, len(sprints))
	for _, s := range sprints {
		res, err := e.CheckSprintCompletion(ctx, s.ID)
		if err != nil {
			log.Warn().Err(err).Str("sprint_id", s.ID).Msg("Erro ao verificar conclusão da sprint")
			continue
		}
		results = append(results, *res)
	}

	log.Info().
		Int("sprints", len(sprints)).
		Dur("window", window).
		Msg("Verificação de sprints concluídas finalizada")
	return results, nil
}

// GetSprint returns a sprint with deliverable and time progress.
func (e *Engine) GetSprint(ctx context.Context, id string, actor model.Actor) (*SprintView, error) {
	s, err := e.store.GetSprint(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.checkMembership(ctx, s.ProjectID, actor); err != nil {
		return nil, hideAs(err, "sprint")
	}
	return e.sprintView(ctx, s), nil
}

// ListSprints returns the project's sprints with progress.
func (e *Engine) ListSprints(ctx context.Context, projectID string, actor model.Actor) ([]SprintView, error) {
	if _, err := e.projectFor(ctx, projectID, actor); err != nil {
		return nil, err
	}
	sprints, err := e.store.ListSprints(ctx, projectID)
	if err != nil {
		return nil, err
	}
	deliverables, err := e.store.ListDeliverables(ctx, model.DeliverableFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	bySprint := make(map[string][]model.Deliverable)
	for _, d := range deliverables {
		if id := strValue(d.SprintID); id != "" {
			bySprint[id] = append(bySprint[id], d)
		}
	}

	now := e.now()
	views := make([]SprintView, 0, len(sprints))
	for _, s := range sprints {
		views = append(views, newSprintView(s, bySprint[s.ID], now))
	}
	return views, nil
}

func (e *Engine) sprintView(ctx context.Context, s *model.Sprint) *SprintView {
	view := newSprintView(*s, nil, e.now())
	view.Progress = e.groupProgress(ctx, model.DeliverableFilter{SprintID: s.ID})
	return &view
}

func newSprintView(s model.Sprint, items []model.Deliverable, now time.Time) SprintView {
	return SprintView{
		Sprint:       s,
		Progress:     DeliverableProgress(items),
		TimeProgress: TimeProgress(s.StartDate, s.EndDate, now),
		Complete:     !s.EndDate.After(now),
	}
}
