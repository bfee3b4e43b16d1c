package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/model"
)

const phaseLockTTL = 30 * time.Second

// ProjectView is a project with its overall deliverable progress.
type ProjectView struct {
	model.Project
	Progress Progress `json:"progress"`
}

// GetProject returns a project the actor may see.
func (e *Engine) GetProject(ctx context.Context, id string, actor model.Actor) (*ProjectView, error) {
	project, err := e.projectFor(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return &ProjectView{
		Project:  *project,
		Progress: e.groupProgress(ctx, model.DeliverableFilter{ProjectID: id}),
	}, nil
}

// ListProjects lists every project for internal users and memberships for clients.
func (e *Engine) ListProjects(ctx context.Context, actor model.Actor) ([]model.Project, error) {
	userID := actor.UserID
	if actor.IsInternal() {
		userID = ""
	}
	return e.store.ListProjects(ctx, userID)
}

// ChangeProjectPhase moves the project to phase. On a real change the phase
// is committed first; the phase milestone and the feed entry then follow
// independently of each other.
func (e *Engine) ChangeProjectPhase(ctx context.Context, projectID string, phase model.Phase, actor model.Actor) (*model.Project, error) {
	if err := requireInternal(actor, "alterar fase"); err != nil {
		return nil, err
	}
	if !phase.Valid() {
		metrics.Get().IncrementTransitionFailure()
		return nil, model.Invalid("fase inválida: %s", phase)
	}

	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	old := project.Phase
	if old == phase {
		metrics.Get().IncrementTransition(true)
		return project, nil
	}

	if err := e.store.UpdateProjectPhase(ctx, projectID, phase); err != nil {
		return nil, err
	}
	project.Phase = phase
	project.UpdatedAt = e.now()

	metrics.Get().IncrementTransition(false)
	logger.AuditTransition(ctx, logger.AuditActionPhaseChange, "project", projectID, map[string]interface{}{
		"from": old,
		"to":   phase,
	})

	BestEffort(ctx, "phase-milestone", func(ctx context.Context) error {
		_, _, err := e.EnsurePhaseMilestone(ctx, projectID, phase)
		return err
	})
	BestEffort(ctx, "phase-update", func(ctx context.Context) error {
		_, err := e.ledger.Publish(ctx, UpdateInput{
			ProjectID: projectID,
			Type:      model.UpdateGeneral,
			Title:     "Phase changed: " + phase.Title(),
			Body:      fmt.Sprintf("The project moved from the %s phase to the %s phase.", old.Title(), phase.Title()),
			AuthorID:  actor.UserID,
		}, "")
		return err
	})

	return project, nil
}

// EnsurePhaseMilestone creates the "<Phase> Phase" milestone unless a
// milestone whose title contains that text already exists. It returns the
// milestone and whether it was created.
func (e *Engine) EnsurePhaseMilestone(ctx context.Context, projectID string, phase model.Phase) (*model.Milestone, bool, error) {
	title := phase.MilestoneTitle()

	var (
		milestone *model.Milestone
		created   bool
	)
	key := fmt.Sprintf("phase-milestone:%s:%s", projectID, phase)
	acquired, err := e.withLock(ctx, key, phaseLockTTL, func() error {
		existing, err := e.store.FindMilestoneByTitle(ctx, projectID, title)
		if err != nil {
			return err
		}
		if existing != nil {
			milestone = existing
			return nil
		}

		order, err := e.store.NextMilestoneOrder(ctx, projectID)
		if err != nil {
			return err
		}
		now := e.now()
		m := &model.Milestone{
			ProjectID:     projectID,
			Title:         title,
			Description:   fmt.Sprintf("Work for the %s phase.", phase.Title()),
			Status:        model.MilestoneInProgress,
			OrderIndex:    order,
			ClientVisible: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := e.store.CreateMilestone(ctx, m); err != nil {
			return err
		}
		milestone, created = m, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}

	if created {
		metrics.Get().IncrementPhaseMilestone()
		logger.Get(ctx).Info().
			Str("project_id", projectID).
			Str("milestone_id", milestone.ID).
			Str("title", title).
			Msg("Milestone da fase criado")
	}
	return milestone, created, nil
}

// ListUpdates returns the project feed. Clients only see client-visible entries.
func (e *Engine) ListUpdates(ctx context.Context, projectID string, actor model.Actor) ([]model.ProjectUpdate, error) {
	if _, err := e.projectFor(ctx, projectID, actor); err != nil {
		return nil, err
	}
	return e.store.ListUpdates(ctx, projectID, !actor.IsInternal())
}

// PostUpdateInput is a manual feed entry written by the delivery team.
type PostUpdateInput struct {
	Type          model.UpdateType `json:"type"`
	Title         string           `json:"title"`
	Body          string           `json:"body"`
	ClientVisible *bool            `json:"client_visible"`
}

// PostUpdate publishes a manual update (weekly summaries, risks) to the feed.
func (e *Engine) PostUpdate(ctx context.Context, projectID string, in PostUpdateInput, actor model.Actor) (*model.ProjectUpdate, error) {
	if err := requireInternal(actor, "publicar update"); err != nil {
		return nil, err
	}
	if _, err := e.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.ledger.Publish(ctx, UpdateInput{
		ProjectID:     projectID,
		Type:          in.Type,
		Title:         in.Title,
		Body:          in.Body,
		AuthorID:      actor.UserID,
		ClientVisible: in.ClientVisible,
	}, "")
}

// ListNotifications returns the actor's notifications.
func (e *Engine) ListNotifications(ctx context.Context, actor model.Actor, unreadOnly bool) ([]model.Notification, error) {
	return e.store.ListNotifications(ctx, actor.UserID, unreadOnly)
}

// MarkNotificationRead marks one of the actor's notifications as read.
func (e *Engine) MarkNotificationRead(ctx context.Context, id string, actor model.Actor) error {
	return e.store.MarkNotificationRead(ctx, id, actor.UserID, e.now())
}
