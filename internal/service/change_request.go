package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/model"
)

const quotaLockTTL = 15 * time.Second

// CreateChangeRequestInput holds the fields a client submits.
type CreateChangeRequestInput struct {
	ProjectID   string                  `json:"project_id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Type        model.ChangeRequestType `json:"type"`
}

// ChangeRequestPatch lists editable fields. Nil means unchanged.
type ChangeRequestPatch struct {
	Title         *string                    `json:"title"`
	Description   *string                    `json:"description"`
	Type          *model.ChangeRequestType   `json:"type"`
	Status        *model.ChangeRequestStatus `json:"status"`
	EstimateHours *float64                   `json:"estimate_hours"`
	ClearEstimate bool                       `json:"clear_estimate"`
}

// CreateChangeRequest files a scope change. Clients are limited to one per
// project per week. The AI estimate is best effort: when it fails the request
// is stored without estimates.
func (e *Engine) CreateChangeRequest(ctx context.Context, in CreateChangeRequestInput, author model.Actor) (*model.ChangeRequest, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, model.Invalid("título é obrigatório")
	}
	if in.Type == "" {
		in.Type = model.ChangeRequestChange
	}
	if !in.Type.Valid() {
		return nil, model.Invalid("tipo inválido: %s", in.Type)
	}

	project, err := e.projectFor(ctx, in.ProjectID, author)
	if err != nil {
		return nil, err
	}

	// Checked before the estimator runs so a rejected request costs nothing.
	if err := e.limiter.Check(ctx, in.ProjectID, author); err != nil {
		return nil, err
	}
	aiHours := e.estimate(ctx, in)

	var cr *model.ChangeRequest
	key := fmt.Sprintf("change-request-quota:%s:%s", in.ProjectID, author.UserID)
	acquired, err := e.withLock(ctx, key, quotaLockTTL, func() error {
		if err := e.limiter.Check(ctx, in.ProjectID, author); err != nil {
			return err
		}

		now := e.now()
		cr = &model.ChangeRequest{
			ProjectID:        in.ProjectID,
			AuthorID:         author.UserID,
			Title:            strings.TrimSpace(in.Title),
			Description:      in.Description,
			Type:             in.Type,
			Status:           model.ChangeRequestNew,
			AIEstimatedHours: aiHours,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		applyImpact(cr, *project)

		return e.store.CreateChangeRequest(ctx, cr)
	})
	if err != nil {
		return nil, err
	}
	if !acquired {
		// Another submission by the same author is in flight; it consumes the quota.
		return nil, &model.RateLimitError{RetryAt: NextWeekStart(e.now(), e.limiter.loc)}
	}

	metrics.Get().IncrementChangeRequest(false)
	logger.AuditTransition(ctx, logger.AuditActionChangeRequestCreate, "change_request", cr.ID, map[string]interface{}{
		"project_id":  cr.ProjectID,
		"ai_estimate": cr.AIEstimatedHours != nil,
	})

	snapshot := *cr
	BestEffort(ctx, "change-request-update", func(ctx context.Context) error {
		_, err := e.ledger.Publish(ctx, UpdateInput{
			ProjectID: snapshot.ProjectID,
			Type:      model.UpdateGeneral,
			Title:     "New change request: " + snapshot.Title,
			Body:      changeRequestSummary(snapshot),
			AuthorID:  snapshot.AuthorID,
		}, "")
		return err
	})

	return cr, nil
}

// estimate asks the estimator for hours; any failure yields nil.
func (e *Engine) estimate(ctx context.Context, in CreateChangeRequestInput) *float64 {
	if e.estimator == nil {
		return nil
	}
	m := metrics.Get()

	hours, err := e.estimator.Estimate(ctx, model.EstimateRequest{
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
	})
	if err == nil && (hours < model.MinEstimateHours || hours > model.MaxEstimateHours) {
		err = fmt.Errorf("estimativa fora do intervalo: %d", hours)
	}
	if err != nil {
		m.IncrementEstimate(false)
		logger.Get(ctx).Warn().
			Err(&model.DependencyError{Dependency: "estimator", Err: err}).
			Str("project_id", in.ProjectID).
			Msg("Estimativa automática indisponível, change request segue sem horas")
		return nil
	}

	m.IncrementEstimate(true)
	h := float64(hours)
	return &h
}

// UpdateChangeRequest edits a change request. Status and estimate changes
// are internal only. Approval with a new due date moves the project's due
// date and publishes one DECISION entry; other status changes publish GENERAL.
func (e *Engine) UpdateChangeRequest(ctx context.Context, id string, patch ChangeRequestPatch, actor model.Actor) (*model.ChangeRequest, error) {
	cr, err := e.store.GetChangeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.checkMembership(ctx, cr.ProjectID, actor); err != nil {
		return nil, hideAs(err, "change request")
	}
	if err := authorizePatch(*cr, patch, actor); err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	project, err := e.store.GetProject(ctx, cr.ProjectID)
	if err != nil {
		return nil, err
	}

	oldStatus := cr.Status
	if patch.Title != nil {
		cr.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		cr.Description = *patch.Description
	}
	if patch.Type != nil {
		cr.Type = *patch.Type
	}
	if patch.ClearEstimate {
		cr.EstimateHours = nil
		applyImpact(cr, *project)
	} else if patch.EstimateHours != nil {
		hours := *patch.EstimateHours
		cr.EstimateHours = &hours
		applyImpact(cr, *project)
	}
	if patch.Status != nil {
		cr.Status = *patch.Status
	}
	cr.UpdatedAt = e.now()

	approved := cr.Status == model.ChangeRequestApproved && oldStatus != model.ChangeRequestApproved
	if approved && cr.NewProjectDueDate != nil {
		// The project moves first so a failed save can be retried as the same approval.
		if err := e.store.UpdateProjectDueDate(ctx, project.ID, *cr.NewProjectDueDate); err != nil {
			return nil, err
		}
	}
	if err := e.store.SaveChangeRequest(ctx, cr); err != nil {
		return nil, err
	}

	metrics.Get().IncrementTransition(oldStatus == cr.Status)
	logger.AuditTransition(ctx, logger.AuditActionChangeRequestUpdate, "change_request", cr.ID, map[string]interface{}{
		"from": oldStatus,
		"to":   cr.Status,
	})

	snapshot := *cr
	switch {
	case approved && cr.NewProjectDueDate != nil:
		BestEffort(ctx, "change-request-approval-update", func(ctx context.Context) error {
			_, err := e.ledger.Publish(ctx, approvalUpdate(snapshot, actor.UserID), "")
			return err
		})
	case oldStatus != cr.Status && !approved:
		BestEffort(ctx, "change-request-status-update", func(ctx context.Context) error {
			_, err := e.ledger.Publish(ctx, UpdateInput{
				ProjectID: snapshot.ProjectID,
				Type:      model.UpdateGeneral,
				Title:     fmt.Sprintf("Change request %s: %s", statusLabel(string(snapshot.Status)), snapshot.Title),
				Body:      fmt.Sprintf("%q moved from %s to %s.", snapshot.Title, statusLabel(string(oldStatus)), statusLabel(string(snapshot.Status))),
				AuthorID:  actor.UserID,
			}, "")
			return err
		})
	}

	return cr, nil
}

// authorizePatch lets clients edit the wording of their own NEW requests only.
func authorizePatch(cr model.ChangeRequest, patch ChangeRequestPatch, actor model.Actor) error {
	if actor.IsInternal() {
		return nil
	}
	if patch.Status != nil || patch.EstimateHours != nil || patch.ClearEstimate {
		metrics.Get().IncrementTransitionFailure()
		return model.Forbidden("status e estimativa são definidos pela equipe interna")
	}
	if cr.AuthorID != actor.UserID || cr.Status != model.ChangeRequestNew {
		return model.Forbidden("apenas o autor edita um change request novo")
	}
	return nil
}

func validatePatch(patch ChangeRequestPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Invalid("título não pode ser vazio")
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return model.Invalid("tipo inválido: %s", *patch.Type)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		metrics.Get().IncrementTransitionFailure()
		return model.Invalid("status inválido: %s", *patch.Status)
	}
	if patch.EstimateHours != nil {
		h := *patch.EstimateHours
		if !(h > 0) {
			return model.Invalid("estimativa deve ser positiva")
		}
		if h > model.MaxHumanEstimateHours {
			return model.Invalid("estimativa acima do limite de %d horas", model.MaxHumanEstimateHours)
		}
	}
	return nil
}

func approvalUpdate(cr model.ChangeRequest, actorID string) UpdateInput {
	hours := "unknown"
	if h := AuthoritativeHours(cr); h != nil {
		hours = formatHours(*h)
	}
	delay := 0
	if cr.EstimatedTimelineDelayDays != nil {
		delay = *cr.EstimatedTimelineDelayDays
	}
	return UpdateInput{
		ProjectID: cr.ProjectID,
		Type:      model.UpdateDecision,
		Title:     "Change request approved: " + cr.Title,
		Body: fmt.Sprintf("Approved %q: %s hours, %d day(s) of timeline impact. New project due date: %s.",
			cr.Title, hours, delay, cr.NewProjectDueDate.Format("2006-01-02")),
		AuthorID: actorID,
	}
}

func changeRequestSummary(cr model.ChangeRequest) string {
	body := fmt.Sprintf("%s (%s)", cr.Title, statusLabel(string(cr.Type)))
	if cr.AIEstimatedHours != nil && cr.EstimatedTimelineDelayDays != nil {
		body += fmt.Sprintf("\n\nInitial estimate: %s hours, about %d day(s) of timeline impact.",
			formatHours(*cr.AIEstimatedHours), *cr.EstimatedTimelineDelayDays)
	}
	return body
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// ListChangeRequests returns the project's change requests.
func (e *Engine) ListChangeRequests(ctx context.Context, projectID string, actor model.Actor) ([]model.ChangeRequest, error) {
	if _, err := e.projectFor(ctx, projectID, actor); err != nil {
		return nil, err
	}
	return e.store.ListChangeRequests(ctx, projectID)
}

// GetChangeRequest returns one change request.
func (e *Engine) GetChangeRequest(ctx context.Context, id string, actor model.Actor) (*model.ChangeRequest, error) {
	cr, err := e.store.GetChangeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.checkMembership(ctx, cr.ProjectID, actor); err != nil {
		return nil, hideAs(err, "change request")
	}
	return cr, nil
}
