package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/model"
)

// CreateDeliverableInput holds the fields for a new deliverable.
type CreateDeliverableInput struct {
	ProjectID   string                  `json:"project_id"`
	SprintID    *string                 `json:"sprint_id"`
	MilestoneID *string                 `json:"milestone_id"`
	AssigneeID  *string                 `json:"assignee_id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Status      model.DeliverableStatus `json:"status"`
	OrderIndex  int                     `json:"order_index"`
}

// DeliverableView is a deliverable with the progress of the groups it belongs to.
type DeliverableView struct {
	model.Deliverable
	MilestoneProgress Progress `json:"milestone_progress"`
	SprintProgress    Progress `json:"sprint_progress"`
}

// CreateDeliverable adds a card to the board. Creation emits no update.
func (e *Engine) CreateDeliverable(ctx context.Context, in CreateDeliverableInput, actor model.Actor) (*DeliverableView, error) {
	if err := requireInternal(actor, "criar deliverable"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, model.Invalid("título é obrigatório")
	}
	if in.Status == "" {
		in.Status = model.DeliverableBacklog
	}
	if !in.Status.Valid() {
		return nil, model.Invalid("status inválido: %s", in.Status)
	}
	if _, err := e.store.GetProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	if err := e.checkParents(ctx, in.ProjectID, in.SprintID, in.MilestoneID); err != nil {
		return nil, err
	}

	now := e.now()
	d := &model.Deliverable{
		ProjectID:   in.ProjectID,
		SprintID:    in.SprintID,
		MilestoneID: in.MilestoneID,
		AssigneeID:  in.AssigneeID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		OrderIndex:  in.OrderIndex,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateDeliverable(ctx, d); err != nil {
		return nil, err
	}

	logger.AuditTransition(ctx, logger.AuditActionDeliverableCreate, "deliverable", d.ID, map[string]interface{}{
		"project_id": d.ProjectID,
		"status":     d.Status,
	})
	return e.deliverableView(ctx, d), nil
}

func (e *Engine) checkParents(ctx context.Context, projectID string, sprintID, milestoneID *string) error {
	if sprintID != nil && *sprintID != "" {
		s, err := e.store.GetSprint(ctx, *sprintID)
		if err != nil {
			return err
		}
		if s.ProjectID != projectID {
			return model.Invalid("sprint pertence a outro projeto")
		}
	}
	if milestoneID != nil && *milestoneID != "" {
		m, err := e.store.GetMilestone(ctx, *milestoneID)
		if err != nil {
			return err
		}
		if m.ProjectID != projectID {
			return model.Invalid("milestone pertence a outro projeto")
		}
	}
	return nil
}

// TransitionDeliverable moves a deliverable to status, optionally repositioning
// it inside the column. Any status may move to any other. A real status change
// publishes LAUNCH when the card reaches DONE and GENERAL otherwise.
func (e *Engine) TransitionDeliverable(ctx context.Context, id string, status model.DeliverableStatus, orderIndex *int, actor model.Actor) (*DeliverableView, error) {
	if err := requireInternal(actor, "mover deliverable"); err != nil {
		return nil, err
	}
	if !status.Valid() {
		metrics.Get().IncrementTransitionFailure()
		return nil, model.Invalid("status inválido: %s", status)
	}

	d, err := e.store.GetDeliverable(ctx, id)
	if err != nil {
		return nil, err
	}

	old := d.Status
	moved := orderIndex != nil && *orderIndex != d.OrderIndex
	if old == status && !moved {
		metrics.Get().IncrementTransition(true)
		return e.deliverableView(ctx, d), nil
	}

	d.Status = status
	if orderIndex != nil {
		d.OrderIndex = *orderIndex
	}
	d.UpdatedAt = e.now()
	if err := e.store.SaveDeliverable(ctx, d); err != nil {
		return nil, err
	}

	if old == status {
		metrics.Get().IncrementTransition(true)
		return e.deliverableView(ctx, d), nil
	}

	metrics.Get().IncrementTransition(false)
	logger.AuditTransition(ctx, logger.AuditActionDeliverableMove, "deliverable", d.ID, map[string]interface{}{
		"from": old,
		"to":   status,
	})

	snapshot := *d
	BestEffort(ctx, "deliverable-update", func(ctx context.Context) error {
		_, err := e.ledger.Publish(ctx, deliverableUpdate(snapshot, old, actor.UserID), strValue(snapshot.AssigneeID))
		return err
	})

	return e.deliverableView(ctx, d), nil
}

func deliverableUpdate(d model.Deliverable, from model.DeliverableStatus, actorID string) UpdateInput {
	if d.Status == model.DeliverableDone {
		return UpdateInput{
			ProjectID: d.ProjectID,
			Type:      model.UpdateLaunch,
			Title:     "Delivered: " + d.Title,
			Body:      fmt.Sprintf("%q is done.", d.Title),
			AuthorID:  actorID,
		}
	}
	return UpdateInput{
		ProjectID: d.ProjectID,
		Type:      model.UpdateGeneral,
		Title:     "Deliverable moved: " + d.Title,
		Body:      fmt.Sprintf("%q moved from %s to %s.", d.Title, statusLabel(string(from)), statusLabel(string(d.Status))),
		AuthorID:  actorID,
	}
}

// statusLabel turns IN_PROGRESS into "In progress".
func statusLabel(s string) string {
	if s == "QA" {
		return s
	}
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// GetDeliverable returns a deliverable with its group progress.
func (e *Engine) GetDeliverable(ctx context.Context, id string, actor model.Actor) (*DeliverableView, error) {
	d, err := e.store.GetDeliverable(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.checkMembership(ctx, d.ProjectID, actor); err != nil {
		return nil, hideAs(err, "deliverable")
	}
	return e.deliverableView(ctx, d), nil
}

// ListDeliverables returns the board of a project.
func (e *Engine) ListDeliverables(ctx context.Context, projectID string, actor model.Actor) ([]model.Deliverable, error) {
	if _, err := e.projectFor(ctx, projectID, actor); err != nil {
		return nil, err
	}
	return e.store.ListDeliverables(ctx, model.DeliverableFilter{ProjectID: projectID})
}

// deliverableView reads sibling progress after the primary write; a read
// failure degrades to NoProgress instead of failing a committed change.
func (e *Engine) deliverableView(ctx context.Context, d *model.Deliverable) *DeliverableView {
	view := &DeliverableView{Deliverable: *d}
	if id := strValue(d.MilestoneID); id != "" {
		view.MilestoneProgress = e.groupProgress(ctx, model.DeliverableFilter{MilestoneID: id})
	}
	if id := strValue(d.SprintID); id != "" {
		view.SprintProgress = e.groupProgress(ctx, model.DeliverableFilter{SprintID: id})
	}
	return view
}

func (e *Engine) groupProgress(ctx context.Context, filter model.DeliverableFilter) Progress {
	items, err := e.store.ListDeliverables(ctx, filter)
	if err != nil {
		logger.Get(ctx).Warn().Err(err).Msg("Erro ao calcular progresso derivado")
		return NoProgress
	}
	return DeliverableProgress(items)
}
