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

// MilestoneView is a milestone with its progress derived from linked deliverables.
type MilestoneView struct {
	model.Milestone
	Progress Progress `json:"progress"`
}

// CreateMilestoneInput holds the fields for a new milestone.
type CreateMilestoneInput struct {
	ProjectID              string     `json:"project_id"`
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	DueDate                *time.Time `json:"due_date"`
	ClientVisible          *bool      `json:"client_visible"`
	RequiresClientApproval bool       `json:"requires_client_approval"`
	OrderIndex             *int       `json:"order_index"`
}

// MilestonePatch lists the fields an internal user may change. Nil means unchanged.
type MilestonePatch struct {
	Title                  *string                `json:"title"`
	Description            *string                `json:"description"`
	Status                 *model.MilestoneStatus `json:"status"`
	OrderIndex             *int                   `json:"order_index"`
	DueDate                *time.Time             `json:"due_date"`
	ClearDueDate           bool                   `json:"clear_due_date"`
	ClientVisible          *bool                  `json:"client_visible"`
	RequiresClientApproval *bool                  `json:"requires_client_approval"`
}

// CreateMilestone appends a milestone to the project.
func (e *Engine) CreateMilestone(ctx context.Context, in CreateMilestoneInput, actor model.Actor) (*MilestoneView, error) {
	if err := requireInternal(actor, "criar milestone"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, model.Invalid("título é obrigatório")
	}
	if _, err := e.store.GetProject(ctx, in.ProjectID); err != nil {
		return nil, err
	}

	order := 0
	if in.OrderIndex != nil {
		order = *in.OrderIndex
	} else {
		next, err := e.store.NextMilestoneOrder(ctx, in.ProjectID)
		if err != nil {
			return nil, err
		}
		order = next
	}

	now := e.now()
	m := &model.Milestone{
		ProjectID:     in.ProjectID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Status:        model.MilestoneNotStarted,
		OrderIndex:    order,
		DueDate:       in.DueDate,
		ClientVisible: in.ClientVisible == nil || *in.ClientVisible,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	setRequiresApproval(m, in.RequiresClientApproval)

	if err := e.store.CreateMilestone(ctx, m); err != nil {
		return nil, err
	}

	logger.AuditTransition(ctx, logger.AuditActionMilestoneCreate, "milestone", m.ID, map[string]interface{}{
		"project_id": m.ProjectID,
	})
	return &MilestoneView{Milestone: *m, Progress: NoProgress}, nil
}

// setRequiresApproval keeps ApprovalStatus non-nil exactly when approval is required.
func setRequiresApproval(m *model.Milestone, requires bool) {
	switch {
	case requires && !m.RequiresClientApproval, requires && m.ApprovalStatus == nil:
		pending := model.ApprovalPending
		m.ApprovalStatus = &pending
	case !requires:
		m.ApprovalStatus = nil
	}
	m.RequiresClientApproval = requires
}

// setStatus stamps CompletedAt on entering DONE and clears it on leaving.
func setStatus(m *model.Milestone, status model.MilestoneStatus, now time.Time) {
	switch {
	case status == model.MilestoneDone && m.Status != model.MilestoneDone:
		m.CompletedAt = &now
	case status != model.MilestoneDone:
		m.CompletedAt = nil
	}
	m.Status = status
}

// UpdateMilestone applies an internal edit.
func (e *Engine) UpdateMilestone(ctx context.Context, id string, patch MilestonePatch, actor model.Actor) (*MilestoneView, error) {
	if err := requireInternal(actor, "alterar milestone"); err != nil {
		return nil, err
	}
	if patch.Status != nil && !patch.Status.Valid() {
		metrics.Get().IncrementTransitionFailure()
		return nil, model.Invalid("status inválido: %s", *patch.Status)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, model.Invalid("título não pode ser vazio")
	}

	m, err := e.store.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.now()
	old := m.Status
	if patch.Title != nil {
		m.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.OrderIndex != nil {
		m.OrderIndex = *patch.OrderIndex
	}
	if patch.ClearDueDate {
		m.DueDate = nil
	} else if patch.DueDate != nil {
		m.DueDate = patch.DueDate
	}
	if patch.ClientVisible != nil {
		m.ClientVisible = *patch.ClientVisible
	}
	if patch.RequiresClientApproval != nil {
		setRequiresApproval(m, *patch.RequiresClientApproval)
	}
	if patch.Status != nil {
		setStatus(m, *patch.Status, now)
	}
	m.UpdatedAt = now

	if err := e.store.SaveMilestone(ctx, m); err != nil {
		return nil, err
	}

	metrics.Get().IncrementTransition(old == m.Status)
	logger.AuditTransition(ctx, logger.AuditActionMilestoneUpdate, "milestone", m.ID, map[string]interface{}{
		"from": old,
		"to":   m.Status,
	})
	return e.milestoneView(ctx, m), nil
}

// ApproveMilestone records a client's approval. Notes are optional.
func (e *Engine) ApproveMilestone(ctx context.Context, id string, actor model.Actor, notes string) (*MilestoneView, error) {
	return e.decideMilestone(ctx, id, actor, model.ApprovalApproved, notes)
}

// RequestMilestoneChanges records a client's rejection. Notes are required
// and stored exactly as given.
func (e *Engine) RequestMilestoneChanges(ctx context.Context, id string, actor model.Actor, notes string) (*MilestoneView, error) {
	return e.decideMilestone(ctx, id, actor, model.ApprovalChangesRequested, notes)
}

func (e *Engine) decideMilestone(ctx context.Context, id string, actor model.Actor, decision model.ApprovalStatus, notes string) (*MilestoneView, error) {
	m, err := e.store.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}
	// Non-approvable milestones read as missing so their existence does not leak.
	if !m.Approvable() {
		return nil, model.NotFound("milestone")
	}
	if !actor.IsClient() {
		metrics.Get().IncrementTransitionFailure()
		return nil, model.Forbidden("apenas o cliente decide a aprovação")
	}
	if err := e.checkMembership(ctx, m.ProjectID, actor); err != nil {
		return nil, hideAs(err, "milestone")
	}
	if decision == model.ApprovalChangesRequested && strings.TrimSpace(notes) == "" {
		metrics.Get().IncrementTransitionFailure()
		return nil, model.Invalid("notas são obrigatórias ao pedir alterações")
	}

	now := e.now()
	m.ApprovalStatus = &decision
	m.ApprovalNotes = nil
	if notes != "" {
		n := notes
		m.ApprovalNotes = &n
	}
	approver := actor.UserID
	m.ApprovedBy = &approver
	m.ApprovalDecidedAt = &now
	m.UpdatedAt = now

	if err := e.store.SaveMilestone(ctx, m); err != nil {
		return nil, err
	}

	action := logger.AuditActionMilestoneApprove
	if decision == model.ApprovalChangesRequested {
		action = logger.AuditActionMilestoneChanges
	}
	metrics.Get().IncrementTransition(false)
	logger.AuditTransition(ctx, action, "milestone", m.ID, map[string]interface{}{
		"decision": decision,
	})

	snapshot := *m
	BestEffort(ctx, "milestone-decision-update", func(ctx context.Context) error {
		name := actor.UserID
		if user, err := e.store.GetUser(ctx, actor.UserID); err == nil {
			name = user.DisplayName()
		}
		_, err := e.ledger.Publish(ctx, decisionUpdate(snapshot, name, actor.UserID), "")
		return err
	})

	return e.milestoneView(ctx, m), nil
}

func decisionUpdate(m model.Milestone, clientName, actorID string) UpdateInput {
	var title, body string
	if *m.ApprovalStatus == model.ApprovalApproved {
		title = "Milestone approved: " + m.Title
		body = fmt.Sprintf("%s approved %q.", clientName, m.Title)
	} else {
		title = "Changes requested: " + m.Title
		body = fmt.Sprintf("%s requested changes on %q.", clientName, m.Title)
	}
	if m.ApprovalNotes != nil {
		body += "\n\nNotes: " + *m.ApprovalNotes
	}
	return UpdateInput{
		ProjectID: m.ProjectID,
		Type:      model.UpdateDecision,
		Title:     title,
		Body:      body,
		AuthorID:  actorID,
	}
}

// GetMilestone returns a milestone and its derived progress. Clients only
// see client-visible milestones of projects they belong to.
func (e *Engine) GetMilestone(ctx context.Context, id string, actor model.Actor) (*MilestoneView, error) {
	m, err := e.store.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsClient() && !m.ClientVisible {
		return nil, model.NotFound("milestone")
	}
	if err := e.checkMembership(ctx, m.ProjectID, actor); err != nil {
		return nil, hideAs(err, "milestone")
	}
	return e.milestoneView(ctx, m), nil
}

// ListMilestones returns the project's milestones in order, each with progress.
func (e *Engine) ListMilestones(ctx context.Context, projectID string, actor model.Actor) ([]MilestoneView, error) {
	if _, err := e.projectFor(ctx, projectID, actor); err != nil {
		return nil, err
	}
	milestones, err := e.store.ListMilestones(ctx, projectID)
	if err != nil {
		return nil, err
	}
	deliverables, err := e.store.ListDeliverables(ctx, model.DeliverableFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	byMilestone := make(map[string][]model.Deliverable)
	for _, d := range deliverables {
		if id := strValue(d.MilestoneID); id != "" {
			byMilestone[id] = append(byMilestone[id], d)
		}
	}

	views := make([]MilestoneView, 0, len(milestones))
	for _, m := range milestones {
		if actor.IsClient() && !m.ClientVisible {
			continue
		}
		views = append(views, MilestoneView{Milestone: m, Progress: DeliverableProgress(byMilestone[m.ID])})
	}
	return views, nil
}

func (e *Engine) milestoneView(ctx context.Context, m *model.Milestone) *MilestoneView {
	return &MilestoneView{
		Milestone: *m,
		Progress:  e.groupProgress(ctx, model.DeliverableFilter{MilestoneID: m.ID}),
	}
}
