package model

import "time"

// SprintLengthDays is the fixed length of every sprint window.
const SprintLengthDays = 14

// SprintEnd derives the end of a sprint window from its start. The window
// is computed in UTC so it is always exactly 14×24h, matching the schema.
func SprintEnd(start time.Time) time.Time {
	return start.UTC().AddDate(0, 0, SprintLengthDays)
}

// MilestoneStatus é o estado de um milestone
type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "NOT_STARTED"
	MilestoneInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneBlocked    MilestoneStatus = "BLOCKED"
	MilestoneDone       MilestoneStatus = "DONE"
)

// Valid reports whether s is a known milestone status.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneNotStarted, MilestoneInProgress, MilestoneBlocked, MilestoneDone:
		return true
	}
	return false
}

// ApprovalStatus é o estado da aprovação do cliente
type ApprovalStatus string

const (
	ApprovalPending          ApprovalStatus = "PENDING"
	ApprovalApproved         ApprovalStatus = "APPROVED"
	ApprovalChangesRequested ApprovalStatus = "CHANGES_REQUESTED"
)

// Milestone é um checkpoint visível ao cliente.
// ApprovalStatus é não-nulo se e somente se RequiresClientApproval.
type Milestone struct {
	ID                     string          `json:"id" db:"id"`
	ProjectID              string          `json:"project_id" db:"project_id"`
	Title                  string          `json:"title" db:"title"`
	Description            string          `json:"description" db:"description"`
	Status                 MilestoneStatus `json:"status" db:"status"`
	OrderIndex             int             `json:"order_index" db:"order_index"`
	DueDate                *time.Time      `json:"due_date,omitempty" db:"due_date"`
	ClientVisible          bool            `json:"client_visible" db:"client_visible"`
	RequiresClientApproval bool            `json:"requires_client_approval" db:"requires_client_approval"`
	ApprovalStatus         *ApprovalStatus `json:"approval_status" db:"approval_status"`
	ApprovalNotes          *string         `json:"approval_notes,omitempty" db:"approval_notes"`
	ApprovedBy             *string         `json:"approved_by,omitempty" db:"approved_by"`
	ApprovalDecidedAt      *time.Time      `json:"approval_decided_at,omitempty" db:"approval_decided_at"`
	CompletedAt            *time.Time      `json:"completed_at" db:"completed_at"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`
}

// Approvable reports whether a client may act on the milestone's approval.
func (m Milestone) Approvable() bool {
	return m.RequiresClientApproval && m.ApprovalStatus != nil && *m.ApprovalStatus != "" && m.ClientVisible
}

// Sprint é uma janela fixa de 14 dias
type Sprint struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	Name      string    `json:"name" db:"name"`
	Goal      string    `json:"goal" db:"goal"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Overlaps reports whether the half-open windows [s.Start, s.End) and [start, end) intersect.
func (s Sprint) Overlaps(start, end time.Time) bool {
	return s.StartDate.Before(end) && s.EndDate.After(start)
}

// DeliverableStatus é a coluna do quadro kanban
type DeliverableStatus string

const (
	DeliverableBacklog    DeliverableStatus = "BACKLOG"
	DeliverablePlanned    DeliverableStatus = "PLANNED"
	DeliverableInProgress DeliverableStatus = "IN_PROGRESS"
	DeliverableQA         DeliverableStatus = "QA"
	DeliverableBlocked    DeliverableStatus = "BLOCKED"
	DeliverableDone       DeliverableStatus = "DONE"
)

// Valid reports whether s is a known deliverable status.
func (s DeliverableStatus) Valid() bool {
	switch s {
	case DeliverableBacklog, DeliverablePlanned, DeliverableInProgress,
		DeliverableQA, DeliverableBlocked, DeliverableDone:
		return true
	}
	return false
}

// Deliverable é a unidade atômica de trabalho
type Deliverable struct {
	ID          string            `json:"id" db:"id"`
	ProjectID   string            `json:"project_id" db:"project_id"`
	SprintID    *string           `json:"sprint_id,omitempty" db:"sprint_id"`
	MilestoneID *string           `json:"milestone_id,omitempty" db:"milestone_id"`
	AssigneeID  *string           `json:"assignee_id,omitempty" db:"assignee_id"`
	Title       string            `json:"title" db:"title"`
	Description string            `json:"description" db:"description"`
	Status      DeliverableStatus `json:"status" db:"status"`
	OrderIndex  int               `json:"order_index" db:"order_index"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// Comment is a threaded remark on a deliverable.
type Comment struct {
	ID            string    `json:"id" db:"id"`
	DeliverableID string    `json:"deliverable_id" db:"deliverable_id"`
	ParentID      *string   `json:"parent_id,omitempty" db:"parent_id"`
	AuthorID      string    `json:"author_id" db:"author_id"`
	Body          string    `json:"body" db:"body"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
