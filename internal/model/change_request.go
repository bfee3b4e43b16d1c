package model

import "time"

// ChangeRequestStatus é o estado de uma solicitação de mudança
type ChangeRequestStatus string

const (
	ChangeRequestNew         ChangeRequestStatus = "NEW"
	ChangeRequestUnderReview ChangeRequestStatus = "UNDER_REVIEW"
	ChangeRequestEstimated   ChangeRequestStatus = "ESTIMATED"
	ChangeRequestApproved    ChangeRequestStatus = "APPROVED"
	ChangeRequestRejected    ChangeRequestStatus = "REJECTED"
	ChangeRequestCancelled   ChangeRequestStatus = "CANCELLED"
)

// Valid reports whether s is a known change request status.
func (s ChangeRequestStatus) Valid() bool {
	switch s {
	case ChangeRequestNew, ChangeRequestUnderReview, ChangeRequestEstimated,
		ChangeRequestApproved, ChangeRequestRejected, ChangeRequestCancelled:
		return true
	}
	return false
}

// ChangeRequestType classifica a mudança pedida
type ChangeRequestType string

const (
	ChangeRequestFeature ChangeRequestType = "FEATURE"
	ChangeRequestChange  ChangeRequestType = "CHANGE"
	ChangeRequestBug     ChangeRequestType = "BUG"
	ChangeRequestOther   ChangeRequestType = "OTHER"
)

// Valid reports whether t is a known change request type.
func (t ChangeRequestType) Valid() bool {
	switch t {
	case ChangeRequestFeature, ChangeRequestChange, ChangeRequestBug, ChangeRequestOther:
		return true
	}
	return false
}

// ChangeRequest é uma proposta de mudança de escopo feita pelo cliente.
// EstimatedTimelineDelayDays e NewProjectDueDate são derivados das horas autoritativas.
type ChangeRequest struct {
	ID                         string              `json:"id" db:"id"`
	ProjectID                  string              `json:"project_id" db:"project_id"`
	AuthorID                   string              `json:"author_id" db:"author_id"`
	Title                      string              `json:"title" db:"title"`
	Description                string              `json:"description" db:"description"`
	Type                       ChangeRequestType   `json:"type" db:"type"`
	Status                     ChangeRequestStatus `json:"status" db:"status"`
	EstimateHours              *float64            `json:"estimate_hours" db:"estimate_hours"`
	AIEstimatedHours           *float64            `json:"ai_estimated_hours" db:"ai_estimated_hours"`
	EstimatedTimelineDelayDays *int                `json:"estimated_timeline_delay_days" db:"estimated_timeline_delay_days"`
	NewProjectDueDate          *time.Time          `json:"new_project_due_date" db:"new_project_due_date"`
	CreatedAt                  time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt                  time.Time           `json:"updated_at" db:"updated_at"`
}

// EstimateRequest is what the hour estimator receives.
type EstimateRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Type        ChangeRequestType `json:"type"`
}

const (
	MinEstimateHours = 1
	MaxEstimateHours = 500

	// MaxHumanEstimateHours caps estimates entered by the internal team.
	MaxHumanEstimateHours = 10000
)
