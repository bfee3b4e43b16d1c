package model

import "time"

// UpdateType é a etiqueta de um item do feed do projeto
type UpdateType string

const (
	UpdateGeneral  UpdateType = "GENERAL"
	UpdateLaunch   UpdateType = "LAUNCH"
	UpdateDecision UpdateType = "DECISION"
	UpdateRisk     UpdateType = "RISK"
	UpdateWeekly   UpdateType = "WEEKLY"
)

// Valid reports whether t is a known update type.
func (t UpdateType) Valid() bool {
	switch t {
	case UpdateGeneral, UpdateLaunch, UpdateDecision, UpdateRisk, UpdateWeekly:
		return true
	}
	return false
}

// ProjectUpdate é uma entrada imutável do feed (append-only)
type ProjectUpdate struct {
	ID            string     `json:"id" db:"id"`
	ProjectID     string     `json:"project_id" db:"project_id"`
	Type          UpdateType `json:"type" db:"type"`
	Title         string     `json:"title" db:"title"`
	Body          string     `json:"body" db:"body"`
	AuthorID      *string    `json:"author_id,omitempty" db:"author_id"`
	ClientVisible bool       `json:"client_visible" db:"client_visible"`
	SourceKey     *string    `json:"source_key,omitempty" db:"source_key"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Notification é o aviso por usuário gerado como efeito colateral de um evento
type Notification struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	ProjectID string     `json:"project_id" db:"project_id"`
	UpdateID  *string    `json:"update_id,omitempty" db:"update_id"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	Link      string     `json:"link" db:"link"`
	Read      bool       `json:"read" db:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// EmailMessage is the template data handed to the email collaborator.
type EmailMessage struct {
	Template  string `json:"template"`
	Subject   string `json:"subject"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Link      string `json:"link"`
}
