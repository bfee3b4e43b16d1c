package model

import (
	"strings"
	"time"
)

// Phase é o estágio macro do ciclo de vida de um projeto
type Phase string

const (
	PhaseDiscovery Phase = "DISCOVERY"
	PhaseDesign    Phase = "DESIGN"
	PhaseBuild     Phase = "BUILD"
	PhaseQA        Phase = "QA"
	PhaseLaunch    Phase = "LAUNCH"
	PhaseSupport   Phase = "SUPPORT"
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{PhaseDiscovery, PhaseDesign, PhaseBuild, PhaseQA, PhaseLaunch, PhaseSupport}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// Index returns the lifecycle position of p, or -1.
func (p Phase) Index() int {
	for i, phase := range Phases {
		if phase == p {
			return i
		}
	}
	return -1
}

// Title returns the display word for the phase ("QA" stays upper case).
func (p Phase) Title() string {
	if p == PhaseQA {
		return "QA"
	}
	s := strings.ToLower(string(p))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// MilestoneTitle is the title of the milestone that tracks the phase.
func (p Phase) MilestoneTitle() string {
	return p.Title() + " Phase"
}

// Project representa um projeto de cliente
type Project struct {
	ID                  string    `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Phase               Phase     `json:"phase" db:"phase"`
	DueDate             time.Time `json:"due_date" db:"due_date"`
	WeeklyCapacityHours *int      `json:"weekly_capacity_hours,omitempty" db:"weekly_capacity_hours"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// MemberRole é o papel de um usuário dentro de um projeto
type MemberRole string

const (
	RoleOwner       MemberRole = "OWNER"
	RoleManager     MemberRole = "MANAGER"
	RoleContributor MemberRole = "CONTRIBUTOR"
	RoleClient      MemberRole = "CLIENT"
	RoleViewer      MemberRole = "VIEWER"
)

// ProjectMember liga um usuário a um projeto. UserType e Email vêm do join com users.
type ProjectMember struct {
	ProjectID string     `json:"project_id" db:"project_id"`
	UserID    string     `json:"user_id" db:"user_id"`
	Role      MemberRole `json:"role" db:"role"`
	Active    bool       `json:"active" db:"active"`
	UserType  UserType   `json:"user_type" db:"user_type"`
	Email     string     `json:"email" db:"email"`
}

// UserType separa usuários do cliente da equipe interna
type UserType string

const (
	UserTypeClient   UserType = "CLIENT"
	UserTypeInternal UserType = "INTERNAL"
)

// User é o colaborador de identidade; a emissão de sessão fica fora do core
type User struct {
	ID        string   `json:"id" db:"id"`
	Email     string   `json:"email" db:"email"`
	FirstName string   `json:"first_name" db:"first_name"`
	LastName  string   `json:"last_name" db:"last_name"`
	Type      UserType `json:"type" db:"type"`
}

// DisplayName returns "First Last", falling back to the email when both names are blank.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}

// Actor is the caller of an operation, as asserted by the auth layer.
type Actor struct {
	UserID string   `json:"user_id"`
	Type   UserType `json:"type"`
}

// IsInternal reports whether the actor belongs to the delivery team.
func (a Actor) IsInternal() bool {
	return a.Type == UserTypeInternal
}

// IsClient reports whether the actor is a client user.
func (a Actor) IsClient() bool {
	return a.Type == UserTypeClient
}
