package repository

import (
	"database/sql"
	"strings"
)

// Store reúne os repositórios por entidade e satisfaz service.Store
type Store struct {
	*ProjectRepository
	*MemberRepository
	*UserRepository
	*MilestoneRepository
	*SprintRepository
	*DeliverableRepository
	*ChangeRequestRepository
	*UpdateRepository
	*NotificationRepository
	*CommentRepository
}

// NewStore cria o store PostgreSQL sobre um pool já aberto
func NewStore(db *sql.DB) *Store {
	return &Store{
		ProjectRepository:       NewProjectRepository(db),
		MemberRepository:        NewMemberRepository(db),
		UserRepository:          NewUserRepository(db),
		MilestoneRepository:     NewMilestoneRepository(db),
		SprintRepository:        NewSprintRepository(db),
		DeliverableRepository:   NewDeliverableRepository(db),
		ChangeRequestRepository: NewChangeRequestRepository(db),
		UpdateRepository:        NewUpdateRepository(db),
		NotificationRepository:  NewNotificationRepository(db),
		CommentRepository:       NewCommentRepository(db),
	}
}

// scanner é satisfeito por *sql.Row e *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern monta um padrão LIKE que casa s como substring literal
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
