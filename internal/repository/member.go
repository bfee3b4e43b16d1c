package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleberrangel/clientflow-api/internal/model"
)

// MemberRepository gerencia a associação usuário/projeto
type MemberRepository struct {
	db *sql.DB
}

// NewMemberRepository cria um novo repositório de membros
func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberSelect = `
	SELECT m.project_id, m.user_id, m.role, m.active, u.type, u.email
	FROM project_members m
	JOIN users u ON u.id = m.user_id
`

// ListMembers retorna todos os membros do projeto, ativos ou não
func (r *MemberRepository) ListMembers(ctx context.Context, projectID string) ([]model.ProjectMember, error) {
	rows, err := r.db.QueryContext(ctx, memberSelect+` WHERE m.project_id = $1 ORDER BY m.created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar membros: %w", err)
	}
	defer rows.Close()

	var members []model.ProjectMember
	for rows.Next() {
		var m model.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.Active, &m.UserType, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetMember busca a associação; retorna nil, nil quando o usuário não é membro
func (r *MemberRepository) GetMember(ctx context.Context, projectID, userID string) (*model.ProjectMember, error) {
	var m model.ProjectMember
	err := r.db.QueryRowContext(ctx, memberSelect+` WHERE m.project_id = $1 AND m.user_id = $2`, projectID, userID).
		Scan(&m.ProjectID, &m.UserID, &m.Role, &m.Active, &m.UserType, &m.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao buscar membro: %w", err)
	}
	return &m, nil
}

// AddMember insere ou reativa um membro
func (r *MemberRepository) AddMember(ctx context.Context, projectID, userID string, role model.MemberRole) error {
	query := `
		INSERT INTO project_members (project_id, user_id, role, active, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (project_id, user_id) DO UPDATE SET
			role = EXCLUDED.role,
			active = TRUE
	`
	if _, err := r.db.ExecContext(ctx, query, projectID, userID, role); err != nil {
		return fmt.Errorf("erro ao adicionar membro: %w", err)
	}
	return nil
}
