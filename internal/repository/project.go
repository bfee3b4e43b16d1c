package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/google/uuid"
)

// ProjectRepository gerencia operações de projetos no banco
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository cria um novo repositório de projetos
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, name, phase, due_date, weekly_capacity_hours, created_at, updated_at`

func scanProject(row scanner) (*model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.Name, &p.Phase, &p.DueDate, &p.WeeklyCapacityHours, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject insere um projeto. ID é gerado quando vazio.
func (r *ProjectRepository) CreateProject(ctx context.Context, p *model.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Phase == "" {
		p.Phase = model.PhaseDiscovery
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Phase, p.DueDate, p.WeeklyCapacityHours, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("project_id", p.ID).Msg("Erro ao criar projeto")
		return fmt.Errorf("erro ao criar projeto: %w", err)
	}
	return nil
}

// GetProject busca um projeto pelo id
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NotFound("projeto")
		}
		return nil, fmt.Errorf("erro ao buscar projeto: %w", err)
	}
	return p, nil
}

// ListProjects lista os projetos em que o usuário é membro ativo; userID vazio lista todos
func (r *ProjectRepository) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY due_date, name`
	args := []interface{}{}
	if userID != "" {
		query = `
			SELECT p.id, p.name, p.phase, p.due_date, p.weekly_capacity_hours, p.created_at, p.updated_at
			FROM projects p
			JOIN project_members m ON m.project_id = p.id
			WHERE m.user_id = $1 AND m.active
			ORDER BY p.due_date, p.name
		`
		args = append(args, userID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar projetos: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProjectPhase grava a nova fase do projeto
func (r *ProjectRepository) UpdateProjectPhase(ctx context.Context, id string, phase model.Phase) error {
	return r.touch(ctx, `UPDATE projects SET phase = $2, updated_at = NOW() WHERE id = $1`, id, phase)
}

// UpdateProjectDueDate grava o novo prazo do projeto
func (r *ProjectRepository) UpdateProjectDueDate(ctx context.Context, id string, due time.Time) error {
	return r.touch(ctx, `UPDATE projects SET due_date = $2, updated_at = NOW() WHERE id = $1`, id, due)
}

func (r *ProjectRepository) touch(ctx context.Context, query, id string, value interface{}) error {
	result, err := r.db.ExecContext(ctx, query, id, value)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("project_id", id).Msg("Erro ao atualizar projeto")
		return fmt.Errorf("erro ao atualizar projeto: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.NotFound("projeto")
	}
	return nil
}
