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

// SprintRepository gerencia operações de sprints no banco
type SprintRepository struct {
	db *sql.DB
}

// NewSprintRepository cria um novo repositório de sprints
func NewSprintRepository(db *sql.DB) *SprintRepository {
	return &SprintRepository{db: db}
}

const sprintColumns = `id, project_id, name, goal, start_date, end_date, created_at, updated_at`

func scanSprint(row scanner) (*model.Sprint, error) {
	var s model.Sprint
	if err := row.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Goal, &s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SprintRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Sprint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar sprints: %w", err)
	}
	defer rows.Close()

	var sprints []model.Sprint
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, *s)
	}
	return sprints, rows.Err()
}

// GetSprint busca uma sprint pelo id
func (r *SprintRepository) GetSprint(ctx context.Context, id string) (*model.Sprint, error) {
	s, err := scanSprint(r.db.QueryRowContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NotFound("sprint")
		}
		return nil, fmt.Errorf("erro ao buscar sprint: %w", err)
	}
	return s, nil
}

// ListSprints lista as sprints do projeto por data de início
func (r *SprintRepository) ListSprints(ctx context.Context, projectID string) ([]model.Sprint, error) {
	return r.list(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE project_id = $1 ORDER BY start_date`, projectID)
}

// ListSprintsEndedBetween lista sprints de todos os projetos com end_date em [from, to]
func (r *SprintRepository) ListSprintsEndedBetween(ctx context.Context, from, to time.Time) ([]model.Sprint, error) {
	return r.list(ctx,
		`SELECT `+sprintColumns+` FROM sprints WHERE end_date >= $1 AND end_date <= $2 ORDER BY end_date`,
		from, to)
}

// CreateSprint insere uma sprint. ID é gerado quando vazio.
func (r *SprintRepository) CreateSprint(ctx context.Context, s *model.Sprint) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query := `INSERT INTO sprints (` + sprintColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.ProjectID, s.Name, s.Goal, s.StartDate, s.EndDate, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("project_id", s.ProjectID).Msg("Erro ao criar sprint")
		return fmt.Errorf("erro ao criar sprint: %w", err)
	}
	return nil
}

// SaveSprint grava nome, objetivo e janela da sprint
func (r *SprintRepository) SaveSprint(ctx context.Context, s *model.Sprint) error {
	query := `
		UPDATE sprints
		SET name = $2, goal = $3, start_date = $4, end_date = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.Goal, s.StartDate, s.EndDate, s.UpdatedAt)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("sprint_id", s.ID).Msg("Erro ao atualizar sprint")
		return fmt.Errorf("erro ao atualizar sprint: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.NotFound("sprint")
	}
	return nil
}
