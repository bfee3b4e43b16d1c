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

// ChangeRequestRepository gerencia operações de change requests no banco
type ChangeRequestRepository struct {
	db *sql.DB
}

// NewChangeRequestRepository cria um novo repositório de change requests
func NewChangeRequestRepository(db *sql.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

const changeRequestColumns = `id, project_id, author_id, title, description, type, status,
	estimate_hours, ai_estimated_hours, estimated_timeline_delay_days, new_project_due_date,
	created_at, updated_at`

func scanChangeRequest(row scanner) (*model.ChangeRequest, error) {
	var cr model.ChangeRequest
	err := row.Scan(&cr.ID, &cr.ProjectID, &cr.AuthorID, &cr.Title, &cr.Description, &cr.Type, &cr.Status,
		&cr.EstimateHours, &cr.AIEstimatedHours, &cr.EstimatedTimelineDelayDays, &cr.NewProjectDueDate,
		&cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

// GetChangeRequest busca um change request pelo id
func (r *ChangeRequestRepository) GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error) {
	cr, err := scanChangeRequest(r.db.QueryRowContext(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NotFound("change request")
		}
		return nil, fmt.Errorf("erro ao buscar change request: %w", err)
	}
	return cr, nil
}

// ListChangeRequests lista os change requests do projeto, mais recentes primeiro
func (r *ChangeRequestRepository) ListChangeRequests(ctx context.Context, projectID string) ([]model.ChangeRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE project_id = $1 ORDER BY created_at DESC`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar change requests: %w", err)
	}
	defer rows.Close()

	var requests []model.ChangeRequest
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *cr)
	}
	return requests, rows.Err()
}

// CountChangeRequestsSince conta os pedidos do autor no projeto criados a partir de since
func (r *ChangeRequestRepository) CountChangeRequestsSince(ctx context.Context, projectID, authorID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM change_requests
		WHERE project_id = $1 AND author_id = $2 AND created_at >= $3
	`, projectID, authorID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("erro ao contar change requests: %w", err)
	}
	return count, nil
}

// CreateChangeRequest insere um change request. ID é gerado quando vazio.
func (r *ChangeRequestRepository) CreateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	if cr.ID == "" {
		cr.ID = uuid.NewString()
	}

	query := `INSERT INTO change_requests (` + changeRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query, cr.ID, cr.ProjectID, cr.AuthorID, cr.Title, cr.Description, cr.Type, cr.Status,
		cr.EstimateHours, cr.AIEstimatedHours, cr.EstimatedTimelineDelayDays, cr.NewProjectDueDate,
		cr.CreatedAt, cr.UpdatedAt)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("project_id", cr.ProjectID).Msg("Erro ao criar change request")
		return fmt.Errorf("erro ao criar change request: %w", err)
	}
	return nil
}

// SaveChangeRequest grava o estado completo do change request
func (r *ChangeRequestRepository) SaveChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	query := `
		UPDATE change_requests SET
			title = $2, description = $3, type = $4, status = $5,
			estimate_hours = $6, ai_estimated_hours = $7,
			estimated_timeline_delay_days = $8, new_project_due_date = $9,
			updated_at = $10
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, cr.ID, cr.Title, cr.Description, cr.Type, cr.Status,
		cr.EstimateHours, cr.AIEstimatedHours, cr.EstimatedTimelineDelayDays, cr.NewProjectDueDate, cr.UpdatedAt)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("change_request_id", cr.ID).Msg("Erro ao atualizar change request")
		return fmt.Errorf("erro ao atualizar change request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.NotFound("change request")
	}
	return nil
}
