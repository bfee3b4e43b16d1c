package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/google/uuid"
)

// DeliverableRepository gerencia operações de deliverables no banco
type DeliverableRepository struct {
	db *sql.DB
}

// NewDeliverableRepository cria um novo repositório de deliverables
func NewDeliverableRepository(db *sql.DB) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

const deliverableColumns = `id, project_id, sprint_id, milestone_id, assignee_id, title, description,
	status, order_index, created_at, updated_at`

func scanDeliverable(row scanner) (*model.Deliverable, error) {
	var d model.Deliverable
	err := row.Scan(&d.ID, &d.ProjectID, &d.SprintID, &d.MilestoneID, &d.AssigneeID, &d.Title, &d.Description,
		&d.Status, &d.OrderIndex, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDeliverable busca um deliverable pelo id
func (r *DeliverableRepository) GetDeliverable(ctx context.Context, id string) (*model.Deliverable, error) {
	d, err := scanDeliverable(r.db.QueryRowContext(ctx, `SELECT `+deliverableColumns+` FROM deliverables WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NotFound("deliverable")
		}
		return nil, fmt.Errorf("erro ao buscar deliverable: %w", err)
	}
	return d, nil
}

// ListDeliverables lista deliverables pelo filtro, ordenados por coluna e posição
func (r *DeliverableRepository) ListDeliverables(ctx context.Context, filter model.DeliverableFilter) ([]model.Deliverable, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ProjectID != "" {
		add("project_id = $%d", filter.ProjectID)
	}
	if filter.SprintID != "" {
		add("sprint_id = $%d", filter.SprintID)
	}
	if filter.MilestoneID != "" {
		add("milestone_id = $%d", filter.MilestoneID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if len(conds) == 0 {
		return nil, model.Invalid("filtro de deliverables sem pai")
	}

	query := `SELECT ` + deliverableColumns + ` FROM deliverables WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY status, order_index, created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar deliverables: %w", err)
	}
	defer rows.Close()

	var deliverables []model.Deliverable
	for rows.Next() {
		d, err := scanDeliverable(rows)
		if err != nil {
			return nil, err
		}
		deliverables = append(deliverables, *d)
	}
	return deliverables, rows.Err()
}

// CreateDeliverable insere um deliverable. ID é gerado quando vazio.
func (r *DeliverableRepository) CreateDeliverable(ctx context.Context, d *model.Deliverable) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	query := `INSERT INTO deliverables (` + deliverableColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.ProjectID, d.SprintID, d.MilestoneID, d.AssigneeID,
		d.Title, d.Description, d.Status, d.OrderIndex, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("project_id", d.ProjectID).Msg("Erro ao criar deliverable")
		return fmt.Errorf("erro ao criar deliverable: %w", err)
	}
	return nil
}

// SaveDeliverable grava o estado completo do deliverable
func (r *DeliverableRepository) SaveDeliverable(ctx context.Context, d *model.Deliverable) error {
	query := `
		UPDATE deliverables SET
			sprint_id = $2, milestone_id = $3, assignee_id = $4, title = $5, description = $6,
			status = $7, order_index = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, d.ID, d.SprintID, d.MilestoneID, d.AssigneeID,
		d.Title, d.Description, d.Status, d.OrderIndex, d.UpdatedAt)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("deliverable_id", d.ID).Msg("Erro ao atualizar deliverable")
		return fmt.Errorf("erro ao atualizar deliverable: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.NotFound("deliverable")
	}
	return nil
}
