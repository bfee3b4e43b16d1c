package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/google/uuid"
)

// MilestoneRepository gerencia operações de milestones no banco
type MilestoneRepository struct {
	db *sql.DB
}

// NewMilestoneRepository cria um novo repositório de milestones
func NewMilestoneRepository(db *sql.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

const milestoneColumns = `id, project_id, title, description, status, order_index, due_date,
	client_visible, requires_client_approval, approval_status, approval_notes, approved_by,
	approval_decided_at, completed_at, created_at, updated_at`

func scanMilestone(row scanner) (*model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(
		&m.ID, &m.ProjectID, &m.Title, &m.Description, &m.Status, &m.OrderIndex, &m.DueDate,
		&m.ClientVisible, &m.RequiresClientApproval, &m.ApprovalStatus, &m.ApprovalNotes, &m.ApprovedBy,
		&m.ApprovalDecidedAt, &m.CompletedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMilestone busca um milestone pelo id
func (r *MilestoneRepository) GetMilestone(ctx context.Context, id string) (*model.Milestone, error) {
	m, err := scanMilestone(r.db.QueryRowContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NotFound("milestone")
		}
		return nil, fmt.Errorf("erro ao buscar milestone: %w", err)
	}
	return m, nil
}

// ListMilestones lista os milestones do projeto pela ordem definida
func (r *MilestoneRepository) ListMilestones(ctx context.Context, projectID string) ([]model.Milestone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE project_id = $1 ORDER BY order_index, created_at`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar milestones: %w", err)
	}
	defer rows.Close()

	var milestones []model.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, *m)
	}
	return milestones, rows.Err()
}

// FindMilestoneByTitle busca o primeiro milestone cujo título contém fragment (sem diferenciar maiúsculas)
func (r *MilestoneRepository) FindMilestoneByTitle(ctx context.Context, projectID, fragment string) (*model.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones
		WHERE project_id = $1 AND title ILIKE $2
		ORDER BY order_index, created_at
		LIMIT 1`

	m, err := scanMilestone(r.db.QueryRowContext(ctx, query, projectID, containsPattern(fragment)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao buscar milestone por título: %w", err)
	}
	return m, nil
}

// NextMilestoneOrder retorna o próximo order_index livre do projeto
func (r *MilestoneRepository) NextMilestoneOrder(ctx context.Context, projectID string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index) + 1, 0) FROM milestones WHERE project_id = $1`, projectID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("erro ao calcular ordem do milestone: %w", err)
	}
	return next, nil
}

// CreateMilestone insere um milestone. ID é gerado quando vazio.
func (r *MilestoneRepository) CreateMilestone(ctx context.Context, m *model.Milestone) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	query := `INSERT INTO milestones (` + milestoneColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ProjectID, m.Title, m.Description, m.Status, m.OrderIndex, m.DueDate,
		m.ClientVisible, m.RequiresClientApproval, m.ApprovalStatus, m.ApprovalNotes, m.ApprovedBy,
		m.ApprovalDecidedAt, m.CompletedAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("project_id", m.ProjectID).Msg("Erro ao criar milestone")
		return fmt.Errorf("erro ao criar milestone: %w", err)
	}
	return nil
}

// SaveMilestone grava o estado completo do milestone (escrita de linha única)
func (r *MilestoneRepository) SaveMilestone(ctx context.Context, m *model.Milestone) error {
	query := `
		UPDATE milestones SET
			title = $2, description = $3, status = $4, order_index = $5, due_date = $6,
			client_visible = $7, requires_client_approval = $8, approval_status = $9,
			approval_notes = $10, approved_by = $11, approval_decided_at = $12,
			completed_at = $13, updated_at = $14
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		m.ID, m.Title, m.Description, m.Status, m.OrderIndex, m.DueDate,
		m.ClientVisible, m.RequiresClientApproval, m.ApprovalStatus,
		m.ApprovalNotes, m.ApprovedBy, m.ApprovalDecidedAt,
		m.CompletedAt, m.UpdatedAt,
	)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("milestone_id", m.ID).Msg("Erro ao atualizar milestone")
		return fmt.Errorf("erro ao atualizar milestone: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.NotFound("milestone")
	}
	return nil
}
