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

// UpdateRepository grava o feed do projeto. Só insere e lê: não existe UPDATE nem DELETE.
type UpdateRepository struct {
	db *sql.DB
}

// NewUpdateRepository cria um novo repositório do feed
func NewUpdateRepository(db *sql.DB) *UpdateRepository {
	return &UpdateRepository{db: db}
}

const updateColumns = `id, project_id, type, title, body, author_id, client_visible, source_key, created_at`

func scanUpdate(row scanner) (*model.ProjectUpdate, error) {
	var u model.ProjectUpdate
	err := row.Scan(&u.ID, &u.ProjectID, &u.Type, &u.Title, &u.Body, &u.AuthorID, &u.ClientVisible, &u.SourceKey, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertUpdate acrescenta uma entrada ao feed
func (r *UpdateRepository) InsertUpdate(ctx context.Context, u *model.ProjectUpdate) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	query := `INSERT INTO project_updates (` + updateColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.ProjectID, u.Type, u.Title, u.Body, u.AuthorID,
		u.ClientVisible, u.SourceKey, u.CreatedAt)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Str("project_id", u.ProjectID).Str("type", string(u.Type)).
			Msg("Erro ao inserir update do projeto")
		return fmt.Errorf("erro ao inserir update: %w", err)
	}
	return nil
}

// FindUpdate retorna a primeira entrada que satisfaz a consulta, ou nil, nil
func (r *UpdateRepository) FindUpdate(ctx context.Context, q model.UpdateQuery) (*model.ProjectUpdate, error) {
	conds := []string{"project_id = $1"}
	args := []interface{}{q.ProjectID}
	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.Type != "" {
		add("type = $%d", q.Type)
	}
	if q.TitleContains != "" {
		add("title LIKE $%d", containsPattern(q.TitleContains))
	}
	if q.BodyContains != "" {
		add("body LIKE $%d", containsPattern(q.BodyContains))
	}
	if q.SourceKey != "" {
		add("source_key = $%d", q.SourceKey)
	}

	query := `SELECT ` + updateColumns + ` FROM project_updates WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at LIMIT 1`

	u, err := scanUpdate(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao buscar update: %w", err)
	}
	return u, nil
}

// ListUpdates lista o feed do projeto, mais recentes primeiro
func (r *UpdateRepository) ListUpdates(ctx context.Context, projectID string, clientVisibleOnly bool) ([]model.ProjectUpdate, error) {
	query := `SELECT ` + updateColumns + ` FROM project_updates WHERE project_id = $1`
	if clientVisibleOnly {
		query += ` AND client_visible`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar updates: %w", err)
	}
	defer rows.Close()

	var updates []model.ProjectUpdate
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, *u)
	}
	return updates, rows.Err()
}
