package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/google/uuid"
)

// CommentRepository gerencia comentários de deliverables
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository cria um novo repositório de comentários
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentColumns = `id, deliverable_id, parent_id, author_id, body, created_at`

func scanComment(row scanner) (*model.Comment, error) {
	var c model.Comment
	if err := row.Scan(&c.ID, &c.DeliverableID, &c.ParentID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetComment busca um comentário pelo id
func (r *CommentRepository) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NotFound("comentário")
		}
		return nil, fmt.Errorf("erro ao buscar comentário: %w", err)
	}
	return c, nil
}

// ListComments lista todos os comentários do deliverable em ordem cronológica
func (r *CommentRepository) ListComments(ctx context.Context, deliverableID string) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE deliverable_id = $1 ORDER BY created_at, id`, deliverableID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar comentários: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// CreateComment insere um comentário. ID é gerado quando vazio.
func (r *CommentRepository) CreateComment(ctx context.Context, c *model.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO comments (`+commentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.DeliverableID, c.ParentID, c.AuthorID, c.Body, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("erro ao criar comentário: %w", err)
	}
	return nil
}
