package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UserRepository handles user data operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser retrieves a user by id
func (r *UserRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, email, first_name, last_name, type
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Type,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.NotFound("usuário")
		}
		return nil, err
	}

	return &user, nil
}

// GetUsers loads several users at once, keyed by id. Missing ids are absent from the map.
func (r *UserRepository) GetUsers(ctx context.Context, ids []string) (map[string]model.User, error) {
	users := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := `
		SELECT id, email, first_name, last_name, type
		FROM users
		WHERE id = ANY($1::uuid[])
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar usuários: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Type); err != nil {
			return nil, err
		}
		users[user.ID] = user
	}

	return users, rows.Err()
}

// CreateUser inserts a user. The id is generated when empty.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, email, first_name, last_name, type, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.FirstName, user.LastName, user.Type)
	if err != nil {
		return fmt.Errorf("erro ao criar usuário: %w", err)
	}
	return nil
}
