package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/google/uuid"
)

// NotificationRepository gerencia notificações por usuário
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository cria um novo repositório de notificações
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertNotification grava uma notificação
func (r *NotificationRepository) InsertNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	query := `
		INSERT INTO notifications (id, user_id, project_id, update_id, title, body, link, read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.ProjectID, n.UpdateID, n.Title, n.Body, n.Link,
		n.Read, n.ReadAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("erro ao inserir notificação: %w", err)
	}
	return nil
}

// ListNotifications lista as notificações do usuário, mais recentes primeiro
func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	query := `
		SELECT id, user_id, project_id, update_id, title, body, link, read, read_at, created_at
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC LIMIT 200`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar notificações: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ProjectID, &n.UpdateID, &n.Title, &n.Body, &n.Link,
			&n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marca a notificação como lida; só o dono pode marcar
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
	`, id, userID, at)
	if err != nil {
		return fmt.Errorf("erro ao marcar notificação: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return model.NotFound("notificação")
	}
	return nil
}
