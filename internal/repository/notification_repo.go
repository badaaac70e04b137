package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"gymclub/internal/model"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// ListForUser returns the general notices plus the ones addressed to userID,
// newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, titulo, mensaje, mensaje_html, tipo, COALESCE(target_user_id::text, ''), COALESCE(imagen_url, ''), created_at
		 FROM notifications
		 WHERE tipo = 'general' OR (tipo = 'individual' AND target_user_id = $1)
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for user: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Titulo, &n.Mensaje, &n.MensajeHTML, &n.Tipo, &n.TargetUserID, &n.ImagenURL, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) ListAll(ctx context.Context) ([]model.NotificationWithTarget, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT n.id, n.titulo, n.mensaje, n.mensaje_html, n.tipo, COALESCE(n.target_user_id::text, ''), COALESCE(n.imagen_url, ''), n.created_at,
		        COALESCE(pr.nombre, '')
		 FROM notifications n
		 LEFT JOIN profiles pr ON pr.id = n.target_user_id
		 ORDER BY n.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.NotificationWithTarget, 0)
	for rows.Next() {
		var n model.NotificationWithTarget
		if err := rows.Scan(&n.ID, &n.Titulo, &n.Mensaje, &n.MensajeHTML, &n.Tipo, &n.TargetUserID, &n.ImagenURL, &n.CreatedAt, &n.TargetNombre); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (titulo, mensaje, mensaje_html, tipo, target_user_id, imagen_url)
		 VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, NULLIF($6, ''))
		 RETURNING id, created_at`,
		n.Titulo, n.Mensaje, n.MensajeHTML, n.Tipo, n.TargetUserID, n.ImagenURL).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}
