package database

import (
	"context"
	"encoding/json"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	metadata := "{}"
	if len(n.Metadata) > 0 {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return apperrors.Internal("encode notification metadata", err)
		}
		metadata = string(b)
	}
	query := `INSERT INTO notifications (id, title, sender_id, receiver_id, priority, is_read,
			  entity_type, message, metadata, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, n.ID, n.Title, n.SenderID, n.ReceiverID,
		string(n.Priority), n.IsRead, string(n.EntityType), n.Message, metadata, n.CreatedAt.UTC())
	return translate(err, "notification")
}

// NotificationFilter narrows ListNotifications; zero values match everything
type NotificationFilter struct {
	ReceiverID string
	EntityType models.EntityType
	UnreadOnly bool
	Limit      int
}

// ListNotifications returns notifications newest first
func (s *Store) ListNotifications(ctx context.Context, f NotificationFilter) ([]*models.Notification, error) {
	query := `SELECT id, title, sender_id, receiver_id, priority, is_read, entity_type, message,
			  metadata, created_at FROM notifications WHERE 1=1`
	args := []any{}
	if f.ReceiverID != "" {
		query += ` AND receiver_id=?`
		args = append(args, f.ReceiverID)
	}
	if f.EntityType != "" {
		query += ` AND entity_type=?`
		args = append(args, string(f.EntityType))
	}
	if f.UnreadOnly {
		query += ` AND is_read=0`
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Internal("list notifications", err)
	}
	defer rows.Close()

	out := []*models.Notification{}
	for rows.Next() {
		n := &models.Notification{}
		var priority, entityType, metadata string
		if err := rows.Scan(&n.ID, &n.Title, &n.SenderID, &n.ReceiverID, &priority, &n.IsRead,
			&entityType, &n.Message, &metadata, &n.CreatedAt); err != nil {
			return nil, apperrors.Internal("scan notification", err)
		}
		n.Priority = models.Priority(priority)
		n.EntityType = models.EntityType(entityType)
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
				return nil, apperrors.Internal("decode notification metadata", err)
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags one notification as read
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read=1 WHERE id=?`, id)
	if err != nil {
		return apperrors.Internal("mark notification read", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("notification not found", nil)
	}
	return nil
}
