package postgres

import (
	"context"
	"encoding/json"

	"github.com/and161185/docgate/internal/model"
	"github.com/gofrs/uuid/v5"
)

// NotificationRepo implements NotificationRepository using PostgreSQL.
type NotificationRepo struct{ db *DB }

// NewNotificationRepo constructs a notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert stores a notification; metadata is kept as jsonb. Inserting an id
// that already exists is a no-op, so delivery retries do not duplicate rows.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	meta := []byte("{}")
	if len(n.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(n.Metadata); err != nil {
			return err
		}
	}
	const q = `
INSERT INTO notifications (id, user_id, type, title, message, metadata)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q, n.ID, n.UserID, n.Type, n.Title, n.Message, meta).Scan(&n.CreatedAt)
}

// ListForUser returns the newest notifications of a user.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	const q = `
SELECT id, user_id, type, title, message, metadata, created_at
FROM notifications WHERE user_id=$1
ORDER BY created_at DESC, id
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n    model.Notification
			meta []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &meta, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &n.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
