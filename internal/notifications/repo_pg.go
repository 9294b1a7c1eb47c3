package notifications

import (
	"context"
	"database/sql"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

func (r *PGRepo) Create(ctx context.Context, n Notification) error {
	const query = `
INSERT INTO notifications (id, user_id, kind, title, body, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.CreatedAt)
	return err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Notification, error) {
	query := `
SELECT id, user_id, kind, title, body, read_at, created_at
FROM notifications
WHERE user_id = $1`
	args := []any{userID}
	if filter.UnreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += `
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PGRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	const query = `SELECT count(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PGRepo) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	const query = `
UPDATE notifications SET read_at = $3
WHERE user_id = $1 AND id = $2 AND read_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, id, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Already-read rows are fine; only a missing row is an error.
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM notifications WHERE user_id = $1 AND id = $2)`
		if err := r.DB.QueryRowContext(ctx, check, userID, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (r *PGRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	const query = `UPDATE notifications SET read_at = $2 WHERE user_id = $1 AND read_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, userID, at)
	return err
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM notifications WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, userID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
