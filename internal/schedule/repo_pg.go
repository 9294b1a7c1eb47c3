package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const taskColumns = `
id, user_id, title, notes, kind, status, due_at, completed_at, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, t Task) error {
	const query = `
INSERT INTO tasks (id, user_id, title, notes, kind, status, due_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	_, err := r.DB.ExecContext(ctx, query, t.ID, t.UserID, t.Title, t.Notes, t.Kind, t.Status, t.DueAt, t.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Task, error) {
	query := `SELECT ` + taskColumns + `
FROM tasks
WHERE user_id = $1 AND id = $2
LIMIT 1`
	return scanTask(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + `
FROM tasks
WHERE user_id = $1`
	args := []any{userID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND due_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND due_at < $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY due_at NULLS LAST, created_at LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return r.queryTasks(ctx, query, args...)
}

func (r *PGRepo) Update(ctx context.Context, t Task) error {
	const query = `
UPDATE tasks
SET title = $3, notes = $4, kind = $5, status = $6, due_at = $7, completed_at = $8, updated_at = $9
WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, t.UserID, t.ID, t.Title, t.Notes, t.Kind, t.Status, t.DueAt, t.CompletedAt, t.UpdatedAt)
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

func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM tasks WHERE user_id = $1 AND id = $2`
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

func (r *PGRepo) DueBetween(ctx context.Context, userID string, from, to time.Time) ([]Task, error) {
	query := `SELECT ` + taskColumns + `
FROM tasks
WHERE user_id = $1 AND due_at >= $2 AND due_at < $3
ORDER BY due_at`
	return r.queryTasks(ctx, query, userID, from, to)
}

func (r *PGRepo) CountOverdue(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	const query = `
SELECT count(*)
FROM tasks
WHERE user_id = $1 AND status = 'pending' AND due_at IS NOT NULL AND due_at < $2`
	var n int
	err := r.DB.QueryRowContext(ctx, query, userID, cutoff).Scan(&n)
	return n, err
}

func (r *PGRepo) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var dueAt, completedAt sql.NullTime
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Notes,
		&t.Kind,
		&t.Status,
		&dueAt,
		&completedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	if dueAt.Valid {
		d := dueAt.Time
		t.DueAt = &d
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return t, nil
}
