package summaries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"neurolearn-backend/internal/generation"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const summaryColumns = `
id, user_id, document_id, title, format, status, content, word_count, model,
error_code, error_message, retryable, is_favorite, started_at, completed_at,
created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, s Summary) error {
	const query = `
INSERT INTO summaries (id, user_id, document_id, title, format, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := r.DB.ExecContext(ctx, query, s.ID, s.UserID, s.DocumentID, s.Title, s.Format, s.Status, s.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Summary, error) {
	query := `SELECT ` + summaryColumns + `
FROM summaries
WHERE user_id = $1 AND id = $2
LIMIT 1`
	return scanSummary(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Summary, error) {
	query := `SELECT ` + summaryColumns + `
FROM summaries
WHERE user_id = $1`
	args := []any{userID}

	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		query += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	if filter.FavoriteOnly {
		query += " AND is_favorite"
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) Claim(ctx context.Context, id string, at time.Time) (Summary, bool, error) {
	query := `
UPDATE summaries
SET status = 'processing', started_at = $2, updated_at = $2
WHERE id = $1 AND status = 'queued'
RETURNING ` + summaryColumns
	s, err := scanSummary(r.DB.QueryRowContext(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Summary{}, false, nil
		}
		return Summary{}, false, err
	}
	return s, true, nil
}

func (r *PGRepo) ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Summary, error) {
	query := `
UPDATE summaries
SET status = 'processing', started_at = $2, updated_at = $2
WHERE id IN (
    SELECT id FROM summaries
    WHERE status = 'queued'
    ORDER BY created_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + summaryColumns

	rows, err := r.DB.QueryContext(ctx, query, limit, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
UPDATE summaries
SET status = 'queued', started_at = NULL, updated_at = now()
WHERE status = 'processing' AND updated_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (r *PGRepo) Complete(ctx context.Context, id, content string, wordCount int, model string, at time.Time) error {
	const query = `
UPDATE summaries
SET status = 'completed', content = $2, word_count = $3, model = $4,
    error_code = '', error_message = '', retryable = FALSE,
    completed_at = $5, updated_at = $5
WHERE id = $1 AND status = 'processing'`
	return execExpectingRow(ctx, r.DB, query, id, content, wordCount, model, at)
}

func (r *PGRepo) Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error {
	const query = `
UPDATE summaries
SET status = 'failed', error_code = $2, error_message = $3, retryable = $4,
    completed_at = $5, updated_at = $5
WHERE id = $1 AND status = 'processing'`
	return execExpectingRow(ctx, r.DB, query, id, f.Code, f.Message, f.Retryable, at)
}

func (r *PGRepo) UpdateMeta(ctx context.Context, userID, id string, update MetaUpdate) (Summary, error) {
	query := `UPDATE summaries SET updated_at = now()`
	args := []any{userID, id}

	if update.Title != nil {
		args = append(args, *update.Title)
		query += fmt.Sprintf(", title = $%d", len(args))
	}
	if update.IsFavorite != nil {
		args = append(args, *update.IsFavorite)
		query += fmt.Sprintf(", is_favorite = $%d", len(args))
	}
	query += ` WHERE user_id = $1 AND id = $2 RETURNING ` + summaryColumns

	return scanSummary(r.DB.QueryRowContext(ctx, query, args...))
}

func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM summaries WHERE user_id = $1 AND id = $2`
	return execExpectingRow(ctx, r.DB, query, userID, id)
}

func (r *PGRepo) CompletedByDay(ctx context.Context, userID string, from, to time.Time) (map[string]int, error) {
	const query = `
SELECT to_char(completed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD'), count(*)
FROM summaries
WHERE user_id = $1 AND status = 'completed' AND completed_at >= $2 AND completed_at < $3
GROUP BY 1`
	rows, err := r.DB.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out[day] = n
	}
	return out, rows.Err()
}

func execExpectingRow(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (Summary, error) {
	var s Summary
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.DocumentID,
		&s.Title,
		&s.Format,
		&s.Status,
		&s.Content,
		&s.WordCount,
		&s.Model,
		&s.ErrorCode,
		&s.ErrorMessage,
		&s.Retryable,
		&s.IsFavorite,
		&startedAt,
		&completedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, err
	}
	if startedAt.Valid {
		t := startedAt.Time
		s.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return s, nil
}
