package quizzes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"neurolearn-backend/internal/generation"
)

// PGRepo implements Repo using Postgres. Options and answers live in JSONB
// columns.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const quizColumns = `
id, user_id, document_id, title, difficulty, status, question_count, model,
error_code, error_message, retryable, started_at, completed_at,
created_at, updated_at`

func (r *PGRepo) CreateQuiz(ctx context.Context, q Quiz) error {
	const query = `
INSERT INTO quizzes (id, user_id, document_id, title, difficulty, status, question_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	_, err := r.DB.ExecContext(ctx, query, q.ID, q.UserID, q.DocumentID, q.Title, q.Difficulty, q.Status, q.QuestionCount, q.CreatedAt)
	return err
}

func (r *PGRepo) GetQuiz(ctx context.Context, userID, id string) (Quiz, error) {
	query := `SELECT ` + quizColumns + `
FROM quizzes
WHERE user_id = $1 AND id = $2
LIMIT 1`
	return scanQuiz(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) GetQuizWithQuestions(ctx context.Context, userID, id string) (Quiz, error) {
	quiz, err := r.GetQuiz(ctx, userID, id)
	if err != nil {
		return Quiz{}, err
	}

	const query = `
SELECT id, quiz_id, position, prompt, options, correct_index, explanation
FROM quiz_questions
WHERE quiz_id = $1
ORDER BY position`
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return Quiz{}, err
	}
	defer rows.Close()

	quiz.Questions = make([]Question, 0, quiz.QuestionCount)
	for rows.Next() {
		var q Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Position, &q.Prompt, &options, &q.CorrectIndex, &q.Explanation); err != nil {
			return Quiz{}, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return Quiz{}, fmt.Errorf("decode options for question %s: %w", q.ID, err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz, rows.Err()
}

func (r *PGRepo) ListQuizzes(ctx context.Context, userID string, filter ListFilter) ([]Quiz, error) {
	query := `SELECT ` + quizColumns + `
FROM quizzes
WHERE user_id = $1`
	args := []any{userID}

	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		query += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Quiz, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *PGRepo) Claim(ctx context.Context, id string, at time.Time) (Quiz, bool, error) {
	query := `
UPDATE quizzes
SET status = 'processing', started_at = $2, updated_at = $2
WHERE id = $1 AND status = 'queued'
RETURNING ` + quizColumns
	q, err := scanQuiz(r.DB.QueryRowContext(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quiz{}, false, nil
		}
		return Quiz{}, false, err
	}
	return q, true, nil
}

func (r *PGRepo) ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Quiz, error) {
	query := `
UPDATE quizzes
SET status = 'processing', started_at = $2, updated_at = $2
WHERE id IN (
    SELECT id FROM quizzes
    WHERE status = 'queued'
    ORDER BY created_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + quizColumns

	rows, err := r.DB.QueryContext(ctx, query, limit, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *PGRepo) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
UPDATE quizzes
SET status = 'queued', started_at = NULL, updated_at = now()
WHERE status = 'processing' AND updated_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (r *PGRepo) Complete(ctx context.Context, quizID string, questions []Question, model string, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const quizQuery = `
UPDATE quizzes
SET status = 'completed', question_count = $2, model = $3,
    error_code = '', error_message = '', retryable = FALSE,
    completed_at = $4, updated_at = $4
WHERE id = $1 AND status = 'processing'`
	res, err := tx.ExecContext(ctx, quizQuery, quizID, len(questions), model, at)
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

	const questionQuery = `
INSERT INTO quiz_questions (id, quiz_id, position, prompt, options, correct_index, explanation)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, questionQuery, q.ID, quizID, q.Position, q.Prompt, options, q.CorrectIndex, q.Explanation); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PGRepo) Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error {
	const query = `
UPDATE quizzes
SET status = 'failed', error_code = $2, error_message = $3, retryable = $4,
    completed_at = $5, updated_at = $5
WHERE id = $1 AND status = 'processing'`
	res, err := r.DB.ExecContext(ctx, query, id, f.Code, f.Message, f.Retryable, at)
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

func (r *PGRepo) CreateAttempt(ctx context.Context, a Attempt) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO quiz_attempts (id, quiz_id, user_id, answers, score, correct_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.DB.ExecContext(ctx, query, a.ID, a.QuizID, a.UserID, answers, a.Score, a.CorrectCount, a.CreatedAt)
	return err
}

func (r *PGRepo) ListAttempts(ctx context.Context, userID, quizID string, limit, offset int) ([]Attempt, error) {
	const query = `
SELECT id, quiz_id, user_id, answers, score, correct_count, created_at
FROM quiz_attempts
WHERE user_id = $1 AND quiz_id = $2
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`
	rows, err := r.DB.QueryContext(ctx, query, userID, quizID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Attempt, 0)
	for rows.Next() {
		var a Attempt
		var answers []byte
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &answers, &a.Score, &a.CorrectCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for attempt %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepo) DeleteQuiz(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM quizzes WHERE user_id = $1 AND id = $2`
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

func (r *PGRepo) CompletedByDay(ctx context.Context, userID string, from, to time.Time) (map[string]int, error) {
	const query = `
SELECT to_char(completed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD'), count(*)
FROM quizzes
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var q Quiz
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&q.ID,
		&q.UserID,
		&q.DocumentID,
		&q.Title,
		&q.Difficulty,
		&q.Status,
		&q.QuestionCount,
		&q.Model,
		&q.ErrorCode,
		&q.ErrorMessage,
		&q.Retryable,
		&startedAt,
		&completedAt,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrNotFound
		}
		return Quiz{}, err
	}
	if startedAt.Valid {
		t := startedAt.Time
		q.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		q.CompletedAt = &t
	}
	return q, nil
}
