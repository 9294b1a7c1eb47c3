package flashcards

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

const deckColumns = `
id, user_id, document_id, title, status, card_count, model,
error_code, error_message, retryable, started_at, completed_at,
created_at, updated_at`

const cardColumns = `
id, deck_id, position, front, back, hint, times_reviewed, times_correct,
correct_streak, mastered, last_reviewed_at`

func (r *PGRepo) CreateDeck(ctx context.Context, d Deck) error {
	const query = `
INSERT INTO flashcard_decks (id, user_id, document_id, title, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
	_, err := r.DB.ExecContext(ctx, query, d.ID, d.UserID, d.DocumentID, d.Title, d.Status, d.CreatedAt)
	return err
}

func (r *PGRepo) GetDeck(ctx context.Context, userID, id string) (Deck, error) {
	query := `SELECT ` + deckColumns + `
FROM flashcard_decks
WHERE user_id = $1 AND id = $2
LIMIT 1`
	return scanDeck(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) GetDeckWithCards(ctx context.Context, userID, id string) (Deck, error) {
	deck, err := r.GetDeck(ctx, userID, id)
	if err != nil {
		return Deck{}, err
	}

	query := `SELECT ` + cardColumns + `
FROM flashcards
WHERE deck_id = $1
ORDER BY position`
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return Deck{}, err
	}
	defer rows.Close()

	deck.Cards = make([]Card, 0, deck.CardCount)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return Deck{}, err
		}
		deck.Cards = append(deck.Cards, card)
	}
	return deck, rows.Err()
}

func (r *PGRepo) ListDecks(ctx context.Context, userID string, filter ListFilter) ([]Deck, error) {
	query := `SELECT ` + deckColumns + `
FROM flashcard_decks
WHERE user_id = $1`
	args := []any{userID}

	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		query += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Deck, 0)
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PGRepo) Claim(ctx context.Context, id string, at time.Time) (Deck, bool, error) {
	query := `
UPDATE flashcard_decks
SET status = 'processing', started_at = $2, updated_at = $2
WHERE id = $1 AND status = 'queued'
RETURNING ` + deckColumns
	d, err := scanDeck(r.DB.QueryRowContext(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Deck{}, false, nil
		}
		return Deck{}, false, err
	}
	return d, true, nil
}

func (r *PGRepo) ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Deck, error) {
	query := `
UPDATE flashcard_decks
SET status = 'processing', started_at = $2, updated_at = $2
WHERE id IN (
    SELECT id FROM flashcard_decks
    WHERE status = 'queued'
    ORDER BY created_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + deckColumns

	rows, err := r.DB.QueryContext(ctx, query, limit, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PGRepo) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
UPDATE flashcard_decks
SET status = 'queued', started_at = NULL, updated_at = now()
WHERE status = 'processing' AND updated_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (r *PGRepo) Complete(ctx context.Context, deckID string, cards []Card, model string, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const deckQuery = `
UPDATE flashcard_decks
SET status = 'completed', card_count = $2, model = $3,
    error_code = '', error_message = '', retryable = FALSE,
    completed_at = $4, updated_at = $4
WHERE id = $1 AND status = 'processing'`
	res, err := tx.ExecContext(ctx, deckQuery, deckID, len(cards), model, at)
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

	const cardQuery = `
INSERT INTO flashcards (id, deck_id, position, front, back, hint)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, card := range cards {
		if _, err := tx.ExecContext(ctx, cardQuery, card.ID, deckID, card.Position, card.Front, card.Back, card.Hint); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PGRepo) Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error {
	const query = `
UPDATE flashcard_decks
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

func (r *PGRepo) ReviewCard(ctx context.Context, userID, deckID, cardID string, correct bool, at time.Time) (Card, error) {
	// Ownership check rides on the deck join; the streak math lives in SQL
	// so concurrent reviews of the same card stay consistent.
	query := `
UPDATE flashcards f
SET times_reviewed = f.times_reviewed + 1,
    times_correct = f.times_correct + CASE WHEN $4 THEN 1 ELSE 0 END,
    correct_streak = CASE WHEN $4 THEN f.correct_streak + 1 ELSE 0 END,
    mastered = CASE WHEN $4 THEN f.correct_streak + 1 >= $5 ELSE FALSE END,
    last_reviewed_at = $6
FROM flashcard_decks d
WHERE f.id = $3 AND f.deck_id = $2 AND d.id = f.deck_id AND d.user_id = $1
RETURNING ` + cardColumnsQualified
	card, err := scanCard(r.DB.QueryRowContext(ctx, query, userID, deckID, cardID, correct, masteryStreak, at))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Card{}, ErrCardNotFound
		}
		return Card{}, err
	}
	return card, nil
}

const cardColumnsQualified = `
f.id, f.deck_id, f.position, f.front, f.back, f.hint, f.times_reviewed,
f.times_correct, f.correct_streak, f.mastered, f.last_reviewed_at`

func (r *PGRepo) DeleteDeck(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM flashcard_decks WHERE user_id = $1 AND id = $2`
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
FROM flashcard_decks
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

func scanDeck(row rowScanner) (Deck, error) {
	var d Deck
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.DocumentID,
		&d.Title,
		&d.Status,
		&d.CardCount,
		&d.Model,
		&d.ErrorCode,
		&d.ErrorMessage,
		&d.Retryable,
		&startedAt,
		&completedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deck{}, ErrNotFound
		}
		return Deck{}, err
	}
	if startedAt.Valid {
		t := startedAt.Time
		d.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		d.CompletedAt = &t
	}
	return d, nil
}

func scanCard(row rowScanner) (Card, error) {
	var c Card
	var lastReviewed sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.DeckID,
		&c.Position,
		&c.Front,
		&c.Back,
		&c.Hint,
		&c.TimesReviewed,
		&c.TimesCorrect,
		&c.CorrectStreak,
		&c.Mastered,
		&lastReviewed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Card{}, ErrNotFound
		}
		return Card{}, err
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		c.LastReviewedAt = &t
	}
	return c, nil
}
