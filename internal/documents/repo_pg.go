package documents

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

const docColumns = `
id, user_id, file_name, original_filename, mime_type, kind, size_bytes,
storage_provider, storage_key, extracted_text_key, extracted_at, char_count,
status, error_message, created_at`

func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id, user_id, file_name, original_filename, mime_type, kind, size_bytes,
    storage_provider, storage_key, status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	originalName := doc.OriginalFilename
	if originalName == "" {
		originalName = doc.FileName
	}
	provider := doc.StorageProvider
	if provider == "" {
		provider = "local"
	}
	status := doc.Status
	if status == "" {
		status = StatusUploaded
	}

	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		originalName,
		doc.MimeType,
		doc.Kind,
		doc.SizeBytes,
		provider,
		doc.StorageKey,
		status,
		doc.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID, id string) (Document, error) {
	query := `SELECT ` + docColumns + `
FROM documents
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, userID, id))
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	query := `SELECT ` + docColumns + `
FROM documents
WHERE user_id = $1 AND deleted_at IS NULL`
	args := []any{userID}

	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
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

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *PGRepo) MarkExtracting(ctx context.Context, userID, id string) (bool, error) {
	const query = `
UPDATE documents
SET status = $3, error_message = ''
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL AND extracted_text_key IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, id, StatusExtracting)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// Either the document is gone or it was already extracted.
	if _, err := r.GetByID(ctx, userID, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PGRepo) SetExtracted(ctx context.Context, userID, id, extractedKey string, charCount int, at time.Time) error {
	const query = `
UPDATE documents
SET extracted_text_key = $3, extracted_at = $4, char_count = $5,
    status = $6, error_message = ''
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL AND extracted_text_key IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, id, extractedKey, at, charCount, StatusReady)
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

func (r *PGRepo) SetFailed(ctx context.Context, userID, id, message string) error {
	const query = `
UPDATE documents
SET status = $3, error_message = $4
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, id, StatusFailed, message)
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

func (r *PGRepo) SoftDelete(ctx context.Context, userID, id string, at time.Time) error {
	const query = `
UPDATE documents
SET deleted_at = $3
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, id, at)
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

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var extractedKey sql.NullString
	var extractedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.OriginalFilename,
		&doc.MimeType,
		&doc.Kind,
		&doc.SizeBytes,
		&doc.StorageProvider,
		&doc.StorageKey,
		&extractedKey,
		&extractedAt,
		&doc.CharCount,
		&doc.Status,
		&doc.ErrorMessage,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if extractedKey.Valid {
		doc.ExtractedTextKey = extractedKey.String
	}
	if extractedAt.Valid {
		t := extractedAt.Time
		doc.ExtractedAt = &t
	}
	return doc, nil
}
