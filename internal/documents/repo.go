package documents

import (
	"context"
	"time"
)

// ListFilter narrows a user's document listing. Empty fields match all.
type ListFilter struct {
	Kind   string
	Status string
	Limit  int
	Offset int
}

// Repo defines persistence operations for documents. All reads and writes
// are scoped to the owning user in the same statement.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, id string) (Document, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error)

	// MarkExtracting flips an unextracted document to the extracting status.
	// It reports false when the document was already extracted, keeping
	// repeated extraction requests no-ops.
	MarkExtracting(ctx context.Context, userID, id string) (bool, error)
	SetExtracted(ctx context.Context, userID, id, extractedKey string, charCount int, at time.Time) error
	SetFailed(ctx context.Context, userID, id, message string) error

	SoftDelete(ctx context.Context, userID, id string, at time.Time) error
}
