package summaries

import (
	"context"
	"time"

	"neurolearn-backend/internal/generation"
)

// ListFilter narrows a user's summary listing.
type ListFilter struct {
	DocumentID   string
	FavoriteOnly bool
	Limit        int
	Offset       int
}

// MetaUpdate carries the client-editable summary fields. Nil pointers leave
// the stored value untouched.
type MetaUpdate struct {
	Title      *string
	IsFavorite *bool
}

// Repo defines persistence for summaries. Claim operations flip rows from
// queued to processing atomically so a summary is never generated twice.
type Repo interface {
	Create(ctx context.Context, s Summary) error
	GetByID(ctx context.Context, userID, id string) (Summary, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Summary, error)

	// Claim flips one queued row to processing. ok is false when the row is
	// not queued anymore (some other runner got it, or it already finished).
	Claim(ctx context.Context, id string, at time.Time) (Summary, bool, error)
	// ClaimQueued flips up to limit queued rows to processing, oldest first.
	ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Summary, error)
	// RequeueStale returns processing rows untouched since the cutoff to the
	// queue. Crash recovery for dead runners.
	RequeueStale(ctx context.Context, cutoff time.Time) (int, error)

	Complete(ctx context.Context, id, content string, wordCount int, model string, at time.Time) error
	Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error

	UpdateMeta(ctx context.Context, userID, id string, update MetaUpdate) (Summary, error)
	Delete(ctx context.Context, userID, id string) error

	// CompletedByDay counts completed summaries per UTC day (YYYY-MM-DD
	// keys) within [from, to). Feeds the schedule view.
	CompletedByDay(ctx context.Context, userID string, from, to time.Time) (map[string]int, error)
}
