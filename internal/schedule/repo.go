package schedule

import (
	"context"
	"time"
)

// ListFilter narrows a user's task listing. From/To bound the due window.
type ListFilter struct {
	From   *time.Time
	To     *time.Time
	Status string
	Limit  int
	Offset int
}

// Repo defines persistence for tasks.
type Repo interface {
	Create(ctx context.Context, t Task) error
	GetByID(ctx context.Context, userID, id string) (Task, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Task, error)
	Update(ctx context.Context, t Task) error
	Delete(ctx context.Context, userID, id string) error

	// DueBetween returns tasks with a due date in [from, to), ordered by it.
	DueBetween(ctx context.Context, userID string, from, to time.Time) ([]Task, error)
	// CountOverdue counts pending tasks due before the cutoff.
	CountOverdue(ctx context.Context, userID string, cutoff time.Time) (int, error)
}
