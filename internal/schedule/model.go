package schedule

import "time"

// Task kinds.
const (
	KindStudy      = "study"
	KindReview     = "review"
	KindAssignment = "assignment"
	KindOther      = "other"
)

// Task statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// Task is one planner item. CompletedAt is stamped when status flips to done
// and cleared when it reverts.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func ValidKind(kind string) bool {
	switch kind {
	case KindStudy, KindReview, KindAssignment, KindOther:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	return status == StatusPending || status == StatusDone
}
