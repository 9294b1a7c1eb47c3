// Package generation holds the lifecycle pieces shared by the AI content
// pipelines (summaries, flashcard decks, quizzes): status constants, failure
// classification and the persisted error shape.
package generation

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Failure is the error recorded on a generation row when its pipeline fails.
type Failure struct {
	Code      string
	Message   string
	Retryable bool
}

// Timing captures when a pipeline run started and finished.
type Timing struct {
	StartedAt   time.Time
	CompletedAt time.Time
}

func (t Timing) Duration() time.Duration {
	return t.CompletedAt.Sub(t.StartedAt)
}
