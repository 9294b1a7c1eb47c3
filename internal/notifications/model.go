package notifications

import "time"

const (
	KindWelcome          = "welcome"
	KindOnboarding       = "onboarding_complete"
	KindSummaryReady     = "summary_ready"
	KindSummaryFailed    = "summary_failed"
	KindFlashcardsReady  = "flashcards_ready"
	KindFlashcardsFailed = "flashcards_failed"
	KindQuizReady        = "quiz_ready"
	KindQuizFailed       = "quiz_failed"
)

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
