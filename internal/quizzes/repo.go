package quizzes

import (
	"context"
	"time"

	"neurolearn-backend/internal/generation"
)

// ListFilter narrows a user's quiz listing.
type ListFilter struct {
	DocumentID string
	Status     string
	Limit      int
	Offset     int
}

// Repo defines persistence for quizzes, their questions and attempts.
type Repo interface {
	CreateQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, userID, id string) (Quiz, error)
	GetQuizWithQuestions(ctx context.Context, userID, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, userID string, filter ListFilter) ([]Quiz, error)

	Claim(ctx context.Context, id string, at time.Time) (Quiz, bool, error)
	ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Quiz, error)
	RequeueStale(ctx context.Context, cutoff time.Time) (int, error)

	// Complete stores the generated questions and marks the quiz completed
	// in one transaction.
	Complete(ctx context.Context, quizID string, questions []Question, model string, at time.Time) error
	Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error

	CreateAttempt(ctx context.Context, a Attempt) error
	ListAttempts(ctx context.Context, userID, quizID string, limit, offset int) ([]Attempt, error)
	DeleteQuiz(ctx context.Context, userID, id string) error

	// CompletedByDay counts completed quizzes per UTC day (YYYY-MM-DD keys)
	// within [from, to). Feeds the schedule view.
	CompletedByDay(ctx context.Context, userID string, from, to time.Time) (map[string]int, error)
}
