package quizzes

import (
	"context"
	"sort"
	"sync"
	"time"

	"neurolearn-backend/internal/generation"
)

// MemoryRepo is the in-memory Repo used when no database is configured.
type MemoryRepo struct {
	mu        sync.Mutex
	quizzes   map[string]*Quiz
	questions map[string][]Question // quiz id -> questions in position order
	attempts  map[string][]Attempt  // quiz id -> attempts newest first
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		quizzes:   make(map[string]*Quiz),
		questions: make(map[string][]Question),
		attempts:  make(map[string][]Attempt),
	}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) CreateQuiz(ctx context.Context, q Quiz) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.Questions = nil
	q.UpdatedAt = q.CreatedAt
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[q.ID] = &q
	return nil
}

func (r *MemoryRepo) GetQuiz(ctx context.Context, userID, id string) (Quiz, error) {
	if err := ctx.Err(); err != nil {
		return Quiz{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok || quiz.UserID != userID {
		return Quiz{}, ErrNotFound
	}
	return *quiz, nil
}

func (r *MemoryRepo) GetQuizWithQuestions(ctx context.Context, userID, id string) (Quiz, error) {
	quiz, err := r.GetQuiz(ctx, userID, id)
	if err != nil {
		return Quiz{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz.Questions = append([]Question(nil), r.questions[id]...)
	return quiz, nil
}

func (r *MemoryRepo) ListQuizzes(ctx context.Context, userID string, filter ListFilter) ([]Quiz, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	var out []Quiz
	for _, quiz := range r.quizzes {
		if quiz.UserID != userID {
			continue
		}
		if filter.DocumentID != "" && quiz.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Status != "" && quiz.Status != filter.Status {
			continue
		}
		out = append(out, *quiz)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Offset >= len(out) {
		return []Quiz{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) Claim(ctx context.Context, id string, at time.Time) (Quiz, bool, error) {
	if err := ctx.Err(); err != nil {
		return Quiz{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok || quiz.Status != generation.StatusQueued {
		return Quiz{}, false, nil
	}
	quiz.Status = generation.StatusProcessing
	quiz.StartedAt = &at
	quiz.UpdatedAt = at
	return *quiz, true, nil
}

func (r *MemoryRepo) ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Quiz, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var queued []*Quiz
	for _, quiz := range r.quizzes {
		if quiz.Status == generation.StatusQueued {
			queued = append(queued, quiz)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		return queued[i].CreatedAt.Before(queued[j].CreatedAt)
	})
	if limit > 0 && len(queued) > limit {
		queued = queued[:limit]
	}

	out := make([]Quiz, 0, len(queued))
	for _, quiz := range queued {
		quiz.Status = generation.StatusProcessing
		quiz.StartedAt = &at
		quiz.UpdatedAt = at
		out = append(out, *quiz)
	}
	return out, nil
}

func (r *MemoryRepo) RequeueStale(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, quiz := range r.quizzes {
		if quiz.Status == generation.StatusProcessing && quiz.UpdatedAt.Before(cutoff) {
			quiz.Status = generation.StatusQueued
			quiz.StartedAt = nil
			quiz.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Complete(ctx context.Context, quizID string, questions []Question, model string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[quizID]
	if !ok || quiz.Status != generation.StatusProcessing {
		return ErrNotFound
	}
	stored := make([]Question, len(questions))
	for i, q := range questions {
		q.QuizID = quizID
		stored[i] = q
	}
	r.questions[quizID] = stored
	quiz.Status = generation.StatusCompleted
	quiz.QuestionCount = len(questions)
	quiz.Model = model
	quiz.ErrorCode = ""
	quiz.ErrorMessage = ""
	quiz.Retryable = false
	quiz.CompletedAt = &at
	quiz.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok || quiz.Status != generation.StatusProcessing {
		return ErrNotFound
	}
	quiz.Status = generation.StatusFailed
	quiz.ErrorCode = f.Code
	quiz.ErrorMessage = f.Message
	quiz.Retryable = f.Retryable
	quiz.CompletedAt = &at
	quiz.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) CreateAttempt(ctx context.Context, a Attempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[a.QuizID] = append([]Attempt{a}, r.attempts[a.QuizID]...)
	return nil
}

func (r *MemoryRepo) ListAttempts(ctx context.Context, userID, quizID string, limit, offset int) ([]Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Attempt
	for _, a := range r.attempts[quizID] {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []Attempt{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) CompletedByDay(ctx context.Context, userID string, from, to time.Time) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, quiz := range r.quizzes {
		if quiz.UserID != userID || quiz.Status != generation.StatusCompleted || quiz.CompletedAt == nil {
			continue
		}
		at := quiz.CompletedAt.UTC()
		if at.Before(from) || !at.Before(to) {
			continue
		}
		out[at.Format("2006-01-02")]++
	}
	return out, nil
}

func (r *MemoryRepo) DeleteQuiz(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok || quiz.UserID != userID {
		return ErrNotFound
	}
	delete(r.quizzes, id)
	delete(r.questions, id)
	delete(r.attempts, id)
	return nil
}
