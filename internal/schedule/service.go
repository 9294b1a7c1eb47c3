package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"neurolearn-backend/internal/shared/cache"
	"neurolearn-backend/internal/shared/logging"
)

// Service contains the task planner logic and the cached schedule view.
type Service struct {
	Repo    Repo
	Cache   cache.Cache
	TTL     time.Duration
	Sources []ContentSource
	Log     *logging.Logger

	now func() time.Time
}

// CountFunc reports completed generations per UTC day (YYYY-MM-DD keys)
// within [from, to).
type CountFunc func(ctx context.Context, userID string, from, to time.Time) (map[string]int, error)

// ContentSource contributes per-day generated-content counts to the
// schedule view, e.g. completed summaries or quizzes.
type ContentSource struct {
	Kind   string
	Counts CountFunc
}

func NewService(repo Repo, c cache.Cache, ttl time.Duration, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		Repo:  repo,
		Cache: c,
		TTL:   ttl,
		Log:   log,
		now:   time.Now,
	}
}

// TaskUpdate carries the client-editable task fields. Nil pointers leave
// the stored value untouched; a non-nil DueAt pointing at the zero time
// clears the due date.
type TaskUpdate struct {
	Title  *string
	Notes  *string
	Kind   *string
	Status *string
	DueAt  *time.Time
}

func (s *Service) CreateTask(ctx context.Context, userID, title, notes, kind string, dueAt *time.Time) (Task, error) {
	if userID == "" {
		return Task{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 300 {
		return Task{}, fmt.Errorf("%w: title must be 1-300 characters", ErrInvalidInput)
	}
	if kind == "" {
		kind = KindStudy
	}
	if !ValidKind(kind) {
		return Task{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
	}

	task := Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Notes:     strings.TrimSpace(notes),
		Kind:      kind,
		Status:    StatusPending,
		DueAt:     dueAt,
		CreatedAt: s.now().UTC(),
	}
	if err := s.Repo.Create(ctx, task); err != nil {
		return Task{}, err
	}
	s.invalidate(ctx, userID)
	return task, nil
}

func (s *Service) GetTask(ctx context.Context, userID, id string) (Task, error) {
	if userID == "" || id == "" {
		return Task{}, fmt.Errorf("%w: user id and task id are required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, id)
}

func (s *Service) ListTasks(ctx context.Context, userID string, filter ListFilter) ([]Task, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, filter)
}

// UpdateTask applies a partial update. Flipping status to done stamps
// completed_at; reverting to pending clears it.
func (s *Service) UpdateTask(ctx context.Context, userID, id string, update TaskUpdate) (Task, error) {
	task, err := s.GetTask(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" || len(title) > 300 {
			return Task{}, fmt.Errorf("%w: title must be 1-300 characters", ErrInvalidInput)
		}
		task.Title = title
	}
	if update.Notes != nil {
		task.Notes = strings.TrimSpace(*update.Notes)
	}
	if update.Kind != nil {
		if !ValidKind(*update.Kind) {
			return Task{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, *update.Kind)
		}
		task.Kind = *update.Kind
	}
	if update.Status != nil {
		if !ValidStatus(*update.Status) {
			return Task{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *update.Status)
		}
		if *update.Status != task.Status {
			if *update.Status == StatusDone {
				done := s.now().UTC()
				task.CompletedAt = &done
			} else {
				task.CompletedAt = nil
			}
			task.Status = *update.Status
		}
	}
	if update.DueAt != nil {
		if update.DueAt.IsZero() {
			task.DueAt = nil
		} else {
			due := update.DueAt.UTC()
			task.DueAt = &due
		}
	}

	task.UpdatedAt = s.now().UTC()
	if err := s.Repo.Update(ctx, task); err != nil {
		return Task{}, err
	}
	s.invalidate(ctx, userID)
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, userID, id string) error {
	if userID == "" || id == "" {
		return fmt.Errorf("%w: user id and task id are required", ErrInvalidInput)
	}
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.DeleteByPrefix(ctx, scheduleKeyPrefix(userID)); err != nil {
		s.Log.Warn("schedule.cache_invalidate_failed", "user_id", userID, "error", err.Error())
	}
}
