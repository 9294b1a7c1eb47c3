package schedule

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is the in-memory Repo used when no database is configured.
type MemoryRepo struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: make(map[string]*Task)}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) Create(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.UpdatedAt = t.CreatedAt
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = &t
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return Task{}, ErrNotFound
	}
	return *task, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	var out []Task
	for _, task := range r.tasks {
		if task.UserID != userID {
			continue
		}
		if filter.From != nil && (task.DueAt == nil || task.DueAt.Before(*filter.From)) {
			continue
		}
		if filter.To != nil && (task.DueAt == nil || !task.DueAt.Before(*filter.To)) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		out = append(out, *task)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueAt == nil && b.DueAt == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		case a.DueAt.Equal(*b.DueAt):
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.DueAt.Before(*b.DueAt)
		}
	})

	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Offset >= len(out) {
		return []Task{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return ErrNotFound
	}
	r.tasks[t.ID] = &t
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryRepo) DueBetween(ctx context.Context, userID string, from, to time.Time) ([]Task, error) {
	f, t := from, to
	return r.ListByUser(ctx, userID, ListFilter{From: &f, To: &t})
}

func (r *MemoryRepo) CountOverdue(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, task := range r.tasks {
		if task.UserID == userID && task.Status == StatusPending && task.DueAt != nil && task.DueAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}
