package summaries

import (
	"context"
	"sort"
	"sync"
	"time"

	"neurolearn-backend/internal/generation"
)

// MemoryRepo is the in-memory Repo used when no database is configured.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]*Summary // id -> summary
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]*Summary)}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) Create(ctx context.Context, s Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.UpdatedAt = s.CreatedAt
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[s.ID] = &s
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, id string) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.UserID != userID {
		return Summary{}, ErrNotFound
	}
	return *row, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	var out []Summary
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		if filter.DocumentID != "" && row.DocumentID != filter.DocumentID {
			continue
		}
		if filter.FavoriteOnly && !row.IsFavorite {
			continue
		}
		out = append(out, *row)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r *MemoryRepo) Claim(ctx context.Context, id string, at time.Time) (Summary, bool, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Status != generation.StatusQueued {
		return Summary{}, false, nil
	}
	row.Status = generation.StatusProcessing
	row.StartedAt = &at
	row.UpdatedAt = at
	return *row, true, nil
}

func (r *MemoryRepo) ClaimQueued(ctx context.Context, limit int, at time.Time) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var queued []*Summary
	for _, row := range r.rows {
		if row.Status == generation.StatusQueued {
			queued = append(queued, row)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		return queued[i].CreatedAt.Before(queued[j].CreatedAt)
	})
	if limit > 0 && len(queued) > limit {
		queued = queued[:limit]
	}

	out := make([]Summary, 0, len(queued))
	for _, row := range queued {
		row.Status = generation.StatusProcessing
		row.StartedAt = &at
		row.UpdatedAt = at
		out = append(out, *row)
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
	for _, row := range r.rows {
		if row.Status == generation.StatusProcessing && row.UpdatedAt.Before(cutoff) {
			row.Status = generation.StatusQueued
			row.StartedAt = nil
			row.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Complete(ctx context.Context, id, content string, wordCount int, model string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Status != generation.StatusProcessing {
		return ErrNotFound
	}
	row.Status = generation.StatusCompleted
	row.Content = content
	row.WordCount = wordCount
	row.Model = model
	row.ErrorCode = ""
	row.ErrorMessage = ""
	row.Retryable = false
	row.CompletedAt = &at
	row.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) Fail(ctx context.Context, id string, f generation.Failure, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.Status != generation.StatusProcessing {
		return ErrNotFound
	}
	row.Status = generation.StatusFailed
	row.ErrorCode = f.Code
	row.ErrorMessage = f.Message
	row.Retryable = f.Retryable
	row.CompletedAt = &at
	row.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) UpdateMeta(ctx context.Context, userID, id string, update MetaUpdate) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.UserID != userID {
		return Summary{}, ErrNotFound
	}
	if update.Title != nil {
		row.Title = *update.Title
	}
	if update.IsFavorite != nil {
		row.IsFavorite = *update.IsFavorite
	}
	row.UpdatedAt = time.Now().UTC()
	return *row, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.UserID != userID {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepo) CompletedByDay(ctx context.Context, userID string, from, to time.Time) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, row := range r.rows {
		if row.UserID != userID || row.Status != generation.StatusCompleted || row.CompletedAt == nil {
			continue
		}
		at := row.CompletedAt.UTC()
		if at.Before(from) || !at.Before(to) {
			continue
		}
		out[at.Format("2006-01-02")]++
	}
	return out, nil
}

func paginate(rows []Summary, limit, offset int) []Summary {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []Summary{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
