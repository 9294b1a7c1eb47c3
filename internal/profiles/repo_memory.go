package profiles

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]Profile
}

var _ Repo = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[string]Profile)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := r.items[p.UserID]
	if ok {
		existing.Email = p.Email
		existing.FullName = p.FullName
		existing.AvatarURL = p.AvatarURL
		existing.UpdatedAt = now
		r.items[p.UserID] = existing
		return nil
	}
	p.Role = RoleMember
	p.Plan = PlanFree
	p.CreatedAt = now
	p.UpdatedAt = now
	r.items[p.UserID] = p
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Update(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[p.UserID]
	if !ok {
		return ErrNotFound
	}
	existing.FullName = p.FullName
	existing.StudyGoal = p.StudyGoal
	existing.DailyGoalMinutes = p.DailyGoalMinutes
	existing.UpdatedAt = time.Now().UTC()
	r.items[p.UserID] = existing
	return nil
}

func (r *MemoryRepo) CompleteOnboarding(ctx context.Context, userID, studyGoal string, dailyGoalMinutes int, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[userID]
	if !ok {
		return ErrNotFound
	}
	if existing.OnboardedAt != nil {
		return ErrAlreadyOnboarded
	}
	existing.StudyGoal = studyGoal
	existing.DailyGoalMinutes = dailyGoalMinutes
	existing.OnboardedAt = &at
	existing.UpdatedAt = time.Now().UTC()
	r.items[userID] = existing
	return nil
}

func (r *MemoryRepo) SetPlan(ctx context.Context, userID, plan string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.items[userID]
	if !ok {
		return ErrNotFound
	}
	existing.Plan = plan
	existing.UpdatedAt = at
	r.items[userID] = existing
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, query string, limit, offset int) ([]Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]Profile, 0)
	needle := strings.ToLower(query)
	for _, p := range r.items {
		if needle != "" && !strings.Contains(strings.ToLower(p.Email), needle) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []Profile{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}
