package profiles

import (
	"context"
	"time"
)

type Repo interface {
	Upsert(ctx context.Context, p Profile) error
	GetByID(ctx context.Context, userID string) (Profile, error)
	Update(ctx context.Context, p Profile) error
	CompleteOnboarding(ctx context.Context, userID, studyGoal string, dailyGoalMinutes int, at time.Time) error
	SetPlan(ctx context.Context, userID, plan string, at time.Time) error
	List(ctx context.Context, query string, limit, offset int) ([]Profile, error)
	Count(ctx context.Context) (int, error)
}
