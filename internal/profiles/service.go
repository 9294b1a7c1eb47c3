package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"neurolearn-backend/internal/notifications"
)

const maxDailyGoalMinutes = 1440

// Service contains business logic for profiles and onboarding.
type Service struct {
	Repo  Repo
	Notif *notifications.Service
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the identity from OAuth login. The first login for
// a subject creates the profile row and a welcome notification.
func (s *Service) UpsertFromAuth(ctx context.Context, p Profile) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profiles service not configured")
	}
	if strings.TrimSpace(p.UserID) == "" || strings.TrimSpace(p.Email) == "" {
		return Profile{}, fmt.Errorf("%w: user id and email are required", ErrInvalidInput)
	}

	_, err := s.Repo.GetByID(ctx, p.UserID)
	firstLogin := errors.Is(err, ErrNotFound)
	if err != nil && !firstLogin {
		return Profile{}, err
	}

	if err := s.Repo.Upsert(ctx, p); err != nil {
		return Profile{}, err
	}
	saved, err := s.Repo.GetByID(ctx, p.UserID)
	if err != nil {
		return Profile{}, err
	}

	if firstLogin && s.Notif != nil {
		_, _ = s.Notif.Notify(ctx, saved.UserID, notifications.KindWelcome,
			"Welcome to NeuroLearn", "Upload a document to generate your first summary.")
	}
	return saved, nil
}

func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profiles service not configured")
	}
	if userID == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

// UpdateInput carries the mutable profile fields. Nil pointers leave the
// stored value untouched.
type UpdateInput struct {
	FullName         *string
	StudyGoal        *string
	DailyGoalMinutes *int
}

func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profiles service not configured")
	}
	if userID == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	p, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if len(name) > 200 {
			return Profile{}, fmt.Errorf("%w: fullName too long", ErrInvalidInput)
		}
		p.FullName = name
	}
	if in.StudyGoal != nil {
		goal := strings.TrimSpace(*in.StudyGoal)
		if len(goal) > 500 {
			return Profile{}, fmt.Errorf("%w: studyGoal too long", ErrInvalidInput)
		}
		p.StudyGoal = goal
	}
	if in.DailyGoalMinutes != nil {
		minutes := *in.DailyGoalMinutes
		if minutes < 0 || minutes > maxDailyGoalMinutes {
			return Profile{}, fmt.Errorf("%w: dailyGoalMinutes out of range", ErrInvalidInput)
		}
		p.DailyGoalMinutes = minutes
	}

	if err := s.Repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	return s.Repo.GetByID(ctx, userID)
}

// CompleteOnboarding records the study goal once. Repeat calls surface
// ErrAlreadyOnboarded so the client can treat onboarding as settled.
func (s *Service) CompleteOnboarding(ctx context.Context, userID, studyGoal string, dailyGoalMinutes int) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profiles service not configured")
	}
	if userID == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	studyGoal = strings.TrimSpace(studyGoal)
	if studyGoal == "" {
		return Profile{}, fmt.Errorf("%w: studyGoal is required", ErrInvalidInput)
	}
	if len(studyGoal) > 500 {
		return Profile{}, fmt.Errorf("%w: studyGoal too long", ErrInvalidInput)
	}
	if dailyGoalMinutes <= 0 || dailyGoalMinutes > maxDailyGoalMinutes {
		return Profile{}, fmt.Errorf("%w: dailyGoalMinutes out of range", ErrInvalidInput)
	}

	if err := s.Repo.CompleteOnboarding(ctx, userID, studyGoal, dailyGoalMinutes, time.Now().UTC()); err != nil {
		return Profile{}, err
	}

	if s.Notif != nil {
		_, _ = s.Notif.Notify(ctx, userID, notifications.KindOnboarding,
			"You're all set", "Your study plan is ready. Time to learn something new.")
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) SetPlan(ctx context.Context, userID, plan string) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profiles service not configured")
	}
	if userID == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !ValidPlan(plan) {
		return Profile{}, fmt.Errorf("%w: unknown plan %q", ErrInvalidInput, plan)
	}
	if err := s.Repo.SetPlan(ctx, userID, plan, time.Now().UTC()); err != nil {
		return Profile{}, err
	}
	return s.Repo.GetByID(ctx, userID)
}

// EmailByUser satisfies the notifications email lookup.
func (s *Service) EmailByUser(ctx context.Context, userID string) (string, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

func (s *Service) List(ctx context.Context, query string, limit, offset int) ([]Profile, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("profiles service not configured")
	}
	return s.Repo.List(ctx, query, limit, offset)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	if s == nil || s.Repo == nil {
		return 0, errors.New("profiles service not configured")
	}
	return s.Repo.Count(ctx)
}
