package admin

import (
	"context"
	"errors"
	"fmt"

	"neurolearn-backend/internal/profiles"
	"neurolearn-backend/internal/shared/logging"
	"neurolearn-backend/internal/usage"
)

var ErrInvalidInput = errors.New("invalid input")

// UserRow pairs a profile with its current quota for the admin listing.
type UserRow struct {
	Profile profiles.Profile `json:"profile"`
	Usage   *usage.Usage     `json:"usage,omitempty"`
}

// Stats are the platform totals shown on the admin dashboard. Generations
// maps kind to per-status counts.
type Stats struct {
	Users       int                       `json:"users"`
	Documents   int                       `json:"documents"`
	Generations map[string]map[string]int `json:"generations"`
}

// StatsProvider computes platform totals. The Postgres implementation
// counts rows; in memory-only deployments a stub serves zeros.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}

// Service backs the admin endpoints.
type Service struct {
	Profiles *profiles.Service
	Usage    *usage.Service
	Provider StatsProvider
	Log      *logging.Logger
}

func NewService(p *profiles.Service, u *usage.Service, provider StatsProvider, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	if provider == nil {
		provider = emptyStats{}
	}
	return &Service{Profiles: p, Usage: u, Provider: provider, Log: log}
}

// ListUsers returns profiles matching the optional email query, each with
// its usage. The second return is the total user count.
func (s *Service) ListUsers(ctx context.Context, query string, limit, offset int) ([]UserRow, int, error) {
	list, err := s.Profiles.List(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Profiles.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]UserRow, len(list))
	for i, p := range list {
		rows[i] = UserRow{Profile: p}
		if s.Usage == nil {
			continue
		}
		u, err := s.Usage.Get(ctx, p.UserID)
		if err != nil {
			s.Log.Warn("admin.usage_lookup_failed", "user_id", p.UserID, "error", err.Error())
			continue
		}
		rows[i].Usage = &u
	}
	return rows, total, nil
}

// SetPlan switches a user's plan, keeping profile and quota in sync.
func (s *Service) SetPlan(ctx context.Context, userID, plan string) (UserRow, error) {
	if !profiles.ValidPlan(plan) {
		return UserRow{}, fmt.Errorf("%w: plan must be free or pro", ErrInvalidInput)
	}
	p, err := s.Profiles.SetPlan(ctx, userID, plan)
	if err != nil {
		return UserRow{}, err
	}
	row := UserRow{Profile: p}
	if s.Usage != nil {
		u, err := s.Usage.SetPlan(ctx, userID, plan)
		if err != nil {
			return UserRow{}, err
		}
		row.Usage = &u
	}
	return row, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.Provider.Stats(ctx)
}

type emptyStats struct{}

func (emptyStats) Stats(ctx context.Context) (Stats, error) {
	return Stats{Generations: make(map[string]map[string]int)}, nil
}
