package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	DefaultWindowDays = 7
	MaxWindowDays     = 31
)

// Day is one calendar day in the schedule view.
type Day struct {
	Date      string         `json:"date"`
	Tasks     []Task         `json:"tasks"`
	Generated map[string]int `json:"generated,omitempty"`
}

// View is the aggregated schedule for the coming window.
type View struct {
	From         string `json:"from"`
	To           string `json:"to"`
	OverdueCount int    `json:"overdueCount"`
	Days         []Day  `json:"days"`
}

// Schedule builds the aggregated view for the next days, served from cache
// when a fresh entry exists. Cache failures fall through to the database.
func (s *Service) Schedule(ctx context.Context, userID string, days int) (View, error) {
	if userID == "" {
		return View{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if days <= 0 {
		days = DefaultWindowDays
	}
	if days > MaxWindowDays {
		days = MaxWindowDays
	}

	key := scheduleKey(userID, days)
	if s.Cache != nil {
		if raw, ok, err := s.Cache.Get(ctx, key); err == nil && ok {
			var cached View
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	view, err := s.buildView(ctx, userID, days)
	if err != nil {
		return View{}, err
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(view); err == nil {
			if err := s.Cache.Set(ctx, key, raw, s.TTL); err != nil {
				s.Log.Warn("schedule.cache_set_failed", "user_id", userID, "error", err.Error())
			}
		}
	}
	return view, nil
}

func (s *Service) buildView(ctx context.Context, userID string, days int) (View, error) {
	now := s.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days)

	tasks, err := s.Repo.DueBetween(ctx, userID, start, end)
	if err != nil {
		return View{}, err
	}
	overdue, err := s.Repo.CountOverdue(ctx, userID, start)
	if err != nil {
		return View{}, err
	}

	byDay := make(map[string][]Task, days)
	for _, t := range tasks {
		day := t.DueAt.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], t)
	}

	generated := make(map[string]map[string]int)
	for _, src := range s.Sources {
		counts, err := src.Counts(ctx, userID, start, end)
		if err != nil {
			s.Log.Warn("schedule.content_counts_failed", "kind", src.Kind, "error", err.Error())
			continue
		}
		for day, n := range counts {
			if generated[day] == nil {
				generated[day] = make(map[string]int)
			}
			generated[day][src.Kind] = n
		}
	}

	view := View{
		From:         start.Format("2006-01-02"),
		To:           end.AddDate(0, 0, -1).Format("2006-01-02"),
		OverdueCount: overdue,
		Days:         make([]Day, 0, days),
	}
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		dayTasks := byDay[date]
		if dayTasks == nil {
			dayTasks = []Task{}
		}
		view.Days = append(view.Days, Day{
			Date:      date,
			Tasks:     dayTasks,
			Generated: generated[date],
		})
	}
	return view, nil
}

func scheduleKey(userID string, days int) string {
	return fmt.Sprintf("%s%d", scheduleKeyPrefix(userID), days)
}

func scheduleKeyPrefix(userID string) string {
	return "schedule:" + userID + ":"
}
