package profiles

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

func (r *PGRepo) Upsert(ctx context.Context, p Profile) error {
	const query = `
INSERT INTO profiles (user_id, email, full_name, avatar_url, role, plan, created_at, updated_at)
VALUES ($1, $2, $3, $4, 'member', 'free', now(), now())
ON CONFLICT (user_id) DO UPDATE SET
  email = EXCLUDED.email,
  full_name = EXCLUDED.full_name,
  avatar_url = EXCLUDED.avatar_url,
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query, p.UserID, p.Email, p.FullName, p.AvatarURL)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (Profile, error) {
	const query = `
SELECT user_id, email, full_name, avatar_url, role, plan, study_goal, daily_goal_minutes,
       onboarded_at, created_at, updated_at
FROM profiles
WHERE user_id = $1
LIMIT 1`
	return scanProfile(r.DB.QueryRowContext(ctx, query, userID))
}

func (r *PGRepo) Update(ctx context.Context, p Profile) error {
	const query = `
UPDATE profiles
SET full_name = $2, study_goal = $3, daily_goal_minutes = $4, updated_at = now()
WHERE user_id = $1`
	res, err := r.DB.ExecContext(ctx, query, p.UserID, p.FullName, p.StudyGoal, p.DailyGoalMinutes)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteOnboarding stamps onboarded_at exactly once. A second call finds no
// row with a NULL stamp and reports ErrAlreadyOnboarded.
func (r *PGRepo) CompleteOnboarding(ctx context.Context, userID, studyGoal string, dailyGoalMinutes int, at time.Time) error {
	const query = `
UPDATE profiles
SET study_goal = $2, daily_goal_minutes = $3, onboarded_at = $4, updated_at = now()
WHERE user_id = $1 AND onboarded_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, studyGoal, dailyGoalMinutes, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM profiles WHERE user_id = $1)`
		if err := r.DB.QueryRowContext(ctx, check, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyOnboarded
	}
	return nil
}

func (r *PGRepo) SetPlan(ctx context.Context, userID, plan string, at time.Time) error {
	const query = `
UPDATE profiles SET plan = $2, updated_at = $3 WHERE user_id = $1`
	res, err := r.DB.ExecContext(ctx, query, userID, plan, at)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) List(ctx context.Context, query string, limit, offset int) ([]Profile, error) {
	const base = `
SELECT user_id, email, full_name, avatar_url, role, plan, study_goal, daily_goal_minutes,
       onboarded_at, created_at, updated_at
FROM profiles`

	var rows *sql.Rows
	var err error
	if query != "" {
		rows, err = r.DB.QueryContext(ctx, base+`
WHERE email ILIKE '%' || $1 || '%'
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, query, limit, offset)
	} else {
		rows, err = r.DB.QueryContext(ctx, base+`
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM profiles`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	var onboardedAt sql.NullTime
	err := row.Scan(
		&p.UserID,
		&p.Email,
		&p.FullName,
		&p.AvatarURL,
		&p.Role,
		&p.Plan,
		&p.StudyGoal,
		&p.DailyGoalMinutes,
		&onboardedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	if onboardedAt.Valid {
		t := onboardedAt.Time
		p.OnboardedAt = &t
	}
	return p, nil
}
