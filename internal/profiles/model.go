package profiles

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"

	PlanFree = "free"
	PlanPro  = "pro"
)

// Profile represents a user account record keyed by the auth provider's
// subject id.
type Profile struct {
	UserID           string     `json:"userId"`
	Email            string     `json:"email"`
	FullName         string     `json:"fullName"`
	AvatarURL        string     `json:"avatarUrl,omitempty"`
	Role             string     `json:"role"`
	Plan             string     `json:"plan"`
	StudyGoal        string     `json:"studyGoal,omitempty"`
	DailyGoalMinutes int        `json:"dailyGoalMinutes"`
	OnboardedAt      *time.Time `json:"onboardedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ValidPlan reports whether the given plan name is one we bill for.
func ValidPlan(plan string) bool {
	return plan == PlanFree || plan == PlanPro
}
