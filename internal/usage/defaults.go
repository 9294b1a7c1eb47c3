package usage

import (
	"sync/atomic"
	"time"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"

	defaultFreeLimit = 20
	defaultProLimit  = 200
)

var (
	freeLimit atomic.Int64
	proLimit  atomic.Int64
)

func init() {
	freeLimit.Store(defaultFreeLimit)
	proLimit.Store(defaultProLimit)
}

// SetPlanLimits overrides the monthly allowances. Non-positive values keep
// the current limit. Called once at startup from config.
func SetPlanLimits(free, pro int) {
	if free > 0 {
		freeLimit.Store(int64(free))
	}
	if pro > 0 {
		proLimit.Store(int64(pro))
	}
}

// PlanLimit maps a plan name to its monthly generation allowance. Unknown
// plans fall back to the free allowance.
func PlanLimit(plan string) int {
	if plan == PlanPro {
		return int(proLimit.Load())
	}
	return int(freeLimit.Load())
}

func defaultUsage(now time.Time) Usage {
	return Usage{
		Plan:     PlanFree,
		Limit:    PlanLimit(PlanFree),
		Used:     0,
		ResetsAt: nextReset(now),
	}
}

// nextReset returns the start of the next monthly window.
func nextReset(now time.Time) time.Time {
	return now.UTC().AddDate(0, 1, 0)
}
