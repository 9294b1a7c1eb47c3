package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConsumeWithinLimit(t *testing.T) {
	svc := NewService()

	u, err := svc.Consume(context.Background(), "user-1", 1)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if u.Used != 1 || u.Limit != PlanLimit(PlanFree) || u.Plan != PlanFree {
		t.Fatalf("unexpected usage: %+v", u)
	}

	ok, u, err := svc.CanConsume(context.Background(), "user-1", 1)
	if err != nil || !ok {
		t.Fatalf("can consume = %v, err %v", ok, err)
	}
	if u.Used != 1 {
		t.Fatalf("used = %d", u.Used)
	}
}

func TestConsumeLimitReached(t *testing.T) {
	svc := NewService()

	if _, err := svc.Consume(context.Background(), "user-1", PlanLimit(PlanFree)); err != nil {
		t.Fatalf("consume to limit: %v", err)
	}

	ok, _, err := svc.CanConsume(context.Background(), "user-1", 1)
	if err != nil {
		t.Fatalf("can consume: %v", err)
	}
	if ok {
		t.Fatal("expected limit to block")
	}

	if _, err := svc.Consume(context.Background(), "user-1", 1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
}

func TestCanConsumeZeroAlwaysAllowed(t *testing.T) {
	svc := NewService()
	if _, err := svc.Consume(context.Background(), "user-1", PlanLimit(PlanFree)); err != nil {
		t.Fatalf("consume: %v", err)
	}
	ok, _, err := svc.CanConsume(context.Background(), "user-1", 0)
	if err != nil || !ok {
		t.Fatalf("zero consume should pass, got %v err %v", ok, err)
	}
}

func TestPeriodRollover(t *testing.T) {
	mem := newMemoryStore()
	svc := NewPostgresService(mem)

	// Seed an expired period directly.
	mem.mu.Lock()
	mem.data["user-1"] = Usage{
		Plan:     PlanFree,
		Limit:    PlanLimit(PlanFree),
		Used:     PlanLimit(PlanFree),
		ResetsAt: time.Now().UTC().Add(-time.Hour),
	}
	mem.mu.Unlock()

	u, err := svc.EnsurePeriod(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ensure period: %v", err)
	}
	if u.Used != 0 {
		t.Fatalf("expected rollover to zero used, got %d", u.Used)
	}
	if !u.ResetsAt.After(time.Now().UTC()) {
		t.Fatalf("expected future reset, got %v", u.ResetsAt)
	}
}

func TestMonthlyWindowLength(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	reset := nextReset(now)
	want := time.Date(2025, time.February, 15, 10, 0, 0, 0, time.UTC)
	if !reset.Equal(want) {
		t.Fatalf("nextReset = %v, want %v", reset, want)
	}
}

func TestSetPlanRaisesLimit(t *testing.T) {
	svc := NewService()

	if _, err := svc.Consume(context.Background(), "user-1", 5); err != nil {
		t.Fatalf("consume: %v", err)
	}

	u, err := svc.SetPlan(context.Background(), "user-1", PlanPro)
	if err != nil {
		t.Fatalf("set plan: %v", err)
	}
	if u.Plan != PlanPro || u.Limit != PlanLimit(PlanPro) {
		t.Fatalf("unexpected usage after upgrade: %+v", u)
	}
	if u.Used != 5 {
		t.Fatalf("upgrade should keep current consumption, got used=%d", u.Used)
	}

	// Downgrade resets the limit back.
	u, err = svc.SetPlan(context.Background(), "user-1", PlanFree)
	if err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	if u.Limit != PlanLimit(PlanFree) {
		t.Fatalf("limit = %d", u.Limit)
	}
}

func TestReset(t *testing.T) {
	svc := NewService()
	if _, err := svc.Consume(context.Background(), "user-1", 3); err != nil {
		t.Fatalf("consume: %v", err)
	}
	u, err := svc.Reset(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if u.Used != 0 {
		t.Fatalf("used = %d", u.Used)
	}
}

func TestPlanLimit(t *testing.T) {
	if PlanLimit(PlanFree) != 20 {
		t.Fatalf("free limit = %d", PlanLimit(PlanFree))
	}
	if PlanLimit(PlanPro) != 200 {
		t.Fatalf("pro limit = %d", PlanLimit(PlanPro))
	}
	if PlanLimit("mystery") != 20 {
		t.Fatalf("unknown plan limit = %d", PlanLimit("mystery"))
	}
}
