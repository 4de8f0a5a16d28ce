package footballdata

import (
	"testing"
	"time"
)

func TestCallBudget_RefusesBeyondLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	budget := newCallBudget(3, time.Minute)
	budget.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := budget.TryReserve()
		if !ok {
			t.Fatalf("expected reservation %d to succeed", i+1)
		}
	}

	ok, wait := budget.TryReserve()
	if ok {
		t.Fatalf("expected fourth reservation to be refused")
	}
	if wait != time.Minute {
		t.Fatalf("expected wait of one minute, got=%s", wait)
	}
}

func TestCallBudget_SlidingWindowFreesSlots(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	budget := newCallBudget(2, time.Minute)
	budget.now = func() time.Time { return now }

	if ok, _ := budget.TryReserve(); !ok {
		t.Fatalf("expected first reservation to succeed")
	}
	now = now.Add(30 * time.Second)
	if ok, _ := budget.TryReserve(); !ok {
		t.Fatalf("expected second reservation to succeed")
	}
	if ok, _ := budget.TryReserve(); ok {
		t.Fatalf("expected third reservation to be refused")
	}

	now = now.Add(31 * time.Second)
	if ok, _ := budget.TryReserve(); !ok {
		t.Fatalf("expected reservation after window slide to succeed")
	}
	if got := budget.InFlightWindow(); got != 2 {
		t.Fatalf("expected two calls in window, got=%d", got)
	}
}

func TestCallBudget_PenalizeBurnsWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	budget := newCallBudget(4, time.Minute)
	budget.now = func() time.Time { return now }

	if ok, _ := budget.TryReserve(); !ok {
		t.Fatalf("expected first reservation to succeed")
	}

	budget.Penalize(20 * time.Second)
	ok, wait := budget.TryReserve()
	if ok {
		t.Fatalf("expected reservation after penalty to be refused")
	}
	if wait != 20*time.Second {
		t.Fatalf("expected wait of 20s, got=%s", wait)
	}

	now = now.Add(21 * time.Second)
	if ok, _ := budget.TryReserve(); !ok {
		t.Fatalf("expected reservation after penalty expired to succeed")
	}
}
