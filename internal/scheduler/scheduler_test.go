package scheduler

import (
	"testing"
	"time"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
)

func TestFireTimeOffsets(t *testing.T) {
	due := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	before := FireTime(due, enums.ReminderBefore, 3, enums.UnitDays)
	if !before.Equal(due.AddDate(0, 0, -3)) {
		t.Fatalf("before offset wrong: %v", before)
	}
	onDue := FireTime(due, enums.ReminderOnDue, 99, enums.UnitDays)
	if !onDue.Equal(due) {
		t.Fatalf("on_due must ignore offset: %v", onDue)
	}
	after := FireTime(due, enums.ReminderAfterDue, 2, enums.UnitHours)
	if !after.Equal(due.Add(2 * time.Hour)) {
		t.Fatalf("after offset wrong: %v", after)
	}
}

func TestClassifyWindow(t *testing.T) {
	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)
	window := Window{
		Now:        now,
		Horizon:    60 * 24 * time.Hour,
		Stale:      24 * time.Hour,
		ClampDelay: 2 * time.Minute,
	}

	if _, outcome := window.Classify(now.Add(time.Hour)); outcome != TimingSchedule {
		t.Fatalf("future in-horizon must schedule, got %v", outcome)
	}
	if _, outcome := window.Classify(now.Add(61 * 24 * time.Hour)); outcome != TimingBeyondHorizon {
		t.Fatalf("beyond horizon expected, got %v", outcome)
	}
	if _, outcome := window.Classify(now.Add(-25 * time.Hour)); outcome != TimingStale {
		t.Fatalf("stale expected, got %v", outcome)
	}

	clamped, outcome := window.Classify(now.Add(-2 * time.Hour))
	if outcome != TimingSchedule {
		t.Fatalf("lapsed-but-fresh must schedule, got %v", outcome)
	}
	if !clamped.Equal(now.Add(2 * time.Minute)) {
		t.Fatalf("expected clamp to now+2m, got %v", clamped)
	}
}

func TestPriorityFor(t *testing.T) {
	now := time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC)

	if got := PriorityFor(now.Add(-time.Hour), now); got != enums.PriorityHigh {
		t.Fatalf("overdue must be high, got %v", got)
	}
	if got := PriorityFor(now.Add(6*time.Hour), now); got != enums.PriorityHigh {
		t.Fatalf("due today must be high, got %v", got)
	}
	if got := PriorityFor(now.AddDate(0, 0, 3), now); got != enums.PriorityMedium {
		t.Fatalf("due this week must be medium, got %v", got)
	}
	if got := PriorityFor(now.AddDate(0, 0, 20), now); got != enums.PriorityLow {
		t.Fatalf("distant due must be low, got %v", got)
	}
}

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{"entityName": "Rent", "amount": "1200"}
	got := RenderTemplate("{entityName} due: {amount} ({missing})", vars)
	if got != "Rent due: 1200 ({missing})" {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestCountsAddAndSkip(t *testing.T) {
	var counts Counts
	counts.Skip(enums.SkipStale)
	counts.Add(Counts{Scheduled: 2, Failed: 1, SkipReasons: []string{"beyond_horizon"}, Skipped: 1})

	if counts.Scheduled != 2 || counts.Failed != 1 || counts.Skipped != 2 {
		t.Fatalf("merge wrong: %+v", counts)
	}
	if len(counts.SkipReasons) != 2 {
		t.Fatalf("reasons not merged: %+v", counts.SkipReasons)
	}
}
