package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
)

// Counts aggregates the outcome of one sync pass.
type Counts struct {
	Scheduled   int      `json:"scheduled"`
	Cancelled   int      `json:"cancelled"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	SkipReasons []string `json:"skipReasons,omitempty"`
}

// Add merges another pass's counts into this one.
func (c *Counts) Add(other Counts) {
	c.Scheduled += other.Scheduled
	c.Cancelled += other.Cancelled
	c.Skipped += other.Skipped
	c.Failed += other.Failed
	c.SkipReasons = append(c.SkipReasons, other.SkipReasons...)
}

// Skip records one skipped rule with its reason.
func (c *Counts) Skip(reason enums.SkipReason) {
	c.Skipped++
	c.SkipReasons = append(c.SkipReasons, string(reason))
}

// FireTime applies a reminder offset to a due date.
func FireTime(due time.Time, rtype enums.ReminderType, value int, unit enums.TimeUnit) time.Time {
	offset := unit.Duration(value)
	switch rtype {
	case enums.ReminderBefore:
		return due.Add(-offset)
	case enums.ReminderAfterDue:
		return due.Add(offset)
	}
	return due
}

// TimingOutcome classifies a computed fire time against the scheduling window.
type TimingOutcome int

const (
	// TimingSchedule means fire the alarm at the (possibly clamped) time.
	TimingSchedule TimingOutcome = iota
	// TimingStale means the fire time lapsed beyond the grace window.
	TimingStale
	// TimingBeyondHorizon means the fire time is too far out to plan.
	TimingBeyondHorizon
)

// Window holds the tunables for timing classification.
type Window struct {
	Now        time.Time
	Horizon    time.Duration // reject fire times beyond now+Horizon
	Stale      time.Duration // reject fire times older than now-Stale
	ClampDelay time.Duration // lapsed-but-fresh fire times move to now+ClampDelay
}

// Classify decides what to do with a fire time. Lapsed times inside the stale
// window clamp forward rather than drop: the entity is still relevant, only
// the precomputed moment has passed.
func (w Window) Classify(fireAt time.Time) (time.Time, TimingOutcome) {
	if fireAt.After(w.Now.Add(w.Horizon)) {
		return fireAt, TimingBeyondHorizon
	}
	if fireAt.Before(w.Now) {
		if w.Now.Sub(fireAt) > w.Stale {
			return fireAt, TimingStale
		}
		return w.Now.Add(w.ClampDelay), TimingSchedule
	}
	return fireAt, TimingSchedule
}

// PriorityFor derives the notification tier from due-date proximity. Overdue
// and due-today are always high.
func PriorityFor(due, now time.Time) enums.Priority {
	if due.Before(now) {
		return enums.PriorityHigh
	}
	endOfToday := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	if !due.After(endOfToday) {
		return enums.PriorityHigh
	}
	if due.Sub(now) <= 7*24*time.Hour {
		return enums.PriorityMedium
	}
	return enums.PriorityLow
}

// RenderTemplate substitutes {placeholder} variables. Unknown placeholders
// stay literal so a half-configured template is visibly broken, not blank.
func RenderTemplate(template string, vars map[string]string) string {
	out := template
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}

// OnceKey derives the consumption key for a once-condition rule: one firing
// per (entity, rule, due date).
func OnceKey(entityID, ruleID string, due time.Time) string {
	return fmt.Sprintf("%s#%s#%s", entityID, ruleID, due.Format("2006-01-02"))
}

// NextWeekday finds the first active weekday within the lookahead whose fire
// time is still ahead of now.
func NextWeekday(now time.Time, active map[time.Weekday]bool, hour, minute, lookaheadDays int) (time.Time, bool) {
	if len(active) == 0 {
		return time.Time{}, false
	}
	for offset := 0; offset <= lookaheadDays; offset++ {
		day := now.AddDate(0, 0, offset)
		if !active[day.Weekday()] {
			continue
		}
		candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate, true
		}
	}
	return time.Time{}, false
}
