package alarms

import (
	"context"
	"time"
)

// Request describes one alarm to place with the scheduling capability.
// Scheduling an id that already exists replaces it.
type Request struct {
	ID       int
	EntityID string
	Title    string
	Body     string
	Payload  string
	FireAt   time.Time
	Exact    bool // alarm-clock-grade delivery, survives doze throttling
	Channel  string
}

// Pending is one currently-scheduled alarm as reported by the capability.
type Pending struct {
	ID       int
	EntityID string
	Title    string
	Body     string
	Payload  string
	FireAt   time.Time
	Exact    bool
	Channel  string
}

// Scheduler is the OS-level alarm capability. Implementations must make
// Schedule an upsert on id and Cancel a no-op for unknown ids, so the
// reconciliation loop converges no matter how often it runs. Cancel reports
// whether an alarm actually existed; callers use that to keep no-op cancels
// out of the audit trail.
type Scheduler interface {
	Schedule(ctx context.Context, req Request) error
	Cancel(ctx context.Context, id int) (bool, error)
	ListPending(ctx context.Context) ([]Pending, error)
}
