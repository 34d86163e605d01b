package activitylog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	"github.com/daybreak-labs/daybreak-backend/pkg/kv"
)

const (
	// Collection and entriesKey address the whole log as one kv value. The
	// cap keeps the value small enough that read-modify-write stays cheap.
	Collection = "activity_log"
	entriesKey = "entries"

	// DefaultCap bounds the number of retained entries.
	DefaultCap = 1200

	// Metadata keys written by the hub and schedulers.
	MetaScheduledAt = "scheduledAt"
	MetaSource      = "source"
	MetaReason      = "reason"
	MetaOnceKey     = "onceKey"

	// SourceBulkCancel marks cancellations emitted by module-wide sweeps of
	// legacy alarms. They arrive hundreds at a time and carry no audit value,
	// so compaction purges them.
	SourceBulkCancel = "bulk_cancel"
)

// Entry is one append-only audit record. Entries are never updated in place.
type Entry struct {
	ID             string          `json:"id"`
	Module         enums.Module    `json:"module"`
	EntityID       string          `json:"entityId"`
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	Payload        string          `json:"payload"`
	Event          enums.EventType `json:"event"`
	ActionID       string          `json:"actionId,omitempty"`
	NotificationID int             `json:"notificationId"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// scheduledAt reads the entry's scheduled-at metadata as a comparable string.
func (e Entry) scheduledAt() string {
	if e.Metadata == nil {
		return ""
	}
	return fmt.Sprint(e.Metadata[MetaScheduledAt])
}

func (e Entry) dedupeTuple() string {
	return fmt.Sprintf("%s|%s|%d|%s", e.Module, e.EntityID, e.NotificationID, e.scheduledAt())
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Module enums.Module
	Event  enums.EventType
	From   time.Time
	To     time.Time
	Search string // matched case-insensitively across title, body, payload
	Limit  int
}

// Store keeps the audit log in kv, newest-first. All mutations rewrite the
// whole collection under a mutex; the cap makes that acceptable.
type Store struct {
	mu    sync.Mutex
	kv    *kv.Store
	cap   int
	now   func() time.Time
	newID func() string
}

// NewStore wires the log store. A non-positive cap falls back to DefaultCap.
func NewStore(store *kv.Store, capacity int) (*Store, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{
		kv:    store,
		cap:   capacity,
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

func (s *Store) load(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if _, err := s.kv.Get(ctx, Collection, entriesKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) save(ctx context.Context, entries []Entry) error {
	return s.kv.Put(ctx, Collection, entriesKey, entries)
}

// Append inserts an entry at the head and truncates to the cap. A scheduled
// entry that duplicates an existing one on (module, entity, notificationId,
// scheduledAt) is a no-op, so repeated reconciliation of an unchanged
// schedule does not grow the log.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}

	if entry.Event == enums.EventScheduled {
		tuple := entry.dedupeTuple()
		for _, existing := range entries {
			if existing.Event == enums.EventScheduled && existing.dedupeTuple() == tuple {
				return nil
			}
		}
	}

	if entry.ID == "" {
		entry.ID = s.newID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}

	entries = append([]Entry{entry}, entries...)
	if len(entries) > s.cap {
		entries = entries[:s.cap]
	}
	return s.save(ctx, entries)
}

// Query returns newest-first entries matching the filter.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []Entry
	for _, entry := range entries {
		if filter.Module != "" && entry.Module != filter.Module {
			continue
		}
		if filter.Event != "" && entry.Event != filter.Event {
			continue
		}
		if !filter.From.IsZero() && entry.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && entry.Timestamp.After(filter.To) {
			continue
		}
		if search != "" && !matchesSearch(entry, search) {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func matchesSearch(entry Entry, search string) bool {
	return strings.Contains(strings.ToLower(entry.Title), search) ||
		strings.Contains(strings.ToLower(entry.Body), search) ||
		strings.Contains(strings.ToLower(entry.Payload), search)
}

// CountTodayByEvent tallies today's entries per event type for the dashboard.
func (s *Store) CountTodayByEvent(ctx context.Context, today time.Time) (map[enums.EventType]int, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	dayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	counts := make(map[enums.EventType]int)
	for _, entry := range entries {
		ts := entry.Timestamp.In(today.Location())
		if ts.Before(dayStart) || !ts.Before(dayEnd) {
			continue
		}
		counts[entry.Event]++
	}
	return counts, nil
}

// HasOnceConsumed reports whether a terminal event already exists for a
// once-key. Terminal means the event consumed the once-condition; cancelled,
// failed and snoozed events leave the reminder eligible.
func (s *Store) HasOnceConsumed(ctx context.Context, onceKey string) (bool, error) {
	if onceKey == "" {
		return false, nil
	}
	entries, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if !entry.Event.ConsumesOnce() {
			continue
		}
		if entry.Metadata != nil && fmt.Sprint(entry.Metadata[MetaOnceKey]) == onceKey {
			return true, nil
		}
	}
	return false, nil
}

// CompactRedundantScheduledEntries collapses duplicate scheduled entries that
// predate append-time dedup and purges bulk legacy-cancel noise. Returns the
// number of entries removed.
func (s *Store) CompactRedundantScheduledEntries(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	kept := make([]Entry, 0, len(entries))
	removed := 0
	for _, entry := range entries {
		if entry.Event == enums.EventCancelled &&
			entry.Metadata != nil &&
			fmt.Sprint(entry.Metadata[MetaSource]) == SourceBulkCancel {
			removed++
			continue
		}
		if entry.Event == enums.EventScheduled {
			tuple := entry.dedupeTuple()
			if seen[tuple] {
				removed++
				continue
			}
			seen[tuple] = true
		}
		kept = append(kept, entry)
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.save(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}
