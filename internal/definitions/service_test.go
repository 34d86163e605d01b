package definitions

import (
	"context"
	"io"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/daybreak-labs/daybreak-backend/pkg/db/models"
	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
	pkgerrors "github.com/daybreak-labs/daybreak-backend/pkg/errors"
	"github.com/daybreak-labs/daybreak-backend/pkg/kv"
	"github.com/daybreak-labs/daybreak-backend/pkg/logger"
)

type fakeResyncer struct {
	synced    []Definition
	cancelled []Definition
}

func (f *fakeResyncer) SyncDefinition(_ context.Context, def Definition) error {
	f.synced = append(f.synced, def)
	return nil
}

func (f *fakeResyncer) CancelDefinition(_ context.Context, def Definition) error {
	f.cancelled = append(f.cancelled, def)
	return nil
}

func newTestService(t *testing.T) (Service, *fakeResyncer, *Repo) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.KVEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo, err := NewRepo(kv.NewStore(conn))
	if err != nil {
		t.Fatalf("NewRepo: %v", err)
	}
	resyncer := &fakeResyncer{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Resyncer: resyncer,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, resyncer, repo
}

func validInput() DefinitionInput {
	return DefinitionInput{
		Module:        "finance",
		Section:       "bills",
		EntityID:      "bill-1",
		EntityName:    "Electricity",
		Title:         "{entityName} due soon",
		Body:          "Pay before {dueDate}",
		ReminderType:  "before",
		ReminderValue: 3,
		ReminderUnit:  "days",
		FireHour:      9,
		Enabled:       true,
		Condition:     "if_unpaid",
	}
}

func TestCreateAssignsIDAndResyncs(t *testing.T) {
	svc, resyncer, _ := newTestService(t)

	def, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if def.ID == "" || def.CreatedAt.IsZero() {
		t.Fatalf("expected id and createdAt, got %+v", def)
	}
	if len(resyncer.synced) != 1 || resyncer.synced[0].ID != def.ID {
		t.Fatalf("expected one resync for %s, got %+v", def.ID, resyncer.synced)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := map[string]func(*DefinitionInput){
		"missing title":   func(in *DefinitionInput) { in.Title = "" },
		"bad module":      func(in *DefinitionInput) { in.Module = "calendar" },
		"bad unit":        func(in *DefinitionInput) { in.ReminderUnit = "fortnights" },
		"bad condition":   func(in *DefinitionInput) { in.Condition = "sometimes" },
		"hour out of day": func(in *DefinitionInput) { in.FireHour = 25 },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := svc.Create(context.Background(), in)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestUpdateCancelsOldDerivationOnReminderChange(t *testing.T) {
	svc, resyncer, _ := newTestService(t)
	ctx := context.Background()

	def, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	in := validInput()
	in.ReminderValue = 7
	updated, err := svc.Update(ctx, def.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != def.ID {
		t.Fatalf("id must be stable across updates")
	}
	if len(resyncer.cancelled) != 1 || resyncer.cancelled[0].ReminderValue != 3 {
		t.Fatalf("expected old derivation cancelled, got %+v", resyncer.cancelled)
	}
	if len(resyncer.synced) != 2 {
		t.Fatalf("expected resync after update, got %d", len(resyncer.synced))
	}

	// Title-only edits keep the same derived id; no cancel needed.
	in.ReminderValue = 7
	in.Title = "new title"
	if _, err := svc.Update(ctx, def.ID, in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(resyncer.cancelled) != 1 {
		t.Fatalf("unexpected cancel on cosmetic edit: %+v", resyncer.cancelled)
	}
}

func TestRepoListDecodesScannedValues(t *testing.T) {
	_, _, repo := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"d-b", "d-c", "d-a"} {
		def := Definition{
			ID:            id,
			Module:        enums.ModuleTask,
			EntityID:      "t1",
			Title:         "Task due",
			ReminderType:  enums.ReminderBefore,
			ReminderValue: i + 1,
			ReminderUnit:  enums.UnitHours,
			Enabled:       true,
			Condition:     enums.ConditionAlways,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Put(ctx, def); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	defs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	// Oldest-created first, fields intact through the stored encoding.
	if defs[0].ID != "d-b" || defs[2].ID != "d-a" {
		t.Fatalf("expected creation order, got %+v", defs)
	}
	if defs[1].ReminderValue != 2 || defs[1].ReminderUnit != enums.UnitHours {
		t.Fatalf("decoded fields lost: %+v", defs[1])
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), "nope", validInput())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteForEntityRemovesAllAndCancels(t *testing.T) {
	svc, resyncer, repo := newTestService(t)
	ctx := context.Background()

	first := validInput()
	second := validInput()
	second.ReminderValue = 1
	other := validInput()
	other.EntityID = "bill-2"

	for _, in := range []DefinitionInput{first, second, other} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	removed, err := svc.DeleteForEntity(ctx, "bill-1")
	if err != nil {
		t.Fatalf("DeleteForEntity: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if len(resyncer.cancelled) != 2 {
		t.Fatalf("expected 2 cancels, got %d", len(resyncer.cancelled))
	}

	remaining, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].EntityID != "bill-2" {
		t.Fatalf("expected only bill-2 left, got %+v", remaining)
	}
}
