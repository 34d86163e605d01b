package payload

import (
	"testing"

	"github.com/daybreak-labs/daybreak-backend/pkg/enums"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Payload{
		Module:        enums.ModuleFinance,
		EntityID:      "bill-42",
		ReminderType:  enums.ReminderBefore,
		ReminderValue: 3,
		ReminderUnit:  enums.UnitDays,
		Extras:        map[string]string{"section": "bills", "onceKey": "bill-42#2026-09-01"},
	}

	out := Decode(Encode(in))
	if out == nil {
		t.Fatal("expected decode to succeed")
	}
	if out.Module != in.Module || out.EntityID != in.EntityID {
		t.Fatalf("identity fields lost: %+v", out)
	}
	if out.ReminderType != in.ReminderType || out.ReminderValue != in.ReminderValue || out.ReminderUnit != in.ReminderUnit {
		t.Fatalf("reminder fields lost: %+v", out)
	}
	if out.Extras["section"] != "bills" || out.Extras["onceKey"] != "bill-42#2026-09-01" {
		t.Fatalf("extras lost: %+v", out.Extras)
	}
}

func TestEncodeWithoutExtras(t *testing.T) {
	raw := Encode(Payload{
		Module:        enums.ModuleMood,
		EntityID:      "daily",
		ReminderType:  enums.ReminderOnDue,
		ReminderValue: 0,
		ReminderUnit:  enums.UnitMinutes,
	})
	if raw != "mood|daily|on_due|0|minutes" {
		t.Fatalf("unexpected wire format: %q", raw)
	}
}

func TestDecodeNeverErrors(t *testing.T) {
	malformed := []string{
		"",
		"   ",
		"finance",
		"finance|bill-1",
		"finance|bill-1|before|x|days",
		"notamodule|bill-1|before|1|days",
		"finance|bill-1|sometime|1|days",
		"finance|bill-1|before|1|fortnights",
	}
	for _, raw := range malformed {
		if got := Decode(raw); got != nil {
			t.Fatalf("expected nil for %q, got %+v", raw, got)
		}
	}
}

func TestDecodeToleratesJunkExtras(t *testing.T) {
	got := Decode("task|t1|before|1|hours|good:yes|junkwithoutcolon|:novalue")
	if got == nil {
		t.Fatal("expected decode to succeed")
	}
	if got.Extras["good"] != "yes" {
		t.Fatalf("expected valid extra preserved, got %+v", got.Extras)
	}
	if len(got.Extras) != 1 {
		t.Fatalf("expected junk extras dropped, got %+v", got.Extras)
	}
}
