package sessions

import (
	"testing"
	"time"

	"geoattend_go/models"
)

func TestActiveKey(t *testing.T) {
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if got := ActiveKey(7, 3, date, "09:00"); got != "7-3-2026-08-31-09:00" {
		t.Fatalf("unexpected active key %q", got)
	}

	// Different scheduled starts on the same day produce distinct keys.
	if ActiveKey(7, 3, date, "09:00") == ActiveKey(7, 3, date, "11:00") {
		t.Fatal("keys for different starts must differ")
	}
}

func TestSlotMatchesDay(t *testing.T) {
	slot := &models.TimetableSlot{DayOfWeek: 1} // Monday

	monday := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	if monday.Weekday() != time.Monday {
		t.Fatal("test date is not a Monday")
	}
	if !SlotMatchesDay(slot, monday) {
		t.Fatal("expected Monday slot to match a Monday")
	}
	if SlotMatchesDay(slot, monday.AddDate(0, 0, 1)) {
		t.Fatal("Monday slot must not match a Tuesday")
	}
}

func TestAlreadyActiveErrorCarriesWinner(t *testing.T) {
	existing := &models.ActiveClassSession{BaseModel: models.BaseModel{ID: 42}}
	err := &AlreadyActiveError{Existing: existing}
	if err.Existing.ID != 42 {
		t.Fatal("conflict must expose the winning session")
	}
	if err.Error() == "" {
		t.Fatal("expected an error message")
	}
}
