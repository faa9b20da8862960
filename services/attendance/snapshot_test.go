package attendance

import (
	"errors"
	"testing"
	"time"

	"geoattend_go/models"
	"geoattend_go/services/validation"

	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func testLocation(trusted models.JSON) *models.Location {
	return &models.Location{
		Name:           "Lecture Hall 2",
		Latitude:       12.9716,
		Longitude:      77.5946,
		RadiusMeters:   40,
		TrustedWifiIDs: trusted,
	}
}

func passingAttempt() Attempt {
	return Attempt{
		Method:      models.MethodAutoGeo,
		At:          time.Date(2026, 8, 31, 9, 2, 0, 0, time.UTC),
		Coordinates: validation.Point{Latitude: 12.9716, Longitude: 77.5946},
		Accuracy:    8,
		WifiIDs:     []string{"AA:BB"},
		DeviceID:    "device-a",
	}
}

func TestBuildSnapshotRecordsAllSignals(t *testing.T) {
	loc := testLocation(models.JSON(`["AA:BB"]`))
	snap, device := buildSnapshot(passingAttempt(), loc, strPtr("device-a"), 10)

	if !snap.Present() {
		t.Fatal("snapshot should carry a timestamp")
	}
	if !snap.GeoPass || !snap.WifiPass || !snap.DeviceMatch || snap.MockDetected {
		t.Fatalf("expected all signals passing, got %+v", snap)
	}
	if !device.Matched() {
		t.Fatalf("expected device match, got %v", device)
	}
	if reason := rejectionReason(snap, device, true); reason != "" {
		t.Fatalf("expected acceptance, got %q", reason)
	}
}

func TestMockDetectedRejectedRegardlessOfOtherSignals(t *testing.T) {
	loc := testLocation(models.JSON(`["AA:BB"]`))
	attempt := passingAttempt()
	attempt.MockDetected = true

	snap, device := buildSnapshot(attempt, loc, strPtr("device-a"), 10)
	if !snap.GeoPass || !snap.DeviceMatch || !snap.WifiPass {
		t.Fatalf("test setup broken, other signals should pass: %+v", snap)
	}
	reason := rejectionReason(snap, device, true)
	if reason != "mock location detected, attendance rejected" {
		t.Fatalf("unexpected reason %q", reason)
	}
}

func TestRejectionOrdering(t *testing.T) {
	loc := testLocation(models.JSON(`["AA:BB"]`))

	t.Run("device mismatch before geofence", func(t *testing.T) {
		attempt := passingAttempt()
		attempt.Coordinates = validation.Point{Latitude: 13.05, Longitude: 77.7} // far away
		snap, device := buildSnapshot(attempt, loc, strPtr("device-b"), 10)
		if snap.GeoPass {
			t.Fatal("expected geofence failure in setup")
		}
		reason := rejectionReason(snap, device, true)
		if reason != "request came from a device not linked to this account" {
			t.Fatalf("unexpected reason %q", reason)
		}
	})

	t.Run("not linked reads differently from mismatch", func(t *testing.T) {
		snap, device := buildSnapshot(passingAttempt(), loc, nil, 10)
		reason := rejectionReason(snap, device, true)
		if reason != "no device linked to this account yet" {
			t.Fatalf("unexpected reason %q", reason)
		}
	})

	t.Run("geofence before wifi", func(t *testing.T) {
		attempt := passingAttempt()
		attempt.Coordinates = validation.Point{Latitude: 13.05, Longitude: 77.7}
		attempt.WifiIDs = []string{"CC:DD"}
		snap, device := buildSnapshot(attempt, loc, strPtr("device-a"), 10)
		reason := rejectionReason(snap, device, true)
		if reason != "you are outside the class location geofence" {
			t.Fatalf("unexpected reason %q", reason)
		}
	})

	t.Run("wifi fails only when configured", func(t *testing.T) {
		attempt := passingAttempt()
		attempt.WifiIDs = []string{"CC:DD"}

		snap, device := buildSnapshot(attempt, loc, strPtr("device-a"), 10)
		if reason := rejectionReason(snap, device, true); reason != "no trusted classroom network detected" {
			t.Fatalf("unexpected reason %q", reason)
		}

		open := testLocation(nil)
		snap, device = buildSnapshot(attempt, open, strPtr("device-a"), 10)
		if reason := rejectionReason(snap, device, false); reason != "" {
			t.Fatalf("expected auto-pass without trusted set, got %q", reason)
		}
	})
}

func TestGPSBufferWidensRadius(t *testing.T) {
	loc := testLocation(nil)
	attempt := passingAttempt()
	// ~45m north of the center: outside the bare 40m radius, inside 40+10.
	attempt.Coordinates = validation.Point{Latitude: 12.9720, Longitude: 77.5946}

	snap, _ := buildSnapshot(attempt, loc, strPtr("device-a"), 10)
	if !snap.GeoPass {
		t.Fatal("expected pass with the 10m buffer applied")
	}
	snap, _ = buildSnapshot(attempt, loc, strPtr("device-a"), 0)
	if snap.GeoPass {
		t.Fatal("expected fail without the buffer")
	}
}

func TestCheckoutStatus(t *testing.T) {
	now := time.Now()

	withCheckIn := &models.AttendanceRecord{
		Status:  models.StatusPending,
		CheckIn: models.ValidationSnapshot{Timestamp: &now},
	}
	status, anomaly := checkoutStatus(withCheckIn)
	if status != models.StatusPresent || anomaly {
		t.Fatalf("expected clean pending->present transition, got %s anomaly=%v", status, anomaly)
	}

	// Unreachable through the API (check-out requires Pending, and Pending
	// only exists after a check-in), kept as a logged anomaly.
	withoutCheckIn := &models.AttendanceRecord{Status: models.StatusPending}
	status, anomaly = checkoutStatus(withoutCheckIn)
	if status != models.StatusPending || !anomaly {
		t.Fatalf("expected anomalous no-op, got %s anomaly=%v", status, anomaly)
	}
}

func TestAttendancePercent(t *testing.T) {
	tests := []struct {
		name          string
		presentOrLate int64
		total         int64
		expected      int
	}{
		{"three of four", 3, 4, 75},
		{"no records", 0, 0, 0},
		{"all attended", 5, 5, 100},
		{"rounding up", 2, 3, 67},
		{"rounding down", 1, 3, 33},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := AttendancePercent(tc.presentOrLate, tc.total); got != tc.expected {
				t.Fatalf("AttendancePercent(%d, %d) = %d, want %d",
					tc.presentOrLate, tc.total, got, tc.expected)
			}
		})
	}
}

func TestMarkedPercentExcludesPending(t *testing.T) {
	tests := []struct {
		name     string
		present  int64
		late     int64
		total    int64
		pending  int64
		expected int
	}{
		{"present plus pending mid-session", 1, 0, 2, 1, 100},
		{"three of four marked", 3, 0, 4, 0, 75},
		{"late counts as attended", 1, 1, 3, 1, 100},
		{"only pending records", 0, 0, 2, 2, 0},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := markedPercent(tc.present, tc.late, tc.total, tc.pending); got != tc.expected {
				t.Fatalf("markedPercent(%d, %d, %d, %d) = %d, want %d",
					tc.present, tc.late, tc.total, tc.pending, got, tc.expected)
			}
		})
	}
}

func TestRepeatedCheckInResolvesToExistingRecord(t *testing.T) {
	now := time.Now()
	record := &models.AttendanceRecord{
		BaseModel: models.BaseModel{ID: 42},
		Status:    models.StatusPending,
		CheckIn:   models.ValidationSnapshot{Timestamp: &now},
	}

	// A retry must resolve to the same record unchanged, every time.
	for i := 0; i < 2; i++ {
		if !checkInAlreadyDone(record) {
			t.Fatalf("attempt %d: pending record with a check-in snapshot should be already done", i+1)
		}
		if record.ID != 42 || record.Status != models.StatusPending {
			t.Fatalf("attempt %d: record mutated: %+v", i+1, record)
		}
	}

	record.Status = models.StatusPresent
	if !checkInAlreadyDone(record) {
		t.Fatal("present record should be already done")
	}

	// These states reopen instead of reconciling.
	for _, status := range []string{models.StatusAbsent, models.StatusLate, models.StatusExcused} {
		record.Status = status
		if checkInAlreadyDone(record) {
			t.Fatalf("%s record should reopen, not reconcile", status)
		}
	}
	fresh := &models.AttendanceRecord{Status: models.StatusPending}
	if checkInAlreadyDone(fresh) {
		t.Fatal("pending record without a check-in snapshot should not reconcile")
	}
}

func TestRepeatedCheckOutIsIdempotent(t *testing.T) {
	now := time.Now()
	record := &models.AttendanceRecord{
		BaseModel: models.BaseModel{ID: 7},
		Status:    models.StatusPresent,
		CheckIn:   models.ValidationSnapshot{Timestamp: &now},
		CheckOut:  models.ValidationSnapshot{Timestamp: &now},
	}

	for i := 0; i < 2; i++ {
		if !checkOutAlreadyDone(record) {
			t.Fatalf("attempt %d: record with a check-out snapshot should be a no-op", i+1)
		}
		if record.ID != 7 || record.Status != models.StatusPresent {
			t.Fatalf("attempt %d: record mutated: %+v", i+1, record)
		}
	}

	open := &models.AttendanceRecord{
		Status:  models.StatusPending,
		CheckIn: models.ValidationSnapshot{Timestamp: &now},
	}
	if checkOutAlreadyDone(open) {
		t.Fatal("record without a check-out snapshot should proceed to check out")
	}
}

func TestLookupResultSeparatesMissingFromFailure(t *testing.T) {
	record := &models.AttendanceRecord{BaseModel: models.BaseModel{ID: 9}}

	got, err := lookupResult(record, nil)
	if err != nil || got == nil || got.ID != 9 {
		t.Fatalf("expected the record back, got %v, %v", got, err)
	}

	got, err = lookupResult(record, gorm.ErrRecordNotFound)
	if err != nil || got != nil {
		t.Fatalf("missing row should read as no record, got %v, %v", got, err)
	}

	outage := errors.New("dial tcp: connection refused")
	got, err = lookupResult(record, outage)
	if got != nil || !errors.Is(err, outage) {
		t.Fatalf("store failure must propagate, got %v, %v", got, err)
	}
}

func TestSortRoster(t *testing.T) {
	roster := []RosterEntry{
		{FirstName: "Asha", LastName: "Verma"},
		{FirstName: "Zara", LastName: "Iyer"},
		{FirstName: "Anil", LastName: "Iyer"},
	}
	sortRoster(roster)

	want := []string{"Anil Iyer", "Zara Iyer", "Asha Verma"}
	for i, entry := range roster {
		if got := entry.FirstName + " " + entry.LastName; got != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, got, want[i])
		}
	}
}

func TestRoomKey(t *testing.T) {
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if got := RoomKey(7, 3, date, "09:00"); got != "7-3-2026-08-31-09:00" {
		t.Fatalf("unexpected room key %q", got)
	}
}

func TestBuildOverrideReason(t *testing.T) {
	at := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	reason := BuildOverrideReason("professor", "prof@example.edu", at, "medical certificate")
	want := "Overridden by professor (prof@example.edu) at 2026-08-31T10:30:00Z: medical certificate"
	if reason != want {
		t.Fatalf("got %q, want %q", reason, want)
	}

	bare := BuildOverrideReason("admin", "admin@example.edu", at, "  ")
	if bare != "Overridden by admin (admin@example.edu) at 2026-08-31T10:30:00Z" {
		t.Fatalf("got %q", bare)
	}
}
