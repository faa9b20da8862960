package attendance

import (
	"encoding/json"
	"math"
	"time"

	"geoattend_go/models"
	"geoattend_go/services/validation"
)

// Attempt carries the client-reported signals of one check-in or check-out
// request.
type Attempt struct {
	Method       string
	At           time.Time
	Coordinates  validation.Point
	Accuracy     float64
	WifiIDs      []string
	MockDetected bool
	DeviceID     string
}

// buildSnapshot runs the geofence, device and wifi validators against the
// location and the account's bound device and records every outcome. The
// validators fail closed, so a snapshot is always produced, even for garbage
// input. gpsBuffer widens the location's configured radius to absorb GPS
// inaccuracy; the evaluator itself performs no buffering.
func buildSnapshot(attempt Attempt, location *models.Location, boundDevice *string, gpsBuffer float64) (models.ValidationSnapshot, validation.DeviceResult) {
	center := validation.Point{Latitude: location.Latitude, Longitude: location.Longitude}
	device := validation.MatchDevice(boundDevice, attempt.DeviceID)
	trusted := decodeStringList(location.TrustedWifiIDs)

	at := attempt.At
	snapshot := models.ValidationSnapshot{
		Method:       attempt.Method,
		Timestamp:    &at,
		GeoPass:      validation.WithinRadius(attempt.Coordinates, center, location.RadiusMeters+gpsBuffer),
		WifiPass:     validation.WifiTrusted(trusted, attempt.WifiIDs),
		MockDetected: attempt.MockDetected,
		DeviceMatch:  device.Matched(),
		DeviceID:     attempt.DeviceID,
		Accuracy:     attempt.Accuracy,
		Latitude:     attempt.Coordinates.Latitude,
		Longitude:    attempt.Coordinates.Longitude,
		WifiIDs:      encodeStringList(attempt.WifiIDs),
	}
	return snapshot, device
}

// rejectionReason applies the policy ordering to an evaluated snapshot:
// mock location first, then device binding, then geofence, then wireless
// trust (only when the location configured a trusted set). Returns "" when
// the attempt passes.
func rejectionReason(snapshot models.ValidationSnapshot, device validation.DeviceResult, wifiConfigured bool) string {
	if snapshot.MockDetected {
		return "mock location detected, attendance rejected"
	}
	switch device {
	case validation.DeviceNotLinked:
		return "no device linked to this account yet"
	case validation.DeviceMismatch:
		return "request came from a device not linked to this account"
	}
	if !snapshot.GeoPass {
		return "you are outside the class location geofence"
	}
	if wifiConfigured && !snapshot.WifiPass {
		return "no trusted classroom network detected"
	}
	return ""
}

// checkInAlreadyDone reports whether a repeated check-in for the record's
// logical key resolves to the existing record unchanged: the record is
// Present, or still Pending with its check-in snapshot written. Any other
// state reopens the record instead.
func checkInAlreadyDone(record *models.AttendanceRecord) bool {
	return record.Status == models.StatusPresent ||
		(record.Status == models.StatusPending && record.CheckIn.Present())
}

// checkOutAlreadyDone reports whether a repeated check-out is a no-op: the
// check-out snapshot was already written by an earlier attempt.
func checkOutAlreadyDone(record *models.AttendanceRecord) bool {
	return record.CheckOut.Present()
}

// checkoutStatus decides the post-checkout status. The Pending precondition
// means a record without a check-in snapshot should be unreachable here; it
// is kept Pending and flagged as an anomaly rather than hard-rejected.
func checkoutStatus(record *models.AttendanceRecord) (status string, anomaly bool) {
	if record.CheckIn.Present() {
		return models.StatusPresent, false
	}
	return record.Status, true
}

// AttendancePercent is the subject-summary formula: Late counts as attended,
// and a subject with no marked records is defined as 0 to avoid dividing by
// zero.
func AttendancePercent(presentOrLate, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(presentOrLate) / float64(total)))
}

// markedPercent applies the summary formula to aggregate counts that still
// include pending rows: the denominator is total minus pending, since Pending
// is the one unmarked status.
func markedPercent(present, late, total, pending int64) int {
	return AttendancePercent(present+late, total-pending)
}

func decodeStringList(raw models.JSON) []string {
	if raw.IsNull() {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func encodeStringList(values []string) models.JSON {
	if len(values) == 0 {
		return nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return b
}
