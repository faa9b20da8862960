package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"geoattend_go/config"
	"geoattend_go/database"
	"geoattend_go/models"
	"geoattend_go/services/notifications"
	"geoattend_go/services/validation"
	"geoattend_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service is the attendance record state machine. It orchestrates the
// validators, owns the Pending -> {Present, Absent, Late, Excused} lifecycle
// and publishes record events to the session room.
type Service struct {
	db  *gorm.DB
	hub RoomHub
}

func NewService(hub RoomHub) *Service {
	return &Service{db: database.GetDB(), hub: hub}
}

// NewServiceWithDB is used by jobs and tests that carry their own handle.
func NewServiceWithDB(db *gorm.DB, hub RoomHub) *Service {
	return &Service{db: db, hub: hub}
}

// CheckInRequest identifies one attendance opportunity plus the client
// signals for validation.
type CheckInRequest struct {
	StudentID   uint
	SubjectID   uint
	ProfessorID uint
	LocationID  uint
	ClassDate   time.Time
	StartTime   string // "HH:mm"
	EndTime     string
	Term        string
	Attempt     Attempt
}

func checkInGrace() int {
	if config.AppConfig != nil {
		return config.AppConfig.CheckInGraceMinutes
	}
	return 10
}

func checkOutGrace() int {
	if config.AppConfig != nil {
		return config.AppConfig.CheckOutGraceMinutes
	}
	return 5
}

func gpsBuffer() float64 {
	if config.AppConfig != nil {
		return config.AppConfig.GPSBufferMeters
	}
	return 10
}

// CheckIn validates and applies one check-in attempt. The bool result is
// true when the request was reconciled to an already-done success (the
// record was already Pending via a prior check-in, or already Present).
func (s *Service) CheckIn(req CheckInRequest) (*models.AttendanceRecord, bool, error) {
	var student models.User
	if err := s.db.Where("id = ? AND role = ? AND status = ?", req.StudentID, "student", "active").
		First(&student).Error; err != nil {
		return nil, false, notFound("student")
	}

	var location models.Location
	if err := s.db.First(&location, req.LocationID).Error; err != nil {
		return nil, false, notFound("location")
	}

	window, err := validation.GraceWindow(req.StartTime, checkInGrace())
	if err != nil {
		return nil, false, &PolicyError{Reason: fmt.Sprintf("invalid scheduled start time %q", req.StartTime)}
	}
	current := req.Attempt.At.Format("15:04")
	if !validation.WithinWindow(current, window.Start, window.End) {
		return nil, false, &PolicyError{
			Reason: fmt.Sprintf("check-in window %s is closed (submitted at %s)", window, current),
		}
	}

	snapshot, device := buildSnapshot(req.Attempt, &location, student.DeviceID, gpsBuffer())
	wifiConfigured := len(decodeStringList(location.TrustedWifiIDs)) > 0
	if reason := rejectionReason(snapshot, device, wifiConfigured); reason != "" {
		return nil, false, policyRejected(snapshot, "%s", reason)
	}

	classDate := utils.DateOnly(req.ClassDate)

	var existing models.AttendanceRecord
	err = s.db.Where(
		"student_id = ? AND subject_id = ? AND class_date = ? AND start_time = ? AND term = ?",
		req.StudentID, req.SubjectID, classDate, req.StartTime, req.Term,
	).First(&existing).Error

	switch {
	case err == nil:
		return s.reconcileCheckIn(&existing, &student, snapshot)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to create
	default:
		return nil, false, err
	}

	record := models.AttendanceRecord{
		StudentID:   req.StudentID,
		SubjectID:   req.SubjectID,
		ProfessorID: req.ProfessorID,
		LocationID:  req.LocationID,
		ClassDate:   classDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Term:        req.Term,
		CheckIn:     snapshot,
		Status:      models.StatusPending,
	}

	if err := s.db.Create(&record).Error; err != nil {
		if isDuplicateKey(err) {
			// Lost the race against a concurrent check-in for the same
			// logical key: re-fetch the winner and reconcile.
			var winner models.AttendanceRecord
			if ferr := s.db.Where(
				"student_id = ? AND subject_id = ? AND class_date = ? AND start_time = ? AND term = ?",
				req.StudentID, req.SubjectID, classDate, req.StartTime, req.Term,
			).First(&winner).Error; ferr == nil {
				return s.reconcileCheckIn(&winner, &student, snapshot)
			}
		}
		return nil, false, err
	}

	s.publish(&record, &student, recordEvent(EventCreate, &record, &student))
	return &record, false, nil
}

// reconcileCheckIn handles a check-in against an existing record for the
// same logical key: idempotent success when already Pending (with a check-in
// snapshot) or Present, otherwise reopen back to Pending with a fresh
// snapshot and any prior check-out cleared.
func (s *Service) reconcileCheckIn(record *models.AttendanceRecord, student *models.User, snapshot models.ValidationSnapshot) (*models.AttendanceRecord, bool, error) {
	if checkInAlreadyDone(record) {
		return record, true, nil
	}

	updates := snapshotColumns("check_in_", snapshot)
	for col, val := range snapshotColumns("check_out_", models.ValidationSnapshot{}) {
		updates[col] = val
	}
	updates["status"] = models.StatusPending
	updates["override_reason"] = ""

	res := s.db.Model(&models.AttendanceRecord{}).
		Where("id = ? AND status <> ?", record.ID, models.StatusPresent).
		Updates(updates)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent writer finalized the record between our read and the
		// conditioned update; re-fetch and treat as already done.
		var fresh models.AttendanceRecord
		if err := s.db.First(&fresh, record.ID).Error; err != nil {
			return nil, false, err
		}
		return &fresh, true, nil
	}

	var fresh models.AttendanceRecord
	if err := s.db.First(&fresh, record.ID).Error; err != nil {
		return nil, false, err
	}
	s.publish(&fresh, student, recordEvent(EventUpdate, &fresh, student))
	return &fresh, false, nil
}

// CheckOutRequest targets an existing record owned by the student.
type CheckOutRequest struct {
	RecordID  uint
	StudentID uint
	Attempt   Attempt
}

// CheckOut validates and applies one check-out attempt. The bool result is
// true when the record already had a check-out snapshot (idempotent no-op).
func (s *Service) CheckOut(req CheckOutRequest) (*models.AttendanceRecord, bool, error) {
	var record models.AttendanceRecord
	if err := s.db.First(&record, req.RecordID).Error; err != nil {
		return nil, false, notFound("attendance record")
	}
	if record.StudentID != req.StudentID {
		return nil, false, notFound("attendance record")
	}

	if checkOutAlreadyDone(&record) {
		return &record, true, nil
	}
	if record.Status != models.StatusPending {
		return nil, false, &PolicyError{
			Reason: fmt.Sprintf("record is %s, only pending records can be checked out", record.Status),
		}
	}

	var student models.User
	if err := s.db.First(&student, record.StudentID).Error; err != nil {
		return nil, false, notFound("student")
	}
	var location models.Location
	if err := s.db.First(&location, record.LocationID).Error; err != nil {
		return nil, false, notFound("location")
	}

	window, err := validation.GraceWindow(record.EndTime, checkOutGrace())
	if err != nil {
		return nil, false, &PolicyError{Reason: fmt.Sprintf("invalid scheduled end time %q", record.EndTime)}
	}
	current := req.Attempt.At.Format("15:04")
	if !validation.WithinWindow(current, window.Start, window.End) {
		return nil, false, &PolicyError{
			Reason: fmt.Sprintf("check-out window %s is closed (submitted at %s)", window, current),
		}
	}

	snapshot, device := buildSnapshot(req.Attempt, &location, student.DeviceID, gpsBuffer())
	wifiConfigured := len(decodeStringList(location.TrustedWifiIDs)) > 0
	if reason := rejectionReason(snapshot, device, wifiConfigured); reason != "" {
		return nil, false, policyRejected(snapshot, "%s", reason)
	}

	newStatus, anomaly := checkoutStatus(&record)
	if anomaly {
		logrus.WithFields(logrus.Fields{
			"record_id":  record.ID,
			"student_id": record.StudentID,
		}).Warn("check-out on a record without a check-in snapshot")
	}

	updates := snapshotColumns("check_out_", snapshot)
	updates["status"] = newStatus

	// Conditioned on the exact prior state so a stale read cannot overwrite
	// a newer write.
	res := s.db.Model(&models.AttendanceRecord{}).
		Where("id = ? AND student_id = ? AND status = ? AND check_out_timestamp IS NULL",
			record.ID, req.StudentID, models.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		var fresh models.AttendanceRecord
		if err := s.db.First(&fresh, record.ID).Error; err != nil {
			return nil, false, err
		}
		if checkOutAlreadyDone(&fresh) {
			return &fresh, true, nil
		}
		return nil, false, &ConflictError{Message: "record changed concurrently, retry check-out"}
	}

	var fresh models.AttendanceRecord
	if err := s.db.First(&fresh, record.ID).Error; err != nil {
		return nil, false, err
	}
	s.publish(&fresh, &student, recordEvent(EventUpdate, &fresh, &student))
	return &fresh, false, nil
}

// allowedOverrideStatuses excludes Pending: an override always lands on a
// marked status.
var allowedOverrideStatuses = map[string]bool{
	models.StatusPresent: true,
	models.StatusAbsent:  true,
	models.StatusLate:    true,
	models.StatusExcused: true,
}

// BuildOverrideReason generates the audit string stored with an override.
func BuildOverrideReason(role, contact string, at time.Time, freeText string) string {
	reason := fmt.Sprintf("Overridden by %s (%s) at %s", role, contact, at.Format(time.RFC3339))
	if strings.TrimSpace(freeText) != "" {
		reason += ": " + strings.TrimSpace(freeText)
	}
	return reason
}

// Override applies an administrative status override. Admins may override
// any record; professors only records of their own classes. A status-change
// event (and a student notification) is emitted only when the value actually
// changed.
func (s *Service) Override(recordID uint, newStatus, freeText string, actor *models.User) (*models.AttendanceRecord, error) {
	if !allowedOverrideStatuses[newStatus] {
		return nil, &PolicyError{Reason: fmt.Sprintf("status %q is not an allowed override target", newStatus)}
	}

	var record models.AttendanceRecord
	if err := s.db.First(&record, recordID).Error; err != nil {
		return nil, notFound("attendance record")
	}

	switch actor.Role {
	case "admin":
		// any record
	case "professor":
		if record.ProfessorID != actor.ID {
			return nil, &AuthzError{Message: "professors may only override records of their own classes"}
		}
	default:
		return nil, &AuthzError{Message: "only professors and admins may override attendance"}
	}

	previous := record.Status
	reason := BuildOverrideReason(actor.Role, actor.Email, time.Now(), freeText)
	updates := map[string]interface{}{
		"status":          newStatus,
		"override_reason": reason,
	}

	// Conditioned on the status we read so a concurrent override cannot make
	// us broadcast a stale old_status.
	res := s.overrideQuery(record.ID, previous).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := s.db.First(&record, recordID).Error; err != nil {
			return nil, notFound("attendance record")
		}
		previous = record.Status
		res = s.overrideQuery(record.ID, previous).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, &ConflictError{Message: "record changed concurrently, retry override"}
		}
	}
	record.Status = newStatus
	record.OverrideReason = reason

	if previous != newStatus {
		var student models.User
		if err := s.db.First(&student, record.StudentID).Error; err == nil {
			ev := recordEvent(EventStatusChange, &record, &student)
			ev.OldStatus = previous
			ev.NewStatus = newStatus
			ev.ActorRole = actor.Role
			s.publish(&record, &student, ev)

			s.notifyStatusChange(&record, &student, previous, newStatus)
		}
	}

	return &record, nil
}

// overrideQuery scopes an override update to the exact record state that was
// read, so the transition never applies over a concurrent writer's result.
func (s *Service) overrideQuery(recordID uint, previousStatus string) *gorm.DB {
	return s.db.Model(&models.AttendanceRecord{}).
		Where("id = ? AND status = ?", recordID, previousStatus)
}

// notifyStatusChange tells the student their status was overridden.
// Best-effort, same as the broadcast.
func (s *Service) notifyStatusChange(record *models.AttendanceRecord, student *models.User, oldStatus, newStatus string) {
	notifService := notifications.NewService()
	n := notifications.QueuedWithData(
		"Attendance status updated",
		fmt.Sprintf("Your attendance on %s was changed from %s to %s",
			record.ClassDate.Format("2006-01-02"), oldStatus, newStatus),
		"info",
		map[string]interface{}{"record_id": record.ID, "status": newStatus},
	)
	if err := notifService.EnqueueOrCreate([]uint{student.ID}, n); err != nil {
		logrus.WithError(err).Warn("Failed to notify student of status override")
	}
}

// snapshotColumns flattens a snapshot into prefixed column updates, matching
// the embedded column layout of AttendanceRecord.
func snapshotColumns(prefix string, snap models.ValidationSnapshot) map[string]interface{} {
	return map[string]interface{}{
		prefix + "method":        snap.Method,
		prefix + "timestamp":     snap.Timestamp,
		prefix + "geo_pass":      snap.GeoPass,
		prefix + "wifi_pass":     snap.WifiPass,
		prefix + "mock_detected": snap.MockDetected,
		prefix + "device_match":  snap.DeviceMatch,
		prefix + "device_id":     snap.DeviceID,
		prefix + "accuracy":      snap.Accuracy,
		prefix + "latitude":      snap.Latitude,
		prefix + "longitude":     snap.Longitude,
		prefix + "wifi_ids":      snap.WifiIDs,
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
