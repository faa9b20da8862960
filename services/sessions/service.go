package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"geoattend_go/config"
	"geoattend_go/database"
	"geoattend_go/models"
	"geoattend_go/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotFoundError covers a missing/foreign timetable slot and end attempts on
// sessions the professor does not own (or that already ended).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// AlreadyActiveError is the conflict returned when a session for the exact
// (professor, subject, date, scheduled start) key is already open. It carries
// the winning session so the caller can decide to reuse it.
type AlreadyActiveError struct {
	Existing *models.ActiveClassSession
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("session %d is already active for this class occurrence", e.Existing.ID)
}

// Alerter is an optional outbound notifier for session lifecycle moments
// (LINE group alerts). Best-effort only.
type Alerter interface {
	SessionStarted(professor *models.User, session *models.ActiveClassSession)
	SessionExpired(professor *models.User, session *models.ActiveClassSession)
}

// Service manages professor-opened live geofence sessions. The "at most one
// active session per key" rule lives in the store as a unique index over
// active_key, not in a mutex.
type Service struct {
	db      *gorm.DB
	alerter Alerter
}

func NewService() *Service {
	return &Service{db: database.GetDB()}
}

func NewServiceWithDB(db *gorm.DB) *Service {
	return &Service{db: db}
}

// SetAlerter wires the outbound session alerter.
func (s *Service) SetAlerter(a Alerter) {
	s.alerter = a
}

// ActiveKey builds the uniqueness key held by a session while it is active.
// Same shape as the broadcast room key for the occurrence.
func ActiveKey(professorID, subjectID uint, classDate time.Time, startTime string) string {
	return fmt.Sprintf("%d-%d-%s-%s", professorID, subjectID, classDate.Format("2006-01-02"), startTime)
}

// SlotMatchesDay reports whether the timetable slot is scheduled on the
// given calendar day.
func SlotMatchesDay(slot *models.TimetableSlot, day time.Time) bool {
	return slot.DayOfWeek == int(day.Weekday())
}

// StartRequest opens a live geofence for one scheduled class occurrence.
type StartRequest struct {
	ProfessorID     uint
	TimetableSlotID uint
	Latitude        float64
	Longitude       float64
	RadiusMeters    float64 // 0 means the configured default
	WifiIDs         []string
	Now             time.Time
}

func defaultSessionRadius() float64 {
	if config.AppConfig != nil {
		return config.AppConfig.DefaultSessionRadius
	}
	return 30
}

// Start validates the slot and creates an active session row. A duplicate
// for the identical key surfaces as AlreadyActiveError carrying the winner.
func (s *Service) Start(req StartRequest) (*models.ActiveClassSession, error) {
	var slot models.TimetableSlot
	if err := s.db.Preload("Subject").First(&slot, req.TimetableSlotID).Error; err != nil {
		return nil, &NotFoundError{Resource: "timetable slot"}
	}
	if slot.ProfessorID != req.ProfessorID {
		return nil, &NotFoundError{Resource: "timetable slot"}
	}
	if !SlotMatchesDay(&slot, req.Now) {
		return nil, &NotFoundError{Resource: "class occurrence for today"}
	}

	classDate := utils.DateOnly(req.Now)

	// One active session per professor across all subjects is evaluated but
	// deliberately not enforced; it only warns.
	var otherActive int64
	s.db.Model(&models.ActiveClassSession{}).
		Where("professor_id = ? AND is_active = ?", req.ProfessorID, true).
		Count(&otherActive)
	if otherActive > 0 {
		logrus.WithFields(logrus.Fields{
			"professor_id":   req.ProfessorID,
			"active_session": otherActive,
		}).Warn("professor is opening a session while another one is active")
	}

	radius := req.RadiusMeters
	if radius <= 0 {
		radius = defaultSessionRadius()
	}

	expectedEnd, err := utils.CombineDateAndTime(classDate, slot.EndTime)
	if err != nil {
		return nil, &NotFoundError{Resource: "timetable slot"}
	}

	key := ActiveKey(req.ProfessorID, slot.SubjectID, classDate, slot.StartTime)
	session := models.ActiveClassSession{
		TimetableSlotID:  slot.ID,
		DayOfWeek:        slot.DayOfWeek,
		StartTime:        slot.StartTime,
		ProfessorID:      req.ProfessorID,
		SubjectID:        slot.SubjectID,
		ClassDate:        classDate,
		Term:             slot.Term,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		RadiusMeters:     radius,
		SessionStartTime: req.Now,
		ExpectedEndTime:  expectedEnd,
		IsActive:         true,
		WifiIDs:          encodeStringList(req.WifiIDs),
		ActiveKey:        &key,
	}

	if err := s.db.Create(&session).Error; err != nil {
		if isDuplicateKey(err) {
			var existing models.ActiveClassSession
			if ferr := s.db.Where("active_key = ?", key).First(&existing).Error; ferr == nil {
				return nil, &AlreadyActiveError{Existing: &existing}
			}
		}
		return nil, err
	}

	if s.alerter != nil {
		var professor models.User
		if err := s.db.First(&professor, req.ProfessorID).Error; err == nil {
			s.alerter.SessionStarted(&professor, &session)
		}
	}

	return &session, nil
}

// End atomically closes a session. The update is scoped to (id, professor,
// is_active = true), so a non-owner or an already-ended session yields
// not-found rather than a silent success.
func (s *Service) End(sessionID, professorID uint, now time.Time) (*models.ActiveClassSession, error) {
	res := s.db.Model(&models.ActiveClassSession{}).
		Where("id = ? AND professor_id = ? AND is_active = ?", sessionID, professorID, true).
		Updates(map[string]interface{}{
			"is_active":        false,
			"session_end_time": now,
			"active_key":       nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "active session"}
	}

	var session models.ActiveClassSession
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// MyActive returns the professor's currently active session, or nil when
// there is none.
func (s *Service) MyActive(professorID uint) (*models.ActiveClassSession, error) {
	var session models.ActiveClassSession
	err := s.db.Preload("Subject").Preload("TimetableSlot").
		Where("professor_id = ? AND is_active = ?", professorID, true).
		Order("session_start_time DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// SlotForProfessor loads a timetable slot scoped to its owner, for the
// roster view.
func (s *Service) SlotForProfessor(slotID, professorID uint) (*models.TimetableSlot, error) {
	var slot models.TimetableSlot
	if err := s.db.Preload("Subject").Preload("Location").First(&slot, slotID).Error; err != nil {
		return nil, &NotFoundError{Resource: "timetable slot"}
	}
	if slot.ProfessorID != professorID {
		return nil, &NotFoundError{Resource: "timetable slot"}
	}
	return &slot, nil
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

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
