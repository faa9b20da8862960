package utils

import (
	"time"

	"geoattend_go/models"
)

// UserDTO is the minimal principal shape returned to clients.
type UserDTO struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Branch    string `json:"branch,omitempty"`
	Semester  string `json:"semester,omitempty"`
	Section   string `json:"section,omitempty"`
	HasDevice bool   `json:"has_device"`
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Branch:    u.Branch,
		Semester:  u.Semester,
		Section:   u.Section,
		HasDevice: u.DeviceID != nil && *u.DeviceID != "",
	}
}

// SnapshotDTO mirrors the stored validation snapshot; it is part of the
// response contract so clients can explain rejections and audits.
type SnapshotDTO struct {
	Method       string      `json:"method,omitempty"`
	Timestamp    *time.Time  `json:"timestamp,omitempty"`
	GeoPass      bool        `json:"geo_pass"`
	WifiPass     bool        `json:"wifi_pass"`
	MockDetected bool        `json:"mock_detected"`
	DeviceMatch  bool        `json:"device_match"`
	Accuracy     float64     `json:"accuracy,omitempty"`
	Latitude     float64     `json:"latitude,omitempty"`
	Longitude    float64     `json:"longitude,omitempty"`
	WifiIDs      models.JSON `json:"wifi_ids,omitempty"`
}

func ToSnapshotDTO(s models.ValidationSnapshot) *SnapshotDTO {
	if !s.Present() {
		return nil
	}
	return &SnapshotDTO{
		Method:       s.Method,
		Timestamp:    s.Timestamp,
		GeoPass:      s.GeoPass,
		WifiPass:     s.WifiPass,
		MockDetected: s.MockDetected,
		DeviceMatch:  s.DeviceMatch,
		Accuracy:     s.Accuracy,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		WifiIDs:      s.WifiIDs,
	}
}

// AttendanceRecordDTO is the client-facing record shape.
type AttendanceRecordDTO struct {
	ID             uint         `json:"id"`
	StudentID      uint         `json:"student_id"`
	SubjectID      uint         `json:"subject_id"`
	SubjectCode    string       `json:"subject_code,omitempty"`
	SubjectName    string       `json:"subject_name,omitempty"`
	ClassDate      string       `json:"class_date"`
	StartTime      string       `json:"start_time"`
	EndTime        string       `json:"end_time"`
	Term           string       `json:"term"`
	Status         string       `json:"status"`
	OverrideReason string       `json:"override_reason,omitempty"`
	CheckIn        *SnapshotDTO `json:"check_in,omitempty"`
	CheckOut       *SnapshotDTO `json:"check_out,omitempty"`
}

func ToAttendanceRecordDTO(r models.AttendanceRecord) AttendanceRecordDTO {
	return AttendanceRecordDTO{
		ID:             r.ID,
		StudentID:      r.StudentID,
		SubjectID:      r.SubjectID,
		SubjectCode:    r.Subject.Code,
		SubjectName:    r.Subject.Name,
		ClassDate:      r.ClassDate.Format("2006-01-02"),
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Term:           r.Term,
		Status:         r.Status,
		OverrideReason: r.OverrideReason,
		CheckIn:        ToSnapshotDTO(r.CheckIn),
		CheckOut:       ToSnapshotDTO(r.CheckOut),
	}
}

// SessionDTO is the client-facing live-session shape.
type SessionDTO struct {
	ID               uint       `json:"id"`
	TimetableSlotID  uint       `json:"timetable_slot_id"`
	SubjectID        uint       `json:"subject_id"`
	ClassDate        string     `json:"class_date"`
	StartTime        string     `json:"start_time"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	RadiusMeters     float64    `json:"radius_meters"`
	SessionStartTime time.Time  `json:"session_start_time"`
	ExpectedEndTime  time.Time  `json:"expected_end_time"`
	SessionEndTime   *time.Time `json:"session_end_time,omitempty"`
	IsActive         bool       `json:"is_active"`
}

func ToSessionDTO(s models.ActiveClassSession) SessionDTO {
	return SessionDTO{
		ID:               s.ID,
		TimetableSlotID:  s.TimetableSlotID,
		SubjectID:        s.SubjectID,
		ClassDate:        s.ClassDate.Format("2006-01-02"),
		StartTime:        s.StartTime,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		RadiusMeters:     s.RadiusMeters,
		SessionStartTime: s.SessionStartTime,
		ExpectedEndTime:  s.ExpectedEndTime,
		SessionEndTime:   s.SessionEndTime,
		IsActive:         s.IsActive,
	}
}
