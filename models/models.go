package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User model. DeviceID is bound by account management on the first successful
// login from a device; the attendance core only ever reads it. The unique
// index keeps at most one account per device.
type User struct {
	BaseModel
	Username    string  `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password    string  `json:"-" gorm:"size:255;not null"`
	Email       string  `json:"email" gorm:"size:255;uniqueIndex"`
	Phone       string  `json:"phone" gorm:"size:20"`
	FirstName   string  `json:"first_name" gorm:"size:100"`
	LastName    string  `json:"last_name" gorm:"size:100"`
	Role        string  `json:"role" gorm:"size:50;not null;default:'student';type:enum('student','professor','admin')"` // student, professor, admin
	Status      string  `json:"status" gorm:"size:50;not null;default:'active';type:enum('active','inactive','suspended')"`
	DeviceID    *string `json:"device_id,omitempty" gorm:"size:255;uniqueIndex"`
	Branch      string  `json:"branch" gorm:"size:50"`
	Semester    string  `json:"semester" gorm:"size:20"`
	Section     string  `json:"section" gorm:"size:20"`
	Term        string  `json:"term" gorm:"size:50"`
	LineGroupID string  `json:"line_group_id,omitempty" gorm:"size:100"` // professors only, for session alerts
}

// Subject model
type Subject struct {
	BaseModel
	Code string `json:"code" gorm:"size:50;not null;uniqueIndex"`
	Name string `json:"name" gorm:"size:255;not null"`
}

// Location model. TrustedWifiIDs is an optional JSON array of network
// identifiers; an empty set means the location has no wireless requirement.
type Location struct {
	BaseModel
	Name           string  `json:"name" gorm:"size:255;not null"`
	Latitude       float64 `json:"latitude" gorm:"not null"`
	Longitude      float64 `json:"longitude" gorm:"not null"`
	RadiusMeters   float64 `json:"radius_meters" gorm:"not null"`
	TrustedWifiIDs JSON    `json:"trusted_wifi_ids" gorm:"type:json"`
}

// TimetableSlot defines one recurring weekly class occurrence for a
// branch/semester/section in a term.
type TimetableSlot struct {
	BaseModel
	Branch      string `json:"branch" gorm:"size:50;not null"`
	Semester    string `json:"semester" gorm:"size:20;not null"`
	Section     string `json:"section" gorm:"size:20;not null"`
	Term        string `json:"term" gorm:"size:50;not null"`
	DayOfWeek   int    `json:"day_of_week" gorm:"not null"` // 0 = Sunday
	SubjectID   uint   `json:"subject_id" gorm:"not null"`
	ProfessorID uint   `json:"professor_id" gorm:"not null"`
	LocationID  uint   `json:"location_id" gorm:"not null"`
	StartTime   string `json:"start_time" gorm:"size:5;not null"` // "HH:mm"
	EndTime     string `json:"end_time" gorm:"size:5;not null"`

	// Relationships
	Subject   Subject  `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Professor User     `json:"professor,omitempty" gorm:"foreignKey:ProfessorID"`
	Location  Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`
}

// ActiveClassSession is a professor's live, dynamically geofenced class
// instance. ActiveKey holds "<professor>-<subject>-<date>-<start>" while the
// session is active and NULL once ended, so the unique index enforces at most
// one active row per key without any locking.
type ActiveClassSession struct {
	BaseModel
	TimetableSlotID  uint       `json:"timetable_slot_id" gorm:"not null"`
	DayOfWeek        int        `json:"day_of_week" gorm:"not null"`
	StartTime        string     `json:"start_time" gorm:"size:5;not null"`
	ProfessorID      uint       `json:"professor_id" gorm:"not null;index"`
	SubjectID        uint       `json:"subject_id" gorm:"not null"`
	ClassDate        time.Time  `json:"class_date" gorm:"not null"` // midnight-normalized
	Term             string     `json:"term" gorm:"size:50;not null"`
	Latitude         float64    `json:"latitude" gorm:"not null"`
	Longitude        float64    `json:"longitude" gorm:"not null"`
	RadiusMeters     float64    `json:"radius_meters" gorm:"not null"`
	SessionStartTime time.Time  `json:"session_start_time" gorm:"not null"`
	ExpectedEndTime  time.Time  `json:"expected_end_time" gorm:"not null"`
	SessionEndTime   *time.Time `json:"session_end_time"`
	IsActive         bool       `json:"is_active" gorm:"not null;default:true"`
	WifiIDs          JSON       `json:"wifi_ids" gorm:"type:json"`
	ActiveKey        *string    `json:"-" gorm:"size:255;uniqueIndex"`

	// Relationships
	TimetableSlot TimetableSlot `json:"timetable_slot,omitempty" gorm:"foreignKey:TimetableSlotID"`
	Professor     User          `json:"professor,omitempty" gorm:"foreignKey:ProfessorID"`
	Subject       Subject       `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

// Snapshot method tags
const (
	MethodManual  = "manual"
	MethodAutoGeo = "auto-geo"
	MethodAdmin   = "admin"
)

// ValidationSnapshot records every signal evaluated at the moment of a
// check-in or check-out attempt. Presence is signalled by a non-nil
// Timestamp; once the record is finalized the snapshot is never rewritten.
type ValidationSnapshot struct {
	Method       string     `json:"method,omitempty" gorm:"size:20"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	GeoPass      bool       `json:"geo_pass"`
	WifiPass     bool       `json:"wifi_pass"`
	MockDetected bool       `json:"mock_detected"`
	DeviceMatch  bool       `json:"device_match"`
	DeviceID     string     `json:"device_id,omitempty" gorm:"size:255"`
	Accuracy     float64    `json:"accuracy,omitempty"`
	Latitude     float64    `json:"latitude,omitempty"`
	Longitude    float64    `json:"longitude,omitempty"`
	WifiIDs      JSON       `json:"wifi_ids,omitempty" gorm:"type:json"`
}

// Present reports whether the snapshot was ever written.
func (s ValidationSnapshot) Present() bool {
	return s.Timestamp != nil
}

// Attendance statuses
const (
	StatusPending = "pending"
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// AttendanceRecord is the central entity. The composite unique index on the
// logical key (student, subject, class date, scheduled start, term) resolves
// concurrent duplicate check-ins: the losing writer re-fetches and reconciles
// instead of creating a second row.
type AttendanceRecord struct {
	BaseModel
	StudentID   uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_attendance_logical_key"`
	SubjectID   uint      `json:"subject_id" gorm:"not null;uniqueIndex:idx_attendance_logical_key"`
	ProfessorID uint      `json:"professor_id" gorm:"not null;index"`
	LocationID  uint      `json:"location_id" gorm:"not null"`
	ClassDate   time.Time `json:"class_date" gorm:"not null;uniqueIndex:idx_attendance_logical_key"` // midnight-normalized
	StartTime   string    `json:"start_time" gorm:"size:5;not null;uniqueIndex:idx_attendance_logical_key"`
	EndTime     string    `json:"end_time" gorm:"size:5;not null"`
	Term        string    `json:"term" gorm:"size:50;not null;uniqueIndex:idx_attendance_logical_key"`

	CheckIn  ValidationSnapshot `json:"check_in" gorm:"embedded;embeddedPrefix:check_in_"`
	CheckOut ValidationSnapshot `json:"check_out" gorm:"embedded;embeddedPrefix:check_out_"`

	Status         string `json:"status" gorm:"size:20;not null;default:'pending';type:enum('pending','present','absent','late','excused')"`
	OverrideReason string `json:"override_reason,omitempty" gorm:"type:text"`

	// Relationships
	Student  User     `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Subject  Subject  `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Location Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Notification model
type Notification struct {
	BaseModel
	UserID  uint       `json:"user_id" gorm:"not null"`
	Title   string     `json:"title" gorm:"size:255;not null"`
	Message string     `json:"message" gorm:"type:text;not null"`
	Type    string     `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"` // info, warning, error, success
	Data    JSON       `json:"data,omitempty" gorm:"type:json"`
	Read    bool       `json:"read" gorm:"default:false"`
	ReadAt  *time.Time `json:"read_at"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// LogArchive tracks activity-log batches shipped to S3.
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"` // pending, completed, failed
	Error       string    `json:"error" gorm:"type:text"`
}
