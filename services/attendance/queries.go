package attendance

import (
	"errors"
	"sort"
	"time"

	"geoattend_go/models"
	"geoattend_go/utils"

	"gorm.io/gorm"
)

// CurrentStatus returns the student's record for one attendance opportunity,
// or nil when no record exists yet. Store failures propagate; only a missing
// row reads as "no record".
func (s *Service) CurrentStatus(studentID, subjectID uint, classDate time.Time, startTime, term string) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	err := s.db.Where(
		"student_id = ? AND subject_id = ? AND class_date = ? AND start_time = ? AND term = ?",
		studentID, subjectID, utils.DateOnly(classDate), startTime, term,
	).First(&record).Error
	return lookupResult(&record, err)
}

// lookupResult separates "no row" from a failed lookup.
func lookupResult(record *models.AttendanceRecord, err error) (*models.AttendanceRecord, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// HistoryFilter narrows and pages a student's attendance history.
type HistoryFilter struct {
	SubjectID uint
	Term      string
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// History returns the student's records, newest class first, with the total
// for pagination.
func (s *Service) History(studentID uint, filter HistoryFilter) ([]models.AttendanceRecord, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	query := s.db.Model(&models.AttendanceRecord{}).Where("student_id = ?", studentID)
	if filter.SubjectID != 0 {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.Term != "" {
		query = query.Where("term = ?", filter.Term)
	}
	if filter.From != nil {
		query = query.Where("class_date >= ?", utils.DateOnly(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("class_date <= ?", utils.DateOnly(*filter.To))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.AttendanceRecord
	err := query.Preload("Subject").
		Order("class_date DESC, start_time DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SubjectSummary is the per-subject attendance percentage projection. Late
// counts as attended. Total counts only marked records; a Pending record
// (checked in, class still running) is reported separately and never deflates
// the percentage.
type SubjectSummary struct {
	SubjectID   uint   `json:"subject_id"`
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Total       int64  `json:"total"`
	Pending     int64  `json:"pending"`
	Present     int64  `json:"present"`
	Late        int64  `json:"late"`
	Absent      int64  `json:"absent"`
	Excused     int64  `json:"excused"`
	Percent     int    `json:"percent"`
}

// SubjectSummaries aggregates a student's records per subject for a term.
func (s *Service) SubjectSummaries(studentID uint, term string) ([]SubjectSummary, error) {
	type row struct {
		SubjectID   uint
		SubjectCode string
		SubjectName string
		Total       int64
		Pending     int64
		Present     int64
		Late        int64
		Absent      int64
		Excused     int64
	}

	var rows []row
	query := s.db.Model(&models.AttendanceRecord{}).
		Select(`attendance_records.subject_id,
			subjects.code AS subject_code,
			subjects.name AS subject_name,
			COUNT(*) AS total,
			SUM(attendance_records.status = 'pending') AS pending,
			SUM(attendance_records.status = 'present') AS present,
			SUM(attendance_records.status = 'late') AS late,
			SUM(attendance_records.status = 'absent') AS absent,
			SUM(attendance_records.status = 'excused') AS excused`).
		Joins("JOIN subjects ON subjects.id = attendance_records.subject_id").
		Where("attendance_records.student_id = ?", studentID).
		Group("attendance_records.subject_id, subjects.code, subjects.name")
	if term != "" {
		query = query.Where("attendance_records.term = ?", term)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	summaries := make([]SubjectSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, SubjectSummary{
			SubjectID:   r.SubjectID,
			SubjectCode: r.SubjectCode,
			SubjectName: r.SubjectName,
			Total:       r.Total - r.Pending,
			Pending:     r.Pending,
			Present:     r.Present,
			Late:        r.Late,
			Absent:      r.Absent,
			Excused:     r.Excused,
			Percent:     markedPercent(r.Present, r.Late, r.Total, r.Pending),
		})
	}
	return summaries, nil
}

// RosterEntry is one student row of a professor's live-session view.
// Students without a record appear as Absent.
type RosterEntry struct {
	StudentID    uint       `json:"student_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	RecordID     uint       `json:"record_id,omitempty"`
	Status       string     `json:"status"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
}

// LiveRoster left-joins every student enrolled in the slot's
// branch/semester/section against the records of one class occurrence.
func (s *Service) LiveRoster(slot *models.TimetableSlot, classDate time.Time) ([]RosterEntry, error) {
	var students []models.User
	err := s.db.Where(
		"role = ? AND status = ? AND branch = ? AND semester = ? AND section = ?",
		"student", "active", slot.Branch, slot.Semester, slot.Section,
	).Find(&students).Error
	if err != nil {
		return nil, err
	}

	var records []models.AttendanceRecord
	err = s.db.Where(
		"subject_id = ? AND class_date = ? AND start_time = ? AND term = ?",
		slot.SubjectID, utils.DateOnly(classDate), slot.StartTime, slot.Term,
	).Find(&records).Error
	if err != nil {
		return nil, err
	}

	byStudent := make(map[uint]*models.AttendanceRecord, len(records))
	for i := range records {
		byStudent[records[i].StudentID] = &records[i]
	}

	roster := make([]RosterEntry, 0, len(students))
	for _, student := range students {
		entry := RosterEntry{
			StudentID: student.ID,
			FirstName: student.FirstName,
			LastName:  student.LastName,
			Status:    models.StatusAbsent,
		}
		if record, ok := byStudent[student.ID]; ok {
			entry.RecordID = record.ID
			entry.Status = record.Status
			entry.CheckInTime = record.CheckIn.Timestamp
			entry.CheckOutTime = record.CheckOut.Timestamp
		}
		roster = append(roster, entry)
	}

	sortRoster(roster)
	return roster, nil
}

// sortRoster orders entries by last name, then first name.
func sortRoster(roster []RosterEntry) {
	sort.SliceStable(roster, func(i, j int) bool {
		if roster[i].LastName != roster[j].LastName {
			return roster[i].LastName < roster[j].LastName
		}
		return roster[i].FirstName < roster[j].FirstName
	})
}

// StatusBreakdown is the admin analytics projection: record counts by status
// for a term, optionally scoped to one subject. Percent is present+late over
// the marked (non-pending) records.
type StatusBreakdown struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Present int64 `json:"present"`
	Late    int64 `json:"late"`
	Absent  int64 `json:"absent"`
	Excused int64 `json:"excused"`
	Percent int   `json:"percent"`
}

// Analytics aggregates all records for a term.
func (s *Service) Analytics(term string, subjectID uint) (*StatusBreakdown, error) {
	var row StatusBreakdown
	query := s.db.Model(&models.AttendanceRecord{}).
		Select(`COUNT(*) AS total,
			SUM(status = 'pending') AS pending,
			SUM(status = 'present') AS present,
			SUM(status = 'late') AS late,
			SUM(status = 'absent') AS absent,
			SUM(status = 'excused') AS excused`)
	if term != "" {
		query = query.Where("term = ?", term)
	}
	if subjectID != 0 {
		query = query.Where("subject_id = ?", subjectID)
	}
	if err := query.Scan(&row).Error; err != nil {
		return nil, err
	}
	row.Percent = markedPercent(row.Present, row.Late, row.Total, row.Pending)
	return &row, nil
}
