package attendance

import (
	"fmt"
	"time"

	"geoattend_go/models"

	"github.com/sirupsen/logrus"
)

// Event types published to session rooms
const (
	EventCreate       = "CREATE"
	EventUpdate       = "UPDATE"
	EventStatusChange = "STATUS_CHANGE"
)

// RoomHub is the publish capability injected into the state machine. Publish
// is fire-and-forget after the durable write: a failure is logged and
// dropped, never surfaced to the request.
type RoomHub interface {
	BroadcastToRoom(room string, message interface{})
}

// RoomKey identifies the broadcast topic for one class occurrence.
func RoomKey(professorID, subjectID uint, classDate time.Time, startTime string) string {
	return fmt.Sprintf("%d-%d-%s-%s", professorID, subjectID, classDate.Format("2006-01-02"), startTime)
}

// Event is one record-lifecycle notification delivered to live session
// viewers.
type Event struct {
	Type         string     `json:"type"`
	RecordID     uint       `json:"record_id"`
	StudentID    uint       `json:"student_id"`
	StudentName  string     `json:"student_name"`
	Status       string     `json:"status"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	OldStatus    string     `json:"old_status,omitempty"`
	NewStatus    string     `json:"new_status,omitempty"`
	ActorRole    string     `json:"actor_role,omitempty"`
}

func recordEvent(eventType string, record *models.AttendanceRecord, student *models.User) Event {
	ev := Event{
		Type:         eventType,
		RecordID:     record.ID,
		StudentID:    record.StudentID,
		Status:       record.Status,
		CheckInTime:  record.CheckIn.Timestamp,
		CheckOutTime: record.CheckOut.Timestamp,
	}
	if student != nil {
		ev.StudentName = student.FirstName + " " + student.LastName
	}
	return ev
}

// publish fans the event out to the record's session room. Never fails the
// caller.
func (s *Service) publish(record *models.AttendanceRecord, student *models.User, ev Event) {
	if s.hub == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("panic recovered publishing attendance event")
		}
	}()

	room := RoomKey(record.ProfessorID, record.SubjectID, record.ClassDate, record.StartTime)
	s.hub.BroadcastToRoom(room, ev)
}
