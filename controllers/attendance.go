package controllers

import (
	"errors"
	"time"

	"geoattend_go/database"
	"geoattend_go/middleware"
	"geoattend_go/models"
	"geoattend_go/services/attendance"
	"geoattend_go/services/validation"
	"geoattend_go/utils"

	"github.com/gofiber/fiber/v2"
)

// AttendanceController exposes the check-in/check-out lifecycle plus the
// read-side queries. All state transitions live in the attendance service;
// this layer only parses, authorizes and maps errors to HTTP.
type AttendanceController struct {
	Service *attendance.Service
}

func NewAttendanceController(service *attendance.Service) *AttendanceController {
	return &AttendanceController{Service: service}
}

// attendanceError maps service errors to HTTP responses. Policy rejections
// carry the full validation snapshot so the client can explain the outcome.
func attendanceError(c *fiber.Ctx, err error) error {
	var notFound *attendance.NotFoundError
	var policy *attendance.PolicyError
	var authz *attendance.AuthzError
	var conflict *attendance.ConflictError

	switch {
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound.Error()})
	case errors.As(err, &policy):
		resp := fiber.Map{"error": policy.Reason}
		if policy.Snapshot != nil {
			resp["validation"] = utils.ToSnapshotDTO(*policy.Snapshot)
		}
		return c.Status(fiber.StatusForbidden).JSON(resp)
	case errors.As(err, &authz):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": authz.Message})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": conflict.Message})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

// attemptBody is the client-signal portion shared by check-in and check-out.
type attemptBody struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Accuracy     float64  `json:"accuracy"`
	WifiIDs      []string `json:"wifi_ids"`
	MockDetected bool     `json:"mock_detected"`
	DeviceID     string   `json:"device_id"`
	Method       string   `json:"method"`
}

func (b attemptBody) toAttempt() attendance.Attempt {
	method := b.Method
	if method == "" {
		method = models.MethodManual
	}
	return attendance.Attempt{
		Method:       method,
		At:           time.Now(),
		Coordinates:  validation.Point{Latitude: b.Latitude, Longitude: b.Longitude},
		Accuracy:     b.Accuracy,
		WifiIDs:      b.WifiIDs,
		MockDetected: b.MockDetected,
		DeviceID:     b.DeviceID,
	}
}

// CheckInBody targets one live session.
type CheckInBody struct {
	SessionID uint `json:"session_id" validate:"required"`
	attemptBody
}

// CheckIn handles POST /api/attendance/check-in for the authenticated
// student. The target class occurrence comes from the live session.
func (ac *AttendanceController) CheckIn(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	var body CheckInBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var session models.ActiveClassSession
	if err := database.DB.Preload("TimetableSlot").
		Where("id = ? AND is_active = ?", body.SessionID, true).
		First(&session).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "active session not found"})
	}

	record, already, err := ac.Service.CheckIn(attendance.CheckInRequest{
		StudentID:   user.ID,
		SubjectID:   session.SubjectID,
		ProfessorID: session.ProfessorID,
		LocationID:  session.TimetableSlot.LocationID,
		ClassDate:   session.ClassDate,
		StartTime:   session.StartTime,
		EndTime:     session.TimetableSlot.EndTime,
		Term:        session.Term,
		Attempt:     body.toAttempt(),
	})
	if err != nil {
		middleware.LogActivity(c, "CHECK_IN_REJECTED", "attendance", 0, fiber.Map{
			"session_id": session.ID,
			"reason":     err.Error(),
		})
		return attendanceError(c, err)
	}

	middleware.LogActivity(c, "CHECK_IN", "attendance", record.ID, fiber.Map{
		"session_id": session.ID,
		"already":    already,
	})

	message := "Checked in"
	if already {
		message = "Already checked in"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"record":  utils.ToAttendanceRecordDTO(*record),
	})
}

// CheckOutBody targets one of the student's own records.
type CheckOutBody struct {
	RecordID uint `json:"record_id" validate:"required"`
	attemptBody
}

// CheckOut handles POST /api/attendance/check-out
func (ac *AttendanceController) CheckOut(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	var body CheckOutBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	record, already, err := ac.Service.CheckOut(attendance.CheckOutRequest{
		RecordID:  body.RecordID,
		StudentID: user.ID,
		Attempt:   body.toAttempt(),
	})
	if err != nil {
		middleware.LogActivity(c, "CHECK_OUT_REJECTED", "attendance", body.RecordID, fiber.Map{
			"reason": err.Error(),
		})
		return attendanceError(c, err)
	}

	middleware.LogActivity(c, "CHECK_OUT", "attendance", record.ID, fiber.Map{"already": already})

	message := "Checked out"
	if already {
		message = "Already checked out"
	}
	return c.JSON(fiber.Map{
		"message": message,
		"record":  utils.ToAttendanceRecordDTO(*record),
	})
}

// CurrentStatus handles GET /api/attendance/status for one live session.
func (ac *AttendanceController) CurrentStatus(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	sessionID := c.QueryInt("session_id")
	if sessionID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_id is required"})
	}

	var session models.ActiveClassSession
	if err := database.DB.First(&session, sessionID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	record, err := ac.Service.CurrentStatus(user.ID, session.SubjectID, session.ClassDate, session.StartTime, session.Term)
	if err != nil {
		return attendanceError(c, err)
	}
	if record == nil {
		return c.JSON(fiber.Map{"record": nil, "status": models.StatusAbsent})
	}
	return c.JSON(fiber.Map{
		"record": utils.ToAttendanceRecordDTO(*record),
		"status": record.Status,
	})
}

// History handles GET /api/attendance/history with paging and filters.
func (ac *AttendanceController) History(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	filter := attendance.HistoryFilter{
		SubjectID: uint(c.QueryInt("subject_id")),
		Term:      c.Query("term"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 20),
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = &t
		}
	}

	records, total, err := ac.Service.History(user.ID, filter)
	if err != nil {
		return attendanceError(c, err)
	}

	dtos := make([]utils.AttendanceRecordDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, utils.ToAttendanceRecordDTO(r))
	}

	return c.JSON(fiber.Map{
		"records": dtos,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

// SubjectSummaries handles GET /api/attendance/summary
func (ac *AttendanceController) SubjectSummaries(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	summaries, err := ac.Service.SubjectSummaries(user.ID, c.Query("term"))
	if err != nil {
		return attendanceError(c, err)
	}
	return c.JSON(fiber.Map{"summaries": summaries})
}

// OverrideBody carries the admin/professor override target status.
type OverrideBody struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

// Override handles PUT /api/attendance/:id/override
func (ac *AttendanceController) Override(c *fiber.Ctx) error {
	actor, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	recordID, err := c.ParamsInt("id")
	if err != nil || recordID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid record ID"})
	}

	var body OverrideBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	record, err := ac.Service.Override(uint(recordID), body.Status, body.Reason, actor)
	if err != nil {
		return attendanceError(c, err)
	}

	middleware.LogActivity(c, "OVERRIDE", "attendance", record.ID, fiber.Map{
		"status": body.Status,
		"reason": body.Reason,
	})

	return c.JSON(fiber.Map{
		"message": "Attendance status updated",
		"record":  utils.ToAttendanceRecordDTO(*record),
	})
}

// Analytics handles GET /api/attendance/analytics (admin only)
func (ac *AttendanceController) Analytics(c *fiber.Ctx) error {
	breakdown, err := ac.Service.Analytics(c.Query("term"), uint(c.QueryInt("subject_id")))
	if err != nil {
		return attendanceError(c, err)
	}
	return c.JSON(fiber.Map{"analytics": breakdown})
}
