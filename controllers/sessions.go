package controllers

import (
	"errors"
	"time"

	"geoattend_go/middleware"
	"geoattend_go/services/attendance"
	"geoattend_go/services/sessions"
	"geoattend_go/utils"

	"github.com/gofiber/fiber/v2"
)

// SessionController exposes the professor-facing live-session lifecycle.
type SessionController struct {
	Sessions   *sessions.Service
	Attendance *attendance.Service
}

func NewSessionController(sessionsSvc *sessions.Service, attendanceSvc *attendance.Service) *SessionController {
	return &SessionController{Sessions: sessionsSvc, Attendance: attendanceSvc}
}

func sessionError(c *fiber.Ctx, err error) error {
	var notFound *sessions.NotFoundError
	var already *sessions.AlreadyActiveError

	switch {
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound.Error()})
	case errors.As(err, &already):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   already.Error(),
			"session": utils.ToSessionDTO(*already.Existing),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

// StartBody opens a live geofence for one timetable slot.
type StartBody struct {
	TimetableSlotID uint     `json:"timetable_slot_id" validate:"required"`
	Latitude        float64  `json:"latitude" validate:"required"`
	Longitude       float64  `json:"longitude" validate:"required"`
	RadiusMeters    float64  `json:"radius_meters"`
	WifiIDs         []string `json:"wifi_ids"`
}

// Start handles POST /api/sessions/start
func (sc *SessionController) Start(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	var body StartBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := sc.Sessions.Start(sessions.StartRequest{
		ProfessorID:     user.ID,
		TimetableSlotID: body.TimetableSlotID,
		Latitude:        body.Latitude,
		Longitude:       body.Longitude,
		RadiusMeters:    body.RadiusMeters,
		WifiIDs:         body.WifiIDs,
		Now:             time.Now(),
	})
	if err != nil {
		return sessionError(c, err)
	}

	middleware.LogActivity(c, "SESSION_START", "sessions", session.ID, fiber.Map{
		"timetable_slot_id": body.TimetableSlotID,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Session started",
		"session": utils.ToSessionDTO(*session),
		"room":    attendance.RoomKey(session.ProfessorID, session.SubjectID, session.ClassDate, session.StartTime),
	})
}

// End handles POST /api/sessions/:id/end
func (sc *SessionController) End(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	session, err := sc.Sessions.End(uint(sessionID), user.ID, time.Now())
	if err != nil {
		return sessionError(c, err)
	}

	middleware.LogActivity(c, "SESSION_END", "sessions", session.ID, nil)

	return c.JSON(fiber.Map{
		"message": "Session ended",
		"session": utils.ToSessionDTO(*session),
	})
}

// MyActive handles GET /api/sessions/active
func (sc *SessionController) MyActive(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	session, err := sc.Sessions.MyActive(user.ID)
	if err != nil {
		return sessionError(c, err)
	}
	if session == nil {
		return c.JSON(fiber.Map{"session": nil})
	}
	return c.JSON(fiber.Map{
		"session": utils.ToSessionDTO(*session),
		"room":    attendance.RoomKey(session.ProfessorID, session.SubjectID, session.ClassDate, session.StartTime),
	})
}

// LiveRoster handles GET /api/sessions/:id/roster. Students without a record
// for the occurrence appear as absent.
func (sc *SessionController) LiveRoster(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not authenticated"})
	}

	sessionID, err := c.ParamsInt("id")
	if err != nil || sessionID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	session, err := sc.Sessions.MyActive(user.ID)
	if err != nil {
		return sessionError(c, err)
	}
	if session == nil || session.ID != uint(sessionID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "active session not found"})
	}

	slot, err := sc.Sessions.SlotForProfessor(session.TimetableSlotID, user.ID)
	if err != nil {
		return sessionError(c, err)
	}

	roster, err := sc.Attendance.LiveRoster(slot, session.ClassDate)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load roster"})
	}

	return c.JSON(fiber.Map{
		"session": utils.ToSessionDTO(*session),
		"roster":  roster,
	})
}
