package routes

import (
	"geoattend_go/controllers"
	"geoattend_go/middleware"
	"geoattend_go/services/attendance"
	"geoattend_go/services/logarchive"
	"geoattend_go/services/reports"
	"geoattend_go/services/sessions"
	"geoattend_go/services/websocket"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, wsHub *websocket.Hub, attendanceSvc *attendance.Service, sessionsSvc *sessions.Service) {
	// Initialize controllers
	authController := &controllers.AuthController{}
	attendanceController := controllers.NewAttendanceController(attendanceSvc)
	sessionController := controllers.NewSessionController(sessionsSvc, attendanceSvc)
	reportController := controllers.NewReportController(reports.NewService(), logarchive.NewService())
	wsController := controllers.NewWebSocketController(wsHub)

	// API group
	api := app.Group("/api")

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	protected.Get("/profile", authController.GetProfile)
	protected.Post("/auth/logout", authController.Logout)
	protected.Put("/users/:id/device", middleware.RequireAdmin(), authController.UnbindDevice)

	// Attendance routes
	att := protected.Group("/attendance")
	att.Post("/check-in", middleware.RequireStudent(), attendanceController.CheckIn)
	att.Post("/check-out", middleware.RequireStudent(), attendanceController.CheckOut)
	att.Get("/status", middleware.RequireStudent(), attendanceController.CurrentStatus)
	att.Get("/history", middleware.RequireStudent(), attendanceController.History)
	att.Get("/summary", middleware.RequireStudent(), attendanceController.SubjectSummaries)
	att.Put("/:id/override", middleware.RequireProfessorOrAdmin(), attendanceController.Override)
	att.Get("/analytics", middleware.RequireAdmin(), attendanceController.Analytics)

	// Live session routes (professors)
	sess := protected.Group("/sessions", middleware.RequireProfessorOrAdmin())
	sess.Post("/start", sessionController.Start)
	sess.Post("/:id/end", sessionController.End)
	sess.Get("/active", sessionController.MyActive)
	sess.Get("/:id/roster", sessionController.LiveRoster)

	// Reports
	rep := protected.Group("/reports", middleware.RequireProfessorOrAdmin())
	rep.Get("/register", reportController.Register)
	rep.Get("/log-archives", middleware.RequireAdmin(), reportController.ListArchives)
	rep.Get("/log-archives/:id", middleware.RequireAdmin(), reportController.DownloadArchive)

	// WebSocket stats (admin)
	protected.Get("/ws/stats", middleware.RequireAdmin(), wsController.Stats)

	// WebSocket endpoint, token passed as query param
	app.Use("/ws", wsController.Upgrade)
	app.Get("/ws", wsController.Handler())
}
