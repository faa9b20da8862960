package main

import (
	"log"
	"os"
	"path/filepath"

	"geoattend_go/config"
	"geoattend_go/database"
	"geoattend_go/middleware"
	"geoattend_go/routes"
	"geoattend_go/services/attendance"
	"geoattend_go/services/linealert"
	"geoattend_go/services/logarchive"
	"geoattend_go/services/notifications"
	"geoattend_go/services/sessions"
	"geoattend_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func init() {
	setupLogging()

	config.LoadConfig()

	database.Connect()

	// Log maintenance: flush cached activity logs, archive old ones to S3
	logArchiveService := logarchive.NewService()
	logArchiveService.StartMaintenanceScheduler()
}

func main() {
	// WebSocket hub first, everything downstream publishes through it
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Wire notifications to the hub globally so any new Service uses it
	notifications.SetDefaultWSHub(wsHub)
	notifService := notifications.NewService()
	if config.AppConfig.UseRedisNotifications {
		stopNotif := make(chan struct{})
		notifService.StartWorker(stopNotif)
	}

	attendanceSvc := attendance.NewService(wsHub)

	sessionsSvc := sessions.NewService()
	sessionsSvc.SetAlerter(linealert.NewService())
	reaper := sessions.NewReaper(sessionsSvc)
	reaper.Start()

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.LogActivityMiddleware())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "GeoAttend API",
			"version": "1.0.0",
		})
	})

	routes.SetupRoutes(app, wsHub, attendanceSvc, sessionsSvc)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})

	port := config.AppConfig.Port
	logrus.Infof("Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

// customErrorHandler handles Fiber errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

// setupLogging configures logrus
func setupLogging() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "logs/app.log"
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
		if file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666); err == nil {
			logrus.SetOutput(file)
		} else {
			logrus.Warn("Failed to open log file, using stdout")
		}
	}

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
