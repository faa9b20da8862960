package controllers

import (
	"strings"

	"geoattend_go/middleware"
	ws "geoattend_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// WebSocketController upgrades authenticated clients into the hub. Every
// client gets their per-user stream; professors and admins may additionally
// observe one session room passed as ?room=.
type WebSocketController struct {
	Hub *ws.Hub
}

func NewWebSocketController(hub *ws.Hub) *WebSocketController {
	return &WebSocketController{Hub: hub}
}

// Upgrade gates the route to websocket upgrade requests.
func (wc *WebSocketController) Upgrade(c *fiber.Ctx) error {
	if fiberws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler validates the ?token= JWT and hands the connection to the hub.
// Browsers cannot set headers on websocket dials, hence the query token.
func (wc *WebSocketController) Handler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		token := c.Query("token")
		if token == "" {
			c.Close()
			return
		}

		user, claims, err := middleware.ValidateToken(token)
		if err != nil {
			c.Close()
			return
		}

		room := strings.TrimSpace(c.Query("room"))
		if room != "" && claims.Role != "professor" && claims.Role != "admin" {
			room = ""
		}

		wc.Hub.ServeFiberWS(c, user.ID, room)
	})
}

// Stats handles GET /api/ws/stats (admin only)
func (wc *WebSocketController) Stats(c *fiber.Ctx) error {
	resp := fiber.Map{"clients": wc.Hub.GetClientCount()}
	if room := c.Query("room"); room != "" {
		resp["room_observers"] = wc.Hub.RoomObserverCount(room)
	}
	return c.JSON(resp)
}
