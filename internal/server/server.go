// Package server assembles the Fiber app: the websocket upgrade route plus
// the small read-only HTTP surface (health, rooms, presence).
package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/RoarthRyoma/ChatWebRoom/internal/config"
	"github.com/RoarthRyoma/ChatWebRoom/internal/hub"
	"github.com/RoarthRyoma/ChatWebRoom/internal/registry"
	"github.com/RoarthRyoma/ChatWebRoom/internal/router"
	"github.com/RoarthRyoma/ChatWebRoom/internal/ws"
)

func New(cfg *config.Config, h *hub.Hub, rt *router.Router, reg *registry.Registry, idx *registry.UserIndex, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "chat-web-room"})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.App.AllowedOrigins, ","),
		AllowMethods:     "GET,POST",
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(ws.Handler(h, rt, log, ws.Options{
		PingInterval:    cfg.PingInterval,
		WriteDeadline:   cfg.WriteDeadline,
		MaxMessageSize:  cfg.WS.MaxMessageSizeBytes,
		RateLimitPerSec: cfg.WS.RateLimitPerSec,
	})))

	app.Get("/rooms", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"rooms": reg.Snapshot()})
	})

	app.Get("/presence/:username", func(c *fiber.Ctx) error {
		username := c.Params("username")
		b, ok := idx.Lookup(username)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown user"})
		}
		// last known binding is advisory; live membership decides online
		online := false
		if m, found := reg.FindMembershipByConn(b.ConnID); found && m.Username == username {
			online = true
		}
		return c.JSON(fiber.Map{"username": username, "roomId": b.RoomID, "online": online})
	})

	return app
}
