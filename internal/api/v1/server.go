package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// Pong is the body of GET /ping.
type Pong struct {
	Ping string `json:"ping"`
}

// ComponentStatus is one dependency in a health report.
type ComponentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Health is the body of GET /health.
type Health struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components"`
}

// ServerInterface lists the operations served under /api/v1.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /health)
	GetHealth(c *fiber.Ctx) error
}

// RegisterHandlers mounts every operation of si on router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)
	router.Get("/health", si.GetHealth)
}
