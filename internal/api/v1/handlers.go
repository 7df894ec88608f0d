package apiv1

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const healthTimeout = 3 * time.Second

// Check probes one dependency. A nil error means healthy.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
	// Optional checks degrade the report instead of failing it.
	Optional bool
}

// APIServer implements the ServerInterface
type APIServer struct {
	checks []Check
}

// NewAPIServer creates a new API server instance
func NewAPIServer(checks ...Check) *APIServer {
	return &APIServer{checks: checks}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetHealth runs every check. Any failing required check answers 503.
func (s *APIServer) GetHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	report := Health{Status: "ok", Components: make([]ComponentStatus, 0, len(s.checks))}
	status := fiber.StatusOK
	for _, check := range s.checks {
		cs := ComponentStatus{Name: check.Name, Status: "ok"}
		if err := check.Probe(ctx); err != nil {
			cs.Status = "down"
			cs.Error = err.Error()
			log.Warnf("[Health] %s: %v", check.Name, err)
			if check.Optional {
				if report.Status == "ok" {
					report.Status = "degraded"
				}
			} else {
				report.Status = "down"
				status = fiber.StatusServiceUnavailable
			}
		}
		report.Components = append(report.Components, cs)
	}
	return c.Status(status).JSON(report)
}
