package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/internal/pkg/statistics"
)

// DashboardSource provides the admin dashboard snapshot.
type DashboardSource interface {
	Get(ctx context.Context) (*statistics.Dashboard, error)
	Invalidate(ctx context.Context)
}

type StatsController struct {
	dashboard DashboardSource
}

func NewStatsController(dashboard DashboardSource) *StatsController {
	return &StatsController{dashboard: dashboard}
}

// HandleDashboard serves GET /admin/stats. ?refresh=true skips the cached copy.
func (sc *StatsController) HandleDashboard(c *fiber.Ctx) error {
	if sc.dashboard == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "stats_unavailable", "statistics are not configured")
	}
	if c.QueryBool("refresh") {
		sc.dashboard.Invalidate(c.UserContext())
	}
	d, err := sc.dashboard.Get(c.UserContext())
	if err != nil {
		log.Errorf("[Stats] dashboard: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load statistics")
	}
	return c.JSON(d)
}
