package router

import (
	apiv1 "github.com/ManuelReschke/CourseFox/internal/api/v1"
	"github.com/ManuelReschke/CourseFox/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	checks []apiv1.Check
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	v1 := app.Group(constants.APIV1Prefix, limiter.New())
	apiv1.RegisterHandlers(v1, apiv1.NewAPIServer(h.checks...))
}

func NewApiRouter(checks []apiv1.Check) *ApiRouter {
	return &ApiRouter{checks: checks}
}
