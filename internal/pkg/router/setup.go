package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseFox/app/controllers"
	apiv1 "github.com/ManuelReschke/CourseFox/internal/api/v1"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
)

// Router installs one group of routes.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries everything the routes are wired to.
type Dependencies struct {
	Controllers  *controllers.Controllers
	Tokens       middleware.TokenParser
	Users        middleware.UserLookup
	Access       middleware.AccessChecker
	Resolver     middleware.CourseResolver
	HealthChecks []apiv1.Check
	// LimiterStorage backs the checkout limiter. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// HttpRouter installs the global UserContext middleware, so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps.HealthChecks))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
