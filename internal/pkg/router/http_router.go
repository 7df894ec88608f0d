package router

import (
	"strconv"
	"time"

	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const (
	checkoutLimit  = 20
	checkoutWindow = time.Minute
)

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.deps.Tokens, h.deps.Users))

	// Public routes must be registered before the member groups, whose
	// RequireAuth applies to every path under their prefix.
	h.registerPublicRoutes(app)
	h.registerMemberRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}

func (h HttpRouter) requireEnrollment() fiber.Handler {
	return middleware.RequireEnrollment(h.deps.Access, h.deps.Resolver)
}

// checkoutLimiter caps checkout creation per user, or per IP for anonymous callers.
func (h HttpRouter) checkoutLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        checkoutLimit,
		Expiration: checkoutWindow,
		Storage:    h.deps.LimiterStorage,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := usercontext.GetUserID(c); id != 0 {
				return "checkout:user:" + strconv.FormatUint(uint64(id), 10)
			}
			return "checkout:ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "too many checkout attempts, try again in a minute",
			})
		},
	})
}
