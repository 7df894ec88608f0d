package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/security"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*security.AccessClaims, error)
}

// UserLookup loads the account behind a token.
type UserLookup interface {
	GetByID(id uint) (*models.User, error)
}

// UserContextMiddleware resolves the bearer token of every request into a
// UserContext. Missing or invalid tokens leave the request anonymous; the
// Require* guards decide what anonymous callers may reach.
func UserContextMiddleware(tokens TokenParser, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractBearerToken(c)
		if raw == "" {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}
		userID, err := claims.UserID()
		if err != nil {
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		user, err := users.GetByID(userID)
		if err != nil || !user.IsActive() {
			if err != nil {
				log.Debugf("[Auth] token user %d not loadable: %v", userID, err)
			}
			usercontext.Set(c, usercontext.UserContext{})
			return c.Next()
		}

		// Role comes from the stored account so demotions apply before the token expires.
		usercontext.Set(c, usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			Role:       user.Role,
			IsLoggedIn: true,
			IsAdmin:    user.IsAdmin(),
		})
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(c.Cookies("access_token"))
}
