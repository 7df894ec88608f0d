package controllers

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/CourseFox/internal/pkg/constants"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
	"github.com/ManuelReschke/CourseFox/internal/pkg/oauth"
)

// HandleOAuthBegin starts the provider flow for configured providers only.
func (ac *AuthController) HandleOAuthBegin(c *fiber.Ctx) error {
	if !oauth.Enabled(c.Params("provider")) {
		return jsonError(c, fiber.StatusNotFound, "provider_not_available", "login provider is not configured")
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and hands a token to the frontend.
func (ac *AuthController) HandleOAuthCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if !oauth.Enabled(provider) {
		return jsonError(c, fiber.StatusNotFound, "provider_not_available", "login provider is not configured")
	}

	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("[OAuth] %s callback failed: %v", provider, err)
		return c.Redirect(frontendCallbackURL("error", "oauth_failed"), fiber.StatusSeeOther)
	}

	user, err := ac.signInOAuth(oauthProfile{
		Provider:  u.Provider,
		ID:        u.UserID,
		Name:      firstNonEmpty(u.Name, u.NickName, u.FirstName),
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	})
	if err != nil {
		log.Errorf("[OAuth] %s sign-in for %s: %v", provider, u.UserID, err)
		return c.Redirect(frontendCallbackURL("error", "oauth_failed"), fiber.StatusSeeOther)
	}
	if !user.IsActive() {
		return c.Redirect(frontendCallbackURL("error", "account_disabled"), fiber.StatusSeeOther)
	}

	token, err := ac.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		log.Errorf("[OAuth] issue token for user %d: %v", user.ID, err)
		return c.Redirect(frontendCallbackURL("error", "token_failed"), fiber.StatusSeeOther)
	}
	user.TouchLogin()
	if err := ac.users.Update(user); err != nil {
		log.Warnf("[OAuth] update last login for user %d: %v", user.ID, err)
	}
	return c.Redirect(frontendCallbackURL("token", token), fiber.StatusSeeOther)
}

func frontendCallbackURL(key, value string) string {
	base := strings.TrimRight(env.GetEnv("FRONTEND_URL", "http://localhost:3000"), "/")
	return base + constants.FrontendAuthCallback + "?" + url.Values{key: {value}}.Encode()
}
