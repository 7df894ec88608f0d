package oauth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
	appsession "github.com/ManuelReschke/CourseFox/internal/pkg/session"
)

// CallbackBase is the public origin the providers redirect back to.
func CallbackBase() string {
	base := strings.TrimRight(env.GetEnv("BACKEND_PUBLIC_URL", env.GetEnv("PUBLIC_DOMAIN", "")), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

// Setup registers the providers that have credentials and points the goth
// state store at Redis. Providers without credentials stay unregistered and
// their login routes answer 404.
func Setup() {
	base := CallbackBase()
	var providers []goth.Provider

	if id, secret := env.GetEnv("GOOGLE_CLIENT_ID", ""), env.GetEnv("GOOGLE_CLIENT_SECRET", ""); id != "" && secret != "" {
		providers = append(providers, google.New(id, secret, base+"/auth/google/callback", "email", "profile"))
	} else {
		log.Warn("[OAuth] google disabled: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET missing")
	}
	if id, secret := env.GetEnv("FACEBOOK_CLIENT_ID", ""), env.GetEnv("FACEBOOK_CLIENT_SECRET", ""); id != "" && secret != "" {
		providers = append(providers, facebook.New(id, secret, base+"/auth/facebook/callback", "email", "public_profile"))
	} else {
		log.Warn("[OAuth] facebook disabled: FACEBOOK_CLIENT_ID/FACEBOOK_CLIENT_SECRET missing")
	}
	goth.UseProviders(providers...)

	gothfiber.SessionStore = session.New(session.Config{
		Storage:        appsession.RedisStorage(appsession.OAuthStateDB),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     15 * time.Minute,
	})
}

// Enabled reports whether a supported provider was registered by Setup.
func Enabled(provider string) bool {
	if !models.IsSupportedOAuthProvider(provider) {
		return false
	}
	_, err := goth.GetProvider(provider)
	return err == nil
}
