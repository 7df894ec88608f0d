package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/ManuelReschke/CourseFox/app/controllers"
	"github.com/ManuelReschke/CourseFox/app/repository"
	apiv1 "github.com/ManuelReschke/CourseFox/internal/api/v1"
	"github.com/ManuelReschke/CourseFox/internal/pkg/billing"
	"github.com/ManuelReschke/CourseFox/internal/pkg/cache"
	"github.com/ManuelReschke/CourseFox/internal/pkg/constants"
	"github.com/ManuelReschke/CourseFox/internal/pkg/database"
	"github.com/ManuelReschke/CourseFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/CourseFox/internal/pkg/env"
	"github.com/ManuelReschke/CourseFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/CourseFox/internal/pkg/middleware"
	"github.com/ManuelReschke/CourseFox/internal/pkg/oauth"
	"github.com/ManuelReschke/CourseFox/internal/pkg/router"
	"github.com/ManuelReschke/CourseFox/internal/pkg/security"
	"github.com/ManuelReschke/CourseFox/internal/pkg/session"
	"github.com/ManuelReschke/CourseFox/internal/pkg/statistics"
	"github.com/ManuelReschke/CourseFox/internal/pkg/storage"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())
	oauth.Setup()

	basePath := findBasePath()

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     html.New(basePath+"views", ".html"),
		BodyLimit: 1 << 20, // JSON bodies and webhook envelopes only; files go straight to S3
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     env.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// fiber metrics
	if password := env.GetEnv("METRICS_PASSWORD", ""); password != "" {
		app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
			Users: map[string]string{
				env.GetEnv("METRICS_USER", "admin"): password,
			},
		}), monitor.New())
	} else {
		log.Printf("[Metrics] METRICS_PASSWORD not set, %s disabled", constants.MetricsRoute)
	}

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, buildDependencies())

	return app
}

func buildDependencies() router.Dependencies {
	db := database.GetDB()
	repos := repository.GetGlobalRepositories()

	tokens, err := security.NewTokenIssuer(env.GetEnv("JWT_SECRET", ""), security.ParseTTL(env.GetEnv("JWT_EXPIRES", "7d")))
	if err != nil {
		log.Fatalf("[Auth] %v", err)
	}

	var objects *storage.Client
	if cfg, err := storage.LoadConfig(); err != nil {
		log.Printf("[Storage] disabled: %v", err)
	} else if objects, err = storage.NewClient(cfg); err != nil {
		log.Printf("[Storage] disabled: %v", err)
		objects = nil
	}

	enrollments := entitlements.NewActivatorFromDB(db)
	payments := billing.NewServiceFromDB(db, billing.NewRegistryFromEnv())
	webhooks := counter.NewWebhooks(cache.GetClient())

	controllers.Initialize(controllers.Dependencies{
		Repos:       repos,
		Tokens:      tokens,
		Cache:       cache.NewCourseCache(cache.GetClient()),
		Signer:      objects,
		Objects:     objects,
		Enrollments: enrollments,
		Payments:    payments,
		Counter:     webhooks,
		Dashboard:   statistics.NewServiceFromDB(db, webhooks, cache.GetClient()),
	})

	deps := router.Dependencies{
		Controllers: controllers.Get(),
		Tokens:      tokens,
		Users:       repos.User,
		Access:      enrollments,
		Resolver:    middleware.NewCourseResolver(repos.Material, repos.Comment),
		HealthChecks: []apiv1.Check{
			{Name: "database", Probe: func(context.Context) error { return database.Ping() }},
			{Name: "cache", Probe: cache.Ping},
			{Name: "storage", Probe: objects.Health, Optional: true},
		},
	}

	// Counters fall back to memory when Redis is down at boot.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err == nil {
		deps.LimiterStorage = session.RedisStorage(session.LimiterDB)
	} else {
		log.Printf("[Limiter] redis unavailable, using in-memory counters: %v", err)
	}
	return deps
}

// findBasePath locates the project root from the working directory.
func findBasePath() string {
	for _, path := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(path + "views"); err == nil {
			return path
		}
	}
	panic("Could not find project root directory")
}
