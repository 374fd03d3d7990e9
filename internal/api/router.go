package api

import (
	"time"

	"school-api/config"
	adminapi "school-api/internal/api/admin"
	authapi "school-api/internal/api/auth"
	"school-api/internal/api/healthcheck"
	teacherapi "school-api/internal/api/teacher"
	"school-api/internal/api/upload"
	"school-api/internal/middleware"
	adminsvc "school-api/internal/services/admin"
	authsvc "school-api/internal/services/auth"
	teachersvc "school-api/internal/services/teacher"
	"school-api/pkg/apperror"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/static"
)

// Deps are the services the HTTP layer serves.
type Deps struct {
	Auth        *authsvc.Service
	Teachers    *teachersvc.Service
	Admins      *adminsvc.Service
	Images      upload.ImageStore
	Health      *healthcheck.Handler
	LoginLimit  *middleware.RateLimiter
	ServeImages bool
}

// NewApp builds the fiber app with middleware and every route mounted.
func NewApp(cfg config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Server.AppName,
		BodyLimit:    cfg.Server.BodyLimit,
		Concurrency:  cfg.Server.Concurrency,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorHandler: apperror.ErrorHandler,
	})

	middleware.Setup(app, cfg)

	if deps.ServeImages {
		app.Get(cfg.Storage.PublicPrefix+"/*", static.New(cfg.Storage.LocalDir))
	}

	requireAuth := middleware.RequireAuth(deps.Auth)
	requireAdmin := middleware.RequireAdmin()

	healthcheck.RegisterRoutes(app, deps.Health)
	authapi.RegisterRoutes(app, authapi.NewHandler(deps.Auth), requireAuth, deps.LoginLimit.Handler())
	teacherapi.RegisterRoutes(app, teacherapi.NewHandler(deps.Teachers), requireAuth, requireAdmin)
	upload.RegisterRoutes(app, upload.NewHandler(deps.Teachers, deps.Images, cfg.Storage.MaxImageBytes), requireAuth, requireAdmin)
	adminapi.RegisterRoutes(app, adminapi.NewHandler(deps.Admins), requireAuth, requireAdmin)

	return app
}
