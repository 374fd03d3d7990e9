package middleware

import (
	"runtime/debug"

	"school-api/config"
	"school-api/pkg/apperror"
	"school-api/pkg/apperror/status"
	"school-api/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Setup installs the global middleware chain on app.
func Setup(app *fiber.App, cfg config.Config) {
	app.Use(PanicRecovery())
	if cfg.Server.Concurrency > 0 {
		app.Use(ConnectionLimit(NewConnectionLimiter(cfg.Server.Concurrency)))
	}
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Cors.AllowOrigins,
		AllowMethods: cfg.Cors.AllowMethods,
		AllowHeaders: cfg.Cors.AllowHeaders,
	}))
}

// ConnectionLimiter limits the number of concurrent requests
type ConnectionLimiter struct {
	limit    int
	waitlist chan struct{}
}

func NewConnectionLimiter(limit int) *ConnectionLimiter {
	return &ConnectionLimiter{
		limit:    limit,
		waitlist: make(chan struct{}, limit),
	}
}

func (cl *ConnectionLimiter) Acquire() bool {
	select {
	case cl.waitlist <- struct{}{}:
		return true
	default:
		return false
	}
}

func (cl *ConnectionLimiter) Release() {
	select {
	case <-cl.waitlist:
	default:
	}
}

// ConnectionLimit answers 503 while limiter is full.
func ConnectionLimit(limiter *ConnectionLimiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !limiter.Acquire() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(apperror.ErrorResponse{
				Error:     "server is at maximum capacity",
				ErrorCode: apperror.Code(status.ErrorCodeInternal),
			})
		}
		defer limiter.Release()
		return c.Next()
	}
}

// PanicRecovery turns a panic in a later handler into a logged 500.
func PanicRecovery() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"module":     config.ModuleServer,
					"panic":      r,
					"method":     c.Method(),
					"path":       c.Path(),
					"ip":         c.IP(),
					"user_agent": c.Get(fiber.HeaderUserAgent),
					"stack":      string(debug.Stack()),
				}).Errorf("panic recovered")

				err = c.Status(fiber.StatusInternalServerError).JSON(apperror.ErrorResponse{
					Error:     "internal server error",
					ErrorCode: apperror.Code(status.ErrorCodeInternal),
				})
			}
		}()
		return c.Next()
	}
}
