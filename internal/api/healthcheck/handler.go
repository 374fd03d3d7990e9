package healthcheck

import (
	"context"
	"time"

	"school-api/config"
	"school-api/pkg/apperror"

	"github.com/gofiber/fiber/v3"
)

const pingTimeout = 2 * time.Second

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Handler checks each dependency; a nil Pinger is reported as disabled.
type Handler struct {
	database Pinger
	redis    Pinger
	milvus   Pinger
}

func NewHandler(database, redis, milvus Pinger) *Handler {
	return &Handler{database: database, redis: redis, milvus: milvus}
}

func (h *Handler) Root(c fiber.Ctx) error {
	return c.JSON(statusResponse{Status: "ok", Message: "School API is running"})
}

func ApiHealthCheck(c fiber.Ctx) error {
	return c.JSON(statusResponse{Status: "ok"})
}

func (h *Handler) DatabaseHealthCheck(c fiber.Ctx) error {
	return check(c, config.ModuleDatabase, h.database)
}

func (h *Handler) RedisHealthCheck(c fiber.Ctx) error {
	return check(c, config.ModuleRedis, h.redis)
}

func (h *Handler) MilvusHealthCheck(c fiber.Ctx) error {
	return check(c, config.ModuleMilvus, h.milvus)
}

func check(c fiber.Ctx, module config.Module, p Pinger) error {
	if p == nil {
		return c.JSON(statusResponse{Status: "disabled"})
	}
	ctx, cancel := context.WithTimeout(c.Context(), pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return apperror.InternalError(module, c, err)
	}
	return c.JSON(statusResponse{Status: "ok"})
}
