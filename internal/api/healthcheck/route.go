package healthcheck

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler) {
	r.Get("/", h.Root)

	grp := r.Group("/health")

	grp.Get("/api", ApiHealthCheck)
	grp.Get("/database", h.DatabaseHealthCheck)
	grp.Get("/redis", h.RedisHealthCheck)
	grp.Get("/milvus", h.MilvusHealthCheck)
}
