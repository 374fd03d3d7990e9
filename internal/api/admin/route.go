package admin

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler, requireAuth, requireAdmin fiber.Handler) {
	grp := r.Group("/admins")

	grp.Get("/", requireAuth, requireAdmin, h.List)
	grp.Put("/:id", requireAuth, requireAdmin, h.Grant)
	grp.Delete("/:id", requireAuth, requireAdmin, h.Revoke)
}
