package teacher

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts /teachers. Static segments are registered before /:id.
func RegisterRoutes(r fiber.Router, h *Handler, requireAuth, requireAdmin fiber.Handler) {
	grp := r.Group("/teachers")

	grp.Post("/", requireAuth, h.Create)
	grp.Get("/", h.List)
	grp.Get("/all", h.ListAll)
	grp.Get("/search", h.Search)
	grp.Post("/search/reindex", requireAuth, requireAdmin, h.Reindex)
	grp.Get("/user/:userID", h.GetByUser)
	grp.Get("/:id", h.Get)
	grp.Patch("/:id", requireAuth, requireAdmin, h.Update)
	grp.Delete("/:id", requireAuth, requireAdmin, h.Deactivate)
	grp.Post("/:id/activate", requireAuth, requireAdmin, h.Activate)
}
