package upload

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts the profile image upload; requireAuth and requireAdmin guard it.
func RegisterRoutes(r fiber.Router, h *Handler, requireAuth, requireAdmin fiber.Handler) {
	r.Post("/teachers/:id/image", requireAuth, requireAdmin, h.HandleTeacherImage)
}
