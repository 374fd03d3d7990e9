package auth

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts /auth; loginLimit throttles login attempts per client.
func RegisterRoutes(r fiber.Router, h *Handler, requireAuth, loginLimit fiber.Handler) {
	grp := r.Group("/auth")

	grp.Post("/register", h.Register)
	grp.Post("/login", loginLimit, h.Login)
	grp.Get("/me", requireAuth, h.Me)
	grp.Post("/logout", requireAuth, h.Logout)
}
