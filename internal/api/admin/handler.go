package admin

import (
	"context"
	"errors"
	"strconv"

	"school-api/config"
	"school-api/internal/database/model"
	"school-api/internal/middleware"
	adminsvc "school-api/internal/services/admin"
	"school-api/pkg/apperror"
	"school-api/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

type Service interface {
	ListAdmins(ctx context.Context) ([]model.User, error)
	Grant(ctx context.Context, actor *model.User, id int64) (*model.User, error)
	Revoke(ctx context.Context, actor *model.User, id int64) (*model.User, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(c fiber.Ctx) error {
	admins, err := h.svc.ListAdmins(c.Context())
	if err != nil {
		return apperror.InternalError(config.ModuleAdmin, c, err)
	}
	return apperror.Success(config.ModuleAdmin, c, apperror.FiberSuccessMessage{
		Message: "Admins",
		Data:    admins,
	})
}

func (h *Handler) Grant(c fiber.Ctx) error {
	return h.change(c, "Admin role granted", h.svc.Grant)
}

func (h *Handler) Revoke(c fiber.Ctx) error {
	return h.change(c, "Admin role revoked", h.svc.Revoke)
}

func (h *Handler) change(c fiber.Ctx, message string, fn func(context.Context, *model.User, int64) (*model.User, error)) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperror.BadRequest(config.ModuleAdmin, c, status.AdminInvalidParams, "invalid user id")
	}

	user, err := fn(c.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		switch {
		case errors.Is(err, adminsvc.ErrUserNotFound):
			return apperror.NotFound(config.ModuleAdmin, c, status.AdminUserNotFound, "User not found")
		case errors.Is(err, adminsvc.ErrSelfRevoke):
			return apperror.Forbidden(config.ModuleAdmin, c, status.AdminSelfRevoke, err.Error())
		}
		return apperror.InternalError(config.ModuleAdmin, c, err)
	}

	return apperror.Success(config.ModuleAdmin, c, apperror.FiberSuccessMessage{
		Message: message,
		Data:    user,
	})
}
