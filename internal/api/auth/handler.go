package auth

import (
	"context"
	"encoding/json"
	"errors"

	"school-api/config"
	"school-api/internal/core/security"
	"school-api/internal/database/model"
	"school-api/internal/middleware"
	authsvc "school-api/internal/services/auth"
	"school-api/internal/validation"
	"school-api/pkg/apperror"
	"school-api/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

type Service interface {
	Register(ctx context.Context, req authsvc.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.TokenResponse, error)
	Logout(ctx context.Context, claims *security.Claims) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(c fiber.Ctx) error {
	var req authsvc.RegisterRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleAuth, c, status.AuthInvalidRequestBody, "invalid request body")
	}
	req.Normalize()
	if errs := validation.ValidateStruct(req); errs != nil {
		return apperror.ValidationFailed(config.ModuleAuth, c, status.AuthValidationFailed, errs)
	}

	user, err := h.svc.Register(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailTaken):
			return apperror.Conflict(config.ModuleAuth, c, status.AuthEmailTaken, "Email already registered")
		case errors.Is(err, authsvc.ErrAdminRegistrationDisabled):
			return apperror.Forbidden(config.ModuleAuth, c, status.AuthForbidden, err.Error())
		}
		return apperror.InternalError(config.ModuleAuth, c, err)
	}

	return apperror.Created(config.ModuleAuth, c, "User registered successfully", user)
}

func (h *Handler) Login(c fiber.Ctx) error {
	var req authsvc.LoginRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleAuth, c, status.AuthInvalidRequestBody, "invalid request body")
	}
	req.Normalize()
	if errs := validation.ValidateStruct(req); errs != nil {
		return apperror.ValidationFailed(config.ModuleAuth, c, status.AuthValidationFailed, errs)
	}

	token, err := h.svc.Login(c.Context(), req)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			return apperror.Unauthorized(config.ModuleAuth, c, status.AuthInvalidCredentials, "Invalid credentials")
		}
		return apperror.InternalError(config.ModuleAuth, c, err)
	}

	return apperror.Success(config.ModuleAuth, c, apperror.FiberSuccessMessage{
		Message: "Login successful",
		Data:    token,
	})
}

// Me returns the authenticated user.
func (h *Handler) Me(c fiber.Ctx) error {
	return apperror.Success(config.ModuleAuth, c, apperror.FiberSuccessMessage{
		Message: "Current user",
		Data:    middleware.CurrentUser(c),
	})
}

func (h *Handler) Logout(c fiber.Ctx) error {
	if err := h.svc.Logout(c.Context(), middleware.CurrentClaims(c)); err != nil {
		if errors.Is(err, authsvc.ErrUnauthorized) {
			return apperror.Unauthorized(config.ModuleAuth, c, status.AuthNotAuthenticated, err.Error())
		}
		return apperror.InternalError(config.ModuleAuth, c, err)
	}
	return apperror.Success(config.ModuleAuth, c, apperror.FiberSuccessMessage{
		Message: "Logged out",
	})
}
