package middleware

import (
	"context"
	"errors"
	"strings"

	"school-api/config"
	"school-api/internal/core/security"
	"school-api/internal/database/model"
	"school-api/internal/services/auth"
	"school-api/pkg/apperror"
	"school-api/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

const (
	localUser   = "current_user"
	localClaims = "token_claims"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, *security.Claims, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth resolves the bearer token to an active user or answers 401.
func RequireAuth(authn Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		user, claims, err := authn.Authenticate(c.Context(), BearerToken(c))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				return apperror.Unauthorized(config.ModuleAuth, c, status.AuthTokenExpired, err.Error())
			case errors.Is(err, auth.ErrUnauthorized):
				return apperror.Unauthorized(config.ModuleAuth, c, status.AuthNotAuthenticated, err.Error())
			}
			return apperror.InternalError(config.ModuleAuth, c, err)
		}

		c.Locals(localUser, user)
		c.Locals(localClaims, claims)
		return c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperror.Unauthorized(config.ModuleAuth, c, status.AuthNotAuthenticated, auth.ErrUnauthorized.Error())
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return apperror.Forbidden(config.ModuleAuth, c, status.AuthForbidden, "insufficient permissions")
	}
}

func RequireAdmin() fiber.Handler {
	return RequireRole(model.RoleAdmin)
}

// CurrentUser returns the user stored by RequireAuth, or nil.
func CurrentUser(c fiber.Ctx) *model.User {
	u, _ := c.Locals(localUser).(*model.User)
	return u
}

func CurrentClaims(c fiber.Ctx) *security.Claims {
	claims, _ := c.Locals(localClaims).(*security.Claims)
	return claims
}
