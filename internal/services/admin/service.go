package admin

import (
	"context"
	"errors"
	"fmt"

	"school-api/config"
	"school-api/internal/database"
	"school-api/internal/database/model"
	"school-api/pkg/logger"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrSelfRevoke   = errors.New("cannot remove your own admin role")
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	ListByRole(ctx context.Context, role string, activeOnly bool) ([]model.User, error)
	UpdateRole(ctx context.Context, id int64, role string) (*model.User, error)
}

type Service struct {
	users UserRepository
}

func NewService(users UserRepository) *Service {
	return &Service{users: users}
}

// ListAdmins returns the active admins, oldest first.
func (s *Service) ListAdmins(ctx context.Context) ([]model.User, error) {
	admins, err := s.users.ListByRole(ctx, model.RoleAdmin, true)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// Grant makes user id an admin. Granting to an admin is a no-op.
func (s *Service) Grant(ctx context.Context, actor *model.User, id int64) (*model.User, error) {
	return s.setRole(ctx, actor, id, model.RoleAdmin)
}

// Revoke demotes admin id to teacher.
func (s *Service) Revoke(ctx context.Context, actor *model.User, id int64) (*model.User, error) {
	if actor != nil && actor.ID == id {
		return nil, ErrSelfRevoke
	}
	return s.setRole(ctx, actor, id, model.RoleTeacher)
}

func (s *Service) setRole(ctx context.Context, actor *model.User, id int64, role string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.Role == role {
		return u, nil
	}

	u, err = s.users.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	fields := map[string]interface{}{
		"module":  config.ModuleAdmin,
		"user_id": id,
		"role":    role,
	}
	if actor != nil {
		fields["actor_id"] = actor.ID
	}
	logger.WithFields(fields).Info("user role changed")
	return u, nil
}
