package database

import (
	"context"

	"school-api/internal/database/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u and fills its ID; a taken email yields ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return translate(CreateEntity(ctx, r.db, u), ErrDuplicateEmail)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err, nil)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return GetEntityByID[model.User](ctx, r.db, id)
}

// ListByRole returns users holding role, oldest first.
func (r *UserRepository) ListByRole(ctx context.Context, role string, activeOnly bool) ([]model.User, error) {
	q := r.db.WithContext(ctx).Where("role = ?", role)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var users []model.User
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateRole sets the role of user id and returns the stored row.
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role string) (*model.User, error) {
	if err := UpdateEntityByID[model.User](ctx, r.db, id, map[string]interface{}{"role": role}); err != nil {
		return nil, err
	}
	return GetFreshEntityByID[model.User](ctx, r.db, id)
}
