package database

import (
	"context"

	"school-api/internal/database/model"

	"gorm.io/gorm"
)

type TeacherRepository struct {
	db *gorm.DB
}

func NewTeacherRepository(db *gorm.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// CreateProfile links profile to an existing user (profile.UserID) or, when
// newUser is not nil, to a user inserted in the same transaction.
func (r *TeacherRepository) CreateProfile(ctx context.Context, profile *model.TeacherProfile, newUser *model.User) error {
	return WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if newUser != nil {
			if err := tx.Create(newUser).Error; err != nil {
				return translate(err, ErrDuplicateEmail)
			}
			profile.UserID = newUser.ID
		} else {
			var user model.User
			if err := tx.Select("id").First(&user, profile.UserID).Error; err != nil {
				return translate(err, nil)
			}
		}

		var existing int64
		if err := tx.Model(&model.TeacherProfile{}).Where("user_id = ?", profile.UserID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrProfileExists
		}

		return translate(tx.Create(profile).Error, ErrProfileExists)
	})
}

func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*model.TeacherProfile, error) {
	return GetEntityByID[model.TeacherProfile](ctx, r.db, id)
}

func (r *TeacherRepository) GetByUserID(ctx context.Context, userID int64) (*model.TeacherProfile, error) {
	var p model.TeacherProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translate(err, nil)
	}
	return &p, nil
}

func (r *TeacherRepository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.TeacherProfile{}).Where("is_active = ?", true)
}

// ListActive returns one page of active profiles ordered by id, plus the active total.
func (r *TeacherRepository) ListActive(ctx context.Context, skip, limit int) ([]model.TeacherProfile, int64, error) {
	var total int64
	if err := r.active(ctx).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	profiles := make([]model.TeacherProfile, 0, limit)
	if err := r.active(ctx).Order("id ASC").Offset(skip).Limit(limit).Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *TeacherRepository) ListAllActive(ctx context.Context) ([]model.TeacherProfile, error) {
	var profiles []model.TeacherProfile
	if err := r.active(ctx).Order("id ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// ListActiveByIDs returns the active profiles among ids, in no particular order.
func (r *TeacherRepository) ListActiveByIDs(ctx context.Context, ids []int64) ([]model.TeacherProfile, error) {
	if len(ids) == 0 {
		return []model.TeacherProfile{}, nil
	}
	var profiles []model.TeacherProfile
	if err := r.active(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update applies column updates to profile id and returns the stored row.
func (r *TeacherRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) (*model.TeacherProfile, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := UpdateEntityByID[model.TeacherProfile](ctx, r.db, id, updates); err != nil {
			return nil, err
		}
	}
	return GetFreshEntityByID[model.TeacherProfile](ctx, r.db, id)
}
