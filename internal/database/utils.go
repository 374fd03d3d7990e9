package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrProfileExists  = errors.New("user already has a teacher profile")
)

// translate maps gorm errors onto package errors; dup names what a unique violation means here.
func translate(err error, dup error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey) && dup != nil:
		return dup
	}
	return err
}

// CreateEntity creates a record for the provided entity type.
func CreateEntity[T any](ctx context.Context, db *gorm.DB, entity *T) error {
	return db.WithContext(ctx).Create(entity).Error
}

// GetEntityByID returns a single record of type T by its primary key id.
func GetEntityByID[T any, ID comparable](ctx context.Context, db *gorm.DB, id ID) (*T, error) {
	var out T
	if err := db.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, translate(err, nil)
	}
	return &out, nil
}

// GetFreshEntityByID reads from the primary so a just-written row is visible even with replicas.
func GetFreshEntityByID[T any, ID comparable](ctx context.Context, db *gorm.DB, id ID) (*T, error) {
	return GetEntityByID[T](ctx, db.Clauses(dbresolver.Write), id)
}

// UpdateEntityByID updates columns of type T where primary key equals id.
// Pass a non-empty updates map; values set to nil will be written as NULL.
func UpdateEntityByID[T any, ID comparable](ctx context.Context, db *gorm.DB, id ID, updates map[string]interface{}) error {
	var zero T
	return db.WithContext(ctx).Model(&zero).Where("id = ?", id).Updates(updates).Error
}

// WithTx runs fn within a transaction on db.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
