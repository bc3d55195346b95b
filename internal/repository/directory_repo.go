package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/unilodge/unilodge-api/internal/models"
)

// UserDirectory resolves account roles and display names for the messaging
// core. Account lifecycle itself is owned by the auth service.
type UserDirectory interface {
	FindByID(ctx context.Context, id uint) (models.User, error)
}

type userDirectory struct {
	db *gorm.DB
}

// NewUserDirectory constructs a user directory backed by GORM.
func NewUserDirectory(db *gorm.DB) UserDirectory {
	return &userDirectory{db: db}
}

func (r *userDirectory) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrRecordNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// PropertyDirectory validates property references used as conversation
// context anchors.
type PropertyDirectory interface {
	FindByID(ctx context.Context, id uint) (models.Property, error)
}

type propertyDirectory struct {
	db *gorm.DB
}

// NewPropertyDirectory constructs a property directory backed by GORM.
func NewPropertyDirectory(db *gorm.DB) PropertyDirectory {
	return &propertyDirectory{db: db}
}

func (r *propertyDirectory) FindByID(ctx context.Context, id uint) (models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Property{}, ErrRecordNotFound
		}
		return models.Property{}, err
	}
	return property, nil
}
