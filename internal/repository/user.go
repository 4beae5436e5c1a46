package repository

import (
	"context"

	"triplog/internal/domain"
)

// UserStore persists user accounts and resolves owner display names.
type UserStore interface {
	// Create persists a new user and assigns its id.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdatePassword replaces the user's credential material. Backends that
	// delegate credentials to an auth provider return ErrUnsupported.
	UpdatePassword(ctx context.Context, id, newPassword string) error
}
