package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"triplog/internal/domain"
	"triplog/internal/repository"
)

// UserStore is the relational implementation of repository.UserStore.
type UserStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewUserStore creates a relational user store.
func NewUserStore(db *sql.DB, dialect Dialect) *UserStore {
	return &UserStore{db: db, dialect: dialect}
}

// Create persists a new user and assigns its id.
func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := s.dialect.rebind(`
		INSERT INTO users (first_name, last_name, email, password)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		user.FirstName, user.LastName, user.Email, user.Password,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	created := *user
	created.ID = formatID(id)
	return &created, nil
}

// GetByID retrieves a user by id.
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.getOne(ctx, `SELECT id, first_name, last_name, email, password FROM users WHERE id = ?`, key)
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT id, first_name, last_name, email, password FROM users WHERE email = ?`, email)
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), arg).Scan(
		&id, &user.FirstName, &user.LastName, &user.Email, &user.Password,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	user.ID = formatID(id)
	return &user, nil
}

// UpdatePassword replaces the user's credential material.
func (s *UserStore) UpdatePassword(ctx context.Context, id, newPassword string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	query := s.dialect.rebind(`UPDATE users SET password = ? WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, newPassword, key)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserStore = (*UserStore)(nil)
