package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/wishlist/internal/domain"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash) VALUES (?, ?)
	`, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getOne(ctx, `WHERE id = ?`, id)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getOne(ctx, `WHERE username = ?`, username)
}

func (s *UserStore) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users `+where, arg,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
