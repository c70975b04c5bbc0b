package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (uid, email, display_name, hashed_password)
		VALUES (?, ?, ?, ?)
	`, u.UID, strings.ToLower(strings.TrimSpace(u.Email)), u.DisplayName, u.HashedPassword)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	return r.getBy(ctx, `uid = ?`, uid)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) getBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT uid, email, display_name, hashed_password, created_at
		FROM users
		WHERE `+where, arg).Scan(
		&u.UID,
		&u.Email,
		&u.DisplayName,
		&u.HashedPassword,
		&u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
