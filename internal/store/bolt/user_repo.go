package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
)

// storedUser is the on-disk shape of a user. Unlike domain.User it carries
// the password hash, which is stripped from API-facing JSON.
type storedUser struct {
	UID            string    `json:"uid"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name,omitempty"`
	HashedPassword string    `json:"hashed_password"`
	CreatedAt      time.Time `json:"created_at"`
}

func toStored(u *domain.User) storedUser {
	return storedUser{
		UID:            u.UID,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		HashedPassword: u.HashedPassword,
		CreatedAt:      u.CreatedAt,
	}
}

func (s storedUser) toDomain() *domain.User {
	return &domain.User{
		UID:            s.UID,
		Email:          s.Email,
		DisplayName:    s.DisplayName,
		HashedPassword: s.HashedPassword,
		CreatedAt:      s.CreatedAt,
	}
}

// UserRepo persists accounts in the "users" bucket keyed by uid, with a
// lowercased email index in "users_by_email".
type UserRepo struct {
	db *bbolt.DB
}

func NewUserRepo(db *bbolt.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func emailKey(email string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.CreatedAt = time.Now()
	enc, err := json.Marshal(toStored(u))
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	err = r.db.Update(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(bucketUsersByEmail)
		if idx.Get(emailKey(u.Email)) != nil {
			return domain.ErrEmailTaken
		}
		if err := tx.Bucket(bucketUsers).Put([]byte(u.UID), enc); err != nil {
			return err
		}
		return idx.Put(emailKey(u.Email), []byte(u.UID))
	})
	if err == domain.ErrEmailTaken {
		return err
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var user *domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketUsers).Get([]byte(uid))
		if v == nil {
			return nil
		}
		var s storedUser
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("decode user %s: %w", uid, err)
		}
		user = s.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var uid string
	err := r.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketUsersByEmail).Get(emailKey(email)); v != nil {
			uid = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, nil
	}
	return r.GetByUID(ctx, uid)
}
