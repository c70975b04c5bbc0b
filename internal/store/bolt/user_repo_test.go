package bolt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
	"github.com/JuanGomePer/chatgpt2025/internal/store/bolt"
)

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := bolt.NewUserRepo(openTestDB(t))

	u := &domain.User{UID: "uid-1", Email: "Alice@Example.com", HashedPassword: "$2a$hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	t.Run("GetByUID", func(t *testing.T) {
		got, err := repo.GetByUID(ctx, "uid-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "$2a$hash", got.HashedPassword)
	})

	t.Run("GetByEmailIsCaseInsensitive", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "uid-1", got.UID)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		err := repo.Create(ctx, &domain.User{UID: "uid-2", Email: "alice@example.com", HashedPassword: "x"})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
	})

	t.Run("MissingUser", func(t *testing.T) {
		got, err := repo.GetByUID(ctx, "uid-404")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
