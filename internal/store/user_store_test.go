package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStoreCreateAndLookup(t *testing.T) {
	d := openTestDB(t)
	store := NewUserStore(d)
	ctx := context.Background()

	created, err := store.Create(ctx, "ann", "$2a$hash")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "ann", created.Username)

	byName, err := store.GetByUsername(ctx, "ann")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, "$2a$hash", byName.PasswordHash)

	byID, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", byID.Username)
}

func TestUserStoreMissing(t *testing.T) {
	d := openTestDB(t)
	store := NewUserStore(d)

	user, err := store.GetByUsername(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserStoreDuplicateUsername(t *testing.T) {
	d := openTestDB(t)
	store := NewUserStore(d)
	ctx := context.Background()

	_, err := store.Create(ctx, "ann", "x")
	require.NoError(t, err)

	_, err = store.Create(ctx, "ann", "y")
	assert.Error(t, err)
}
