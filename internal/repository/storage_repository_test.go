package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-pickup/pkg/errors"
)

func TestStorageRepositoryMemoryFallback(t *testing.T) {
	repo := NewStorageRepository(nil, nil)
	ctx := context.Background()
	assert.False(t, repo.Persistent())

	_, err := repo.GetItem(ctx, "auth-session")
	assert.ErrorIs(t, err, appErrors.ErrStorageMiss)

	require.NoError(t, repo.SetItem(ctx, "auth-session", `{"access_token":"a"}`))
	v, err := repo.GetItem(ctx, "auth-session")
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"a"}`, v)

	require.NoError(t, repo.RemoveItem(ctx, "auth-session"))
	require.NoError(t, repo.RemoveItem(ctx, "auth-session"))
	_, err = repo.GetItem(ctx, "auth-session")
	assert.ErrorIs(t, err, appErrors.ErrStorageMiss)
	assert.NoError(t, repo.Close())
}
