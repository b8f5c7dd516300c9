package repositoryimpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgate/toolgate/internal/pushsubscription"
	"github.com/toolgate/toolgate/pkg/storage"
)

func newRepository(t *testing.T) *YAMLRepository {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLRepository(st)
}

func TestUpsertAndList(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	sub := pushsubscription.New("https://push.example.com/abc", "p256dh", "auth")
	require.NoError(t, repo.Upsert(ctx, sub))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, sub.ID, all[0].ID)
	assert.Equal(t, sub.Endpoint, all[0].Endpoint)
}

func TestUpsertReplacesSameEndpoint(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	first := pushsubscription.New("https://push.example.com/abc", "old-key", "old-auth")
	require.NoError(t, repo.Upsert(ctx, first))

	second := pushsubscription.New("https://push.example.com/abc", "new-key", "new-auth")
	require.NoError(t, repo.Upsert(ctx, second))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, "new-key", all[0].P256dhKey)
}

func TestDeleteByEndpoint(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	sub := pushsubscription.New("https://push.example.com/abc", "key", "auth")
	require.NoError(t, repo.Upsert(ctx, sub))

	require.NoError(t, repo.DeleteByEndpoint(ctx, sub.Endpoint))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	err = repo.DeleteByEndpoint(ctx, "https://push.example.com/gone")
	assert.Error(t, err)
}
