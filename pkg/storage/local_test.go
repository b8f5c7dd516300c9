package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundtrip(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "approvals/approvals.json", []byte(`{}`)))

	data, err := s.Read(ctx, "approvals/approvals.json")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	paths, err := s.List(ctx, "approvals")
	require.NoError(t, err)
	assert.Equal(t, []string{"approvals/approvals.json"}, paths)

	ok, err := s.Exists(ctx, "approvals/approvals.json")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "approvals/approvals.json"))
	_, err = s.Read(ctx, "approvals/approvals.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorageReadMissing(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "nope.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorageListMissingPrefix(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	paths, err := s.List(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestLocalStorageCleansEscapingPaths(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// Leading ".." segments are cleaned relative to the storage root,
	// so the write lands inside the base directory.
	require.NoError(t, s.Write(ctx, "../outside.json", []byte(`{}`)))
	ok, err := s.Exists(ctx, "outside.json")
	require.NoError(t, err)
	assert.True(t, ok)
}
