package repositoryimpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgate/toolgate/internal/approval"
	"github.com/toolgate/toolgate/internal/audit"
	"github.com/toolgate/toolgate/internal/scope"
	"github.com/toolgate/toolgate/pkg/storage"
)

func newRepo(t *testing.T) (*YAMLRepository, storage.Storage) {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLRepository(st), st
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	first := audit.NewRecord("Bash", "alice", "ops", approval.BehaviorAllow, audit.OriginLocalConfig, scope.ScopeCommand, scope.RiskLow, "")
	second := audit.NewRecord("Write", "alice", "ops", approval.BehaviorDeny, audit.OriginHuman, scope.ScopeCommand, scope.RiskMedium, "nope")
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID, "ULID ordering keeps the trail chronological")
	assert.Equal(t, audit.OriginHuman, records[1].Origin)
	assert.Equal(t, "nope", records[1].Message)
}

func TestListSkipsDamagedRecords(t *testing.T) {
	ctx := context.Background()
	repo, st := newRepo(t)

	good := audit.NewRecord("Bash", "alice", "ops", approval.BehaviorAllow, audit.OriginRemembered, scope.ScopeTool, scope.RiskLow, "")
	require.NoError(t, repo.Append(ctx, good))
	require.NoError(t, st.Write(ctx, "audit/zzz-damaged.yaml", []byte("{unterminated")))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, good.ID, records[0].ID)
}

func TestListEmpty(t *testing.T) {
	repo, _ := newRepo(t)
	records, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
