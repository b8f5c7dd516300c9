package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	policyDir := filepath.Join(dir, PolicyDirName)
	require.NoError(t, os.MkdirAll(policyDir, 0o755))
	path := filepath.Join(policyDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolverNoPolicyFiles(t *testing.T) {
	r := NewResolver()
	res := r.LoadLocalPermissions(context.Background(), t.TempDir())
	assert.Nil(t, res)
}

func TestResolverLoadsTeamFile(t *testing.T) {
	dir := t.TempDir()
	path := writePolicyFile(t, dir, TeamFileName, `{"autoApprove":["git status"]}`)

	r := NewResolver()
	res := r.LoadLocalPermissions(context.Background(), dir)

	require.NotNil(t, res)
	assert.Equal(t, SourceTeam, res.Source)
	assert.Equal(t, []string{"git status"}, res.Config.AutoApprove)
	assert.Equal(t, []string{path}, res.LoadedFrom)
}

func TestResolverPersonalOverridesTeam(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, TeamFileName, `{"tools":{"bash":{"autoApprove":false}}}`)
	writePolicyFile(t, dir, PersonalFileName, `{"tools":{"bash":{"autoApprove":true}}}`)

	r := NewResolver()
	res := r.LoadLocalPermissions(context.Background(), dir)

	require.NotNil(t, res)
	assert.Equal(t, SourceMerged, res.Source)
	require.NotNil(t, res.Config.Tools["bash"].AutoApprove)
	assert.True(t, *res.Config.Tools["bash"].AutoApprove)
}

func TestResolverAncestorOverride(t *testing.T) {
	// Ancestor directories are merged on top of the starting directory:
	// the outermost config wins. Pinned deliberately, see DESIGN.md.
	root := t.TempDir()
	child := filepath.Join(root, "team", "service")
	require.NoError(t, os.MkdirAll(child, 0o755))

	writePolicyFile(t, child, TeamFileName, `{"tools":{"bash":{"autoApprove":true}}}`)
	writePolicyFile(t, root, TeamFileName, `{"tools":{"bash":{"autoApprove":false}}}`)

	r := NewResolver()
	res := r.LoadLocalPermissions(context.Background(), child)

	require.NotNil(t, res)
	require.NotNil(t, res.Config.Tools["bash"].AutoApprove)
	assert.False(t, *res.Config.Tools["bash"].AutoApprove)
	assert.Len(t, res.LoadedFrom, 2)
}

func TestResolverAutoApproveAccumulatesAcrossLevels(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "proj")
	require.NoError(t, os.MkdirAll(child, 0o755))

	writePolicyFile(t, child, TeamFileName, `{"autoApprove":["git status"]}`)
	writePolicyFile(t, root, TeamFileName, `{"autoApprove":["ls"]}`)

	r := NewResolver()
	res := r.LoadLocalPermissions(context.Background(), child)

	require.NotNil(t, res)
	assert.ElementsMatch(t, []string{"git status", "ls"}, res.Config.AutoApprove)
}

func TestResolverRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 2<<20) // 2MB
	for i := range big {
		big[i] = ' '
	}
	copy(big, []byte(`{"autoApprove":["git status"]}`))
	writePolicyFile(t, dir, TeamFileName, string(big))

	r := NewResolver()
	res := r.LoadLocalPermissions(context.Background(), dir)

	assert.Nil(t, res, "an oversized file in an otherwise empty chain yields no config")
}

func TestResolverIgnoresMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, TeamFileName, `{not json`)
	writePolicyFile(t, dir, PersonalFileName, `{"autoApprove":["ls"]}`)

	r := NewResolver()
	res := r.LoadLocalPermissions(context.Background(), dir)

	require.NotNil(t, res)
	assert.Equal(t, SourcePersonal, res.Source)
	assert.Equal(t, []string{"ls"}, res.Config.AutoApprove)
}

func TestResolverCachesWithinTTL(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, TeamFileName, `{"autoApprove":["git status"]}`)

	now := time.Now()
	r := NewResolver()
	r.now = func() time.Time { return now }

	first := r.LoadLocalPermissions(context.Background(), dir)
	require.NotNil(t, first)

	// Change the file on disk; the cached result must still be served.
	writePolicyFile(t, dir, TeamFileName, `{"autoApprove":["rm -rf /"]}`)
	second := r.LoadLocalPermissions(context.Background(), dir)
	assert.Equal(t, first, second)

	// Past the TTL the new content is picked up.
	now = now.Add(cacheTTL + time.Second)
	third := r.LoadLocalPermissions(context.Background(), dir)
	require.NotNil(t, third)
	assert.Equal(t, []string{"rm -rf /"}, third.Config.AutoApprove)
}

func TestResolverClearCache(t *testing.T) {
	dir := t.TempDir()
	writePolicyFile(t, dir, TeamFileName, `{"autoApprove":["git status"]}`)

	r := NewResolver()
	require.NotNil(t, r.LoadLocalPermissions(context.Background(), dir))

	writePolicyFile(t, dir, TeamFileName, `{"autoApprove":["ls"]}`)
	r.ClearCache()

	res := r.LoadLocalPermissions(context.Background(), dir)
	require.NotNil(t, res)
	assert.Equal(t, []string{"ls"}, res.Config.AutoApprove)
}

func TestValidPolicyPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/proj/.toolgate/settings.json", true},
		{"/proj/.toolgate/settings.local.json", true},
		{"/proj/.toolgate/other.json", false},
		{"/proj/settings.json", false},
		{"/proj/../.toolgate/settings.json", false},
		{"/home/~user/.toolgate/settings.json", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validPolicyPath(tt.path), tt.path)
	}
}
