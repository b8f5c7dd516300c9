package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestMergeAutoApproveConcatenated(t *testing.T) {
	base := &Config{AutoApprove: []string{"git status", "ls"}}
	override := &Config{AutoApprove: []string{"git log", "git status"}}

	merged := Merge(base, override)

	assert.Equal(t, []string{"git status", "ls", "git log", "git status"}, merged.AutoApprove)
}

func TestMergeToolsRightBiased(t *testing.T) {
	base := &Config{Tools: map[string]ToolConfig{
		"bash": {Enabled: boolPtr(true), AutoApprove: boolPtr(false), Commands: []string{"ls"}},
	}}
	override := &Config{Tools: map[string]ToolConfig{
		"bash": {AutoApprove: boolPtr(true)},
	}}

	merged := Merge(base, override)

	tool := merged.Tools["bash"]
	require.NotNil(t, tool.Enabled)
	assert.True(t, *tool.Enabled, "field absent in override keeps base value")
	require.NotNil(t, tool.AutoApprove)
	assert.True(t, *tool.AutoApprove, "override wins per field")
	assert.Equal(t, []string{"ls"}, tool.Commands)
}

func TestMergeTeamDeniedPersonalAllowed(t *testing.T) {
	// Personal override re-enables a tool the team config disabled.
	team := &Config{Tools: map[string]ToolConfig{
		"bash": {AutoApprove: boolPtr(false)},
	}}
	personal := &Config{Tools: map[string]ToolConfig{
		"bash": {AutoApprove: boolPtr(true)},
	}}

	merged := Merge(team, personal)

	require.NotNil(t, merged.Tools["bash"].AutoApprove)
	assert.True(t, *merged.Tools["bash"].AutoApprove)
}

func TestMergeSecurityOverrideWinsWholeValues(t *testing.T) {
	base := &Config{Security: SecurityConfig{
		BlockedCommands:   []string{"rm -rf"},
		AllowedPaths:      []string{"/a", "/b"},
		MaxConfigFileSize: 1024,
	}}
	override := &Config{Security: SecurityConfig{
		BlockedCommands: []string{"dd"},
	}}

	merged := Merge(base, override)

	assert.Equal(t, []string{"dd"}, merged.Security.BlockedCommands, "override replaces, not appends")
	assert.Equal(t, []string{"/a", "/b"}, merged.Security.AllowedPaths, "absent key keeps base")
	assert.Equal(t, int64(1024), merged.Security.MaxConfigFileSize)
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := &Config{
		AutoApprove: []string{"ls"},
		Tools:       map[string]ToolConfig{"bash": {Commands: []string{"ls"}}},
	}
	override := &Config{
		AutoApprove: []string{"pwd"},
		Tools:       map[string]ToolConfig{"bash": {Commands: []string{"pwd"}}},
	}

	_ = Merge(base, override)

	assert.Equal(t, []string{"ls"}, base.AutoApprove)
	assert.Equal(t, []string{"ls"}, base.Tools["bash"].Commands)
}

func TestMergeNilSides(t *testing.T) {
	cfg := &Config{AutoApprove: []string{"ls"}}

	assert.Equal(t, cfg.AutoApprove, Merge(nil, cfg).AutoApprove)
	assert.Equal(t, cfg.AutoApprove, Merge(cfg, nil).AutoApprove)
	assert.Nil(t, Merge(nil, nil))
}
