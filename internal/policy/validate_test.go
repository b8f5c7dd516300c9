package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWhitelistsFields(t *testing.T) {
	raw := map[string]any{
		"autoApprove": []any{"git status", "", 42, "ls"},
		"tools": map[string]any{
			"bash": map[string]any{
				"enabled":     true,
				"autoApprove": "yes", // wrong type, dropped
				"commands":    []any{"git status"},
				"extra":       "ignored",
			},
		},
		"security": map[string]any{
			"blockedCommands":   []any{"rm -rf"},
			"allowedPaths":      []any{"/proj"},
			"maxConfigFileSize": float64(2048),
		},
		"unknownTopLevel": map[string]any{"x": 1},
	}

	cfg := Validate(raw)

	assert.Equal(t, []string{"git status", "ls"}, cfg.AutoApprove)
	tool, ok := cfg.Tools["bash"]
	require.True(t, ok)
	require.NotNil(t, tool.Enabled)
	assert.True(t, *tool.Enabled)
	assert.Nil(t, tool.AutoApprove, "wrong-typed field is dropped, not coerced")
	assert.Equal(t, []string{"git status"}, tool.Commands)
	assert.Equal(t, []string{"rm -rf"}, cfg.Security.BlockedCommands)
	assert.Equal(t, int64(2048), cfg.Security.MaxConfigFileSize)
}

func TestValidateTruncatesOversizedArrays(t *testing.T) {
	var rules []any
	for i := 0; i < MaxAutoApproveRules+25; i++ {
		rules = append(rules, "cmd")
	}

	cfg := Validate(map[string]any{"autoApprove": rules})

	assert.Len(t, cfg.AutoApprove, MaxAutoApproveRules)
}

func TestValidateMalformedSections(t *testing.T) {
	cfg := Validate(map[string]any{
		"autoApprove": "not-an-array",
		"tools":       []any{"not-a-map"},
		"security":    42,
	})

	assert.Nil(t, cfg.AutoApprove)
	assert.Nil(t, cfg.Tools)
	assert.Equal(t, SecurityConfig{}, cfg.Security)
}

func TestValidateIdempotent(t *testing.T) {
	raw := map[string]any{
		"autoApprove": []any{"git status"},
		"tools": map[string]any{
			"bash": map[string]any{"autoApprove": true, "commands": []any{"ls"}},
		},
		"security": map[string]any{"blockedCommands": []any{"dd"}},
	}

	once := Validate(raw)

	// Round-trip the validated config back through JSON and validate again.
	data, err := json.Marshal(once)
	require.NoError(t, err)
	var roundTripped map[string]any
	require.NoError(t, json.Unmarshal(data, &roundTripped))
	twice := Validate(roundTripped)

	assert.Equal(t, once, twice)
}
