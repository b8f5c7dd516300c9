package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseTool(t *testing.T) {
	tests := []struct {
		name string
		tool string
		want string
	}{
		{"plain tool", "Bash", "Bash"},
		{"mcp tool", "mcp__github__create_issue", "github"},
		{"mcp multi-underscore action", "mcp__slack__post__message", "slack"},
		{"mcp prefix without action", "mcp__github", "mcp__github"},
		{"empty server", "mcp____action", "mcp____action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseTool(tt.tool))
		})
	}
}

func TestHierarchy(t *testing.T) {
	assert.Equal(t, []Scope{ScopeTool, ScopeAction, ScopeCommand}, Hierarchy(ScopeCommand))
	assert.Equal(t, []Scope{ScopeTool, ScopeAction}, Hierarchy(ScopeAction))
	assert.Equal(t, []Scope{ScopeTool}, Hierarchy(ScopeTool))
}

func TestKeyToolScope(t *testing.T) {
	e := NewEngine()
	assert.Equal(t, "tool:Bash", e.Key("Bash", ScopeTool, nil))
	assert.Equal(t, "tool:github", e.Key("mcp__github__create_issue", ScopeTool, nil))
}

func TestKeyActionScope(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		name  string
		tool  string
		input map[string]any
		want  string
	}{
		{"github issue create", "mcp__github__run", map[string]any{"command": "gh issue create --title x"}, "action:issue_create"},
		{"github pr create", "mcp__github__run", map[string]any{"command": "gh pr create"}, "action:pr_create"},
		{"github issue view", "mcp__github__run", map[string]any{"command": "gh issue view 42"}, "action:issue"},
		{"github repo", "mcp__github__run", map[string]any{"command": "gh repo clone x"}, "action:repo"},
		{"github fallback", "mcp__github__run", map[string]any{"command": "gh auth status"}, "action:github"},
		{"filesystem write", "mcp__fs__write_file", map[string]any{"path": "/tmp/x"}, "action:write"},
		{"filesystem delete", "DeleteFile", nil, "action:delete"},
		{"filesystem read", "ReadFile", nil, "action:read"},
		{"unknown tool falls back", "WebFetch", nil, "action:WebFetch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Key(tt.tool, ScopeAction, tt.input))
		})
	}
}

func TestCommandHashStableAcrossKeyOrder(t *testing.T) {
	a := CommandHash(map[string]any{"command": "ls", "cwd": "/tmp"})
	b := CommandHash(map[string]any{"cwd": "/tmp", "command": "ls"})

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", a)
}

func TestCommandHashDiffersByInput(t *testing.T) {
	a := CommandHash(map[string]any{"command": "git status"})
	b := CommandHash(map[string]any{"command": "git status; rm -rf /"})
	assert.NotEqual(t, a, b)
}

func TestClassifyDefaultsInvalidScopeToCommand(t *testing.T) {
	e := NewEngine()
	c := e.Classify("Bash", Scope("bogus"), map[string]any{"command": "ls"})
	assert.Equal(t, ScopeCommand, c.Scope)
	assert.Equal(t, "command:"+CommandHash(map[string]any{"command": "ls"}), c.Key)
	assert.Equal(t, "Bash", c.BaseTool)
	assert.Equal(t, RiskLow, c.Risk)
}
