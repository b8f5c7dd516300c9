// Package scope computes approval scope identifiers and risk levels for
// tool-use requests. A scope names how broadly an approval applies: tool
// (any use of the tool), action (a named operation of the tool), or
// command (this exact input, parameter for parameter).
package scope

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Scope is the granularity of an approval. Ordered broadest to narrowest:
// tool, action, command.
type Scope string

const (
	ScopeTool    Scope = "tool"
	ScopeAction  Scope = "action"
	ScopeCommand Scope = "command"
)

// Valid reports whether s is one of the three known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeTool, ScopeAction, ScopeCommand:
		return true
	}
	return false
}

// Hierarchy returns the candidate scopes to consult for a request at the
// given scope, broadest first. A broader approval satisfies a narrower
// request; the reverse never holds.
func Hierarchy(s Scope) []Scope {
	switch s {
	case ScopeCommand:
		return []Scope{ScopeTool, ScopeAction, ScopeCommand}
	case ScopeAction:
		return []Scope{ScopeTool, ScopeAction}
	default:
		return []Scope{ScopeTool}
	}
}

// Classification is the scope engine's verdict on a single request.
type Classification struct {
	BaseTool string
	Scope    Scope
	Key      string
	Risk     Risk
}

// Engine computes scope keys and risk levels. It is stateless and safe
// for concurrent use; it exists as a type so the lookup tables live in
// one injectable place instead of scattered call sites.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Classify computes the base tool, the scope key at the requested scope,
// and the risk level in one pass. An invalid scope is coerced to command,
// the narrowest.
func (e *Engine) Classify(toolName string, requested Scope, input map[string]any) Classification {
	if !requested.Valid() {
		requested = ScopeCommand
	}
	return Classification{
		BaseTool: BaseTool(toolName),
		Scope:    requested,
		Key:      e.Key(toolName, requested, input),
		Risk:     e.ClassifyRisk(toolName, input),
	}
}

// Key renders the scope key for toolName at the given scope.
func (e *Engine) Key(toolName string, scope Scope, input map[string]any) string {
	switch scope {
	case ScopeTool:
		return "tool:" + BaseTool(toolName)
	case ScopeAction:
		return "action:" + e.actionType(toolName, input)
	default:
		return "command:" + CommandHash(input)
	}
}

// BaseTool strips an mcp__<server>__<action> tool name down to <server>.
// Any other name passes through verbatim.
func BaseTool(toolName string) string {
	rest, ok := strings.CutPrefix(toolName, "mcp__")
	if !ok {
		return toolName
	}
	server, _, ok := strings.Cut(rest, "__")
	if !ok || server == "" {
		return toolName
	}
	return server
}

// githubActions maps command-text markers to action types for the GitHub
// tool family. Ordered: more specific markers are matched before their
// prefixes.
var githubActions = []struct {
	marker string
	action string
}{
	{"issue create", "issue_create"},
	{"pr create", "pr_create"},
	{"issue", "issue"},
	{"repo", "repo"},
}

// filesystemActions maps tool-name markers to action types for the
// filesystem tool family.
var filesystemActions = []struct {
	marker string
	action string
}{
	{"delete", "delete"},
	{"write", "write"},
	{"read", "read"},
}

// actionType classifies a request into a named action. GitHub-family
// tools are classified by command text, filesystem-family tools by tool
// name; everything else falls back to the base tool name.
func (e *Engine) actionType(toolName string, input map[string]any) string {
	base := BaseTool(toolName)
	lowerBase := strings.ToLower(base)

	if strings.Contains(lowerBase, "github") || lowerBase == "gh" {
		command := strings.ToLower(CommandText(input))
		for _, entry := range githubActions {
			if strings.Contains(command, entry.marker) {
				return entry.action
			}
		}
		return base
	}

	lowerTool := strings.ToLower(toolName)
	for _, entry := range filesystemActions {
		if strings.Contains(lowerTool, entry.marker) {
			return entry.action
		}
	}

	return base
}

// CommandHash returns the first 16 hex characters of the SHA-256 of the
// canonical JSON serialization of input. encoding/json writes map keys in
// sorted order, so equal inputs hash equally regardless of insertion
// order.
func CommandHash(input map[string]any) string {
	data, err := json.Marshal(input)
	if err != nil {
		// Non-serializable input still needs a stable key.
		data = []byte(fmt.Sprintf("%v", input))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// CommandText extracts the shell command string from a tool input, empty
// when absent.
func CommandText(input map[string]any) string {
	if input == nil {
		return ""
	}
	if command, ok := input["command"].(string); ok {
		return command
	}
	return ""
}
