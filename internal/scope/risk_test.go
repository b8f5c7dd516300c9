package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRiskShell(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		name    string
		command string
		want    Risk
	}{
		{"read-only", "git status", RiskLow},
		{"read-only binary", "ls -la", RiskLow},
		{"mutating", "git push origin main", RiskMedium},
		{"unknown binary defaults medium", "terraform apply", RiskMedium},
		{"destructive", "rm -rf /tmp/x", RiskHigh},
		{"privilege escalation", "sudo apt install x", RiskHigh},
		{"git reset is destructive", "git reset --hard HEAD~3", RiskHigh},
		{"multi-statement never low", "git status; git log", RiskMedium},
		{"worst statement wins", "git status; rm -rf /", RiskHigh},
		{"piped destructive tail", "cat list.txt | xargs rm", RiskHigh},
		{"chained destructive", "ls && rm -rf /tmp/x", RiskHigh},
		{"credential marker", "cat ~/.ssh/id_rsa", RiskHigh},
		{"token marker", "echo $GITHUB_TOKEN", RiskHigh},
		{"unparseable is high", "git status; do done fi", RiskHigh},
		{"empty command", "", RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ClassifyRisk("Bash", map[string]any{"command": tt.command})
			assert.Equal(t, tt.want, got, tt.command)
		})
	}
}

func TestClassifyRiskNonShellTools(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		tool string
		want Risk
	}{
		{"Read", RiskLow},
		{"Glob", RiskLow},
		{"WebSearch", RiskLow},
		{"Write", RiskMedium},
		{"Edit", RiskMedium},
		{"DeleteFile", RiskHigh},
		{"mcp__fs__read_file", RiskLow},
		{"SomeUnknownTool", RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ClassifyRisk(tt.tool, nil))
		})
	}
}
