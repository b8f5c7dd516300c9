package scope

import (
	"strings"

	"github.com/toolgate/toolgate/pkg/shellformat"
)

// Risk is the blast-radius classification of a request. It drives
// auto-approval eligibility and how long a remembered approval lives.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

func riskRank(r Risk) int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

func maxRisk(a, b Risk) Risk {
	if riskRank(a) >= riskRank(b) {
		return a
	}
	return b
}

// credentialMarkers flag command text that touches secrets. Any hit is
// high risk regardless of the command itself.
var credentialMarkers = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"private_key",
	"credential",
	".ssh/",
	".aws/",
	".netrc",
}

// commandRisk classifies shell binaries by their first word. Binaries not
// listed default to medium: unknown is mutating until proven otherwise.
var commandRisk = map[string]Risk{
	// Read-only.
	"ls":    RiskLow,
	"cat":   RiskLow,
	"head":  RiskLow,
	"tail":  RiskLow,
	"grep":  RiskLow,
	"rg":    RiskLow,
	"find":  RiskLow,
	"pwd":   RiskLow,
	"echo":  RiskLow,
	"which": RiskLow,
	"env":   RiskLow,
	"wc":    RiskLow,
	"diff":  RiskLow,
	"stat":  RiskLow,
	"du":    RiskLow,
	"df":    RiskLow,

	// Mutating but recoverable.
	"mkdir": RiskMedium,
	"touch": RiskMedium,
	"cp":    RiskMedium,
	"mv":    RiskMedium,
	"sed":   RiskMedium,
	"curl":  RiskMedium,
	"wget":  RiskMedium,
	"npm":   RiskMedium,
	"pip":   RiskMedium,
	"make":  RiskMedium,
	"go":    RiskMedium,
	"git":   RiskMedium,

	// Destructive or privilege-escalating.
	"rm":       RiskHigh,
	"rmdir":    RiskHigh,
	"dd":       RiskHigh,
	"mkfs":     RiskHigh,
	"shred":    RiskHigh,
	"truncate": RiskHigh,
	"chmod":    RiskHigh,
	"chown":    RiskHigh,
	"sudo":     RiskHigh,
	"su":       RiskHigh,
	"kill":     RiskHigh,
	"pkill":    RiskHigh,
	"reboot":   RiskHigh,
	"shutdown": RiskHigh,
}

// gitSubcommandRisk refines git below the binary-level default. Unlisted
// subcommands stay at the git default (medium).
var gitSubcommandRisk = map[string]Risk{
	"status": RiskLow,
	"log":    RiskLow,
	"diff":   RiskLow,
	"show":   RiskLow,
	"branch": RiskLow,
	"remote": RiskLow,
	"blame":  RiskLow,

	"push":  RiskMedium,
	"pull":  RiskMedium,
	"fetch": RiskLow,

	"reset": RiskHigh,
	"clean": RiskHigh,
}

// readOnlyTools are non-shell tools whose whole purpose is reading.
var readOnlyTools = map[string]bool{
	"read":      true,
	"glob":      true,
	"grep":      true,
	"websearch": true,
	"webfetch":  true,
}

// ClassifyRisk maps a (tool, input) pair to low, medium or high. Shell
// tools are classified per statement with the worst statement winning;
// multi-statement commands never classify low, and unparseable input is
// high. Credential markers anywhere in the command force high.
func (e *Engine) ClassifyRisk(toolName string, input map[string]any) Risk {
	base := strings.ToLower(BaseTool(toolName))

	if base == "bash" || base == "shell" || strings.Contains(base, "bash") {
		return classifyShell(CommandText(input))
	}

	if readOnlyTools[base] {
		return RiskLow
	}

	lowerTool := strings.ToLower(toolName)
	switch {
	case strings.Contains(lowerTool, "delete"):
		return RiskHigh
	case strings.Contains(lowerTool, "write"), strings.Contains(lowerTool, "edit"):
		return RiskMedium
	case strings.Contains(lowerTool, "read"):
		return RiskLow
	}

	return RiskMedium
}

func classifyShell(command string) Risk {
	command = strings.TrimSpace(command)
	if command == "" {
		return RiskMedium
	}

	lower := strings.ToLower(command)
	for _, marker := range credentialMarkers {
		if strings.Contains(lower, marker) {
			return RiskHigh
		}
	}

	stmts, ok := shellformat.Statements(command)
	if !ok {
		// A command we cannot parse is a command we cannot reason about.
		return RiskHigh
	}

	var segments []string
	for _, stmt := range stmts {
		segments = append(segments, splitSegments(stmt)...)
	}

	risk := RiskLow
	for _, segment := range segments {
		risk = maxRisk(risk, classifySegment(segment))
	}
	if len(segments) > 1 {
		risk = maxRisk(risk, RiskMedium)
	}
	return risk
}

// splitSegments breaks a canonically printed statement at pipe and
// logical operators, so every command in a chain is classified, not just
// the first.
func splitSegments(stmt string) []string {
	var segments []string
	current := stmt
	for {
		idx := strings.IndexAny(current, "|&")
		if idx < 0 {
			break
		}
		segments = append(segments, current[:idx])
		current = strings.TrimLeft(current[idx:], "|& ")
	}
	segments = append(segments, current)
	return segments
}

// commandWrappers run another command given as their argument; the
// wrapped command is what carries the risk.
var commandWrappers = map[string]bool{
	"xargs": true,
	"nohup": true,
	"time":  true,
	"nice":  true,
}

func classifySegment(stmt string) Risk {
	fields := strings.Fields(stmt)
	for len(fields) > 0 && commandWrappers[strings.ToLower(fields[0])] {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return RiskLow
	}

	binary := strings.ToLower(fields[0])
	if binary == "git" && len(fields) > 1 {
		if risk, ok := gitSubcommandRisk[strings.ToLower(fields[1])]; ok {
			return risk
		}
	}

	if risk, ok := commandRisk[binary]; ok {
		return risk
	}
	return RiskMedium
}
