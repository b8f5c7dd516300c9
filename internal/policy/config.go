package policy

// Array size caps enforced by validation. Oversized arrays are truncated,
// not rejected, so a padded config cannot disable the whole file.
const (
	MaxAutoApproveRules = 100
	MaxToolCommands     = 50
	MaxBlockedCommands  = 100
	MaxAllowedPaths     = 20
)

// DefaultMaxConfigFileSize bounds how large a policy file may be on disk.
const DefaultMaxConfigFileSize = 1 << 20 // 1MB

// Config is a local permission policy, the merged content of one or more
// .toolgate/settings[.local].json files.
type Config struct {
	// AutoApprove lists commands approved without a prompt. Matching is
	// exact string equality, never substring or glob.
	AutoApprove []string `json:"autoApprove,omitempty"`
	// Tools holds per-tool overrides keyed by tool name.
	Tools map[string]ToolConfig `json:"tools,omitempty"`
	// Security holds deny-side settings.
	Security SecurityConfig `json:"security,omitempty"`
}

type ToolConfig struct {
	// Enabled, when explicitly false, denies every use of the tool.
	Enabled *bool `json:"enabled,omitempty"`
	// AutoApprove, when explicitly true, approves every use of the tool.
	AutoApprove *bool `json:"autoApprove,omitempty"`
	// Commands lists exact command strings approved for this tool.
	Commands []string `json:"commands,omitempty"`
}

type SecurityConfig struct {
	// BlockedCommands deny any command containing one of these substrings.
	BlockedCommands []string `json:"blockedCommands,omitempty"`
	AllowedPaths    []string `json:"allowedPaths,omitempty"`
	// MaxConfigFileSize overrides the default 1MB policy file size cap.
	MaxConfigFileSize int64 `json:"maxConfigFileSize,omitempty"`
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := &Config{
		AutoApprove: append([]string(nil), c.AutoApprove...),
		Security: SecurityConfig{
			BlockedCommands:   append([]string(nil), c.Security.BlockedCommands...),
			AllowedPaths:      append([]string(nil), c.Security.AllowedPaths...),
			MaxConfigFileSize: c.Security.MaxConfigFileSize,
		},
	}
	if c.Tools != nil {
		clone.Tools = make(map[string]ToolConfig, len(c.Tools))
		for name, tool := range c.Tools {
			clone.Tools[name] = tool.clone()
		}
	}
	return clone
}

func (t ToolConfig) clone() ToolConfig {
	out := ToolConfig{
		Commands: append([]string(nil), t.Commands...),
	}
	if t.Enabled != nil {
		v := *t.Enabled
		out.Enabled = &v
	}
	if t.AutoApprove != nil {
		v := *t.AutoApprove
		out.AutoApprove = &v
	}
	return out
}

// Source reports which policy files contributed to a merged result.
type Source string

const (
	SourceTeam     Source = "team"
	SourcePersonal Source = "personal"
	SourceMerged   Source = "merged"
)

// Result is a resolved local policy together with its provenance.
type Result struct {
	Config     *Config  `json:"config"`
	Source     Source   `json:"source"`
	LoadedFrom []string `json:"loadedFrom"`
}
