package policy

// Merge combines two configs with override winning per field. base is
// deep-copied, never mutated. autoApprove lists are concatenated
// (duplicates allowed); per-tool configs are merged field by field; the
// security section is merged key by key with override winning whole values.
func Merge(base, override *Config) *Config {
	if base == nil {
		return override.Clone()
	}
	if override == nil {
		return base.Clone()
	}

	merged := base.Clone()
	merged.AutoApprove = append(merged.AutoApprove, override.AutoApprove...)

	for name, tool := range override.Tools {
		if merged.Tools == nil {
			merged.Tools = make(map[string]ToolConfig, len(override.Tools))
		}
		merged.Tools[name] = mergeTool(merged.Tools[name], tool)
	}

	if override.Security.BlockedCommands != nil {
		merged.Security.BlockedCommands = append([]string(nil), override.Security.BlockedCommands...)
	}
	if override.Security.AllowedPaths != nil {
		merged.Security.AllowedPaths = append([]string(nil), override.Security.AllowedPaths...)
	}
	if override.Security.MaxConfigFileSize > 0 {
		merged.Security.MaxConfigFileSize = override.Security.MaxConfigFileSize
	}

	return merged
}

func mergeTool(base, override ToolConfig) ToolConfig {
	merged := base.clone()
	if override.Enabled != nil {
		v := *override.Enabled
		merged.Enabled = &v
	}
	if override.AutoApprove != nil {
		v := *override.AutoApprove
		merged.AutoApprove = &v
	}
	if override.Commands != nil {
		merged.Commands = append([]string(nil), override.Commands...)
	}
	return merged
}
