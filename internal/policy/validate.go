package policy

// Validate projects untyped JSON onto Config, keeping only recognized
// fields with the correct types. Malformed sub-fields are dropped and
// oversized arrays truncated; validation never fails outright, so one bad
// field cannot take the whole policy file with it.
func Validate(raw map[string]any) *Config {
	cfg := &Config{}

	cfg.AutoApprove = stringSlice(raw["autoApprove"], MaxAutoApproveRules)

	if tools, ok := raw["tools"].(map[string]any); ok {
		for name, v := range tools {
			toolRaw, ok := v.(map[string]any)
			if ok && name != "" {
				if cfg.Tools == nil {
					cfg.Tools = make(map[string]ToolConfig, len(tools))
				}
				cfg.Tools[name] = validateTool(toolRaw)
			}
		}
	}

	if sec, ok := raw["security"].(map[string]any); ok {
		cfg.Security = SecurityConfig{
			BlockedCommands: stringSlice(sec["blockedCommands"], MaxBlockedCommands),
			AllowedPaths:    stringSlice(sec["allowedPaths"], MaxAllowedPaths),
		}
		// JSON numbers decode as float64.
		if size, ok := sec["maxConfigFileSize"].(float64); ok && size > 0 {
			cfg.Security.MaxConfigFileSize = int64(size)
		}
	}

	return cfg
}

func validateTool(raw map[string]any) ToolConfig {
	tool := ToolConfig{
		Commands: stringSlice(raw["commands"], MaxToolCommands),
	}
	if enabled, ok := raw["enabled"].(bool); ok {
		tool.Enabled = &enabled
	}
	if auto, ok := raw["autoApprove"].(bool); ok {
		tool.AutoApprove = &auto
	}
	return tool
}

// stringSlice keeps the non-empty string elements of a decoded JSON array,
// truncating to max.
func stringSlice(v any, max int) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		s, ok := item.(string)
		if !ok || s == "" {
			continue
		}
		out = append(out, s)
		if len(out) >= max {
			break
		}
	}
	return out
}
