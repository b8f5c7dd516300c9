// Package audit keeps a durable trail of every gate decision, whatever
// its origin. The trail is what lets an operator answer "why did this
// command run" after the fact.
package audit

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/toolgate/toolgate/internal/approval"
	"github.com/toolgate/toolgate/internal/scope"
)

// Origin names the step of the decision ladder that produced the
// outcome.
type Origin string

const (
	OriginAutoLowRisk    Origin = "auto_low_risk"
	OriginBlockedCommand Origin = "blocked_command"
	OriginLocalConfig    Origin = "local_config"
	OriginRemembered     Origin = "remembered"
	OriginHuman          Origin = "human"
	OriginTimeout        Origin = "timeout"
	OriginError          Origin = "error"
)

// Record is one decision in the trail.
type Record struct {
	ID        string            `yaml:"id"`
	ToolName  string            `yaml:"tool_name"`
	User      string            `yaml:"user"`
	Channel   string            `yaml:"channel"`
	Behavior  approval.Behavior `yaml:"behavior"`
	Origin    Origin            `yaml:"origin"`
	Scope     scope.Scope       `yaml:"scope"`
	RiskLevel scope.Risk        `yaml:"risk_level"`
	Message   string            `yaml:"message,omitempty"`
	CreatedAt time.Time         `yaml:"created_at"`
}

// NewRecord stamps a record with a fresh ULID and the current time.
// ULIDs sort lexicographically by creation time, which keeps the listing
// chronological for free.
func NewRecord(toolName, user, channel string, behavior approval.Behavior, origin Origin, s scope.Scope, risk scope.Risk, message string) *Record {
	return &Record{
		ID:        ulid.Make().String(),
		ToolName:  toolName,
		User:      user,
		Channel:   channel,
		Behavior:  behavior,
		Origin:    origin,
		Scope:     s,
		RiskLevel: risk,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
