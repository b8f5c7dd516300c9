// Package approval remembers past human decisions so an identical request
// does not prompt again. Records are durable: the gate usually runs as a
// short-lived process, so process memory alone cannot make "remember my
// decision" stick.
package approval

import (
	"fmt"
	"time"

	"github.com/toolgate/toolgate/internal/scope"
)

// Behavior is the outcome of a decision.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
)

// StoredApproval is one remembered human decision. Pre-approvals from
// static config are never stored; they are re-evaluated from config on
// every request.
type StoredApproval struct {
	ToolName  string      `json:"toolName"`
	User      string      `json:"user"`
	Channel   string      `json:"channel"`
	Behavior  Behavior    `json:"behavior"`
	Timestamp time.Time   `json:"timestamp"`
	ScopeKey  string      `json:"scopeKey"`
	Scope     scope.Scope `json:"scope"`
	RiskLevel scope.Risk  `json:"riskLevel"`
}

// storeKey builds the map key. Identity and scope key together decide
// whether a past decision applies.
func storeKey(toolName, user, channel, scopeKey string) string {
	return fmt.Sprintf("%s:%s:%s:%s", toolName, user, channel, scopeKey)
}

// MaxAge is how long a decision at the given scope and risk stays valid.
// Broader scopes live longer; higher risk expires sooner.
func MaxAge(s scope.Scope, risk scope.Risk) time.Duration {
	high := risk == scope.RiskHigh
	switch s {
	case scope.ScopeTool:
		if high {
			return 72 * time.Hour
		}
		return 168 * time.Hour
	case scope.ScopeAction:
		if high {
			return 12 * time.Hour
		}
		return 48 * time.Hour
	default:
		if high {
			return 6 * time.Hour
		}
		return 24 * time.Hour
	}
}
