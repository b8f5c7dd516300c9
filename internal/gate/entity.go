// Package gate is the decision entry point: it turns a tool-use request
// into an allow or deny by consulting, in order, the risk classifier,
// local policy config, remembered approvals, and finally a human.
package gate

import (
	"github.com/toolgate/toolgate/internal/approval"
)

// Request is a tool-use permission request from the agent runtime.
type Request struct {
	ToolName string         `json:"tool_name"`
	Input    map[string]any `json:"input"`
	Channel  string         `json:"channel,omitempty"`
	ThreadTS string         `json:"thread_ts,omitempty"`
	User     string         `json:"user,omitempty"`
}

// Response is the verdict handed back to the agent runtime.
type Response struct {
	Behavior     approval.Behavior `json:"behavior"`
	UpdatedInput map[string]any    `json:"updatedInput,omitempty"`
	Message      string            `json:"message,omitempty"`
}

func allow(message string) *Response {
	return &Response{Behavior: approval.BehaviorAllow, Message: message}
}

func deny(message string) *Response {
	return &Response{Behavior: approval.BehaviorDeny, Message: message}
}
