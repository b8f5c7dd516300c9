package eventbus

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type identifies an event stream. One topic per type.
type Type string

const (
	// PromptCreated fires when the broker asks a human for a decision.
	PromptCreated Type = "approval.prompt.created"
	// PermissionDecided fires once per gate decision, whatever its origin.
	PermissionDecided Type = "permission.decided"
)

// PromptCreatedData notifies presenters that a decision is wanted.
type PromptCreatedData struct {
	ApprovalID string `json:"approval_id"`
	ToolName   string `json:"tool_name"`
	User       string `json:"user"`
	Channel    string `json:"channel"`
	Summary    string `json:"summary"`
	RiskLevel  string `json:"risk_level"`
}

// PermissionDecidedData records the outcome of a gate decision.
type PermissionDecidedData struct {
	ToolName  string `json:"tool_name"`
	User      string `json:"user"`
	Channel   string `json:"channel"`
	Behavior  string `json:"behavior"`
	Origin    string `json:"origin"`
	RiskLevel string `json:"risk_level"`
	Message   string `json:"message,omitempty"`
}

// Envelope is the serialized form carried on the wire between publisher
// and subscriber.
type Envelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func newEnvelope(t Type, data any) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        ulid.Make().String(),
		Type:      t,
		Timestamp: time.Now(),
		Data:      raw,
	}, nil
}
