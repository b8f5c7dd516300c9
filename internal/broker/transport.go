// Package broker bridges the process that needs a decision with the
// process or surface where a human makes one. The two sides share no
// memory: the broker hands out an approval ID, presents a prompt through
// an external presenter, and waits on a transport until someone resolves
// that ID or the wait times out.
package broker

import (
	"context"

	"github.com/toolgate/toolgate/internal/approval"
)

// Decision is the payload a resolver hands back for one approval ID.
type Decision struct {
	Behavior     approval.Behavior `json:"behavior"`
	UpdatedInput map[string]any    `json:"updatedInput,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// Transport carries a Decision from the resolving side to the awaiting
// side. Await blocks until a decision arrives or ctx is done; Resolve
// hands a decision to whoever awaits id; Cleanup discards any transport
// state left for id, best effort.
type Transport interface {
	Await(ctx context.Context, id string) (*Decision, error)
	Resolve(ctx context.Context, id string, decision *Decision) error
	Cleanup(id string)
}
