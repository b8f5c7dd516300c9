package pushnotification

import (
	"context"
	"fmt"

	"github.com/toolgate/toolgate/internal/eventbus"
)

// Dispatcher turns prompt-created events into push notifications. It is
// registered on the bus before the bus starts.
type Dispatcher struct {
	sender *Sender
}

func NewDispatcher(sender *Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Register subscribes the dispatcher to prompt-created events.
func (d *Dispatcher) Register(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, eventbus.PromptCreated, "push_notification_dispatcher",
		func(ctx context.Context, envelope *eventbus.Envelope, data eventbus.PromptCreatedData) error {
			d.sender.SendToAll(ctx, &NotificationPayload{
				Title: "Approval needed",
				Body:  fmt.Sprintf("[%s] %s", data.RiskLevel, data.Summary),
				URL:   "/approvals/" + data.ApprovalID,
				Tag:   data.ApprovalID,
			})
			return nil
		},
	)
}
