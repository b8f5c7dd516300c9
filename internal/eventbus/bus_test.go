package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T) (*Bus, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	bus, err := NewBus()
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Stop() })
	return bus, ctx
}

func run(t *testing.T, bus *Bus, ctx context.Context) {
	t.Helper()
	go func() { _ = bus.Start(ctx) }()
	select {
	case <-bus.router.Running():
	case <-time.After(2 * time.Second):
		t.Fatal("router did not start within timeout")
	}
}

func TestBusPublishSubscribe(t *testing.T) {
	bus, ctx := startBus(t)

	handled := make(chan PromptCreatedData, 1)
	Subscribe(bus, PromptCreated, "test_handler", func(ctx context.Context, envelope *Envelope, data PromptCreatedData) error {
		assert.NotEmpty(t, envelope.ID)
		assert.Equal(t, PromptCreated, envelope.Type)
		handled <- data
		return nil
	})

	run(t, bus, ctx)

	err := bus.Publish(ctx, PromptCreated, PromptCreatedData{
		ApprovalID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		ToolName:   "Bash",
		Summary:    "git push origin main",
		RiskLevel:  "medium",
	})
	require.NoError(t, err)

	select {
	case data := <-handled:
		assert.Equal(t, "Bash", data.ToolName)
		assert.Equal(t, "git push origin main", data.Summary)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not handled within timeout")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus, ctx := startBus(t)

	handled1 := make(chan struct{}, 1)
	handled2 := make(chan struct{}, 1)
	Subscribe(bus, PermissionDecided, "handler1", func(ctx context.Context, envelope *Envelope, data PermissionDecidedData) error {
		handled1 <- struct{}{}
		return nil
	})
	Subscribe(bus, PermissionDecided, "handler2", func(ctx context.Context, envelope *Envelope, data PermissionDecidedData) error {
		handled2 <- struct{}{}
		return nil
	})

	run(t, bus, ctx)

	err := bus.Publish(ctx, PermissionDecided, PermissionDecidedData{ToolName: "Bash", Behavior: "allow", Origin: "local_config"})
	require.NoError(t, err)

	for name, ch := range map[string]chan struct{}{"handler1": handled1, "handler2": handled2} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not receive event", name)
		}
	}
}

func TestBusTopicsIsolated(t *testing.T) {
	bus, ctx := startBus(t)

	decided := make(chan struct{}, 1)
	Subscribe(bus, PermissionDecided, "decided_handler", func(ctx context.Context, envelope *Envelope, data PermissionDecidedData) error {
		decided <- struct{}{}
		return nil
	})

	run(t, bus, ctx)

	require.NoError(t, bus.Publish(ctx, PromptCreated, PromptCreatedData{ApprovalID: "x"}))

	select {
	case <-decided:
		t.Fatal("handler received an event from another topic")
	case <-time.After(200 * time.Millisecond):
	}
}
