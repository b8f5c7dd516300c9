package broker

import (
	"context"
	"sync"
)

// ChannelTransport carries decisions over in-process channels. It serves
// long-lived deployments where the awaiting request and the resolving
// HTTP handler live in the same process.
type ChannelTransport struct {
	mu      sync.Mutex
	waiters map[string]chan *Decision
}

func NewChannelTransport() *ChannelTransport {
	return &ChannelTransport{
		waiters: make(map[string]chan *Decision),
	}
}

// waiter returns the channel for id, creating it on first use from either
// side so Resolve slightly before Await still lands.
func (t *ChannelTransport) waiter(id string) chan *Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.waiters[id]
	if !ok {
		ch = make(chan *Decision, 1)
		t.waiters[id] = ch
	}
	return ch
}

func (t *ChannelTransport) Await(ctx context.Context, id string) (*Decision, error) {
	ch := t.waiter(id)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case decision := <-ch:
		return decision, nil
	}
}

// Resolve delivers the decision to the waiter. The channel is buffered
// with capacity one; a second resolution for the same id is dropped.
func (t *ChannelTransport) Resolve(_ context.Context, id string, decision *Decision) error {
	select {
	case t.waiter(id) <- decision:
	default:
	}
	return nil
}

func (t *ChannelTransport) Cleanup(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.waiters, id)
}
