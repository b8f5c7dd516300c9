// Package eventbus is the in-process pub/sub backbone. The gate publishes
// decision events, presenters and the audit trail subscribe. Built on
// watermill's gochannel pub/sub with a message router so handlers run
// concurrently and a slow subscriber cannot stall the gate.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type pubSub interface {
	message.Publisher
	message.Subscriber
}

// Bus manages event publishing and subscription.
type Bus struct {
	pubSub pubSub
	router *message.Router
	logger watermill.LoggerAdapter
}

// Handler consumes decoded events of one type.
type Handler[T any] func(ctx context.Context, envelope *Envelope, data T) error

// NewBus creates an in-process bus. Subscribe before Start; Start blocks
// until the context is cancelled.
func NewBus() (*Bus, error) {
	logger := watermill.NewStdLogger(false, false)

	ps := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 256,
		},
		logger,
	)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	return &Bus{
		pubSub: ps,
		router: router,
		logger: logger,
	}, nil
}

// Start runs the router until ctx is cancelled.
func (b *Bus) Start(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Stop closes the router and the underlying pub/sub.
func (b *Bus) Stop() error {
	return b.router.Close()
}

// Publish serializes data into an envelope and publishes it on the topic
// for t.
func (b *Bus) Publish(ctx context.Context, t Type, data any) error {
	envelope, err := newEnvelope(t, data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(envelope.ID, payload)
	msg.SetContext(ctx)

	if err := b.pubSub.Publish(string(t), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe registers a typed handler for events of type t. handlerName
// must be unique per subscription.
func Subscribe[T any](b *Bus, t Type, handlerName string, handler Handler[T]) {
	b.router.AddNoPublisherHandler(
		handlerName,
		string(t),
		b.pubSub,
		func(msg *message.Message) error {
			var envelope Envelope
			if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
				return fmt.Errorf("failed to unmarshal event envelope: %w", err)
			}
			var data T
			if err := json.Unmarshal(envelope.Data, &data); err != nil {
				return fmt.Errorf("failed to unmarshal event data: %w", err)
			}
			return handler(msg.Context(), &envelope, data)
		},
	)
}
