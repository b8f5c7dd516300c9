package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/toolgate/toolgate/internal/approval"
	"github.com/toolgate/toolgate/internal/scope"
	"github.com/toolgate/toolgate/pkg/cerr"
)

// DefaultTimeout bounds how long a prompt stays open before the broker
// synthesizes a deny.
const DefaultTimeout = 5 * time.Minute

const timeoutMessagePrefix = "approval request timed out"

// IsTimeout reports whether a decision was synthesized by the broker's
// timeout rather than made by a human.
func IsTimeout(d *Decision) bool {
	return d != nil && d.Behavior == approval.BehaviorDeny && strings.HasPrefix(d.Message, timeoutMessagePrefix)
}

// Pending is the ephemeral state of one open prompt. It exists from the
// moment the prompt is presented until a decision arrives or the wait
// times out.
type Pending struct {
	ApprovalID     string         `json:"approval_id"`
	ToolName       string         `json:"tool_name"`
	User           string         `json:"user"`
	Channel        string         `json:"channel"`
	Input          map[string]any `json:"input"`
	RiskLevel      scope.Risk     `json:"risk_level"`
	RequestedScope scope.Scope    `json:"requested_scope"`
	Summary        string         `json:"summary"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Presenter renders a prompt to whatever surface humans watch. Rendering
// is out of scope here; the broker only hands over the ID and summary.
type Presenter interface {
	Present(ctx context.Context, pending *Pending) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(ctx context.Context, pending *Pending) error

func (f PresenterFunc) Present(ctx context.Context, pending *Pending) error {
	return f(ctx, pending)
}

// Broker solicits human decisions. Request registers a pending prompt,
// presents it, and waits on the transport; Resolve is called by the
// decision surface and records the decision before signaling the waiter.
type Broker struct {
	mu        sync.Mutex
	transport Transport
	store     *approval.Store
	presenter Presenter
	timeout   time.Duration
	pending   map[string]*Pending
}

type Option func(*Broker)

func WithTimeout(timeout time.Duration) Option {
	return func(b *Broker) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

func NewBroker(transport Transport, store *approval.Store, presenter Presenter, opts ...Option) *Broker {
	b := &Broker{
		transport: transport,
		store:     store,
		presenter: presenter,
		timeout:   DefaultTimeout,
		pending:   make(map[string]*Pending),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Request presents a prompt and blocks until a decision arrives or the
// timeout elapses. Timeout synthesizes a deny; it is not an error and is
// never persisted, since no human actually decided anything.
func (b *Broker) Request(ctx context.Context, pending *Pending) (*Decision, error) {
	if pending.ApprovalID == "" {
		pending.ApprovalID = ulid.Make().String()
	}
	pending.CreatedAt = time.Now()

	b.mu.Lock()
	b.pending[pending.ApprovalID] = pending
	b.mu.Unlock()
	defer b.discard(pending.ApprovalID)

	if err := b.presenter.Present(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to present approval prompt: %w", err)
	}

	awaitCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	decision, err := b.transport.Await(awaitCtx, pending.ApprovalID)
	if err != nil {
		slog.InfoContext(ctx, "approval prompt timed out",
			"approval_id", pending.ApprovalID,
			"tool", pending.ToolName,
		)
		return &Decision{
			Behavior: approval.BehaviorDeny,
			Message:  fmt.Sprintf("%s after %s", timeoutMessagePrefix, b.timeout),
		}, nil
	}
	return decision, nil
}

// Resolve completes a pending prompt. It rejects unknown or already
// resolved IDs, records the decision in the approval store using the
// context captured at prompt time, and signals the waiting side. The
// first resolution wins; later ones get NotFound.
func (b *Broker) Resolve(ctx context.Context, id string, decision *Decision) error {
	b.mu.Lock()
	pending, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()
	if !ok {
		return cerr.NewError(cerr.NotFound, "unknown or already resolved approval id", nil)
	}

	if _, err := b.store.Record(ctx,
		pending.ToolName, pending.User, pending.Channel,
		pending.Input, pending.RequestedScope,
		decision.Behavior, pending.RiskLevel,
	); err != nil {
		slog.ErrorContext(ctx, "failed to record approval decision", "approval_id", id, "error", err)
	}

	if err := b.transport.Resolve(ctx, id, decision); err != nil {
		return fmt.Errorf("failed to deliver decision: %w", err)
	}
	return nil
}

// Pending lists the currently open prompts, newest last.
func (b *Broker) Pending() []*Pending {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*Pending, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (b *Broker) discard(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
	b.transport.Cleanup(id)
}
