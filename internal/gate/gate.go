package gate

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/sourcegraph/conc/panics"

	"github.com/toolgate/toolgate/internal/approval"
	"github.com/toolgate/toolgate/internal/audit"
	"github.com/toolgate/toolgate/internal/broker"
	"github.com/toolgate/toolgate/internal/eventbus"
	"github.com/toolgate/toolgate/internal/policy"
	"github.com/toolgate/toolgate/internal/scope"
	"github.com/toolgate/toolgate/pkg/clog"
	"github.com/toolgate/toolgate/pkg/panicerr"
	"github.com/toolgate/toolgate/pkg/shellformat"
)

const summaryMaxLen = 120

// Gate orchestrates one Decide call per permission request. All
// collaborators are injected; a Gate holds no global state, so tests and
// short-lived processes construct one per use.
type Gate struct {
	resolver *policy.Resolver
	engine   *scope.Engine
	store    *approval.Store
	broker   *broker.Broker
	audit    audit.Repository
	bus      *eventbus.Bus
	workDir  string
	autoLow  bool
	reqScope scope.Scope
}

type Option func(*Gate)

// WithWorkDir enables local policy discovery starting from dir.
func WithWorkDir(dir string) Option {
	return func(g *Gate) { g.workDir = dir }
}

// WithAutoApproveLowRisk allows low-risk requests without a prompt.
func WithAutoApproveLowRisk(enabled bool) Option {
	return func(g *Gate) { g.autoLow = enabled }
}

// WithRequestedScope sets the scope decisions are requested and recorded
// at. Defaults to command, the narrowest.
func WithRequestedScope(s scope.Scope) Option {
	return func(g *Gate) {
		if s.Valid() {
			g.reqScope = s
		}
	}
}

// WithEventBus publishes a PermissionDecided event per decision.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(g *Gate) { g.bus = bus }
}

func New(resolver *policy.Resolver, engine *scope.Engine, store *approval.Store, b *broker.Broker, auditRepo audit.Repository, opts ...Option) *Gate {
	g := &Gate{
		resolver: resolver,
		engine:   engine,
		store:    store,
		broker:   b,
		audit:    auditRepo,
		reqScope: scope.ScopeCommand,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide evaluates a permission request. It never returns an error and
// never panics outward: any internal fault yields a deny.
func (g *Gate) Decide(ctx context.Context, req *Request) *Response {
	clog.AddAttribute(ctx, "tool", req.ToolName)

	resp, err := panicerr.SafeResult(func() (*Response, error) {
		return g.decide(ctx, req)
	})
	if err != nil {
		slog.ErrorContext(ctx, "permission evaluation failed, denying", "error", err)
		resp = deny("internal error while evaluating permission request")
		cls := g.engine.Classify(req.ToolName, g.reqScope, req.Input)
		g.finish(ctx, req, cls, resp, audit.OriginError)
	}
	return resp
}

func (g *Gate) decide(ctx context.Context, req *Request) (*Response, error) {
	cls := g.engine.Classify(req.ToolName, g.reqScope, req.Input)
	clog.AddAttribute(ctx, "risk", string(cls.Risk))

	if g.autoLow && cls.Risk == scope.RiskLow {
		resp := allow("auto-approved: low risk")
		g.finish(ctx, req, cls, resp, audit.OriginAutoLowRisk)
		return resp, nil
	}

	if resp, origin, decided := g.evalLocalConfig(ctx, req, cls); decided {
		g.finish(ctx, req, cls, resp, origin)
		return resp, nil
	}

	if stored, ok := g.store.Lookup(ctx, req.ToolName, req.User, req.Channel, req.Input, cls.Scope); ok {
		resp := &Response{
			Behavior: stored.Behavior,
			Message:  "remembered decision at scope " + string(stored.Scope),
		}
		g.finish(ctx, req, cls, resp, audit.OriginRemembered)
		return resp, nil
	}

	return g.askHuman(ctx, req, cls)
}

// evalLocalConfig applies the local policy files. decided is false both
// when no config exists and when evaluation itself fails: a broken
// config must fall through to human review, never auto-deny.
func (g *Gate) evalLocalConfig(ctx context.Context, req *Request, cls scope.Classification) (resp *Response, origin audit.Origin, decided bool) {
	if g.workDir == "" {
		return nil, "", false
	}

	var catcher panics.Catcher
	catcher.Try(func() {
		result := g.resolver.LoadLocalPermissions(ctx, g.workDir)
		if result == nil {
			return
		}
		resp, origin, decided = evalConfig(result.Config, req, cls)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		slog.WarnContext(ctx, "local config evaluation panicked, falling through to review", "panic", recovered.Value)
		return nil, "", false
	}
	return resp, origin, decided
}

func evalConfig(cfg *policy.Config, req *Request, cls scope.Classification) (*Response, audit.Origin, bool) {
	command := scope.CommandText(req.Input)

	if command != "" {
		for _, blocked := range cfg.Security.BlockedCommands {
			if blocked != "" && strings.Contains(command, blocked) {
				return deny("command matches blocked pattern: " + blocked), audit.OriginBlockedCommand, true
			}
		}
	}

	// Pre-approval matching is exact, never substring: "git status" must
	// not approve "git status; rm -rf /".
	if command != "" && slices.Contains(cfg.AutoApprove, command) {
		return allow("auto-approved by local config"), audit.OriginLocalConfig, true
	}

	base := scope.BaseTool(req.ToolName)
	tool, ok := cfg.Tools[base]
	if !ok {
		// Config keys are conventionally lowercase; tool names often are not.
		tool, ok = cfg.Tools[strings.ToLower(base)]
	}
	if !ok {
		return nil, "", false
	}
	if tool.Enabled != nil && !*tool.Enabled {
		return deny("tool disabled by local config"), audit.OriginLocalConfig, true
	}
	if tool.AutoApprove != nil && *tool.AutoApprove {
		return allow("tool auto-approved by local config"), audit.OriginLocalConfig, true
	}
	if command != "" && slices.Contains(tool.Commands, command) {
		return allow("command auto-approved by local config"), audit.OriginLocalConfig, true
	}
	return nil, "", false
}

func (g *Gate) askHuman(ctx context.Context, req *Request, cls scope.Classification) (*Response, error) {
	summary := summarize(req)
	decision, err := g.broker.Request(ctx, &broker.Pending{
		ToolName:       req.ToolName,
		User:           req.User,
		Channel:        req.Channel,
		Input:          req.Input,
		RiskLevel:      cls.Risk,
		RequestedScope: cls.Scope,
		Summary:        summary,
	})
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Behavior:     decision.Behavior,
		UpdatedInput: decision.UpdatedInput,
		Message:      decision.Message,
	}

	if broker.IsTimeout(decision) {
		g.finish(ctx, req, cls, resp, audit.OriginTimeout)
		return resp, nil
	}

	// Remember the human decision at the originally requested scope.
	if _, err := g.store.Record(ctx, req.ToolName, req.User, req.Channel, req.Input, cls.Scope, decision.Behavior, cls.Risk); err != nil {
		slog.WarnContext(ctx, "failed to remember decision", "error", err)
	}
	g.finish(ctx, req, cls, resp, audit.OriginHuman)
	return resp, nil
}

func summarize(req *Request) string {
	if command := scope.CommandText(req.Input); command != "" {
		return shellformat.Summarize(command, summaryMaxLen)
	}
	return req.ToolName
}

// finish records the decision on the audit trail and the event bus.
// Neither failure changes the outcome.
func (g *Gate) finish(ctx context.Context, req *Request, cls scope.Classification, resp *Response, origin audit.Origin) {
	clog.AddAttribute(ctx, "behavior", string(resp.Behavior))
	slog.InfoContext(ctx, "permission decided", "origin", string(origin))

	if g.audit != nil {
		record := audit.NewRecord(cls.BaseTool, req.User, req.Channel, resp.Behavior, origin, cls.Scope, cls.Risk, resp.Message)
		if err := g.audit.Append(ctx, record); err != nil {
			slog.WarnContext(ctx, "failed to append audit record", "error", err)
		}
	}

	if g.bus != nil {
		err := g.bus.Publish(ctx, eventbus.PermissionDecided, eventbus.PermissionDecidedData{
			ToolName:  cls.BaseTool,
			User:      req.User,
			Channel:   req.Channel,
			Behavior:  string(resp.Behavior),
			Origin:    string(origin),
			RiskLevel: string(cls.Risk),
			Message:   resp.Message,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to publish decision event", "error", err)
		}
	}
}
