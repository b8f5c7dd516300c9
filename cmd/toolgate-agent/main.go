// toolgate-agent runs a Claude agent session with every tool use routed
// through the permission gate. The gate runs in-process in its
// short-lived mode: prompts are announced on stderr and resolved from
// another terminal via `toolgate resolve`.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	claudeagent "github.com/kazz187/claude-agent-sdk-go"

	"github.com/toolgate/toolgate/internal/approval"
	auditrepo "github.com/toolgate/toolgate/internal/audit/repositoryimpl"
	"github.com/toolgate/toolgate/internal/broker"
	"github.com/toolgate/toolgate/internal/config"
	"github.com/toolgate/toolgate/internal/gate"
	"github.com/toolgate/toolgate/internal/policy"
	"github.com/toolgate/toolgate/internal/scope"
	"github.com/toolgate/toolgate/pkg/clog"
	"github.com/toolgate/toolgate/pkg/color"
	"github.com/toolgate/toolgate/pkg/storage"
)

var (
	app = kingpin.New("toolgate-agent", "Run a Claude agent session gated by toolgate")

	prompt       = app.Arg("prompt", "Prompt for the agent").Required().String()
	workDir      = app.Flag("work-dir", "Working directory for the session").Default(".").String()
	systemPrompt = app.Flag("system-prompt", "Extra system prompt").String()
	user         = app.Flag("user", "User recorded on decisions").Default("agent").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading environment: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(clog.NewTextHandler(os.Stderr, clog.WithLevel(env.SlogLevel())))))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, env); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, env *config.Env) error {
	store, err := storage.NewLocalStorage(env.StorageEnv.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	absWorkDir, err := filepath.Abs(*workDir)
	if err != nil {
		return fmt.Errorf("failed to resolve work dir: %w", err)
	}

	engine := scope.NewEngine()
	approvalStore := approval.NewStore(ctx, store, engine)

	mailbox := env.GateEnv.MailboxDir
	if mailbox == "" {
		mailbox = filepath.Join(env.StorageEnv.BaseDir, "mailbox")
	}
	presenter := broker.PresenterFunc(func(ctx context.Context, pending *broker.Pending) error {
		fmt.Fprintf(os.Stderr, "\napproval needed %s: %s\n", color.RiskLabel(string(pending.RiskLevel)), pending.Summary)
		fmt.Fprintf(os.Stderr, "resolve with: toolgate resolve %s allow|deny\n\n", pending.ApprovalID)
		return nil
	})
	b := broker.NewBroker(
		broker.NewMailboxTransport(mailbox),
		approvalStore,
		presenter,
		broker.WithTimeout(env.GateEnv.ApprovalTimeout),
	)

	g := gate.New(policy.NewResolver(), engine, approvalStore, b, auditrepo.NewYAMLRepository(store),
		gate.WithWorkDir(absWorkDir),
		gate.WithAutoApproveLowRisk(env.GateEnv.AutoApproveLowRisk),
	)

	opts := &claudeagent.ClaudeAgentOptions{
		SystemPrompt:   *systemPrompt,
		Cwd:            absWorkDir,
		PermissionMode: claudeagent.PermissionModeDefault,
		CanUseTool: func(toolName string, input map[string]any, toolCtx claudeagent.ToolPermissionContext) (claudeagent.PermissionResult, error) {
			resp := g.Decide(ctx, &gate.Request{
				ToolName: toolName,
				Input:    input,
				User:     *user,
				Channel:  "agent",
			})
			if resp.Behavior == approval.BehaviorAllow {
				return claudeagent.PermissionResultAllow{}, nil
			}
			return claudeagent.PermissionResultDeny{Message: resp.Message}, nil
		},
		StderrCallback: func(line string) {
			slog.Debug("claude stderr", "line", line)
		},
	}

	result, err := claudeagent.RunQuerySync(ctx, *prompt, opts)
	if err != nil {
		return fmt.Errorf("agent query failed: %w", err)
	}
	if result.Result != nil {
		fmt.Println(result.Result.Result)
	}
	return nil
}
