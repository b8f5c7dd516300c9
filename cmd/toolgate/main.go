package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/toolgate/toolgate/internal/approval"
	auditrepo "github.com/toolgate/toolgate/internal/audit/repositoryimpl"
	"github.com/toolgate/toolgate/internal/broker"
	"github.com/toolgate/toolgate/internal/config"
	"github.com/toolgate/toolgate/internal/eventbus"
	"github.com/toolgate/toolgate/internal/gate"
	"github.com/toolgate/toolgate/internal/policy"
	"github.com/toolgate/toolgate/internal/pushnotification"
	pushsubrepo "github.com/toolgate/toolgate/internal/pushsubscription/repositoryimpl"
	"github.com/toolgate/toolgate/internal/scope"
	"github.com/toolgate/toolgate/internal/server"
	"github.com/toolgate/toolgate/pkg/clog"
	"github.com/toolgate/toolgate/pkg/color"
	"github.com/toolgate/toolgate/pkg/storage"
)

var (
	app = kingpin.New("toolgate", "Permission gate for agent tool use")

	serveCmd = app.Command("serve", "Run the long-lived gate server")

	checkCmd     = app.Command("check", "Evaluate one permission request")
	checkTool    = checkCmd.Flag("tool", "Tool name").Required().String()
	checkCommand = checkCmd.Flag("command", "Shell command input").String()
	checkInput   = checkCmd.Flag("input", "Raw JSON tool input").String()
	checkUser    = checkCmd.Flag("user", "Requesting user").Default("local").String()
	checkChannel = checkCmd.Flag("channel", "Channel the request belongs to").Default("cli").String()

	resolveCmd      = app.Command("resolve", "Resolve a pending approval by ID")
	resolveID       = resolveCmd.Arg("id", "Approval ID").Required().String()
	resolveBehavior = resolveCmd.Arg("behavior", "allow or deny").Required().Enum("allow", "deny")
	resolveMessage  = resolveCmd.Flag("message", "Message for the requester").String()

	approvalsCmd     = app.Command("approvals", "Remembered approval commands")
	approvalsListCmd = approvalsCmd.Command("list", "List remembered approvals")

	auditCmd     = app.Command("audit", "Audit trail commands")
	auditListCmd = auditCmd.Command("list", "List audit records")

	configCmd     = app.Command("config", "Local policy commands")
	configShowCmd = configCmd.Command("show", "Show the effective merged policy")
	configShowDir = configShowCmd.Flag("dir", "Directory to resolve from").Default(".").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading environment: %v\n", err)
		os.Exit(1)
	}
	setupLogger(env)

	var runErr error
	switch command {
	case serveCmd.FullCommand():
		runErr = runServe(env)
	case checkCmd.FullCommand():
		runErr = runCheck(env)
	case resolveCmd.FullCommand():
		runErr = runResolve(env)
	case approvalsListCmd.FullCommand():
		runErr = runApprovalsList(env)
	case auditListCmd.FullCommand():
		runErr = runAuditList(env)
	case configShowCmd.FullCommand():
		runErr = runConfigShow()
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func setupLogger(env *config.Env) {
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func buildStorage(env *config.Env) (storage.Storage, error) {
	switch env.StorageEnv.Type {
	case "s3":
		return storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
	default:
		return storage.NewLocalStorage(env.StorageEnv.BaseDir)
	}
}

func mailboxDir(env *config.Env) string {
	if env.GateEnv.MailboxDir != "" {
		return env.GateEnv.MailboxDir
	}
	return filepath.Join(env.StorageEnv.BaseDir, "mailbox")
}

func runServe(env *config.Env) error {
	store, err := buildStorage(env)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	bus, err := eventbus.NewBus()
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}

	engine := scope.NewEngine()
	approvalStore := approval.NewStore(context.Background(), store, engine)
	auditRepo := auditrepo.NewYAMLRepository(store)
	pushRepo := pushsubrepo.NewYAMLRepository(store)

	sender := pushnotification.NewSender(config.VAPIDEnvFromEnv(env), pushRepo)
	pushnotification.NewDispatcher(sender).Register(bus)

	b := broker.NewBroker(
		broker.NewMailboxTransport(mailboxDir(env)),
		approvalStore,
		server.NewBusPresenter(bus),
		broker.WithTimeout(env.GateEnv.ApprovalTimeout),
	)

	resolver := policy.NewResolver()
	g := gate.New(resolver, engine, approvalStore, b, auditRepo,
		gate.WithWorkDir(env.GateEnv.WorkDir),
		gate.WithAutoApproveLowRisk(env.GateEnv.AutoApproveLowRisk),
		gate.WithEventBus(bus),
	)

	srv := server.NewServer(env, g, b, auditRepo, pushRepo)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := bus.Start(ctx); err != nil {
			slog.Error("event bus stopped", "error", err)
		}
	}()
	if env.GateEnv.WorkDir != "" {
		go func() {
			if err := resolver.Watch(ctx, env.GateEnv.WorkDir); err != nil {
				slog.Error("policy watcher stopped", "error", err)
			}
		}()
	}
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return bus.Stop()
}

// runCheck is the short-lived gate mode: one process, one decision. The
// prompt is announced on stderr and resolved out of process via
// `toolgate resolve` writing the mailbox.
func runCheck(env *config.Env) error {
	store, err := buildStorage(env)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	input := map[string]any{}
	if *checkInput != "" {
		if err := json.Unmarshal([]byte(*checkInput), &input); err != nil {
			return fmt.Errorf("invalid --input JSON: %w", err)
		}
	}
	if *checkCommand != "" {
		input["command"] = *checkCommand
	}

	engine := scope.NewEngine()
	approvalStore := approval.NewStore(context.Background(), store, engine)
	auditRepo := auditrepo.NewYAMLRepository(store)

	presenter := broker.PresenterFunc(func(ctx context.Context, pending *broker.Pending) error {
		fmt.Fprintf(os.Stderr, "approval needed %s: %s\n", color.RiskLabel(string(pending.RiskLevel)), pending.Summary)
		fmt.Fprintf(os.Stderr, "resolve with: toolgate resolve %s allow|deny\n", pending.ApprovalID)
		return nil
	})
	b := broker.NewBroker(
		broker.NewMailboxTransport(mailboxDir(env)),
		approvalStore,
		presenter,
		broker.WithTimeout(env.GateEnv.ApprovalTimeout),
	)

	workDir := env.GateEnv.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	g := gate.New(policy.NewResolver(), engine, approvalStore, b, auditRepo,
		gate.WithWorkDir(workDir),
		gate.WithAutoApproveLowRisk(env.GateEnv.AutoApproveLowRisk),
	)

	resp := g.Decide(context.Background(), &gate.Request{
		ToolName: *checkTool,
		Input:    input,
		User:     *checkUser,
		Channel:  *checkChannel,
	})

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if resp.Behavior == approval.BehaviorDeny {
		os.Exit(1)
	}
	return nil
}

// runResolve writes the decision into the mailbox of a gate waiting in
// another process.
func runResolve(env *config.Env) error {
	transport := broker.NewMailboxTransport(mailboxDir(env))
	decision := &broker.Decision{
		Behavior: approval.Behavior(*resolveBehavior),
		Message:  *resolveMessage,
	}
	if err := transport.Resolve(context.Background(), *resolveID, decision); err != nil {
		return err
	}
	fmt.Printf("resolved %s: %s\n", *resolveID, *resolveBehavior)
	return nil
}

func runApprovalsList(env *config.Env) error {
	store, err := buildStorage(env)
	if err != nil {
		return err
	}
	approvalStore := approval.NewStore(context.Background(), store, scope.NewEngine())
	out, err := json.MarshalIndent(approvalStore.List(context.Background()), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runAuditList(env *config.Env) error {
	store, err := buildStorage(env)
	if err != nil {
		return err
	}
	records, err := auditrepo.NewYAMLRepository(store).List(context.Background())
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runConfigShow() error {
	result := policy.NewResolver().LoadLocalPermissions(context.Background(), *configShowDir)
	if result == nil {
		fmt.Println("no local policy found")
		return nil
	}
	out, err := json.MarshalIndent(map[string]any{
		"source":     result.Source,
		"loadedFrom": result.LoadedFrom,
		"config":     result.Config,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
