// Package server is the long-lived HTTP surface: agents post permission
// checks, humans resolve prompts, browsers register for push
// notifications, operators read the audit trail.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/toolgate/toolgate/internal/audit"
	"github.com/toolgate/toolgate/internal/broker"
	"github.com/toolgate/toolgate/internal/config"
	"github.com/toolgate/toolgate/internal/eventbus"
	"github.com/toolgate/toolgate/internal/gate"
	"github.com/toolgate/toolgate/internal/pushsubscription"
	"github.com/toolgate/toolgate/pkg/cerr"
	"github.com/toolgate/toolgate/pkg/clog"
)

type Server struct {
	server    *http.Server
	env       *config.Env
	gate      *gate.Gate
	broker    *broker.Broker
	auditRepo audit.Repository
	pushRepo  pushsubscription.Repository
}

func NewServer(env *config.Env, g *gate.Gate, b *broker.Broker, auditRepo audit.Repository, pushRepo pushsubscription.Repository) *Server {
	return &Server{
		env:       env,
		gate:      g,
		broker:    b,
		auditRepo: auditRepo,
		pushRepo:  pushRepo,
	}
}

// ListenAndServe starts the HTTP server. ctx is the base context of every
// request, so cancelling it on shutdown also cancels in-flight waits for
// human decisions.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := s.routes()

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(mux), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.Post("/permissions/check", s.handlePermissionCheck)
		r.Get("/approvals/pending", s.handlePendingApprovals)
		r.Post("/approvals/{id}/resolve", s.handleResolveApproval)
		r.Post("/push-subscriptions", s.handleCreatePushSubscription)
		r.Delete("/push-subscriptions/{id}", s.handleDeletePushSubscription)
		r.Get("/audit", s.handleListAudit)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	return mux
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// NewBusPresenter returns a broker presenter that announces prompts on
// the event bus, where the push dispatcher and any connected UI pick
// them up.
func NewBusPresenter(bus *eventbus.Bus) broker.Presenter {
	return broker.PresenterFunc(func(ctx context.Context, pending *broker.Pending) error {
		return bus.Publish(ctx, eventbus.PromptCreated, eventbus.PromptCreatedData{
			ApprovalID: pending.ApprovalID,
			ToolName:   pending.ToolName,
			User:       pending.User,
			Channel:    pending.Channel,
			Summary:    pending.Summary,
			RiskLevel:  string(pending.RiskLevel),
		})
	})
}
