package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolgate/toolgate/internal/broker"
	"github.com/toolgate/toolgate/internal/gate"
	"github.com/toolgate/toolgate/internal/pushsubscription"
	"github.com/toolgate/toolgate/pkg/cerr"
)

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

// handlePermissionCheck runs the full decision ladder. The call blocks
// while a human prompt is open, up to the broker timeout.
func (s *Server) handlePermissionCheck(w http.ResponseWriter, r *http.Request) {
	var req gate.Request
	if err := decodeJSON(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	if req.ToolName == "" {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "tool_name is required", nil)
		return
	}

	resp := s.gate.Decide(r.Context(), &req)
	cerr.SetJSONResponse(r.Context(), resp)
}

type pendingApprovalsResponse struct {
	Pending []*broker.Pending `json:"pending"`
}

func (s *Server) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), &pendingApprovalsResponse{Pending: s.broker.Pending()})
}

func (s *Server) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var decision broker.Decision
	if err := decodeJSON(r, &decision); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	if decision.Behavior == "" {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "behavior is required", nil)
		return
	}

	if err := s.broker.Resolve(r.Context(), id, &decision); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), map[string]string{"status": "resolved"})
}

type createPushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (s *Server) handleCreatePushSubscription(w http.ResponseWriter, r *http.Request) {
	var req createPushSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "endpoint and keys are required", nil)
		return
	}

	sub := pushsubscription.New(req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err := s.pushRepo.Upsert(r.Context(), sub); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), sub)
}

func (s *Server) handleDeletePushSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.pushRepo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), map[string]string{"status": "deleted"})
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	records, err := s.auditRepo.List(r.Context())
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), map[string]any{"records": records})
}
