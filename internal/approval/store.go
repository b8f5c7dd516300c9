package approval

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/toolgate/toolgate/internal/scope"
	"github.com/toolgate/toolgate/pkg/cerr"
	"github.com/toolgate/toolgate/pkg/storage"
)

const approvalsFileName = "approvals.json"

// Store is the durable approval map, hydrated wholesale at construction
// and overwritten wholesale on every write. The file is shared mutable
// state across processes; concurrent writers race and the last write
// wins, an accepted limitation for the single-writer deployments this
// targets.
type Store struct {
	mu        sync.Mutex
	storage   storage.Storage
	engine    *scope.Engine
	approvals map[string]StoredApproval
	now       func() time.Time
}

// NewStore hydrates the store from durable storage. A missing or corrupt
// approvals file starts the store empty rather than failing.
func NewStore(ctx context.Context, st storage.Storage, engine *scope.Engine) *Store {
	s := &Store{
		storage:   st,
		engine:    engine,
		approvals: make(map[string]StoredApproval),
		now:       time.Now,
	}

	data, err := st.Read(ctx, approvalsFileName)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "failed to read approvals file, starting empty", "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.approvals); err != nil {
		slog.WarnContext(ctx, "corrupt approvals file, starting empty", "error", err)
		s.approvals = make(map[string]StoredApproval)
	}
	return s
}

// Lookup walks the scope hierarchy broadest first and returns the first
// non-expired remembered decision for this identity. Expired entries are
// evicted and the eviction persisted before moving on.
func (s *Store) Lookup(ctx context.Context, toolName, user, channel string, input map[string]any, requested scope.Scope) (*StoredApproval, bool) {
	base := scope.BaseTool(toolName)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := false
	var found *StoredApproval
	for _, candidate := range scope.Hierarchy(requested) {
		key := storeKey(base, user, channel, s.engine.Key(toolName, candidate, input))
		stored, ok := s.approvals[key]
		if !ok {
			continue
		}
		if s.now().Sub(stored.Timestamp) > MaxAge(stored.Scope, stored.RiskLevel) {
			delete(s.approvals, key)
			evicted = true
			continue
		}
		found = &stored
		break
	}

	if evicted {
		if err := s.persistLocked(ctx); err != nil {
			slog.WarnContext(ctx, "failed to persist approval eviction", "error", err)
		}
	}
	return found, found != nil
}

// Record stores a human decision at the exact requested scope, never a
// broader or narrower one, and synchronously overwrites the durable file.
func (s *Store) Record(ctx context.Context, toolName, user, channel string, input map[string]any, requested scope.Scope, behavior Behavior, risk scope.Risk) (*StoredApproval, error) {
	if !requested.Valid() {
		requested = scope.ScopeCommand
	}
	scopeKey := s.engine.Key(toolName, requested, input)
	stored := StoredApproval{
		ToolName:  scope.BaseTool(toolName),
		User:      user,
		Channel:   channel,
		Behavior:  behavior,
		Timestamp: s.now(),
		ScopeKey:  scopeKey,
		Scope:     requested,
		RiskLevel: risk,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.approvals[storeKey(stored.ToolName, user, channel, scopeKey)] = stored
	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}
	return &stored, nil
}

// List returns every remembered decision, for the CLI and the server.
func (s *Store) List(ctx context.Context) []StoredApproval {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StoredApproval, 0, len(s.approvals))
	for _, stored := range s.approvals {
		out = append(out, stored)
	}
	return out
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.MarshalIndent(s.approvals, "", "  ")
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", err)
	}
	if err := s.storage.Write(ctx, approvalsFileName, data); err != nil {
		return cerr.WrapStorageWriteError("approvals", err)
	}
	return nil
}
