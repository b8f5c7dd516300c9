package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const defaultPollInterval = 100 * time.Millisecond

// MailboxTransport exchanges decisions through one-shot files in a shared
// directory, one file per approval ID. It is the transport for
// deployments where the awaiting process and the resolving process do not
// share memory: the resolver writes the file, the awaiting side polls,
// reads and deletes it.
type MailboxTransport struct {
	dir          string
	pollInterval time.Duration
}

func NewMailboxTransport(dir string) *MailboxTransport {
	return &MailboxTransport{
		dir:          dir,
		pollInterval: defaultPollInterval,
	}
}

func (t *MailboxTransport) path(id string) string {
	return filepath.Join(t.dir, id+".json")
}

// Await polls the mailbox path every 100ms until a decision file appears
// or ctx is done. Transient read and parse errors are logged and polling
// continues; a failed delete is logged and the decision still honored.
func (t *MailboxTransport) Await(ctx context.Context, id string) (*Decision, error) {
	path := t.path(id)
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			data, err := os.ReadFile(path)
			if err != nil {
				if !os.IsNotExist(err) {
					slog.WarnContext(ctx, "failed to read mailbox file", "path", path, "error", err)
				}
				continue
			}

			var decision Decision
			if err := json.Unmarshal(data, &decision); err != nil {
				// Possibly a partially written file; next tick retries.
				slog.WarnContext(ctx, "failed to parse mailbox file", "path", path, "error", err)
				continue
			}

			if err := os.Remove(path); err != nil {
				slog.WarnContext(ctx, "failed to delete mailbox file", "path", path, "error", err)
			}
			return &decision, nil
		}
	}
}

// Resolve writes the decision file atomically so a concurrent poll never
// observes a partial write.
func (t *MailboxTransport) Resolve(ctx context.Context, id string, decision *Decision) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create mailbox directory: %w", err)
	}

	data, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	path := t.path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mailbox file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish mailbox file: %w", err)
	}
	return nil
}

// Cleanup removes a lingering mailbox file, if any.
func (t *MailboxTransport) Cleanup(id string) {
	if err := os.Remove(t.path(id)); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to clean up mailbox file", "id", id, "error", err)
	}
}
