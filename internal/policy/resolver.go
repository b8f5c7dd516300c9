package policy

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc/panics"
)

const (
	// PolicyDirName is the per-directory policy subdirectory.
	PolicyDirName = ".toolgate"
	// TeamFileName is the checked-in, shared policy file.
	TeamFileName = "settings.json"
	// PersonalFileName is the developer-local override, not shared.
	PersonalFileName = "settings.local.json"

	cacheTTL         = 5 * time.Minute
	loadTimeout      = 5 * time.Second
	maxTraverseDepth = 10
)

type cacheEntry struct {
	result    *Result
	timestamp time.Time
}

// Resolver discovers, validates, merges and caches local policy files.
// Results are cached per absolute start directory for five minutes; an
// optional fsnotify watcher invalidates the cache early when a
// contributing policy directory changes.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{
		cache: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

// LoadLocalPermissions resolves the local policy for dir. It returns nil
// when no policy files exist anywhere in the directory chain, and also on
// timeout or any load failure: callers must treat nil as "no local
// config", never as a denial.
func (r *Resolver) LoadLocalPermissions(ctx context.Context, dir string) *Result {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		slog.WarnContext(ctx, "failed to resolve policy directory", "dir", dir, "error", err)
		return nil
	}

	r.mu.Lock()
	if entry, ok := r.cache[absDir]; ok && r.now().Sub(entry.timestamp) < cacheTTL {
		r.mu.Unlock()
		return entry.result
	}
	r.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	resCh := make(chan *Result, 1)
	go func() {
		var (
			catcher panics.Catcher
			res     *Result
		)
		catcher.Try(func() {
			res = r.discover(loadCtx, absDir)
		})
		if recovered := catcher.Recovered(); recovered != nil {
			slog.WarnContext(ctx, "policy discovery panicked", "dir", absDir, "panic", recovered.Value)
			res = nil
		}
		resCh <- res
	}()

	select {
	case <-loadCtx.Done():
		// Timeouts and failures are never cached.
		slog.WarnContext(ctx, "policy discovery timed out", "dir", absDir)
		return nil
	case res := <-resCh:
		if res == nil {
			return nil
		}
		r.mu.Lock()
		r.cache[absDir] = cacheEntry{result: res, timestamp: r.now()}
		r.mu.Unlock()
		return res
	}
}

// ClearCache drops every cached resolution.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]cacheEntry)
	r.mu.Unlock()
}

// discover walks upward from absDir through at most ten parent
// directories, merging every policy file it finds. Later (ancestor) files
// are merged as the override, so more general directories win over more
// specific ones. That ordering is deliberate and pinned by tests; child
// directories opt out of an ancestor rule by not placing one, not by
// shadowing it.
func (r *Resolver) discover(ctx context.Context, absDir string) *Result {
	var (
		acc         *Config
		loadedFrom  []string
		sawTeam     bool
		sawPersonal bool
	)

	dir := absDir
	for i := 0; i < maxTraverseDepth; i++ {
		if ctx.Err() != nil {
			return nil
		}

		policyDir := filepath.Join(dir, PolicyDirName)
		if info, err := os.Stat(policyDir); err == nil && info.IsDir() {
			teamPath := filepath.Join(policyDir, TeamFileName)
			if cfg := r.loadConfigFile(ctx, teamPath, acc); cfg != nil {
				acc = Merge(acc, cfg)
				loadedFrom = append(loadedFrom, teamPath)
				sawTeam = true
			}
			personalPath := filepath.Join(policyDir, PersonalFileName)
			if cfg := r.loadConfigFile(ctx, personalPath, acc); cfg != nil {
				acc = Merge(acc, cfg)
				loadedFrom = append(loadedFrom, personalPath)
				sawPersonal = true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if acc == nil {
		return nil
	}

	source := SourceMerged
	switch {
	case sawTeam && !sawPersonal:
		source = SourceTeam
	case sawPersonal && !sawTeam:
		source = SourcePersonal
	}

	return &Result{
		Config:     acc,
		Source:     source,
		LoadedFrom: loadedFrom,
	}
}

// loadConfigFile loads and validates a single policy file. Every failure
// is logged and yields nil; a broken file never takes down resolution.
// The accumulated config so far supplies the effective file size cap.
func (r *Resolver) loadConfigFile(ctx context.Context, path string, acc *Config) *Config {
	if !validPolicyPath(path) {
		slog.WarnContext(ctx, "rejecting policy file with invalid path", "path", path)
		return nil
	}

	maxSize := int64(DefaultMaxConfigFileSize)
	if acc != nil && acc.Security.MaxConfigFileSize > 0 {
		maxSize = acc.Security.MaxConfigFileSize
	}

	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.DebugContext(ctx, "failed to stat policy file", "path", path, "error", err)
		}
		return nil
	}
	if info.Size() > maxSize {
		slog.WarnContext(ctx, "rejecting oversized policy file", "path", path, "size", info.Size(), "max", maxSize)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.WarnContext(ctx, "failed to read policy file", "path", path, "error", err)
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.WarnContext(ctx, "failed to parse policy file", "path", path, "error", err)
		return nil
	}

	return Validate(raw)
}

// validPolicyPath accepts only .../<PolicyDirName>/settings[.local].json
// and rejects traversal or home expansion characters outright.
func validPolicyPath(path string) bool {
	if strings.Contains(path, "..") || strings.Contains(path, "~") {
		return false
	}
	base := filepath.Base(path)
	if base != TeamFileName && base != PersonalFileName {
		return false
	}
	return filepath.Base(filepath.Dir(path)) == PolicyDirName
}

// Watch invalidates the cache whenever a policy file anywhere under a
// cached chain changes. It blocks until ctx is cancelled. Complementary to
// the TTL: the TTL bounds staleness without a watcher, the watcher cuts
// it short when it can.
func (r *Resolver) Watch(ctx context.Context, dirs ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range dirs {
		policyDir := filepath.Join(dir, PolicyDirName)
		if info, err := os.Stat(policyDir); err == nil && info.IsDir() {
			if err := watcher.Add(policyDir); err != nil {
				slog.Warn("failed to watch policy directory", "dir", policyDir, "error", err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(event.Name)
			if base != TeamFileName && base != PersonalFileName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("policy file changed, clearing config cache", "path", event.Name, "op", event.Op.String())
			r.ClearCache()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("policy watcher error", "error", err)
		}
	}
}
