package riskmap

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/riskmap/cli/internal/config"
	"github.com/riskmap/cli/internal/sentry"
)

type workspaceState struct {
	ws     Workspace
	loaded bool
	entry  *ConfigEntry
	gen    uint64 // bumped by Reload/Invalidate; stale load cycles see it moved
}

// Resolver locates the single applicable ConfigEntry for a file path.
// Candidate selection runs in a fixed priority order: cache hit, risk
// scope match, nearest ancestor marker, workspace root entry. Exactly
// one entry or none is returned per call, never a merge.
//
// The shared cache and the loaded entry set are the only mutable state;
// both are guarded so no reader observes a torn entry or a cache write
// interleaved with a clear.
type Resolver struct {
	fs     afero.Fs
	loader *Loader
	cache  *Cache[*ConfigEntry]
	group  singleflight.Group

	mu         sync.Mutex
	gen        uint64            // bumped whenever the cache is about to be cleared
	workspaces []*workspaceState // registration order
	entries    []*workspaceState // load order, successfully loaded only
	ancestors  map[string]*ConfigEntry
}

// NewResolver wires a resolver with the production source chain.
func NewResolver(cfg *config.Config, fs afero.Fs) *Resolver {
	return NewResolverWithLoader(cfg, fs, NewLoader(cfg, fs))
}

// NewResolverWithLoader accepts an explicit loader, for tests that need
// call-count assertions or canned sources.
func NewResolverWithLoader(cfg *config.Config, fs afero.Fs, loader *Loader) *Resolver {
	return &Resolver{
		fs:        fs,
		loader:    loader,
		cache:     NewCache[*ConfigEntry](cfg.CacheTTL),
		ancestors: make(map[string]*ConfigEntry),
	}
}

// AddWorkspace registers a workspace root. Registration is idempotent;
// the entry is not loaded until the first resolution touches it.
func (r *Resolver) AddWorkspace(root string) (Workspace, error) {
	abs, err := normalizePath(root)
	if err != nil {
		return Workspace{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.workspaces {
		if st.ws.ID == abs {
			return st.ws, nil
		}
	}
	ws := Workspace{ID: abs, Root: abs}
	r.workspaces = append(r.workspaces, &workspaceState{ws: ws})
	return ws, nil
}

// Workspaces lists registered roots in registration order.
func (r *Resolver) Workspaces() []Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Workspace, 0, len(r.workspaces))
	for _, st := range r.workspaces {
		out = append(out, st.ws)
	}
	return out
}

// Resolve returns the applicable ConfigEntry for filePath, or nil when
// no context applies. A nil result is itself cached; callers must treat
// it as a normal outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, filePath string) (*ConfigEntry, error) {
	span, ctx := sentry.StartSpan(ctx, "riskmap.resolve")
	if span != nil {
		defer span.Finish()
	}

	abs, err := normalizePath(filePath)
	if err != nil {
		return nil, err
	}

	if entry, ok := r.cache.Get(abs); ok {
		return entry, nil
	}

	st, gen := r.workspaceFor(abs)
	if st == nil {
		r.storeResult(abs, nil, gen)
		return nil, nil
	}

	r.ensureLoaded(ctx, st)
	entry := r.lookup(abs, st)
	r.storeResult(abs, entry, gen)
	return entry, nil
}

// storeResult caches a resolution computed under generation gen. If a
// reload or invalidation cleared the cache in the meantime, the result
// was derived from a superseded entry set and must not repopulate the
// fresh cache.
func (r *Resolver) storeResult(key string, entry *ConfigEntry, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == gen {
		r.cache.Set(key, entry)
	}
}

// Invalidate drops every cached result and forces fresh source loads on
// the next resolution for each workspace.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	for _, st := range r.workspaces {
		st.loaded = false
		st.entry = nil
		st.gen++
	}
	r.entries = nil
	r.ancestors = make(map[string]*ConfigEntry)
	r.gen++
	r.mu.Unlock()
	r.cache.Clear()
}

// Reload re-runs the source chain for one workspace, replacing its
// ConfigEntry wholesale, then clears the entire shared cache. The clear
// is the whole cache, not the workspace's slice of it: any cached result
// may have depended on the replaced entry's priority position relative
// to others.
func (r *Resolver) Reload(ctx context.Context, root string) (*ConfigEntry, error) {
	abs, err := normalizePath(root)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	var st *workspaceState
	for _, candidate := range r.workspaces {
		if candidate.ws.ID == abs {
			st = candidate
			break
		}
	}
	if st == nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("workspace %s is not registered", root)
	}
	gen := st.gen
	r.mu.Unlock()

	entry := r.loader.Load(ctx, st.ws)

	r.mu.Lock()
	if st.gen != gen {
		// Another reload or an invalidation superseded this cycle while
		// the sources ran; its replacement stands, ours is discarded.
		current := st.entry
		r.mu.Unlock()
		return current, nil
	}
	wasListed := st.entry != nil
	st.entry = entry
	st.loaded = true
	st.gen++
	switch {
	case entry != nil && !wasListed:
		r.entries = append(r.entries, st)
	case entry == nil && wasListed:
		for i, listed := range r.entries {
			if listed == st {
				r.entries = append(r.entries[:i], r.entries[i+1:]...)
				break
			}
		}
	}
	r.ancestors = make(map[string]*ConfigEntry)
	r.gen++
	r.mu.Unlock()

	// Cleared only after the replacement is in place, so concurrent
	// resolves observe either the old cached results or the new entry
	// set, never a mix of fresh cache and stale entries.
	r.cache.Clear()
	return entry, nil
}

// workspaceFor picks the registered workspace owning abs: the longest
// root that is a path prefix. The returned generation snapshot gates
// the eventual cache write-back.
func (r *Resolver) workspaceFor(abs string) (*workspaceState, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *workspaceState
	for _, st := range r.workspaces {
		root := st.ws.Root
		if abs != root && !strings.HasPrefix(abs, root+"/") {
			continue
		}
		if best == nil || len(root) > len(best.ws.Root) {
			best = st
		}
	}
	return best, r.gen
}

// ensureLoaded runs the source chain at most once per workspace per
// cycle. Concurrent first resolutions for the same workspace are
// deduplicated so the (possibly slow) sources see a single call.
func (r *Resolver) ensureLoaded(ctx context.Context, st *workspaceState) {
	r.mu.Lock()
	loaded, gen := st.loaded, st.gen
	r.mu.Unlock()
	if loaded {
		return
	}

	r.group.Do(st.ws.ID, func() (interface{}, error) {
		r.mu.Lock()
		if st.loaded || st.gen != gen {
			r.mu.Unlock()
			return nil, nil
		}
		r.mu.Unlock()

		entry := r.loader.Load(ctx, st.ws)

		r.mu.Lock()
		defer r.mu.Unlock()
		if st.loaded || st.gen != gen {
			// A reload landed while the sources ran. Its entry is newer;
			// writing ours back would resurrect pre-reload data and
			// duplicate the workspace in the entry list.
			return nil, nil
		}
		st.entry = entry
		st.loaded = true
		if entry != nil {
			r.entries = append(r.entries, st)
		}
		return nil, nil
	})
}

// lookup evaluates the priority chain for abs. Pure given the loaded
// entry set and the marker files on disk.
func (r *Resolver) lookup(abs string, st *workspaceState) *ConfigEntry {
	rel := relativePath(abs, st.ws.Root)

	r.mu.Lock()
	loaded := make([]*workspaceState, len(r.entries))
	copy(loaded, r.entries)
	wsEntry := st.entry
	r.mu.Unlock()

	// Risk scope match, load order. The first entry with any matching
	// scope pattern wins; ties break by load order, never by pattern
	// specificity.
	for _, candidate := range loaded {
		for _, risk := range candidate.entry.Risks {
			for _, scope := range risk.Scope {
				if CompilePattern(scope).Match(rel) {
					return candidate.entry
				}
			}
		}
	}

	// Nearest ancestor directory holding a marker file, walking from the
	// containing directory toward the workspace root. The root itself is
	// covered by the fallback below.
	dir := path.Dir(abs)
	for dir != st.ws.Root && strings.HasPrefix(dir, st.ws.Root+"/") {
		if entry := r.ancestorEntry(dir); entry != nil {
			return entry
		}
		parent := path.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return wsEntry
}

// ancestorEntry parses the marker at dir, if any, memoizing the result
// until the next reload or invalidation. A malformed marker is treated
// as absent.
func (r *Resolver) ancestorEntry(dir string) *ConfigEntry {
	r.mu.Lock()
	entry, checked := r.ancestors[dir]
	r.mu.Unlock()
	if checked {
		return entry
	}

	entry = nil
	if markerPath, ok := FindMarker(r.fs, dir); ok {
		data, err := afero.ReadFile(r.fs, markerPath)
		if err == nil {
			parsed, perr := ParseMarker(data, markerPath)
			if perr != nil {
				sentry.AddBreadcrumb("resolver", "malformed ancestor marker", map[string]interface{}{
					"path":  markerPath,
					"error": perr.Error(),
				})
			} else {
				entry = parsed
			}
		}
	}

	r.mu.Lock()
	r.ancestors[dir] = entry
	r.mu.Unlock()
	return entry
}

func normalizePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", p, err)
	}
	return filepath.ToSlash(abs), nil
}

func relativePath(abs, root string) string {
	if abs == root {
		return ""
	}
	return strings.TrimPrefix(abs, root+"/")
}
