package riskmap

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/riskmap/cli/internal/sentry"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher observes marker-file create/change/delete events under every
// registered workspace root and drives coalesced reloads. Events for one
// workspace are debounced into a single reload, and at most one reload
// is in flight per workspace at a time; while one runs, concurrent
// resolves may still serve pre-reload cached results, which is the
// intended eventual consistency.
type Watcher struct {
	resolver *Resolver
	fsw      *fsnotify.Watcher
	debounce time.Duration
	limiter  *rate.Limiter

	// OnReload, when set, observes every completed reload. Used by the
	// watch command and by tests.
	OnReload func(root string, entry *ConfigEntry)

	mu       sync.Mutex
	pending  map[string]*time.Timer
	inflight map[string]*sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher builds a watcher over the resolver's registered workspaces.
// Start must be called before events flow.
func NewWatcher(resolver *Resolver) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		resolver: resolver,
		fsw:      fsw,
		debounce: defaultDebounce,
		// Marker saves arrive in editor-driven bursts; one reload per
		// second per process is plenty once debouncing has collapsed a
		// burst, and it keeps a pathological save loop from hammering
		// the sources.
		limiter:  rate.NewLimiter(rate.Every(time.Second), 2),
		pending:  make(map[string]*time.Timer),
		inflight: make(map[string]*sync.Mutex),
		done:     make(chan struct{}),
	}, nil
}

// Start registers recursive watches for each workspace root and begins
// processing events.
func (w *Watcher) Start() error {
	for _, ws := range w.resolver.Workspaces() {
		if err := w.watchTree(filepath.FromSlash(ws.Root)); err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Close stops event processing and releases the underlying watches.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	w.mu.Unlock()
	return err
}

func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if d.IsDir() {
			if err := w.fsw.Add(p); err != nil {
				sentry.AddBreadcrumb("watcher", "failed to watch directory", map[string]interface{}{
					"path":  p,
					"error": err.Error(),
				})
			}
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			sentry.AddBreadcrumb("watcher", "fsnotify error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories join the watch so markers created inside them are
	// seen later.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
			return
		}
	}

	if !isMarkerName(filepath.Base(event.Name)) {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	abs, err := normalizePath(event.Name)
	if err != nil {
		return
	}
	root, ok := w.owningRoot(abs)
	if !ok {
		return
	}
	w.schedule(root)
}

func (w *Watcher) owningRoot(abs string) (string, bool) {
	var best string
	for _, ws := range w.resolver.Workspaces() {
		if abs == ws.Root || len(abs) > len(ws.Root) && abs[:len(ws.Root)] == ws.Root && abs[len(ws.Root)] == '/' {
			if len(ws.Root) > len(best) {
				best = ws.Root
			}
		}
	}
	return best, best != ""
}

// schedule coalesces bursts of events for one workspace into a single
// reload after a quiet period.
func (w *Watcher) schedule(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[root]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[root] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, root)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}
		w.reload(root)
	})
}

func (w *Watcher) reload(root string) {
	if err := w.limiter.Wait(context.Background()); err != nil {
		return
	}

	w.mu.Lock()
	gate, ok := w.inflight[root]
	if !ok {
		gate = &sync.Mutex{}
		w.inflight[root] = gate
	}
	w.mu.Unlock()

	// Serializes reloads per workspace so two never race on the same
	// ConfigEntry slot.
	gate.Lock()
	defer gate.Unlock()

	var entry *ConfigEntry
	err := sentry.WithTransaction(context.Background(), "riskmap.reload", func(ctx context.Context) error {
		var rerr error
		entry, rerr = w.resolver.Reload(ctx, root)
		return rerr
	})
	if err != nil {
		sentry.AddBreadcrumb("watcher", "reload failed", map[string]interface{}{
			"workspace": root,
			"error":     err.Error(),
		})
		return
	}
	if w.OnReload != nil {
		w.OnReload(root, entry)
	}
}

func isMarkerName(name string) bool {
	for _, marker := range MarkerFilenames {
		if name == marker {
			return true
		}
	}
	return false
}
