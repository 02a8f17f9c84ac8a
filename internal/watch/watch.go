// Package watch reports documents changed on disk by other programs.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/store"
)

const (
	maxTick = 100 * time.Millisecond
	// minQuiet is the shortest window after an in-process write during
	// which events for that document are treated as its echo.
	minQuiet = 500 * time.Millisecond
)

// Stats counts watcher activity.
type Stats struct {
	Created    int
	Modified   int
	Removed    int
	Flushed    int
	Errors     int
	Suppressed int
	LastPath   string
}

// Watcher watches every folder of a vault and calls notify with the vault
// path of each markdown document once its events have been quiet for the
// debounce window.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	vault    *store.Vault
	notify   func(path string)
	log      *zap.Logger
	debounce time.Duration
	quiet    time.Duration
	pending  map[string]time.Time
	own      map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

func New(vault *store.Vault, debounce time.Duration, notify func(path string), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		fsw:      fsw,
		vault:    vault,
		notify:   notify,
		log:      logger.Named("watch"),
		debounce: debounce,
		quiet:    max(debounce, minQuiet),
		pending:  map[string]time.Time{},
		own:      map[string]time.Time{},
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start adds the vault root and all its folders and begins delivering
// events in the background. Calling it twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fsw.Add(w.vault.Root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	folders, err := w.vault.Folders()
	if err != nil {
		w.log.Warn("list folders", zap.Error(err))
	}
	for _, f := range folders {
		w.addFolder(f)
	}
	w.log.Debug("watching", zap.String("root", w.vault.Root), zap.Int("folders", len(folders)))

	go w.run(ctx)
	return nil
}

// Stop ends delivery and waits for the background goroutine. Pending
// events that have not settled are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.fsw.Close()
}

// Written marks path as just written by this process, so the events its
// own write causes are not delivered back. Register it with the vault's
// OnChange hook.
func (w *Watcher) Written(path string) {
	w.written(path, time.Now())
}

func (w *Watcher) written(path string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.own[path] = now
	if _, ok := w.pending[path]; ok {
		delete(w.pending, path)
		w.stats.Suppressed++
	}
}

func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Watched lists the watched directories as vault paths, root as "".
func (w *Watcher) Watched() []string {
	var out []string
	for _, abs := range w.fsw.WatchList() {
		if abs == w.vault.Root {
			out = append(out, "")
			continue
		}
		if rel, ok := w.vault.Rel(abs); ok {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) addFolder(rel string) {
	abs, err := w.vault.Abs(rel)
	if err != nil {
		return
	}
	if err := w.fsw.Add(abs); err != nil {
		w.log.Warn("watch folder", zap.String("folder", rel), zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	if tick <= 0 || tick > maxTick {
		tick = maxTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev, time.Now())
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// handle records ev for later delivery. New folders are watched as they
// appear so documents created inside them are seen too.
func (w *Watcher) handle(ev fsnotify.Event, now time.Time) {
	rel, ok := w.vault.Rel(ev.Name)
	if !ok || hidden(rel) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addFolder(rel)
			return
		}
	}
	if !strings.EqualFold(filepath.Ext(rel), ".md") {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
		if at, ok := w.own[rel]; ok && now.Sub(at) < w.quiet {
			w.stats.Suppressed++
			return
		}
	}
	switch {
	case ev.Has(fsnotify.Create):
		w.stats.Created++
	case ev.Has(fsnotify.Write):
		w.stats.Modified++
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.stats.Removed++
	default:
		return
	}
	w.stats.LastPath = rel
	w.pending[rel] = now
}

// flush delivers every path whose last event is at least one debounce
// window older than now, in path order.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for p, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, p)
			delete(w.pending, p)
		}
	}
	for p, at := range w.own {
		if now.Sub(at) >= w.quiet {
			delete(w.own, p)
		}
	}
	w.stats.Flushed += len(ready)
	w.mu.Unlock()

	sort.Strings(ready)
	for _, p := range ready {
		w.notify(p)
	}
}

func hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
