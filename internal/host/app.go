// Package host is a small document-editing host: a vault of markdown
// documents, panes that show them through pluggable views, a command
// registry and menus. Every extension point is an explicit middleware chain.
// All state is owned by a single cooperative loop.
package host

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/metacache"
	"github.com/amirbrooks/boardmode/internal/store"
)

// Plugin is installed into a running App on the loop.
type Plugin interface {
	Load(app *App) error
	Unload()
}

type App struct {
	Vault     *store.Vault
	Metadata  *metacache.Cache
	Views     *Views
	Workspace *Workspace
	Commands  *Commands
	Notices   *Notices
	Loop      *Loop
	Log       *zap.Logger

	listeners map[int]func(path string)
	nextID    int
	plugins   []Plugin
}

func New(vault *store.Vault, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	views := NewViews()
	a := &App{
		Vault:     vault,
		Metadata:  metacache.New(vault, logger),
		Views:     views,
		Workspace: NewWorkspace(vault, views, logger),
		Commands:  NewCommands(logger),
		Notices:   NewNotices(logger),
		Loop:      NewLoop(),
		Log:       logger.Named("host"),
		listeners: map[int]func(string){},
	}
	views.Register(TypeMarkdown, func(*Pane) View { return NewMarkdownView(vault) })
	views.Register(TypeEmpty, func(*Pane) View { return EmptyView{} })
	a.Commands.addBuiltin(Command{
		ID:   CommandSearch,
		Name: "Search current file",
		Enabled: func() bool {
			_, ok := a.Workspace.ActiveView().(*MarkdownView)
			return ok
		},
		Run: func() error {
			if mv, ok := a.Workspace.ActiveView().(*MarkdownView); ok {
				mv.ToggleSearch()
			}
			return nil
		},
	})
	vault.OnChange(func(path string) {
		a.Loop.Post(func() { a.recompute(path) })
	})
	return a
}

// Run subscribes to metadata changes and runs the loop until ctx is done.
func (a *App) Run(ctx context.Context) error {
	err := a.Metadata.Subscribe(ctx, func(ch metacache.Change) {
		a.Loop.Post(func() { a.metadataChanged(ch) })
	})
	if err != nil {
		return err
	}
	return a.Loop.Run(ctx)
}

func (a *App) Close() error {
	return a.Metadata.Close()
}

// IndexVault computes annotations for every document in the vault.
func (a *App) IndexVault() error {
	docs, err := a.Vault.List()
	if err != nil {
		return err
	}
	return a.Metadata.IndexAll(docs)
}

// ExternalChange schedules a recompute for a document changed outside the
// app. Safe from any goroutine.
func (a *App) ExternalChange(path string) {
	a.Loop.Post(func() { a.recompute(path) })
}

func (a *App) recompute(path string) {
	if err := a.Metadata.Recompute(path); err != nil {
		a.Log.Warn("recompute metadata", zap.String("path", path), zap.Error(err))
	}
}

// OnMetadataChanged calls fn on the loop with the path of every document
// whose annotations were recomputed. The returned func unsubscribes.
func (a *App) OnMetadataChanged(fn func(path string)) func() {
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() { delete(a.listeners, id) }
}

func (a *App) metadataChanged(ch metacache.Change) {
	if !ch.Removed {
		for _, p := range a.Workspace.PanesForFile(ch.Path) {
			if r, ok := p.View().(Reloader); ok && p.State().Type == TypeMarkdown {
				if err := r.Reload(); err != nil {
					a.Log.Debug("reload raw view", zap.String("path", ch.Path), zap.Error(err))
				}
			}
		}
	}
	ids := make([]int, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := a.listeners[id]; ok {
			fn(ch.Path)
		}
	}
}

// MarkReady signals that the layout is ready and host commands exist.
func (a *App) MarkReady() {
	a.Commands.MarkReady()
}

func (a *App) Install(p Plugin) error {
	if err := p.Load(a); err != nil {
		return err
	}
	a.plugins = append(a.plugins, p)
	return nil
}

func (a *App) Uninstall(p Plugin) {
	for i, cur := range a.plugins {
		if cur == p {
			a.plugins = append(a.plugins[:i:i], a.plugins[i+1:]...)
			p.Unload()
			return
		}
	}
}

// Shutdown unloads every plugin, most recently installed first.
func (a *App) Shutdown() {
	for i := len(a.plugins) - 1; i >= 0; i-- {
		a.plugins[i].Unload()
	}
	a.plugins = nil
}
