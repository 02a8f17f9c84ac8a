package arbiter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/boardview"
	"github.com/amirbrooks/boardmode/internal/host"
	"github.com/amirbrooks/boardmode/internal/store"
)

// Command identifiers.
const (
	CommandCreateBoard     = "kanban:create-new-kanban-board"
	CommandArchiveComplete = "kanban:archive-completed-cards"
	CommandToggleView      = "kanban:toggle-kanban-view"
	CommandConvert         = "kanban:convert-to-kanban"
)

// Menu item titles.
const (
	MenuNewBoard    = "New kanban board"
	MenuOpenAsBoard = "Open as kanban board"
	MenuOpenAsRaw   = "Open as markdown"
)

const newBoardName = "Untitled Kanban"

func (e *Engine) commands() []host.Command {
	return []host.Command{
		{
			ID:      CommandCreateBoard,
			Name:    "Create new board",
			Enabled: func() bool { return true },
			Run:     func() error { return e.NewBoard("") },
		},
		{
			ID:      CommandArchiveComplete,
			Name:    "Archive completed cards in active board",
			Enabled: func() bool { return e.activeBoard() != nil },
			Run:     e.ArchiveActive,
		},
		{
			ID:      CommandToggleView,
			Name:    "Toggle between board and markdown mode",
			Enabled: e.canToggle,
			Run:     e.ToggleActive,
		},
		{
			ID:      CommandConvert,
			Name:    "Convert empty note to board",
			Enabled: e.canConvert,
			Run:     e.ConvertActive,
		},
	}
}

func (e *Engine) activeBoard() *boardview.View {
	v, _ := e.app.Workspace.ActiveView().(*boardview.View)
	return v
}

func (e *Engine) canToggle() bool {
	p := e.app.Workspace.Active()
	if p == nil || p.State().File == "" {
		return false
	}
	if _, ok := ModeOf(p.State().Type); !ok {
		return false
	}
	return e.oracle.Declared(p.State().File)
}

// ToggleActive flips the active pane between board and raw text and pins
// the new mode with an override.
func (e *Engine) ToggleActive() error {
	p := e.app.Workspace.Active()
	if p == nil {
		return fmt.Errorf("%w: no active pane", store.ErrInvalid)
	}
	state := p.State()
	cur, ok := ModeOf(state.Type)
	if !ok || state.File == "" {
		return fmt.Errorf("%w: active pane shows no document", store.ErrInvalid)
	}
	return e.setMode(p, cur.Opposite())
}

// OpenAsBoard pins p to the board view and transitions it.
func (e *Engine) OpenAsBoard(p *host.Pane) error {
	return e.setMode(p, Structured)
}

// OpenAsRaw pins p to raw text and transitions it.
func (e *Engine) OpenAsRaw(p *host.Pane) error {
	return e.setMode(p, Raw)
}

func (e *Engine) setMode(p *host.Pane, m Mode) error {
	state := p.State()
	return e.pin(p, host.ViewState{Type: ViewType(m), File: state.File, Extra: state.Extra}, m)
}

// pin records m for p and moves p to target. A failed transition puts the
// previous entry back.
func (e *Engine) pin(p *host.Pane, target host.ViewState, m Mode) error {
	key := paneKey(p, target.File)
	sp := e.overrides.save(key)
	e.overrides.Set(key, m)
	if err := p.SetState(target); err != nil {
		e.overrides.rollback(sp)
		return err
	}
	attach(e.overrides, p, key)
	e.log.Debug("override set", zap.String("pane", p.ID()), zap.String("path", target.File), zap.String("mode", string(m)))
	return nil
}

func (e *Engine) canConvert() bool {
	p := e.app.Workspace.Active()
	if p == nil || p.State().Type != host.TypeMarkdown || p.State().File == "" {
		return false
	}
	info, err := e.app.Vault.Stat(p.State().File)
	return err == nil && !info.IsDir && info.Size == 0
}

// ConvertActive writes the board annotation into the empty active document
// and shows it as a board.
func (e *Engine) ConvertActive() error {
	p := e.app.Workspace.Active()
	if p == nil || p.State().File == "" {
		return fmt.Errorf("%w: no active document", store.ErrInvalid)
	}
	if err := e.app.Vault.Modify(p.State().File, boardFrontmatter()); err != nil {
		return err
	}
	return e.OpenAsBoard(p)
}

// NewBoard creates a board document in folder, or where settings say when
// folder is empty, and opens it in a fresh pane. Failures are reported as
// notices; the command itself does not fail.
func (e *Engine) NewBoard(folder string) error {
	_, err := e.newBoard(folder)
	return err
}

func (e *Engine) newBoard(folder string) (*host.Pane, error) {
	if folder == "" {
		s := e.Settings()
		folder = e.app.Vault.NewFileParent(e.app.Workspace.ActiveFile(), s.NewFileLocation, s.NewFileFolder)
	}
	path, err := e.app.Vault.Create(folder, newBoardName)
	if err != nil {
		e.reportCreateFailure(folder, err)
		return nil, nil
	}
	if err := e.app.Vault.Modify(path, boardFrontmatter()); err != nil {
		e.reportCreateFailure(path, err)
		return nil, nil
	}
	p := e.app.Workspace.NewPane()
	if err := e.pin(p, host.ViewState{Type: ViewType(Structured), File: path}, Structured); err != nil {
		if derr := p.Detach(); derr != nil {
			err = errors.Join(err, derr)
		}
		e.reportCreateFailure(path, err)
		return nil, nil
	}
	e.log.Info("board created", zap.String("path", path), zap.String("pane", p.ID()))
	return p, nil
}

func (e *Engine) reportCreateFailure(where string, err error) {
	e.log.Error("create board", zap.String("location", where), zap.Error(err))
	e.app.Notices.Notify(fmt.Sprintf("Error creating kanban board: %v", err))
}

// ArchiveActive archives the completed cards of the focused board.
func (e *Engine) ArchiveActive() error {
	v := e.activeBoard()
	if v == nil {
		return fmt.Errorf("%w: no active board", store.ErrInvalid)
	}
	n, err := v.ArchiveCompletedCards()
	if err != nil {
		return err
	}
	e.app.Notices.Notify(fmt.Sprintf("Archived %d card(s)", n))
	return nil
}

func boardFrontmatter() string {
	return store.FrontmatterBlock(FrontmatterKey, BoardVariant)
}

// fileMenuMiddleware offers board creation on folders and "open as board"
// on documents that declare themselves boards.
func (e *Engine) fileMenuMiddleware() host.Middleware[host.FileMenuEvent] {
	return host.Middleware[host.FileMenuEvent]{
		Name: "arbiter.file-menu",
		Wrap: func(ev host.FileMenuEvent, next func(host.FileMenuEvent) error) error {
			path := ev.Path
			switch {
			case ev.IsFolder:
				ev.Menu.AddItem(MenuNewBoard, "document", func() error { return e.NewBoard(path) })
			case ev.Source != host.SourcePane && e.oracle.Declared(path):
				ev.Menu.AddItem(MenuOpenAsBoard, "document", func() error {
					p := e.app.Workspace.NewPane()
					if err := e.pin(p, host.ViewState{Type: ViewType(Structured), File: path}, Structured); err != nil {
						_ = p.Detach()
						return err
					}
					return nil
				})
			}
			return next(ev)
		},
	}
}

// paneMenuMiddleware adds mode switching to a pane's more-options menu.
func (e *Engine) paneMenuMiddleware() host.Middleware[host.PaneMenuEvent] {
	return host.Middleware[host.PaneMenuEvent]{
		Name: "arbiter.pane-menu",
		When: func(ev host.PaneMenuEvent) bool { return ev.Pane != nil && ev.Pane.State().File != "" },
		Wrap: func(ev host.PaneMenuEvent, next func(host.PaneMenuEvent) error) error {
			p := ev.Pane
			switch p.State().Type {
			case host.TypeMarkdown:
				if e.oracle.Declared(p.State().File) {
					ev.Menu.AddItem(MenuOpenAsBoard, "document", func() error { return e.OpenAsBoard(p) })
				}
			case boardview.Type:
				ev.Menu.AddItem(MenuOpenAsRaw, "document", func() error { return e.OpenAsRaw(p) })
			}
			return next(ev)
		},
	}
}
