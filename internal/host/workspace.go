package host

import (
	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/store"
)

// Workspace owns the open panes and the interception points around them.
type Workspace struct {
	Transitions Chain[Transition]
	Detaches    Chain[Detach]
	FileMenus   Chain[FileMenuEvent]
	PaneMenus   Chain[PaneMenuEvent]

	vault  *store.Vault
	views  *Views
	log    *zap.Logger
	panes  []*Pane
	active *Pane
}

func NewWorkspace(vault *store.Vault, views *Views, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{vault: vault, views: views, log: logger.Named("workspace")}
}

// NewPane adds an empty pane. It becomes active once it commits a state.
func (w *Workspace) NewPane() *Pane {
	p := &Pane{ws: w}
	w.panes = append(w.panes, p)
	return p
}

// OpenFile opens path as raw text in a fresh pane. A pane whose first
// transition fails is closed again.
func (w *Workspace) OpenFile(path string) (*Pane, error) {
	p := w.NewPane()
	if err := p.SetState(ViewState{Type: TypeMarkdown, File: path}); err != nil {
		_ = p.Detach()
		return nil, err
	}
	return p, nil
}

func (w *Workspace) Panes() []*Pane {
	return append([]*Pane(nil), w.panes...)
}

func (w *Workspace) PanesOfType(typ string) []*Pane {
	var out []*Pane
	for _, p := range w.panes {
		if p.view != nil && p.state.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// PanesForFile returns every pane currently bound to path.
func (w *Workspace) PanesForFile(path string) []*Pane {
	var out []*Pane
	for _, p := range w.panes {
		if p.view != nil && p.state.File == path {
			out = append(out, p)
		}
	}
	return out
}

func (w *Workspace) Active() *Pane { return w.active }

func (w *Workspace) SetActive(p *Pane) {
	if p == nil || p.detached {
		return
	}
	w.active = p
}

// ActiveFile is the document bound to the active pane, or "".
func (w *Workspace) ActiveFile() string {
	if w.active == nil {
		return ""
	}
	return w.active.state.File
}

func (w *Workspace) ActiveView() View {
	if w.active == nil {
		return nil
	}
	return w.active.view
}

func (w *Workspace) remove(p *Pane) {
	for i, cur := range w.panes {
		if cur == p {
			w.panes = append(w.panes[:i:i], w.panes[i+1:]...)
			break
		}
	}
	if p.view != nil {
		p.view.Close()
	}
	p.detached = true
	if w.active == p {
		w.active = nil
		if n := len(w.panes); n > 0 {
			w.active = w.panes[n-1]
		}
	}
	w.log.Debug("pane detached", zap.String("pane", p.id), zap.String("file", p.state.File))
}

// FileMenu builds the context menu for a document or folder.
func (w *Workspace) FileMenu(path string, source string) *Menu {
	ev := FileMenuEvent{Menu: &Menu{}, Path: path, IsFolder: w.vault.IsFolder(path), Source: source}
	if !ev.IsFolder {
		ev.Menu.AddItem("Open", "file", func() error {
			_, err := w.OpenFile(path)
			return err
		})
	}
	_ = w.FileMenus.Dispatch(ev, nil)
	return ev.Menu
}

// PaneMenu builds the "more options" menu of a pane.
func (w *Workspace) PaneMenu(p *Pane) *Menu {
	ev := PaneMenuEvent{Menu: &Menu{}, Pane: p}
	_ = w.PaneMenus.Dispatch(ev, nil)
	ev.Menu.AddSeparator()
	ev.Menu.AddItem("Close", "cross", p.Detach)
	return ev.Menu
}
