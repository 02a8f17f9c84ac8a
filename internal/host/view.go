package host

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amirbrooks/boardmode/internal/store"
)

// Built-in view types.
const (
	TypeMarkdown = "markdown"
	TypeEmpty    = "empty"
)

// ViewState is what a pane shows: a view type, the document it is bound to
// (empty for views without one) and any extra state owned by the view.
type ViewState struct {
	Type  string
	File  string
	Extra map[string]any
}

type View interface {
	Type() string
	// Load binds the view to state. A failed load leaves the pane unchanged.
	Load(state ViewState) error
	// Data is the document text the view currently holds.
	Data() string
	Render(width int) string
	Close()
}

// Reloader is implemented by views that re-read their document when the
// vault reports a change to it.
type Reloader interface {
	Reload() error
}

type ViewFactory func(p *Pane) View

type Views struct {
	factories map[string]ViewFactory
}

func NewViews() *Views {
	return &Views{factories: map[string]ViewFactory{}}
}

// Register installs a factory for typ, replacing any previous one. The
// returned func removes it.
func (v *Views) Register(typ string, f ViewFactory) func() {
	v.factories[typ] = f
	return func() {
		delete(v.factories, typ)
	}
}

func (v *Views) Has(typ string) bool {
	_, ok := v.factories[typ]
	return ok
}

func (v *Views) Types() []string {
	out := make([]string, 0, len(v.factories))
	for k := range v.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (v *Views) create(typ string, p *Pane) (View, error) {
	f, ok := v.factories[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, typ)
	}
	return f(p), nil
}

// MarkdownView shows a document as raw text and has its own text search.
type MarkdownView struct {
	vault     *store.Vault
	path      string
	text      string
	searching bool
}

func NewMarkdownView(vault *store.Vault) *MarkdownView {
	return &MarkdownView{vault: vault}
}

func (m *MarkdownView) Type() string { return TypeMarkdown }

func (m *MarkdownView) Load(state ViewState) error {
	if strings.TrimSpace(state.File) == "" {
		return fmt.Errorf("%w: markdown view needs a document", store.ErrInvalid)
	}
	text, err := m.vault.Read(state.File)
	if err != nil {
		return err
	}
	m.path = state.File
	m.text = text
	return nil
}

func (m *MarkdownView) Reload() error {
	if m.path == "" {
		return nil
	}
	text, err := m.vault.Read(m.path)
	if err != nil {
		return err
	}
	m.text = text
	return nil
}

func (m *MarkdownView) Data() string { return m.text }

func (m *MarkdownView) Render(width int) string {
	if !m.searching {
		return m.text
	}
	return "[search]\n" + m.text
}

func (m *MarkdownView) Close() {}

// ToggleSearch opens or closes the raw text search bar.
func (m *MarkdownView) ToggleSearch() {
	m.searching = !m.searching
}

func (m *MarkdownView) Searching() bool { return m.searching }

// EmptyView is what a pane shows with no document.
type EmptyView struct{}

func (EmptyView) Type() string { return TypeEmpty }

func (EmptyView) Load(ViewState) error { return nil }

func (EmptyView) Data() string { return "" }

func (EmptyView) Render(width int) string { return "(empty)" }

func (EmptyView) Close() {}
