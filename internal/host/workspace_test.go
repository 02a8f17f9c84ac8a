package host

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/amirbrooks/boardmode/internal/store"
)

func newTestApp(t *testing.T, files map[string]string) *App {
	t.Helper()
	v, err := store.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, v.Init())
	for p, text := range files {
		require.NoError(t, v.Write(p, text))
	}
	a := New(v, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOpenFileCommitsRawView(t *testing.T) {
	a := newTestApp(t, map[string]string{"x.md": "hello"})
	p, err := a.Workspace.OpenFile("x.md")
	require.NoError(t, err)
	assert.Equal(t, TypeMarkdown, p.State().Type)
	assert.Equal(t, "hello", p.View().Data())
	assert.True(t, strings.HasPrefix(p.ID(), "pane_"))
	assert.Same(t, p, a.Workspace.Active())
	assert.Equal(t, "x.md", a.Workspace.ActiveFile())
}

func TestOpenMissingFileDetachesPane(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.Workspace.OpenFile("missing.md")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, a.Workspace.Panes())
}

func TestPaneIDIsEmptyUntilFirstCommit(t *testing.T) {
	a := newTestApp(t, map[string]string{"x.md": ""})
	var seen []string
	a.Workspace.Transitions.Register(Middleware[Transition]{
		Name: "record",
		Wrap: func(tr Transition, next func(Transition) error) error {
			seen = append(seen, tr.Pane.ID())
			return next(tr)
		},
	})
	p := a.Workspace.NewPane()
	require.NoError(t, p.SetState(ViewState{Type: TypeMarkdown, File: "x.md"}))
	require.NoError(t, p.SetState(ViewState{Type: TypeMarkdown, File: "x.md"}))
	require.Len(t, seen, 2)
	assert.Equal(t, "", seen[0])
	assert.Equal(t, p.ID(), seen[1])
}

func TestUnknownViewKeepsPreviousState(t *testing.T) {
	a := newTestApp(t, map[string]string{"x.md": "body"})
	p, err := a.Workspace.OpenFile("x.md")
	require.NoError(t, err)
	err = p.SetState(ViewState{Type: "nope", File: "x.md"})
	assert.ErrorIs(t, err, ErrUnknownView)
	assert.Equal(t, TypeMarkdown, p.State().Type)
	assert.Equal(t, "body", p.View().Data())
}

func TestTransitionRewritePreservesExtra(t *testing.T) {
	a := newTestApp(t, map[string]string{"x.md": ""})
	a.Workspace.Transitions.Register(Middleware[Transition]{
		Name: "to-empty",
		When: func(tr Transition) bool { return tr.State.Type == TypeMarkdown },
		Wrap: func(tr Transition, next func(Transition) error) error {
			tr.State.Type = TypeEmpty
			return next(tr)
		},
	})
	extra := map[string]any{"scroll": 12}
	p := a.Workspace.NewPane()
	require.NoError(t, p.SetState(ViewState{Type: TypeMarkdown, File: "x.md", Extra: extra}))
	assert.Equal(t, TypeEmpty, p.State().Type)
	assert.Equal(t, 12, p.State().Extra["scroll"])
}

func TestDetachRunsChainBeforeRemoval(t *testing.T) {
	a := newTestApp(t, map[string]string{"x.md": "", "y.md": ""})
	first, err := a.Workspace.OpenFile("x.md")
	require.NoError(t, err)
	second, err := a.Workspace.OpenFile("y.md")
	require.NoError(t, err)

	var last ViewState
	var stillListed bool
	a.Workspace.Detaches.Register(Middleware[Detach]{
		Name: "record",
		Wrap: func(d Detach, next func(Detach) error) error {
			last = d.Last
			stillListed = len(a.Workspace.PanesForFile(d.Last.File)) == 1
			return next(d)
		},
	})
	require.NoError(t, second.Detach())
	assert.Equal(t, "y.md", last.File)
	assert.True(t, stillListed)
	assert.True(t, second.Detached())
	assert.Same(t, first, a.Workspace.Active())
	assert.ErrorIs(t, second.SetState(ViewState{Type: TypeEmpty}), ErrDetached)
	require.NoError(t, second.Detach())
}

func TestDetachErrorPropagates(t *testing.T) {
	a := newTestApp(t, map[string]string{"x.md": ""})
	p, err := a.Workspace.OpenFile("x.md")
	require.NoError(t, err)
	boom := errors.New("boom")
	a.Workspace.Detaches.Register(Middleware[Detach]{
		Name: "fail",
		Wrap: func(Detach, func(Detach) error) error { return boom },
	})
	assert.ErrorIs(t, p.Detach(), boom)
	assert.False(t, p.Detached())
}

func TestMenus(t *testing.T) {
	a := newTestApp(t, map[string]string{"dir/x.md": ""})
	a.Workspace.FileMenus.Register(Middleware[FileMenuEvent]{
		Name: "extra",
		When: func(e FileMenuEvent) bool { return e.IsFolder },
		Wrap: func(e FileMenuEvent, next func(FileMenuEvent) error) error {
			e.Menu.AddItem("Folder thing", "", nil)
			return next(e)
		},
	})
	assert.Equal(t, []string{"Open"}, a.Workspace.FileMenu("dir/x.md", SourceExplorer).Titles())
	assert.Equal(t, []string{"Folder thing"}, a.Workspace.FileMenu("dir", SourceExplorer).Titles())

	m := a.Workspace.FileMenu("dir/x.md", SourceExplorer)
	require.NoError(t, m.Click("Open"))
	assert.Len(t, a.Workspace.PanesForFile("dir/x.md"), 1)
	assert.ErrorIs(t, m.Click("Missing"), store.ErrNotFound)

	pm := a.Workspace.PaneMenu(a.Workspace.Active())
	assert.Equal(t, []string{"Close"}, pm.Titles())
	require.NoError(t, pm.Click("Close"))
	assert.Empty(t, a.Workspace.Panes())
}
