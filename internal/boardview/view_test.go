package boardview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/amirbrooks/boardmode/internal/host"
	"github.com/amirbrooks/boardmode/internal/store"
)

const doc = "---\n\nkanban-plugin: basic\n\n---\n\n" +
	"## Todo\n\n- [ ] Write parser #core\n- [x] Sketch layout\n\n" +
	"## Done\n\n- [x] Ship release #me\n"

func newView(t *testing.T, files map[string]string) (*View, *store.Vault) {
	t.Helper()
	v, err := store.Open(t.TempDir())
	require.NoError(t, err)
	for p, text := range files {
		require.NoError(t, v.Write(p, text))
	}
	opts := func() Options { return Options{LaneWidth: 24, MaxDistance: 1} }
	return New(v, opts, zaptest.NewLogger(t)), v
}

func TestLoadParsesBoard(t *testing.T) {
	view, _ := newView(t, map[string]string{"b.md": doc})
	require.NoError(t, view.Load(host.ViewState{Type: Type, File: "b.md"}))
	assert.Equal(t, []string{"Todo", "Done"}, view.LaneTitles())
	assert.Equal(t, 1, view.Renders())
	assert.Equal(t, []string{"core", "me"}, view.SortedTags())

	out := view.Render(0)
	assert.Contains(t, out, "Todo (2)")
	assert.Contains(t, out, "[x] Ship release #me")
}

func TestLoadMissingDocumentFails(t *testing.T) {
	view, _ := newView(t, nil)
	err := view.Load(host.ViewState{Type: Type, File: "nope.md"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOnFileMetadataChangeOnlyOwnDocument(t *testing.T) {
	view, vault := newView(t, map[string]string{"b.md": doc, "other.md": "x"})
	require.NoError(t, view.Load(host.ViewState{Type: Type, File: "b.md"}))

	view.OnFileMetadataChange("other.md")
	assert.Equal(t, 1, view.Renders())

	require.NoError(t, vault.Modify("b.md", doc+"\n## Later\n"))
	view.OnFileMetadataChange("b.md")
	assert.Equal(t, 2, view.Renders())
	assert.Equal(t, []string{"Todo", "Done", "Later"}, view.LaneTitles())
}

func TestSearch(t *testing.T) {
	view, _ := newView(t, map[string]string{"b.md": doc})
	require.NoError(t, view.Load(host.ViewState{Type: Type, File: "b.md"}))

	view.ToggleSearch()
	require.True(t, view.Searching())

	titles := func() []string {
		var out []string
		for _, m := range view.Matches() {
			out = append(out, m.Item.Title())
		}
		return out
	}
	view.SetQuery("#core")
	assert.Equal(t, []string{"Write parser #core"}, titles())
	view.SetQuery("layout")
	assert.Equal(t, []string{"Sketch layout"}, titles())
	view.SetQuery("relase")
	assert.Equal(t, []string{"Ship release #me"}, titles())
	view.SetQuery("zzz")
	assert.Empty(t, titles())

	assert.True(t, strings.HasPrefix(view.Render(0), "search: zzz"))
	view.ToggleSearch()
	assert.Equal(t, "", view.Query())
}

func TestArchiveCompletedCardsWritesBack(t *testing.T) {
	view, vault := newView(t, map[string]string{"b.md": doc})
	require.NoError(t, view.Load(host.ViewState{Type: Type, File: "b.md"}))

	n, err := view.ArchiveCompletedCards()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	text, err := vault.Read("b.md")
	require.NoError(t, err)
	b, err := store.ParseBoard(text)
	require.NoError(t, err)
	assert.Len(t, b.Archive.Items, 2)
	assert.Equal(t, 1, b.ItemCount())
	assert.Equal(t, text, view.Data())

	n, err = view.ArchiveCompletedCards()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRenderRespectsWidth(t *testing.T) {
	view, _ := newView(t, map[string]string{"b.md": doc})
	require.NoError(t, view.Load(host.ViewState{Type: Type, File: "b.md"}))
	narrow := view.Render(30)
	assert.Contains(t, narrow, "Todo (2)")
	assert.NotContains(t, narrow, "Done (1)")
}

func TestSetViewDataKeepsLastGoodBoard(t *testing.T) {
	view, _ := newView(t, map[string]string{"b.md": doc})
	require.NoError(t, view.Load(host.ViewState{Type: Type, File: "b.md"}))
	view.SetViewData("## A\n%% kanban:settings\n", false)
	assert.Error(t, view.ParseError())
	assert.Equal(t, []string{"Todo", "Done"}, view.LaneTitles())
	_, err := view.ArchiveCompletedCards()
	assert.ErrorIs(t, err, store.ErrInvalid)
}
