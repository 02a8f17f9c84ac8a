package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amirbrooks/boardmode/internal/metacache"
	"github.com/amirbrooks/boardmode/internal/store"
)

type fakeCache map[string]*metacache.Annotations

func (f fakeCache) GetCache(path string) (*metacache.Annotations, bool) {
	a, ok := f[path]
	return a, ok
}

type fakeDocs map[string]string

func (f fakeDocs) Read(path string) (string, error) {
	text, ok := f[path]
	if !ok {
		return "", store.ErrNotFound
	}
	return text, nil
}

func TestDeclaresStructured(t *testing.T) {
	cache := fakeCache{
		"board.md":     {Frontmatter: map[string]any{FrontmatterKey: "basic"}},
		"off.md":       {Frontmatter: map[string]any{FrontmatterKey: false}},
		"empty-key.md": {Frontmatter: map[string]any{FrontmatterKey: ""}},
		"other.md":     {Frontmatter: map[string]any{"title": "x"}},
		"plain.md":     {},
		"broken.md":    {Malformed: true},
	}
	o := NewOracle(cache, nil)
	cases := map[string]bool{
		"board.md":     true,
		"off.md":       false,
		"empty-key.md": false,
		"other.md":     false,
		"plain.md":     false,
		"broken.md":    false,
		"missing.md":   false,
	}
	for path, want := range cases {
		assert.Equal(t, want, o.DeclaresStructured(path), path)
	}
}

func TestDeclaredFallsBackToRawText(t *testing.T) {
	cache := fakeCache{"indexed.md": {}}
	docs := fakeDocs{
		"indexed.md": store.FrontmatterBlock(FrontmatterKey, BoardVariant),
		"fresh.md":   store.FrontmatterBlock(FrontmatterKey, BoardVariant),
	}
	o := NewOracle(cache, docs)
	assert.False(t, o.Declared("indexed.md"), "an indexed entry wins over the raw text")
	assert.True(t, o.Declared("fresh.md"))
	assert.False(t, o.Declared("gone.md"))
	assert.False(t, NewOracle(nil, nil).Declared("fresh.md"))
}

func TestDeclaresStructuredRaw(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"written block", "---\n\nkanban-plugin: basic\n\n---\n\n\n", true},
		{"compact", "---\nkanban-plugin: basic\n---\n## Lane\n", true},
		{"crlf", "---\r\nkanban-plugin: basic\r\n---\r\n", true},
		{"at end of text", "---\nkanban-plugin: basic\n---", true},
		{"no block", "kanban-plugin: basic\n", false},
		{"key after block", "---\ntitle: x\n---\nkanban-plugin: basic\n", false},
		{"unterminated", "---\nkanban-plugin: basic\n", false},
		{"not at start", "\n---\nkanban-plugin: basic\n---\n", false},
		{"byte order mark", "\ufeff---\nkanban-plugin: basic\n---\n", false},
		{"empty", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DeclaresStructuredRaw(c.text))
		})
	}
}

func TestOverrides(t *testing.T) {
	o := NewOverrides()
	_, ok := o.Get(Key{Pane: "p1", Path: "a.md"})
	assert.False(t, ok)

	o.Set(Key{Path: "a.md"}, Structured)
	m, ok := o.Get(Key{Pane: "p1", Path: "a.md"})
	assert.True(t, ok)
	assert.Equal(t, Structured, m)

	o.Set(Key{Pane: "p1", Path: "a.md"}, Raw)
	o.Set(Key{Pane: "p1", Path: "a.md"}, Raw)
	m, _ = o.Get(Key{Pane: "p1", Path: "a.md"})
	assert.Equal(t, Raw, m)
	assert.Equal(t, 2, o.Len())

	_, ok = o.Get(Key{Pane: "p1", Path: "b.md"})
	assert.False(t, ok, "a pane entry for another document does not apply")

	o.Clear(Key{Pane: "p1", Path: "a.md"})
	assert.Zero(t, o.Len())
	o.Clear(Key{Pane: "nobody"})

	o.Set(Key{Pane: "p2", Path: "c.md"}, Raw)
	o.Set(Key{Path: "c.md"}, Structured)
	o.Set(Key{Path: "d.md"}, Structured)
	o.ClearPath("c.md")
	assert.Equal(t, 1, o.Len())

	o.Set(Key{}, Raw)
	assert.Equal(t, 1, o.Len())
}

func TestOverridesSavepointAndMove(t *testing.T) {
	o := NewOverrides()
	k := Key{Path: "a.md"}
	sp := o.save(k)
	o.Set(k, Structured)
	o.rollback(sp)
	assert.Zero(t, o.Len(), "rollback removes an entry that did not exist")

	o.Set(Key{Pane: "p1", Path: "a.md"}, Structured)
	sp = o.save(Key{Pane: "p1", Path: "a.md"})
	o.Set(Key{Pane: "p1", Path: "a.md"}, Raw)
	o.rollback(sp)
	m, _ := o.Get(Key{Pane: "p1", Path: "a.md"})
	assert.Equal(t, Structured, m)

	o.Set(Key{Path: "b.md"}, Raw)
	o.moveToPane("p1", "b.md")
	assert.Equal(t, 1, o.Len())
	_, ok := o.Get(Key{Path: "b.md"})
	assert.False(t, ok)
	m, _ = o.Get(Key{Pane: "p1", Path: "b.md"})
	assert.Equal(t, Raw, m)

	o.moveToPane("p1", "missing.md")
	o.moveToPane("", "b.md")
	assert.Equal(t, 1, o.Len())
}
