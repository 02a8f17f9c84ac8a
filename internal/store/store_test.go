package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := v.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return v
}

func TestCreateDeduplicatesNames(t *testing.T) {
	v := newTestVault(t)
	if err := os.MkdirAll(filepath.Join(v.Root, "Boards"), 0o755); err != nil {
		t.Fatal(err)
	}
	var got []string
	for i := 0; i < 3; i++ {
		p, err := v.Create("Boards", "Untitled Kanban")
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		got = append(got, p)
	}
	want := []string{"Boards/Untitled Kanban.md", "Boards/Untitled Kanban 1.md", "Boards/Untitled Kanban 2.md"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %q at %d, got %q", want[i], i, got[i])
		}
	}
	info, err := v.Stat(got[0])
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size != 0 {
		t.Fatalf("expected empty document, got %d bytes", info.Size)
	}
}

func TestCreateInMissingFolderFails(t *testing.T) {
	v := newTestVault(t)
	_, err := v.Create("nope", "Untitled Kanban")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestModifyRequiresExistingDocument(t *testing.T) {
	v := newTestVault(t)
	err := v.Modify("missing.md", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestModifyNotifiesObservers(t *testing.T) {
	v := newTestVault(t)
	var seen []string
	v.OnChange(func(p string) { seen = append(seen, p) })
	if err := v.Write("a/b.md", "one"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := v.Modify("a/b.md", "two"); err != nil {
		t.Fatalf("modify: %v", err)
	}
	text, err := v.Read("a/b.md")
	if err != nil || text != "two" {
		t.Fatalf("expected %q, got %q (%v)", "two", text, err)
	}
	if len(seen) != 2 || seen[0] != "a/b.md" || seen[1] != "a/b.md" {
		t.Fatalf("unexpected notifications: %#v", seen)
	}
}

func TestAbsRejectsEscapes(t *testing.T) {
	v := newTestVault(t)
	if _, err := v.Abs("../outside.md"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := v.Read("a/../../x.md"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestListSkipsDotDirectories(t *testing.T) {
	v := newTestVault(t)
	for _, p := range []string{"b.md", "a/c.md", ".boardmode/settings.md", "notes.txt"} {
		if err := v.Write(p, ""); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	docs, err := v.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0] != "a/c.md" || docs[1] != "b.md" {
		t.Fatalf("unexpected docs: %#v", docs)
	}
	folders, err := v.Folders()
	if err != nil {
		t.Fatalf("folders: %v", err)
	}
	if len(folders) != 1 || folders[0] != "a" {
		t.Fatalf("unexpected folders: %#v", folders)
	}
}

func TestNewFileParent(t *testing.T) {
	v := newTestVault(t)
	if err := os.MkdirAll(filepath.Join(v.Root, "Boards"), 0o755); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		source, location, folder, want string
	}{
		{"Projects/x.md", LocationRoot, "", ""},
		{"Projects/x.md", LocationCurrent, "", "Projects"},
		{"x.md", LocationCurrent, "", ""},
		{"", LocationCurrent, "", ""},
		{"Projects/x.md", LocationFolder, "Boards", "Boards"},
		{"Projects/x.md", LocationFolder, "Missing", ""},
		{"Projects/x.md", "", "", ""},
	}
	for _, c := range cases {
		got := v.NewFileParent(c.source, c.location, c.folder)
		if got != c.want {
			t.Fatalf("NewFileParent(%q, %q, %q) = %q, want %q", c.source, c.location, c.folder, got, c.want)
		}
	}
}
