package arbiter

// Key identifies the pane an override belongs to. Pane is empty while a
// pane has no identity yet; the document path stands in for it then.
type Key struct {
	Pane string
	Path string
}

func (k Key) id() string {
	if k.Pane != "" {
		return "pane:" + k.Pane
	}
	if k.Path != "" {
		return "path:" + k.Path
	}
	return ""
}

type override struct {
	mode Mode
	path string
}

// Overrides records explicit user intent per pane. It is owned by the loop
// goroutine and needs no locking.
type Overrides struct {
	entries map[string]override
}

func NewOverrides() *Overrides {
	return &Overrides{entries: map[string]override{}}
}

// Set replaces the entry for k.
func (o *Overrides) Set(k Key, m Mode) {
	id := k.id()
	if id == "" {
		return
	}
	o.entries[id] = override{mode: m, path: k.Path}
}

// Get looks up the pane entry first and falls back to the path entry. A
// pane entry recorded for another document does not apply.
func (o *Overrides) Get(k Key) (Mode, bool) {
	if k.Pane != "" {
		if e, ok := o.entries["pane:"+k.Pane]; ok && (k.Path == "" || e.path == "" || e.path == k.Path) {
			return e.mode, true
		}
	}
	if k.Path != "" {
		if e, ok := o.entries["path:"+k.Path]; ok {
			return e.mode, true
		}
	}
	return "", false
}

// Clear drops both the pane entry and the path entry of k.
func (o *Overrides) Clear(k Key) {
	if k.Pane != "" {
		delete(o.entries, "pane:"+k.Pane)
	}
	if k.Path != "" {
		delete(o.entries, "path:"+k.Path)
	}
}

// ClearPath drops every entry recorded for path, whichever key it was set under.
func (o *Overrides) ClearPath(path string) {
	for id, e := range o.entries {
		if e.path == path {
			delete(o.entries, id)
		}
	}
}

// moveToPane re-keys the path entry of path under pane, replacing any
// entry the pane already had.
func (o *Overrides) moveToPane(pane string, path string) {
	e, ok := o.entries["path:"+path]
	if !ok || pane == "" {
		return
	}
	delete(o.entries, "path:"+path)
	o.entries["pane:"+pane] = e
}

type savepoint struct {
	id    string
	entry override
	ok    bool
}

// save captures the exact entry stored for k so rollback can put it back.
func (o *Overrides) save(k Key) savepoint {
	id := k.id()
	e, ok := o.entries[id]
	return savepoint{id: id, entry: e, ok: ok}
}

func (o *Overrides) rollback(sp savepoint) {
	switch {
	case sp.id == "":
	case sp.ok:
		o.entries[sp.id] = sp.entry
	default:
		delete(o.entries, sp.id)
	}
}

func (o *Overrides) Len() int {
	return len(o.entries)
}
