package host

import (
	"fmt"

	"github.com/amirbrooks/boardmode/internal/store"
)

// Menu sources passed with a FileMenuEvent.
const (
	SourceExplorer = "file-explorer"
	SourcePane     = "pane-more-options"
)

type MenuItem struct {
	Title     string
	Icon      string
	Action    func() error
	Separator bool
}

type Menu struct {
	Items []MenuItem
}

func (m *Menu) AddItem(title string, icon string, action func() error) {
	m.Items = append(m.Items, MenuItem{Title: title, Icon: icon, Action: action})
}

func (m *Menu) AddSeparator() {
	if len(m.Items) == 0 || m.Items[len(m.Items)-1].Separator {
		return
	}
	m.Items = append(m.Items, MenuItem{Separator: true})
}

func (m *Menu) Titles() []string {
	var out []string
	for _, it := range m.Items {
		if !it.Separator {
			out = append(out, it.Title)
		}
	}
	return out
}

// Click runs the first item titled title.
func (m *Menu) Click(title string) error {
	for _, it := range m.Items {
		if it.Separator || it.Title != title {
			continue
		}
		if it.Action == nil {
			return nil
		}
		return it.Action()
	}
	return fmt.Errorf("%w: menu item %q", store.ErrNotFound, title)
}

type FileMenuEvent struct {
	Menu     *Menu
	Path     string
	IsFolder bool
	Source   string
}

type PaneMenuEvent struct {
	Menu *Menu
	Pane *Pane
}
