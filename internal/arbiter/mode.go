// Package arbiter decides, for every pane, whether a document is shown as a
// board or as raw text, and keeps that decision consistent as panes open,
// close and reload and as documents change.
package arbiter

import (
	"github.com/amirbrooks/boardmode/internal/boardview"
	"github.com/amirbrooks/boardmode/internal/host"
)

type Mode string

const (
	Raw        Mode = "raw"
	Structured Mode = "structured"
)

// FrontmatterKey is the annotation key that declares a document a board.
const (
	FrontmatterKey = "kanban-plugin"
	BoardVariant   = "basic"
)

// ViewType maps a mode to the view type that renders it.
func ViewType(m Mode) string {
	if m == Structured {
		return boardview.Type
	}
	return host.TypeMarkdown
}

// ModeOf maps a view type back to a mode. Other view types have none.
func ModeOf(viewType string) (Mode, bool) {
	switch viewType {
	case boardview.Type:
		return Structured, true
	case host.TypeMarkdown:
		return Raw, true
	default:
		return "", false
	}
}

func (m Mode) Opposite() Mode {
	if m == Structured {
		return Raw
	}
	return Structured
}
