package arbiter

import (
	"github.com/amirbrooks/boardmode/internal/boardview"
	"github.com/amirbrooks/boardmode/internal/host"
)

// metadataChanged re-renders open boards after a document's annotations
// were recomputed. It never changes a pane's mode.
func (e *Engine) metadataChanged(path string) {
	if _, tracked := e.app.Metadata.GetCache(path); !tracked {
		e.overrides.ClearPath(path)
	}
	for _, p := range e.app.Workspace.PanesOfType(boardview.Type) {
		if v, ok := p.View().(*boardview.View); ok {
			v.OnFileMetadataChange(path)
		}
	}
}

// boardPanes returns every open pane showing a board.
func boardPanes(ws *host.Workspace) []*host.Pane {
	return ws.PanesOfType(boardview.Type)
}
