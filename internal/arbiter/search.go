package arbiter

import (
	"github.com/amirbrooks/boardmode/internal/boardview"
	"github.com/amirbrooks/boardmode/internal/host"
)

// searchMiddleware sends the host's search command to the board's own
// search while a board is focused. Otherwise the host command runs.
func searchMiddleware(ws *host.Workspace) host.Middleware[host.CommandEvent] {
	return host.Middleware[host.CommandEvent]{
		Name: "arbiter.search",
		When: func(host.CommandEvent) bool {
			_, ok := ws.ActiveView().(*boardview.View)
			return ok
		},
		Wrap: func(e host.CommandEvent, next func(host.CommandEvent) error) error {
			if e.Checking {
				return nil
			}
			ws.ActiveView().(*boardview.View).ToggleSearch()
			return nil
		},
	}
}
