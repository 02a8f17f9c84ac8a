package arbiter

import (
	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/host"
)

// detachMiddleware clears the closing pane's overrides before the host
// removes it, so reopening the document starts from its declaration again.
func detachMiddleware(overrides *Overrides, log *zap.Logger) host.Middleware[host.Detach] {
	return host.Middleware[host.Detach]{
		Name: "arbiter.detach",
		When: func(d host.Detach) bool { return d.Pane != nil },
		Wrap: func(d host.Detach, next func(host.Detach) error) error {
			k := paneKey(d.Pane, d.Last.File)
			_, had := overrides.Get(k)
			overrides.Clear(k)
			if had {
				log.Debug("override cleared", zap.String("path", k.Path), zap.String("pane", k.Pane))
			}
			return next(d)
		},
	}
}
