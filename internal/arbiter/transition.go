package arbiter

import (
	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/host"
)

// TransitionInterceptor rewrites raw-text transitions for documents that
// declare themselves boards, unless the pane was explicitly set to raw.
type TransitionInterceptor struct {
	overrides *Overrides
	oracle    *Oracle
	log       *zap.Logger
}

func NewTransitionInterceptor(overrides *Overrides, oracle *Oracle, logger *zap.Logger) *TransitionInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionInterceptor{overrides: overrides, oracle: oracle, log: logger}
}

// Decide returns the request to forward and whether it was rewritten. A
// rewrite records a structured override under key. Deciding twice against
// the same state gives the same answer.
func (ti *TransitionInterceptor) Decide(key Key, req host.ViewState) (host.ViewState, bool) {
	if req.Type != host.TypeMarkdown || req.File == "" {
		return req, false
	}
	if m, ok := ti.overrides.Get(key); ok && m == Raw {
		ti.log.Debug("transition kept raw by override", zap.String("path", req.File), zap.String("pane", key.Pane))
		return req, false
	}
	if !ti.oracle.Declared(req.File) {
		return req, false
	}
	out := req
	out.Type = ViewType(Structured)
	ti.overrides.Set(key, Structured)
	ti.log.Debug("transition rewritten", zap.String("path", req.File), zap.String("pane", key.Pane))
	return out, true
}

// Middleware hooks Decide into the host's transition chain. Errors from the
// rest of the chain are returned as they are, after the override Decide
// recorded is undone.
func (ti *TransitionInterceptor) Middleware() host.Middleware[host.Transition] {
	return host.Middleware[host.Transition]{
		Name: "arbiter.transition",
		When: func(t host.Transition) bool {
			return t.State.Type == host.TypeMarkdown && t.State.File != ""
		},
		Wrap: func(t host.Transition, next func(host.Transition) error) error {
			key := paneKey(t.Pane, t.State.File)
			sp := ti.overrides.save(key)
			t.State, _ = ti.Decide(key, t.State)
			if err := next(t); err != nil {
				ti.overrides.rollback(sp)
				return err
			}
			attach(ti.overrides, t.Pane, key)
			return nil
		},
	}
}

// attach moves an entry recorded under the document path while p had no
// identity onto p, once p has committed and got one.
func attach(o *Overrides, p *host.Pane, key Key) {
	if key.Pane == "" && p != nil {
		o.moveToPane(p.ID(), key.Path)
	}
}

func paneKey(p *host.Pane, path string) Key {
	if p == nil {
		return Key{Path: path}
	}
	return Key{Pane: p.ID(), Path: path}
}
