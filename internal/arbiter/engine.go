package arbiter

import (
	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/boardview"
	"github.com/amirbrooks/boardmode/internal/config"
	"github.com/amirbrooks/boardmode/internal/host"
)

// Engine installs the board/raw arbitration into a host app. Everything it
// does runs on the app's loop.
type Engine struct {
	app         *host.App
	settings    config.Settings
	overrides   *Overrides
	oracle      *Oracle
	transitions *TransitionInterceptor
	log         *zap.Logger
	loaded      bool
	unregister  []func()
}

func New(settings config.Settings, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		settings:  settings,
		overrides: NewOverrides(),
		log:       logger.Named("arbiter"),
	}
}

func (e *Engine) Overrides() *Overrides { return e.overrides }

func (e *Engine) Oracle() *Oracle { return e.oracle }

func (e *Engine) Settings() config.Settings { return e.settings }

// Load registers the board view, the interceptors, the commands, the menu
// hooks and the change listener.
func (e *Engine) Load(app *host.App) error {
	e.app = app
	e.oracle = NewOracle(app.Metadata, app.Vault)
	e.transitions = NewTransitionInterceptor(e.overrides, e.oracle, e.log)

	e.unregister = append(e.unregister,
		app.Views.Register(boardview.Type, boardview.Factory(app.Vault, e.viewOptions, e.log)),
		app.Workspace.Transitions.Register(e.transitions.Middleware()),
		app.Workspace.Detaches.Register(detachMiddleware(e.overrides, e.log)),
		app.Workspace.FileMenus.Register(e.fileMenuMiddleware()),
		app.Workspace.PaneMenus.Register(e.paneMenuMiddleware()),
		app.OnMetadataChanged(e.metadataChanged),
	)
	for _, cmd := range e.commands() {
		remove, err := app.Commands.Add(cmd)
		if err != nil {
			e.Unload()
			return err
		}
		e.unregister = append(e.unregister, remove)
	}
	e.loaded = true
	app.Commands.OnReady(func() {
		if !e.loaded {
			return
		}
		remove, err := app.Commands.Intercept(host.CommandSearch, searchMiddleware(app.Workspace))
		if err != nil {
			e.log.Warn("search command not intercepted", zap.Error(err))
			return
		}
		e.unregister = append(e.unregister, remove)
	})
	e.log.Debug("loaded")
	return nil
}

// Unload removes everything Load registered and turns open boards back
// into raw text.
func (e *Engine) Unload() {
	e.loaded = false
	for i := len(e.unregister) - 1; i >= 0; i-- {
		e.unregister[i]()
	}
	e.unregister = nil
	if e.app == nil {
		return
	}
	for _, p := range boardPanes(e.app.Workspace) {
		state := p.State()
		if err := p.SetState(host.ViewState{Type: host.TypeMarkdown, File: state.File, Extra: state.Extra}); err != nil {
			e.log.Warn("restore raw view", zap.String("path", state.File), zap.Error(err))
		}
	}
	e.overrides = NewOverrides()
	e.log.Debug("unloaded")
}

// UpdateSettings applies new settings and fully re-renders every open board.
func (e *Engine) UpdateSettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.settings = s
	if e.app == nil {
		return nil
	}
	for _, p := range boardPanes(e.app.Workspace) {
		if v, ok := p.View().(*boardview.View); ok {
			v.SetViewData(v.Data(), true)
		}
	}
	return nil
}

func (e *Engine) viewOptions() boardview.Options {
	return boardview.Options{LaneWidth: e.settings.LaneWidth, MaxDistance: e.settings.Search.MaxDistance}
}
