package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amirbrooks/boardmode/internal/arbiter"
	"github.com/amirbrooks/boardmode/internal/config"
	"github.com/amirbrooks/boardmode/internal/host"
	"github.com/amirbrooks/boardmode/internal/logging"
	"github.com/amirbrooks/boardmode/internal/store"
	"github.com/amirbrooks/boardmode/internal/watch"
)

const settleRounds = 100

// session is a running app with the engine installed and the layout ready.
type session struct {
	settings config.Settings
	log      *zap.Logger
	vault    *store.Vault
	app      *host.App
	engine   *arbiter.Engine
	watcher  *watch.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	group    *errgroup.Group
}

type sessionOptions struct {
	watch  bool
	stderr io.Writer
}

func openVault(root string) (*store.Vault, error) {
	vault, err := store.Open(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(vault.Root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: no vault at %s (run 'boardmode init')", store.ErrNotFound, vault.Root)
	}
	return vault, nil
}

func newLogger(gf *GlobalFlags, settings config.Settings, stderr io.Writer) (*zap.Logger, error) {
	opts := logging.FromConfig(gf.Root, settings)
	if gf.Verbose {
		opts.Console = true
		opts.Level = "debug"
	}
	opts.ConsoleWriter = stderr
	return logging.New(opts)
}

func openSession(ctx context.Context, gf *GlobalFlags, o sessionOptions) (*session, error) {
	vault, err := openVault(gf.Root)
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(vault.Root)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(gf, settings, o.stderr)
	if err != nil {
		return nil, err
	}

	app := host.New(vault, logger)
	if err := app.IndexVault(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("index vault: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Run(gctx) })

	s := &session{
		settings: settings,
		log:      logger,
		vault:    vault,
		app:      app,
		engine:   arbiter.New(settings, logger),
		ctx:      gctx,
		cancel:   cancel,
		group:    g,
	}
	if err := s.do(func(app *host.App) error {
		if err := app.Install(s.engine); err != nil {
			return err
		}
		app.MarkReady()
		return nil
	}); err != nil {
		return nil, errors.Join(err, s.close())
	}

	if o.watch && settings.Watch.Enabled {
		w, err := watch.New(vault, settings.Watch.Debounce, app.ExternalChange, logger)
		if err != nil {
			return nil, errors.Join(err, s.close())
		}
		if err := s.do(func(app *host.App) error {
			app.Vault.OnChange(w.Written)
			return nil
		}); err != nil {
			return nil, errors.Join(err, w.Stop(), s.close())
		}
		if err := w.Start(gctx); err != nil {
			return nil, errors.Join(err, w.Stop(), s.close())
		}
		s.watcher = w
	}
	logger.Debug("session open", zap.String("root", vault.Root), zap.Bool("watch", s.watcher != nil))
	return s, nil
}

// do runs fn on the app's loop.
func (s *session) do(fn func(app *host.App) error) error {
	return s.app.Loop.Do(s.ctx, func() error { return fn(s.app) })
}

// settle waits until the loop has drained follow-up work such as metadata
// recomputes queued by writes.
func (s *session) settle() error {
	for i := 0; i < settleRounds; i++ {
		if err := s.do(func(*host.App) error { return nil }); err != nil {
			return err
		}
		if s.app.Loop.Pending() == 0 {
			return nil
		}
	}
	return nil
}

// open opens path in a fresh pane and returns it.
func (s *session) open(path string) (*host.Pane, error) {
	var p *host.Pane
	err := s.do(func(app *host.App) error {
		if _, err := app.Vault.Stat(path); err != nil {
			return err
		}
		var err error
		p, err = app.Workspace.OpenFile(path)
		return err
	})
	return p, err
}

func (s *session) close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Stop())
	}
	if s.ctx.Err() == nil {
		errs = append(errs, s.do(func(app *host.App) error {
			app.Shutdown()
			return nil
		}))
	}
	s.cancel()
	errs = append(errs, s.group.Wait(), s.app.Close())
	_ = s.log.Sync()
	return errors.Join(errs...)
}
