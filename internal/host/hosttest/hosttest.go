// Package hosttest runs a host.App over a temporary vault for tests.
package hosttest

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/amirbrooks/boardmode/internal/host"
	"github.com/amirbrooks/boardmode/internal/store"
)

const timeout = 5 * time.Second

type Harness struct {
	T     testing.TB
	App   *host.App
	Vault *store.Vault
}

// New writes files into a fresh vault, indexes them and starts the app loop.
// The loop is stopped and the app closed when the test ends.
func New(t testing.TB, files map[string]string) *Harness {
	t.Helper()
	vault, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open vault: %v", err)
	}
	if err := vault.Init(); err != nil {
		t.Fatalf("init vault: %v", err)
	}
	for p, text := range files {
		if err := vault.Write(p, text); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	app := host.New(vault, zaptest.NewLogger(t))
	if err := app.IndexVault(); err != nil {
		t.Fatalf("index vault: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("app run: %v", err)
		}
		if err := app.Close(); err != nil {
			t.Errorf("app close: %v", err)
		}
	})

	h := &Harness{T: t, App: app, Vault: vault}
	// Writes above queued recomputes; let them drain before the test starts.
	h.Settle()
	return h
}

// Do runs fn on the loop and returns its error.
func (h *Harness) Do(fn func(app *host.App) error) error {
	h.T.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return h.Loop(ctx, fn)
}

// MustDo is Do that fails the test on error.
func (h *Harness) MustDo(fn func(app *host.App) error) {
	h.T.Helper()
	if err := h.Do(fn); err != nil {
		h.T.Fatalf("on loop: %v", err)
	}
}

func (h *Harness) Loop(ctx context.Context, fn func(app *host.App) error) error {
	return h.App.Loop.Do(ctx, func() error { return fn(h.App) })
}

// Settle waits until the loop has no queued work, including work queued by
// the tasks it ran while settling.
func (h *Harness) Settle() {
	h.T.Helper()
	for i := 0; i < 100; i++ {
		h.MustDo(func(*host.App) error { return nil })
		if h.App.Loop.Pending() == 0 {
			return
		}
	}
	h.T.Fatalf("loop did not settle")
}
