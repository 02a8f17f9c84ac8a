package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/amirbrooks/boardmode/internal/store"
)

func TestCommandsAddAndExecute(t *testing.T) {
	c := NewCommands(zaptest.NewLogger(t))
	enabled := false
	runs := 0
	remove, err := c.Add(Command{
		ID:      "p:thing",
		Name:    "Thing",
		Enabled: func() bool { return enabled },
		Run:     func() error { runs++; return nil },
	})
	require.NoError(t, err)

	_, err = c.Add(Command{ID: "p:thing"})
	assert.ErrorIs(t, err, store.ErrConflict)

	assert.ErrorIs(t, c.Execute("p:thing"), ErrCommandDisabled)
	enabled = true
	require.NoError(t, c.Execute("p:thing"))
	assert.Equal(t, 1, runs)

	remove()
	assert.ErrorIs(t, c.Execute("p:thing"), ErrUnknownCommand)
}

func TestInterceptRequiresReadiness(t *testing.T) {
	c := NewCommands(zaptest.NewLogger(t))
	hostRuns := 0
	c.addBuiltin(Command{ID: CommandSearch, Enabled: func() bool { return false }, Run: func() error { hostRuns++; return nil }})

	_, err := c.Intercept(CommandSearch, Middleware[CommandEvent]{Name: "x"})
	assert.ErrorIs(t, err, ErrNotReady)
	_, ok := c.Get(CommandSearch)
	assert.False(t, ok)

	var order []string
	c.OnReady(func() {
		_, ok := c.Get(CommandSearch)
		assert.True(t, ok, "built-ins exist before readiness callbacks run")
		order = append(order, "first")
	})
	c.MarkReady()
	c.OnReady(func() { order = append(order, "late") })
	c.MarkReady()
	assert.Equal(t, []string{"first", "late"}, order)

	redirected := 0
	unregister, err := c.Intercept(CommandSearch, Middleware[CommandEvent]{
		Name: "redirect",
		Wrap: func(e CommandEvent, next func(CommandEvent) error) error {
			if e.Checking {
				return nil
			}
			redirected++
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, c.IsEnabled(CommandSearch))
	require.NoError(t, c.Execute(CommandSearch))
	assert.Equal(t, 1, redirected)
	assert.Equal(t, 0, hostRuns)

	unregister()
	assert.False(t, c.IsEnabled(CommandSearch))
}
