package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	require.NoError(t, l.Do(ctx, func() error { return nil }))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	boom := errors.New("boom")
	assert.ErrorIs(t, l.Do(ctx, func() error { return boom }), boom)

	cancel()
	require.NoError(t, <-done)
}

func TestLoopDoHonoursContext(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.Pending())
}

func TestChainOrderAndFallthrough(t *testing.T) {
	var c Chain[string]
	var trace []string
	c.Register(Middleware[string]{
		Name: "upper",
		When: func(e string) bool { return e == "a" },
		Wrap: func(e string, next func(string) error) error {
			trace = append(trace, "upper")
			return next("A")
		},
	})
	unregister := c.Register(Middleware[string]{
		Name: "log",
		Wrap: func(e string, next func(string) error) error {
			trace = append(trace, "log:"+e)
			return next(e)
		},
	})
	final := func(e string) error {
		trace = append(trace, "final:"+e)
		return nil
	}

	require.NoError(t, c.Dispatch("a", final))
	assert.Equal(t, []string{"upper", "log:A", "final:A"}, trace)

	trace = nil
	require.NoError(t, c.Dispatch("b", final))
	assert.Equal(t, []string{"log:b", "final:b"}, trace)

	unregister()
	assert.Equal(t, []string{"upper"}, c.Names())
	trace = nil
	require.NoError(t, c.Dispatch("b", final))
	assert.Equal(t, []string{"final:b"}, trace)
}

func TestChainPropagatesErrors(t *testing.T) {
	var c Chain[int]
	c.Register(Middleware[int]{
		Name: "pass",
		Wrap: func(e int, next func(int) error) error { return next(e + 1) },
	})
	boom := errors.New("boom")
	var seen int
	err := c.Dispatch(1, func(e int) error {
		seen = e
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, seen)
}
