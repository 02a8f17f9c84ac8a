package host

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/store"
)

// CommandSearch is the host's own text search command.
const CommandSearch = "editor:open-search"

type Command struct {
	ID      string
	Name    string
	Enabled func() bool
	Run     func() error
}

// CommandEvent is dispatched through a command's chain twice per
// invocation: once with Checking set to decide enablement, once to run it.
type CommandEvent struct {
	ID       string
	Checking bool
}

type registeredCommand struct {
	cmd   Command
	chain Chain[CommandEvent]
}

type Commands struct {
	byID     map[string]*registeredCommand
	ready    bool
	builtins []Command
	onReady  []func()
	log      *zap.Logger
}

func NewCommands(logger *zap.Logger) *Commands {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Commands{byID: map[string]*registeredCommand{}, log: logger.Named("commands")}
}

// Add registers c and returns a func that removes it.
func (c *Commands) Add(cmd Command) (func(), error) {
	if cmd.ID == "" {
		return nil, fmt.Errorf("%w: command id is required", store.ErrInvalid)
	}
	if _, ok := c.byID[cmd.ID]; ok {
		return nil, fmt.Errorf("%w: command %s already registered", store.ErrConflict, cmd.ID)
	}
	rc := &registeredCommand{cmd: cmd}
	c.byID[cmd.ID] = rc
	return func() {
		if c.byID[cmd.ID] == rc {
			delete(c.byID, cmd.ID)
		}
	}, nil
}

func (c *Commands) Get(id string) (Command, bool) {
	rc, ok := c.byID[id]
	if !ok {
		return Command{}, false
	}
	return rc.cmd, true
}

func (c *Commands) List() []Command {
	out := make([]Command, 0, len(c.byID))
	for _, rc := range c.byID {
		out = append(out, rc.cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Commands) IsEnabled(id string) bool {
	rc, ok := c.byID[id]
	if !ok {
		return false
	}
	return rc.chain.Dispatch(CommandEvent{ID: id, Checking: true}, rc.final) == nil
}

// Execute runs the command if it is currently enabled.
func (c *Commands) Execute(id string) error {
	rc, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	if !c.IsEnabled(id) {
		return fmt.Errorf("%w: %s", ErrCommandDisabled, id)
	}
	c.log.Debug("execute", zap.String("command", id))
	return rc.chain.Dispatch(CommandEvent{ID: id}, rc.final)
}

func (rc *registeredCommand) final(e CommandEvent) error {
	if e.Checking {
		if rc.cmd.Enabled != nil && !rc.cmd.Enabled() {
			return ErrCommandDisabled
		}
		return nil
	}
	if rc.cmd.Run == nil {
		return nil
	}
	return rc.cmd.Run()
}

// Intercept puts mw in front of the command's own check and run. Host
// commands only exist once the registry is ready.
func (c *Commands) Intercept(id string, mw Middleware[CommandEvent]) (func(), error) {
	if !c.ready {
		return nil, fmt.Errorf("%w: intercept %s", ErrNotReady, id)
	}
	rc, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, id)
	}
	return rc.chain.Register(mw), nil
}

// OnReady runs fn once the registry is ready, immediately if it already is.
func (c *Commands) OnReady(fn func()) {
	if c.ready {
		fn()
		return
	}
	c.onReady = append(c.onReady, fn)
}

func (c *Commands) Ready() bool { return c.ready }

// MarkReady creates the host's built-in commands and then fires the
// readiness callbacks. Later calls do nothing.
func (c *Commands) MarkReady() {
	if c.ready {
		return
	}
	for _, cmd := range c.builtins {
		if _, err := c.Add(cmd); err != nil {
			c.log.Warn("built-in command", zap.String("command", cmd.ID), zap.Error(err))
		}
	}
	c.ready = true
	pending := c.onReady
	c.onReady = nil
	for _, fn := range pending {
		fn()
	}
}

func (c *Commands) addBuiltin(cmd Command) {
	c.builtins = append(c.builtins, cmd)
}
