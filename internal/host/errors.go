package host

import "errors"

var (
	ErrUnknownView     = errors.New("unknown view type")
	ErrNotReady        = errors.New("command registry not ready")
	ErrCommandDisabled = errors.New("command disabled")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrDetached        = errors.New("pane detached")
)
