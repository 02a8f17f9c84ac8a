package host

import (
	"time"

	"go.uber.org/zap"
)

const maxNotices = 50

type Notice struct {
	At      time.Time
	Message string
}

// Notices keeps the most recent user-facing messages.
type Notices struct {
	items []Notice
	log   *zap.Logger
}

func NewNotices(logger *zap.Logger) *Notices {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notices{log: logger.Named("notice")}
}

func (n *Notices) Notify(msg string) {
	n.log.Info(msg)
	n.items = append(n.items, Notice{At: time.Now().UTC(), Message: msg})
	if len(n.items) > maxNotices {
		n.items = append([]Notice(nil), n.items[len(n.items)-maxNotices:]...)
	}
}

func (n *Notices) List() []Notice {
	return append([]Notice(nil), n.items...)
}

func (n *Notices) Last() (Notice, bool) {
	if len(n.items) == 0 {
		return Notice{}, false
	}
	return n.items[len(n.items)-1], true
}
