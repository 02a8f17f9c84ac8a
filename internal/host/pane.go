package host

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Transition is a request to put State into Pane.
type Transition struct {
	Pane  *Pane
	State ViewState
}

// Detach is sent when a pane is about to close. Last is its final state.
type Detach struct {
	Pane *Pane
	Last ViewState
}

// Pane is one open editing surface. It shows one view at a time.
type Pane struct {
	ws       *Workspace
	id       string
	state    ViewState
	view     View
	detached bool
}

// ID is empty until the pane commits its first state.
func (p *Pane) ID() string { return p.id }

func (p *Pane) State() ViewState { return p.state }

func (p *Pane) View() View { return p.view }

func (p *Pane) Detached() bool { return p.detached }

// SetState asks the pane to show s. The request runs through the
// workspace's transition chain first.
func (p *Pane) SetState(s ViewState) error {
	if p.detached {
		return ErrDetached
	}
	return p.ws.Transitions.Dispatch(Transition{Pane: p, State: s}, p.commit)
}

func (p *Pane) commit(t Transition) error {
	if p.detached {
		return ErrDetached
	}
	v, err := p.ws.views.create(t.State.Type, p)
	if err != nil {
		return err
	}
	if err := v.Load(t.State); err != nil {
		v.Close()
		return fmt.Errorf("load %s view: %w", t.State.Type, err)
	}
	if p.view != nil {
		p.view.Close()
	}
	p.view = v
	p.state = t.State
	if p.id == "" {
		p.id = newPaneID()
	}
	p.ws.active = p
	p.ws.log.Debug("pane state committed",
		zap.String("pane", p.id),
		zap.String("type", t.State.Type),
		zap.String("file", t.State.File),
	)
	return nil
}

// Detach closes the pane. The detach chain runs before the pane is removed.
func (p *Pane) Detach() error {
	if p.detached {
		return nil
	}
	return p.ws.Detaches.Dispatch(Detach{Pane: p, Last: p.state}, func(d Detach) error {
		p.ws.remove(p)
		return nil
	})
}

func newPaneID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return fmt.Sprintf("pane_%d", time.Now().UnixNano())
	}
	return "pane_" + strings.ToUpper(id.String())
}
