// Package tui is an interactive terminal front-end over a running host app.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amirbrooks/boardmode/internal/arbiter"
	"github.com/amirbrooks/boardmode/internal/boardview"
	"github.com/amirbrooks/boardmode/internal/host"
)

// Runner executes fn on the app's loop and returns its error.
type Runner func(fn func(app *host.App) error) error

const doneTimeout = 2 * time.Second

type prompt int

const (
	promptNone prompt = iota
	promptOpen
	promptSearch
)

// changedMsg is delivered when a document's annotations were recomputed.
type changedMsg struct{ Path string }

type paneInfo struct {
	Type   string
	File   string
	Active bool
}

// snapshot is what the model knows about the app. It is copied out of the
// loop so the model never touches app state directly.
type snapshot struct {
	Panes     []paneInfo
	Body      string
	Notice    string
	Searching bool
	Query     string
	Matches   int
}

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle = tabStyle.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type Model struct {
	run    Runner
	keys   keyMap
	input  textinput.Model
	prompt prompt
	width  int
	height int
	snap   snapshot
	status string
	err    error
}

func New(run Runner) Model {
	ti := textinput.New()
	ti.CharLimit = 256
	m := Model{run: run, keys: defaultKeys(), input: ti, width: 100, height: 30}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.refresh()
		return m, nil
	case changedMsg:
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.endPrompt()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		value := strings.TrimSpace(m.input.Value())
		kind := m.prompt
		m.endPrompt()
		switch kind {
		case promptOpen:
			if value == "" {
				return m, nil
			}
			m.do("opened "+value, func(app *host.App) error {
				_, err := app.Workspace.OpenFile(value)
				return err
			})
		case promptSearch:
			m.do("", func(app *host.App) error {
				v, ok := app.Workspace.ActiveView().(*boardview.View)
				if !ok {
					return errors.New("active pane is not a board")
				}
				v.SetQuery(value)
				return nil
			})
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Open):
		m.startPrompt(promptOpen, "open: ")
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Toggle):
		m.execute(arbiter.CommandToggleView)
	case key.Matches(msg, m.keys.New):
		m.execute(arbiter.CommandCreateBoard)
	case key.Matches(msg, m.keys.Convert):
		m.execute(arbiter.CommandConvert)
	case key.Matches(msg, m.keys.Archive):
		m.execute(arbiter.CommandArchiveComplete)
	case key.Matches(msg, m.keys.Search):
		m.execute(host.CommandSearch)
		if m.err == nil && m.snap.Searching && m.activeType() == boardview.Type {
			m.startPrompt(promptSearch, "search: ")
			m.input.SetValue(m.snap.Query)
			return m, textinput.Blink
		}
	case key.Matches(msg, m.keys.Close):
		m.do("closed", func(app *host.App) error {
			p := app.Workspace.Active()
			if p == nil {
				return errors.New("no pane open")
			}
			return p.Detach()
		})
	case key.Matches(msg, m.keys.Next):
		m.do("", func(app *host.App) error {
			panes := app.Workspace.Panes()
			if len(panes) < 2 {
				return nil
			}
			for i, p := range panes {
				if p == app.Workspace.Active() {
					app.Workspace.SetActive(panes[(i+1)%len(panes)])
					return nil
				}
			}
			app.Workspace.SetActive(panes[0])
			return nil
		})
	case key.Matches(msg, m.keys.Reload):
		m.do("reloading", func(app *host.App) error {
			file := app.Workspace.ActiveFile()
			if file == "" {
				return errors.New("no document open")
			}
			app.ExternalChange(file)
			return nil
		})
	}
	return m, nil
}

func (m *Model) startPrompt(p prompt, label string) {
	m.prompt = p
	m.input.Prompt = label
	m.input.SetValue("")
	m.input.Focus()
}

func (m *Model) endPrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) execute(id string) {
	m.do(id, func(app *host.App) error { return app.Commands.Execute(id) })
}

// do runs fn on the loop, records the outcome in the status line and
// refreshes the snapshot.
func (m *Model) do(status string, fn func(app *host.App) error) {
	m.err = m.run(fn)
	if m.err == nil {
		m.status = status
	} else {
		m.status = ""
	}
	m.refresh()
}

func (m *Model) refresh() {
	width := m.width
	var snap snapshot
	err := m.run(func(app *host.App) error {
		active := app.Workspace.Active()
		for _, p := range app.Workspace.Panes() {
			st := p.State()
			snap.Panes = append(snap.Panes, paneInfo{Type: st.Type, File: st.File, Active: p == active})
		}
		if v := app.Workspace.ActiveView(); v != nil {
			snap.Body = v.Render(width)
		}
		switch v := app.Workspace.ActiveView().(type) {
		case *boardview.View:
			snap.Searching, snap.Query, snap.Matches = v.Searching(), v.Query(), len(v.Matches())
		case *host.MarkdownView:
			snap.Searching = v.Searching()
		}
		if n, ok := app.Notices.Last(); ok {
			snap.Notice = n.Message
		}
		return nil
	})
	if err != nil {
		m.err = err
		return
	}
	m.snap = snap
}

func (m Model) activeType() string {
	for _, p := range m.snap.Panes {
		if p.Active {
			return p.Type
		}
	}
	return ""
}

func (m Model) View() string {
	var b strings.Builder

	var tabs []string
	for _, p := range m.snap.Panes {
		label := fmt.Sprintf("%s [%s]", path.Base(p.File), p.Type)
		if p.File == "" {
			label = p.Type
		}
		if p.Active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	if len(tabs) == 0 {
		tabs = append(tabs, tabStyle.Render("no panes"))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	if m.snap.Body != "" {
		b.WriteString(m.snap.Body)
		b.WriteString("\n\n")
	}
	if m.snap.Searching {
		line := "search on"
		if m.snap.Query != "" {
			line = fmt.Sprintf("search %q: %d match(es)", m.snap.Query, m.snap.Matches)
		}
		b.WriteString(statusStyle.Render(line) + "\n")
	}
	if m.prompt != promptNone {
		b.WriteString(m.input.View() + "\n")
	}
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	case m.snap.Notice != "":
		b.WriteString(noticeStyle.Render(m.snap.Notice) + "\n")
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(statusStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) helpLine() string {
	var parts []string
	for _, k := range m.keys.help() {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

// Run shows the TUI until the user quits or ctx is done. The app's loop
// must already be running.
func Run(ctx context.Context, app *host.App, opts ...tea.ProgramOption) error {
	run := func(fn func(app *host.App) error) error {
		return app.Loop.Do(ctx, func() error { return fn(app) })
	}
	p := tea.NewProgram(New(run), append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	var unsubscribe func()
	if err := run(func(app *host.App) error {
		unsubscribe = app.OnMetadataChanged(func(path string) {
			// Send blocks until the program reads it; the loop must not.
			go p.Send(changedMsg{Path: path})
		})
		return nil
	}); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), doneTimeout)
		defer cancel()
		_ = app.Loop.Do(ctx, func() error { unsubscribe(); return nil })
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
