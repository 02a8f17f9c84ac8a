package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/amirbrooks/boardmode/internal/arbiter"
	"github.com/amirbrooks/boardmode/internal/boardview"
	"github.com/amirbrooks/boardmode/internal/config"
	"github.com/amirbrooks/boardmode/internal/host"
	"github.com/amirbrooks/boardmode/internal/store"
	"github.com/amirbrooks/boardmode/internal/tui"
)

// withSession runs fn against a fresh session and always shuts it down.
func withSession(cmd *cobra.Command, gf *GlobalFlags, fn func(s *session, p *printer) error) error {
	s, err := openSession(cmd.Context(), gf, sessionOptions{stderr: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	err = fn(s, newPrinter(gf, cmd.OutOrStdout()))
	if cerr := s.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func newInitCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vault and its settings file",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			vault, err := store.Open(gf.Root)
			if err != nil {
				return err
			}
			if err := vault.Init(); err != nil {
				return fmt.Errorf("init: %w", err)
			}
			if _, err := os.Stat(config.Path(vault.Root)); errors.Is(err, os.ErrNotExist) {
				if err := config.Save(vault.Root, config.Default()); err != nil {
					return err
				}
			}
			newPrinter(gf, cmd.OutOrStdout()).success("Initialized boardmode vault at: %s", vault.Root)
			return nil
		},
	}
}

type paneRow struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	View string `json:"view"`
	Pane string `json:"pane"`
}

func newOpenCmd(gf *GlobalFlags) *cobra.Command {
	var render bool
	var width int
	cmd := &cobra.Command{
		Use:   "open <doc>...",
		Short: "Open documents the way the app would and report their mode",
		Args:  args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, docs []string) error {
			return withSession(cmd, gf, func(s *session, p *printer) error {
				var panes []*host.Pane
				for _, doc := range docs {
					pane, err := s.open(doc)
					if err != nil {
						return err
					}
					panes = append(panes, pane)
				}
				if err := s.settle(); err != nil {
					return err
				}

				var out []paneRow
				var bodies []string
				err := s.do(func(app *host.App) error {
					for _, pane := range panes {
						st := pane.State()
						mode, _ := arbiter.ModeOf(st.Type)
						out = append(out, paneRow{Path: st.File, Mode: string(mode), View: st.Type, Pane: pane.ID()})
						if render {
							bodies = append(bodies, renderPane(pane, width, p.plain || p.ascii, p.ascii))
						}
					}
					return nil
				})
				if err != nil {
					return err
				}

				if p.json {
					return p.encode(out)
				}
				rows := make([][]string, 0, len(out))
				for _, r := range out {
					rows = append(rows, []string{r.Path, p.modeName(r.View), r.Pane})
				}
				p.rows([]string{"PATH", "MODE", "PANE"}, rows)
				for i, body := range bodies {
					p.line("")
					p.line("%s", p.dim.Sprint("# "+out[i].Path))
					p.line("%s", body)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "print what each pane shows")
	cmd.Flags().IntVar(&width, "width", 0, "render width in columns (0 = unlimited)")
	return cmd
}

// renderPane draws a pane's view. Boards fall back to the indented text
// form when text is set.
func renderPane(pane *host.Pane, width int, text bool, ascii bool) string {
	v := pane.View()
	if v == nil {
		return ""
	}
	if bv, ok := v.(*boardview.View); ok && text && bv.Board() != nil {
		return strings.TrimRight(store.RenderPlain(bv.Board(), ascii), "\n")
	}
	return v.Render(width)
}

// runOnDoc opens doc and then executes command id against it.
func runOnDoc(s *session, doc string, id string) (before string, after string, err error) {
	pane, err := s.open(doc)
	if err != nil {
		return "", "", err
	}
	err = s.do(func(app *host.App) error {
		before = pane.State().Type
		if !app.Commands.IsEnabled(id) {
			return fmt.Errorf("%w: %s is not available for %s", host.ErrCommandDisabled, id, doc)
		}
		if err := app.Commands.Execute(id); err != nil {
			return err
		}
		after = pane.State().Type
		return nil
	})
	return before, after, err
}

func newToggleCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <doc>",
		Short: "Open a board document and switch it between board and markdown",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			return withSession(cmd, gf, func(s *session, p *printer) error {
				before, after, err := runOnDoc(s, a[0], arbiter.CommandToggleView)
				if err != nil {
					return err
				}
				p.line("%s: %s -> %s", a[0], p.modeName(before), p.modeName(after))
				return nil
			})
		},
	}
}

func newConvertCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <doc>",
		Short: "Turn an empty document into a board",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			return withSession(cmd, gf, func(s *session, p *printer) error {
				if _, _, err := runOnDoc(s, a[0], arbiter.CommandConvert); err != nil {
					return err
				}
				if err := s.settle(); err != nil {
					return err
				}
				p.success("Converted %s to a board", a[0])
				return nil
			})
		},
	}
}

func newNewCmd(gf *GlobalFlags) *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new board document",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, gf, func(s *session, p *printer) error {
				var created string
				err := s.do(func(app *host.App) error {
					if folder != "" && !app.Vault.IsFolder(folder) {
						return fmt.Errorf("%w: folder %s", store.ErrNotFound, folder)
					}
					before := len(app.Workspace.Panes())
					var err error
					if folder != "" {
						err = s.engine.NewBoard(folder)
					} else {
						err = app.Commands.Execute(arbiter.CommandCreateBoard)
					}
					if err != nil {
						return err
					}
					if len(app.Workspace.Panes()) == before {
						n, _ := app.Notices.Last()
						return errors.New(n.Message)
					}
					created = app.Workspace.ActiveFile()
					return nil
				})
				if err != nil {
					return err
				}
				if err := s.settle(); err != nil {
					return err
				}
				p.success("Created %s", created)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "folder to create the board in (default from settings)")
	return cmd
}

func newArchiveCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <doc>",
		Short: "Archive the completed cards of a board",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			return withSession(cmd, gf, func(s *session, p *printer) error {
				if _, _, err := runOnDoc(s, a[0], arbiter.CommandArchiveComplete); err != nil {
					return err
				}
				var msg string
				err := s.do(func(app *host.App) error {
					n, _ := app.Notices.Last()
					msg = n.Message
					return nil
				})
				if err != nil {
					return err
				}
				p.success("%s", msg)
				return nil
			})
		},
	}
}

type checkResult struct {
	Path        string   `json:"path"`
	Indexed     bool     `json:"indexed"`
	Declared    bool     `json:"declared"`
	DeclaredRaw bool     `json:"declared_raw"`
	Malformed   bool     `json:"malformed"`
	Size        int64    `json:"size"`
	Tags        []string `json:"tags"`
	OpensAs     string   `json:"opens_as"`
}

func newCheckCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check <doc>",
		Short: "Show what the app knows about a document and how it would open",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			doc := a[0]
			return withSession(cmd, gf, func(s *session, p *printer) error {
				var res checkResult
				err := s.do(func(app *host.App) error {
					text, err := app.Vault.Read(doc)
					if err != nil {
						return err
					}
					res.Path = doc
					res.DeclaredRaw = arbiter.DeclaresStructuredRaw(text)
					res.Declared = s.engine.Oracle().Declared(doc)
					if ann, ok := app.Metadata.GetCache(doc); ok {
						res.Indexed = true
						res.Malformed = ann.Malformed
						res.Size = ann.Size
						res.Tags = ann.Tags
					}
					pane, err := app.Workspace.OpenFile(doc)
					if err != nil {
						return err
					}
					mode, _ := arbiter.ModeOf(pane.State().Type)
					res.OpensAs = string(mode)
					return pane.Detach()
				})
				if err != nil {
					return err
				}
				if p.json {
					return p.encode(res)
				}
				p.rows([]string{"KEY", "VALUE"}, [][]string{
					{"path", res.Path},
					{"indexed", strconv.FormatBool(res.Indexed)},
					{"declared", strconv.FormatBool(res.Declared)},
					{"declared_raw", strconv.FormatBool(res.DeclaredRaw)},
					{"malformed", strconv.FormatBool(res.Malformed)},
					{"size", strconv.FormatInt(res.Size, 10)},
					{"tags", strings.Join(res.Tags, ",")},
					{"opens_as", p.modeName(arbiter.ViewType(arbiter.Mode(res.OpensAs)))},
				})
				return nil
			})
		},
	}
}

func newMenuCmd(gf *GlobalFlags) *cobra.Command {
	var pane bool
	cmd := &cobra.Command{
		Use:   "menu <path>",
		Short: "List the file menu of a document or folder",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			path := a[0]
			return withSession(cmd, gf, func(s *session, p *printer) error {
				var titles []string
				if pane {
					opened, err := s.open(path)
					if err != nil {
						return err
					}
					err = s.do(func(app *host.App) error {
						titles = app.Workspace.PaneMenu(opened).Titles()
						return nil
					})
					if err != nil {
						return err
					}
				} else {
					err := s.do(func(app *host.App) error {
						if _, err := app.Vault.Stat(path); err != nil {
							return err
						}
						titles = app.Workspace.FileMenu(path, host.SourceExplorer).Titles()
						return nil
					})
					if err != nil {
						return err
					}
				}
				if p.json {
					return p.encode(titles)
				}
				for _, t := range titles {
					p.line("%s", t)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pane, "pane", false, "show the open pane's more-options menu instead")
	return cmd
}

type commandRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

func newCommandsCmd(gf *GlobalFlags) *cobra.Command {
	var active string
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List registered commands and whether they are available",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, gf, func(s *session, p *printer) error {
				if active != "" {
					if _, err := s.open(active); err != nil {
						return err
					}
				}
				var out []commandRow
				err := s.do(func(app *host.App) error {
					for _, c := range app.Commands.List() {
						out = append(out, commandRow{ID: c.ID, Name: c.Name, Enabled: app.Commands.IsEnabled(c.ID)})
					}
					return nil
				})
				if err != nil {
					return err
				}
				if p.json {
					return p.encode(out)
				}
				rows := make([][]string, 0, len(out))
				for _, c := range out {
					rows = append(rows, []string{c.ID, strconv.FormatBool(c.Enabled), c.Name})
				}
				p.rows([]string{"ID", "ENABLED", "NAME"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&active, "active", "", "open this document first")
	return cmd
}

func newConfigCmd(gf *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change vault settings",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return usagef("config needs a subcommand: show or set")
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			vault, err := store.Open(gf.Root)
			if err != nil {
				return err
			}
			vals, err := config.Values(vault.Root)
			if err != nil {
				return err
			}
			p := newPrinter(gf, cmd.OutOrStdout())
			if p.json {
				return p.encode(map[string]any{"path": config.Path(vault.Root), "settings": vals})
			}
			if !p.plain {
				p.line("%s", p.dim.Sprint("# "+config.Path(vault.Root)))
			}
			var rows [][]string
			for _, k := range config.Keys() {
				rows = append(rows, []string{k, fmt.Sprint(vals[k])})
			}
			p.rows([]string{"KEY", "VALUE"}, rows)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  args(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, a []string) error {
			vault, err := store.Open(gf.Root)
			if err != nil {
				return err
			}
			key := strings.ToLower(strings.TrimSpace(a[0]))
			value := strings.TrimSpace(strings.Join(a[1:], " "))
			if _, err := config.Set(vault.Root, key, value); err != nil {
				return err
			}
			newPrinter(gf, cmd.OutOrStdout()).success("Updated %s", key)
			return nil
		},
	})
	return cmd
}

func newTUICmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Work with the vault interactively",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), gf, sessionOptions{watch: true, stderr: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			err = tui.Run(s.ctx, s.app,
				tea.WithAltScreen(),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			if cerr := s.close(); cerr != nil && err == nil {
				err = cerr
			}
			return err
		},
	}
}
