package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/amirbrooks/boardmode/internal/host"
	"github.com/amirbrooks/boardmode/internal/store"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitInternal = 10
)

type GlobalFlags struct {
	Root    string
	JSON    bool
	Plain   bool
	ASCII   bool
	Verbose bool
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func defaultRoot() string {
	if env := os.Getenv("BOARDMODE_ROOT"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return ".boardmode"
	}
	return filepath.Join(home, ".boardmode")
}

func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	gf := &GlobalFlags{}
	root := newRootCmd(gf, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	code := exitCode(err)
	prefix := color.New(color.FgRed, color.Bold)
	if gf.Plain {
		prefix.DisableColor()
	}
	fmt.Fprintln(stderr, prefix.Sprint("boardmode:"), err)
	if code == ExitUsage {
		fmt.Fprintln(stderr, "Run 'boardmode --help' for usage.")
	}
	return code
}

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue),
		errors.Is(err, store.ErrInvalid),
		errors.Is(err, host.ErrUnknownCommand),
		strings.HasPrefix(err.Error(), "unknown command"),
		strings.HasPrefix(err.Error(), "unknown flag"),
		strings.HasPrefix(err.Error(), "unknown shorthand flag"):
		return ExitUsage
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, host.ErrCommandDisabled):
		return ExitConflict
	default:
		return ExitInternal
	}
}

func newRootCmd(gf *GlobalFlags, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "boardmode",
		Short:         "Open markdown documents as boards or as raw text",
		Long:          "boardmode keeps a vault of markdown documents and opens each one either\nas a kanban board or as raw markdown, following the document's annotation\nand your explicit choices.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usagef("missing command")
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	pf := root.PersistentFlags()
	pf.StringVar(&gf.Root, "root", defaultRoot(), "vault root (env BOARDMODE_ROOT)")
	pf.BoolVar(&gf.Verbose, "verbose", false, "log debug output to stderr")
	pf.BoolVar(&gf.Plain, "plain", false, "tab-separated output without colour")
	pf.BoolVar(&gf.ASCII, "ascii", false, "ASCII-only output")
	pf.BoolVar(&gf.JSON, "json", false, "JSON output where supported")

	root.AddCommand(
		newInitCmd(gf),
		newOpenCmd(gf),
		newToggleCmd(gf),
		newConvertCmd(gf),
		newNewCmd(gf),
		newArchiveCmd(gf),
		newCheckCmd(gf),
		newMenuCmd(gf),
		newCommandsCmd(gf),
		newConfigCmd(gf),
		newTUICmd(gf),
	)
	return root
}

// args wraps a cobra validator so its failures map to the usage exit code.
func args(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := v(cmd, a); err != nil {
			return usageError{err}
		}
		return nil
	}
}
