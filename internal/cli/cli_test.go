package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/amirbrooks/boardmode/internal/arbiter"
	"github.com/amirbrooks/boardmode/internal/config"
	"github.com/amirbrooks/boardmode/internal/host"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const boardDoc = "---\n\nkanban-plugin: basic\n\n---\n\n## Todo\n\n- [ ] first #a\n- [x] done\n"

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, root string, a ...string) result {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(context.Background(), append([]string{"--root", root}, a...), &out, &errb)
	return result{code: code, stdout: out.String(), stderr: errb.String()}
}

// newVault initializes a vault and writes files into it.
func newVault(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "vault")
	r := runCLI(t, root, "init")
	require.Equal(t, ExitOK, r.code, r.stderr)
	for p, text := range files {
		abs := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(text), 0o644))
	}
	return root
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestInit(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vault")
	r := runCLI(t, root, "init")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Initialized boardmode vault at: "+root)
	_, err := os.Stat(config.Path(root))
	assert.NoError(t, err)

	r = runCLI(t, root, "init")
	assert.Equal(t, ExitOK, r.code)
}

func TestUsageErrors(t *testing.T) {
	root := newVault(t, nil)
	cases := map[string][]string{
		"no command":      nil,
		"unknown command": {"frobnicate"},
		"unknown flag":    {"open", "--nope", "a.md"},
		"missing args":    {"toggle"},
		"extra args":      {"new", "x"},
		"config no sub":   {"config"},
	}
	for name, a := range cases {
		t.Run(name, func(t *testing.T) {
			r := runCLI(t, root, a...)
			assert.Equal(t, ExitUsage, r.code, r.stderr)
		})
	}
}

func TestMissingVaultAndDocument(t *testing.T) {
	r := runCLI(t, filepath.Join(t.TempDir(), "nowhere"), "open", "a.md")
	assert.Equal(t, ExitNotFound, r.code)
	assert.Contains(t, r.stderr, "boardmode init")

	root := newVault(t, nil)
	r = runCLI(t, root, "open", "missing.md")
	assert.Equal(t, ExitNotFound, r.code)
}

func TestOpenReportsModes(t *testing.T) {
	root := newVault(t, map[string]string{"Y.md": boardDoc, "notes/X.md": "plain"})
	r := runCLI(t, root, "--plain", "open", "Y.md", "notes/X.md")
	require.Equal(t, ExitOK, r.code, r.stderr)

	out := lines(r.stdout)
	require.Len(t, out, 2)
	y := strings.Split(out[0], "\t")
	x := strings.Split(out[1], "\t")
	assert.Equal(t, []string{"Y.md", string(arbiter.Structured)}, y[:2])
	assert.True(t, strings.HasPrefix(y[2], "pane_"))
	assert.Equal(t, []string{"notes/X.md", string(arbiter.Raw)}, x[:2])
}

func TestOpenRender(t *testing.T) {
	root := newVault(t, map[string]string{"Y.md": boardDoc})
	r := runCLI(t, root, "--plain", "--ascii", "open", "--render", "Y.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "# Y.md")
	assert.Contains(t, r.stdout, "Todo (2)")
	assert.Contains(t, r.stdout, "[ ] first")
	assert.Contains(t, r.stdout, "[x] done")
}

func TestOpenJSON(t *testing.T) {
	root := newVault(t, map[string]string{"Y.md": boardDoc})
	r := runCLI(t, root, "--json", "open", "Y.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	var rows []paneRow
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "kanban", rows[0].View)
}

func TestToggle(t *testing.T) {
	root := newVault(t, map[string]string{"Y.md": boardDoc, "X.md": "plain"})
	r := runCLI(t, root, "--plain", "toggle", "Y.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, "Y.md: structured -> raw\n", r.stdout)

	r = runCLI(t, root, "toggle", "X.md")
	assert.Equal(t, ExitConflict, r.code)
	assert.Contains(t, r.stderr, arbiter.CommandToggleView)
}

func TestConvertThenCheck(t *testing.T) {
	root := newVault(t, map[string]string{"empty.md": "", "full.md": "text"})
	r := runCLI(t, root, "convert", "empty.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	b, err := os.ReadFile(filepath.Join(root, "empty.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "---\n\nkanban-plugin: basic\n"))

	r = runCLI(t, root, "--json", "check", "empty.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	var res checkResult
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &res))
	assert.True(t, res.Indexed)
	assert.True(t, res.Declared)
	assert.True(t, res.DeclaredRaw)
	assert.Equal(t, string(arbiter.Structured), res.OpensAs)

	r = runCLI(t, root, "convert", "full.md")
	assert.Equal(t, ExitConflict, r.code)
}

func TestNewBoard(t *testing.T) {
	root := newVault(t, map[string]string{"Boards/keep.md": "x"})
	r := runCLI(t, root, "--plain", "new", "--folder", "Boards")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, "Created Boards/Untitled Kanban.md\n", r.stdout)

	r = runCLI(t, root, "--plain", "new", "--folder", "Boards")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, "Created Boards/Untitled Kanban 1.md\n", r.stdout)

	r = runCLI(t, root, "--plain", "new")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, "Created Untitled Kanban.md\n", r.stdout)

	r = runCLI(t, root, "new", "--folder", "missing")
	assert.Equal(t, ExitNotFound, r.code)
}

func TestArchive(t *testing.T) {
	root := newVault(t, map[string]string{"Y.md": boardDoc, "X.md": "plain"})
	r := runCLI(t, root, "--plain", "archive", "Y.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, "Archived 1 card(s)\n", r.stdout)
	b, err := os.ReadFile(filepath.Join(root, "Y.md"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "## Archive")

	r = runCLI(t, root, "archive", "X.md")
	assert.Equal(t, ExitConflict, r.code)
}

func TestMenus(t *testing.T) {
	root := newVault(t, map[string]string{"Y.md": boardDoc, "F/a.md": ""})
	r := runCLI(t, root, "menu", "Y.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, []string{"Open", arbiter.MenuOpenAsBoard}, lines(r.stdout))

	r = runCLI(t, root, "menu", "F")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, []string{arbiter.MenuNewBoard}, lines(r.stdout))

	r = runCLI(t, root, "menu", "--pane", "Y.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Equal(t, []string{arbiter.MenuOpenAsRaw, "Close"}, lines(r.stdout))

	r = runCLI(t, root, "menu", "nothing.md")
	assert.Equal(t, ExitNotFound, r.code)
}

func TestCommandsList(t *testing.T) {
	root := newVault(t, map[string]string{"Y.md": boardDoc})
	r := runCLI(t, root, "--json", "commands", "--active", "Y.md")
	require.Equal(t, ExitOK, r.code, r.stderr)
	var rows []commandRow
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &rows))

	enabled := map[string]bool{}
	for _, c := range rows {
		enabled[c.ID] = c.Enabled
	}
	assert.True(t, enabled[arbiter.CommandToggleView])
	assert.True(t, enabled[arbiter.CommandArchiveComplete])
	assert.True(t, enabled[arbiter.CommandCreateBoard])
	assert.False(t, enabled[arbiter.CommandConvert])
	assert.True(t, enabled[host.CommandSearch])
}

func TestConfigShowAndSet(t *testing.T) {
	root := newVault(t, nil)
	r := runCLI(t, root, "config", "set", "lane_width", "40")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Updated lane_width")

	r = runCLI(t, root, "--plain", "config", "show")
	require.Equal(t, ExitOK, r.code, r.stderr)
	assert.Contains(t, lines(r.stdout), "lane_width\t40")

	r = runCLI(t, root, "config", "set", "lane_width", "3")
	assert.Equal(t, ExitUsage, r.code)
	r = runCLI(t, root, "config", "set", "nope", "1")
	assert.Equal(t, ExitUsage, r.code)
	r = runCLI(t, root, "config", "set", "new_file_location", "current")
	assert.Equal(t, ExitOK, r.code, r.stderr)
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitOK, exitCode(nil))
	assert.Equal(t, ExitUsage, exitCode(usagef("bad")))
	assert.Equal(t, ExitConflict, exitCode(host.ErrCommandDisabled))
	assert.Equal(t, ExitInternal, exitCode(os.ErrPermission))
}
