// Package boardview is the structured view of a board document: lanes of
// cards rendered side by side, with search and archiving.
package boardview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/amirbrooks/boardmode/internal/host"
	"github.com/amirbrooks/boardmode/internal/store"
)

// Type is the view type registered with the host.
const Type = "kanban"

type Options struct {
	LaneWidth   int
	MaxDistance int
}

// Match is one card that satisfies the current search query.
type Match struct {
	Lane string
	Item store.Item
}

type View struct {
	vault    *store.Vault
	options  func() Options
	log      *zap.Logger
	path     string
	text     string
	board    *store.Board
	parseErr error

	searching bool
	query     string
	renders   int
}

// New returns a view that reads its lane width and search distance from
// options on every render, so settings changes apply without reloading.
func New(vault *store.Vault, options func() Options, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{vault: vault, options: options, log: logger.Named("boardview")}
}

// Factory adapts New to the host's view registry.
func Factory(vault *store.Vault, options func() Options, logger *zap.Logger) host.ViewFactory {
	return func(*host.Pane) host.View { return New(vault, options, logger) }
}

func (v *View) Type() string { return Type }

func (v *View) Load(state host.ViewState) error {
	if strings.TrimSpace(state.File) == "" {
		return fmt.Errorf("%w: board view needs a document", store.ErrInvalid)
	}
	text, err := v.vault.Read(state.File)
	if err != nil {
		return err
	}
	v.path = state.File
	v.SetViewData(text, true)
	return nil
}

func (v *View) Path() string { return v.path }

func (v *View) Data() string { return v.text }

// Board is the last successfully parsed board, or nil.
func (v *View) Board() *store.Board { return v.board }

func (v *View) ParseError() error { return v.parseErr }

func (v *View) Renders() int { return v.renders }

func (v *View) Close() {}

// SetViewData replaces the document text and rebuilds the board. clear
// also resets search state.
func (v *View) SetViewData(text string, clear bool) {
	v.text = text
	if clear {
		v.searching = false
		v.query = ""
	}
	b, err := store.ParseBoard(text)
	if err != nil {
		v.parseErr = err
		v.log.Debug("parse board", zap.String("path", v.path), zap.Error(err))
	} else {
		v.board = b
		v.parseErr = nil
	}
	v.renders++
}

// OnFileMetadataChange re-reads the document when path is the one this
// view shows. Other paths are ignored.
func (v *View) OnFileMetadataChange(path string) {
	if path != v.path {
		return
	}
	text, err := v.vault.Read(v.path)
	if err != nil {
		v.log.Warn("reload board", zap.String("path", v.path), zap.Error(err))
		return
	}
	v.SetViewData(text, false)
}

func (v *View) ToggleSearch() {
	v.searching = !v.searching
	if !v.searching {
		v.query = ""
	}
}

func (v *View) Searching() bool { return v.searching }

func (v *View) Query() string { return v.query }

func (v *View) SetQuery(q string) {
	v.query = strings.TrimSpace(q)
}

// Matches returns the cards matching the query: a #tag query matches tags,
// anything else matches by substring or by edit distance against single
// words of the card title.
func (v *View) Matches() []Match {
	if v.board == nil || v.query == "" {
		return nil
	}
	maxDist := v.opts().MaxDistance
	var out []Match
	for _, l := range v.board.Lanes {
		for _, it := range l.Items {
			if matches(v.query, it, maxDist) {
				out = append(out, Match{Lane: l.Title, Item: it})
			}
		}
	}
	return out
}

func matches(query string, it store.Item, maxDist int) bool {
	q := strings.ToLower(query)
	if strings.HasPrefix(q, "#") {
		want := strings.TrimPrefix(q, "#")
		for _, tag := range it.Tags() {
			if strings.ToLower(tag) == want {
				return true
			}
		}
		return false
	}
	text := strings.ToLower(it.Text)
	if strings.Contains(text, q) {
		return true
	}
	if strings.Contains(q, " ") {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(it.Title())) {
		word = strings.Trim(word, ".,;:!?()[]")
		if levenshtein.ComputeDistance(word, q) <= maxDist {
			return true
		}
	}
	return false
}

// ArchiveCompletedCards moves checked cards to the archive section and
// writes the document back. It returns the number of cards moved.
func (v *View) ArchiveCompletedCards() (int, error) {
	if v.parseErr != nil {
		return 0, v.parseErr
	}
	if v.board == nil {
		return 0, nil
	}
	b, err := store.ParseBoard(v.text)
	if err != nil {
		return 0, err
	}
	n := b.ArchiveCompleted()
	if n == 0 {
		return 0, nil
	}
	text := b.Markdown()
	if err := v.vault.Modify(v.path, text); err != nil {
		return 0, err
	}
	v.SetViewData(text, false)
	v.log.Info("archived completed cards", zap.String("path", v.path), zap.Int("count", n))
	return n, nil
}

func (v *View) opts() Options {
	o := Options{LaneWidth: 28, MaxDistance: 2}
	if v.options != nil {
		o = v.options()
	}
	if o.LaneWidth < 10 {
		o.LaneWidth = 10
	}
	return o
}

// Render draws the lanes side by side. width limits how many lanes fit;
// zero means no limit.
func (v *View) Render(width int) string {
	if v.parseErr != nil && v.board == nil {
		return "Error parsing board: " + v.parseErr.Error()
	}
	if v.board == nil || len(v.board.Lanes) == 0 {
		return lipgloss.NewStyle().Faint(true).Render("(empty board)")
	}
	o := v.opts()
	matched := map[string]bool{}
	if v.searching {
		for _, m := range v.Matches() {
			matched[m.Lane+"\x00"+m.Item.Text] = true
		}
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Width(o.LaneWidth).Align(lipgloss.Center).
		Border(lipgloss.NormalBorder(), false, false, true, false)
	cardStyle := lipgloss.NewStyle().Width(o.LaneWidth).PaddingLeft(1)
	hitStyle := cardStyle.Reverse(true)
	laneStyle := lipgloss.NewStyle().MarginRight(2)

	var lanes []string
	used := 0
	for _, l := range v.board.Lanes {
		if width > 0 && used > 0 && used+o.LaneWidth+2 > width {
			break
		}
		cards := []string{headerStyle.Render(fmt.Sprintf("%s (%d)", l.Title, len(l.Items)))}
		for _, it := range l.Items {
			mark := "[ ]"
			if it.Checked {
				mark = "[x]"
			}
			style := cardStyle
			if matched[l.Title+"\x00"+it.Text] {
				style = hitStyle
			}
			cards = append(cards, style.Render(mark+" "+it.Title()))
		}
		lanes = append(lanes, laneStyle.Render(lipgloss.JoinVertical(lipgloss.Left, cards...)))
		used += o.LaneWidth + 2
	}
	out := lipgloss.JoinHorizontal(lipgloss.Top, lanes...)
	if v.searching {
		out = lipgloss.JoinVertical(lipgloss.Left, "search: "+v.query, out)
	}
	return out
}

// Tags lists every tag used on the board with its card count.
func (v *View) Tags() map[string]int {
	out := map[string]int{}
	if v.board == nil {
		return out
	}
	for _, l := range v.board.Lanes {
		for _, it := range l.Items {
			for _, tag := range it.Tags() {
				out[tag]++
			}
		}
	}
	return out
}

// LaneTitles returns lane titles in document order.
func (v *View) LaneTitles() []string {
	if v.board == nil {
		return nil
	}
	out := make([]string, 0, len(v.board.Lanes))
	for _, l := range v.board.Lanes {
		out = append(out, l.Title)
	}
	return out
}

// SortedTags returns the board's tags alphabetically.
func (v *View) SortedTags() []string {
	tags := v.Tags()
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
