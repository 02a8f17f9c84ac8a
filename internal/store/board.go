package store

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ArchiveHeading = "Archive"
	archiveMarker  = "***"
	settingsOpen   = "%% kanban:settings"
	settingsClose  = "%%"
)

type Item struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Title is the first line of the item text.
func (it Item) Title() string {
	title, _, _ := strings.Cut(it.Text, "\n")
	return strings.TrimSpace(title)
}

func (it Item) Tags() []string {
	return ExtractInlineTags(it.Text)
}

type Lane struct {
	Title string   `json:"title"`
	Items []Item   `json:"items"`
	Notes []string `json:"notes,omitempty"`
}

// Board is the structured form of a board document: lanes of checklist
// items, an archive section after a `***` rule, and an opaque settings block.
type Board struct {
	Frontmatter string   `json:"-"`
	Preamble    []string `json:"preamble,omitempty"`
	Lanes       []Lane   `json:"lanes"`
	Archive     Lane     `json:"archive"`
	Settings    string   `json:"-"`
}

func ParseBoard(text string) (*Board, error) {
	block, body, err := SplitFrontmatter(text)
	if err != nil && !errors.Is(err, ErrNoFrontmatter) {
		return nil, err
	}
	b := &Board{Frontmatter: block, Archive: Lane{Title: ArchiveHeading}}

	lines := strings.Split(body, "\n")
	lane := -1
	afterMarker := false
	inArchive := false
	var fence fenceState

	current := func() *Lane {
		if inArchive {
			return &b.Archive
		}
		if lane >= 0 {
			return &b.Lanes[lane]
		}
		return nil
	}
	lastItem := func() *Item {
		l := current()
		if l == nil || len(l.Items) == 0 {
			return nil
		}
		return &l.Items[len(l.Items)-1]
	}
	keep := func(line string) {
		if it := lastItem(); it != nil {
			it.Text += "\n" + strings.TrimLeft(line, " \t")
			return
		}
		if l := current(); l != nil {
			l.Notes = append(l.Notes, line)
			return
		}
		b.Preamble = append(b.Preamble, line)
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if fence.step(line) {
			keep(line)
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case trimmed == settingsOpen:
			j := i
			for j < len(lines) && !(j > i && strings.TrimSpace(lines[j]) == settingsClose) {
				j++
			}
			if j == len(lines) {
				return nil, fmt.Errorf("%w: unterminated board settings", ErrInvalid)
			}
			b.Settings = strings.Join(lines[i:j+1], "\n")
			i = j
		case trimmed == archiveMarker:
			afterMarker = true
		case isHeadingLine(line) && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t"):
			title, _ := headingText(line)
			if afterMarker && title == ArchiveHeading {
				inArchive = true
				continue
			}
			inArchive = false
			b.Lanes = append(b.Lanes, Lane{Title: title})
			lane = len(b.Lanes) - 1
		default:
			if it, ok := parseItemLine(line); ok {
				if l := current(); l != nil {
					l.Items = append(l.Items, it)
					continue
				}
			}
			keep(line)
		}
	}
	return b, nil
}

func parseItemLine(line string) (Item, bool) {
	if !strings.HasPrefix(line, "- [") || len(line) < 6 || line[4] != ']' {
		return Item{}, false
	}
	mark := line[3]
	if mark != ' ' && mark != 'x' && mark != 'X' {
		return Item{}, false
	}
	return Item{Text: strings.TrimSpace(line[5:]), Checked: mark != ' '}, true
}

// Markdown serializes the board back into its document form.
func (b *Board) Markdown() string {
	var sb strings.Builder
	if b.Frontmatter != "" {
		sb.WriteString("---\n")
		sb.WriteString(b.Frontmatter)
		sb.WriteString("\n---\n\n")
	}
	for _, line := range b.Preamble {
		sb.WriteString(line + "\n")
	}
	if len(b.Preamble) > 0 {
		sb.WriteString("\n")
	}
	for _, l := range b.Lanes {
		writeLane(&sb, l)
	}
	if len(b.Archive.Items) > 0 || len(b.Archive.Notes) > 0 {
		sb.WriteString(archiveMarker + "\n\n")
		writeLane(&sb, Lane{Title: ArchiveHeading, Items: b.Archive.Items, Notes: b.Archive.Notes})
	}
	if b.Settings != "" {
		sb.WriteString("\n" + b.Settings + "\n")
	}
	return sb.String()
}

func writeLane(sb *strings.Builder, l Lane) {
	sb.WriteString("## " + l.Title + "\n\n")
	for _, note := range l.Notes {
		sb.WriteString(note + "\n")
	}
	for _, it := range l.Items {
		mark := " "
		if it.Checked {
			mark = "x"
		}
		text := strings.ReplaceAll(it.Text, "\n", "\n    ")
		sb.WriteString(fmt.Sprintf("- [%s] %s\n", mark, text))
	}
	sb.WriteString("\n\n")
}

// ArchiveCompleted moves every checked item out of the lanes into the
// archive section, keeping lane order. It returns the number moved.
func (b *Board) ArchiveCompleted() int {
	moved := 0
	for i := range b.Lanes {
		kept := b.Lanes[i].Items[:0]
		for _, it := range b.Lanes[i].Items {
			if it.Checked {
				b.Archive.Items = append(b.Archive.Items, it)
				moved++
				continue
			}
			kept = append(kept, it)
		}
		b.Lanes[i].Items = kept
	}
	return moved
}

func (b *Board) ItemCount() int {
	n := 0
	for _, l := range b.Lanes {
		n += len(l.Items)
	}
	return n
}

// RenderPlain renders the board as indented text, one lane per block.
func RenderPlain(b *Board, ascii bool) string {
	var sb strings.Builder
	wroteAny := false
	for _, l := range b.Lanes {
		if wroteAny {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s (%d)\n", laneTitle(l.Title), len(l.Items)))
		for _, it := range l.Items {
			sb.WriteString(fmt.Sprintf("  - %s%s\n", checkLabel(it.Checked, ascii), truncate(it.Title(), 80, ascii)))
		}
		wroteAny = true
	}
	if !wroteAny {
		sb.WriteString("(no lanes)\n")
	}
	return sb.String()
}

func laneTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func checkLabel(checked bool, ascii bool) string {
	switch {
	case ascii && checked:
		return "[x] "
	case ascii:
		return "[ ] "
	case checked:
		return "✓ "
	default:
		return "· "
	}
}

// fenceState tracks ``` and ~~~ code fences across lines.
type fenceState struct {
	open string
}

// step consumes one line and reports whether it is part of a fence,
// delimiter lines included. A fence closes only on its own marker.
func (f *fenceState) step(line string) bool {
	trimmed := strings.TrimSpace(line)
	marker := ""
	if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
		marker = trimmed[:3]
	}
	switch {
	case f.open == "" && marker != "":
		f.open = marker
		return true
	case f.open != "" && marker == f.open:
		f.open = ""
		return true
	}
	return f.open != ""
}

func isHeadingLine(line string) bool {
	_, ok := headingText(line)
	return ok
}

// headingText returns the text of an ATX heading line.
func headingText(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
	if level == 0 || level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
		return "", false
	}
	return strings.TrimSpace(trimmed[level:]), true
}
