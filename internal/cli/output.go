package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/amirbrooks/boardmode/internal/arbiter"
)

// printer writes command results as coloured text, tab-separated rows
// (--plain) or indented JSON (--json).
type printer struct {
	out   io.Writer
	plain bool
	ascii bool
	json  bool
	ok    *color.Color
	mode  *color.Color
	dim   *color.Color
}

func newPrinter(gf *GlobalFlags, out io.Writer) *printer {
	p := &printer{
		out:   out,
		plain: gf.Plain,
		ascii: gf.ASCII,
		json:  gf.JSON,
		ok:    color.New(color.FgGreen),
		mode:  color.New(color.FgCyan, color.Bold),
		dim:   color.New(color.Faint),
	}
	if gf.Plain || gf.JSON {
		p.ok.DisableColor()
		p.mode.DisableColor()
		p.dim.DisableColor()
	}
	return p
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) success(format string, args ...any) {
	p.line("%s", p.ok.Sprintf(format, args...))
}

// modeName renders a view type the way users talk about it.
func (p *printer) modeName(viewType string) string {
	name := viewType
	if m, ok := arbiter.ModeOf(viewType); ok {
		name = string(m)
	}
	return p.mode.Sprint(name)
}

// rows prints a table: tab-separated with --plain, aligned otherwise.
func (p *printer) rows(header []string, rows [][]string) {
	if p.plain {
		for _, r := range rows {
			p.line("%s", strings.Join(r, "\t"))
		}
		return
	}
	w := tabwriter.NewWriter(p.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	_ = w.Flush()
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
