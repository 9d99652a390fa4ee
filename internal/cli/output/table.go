package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title turns a kebab-case or lower-case label into a title.
func Title(s string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(s, "-", " "))
}

// Table writes rows under header: a box-drawn table in text mode and a
// markdown table otherwise.
func (r *Renderer) Table(header []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	hdr := make(table.Row, len(header))
	for i, h := range header {
		hdr[i] = Title(h)
	}
	t.AppendHeader(hdr)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeText {
		t.SetStyle(table.StyleLight)
		t.Render()
		return
	}
	t.RenderMarkdown()
	r.Println("")
}
