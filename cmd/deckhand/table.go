package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// newTable builds a table writer that renders with a styled box on
// terminals and falls back to plain output when piped.
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	if file, ok := out.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		t.SetStyle(table.StyleRounded)
	} else {
		style := table.StyleDefault
		style.Options.DrawBorder = false
		style.Options.SeparateColumns = true
		style.Options.SeparateHeader = true
		t.SetStyle(style)
	}
	return t
}

// truncateCell keeps long free-text columns readable.
func truncateCell(value string, width int) string {
	return text.Trim(value, width)
}
