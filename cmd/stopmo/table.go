package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableColumn names a column of the frames or exports table.
type tableColumn struct {
	title string
	align columnAlignment
}

// renderTable lays rows out under columns. Short rows are padded and extra
// cells dropped. A non-empty footer is printed under the last column, which
// is where the frame and export counts go.
func renderTable(columns []tableColumn, rows [][]string, footer string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		align := text.AlignLeft
		if col.align == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft, AlignFooter: align}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	if footer != "" {
		f := make(table.Row, len(columns))
		for i := range f {
			f[i] = ""
		}
		f[len(f)-1] = footer
		tw.AppendFooter(f)
	}
	return tw.Render()
}
