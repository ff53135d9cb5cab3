package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/endorses/gridsync/internal/pkg/table"
	"github.com/endorses/gridsync/internal/pkg/tui/themes"
)

const (
	// markWidth is the space taken by the check mark and expander
	markWidth     = 4
	indentWidth   = 2
	minColumnSize = 4
)

// RowView renders attached table rows into terminal lines. It implements
// table.RowView: the table decides which rows are attached, RowView formats
// their cells once on attach and reports the measured line count.
type RowView struct {
	theme   themes.Theme
	columns []*table.Column
	widths  []int
	width   int

	rows       map[string][]string
	aggregates map[*table.AggregateRow][]string
	fillBefore int
	fillAfter  int
}

// NewRowView creates a view for the given terminal width
func NewRowView(theme themes.Theme, width int) *RowView {
	return &RowView{
		theme:      theme,
		width:      width,
		rows:       make(map[string][]string),
		aggregates: make(map[*table.AggregateRow][]string),
	}
}

// SetTheme updates the theme
func (v *RowView) SetTheme(theme themes.Theme) {
	v.theme = theme
}

// SetLayout recomputes column widths. Attached rows keep their old text
// until they are rendered again.
func (v *RowView) SetLayout(columns []*table.Column, width int) {
	v.width = width
	v.columns = columns
	v.widths = columnWidths(columns, width-markWidth)
}

// AttachRow implements table.RowView
func (v *RowView) AttachRow(r *table.Row) int {
	lines := v.formatCells(func(i int) string { return r.Cell(i).String() })
	v.rows[r.ID] = lines
	return len(lines)
}

// DetachRow implements table.RowView
func (v *RowView) DetachRow(r *table.Row) {
	delete(v.rows, r.ID)
}

// AttachAggregateRow implements table.RowView
func (v *RowView) AttachAggregateRow(a *table.AggregateRow) int {
	lines := v.formatCells(func(i int) string {
		if i >= len(a.Contents) || a.Contents[i] == nil {
			return ""
		}
		return formatAggregate(a.Contents[i])
	})
	v.aggregates[a] = lines
	return len(lines)
}

// DetachAggregateRow implements table.RowView
func (v *RowView) DetachAggregateRow(a *table.AggregateRow) {
	delete(v.aggregates, a)
}

// SetFillers implements table.RowView
func (v *RowView) SetFillers(before, after int) {
	v.fillBefore, v.fillAfter = before, after
}

// Fillers returns the heights standing in for unrendered rows
func (v *RowView) Fillers() (before, after int) {
	return v.fillBefore, v.fillAfter
}

// Attached reports how many data and aggregate rows are materialized
func (v *RowView) Attached() (rows, aggregates int) {
	return len(v.rows), len(v.aggregates)
}

// Lines returns the formatted lines of an attached row
func (v *RowView) Lines(r *table.Row) ([]string, bool) {
	lines, ok := v.rows[r.ID]
	return lines, ok
}

// AggregateLines returns the formatted lines of an attached aggregate row
func (v *RowView) AggregateLines(a *table.AggregateRow) ([]string, bool) {
	lines, ok := v.aggregates[a]
	return lines, ok
}

// Header renders the column titles with sort markers
func (v *RowView) Header() string {
	cells := make([]string, len(v.columns))
	for i, c := range v.columns {
		title := c.Title
		if title == "" {
			title = c.ID
		}
		if c.SortActive() {
			arrow := "▲"
			if !c.SortAscending() {
				arrow = "▼"
			}
			if c.Grouped() {
				arrow = "≡" + arrow
			}
			title = arrow + title
		}
		cells[i] = pad(truncate(title, v.widths[i]), v.widths[i])
	}
	return strings.Repeat(" ", markWidth) + strings.Join(cells, " ")
}

// formatCells lays the visible columns out side by side. A cell containing
// newlines makes the row taller.
func (v *RowView) formatCells(text func(i int) string) []string {
	if len(v.columns) == 0 {
		return []string{""}
	}
	split := make([][]string, len(v.columns))
	height := 1
	for i, c := range v.columns {
		split[i] = strings.Split(sanitizeString(text(c.Index())), "\n")
		height = max(height, len(split[i]))
	}
	lines := make([]string, height)
	for l := range height {
		parts := make([]string, len(v.columns))
		for i := range v.columns {
			cell := ""
			if l < len(split[i]) {
				cell = split[i][l]
			}
			parts[i] = pad(truncate(cell, v.widths[i]), v.widths[i])
		}
		lines[l] = strings.Join(parts, " ")
	}
	return lines
}

// columnWidths honors configured widths and shares the rest evenly
func columnWidths(columns []*table.Column, total int) []int {
	widths := make([]int, len(columns))
	if len(columns) == 0 {
		return widths
	}
	// One space separates adjacent columns
	free := total - (len(columns) - 1)
	flexible := 0
	for i, c := range columns {
		if c.Width > 0 {
			widths[i] = c.Width
			free -= c.Width
			continue
		}
		flexible++
	}
	if flexible > 0 {
		share := max(free/flexible, minColumnSize)
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}
	return widths
}

func formatAggregate(v any) string {
	if f, ok := table.ToFloat(v); ok {
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%.2f", f)
	}
	return fmt.Sprintf("%v", v)
}

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// sanitizeString removes control characters that can break terminal
// rendering. Newlines are kept; they split a cell into lines.
func sanitizeString(s string) string {
	needsSanitization := false
	for _, r := range s {
		if (r < 32 && r != '\n') || r == 127 || r == 0xFFFD {
			needsSanitization = true
			break
		}
	}
	if !needsSanitization {
		return s
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == 0xFFFD:
			runes[i] = '?'
		case (r < 32 && r != '\n') || r == 127:
			runes[i] = ' '
		}
	}
	return string(runes)
}

// truncate shortens s to width terminal cells, ending in an ellipsis
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		for _, r := range s {
			return string(r)
		}
		return ""
	}

	target := width - 1
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > target {
			break
		}
		b.WriteRune(r)
	}
	return b.String() + "…"
}
