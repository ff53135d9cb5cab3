package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/endorses/gridsync/internal/pkg/logger"
	"github.com/endorses/gridsync/internal/pkg/table"
)

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	row       lipgloss.Style
	selected  lipgloss.Style
	cursor    lipgloss.Style
	disabled  lipgloss.Style
	aggregate lipgloss.Style
	checked   lipgloss.Style
	status    lipgloss.Style
	errText   lipgloss.Style
	warning   lipgloss.Style
	info      lipgloss.Style
	filter    lipgloss.Style
	dialog    lipgloss.Style
}

func (m *Model) applyThemeStyles() {
	t := m.theme
	m.st = styles{
		title:     lipgloss.NewStyle().Background(t.HeaderBg).Foreground(t.HeaderFg).Bold(true),
		header:    lipgloss.NewStyle().Foreground(t.SortFg).Bold(true),
		row:       lipgloss.NewStyle().Foreground(t.Foreground),
		selected:  lipgloss.NewStyle().Background(t.SelectionBg).Foreground(t.SelectionFg),
		cursor:    lipgloss.NewStyle().Background(t.CursorBg).Foreground(t.CursorFg).Bold(true),
		disabled:  lipgloss.NewStyle().Foreground(t.DisabledFg),
		aggregate: lipgloss.NewStyle().Foreground(t.AggregateFg).Italic(true),
		checked:   lipgloss.NewStyle().Foreground(t.CheckedFg).Bold(true),
		status:    lipgloss.NewStyle().Background(t.StatusBarBg).Foreground(t.StatusBarFg),
		errText:   lipgloss.NewStyle().Foreground(t.ErrorColor).Bold(true),
		warning:   lipgloss.NewStyle().Foreground(t.WarningColor).Bold(true),
		info:      lipgloss.NewStyle().Foreground(t.InfoColor),
		filter:    lipgloss.NewStyle().Foreground(t.FilterColor),
		dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.FocusedBorderColor).
			Padding(1, 2),
	}
	m.help.Styles.ShortKey = lipgloss.NewStyle().Foreground(t.InfoColor)
	m.help.Styles.ShortDesc = lipgloss.NewStyle().Foreground(t.DisabledFg)
	m.help.Styles.FullKey = m.help.Styles.ShortKey
	m.help.Styles.FullDesc = m.help.Styles.ShortDesc
	m.filter.PromptStyle = lipgloss.NewStyle().Foreground(t.FilterColor)
}

// View implements tea.Model
func (m Model) View() string {
	st := m.st
	if m.fatal != nil {
		return m.renderFatal()
	}
	if m.showHelp {
		return m.titleBar() + "\n" + m.helpView.View()
	}

	var b strings.Builder
	b.WriteString(m.titleBar())
	b.WriteString("\n")

	if m.table == nil {
		b.WriteString(st.disabled.Render(m.placeholder))
		b.WriteString(strings.Repeat("\n", m.dataHeight()+1))
	} else {
		b.WriteString(st.header.Render(truncate(m.view.Header(), m.width)))
		b.WriteString("\n")
		lines := m.dataLines()
		for i := range m.dataHeight() {
			if i < len(lines) {
				b.WriteString(lines[i])
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) titleBar() string {
	st := m.st
	title := m.title
	if title == "" {
		title = "gridsync"
	}
	parts := []string{title}
	if m.table != nil {
		parts = append(parts, fmt.Sprintf("%d rows", m.table.RowCount()))
		if n := len(m.table.FilteredRows()); n != m.table.RowCount() {
			parts = append(parts, fmt.Sprintf("%d shown", n))
		}
		if n := len(m.table.SelectedRows()); n > 0 {
			parts = append(parts, fmt.Sprintf("%d selected", n))
		}
		if n := len(m.table.CheckedRows()); n > 0 {
			parts = append(parts, fmt.Sprintf("%d checked", n))
		}
	}
	bar := " " + strings.Join(parts, " · ") + " "
	return st.title.Render(pad(truncate(bar, m.width), m.width))
}

// dataLines renders the attached rows from the scroll position down.
// Unrendered rows show as blank lines.
func (m Model) dataLines() []string {
	st := m.st
	rows := m.table.VisibleRows()
	rendered := m.table.ViewRangeRendered()
	if rendered.Empty() || len(rows) == 0 {
		return []string{st.disabled.Render("No rows")}
	}
	from := max(rendered.From, 0)
	to := min(rendered.To, len(rows))
	if from >= to {
		return nil
	}

	base := m.table.RowTop(rows[from])
	var lines []string
	if before := rows[from].AggregateRowBefore(); before != nil {
		// Only attached when anchored on this row
		agg := m.aggregateLines(before)
		lines = append(lines, agg...)
		if before.PrevID != "" {
			// Its height is counted with the previous row
			base -= len(agg)
		}
	}
	for i := from; i < to; i++ {
		r := rows[i]
		lines = append(lines, m.rowLines(r, i == m.cursor)...)
		if a := r.AggregateRowAfter(); a != nil {
			lines = append(lines, m.aggregateLines(a)...)
		}
	}

	skip := m.table.ScrollTop() - base
	switch {
	case skip > 0 && skip < len(lines):
		lines = lines[skip:]
	case skip >= len(lines):
		return nil
	case skip < 0:
		lines = append(make([]string, -skip), lines...)
	}
	return lines
}

func (m Model) rowLines(r *table.Row, isCursor bool) []string {
	st := m.st
	cells, ok := m.view.Lines(r)
	if !ok {
		return nil
	}

	check := "  "
	if m.table.Checkable() {
		check = "☐ "
		if r.Checked {
			check = st.checked.Render("☑") + " "
		}
	}
	expander := "  "
	if r.Expandable() {
		expander = "▾ "
		if !r.Expanded {
			expander = "▸ "
		}
	}
	indent := strings.Repeat(" ", r.HierarchyLevel()*indentWidth)

	style := st.row
	switch {
	case isCursor:
		style = st.cursor
	case m.table.IsRowSelected(r):
		style = st.selected
	case !r.Enabled:
		style = st.disabled
	}

	out := make([]string, len(cells))
	for i, line := range cells {
		prefix := check + expander
		if i > 0 {
			prefix = strings.Repeat(" ", markWidth)
		}
		text := truncate(prefix+indent+line, m.width)
		out[i] = style.Render(pad(text, m.width))
	}
	return out
}

func (m Model) aggregateLines(a *table.AggregateRow) []string {
	lines, ok := m.view.AggregateLines(a)
	if !ok {
		return nil
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = m.st.aggregate.Render(truncate(" Σ  "+line, m.width))
	}
	return out
}

func (m Model) statusLine() string {
	st := m.st
	if m.filtering {
		return m.filter.View()
	}

	var parts []string
	switch {
	case m.offline && m.reconnect != "":
		parts = append(parts, st.warning.Render("OFFLINE ("+m.reconnect+")"))
	case m.offline:
		parts = append(parts, st.warning.Render("OFFLINE"))
	}
	if m.busy {
		parts = append(parts, st.info.Render("working... ctrl+x to cancel"))
	}
	if m.table != nil {
		if labels := m.table.FilteredBy(); len(labels) > 0 {
			parts = append(parts, st.filter.Render("filter: "+strings.Join(labels, ", ")))
		}
		if col := m.currentColumn(); col != nil {
			parts = append(parts, "column: "+col.Title)
		}
	}
	switch {
	case m.notice != "" && m.noticeErr:
		parts = append(parts, st.errText.Render(m.notice))
	case m.notice != "":
		parts = append(parts, m.notice)
	case m.ring != nil:
		if recent := m.ring.Recent(1); len(recent) > 0 {
			e := recent[0]
			parts = append(parts, fmt.Sprintf("%s %s", logger.FormatLevel(e.Level), e.Message))
		}
	}
	return st.status.Render(pad(truncate(" "+strings.Join(parts, "  "), m.width), m.width))
}

func (m Model) renderFatal() string {
	st := m.st
	msg := m.fatal.Message
	var b strings.Builder
	b.WriteString(st.errText.Render(msg.Header))
	b.WriteString("\n\n")
	if msg.Body != "" {
		b.WriteString(lipgloss.NewStyle().Width(max(m.width-10, 20)).Render(msg.Body))
		b.WriteString("\n\n")
	}
	for i, a := range msg.Actions {
		fmt.Fprintf(&b, "[%d] %s   ", i+1, a)
	}
	dialog := st.dialog.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
