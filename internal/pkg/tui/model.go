// Package tui renders a table.Table in the terminal with bubbletea. The
// model owns the table: every change, including server changes applied by
// the table adapter, runs on the program goroutine through ApplyMsg.
package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/endorses/gridsync/internal/pkg/logger"
	"github.com/endorses/gridsync/internal/pkg/table"
	"github.com/endorses/gridsync/internal/pkg/table/filters"
	"github.com/endorses/gridsync/internal/pkg/tui/themes"
)

// chromeHeight is the number of lines around the data area: title,
// column header, status line and key help.
const chromeHeight = 4

const statusTickInterval = time.Second

// TableMsg replaces the table shown by the model, e.g. once the server
// created it.
type TableMsg struct {
	Title string
	Table *table.Table
}

// ThemeMsg switches the theme, e.g. after a config reload
type ThemeMsg struct {
	Theme themes.Theme
}

// ViewOptionsMsg changes how the table is rendered
type ViewOptionsMsg struct {
	Virtual   bool
	RowHeight int
}

type statusTickMsg struct{}

type saveDoneMsg struct{ err error }

// Options configures a Model
type Options struct {
	Title string
	Theme themes.Theme
	Keys  *KeyMap
	// Ring feeds the status line with the latest log entry
	Ring *logger.Ring
	// Save captures the table on the UI goroutine and returns the write,
	// which runs in the background. nil disables the save key.
	Save func(t *table.Table) func() error
	// Placeholder is shown while there is no table
	Placeholder string
}

// Model is the table UI
type Model struct {
	title string
	table *table.Table
	view  *RowView
	theme themes.Theme
	st    styles
	keys  KeyMap
	ring  *logger.Ring
	save  func(t *table.Table) func() error

	help      help.Model
	helpView  HelpView
	showHelp  bool
	filter    textinput.Model
	filtering bool

	cursor      int
	column      int
	layoutCols  []string
	width       int
	height      int
	placeholder string

	notice    string
	noticeErr bool
	busy      bool
	cancel    func()
	offline   bool
	reconnect string
	fatal     *FatalMsg
}

// NewModel creates the UI. t may be nil until a TableMsg arrives.
func NewModel(t *table.Table, opts Options) Model {
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}
	if opts.Theme.Name == "" {
		opts.Theme = themes.Solarized()
	}
	if opts.Placeholder == "" {
		opts.Placeholder = "Waiting for the server..."
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "name:foo AND size:>10"
	ti.CharLimit = 256

	m := Model{
		title:       opts.Title,
		table:       t,
		theme:       opts.Theme,
		keys:        keys,
		ring:        opts.Ring,
		save:        opts.Save,
		help:        help.New(),
		helpView:    NewHelpView(opts.Theme),
		filter:      ti,
		width:       80,
		height:      24,
		placeholder: opts.Placeholder,
	}
	m.view = NewRowView(opts.Theme, m.width)
	m.applyThemeStyles()
	return m
}

// Table returns the table shown by the model
func (m Model) Table() *table.Table { return m.table }

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, statusTick())
}

func statusTick() tea.Cmd {
	return tea.Tick(statusTickInterval, func(time.Time) tea.Msg { return statusTickMsg{} })
}

func (m Model) dataHeight() int {
	return max(m.height-chromeHeight, 1)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.filter.Width = max(msg.Width-4, 10)
		m.helpView.SetSize(msg.Width, max(msg.Height-2, 1))
		m.relayout(true)
		if m.showHelp && m.helpView.NeedsContentLoad() {
			return m, m.helpView.LoadContentAsync()
		}
		return m, nil

	case ApplyMsg:
		msg.Fn()
		m.relayout(false)
		m.clampCursor()
		return m, nil

	case TableMsg:
		if m.table != nil && m.table.IsAttached() {
			m.table.Detach()
		}
		m.table = msg.Table
		if msg.Title != "" {
			m.title = msg.Title
		}
		m.cursor, m.column = 0, 0
		m.layoutCols = nil
		m.relayout(true)
		return m, nil

	case ThemeMsg:
		m.theme = msg.Theme
		m.view.SetTheme(msg.Theme)
		m.helpView.SetTheme(msg.Theme)
		m.applyThemeStyles()
		return m, nil

	case ViewOptionsMsg:
		m.setViewOptions(msg)
		return m, nil

	case HelpContentLoadedMsg:
		m.helpView.HandleContentLoaded(msg)
		return m, nil

	case statusTickMsg:
		return m, statusTick()

	case saveDoneMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("Save failed: %v", msg.err), true)
		} else {
			m.setNotice("Saved", false)
		}
		return m, nil

	case BusyMsg:
		m.busy, m.cancel = true, msg.Cancel
		return m, nil

	case IdleMsg:
		m.busy, m.cancel = false, nil
		return m, nil

	case OfflineMsg:
		m.offline = msg.Offline
		if !msg.Offline {
			m.reconnect = ""
		}
		return m, nil

	case ReconnectingMsg:
		m.reconnect = fmt.Sprintf("reconnect #%d in %s", msg.Attempt, msg.Next.Round(time.Second))
		return m, nil

	case FatalMsg:
		m.fatal = &msg
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.filtering {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.fatal != nil {
		return m.handleFatalKey(msg)
	}
	if m.filtering {
		return m.handleFilterKey(msg)
	}
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), msg.Type == tea.KeyEsc:
			m.showHelp = false
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		cmd := m.helpView.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		if m.helpView.NeedsContentLoad() {
			return m, m.helpView.LoadContentAsync()
		}
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		if m.cancel != nil {
			m.cancel()
			m.setNotice("Cancel requested", false)
		}
		return m, nil
	}

	if m.table == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-m.dataHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(m.dataHeight())
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-m.table.RowCount())
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(m.table.RowCount())
	case key.Matches(msg, m.keys.Left):
		m.column = max(m.column-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.column = min(m.column+1, max(len(m.table.VisibleColumns())-1, 0))
	case key.Matches(msg, m.keys.Select):
		m.toggleSelection()
	case key.Matches(msg, m.keys.SelectAll):
		m.table.SelectAll()
	case key.Matches(msg, m.keys.Check):
		if r := m.currentRow(); r != nil {
			m.table.CheckRows([]*table.Row{r}, !r.Checked, true)
		}
	case key.Matches(msg, m.keys.CheckAll):
		if len(m.table.CheckedRows()) == m.table.RowCount() {
			m.table.UncheckAll()
		} else {
			m.table.CheckAll()
		}
	case key.Matches(msg, m.keys.Expand):
		if r := m.currentRow(); r != nil && r.Expandable() {
			m.table.ExpandRows([]*table.Row{r}, !r.Expanded, false)
		}
	case key.Matches(msg, m.keys.ExpandAll):
		m.toggleExpandAll()
	case key.Matches(msg, m.keys.Sort):
		m.sortCurrentColumn(false)
	case key.Matches(msg, m.keys.MultiSort):
		m.sortCurrentColumn(true)
	case key.Matches(msg, m.keys.Group):
		m.groupCurrentColumn()
	case key.Matches(msg, m.keys.Aggregate):
		m.cycleAggregation()
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filter.SetValue(m.currentQuery())
		m.filter.CursorEnd()
		cmd := m.filter.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.ClearQuery):
		m.applyQuery("")
	case key.Matches(msg, m.keys.Save):
		if m.save != nil {
			write := m.save(m.table)
			return m, func() tea.Msg { return saveDoneMsg{err: write()} }
		}
	}
	m.clampCursor()
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		m.applyQuery(m.filter.Value())
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue(m.currentQuery())
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m Model) handleFatalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return m, nil
	}
	idx := int(s[0] - '1')
	if idx >= len(m.fatal.Message.Actions) {
		return m, nil
	}
	action := m.fatal.Message.Actions[idx]
	respond := m.fatal.Respond
	m.fatal = nil
	respond(action)
	m.setNotice(fmt.Sprintf("Chose %s", action), false)
	return m, nil
}

// relayout recomputes column widths when forced or when the visible columns
// changed, and attaches or resizes the view.
func (m *Model) relayout(force bool) {
	if m.table == nil {
		return
	}
	cols := m.table.VisibleColumns()
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	changed := !slices.Equal(ids, m.layoutCols)
	if !force && !changed && m.table.IsAttached() {
		return
	}
	m.layoutCols = ids
	m.column = min(m.column, max(len(cols)-1, 0))
	m.view.SetLayout(cols, m.width)

	var err error
	switch {
	case !m.table.IsAttached():
		err = m.table.Attach(m.view, m.dataHeight())
	default:
		if err = m.table.SetViewportHeight(m.dataHeight()); err == nil {
			err = m.table.RerenderAll()
		}
	}
	if err != nil {
		logger.Error("Failed to render table", "error", err)
		m.setNotice(err.Error(), true)
	}
}

func (m *Model) setViewOptions(msg ViewOptionsMsg) {
	if m.table == nil {
		return
	}
	err := m.table.SetVirtual(msg.Virtual)
	if err == nil && msg.RowHeight > 0 {
		err = m.table.SetRowHeight(msg.RowHeight)
	}
	if err != nil {
		logger.Error("Failed to apply view options", "error", err)
		m.setNotice(err.Error(), true)
		return
	}
	m.relayout(true)
}

func (m *Model) currentRow() *table.Row {
	rows := m.table.VisibleRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	return rows[m.cursor]
}

func (m *Model) currentColumn() *table.Column {
	cols := m.table.VisibleColumns()
	if m.column < 0 || m.column >= len(cols) {
		return nil
	}
	return cols[m.column]
}

func (m *Model) clampCursor() {
	if m.table == nil {
		return
	}
	n := len(m.table.VisibleRows())
	m.cursor = min(max(m.cursor, 0), max(n-1, 0))
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	if r := m.currentRow(); r != nil {
		if err := m.table.ScrollTo(r); err != nil {
			logger.Debug("Scroll failed", "row", r.ID, "error", err)
		}
	}
}

// toggleSelection selects the cursor row. With multi select the row is
// added to or removed from the selection.
func (m *Model) toggleSelection() {
	r := m.currentRow()
	if r == nil {
		return
	}
	if !m.table.MultiSelect() {
		m.table.SelectRow(r)
		return
	}
	if m.table.IsRowSelected(r) {
		m.table.DeselectRows([]*table.Row{r})
		return
	}
	m.table.SelectRows(append(m.table.SelectedRows(), r))
}

func (m *Model) toggleExpandAll() {
	for _, r := range m.table.Rows() {
		if r.Expandable() && !r.Expanded {
			m.table.ExpandAll()
			return
		}
	}
	m.table.CollapseAll()
}

func (m *Model) sortCurrentColumn(multi bool) {
	col := m.currentColumn()
	if col == nil {
		return
	}
	if !m.table.SortEnabled() {
		m.setNotice("Sorting is disabled", true)
		return
	}
	dir := table.Ascending
	if col.SortActive() && col.SortAscending() {
		dir = table.Descending
	}
	if !m.table.Sort(col, dir, multi, false) {
		m.setNotice(fmt.Sprintf("Sorting %s requested from server", col.Title), false)
	}
}

func (m *Model) groupCurrentColumn() {
	col := m.currentColumn()
	if col == nil {
		return
	}
	if col.Grouped() {
		m.table.GroupColumn(col, table.DirectionKeep, false, true)
		return
	}
	if !m.table.IsGroupingPossible(col) {
		m.setNotice(fmt.Sprintf("Cannot group by %s", col.Title), true)
		return
	}
	m.table.GroupColumn(col, table.Ascending, false, false)
}

func (m *Model) cycleAggregation() {
	col := m.currentColumn()
	if col == nil || !m.table.IsAggregationPossible(col) {
		m.setNotice("Group by another column to change aggregations", true)
		return
	}
	setter := col.Model.(table.AggregationSetter)
	allowed := setter.AllowedAggregations()
	next := allowed[0]
	if i := slices.Index(allowed, setter.Aggregation()); i >= 0 {
		next = allowed[(i+1)%len(allowed)]
	}
	m.table.ChangeAggregation(col, next)
	m.setNotice(fmt.Sprintf("%s: %s", col.Title, next), false)
}

func (m *Model) currentQuery() string {
	if f := m.table.GetFilter(filters.QueryKey); f != nil {
		if l, ok := f.(table.Labeler); ok {
			return l.CreateLabel()
		}
	}
	return m.filter.Value()
}

// applyQuery replaces the user query filter. An empty query removes it.
func (m *Model) applyQuery(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		if m.table.RemoveFilterByKey(filters.QueryKey) {
			m.table.ApplyFilters()
		}
		m.filter.SetValue("")
		m.clampCursor()
		return
	}
	f, err := filters.Parse(query, m.table.Columns())
	if err != nil {
		m.setNotice(err.Error(), true)
		return
	}
	if err := m.table.AddFilter(f); err != nil {
		m.setNotice(err.Error(), true)
		return
	}
	m.table.ApplyFilters()
	m.cursor = 0
	m.clampCursor()
	m.setNotice(fmt.Sprintf("%d of %d rows match", len(m.table.FilteredRows()), m.table.RowCount()), false)
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice, m.noticeErr = text, isErr
}
