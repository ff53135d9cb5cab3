// Package table implements a headless table: a row store with optional
// hierarchy, filters, multi-column sorting, grouping with aggregate rows,
// selection and check state, and a virtual viewport that materializes only
// a window of rows in an attached RowView.
//
// A Table is not safe for concurrent use. It is owned by one goroutine,
// typically the UI loop; other goroutines hand it work through that loop.
package table

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/endorses/gridsync/internal/pkg/constants"
	"github.com/endorses/gridsync/internal/pkg/logger"
)

// GroupingStyle controls where aggregate rows are placed relative to their group
type GroupingStyle int

const (
	GroupingStyleBottom GroupingStyle = iota
	GroupingStyleTop
)

// Options configures a Table
type Options struct {
	Columns       []*Column
	MultiSelect   bool
	MultiCheck    bool
	Checkable     bool
	SortEnabled   bool
	GroupingStyle GroupingStyle

	Virtual            bool
	RowHeight          int
	AggregateRowHeight int
	// ViewRangeSize fixes the number of rendered rows. Zero derives it from the viewport height.
	ViewRangeSize int
}

// DefaultOptions returns options matching an interactive multi-select table
func DefaultOptions() Options {
	return Options{
		MultiSelect:        true,
		MultiCheck:         true,
		SortEnabled:        true,
		Virtual:            true,
		RowHeight:          constants.DefaultRowHeight,
		AggregateRowHeight: constants.DefaultAggregateRowHeight,
	}
}

// Table is the row engine
type Table struct {
	columns []*Column

	rows         []*Row
	rowsMap      map[string]*Row
	rootRows     []*Row
	hierarchical bool

	filteredRows []*Row
	visibleRows  []*Row
	visibleIndex map[string]int

	filters    map[string]Filter
	filterKeys []string

	selectedIDs   []string
	aggregateRows []*AggregateRow

	multiSelect   bool
	multiCheck    bool
	checkable     bool
	sortEnabled   bool
	groupingStyle GroupingStyle

	vp *viewport

	listeners      []listenerEntry
	nextListenerID int
}

// New creates an empty table
func New(opts Options) *Table {
	if opts.RowHeight <= 0 {
		opts.RowHeight = constants.DefaultRowHeight
	}
	if opts.AggregateRowHeight <= 0 {
		opts.AggregateRowHeight = constants.DefaultAggregateRowHeight
	}
	t := &Table{
		rowsMap:       make(map[string]*Row),
		visibleIndex:  make(map[string]int),
		filters:       make(map[string]Filter),
		multiSelect:   opts.MultiSelect,
		multiCheck:    opts.MultiCheck,
		checkable:     opts.Checkable,
		sortEnabled:   opts.SortEnabled,
		groupingStyle: opts.GroupingStyle,
	}
	t.vp = newViewport(t, opts)
	t.setColumns(opts.Columns)
	return t
}

func (t *Table) log() *slog.Logger {
	return logger.WithGroup("table")
}

func (t *Table) setColumns(columns []*Column) {
	t.columns = append([]*Column(nil), columns...)
	for i, c := range t.columns {
		c.index = i
		if !c.sortActive {
			c.sortIndex = -1
		}
	}
}

// Columns returns all columns in display order
func (t *Table) Columns() []*Column { return append([]*Column(nil), t.columns...) }

// VisibleColumns returns the columns whose Visible flag is set
func (t *Table) VisibleColumns() []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.Visible {
			out = append(out, c)
		}
	}
	return out
}

// Column looks up a column by id
func (t *Table) Column(id string) *Column {
	for _, c := range t.columns {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Rows returns all rows in canonical order (pre-order when hierarchical)
func (t *Table) Rows() []*Row { return append([]*Row(nil), t.rows...) }

// RootRows returns the rows without parent
func (t *Table) RootRows() []*Row { return append([]*Row(nil), t.rootRows...) }

// Row looks up a row by id
func (t *Table) Row(id string) *Row { return t.rowsMap[id] }

// ParentRow returns the parent of r, or nil for root rows
func (t *Table) ParentRow(r *Row) *Row {
	if r == nil || r.ParentID == "" {
		return nil
	}
	return t.rowsMap[r.ParentID]
}

// ChildRows returns the direct children of r in canonical order
func (t *Table) ChildRows(r *Row) []*Row {
	out := make([]*Row, 0, len(r.childIDs))
	for _, id := range r.childIDs {
		if c, ok := t.rowsMap[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// RowCount returns the number of rows held
func (t *Table) RowCount() int { return len(t.rows) }

// FilteredRows returns rows accepted by all filters, in canonical order
func (t *Table) FilteredRows() []*Row { return append([]*Row(nil), t.filteredRows...) }

// VisibleRows returns the rows shown to the user, in display order
func (t *Table) VisibleRows() []*Row { return append([]*Row(nil), t.visibleRows...) }

// VisibleRowIndex returns the display index of r, or -1 if r is not visible
func (t *Table) VisibleRowIndex(r *Row) int {
	if r == nil {
		return -1
	}
	if i, ok := t.visibleIndex[r.ID]; ok {
		return i
	}
	return -1
}

// IsRowVisible reports whether r is currently visible
func (t *Table) IsRowVisible(r *Row) bool { return t.VisibleRowIndex(r) >= 0 }

// AggregateRows returns the aggregate rows of the last grouping pass
func (t *Table) AggregateRows() []*AggregateRow {
	return append([]*AggregateRow(nil), t.aggregateRows...)
}

// IsHierarchical reports whether any row has a parent
func (t *Table) IsHierarchical() bool { return t.hierarchical }

func (t *Table) MultiSelect() bool { return t.multiSelect }

func (t *Table) Checkable() bool { return t.checkable }

func (t *Table) SortEnabled() bool { return t.sortEnabled }

// SetMultiSelect toggles multi selection; switching it off truncates the selection
func (t *Table) SetMultiSelect(v bool) {
	t.multiSelect = v
	if !v && len(t.selectedIDs) > 1 {
		t.SelectRows(t.SelectedRows()[:1])
	}
}

// SetMultiCheck toggles whether more than one row may be checked
func (t *Table) SetMultiCheck(v bool) { t.multiCheck = v }

// SetCheckable toggles whether rows can be checked at all
func (t *Table) SetCheckable(v bool) { t.checkable = v }

// SetSortEnabled toggles sorting; disabling it also removes all groupings
func (t *Table) SetSortEnabled(v bool) {
	t.sortEnabled = v
	if !v {
		t.RemoveAllColumnGroupings()
	}
}

// SetGroupingStyle changes aggregate placement and regroups
func (t *Table) SetGroupingStyle(s GroupingStyle) {
	if t.groupingStyle == s {
		return
	}
	t.groupingStyle = s
	t.group()
	t.vp.rowsChanged()
}

// structureUpdate selects which derived lists updateRowStructure recomputes.
type structureUpdate struct {
	tree         bool
	filteredRows bool
	applyFilters bool
	visibleRows  bool
}

// updateRowStructure recomputes the derived row lists. It returns whether
// applying filters changed any row's accepted flag.
func (t *Table) updateRowStructure(u structureUpdate) (bool, error) {
	if u.tree {
		if err := t.rebuildTree(); err != nil {
			return false, err
		}
	}
	changed := false
	if u.filteredRows {
		changed = t.updateFilteredRows(u.applyFilters)
	}
	if u.visibleRows {
		t.updateVisibleRows()
	}
	return changed, nil
}

// UpdateColumnStructure replaces the column set. Cells are addressed by
// the position of the column in the new set.
func (t *Table) UpdateColumnStructure(columns []*Column) {
	t.clearAggregateRows()
	t.setColumns(columns)
	t.trigger(Event{Type: EventColumnStructureChanged})
	if !t.sortRows() {
		t.group()
	}
	if err := t.RerenderAll(); err != nil {
		t.log().Error("rerender after column change failed", "error", err)
	}
}

// UpdateColumnOrder changes the display order without changing which
// cell each column reads.
func (t *Table) UpdateColumnOrder(columns []*Column) error {
	if len(columns) != len(t.columns) {
		return fmt.Errorf("column order with %d columns, table has %d: %w", len(columns), len(t.columns), ErrColumnCountMismatch)
	}
	for _, c := range columns {
		if !slices.Contains(t.columns, c) {
			return fmt.Errorf("column order %q: %w", c.ID, ErrUnknownColumn)
		}
	}
	t.columns = append([]*Column(nil), columns...)
	t.trigger(Event{Type: EventColumnOrderChanged})
	t.group()
	return t.RerenderAll()
}
