package table

import (
	"slices"
)

// Sort changes the sort state of col and re-sorts. multiSort adds col to
// the existing sort columns instead of replacing them; remove drops it.
// It returns false when a column refuses client side sorting, in which case
// the Sort event carries Requested so the data owner can sort instead.
func (t *Table) Sort(col *Column, dir Direction, multiSort, remove bool) bool {
	if remove {
		t.removeSortColumn(col)
	} else {
		t.addSortColumn(col, dir, multiSort)
	}
	sorted := t.sortRows()
	t.trigger(Event{
		Type:      EventSort,
		Column:    col,
		Ascending: col.sortAscending,
		Multi:     multiSort,
		Removed:   remove,
		Requested: !sorted,
	})
	return sorted
}

// Resort re-applies the current sort columns
func (t *Table) Resort() bool {
	return t.sortRows()
}

// SortColumns returns the active sort columns ordered by sort index
func (t *Table) SortColumns() []*Column {
	var cols []*Column
	for _, c := range t.columns {
		if c.sortIndex >= 0 {
			cols = append(cols, c)
		}
	}
	slices.SortStableFunc(cols, func(a, b *Column) int { return a.sortIndex - b.sortIndex })
	return cols
}

func (t *Table) permanentHeadSortColumns() []*Column {
	var cols []*Column
	for _, c := range t.SortColumns() {
		if c.AlwaysIncludeSortAtBegin {
			cols = append(cols, c)
		}
	}
	return cols
}

func (t *Table) permanentTailSortColumns() []*Column {
	var cols []*Column
	for _, c := range t.SortColumns() {
		if c.AlwaysIncludeSortAtEnd {
			cols = append(cols, c)
		}
	}
	return cols
}

func (t *Table) addSortColumn(col *Column, dir Direction, multiSort bool) {
	t.updateSortIndexForColumn(col, multiSort)

	// sorting exclusively drops grouping unless col is the only sorted and grouped column
	if !multiSort {
		if !(len(t.SortColumns()) == 1 && len(t.groupedColumns()) == 1) {
			col.grouped = false
		}
	}
	switch dir {
	case Ascending:
		col.sortAscending = true
	case Descending:
		col.sortAscending = false
	}
	col.sortActive = true
}

func (t *Table) updateSortIndexForColumn(col *Column, multiSort bool) {
	head := t.permanentHeadSortColumns()
	tail := t.permanentTailSortColumns()

	if multiSort {
		if col.sortActive && col.sortIndex != -1 {
			return
		}
		highest := -1
		for _, c := range t.columns {
			if c.AlwaysIncludeSortAtEnd {
				continue
			}
			highest = max(highest, c.sortIndex)
		}
		col.sortIndex = highest + 1
		for _, c := range tail {
			c.sortIndex++
		}
		return
	}

	if !col.permanent() {
		col.sortIndex = len(head)
	}
	for _, c := range t.columns {
		if c != col && c.sortActive {
			removeSortColumnInternal(c)
		}
	}
	deviation := 1
	if col.permanent() {
		deviation = 0
	}
	for i, c := range tail {
		c.sortIndex = len(head) + deviation + i
	}
}

func (t *Table) removeSortColumn(col *Column) {
	if col.permanent() {
		return
	}
	for _, c := range t.columns {
		if c != col && c.sortIndex > col.sortIndex {
			c.sortIndex--
		}
	}
	removeSortColumnInternal(col)
}

func removeSortColumnInternal(col *Column) {
	if col.permanent() {
		return
	}
	col.sortActive = false
	col.grouped = false
	col.sortIndex = -1
}

// sortRows sorts by the current sort columns. It returns false if any
// sort column cannot be sorted locally.
func (t *Table) sortRows() bool {
	sortCols := t.SortColumns()
	for _, c := range sortCols {
		if !c.sortingPossible() {
			return false
		}
	}
	t.clearAggregateRows()
	if len(sortCols) == 0 {
		return true
	}

	// every column acts as fallback so the order is total and repeatable
	for _, c := range t.columns {
		if !slices.Contains(sortCols, c) {
			sortCols = append(sortCols, c)
		}
	}
	cmp := func(a, b *Row) int {
		for _, c := range sortCols {
			r := c.compare(a, b)
			if c.sortActive && !c.sortAscending {
				r = -r
			}
			if r != 0 {
				return r
			}
		}
		return 0
	}

	if t.hierarchical {
		roots := append([]*Row(nil), t.rootRows...)
		slices.SortStableFunc(roots, cmp)
		var flat []*Row
		var visit func(r *Row)
		visit = func(r *Row) {
			flat = append(flat, r)
			children := t.ChildRows(r)
			slices.SortStableFunc(children, cmp)
			r.childIDs = r.childIDs[:0]
			for _, c := range children {
				r.childIDs = append(r.childIDs, c.ID)
			}
			for _, c := range children {
				visit(c)
			}
		}
		for _, r := range roots {
			visit(r)
		}
		t.rootRows = roots
		t.rows = flat
	} else {
		rows := append([]*Row(nil), t.rows...)
		slices.SortStableFunc(rows, cmp)
		t.rows = rows
		t.rootRows = rows
	}

	t.mustUpdateRowStructure(structureUpdate{filteredRows: true, visibleRows: true})
	t.trigger(Event{Type: EventRowOrderChanged, Rows: t.Rows()})
	t.group()
	t.vp.rowOrderChanged()
	return true
}
