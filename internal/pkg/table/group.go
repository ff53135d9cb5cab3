package table

import "slices"

// GroupColumn groups rows by col, or drops col from the grouping when
// remove is set. Grouping implies sorting by col.
func (t *Table) GroupColumn(col *Column, dir Direction, multiGroup, remove bool) {
	if remove {
		t.removeGroupColumn(col)
	}
	if !t.IsGroupingPossible(col) {
		return
	}
	if !remove {
		t.addGroupColumn(col, dir, multiGroup)
	}
	sorted := t.sortRows()
	t.trigger(Event{
		Type:      EventGroup,
		Column:    col,
		Ascending: col.sortAscending,
		Multi:     multiGroup,
		Removed:   remove,
		Requested: !sorted,
	})
}

// IsGroupingPossible reports whether col may become a grouping column.
// Permanent head sort columns group in sort order, tail columns never group,
// and any other column requires all head columns to be grouped first.
func (t *Table) IsGroupingPossible(col *Column) bool {
	if t.hierarchical || !t.sortEnabled {
		return false
	}
	head := t.permanentHeadSortColumns()
	if len(head) == 0 {
		return true
	}
	if col.AlwaysIncludeSortAtBegin {
		for _, c := range head {
			if c != col && c.sortIndex < col.sortIndex && !c.grouped {
				return false
			}
		}
		return true
	}
	if col.AlwaysIncludeSortAtEnd {
		return false
	}
	for _, c := range head {
		if !c.grouped {
			return false
		}
	}
	return true
}

// IsGrouped reports whether any column is grouped
func (t *Table) IsGrouped() bool {
	return len(t.groupedColumns()) > 0
}

// IsAggregationPossible reports whether the user may change the
// aggregation function of col.
func (t *Table) IsAggregationPossible(col *Column) bool {
	setter, ok := col.Model.(AggregationSetter)
	if !ok || col.grouped {
		return false
	}
	if len(setter.AllowedAggregations()) <= 1 {
		return false
	}
	return t.IsGrouped()
}

// ChangeAggregation switches the aggregation function of col and regroups
func (t *Table) ChangeAggregation(col *Column, fn AggregationFunction) {
	t.ChangeAggregations([]*Column{col}, []AggregationFunction{fn})
}

// ChangeAggregations switches several aggregation functions with one regroup
func (t *Table) ChangeAggregations(cols []*Column, fns []AggregationFunction) {
	for i, col := range cols {
		if i >= len(fns) {
			break
		}
		setter, ok := col.Model.(AggregationSetter)
		if !ok || setter.Aggregation() == fns[i] {
			continue
		}
		setter.SetAggregation(fns[i])
		t.trigger(Event{Type: EventAggregationChanged, Column: col})
	}
	t.group()
	t.vp.rowsChanged()
}

// RemoveAllColumnGroupings ungroups every column and re-sorts
func (t *Table) RemoveAllColumnGroupings() {
	if !t.IsGrouped() {
		return
	}
	t.removeGroupingsSilently()
	if !t.sortRows() {
		t.group()
	}
}

func (t *Table) removeGroupingsSilently() {
	for _, c := range t.groupedColumns() {
		t.removeGroupColumn(c)
	}
	t.clearAggregateRows()
}

func (t *Table) groupedColumns() []*Column {
	var cols []*Column
	for _, c := range t.columns {
		if c.grouped {
			cols = append(cols, c)
		}
	}
	return cols
}

func (t *Table) addGroupColumn(col *Column, dir Direction, multiGroup bool) {
	if !col.permanent() {
		movable := func(c *Column) bool {
			return c != col && c.sortActive && !c.permanent()
		}
		if multiGroup {
			highest := -1
			for _, c := range t.columns {
				if c.AlwaysIncludeSortAtEnd || !c.grouped {
					continue
				}
				highest = max(highest, c.sortIndex)
			}
			if !col.sortActive {
				col.sortIndex = highest + 1
				for _, c := range t.columns {
					if movable(c) && c.sortIndex > highest {
						c.sortIndex++
					}
				}
				for _, c := range t.permanentTailSortColumns() {
					c.sortIndex++
				}
			} else {
				for _, c := range t.columns {
					if movable(c) && c.sortIndex > highest && c.sortIndex < col.sortIndex {
						c.sortIndex++
					}
				}
				col.sortIndex = highest + 1
			}
		} else {
			idx := len(t.permanentHeadSortColumns())
			if col.sortActive {
				for _, c := range t.columns {
					if movable(c) && c.sortIndex >= idx && c.sortIndex < col.sortIndex {
						c.sortIndex++
					}
				}
				col.sortIndex = idx
			} else {
				for _, c := range t.columns {
					if movable(c) && c.sortIndex >= idx {
						c.sortIndex++
					}
				}
				col.sortIndex = idx
				for _, c := range t.permanentTailSortColumns() {
					if c != col {
						c.sortIndex++
					}
				}
			}
			for _, c := range t.columns {
				if movable(c) && c.sortIndex >= idx {
					c.grouped = false
				}
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
	col.grouped = true
}

func (t *Table) removeGroupColumn(col *Column) {
	col.grouped = false
	if col.AlwaysIncludeSortAtBegin {
		// ungrouping a head column ungroups everything sorted after it
		for _, c := range t.columns {
			if c.sortIndex >= col.sortIndex {
				c.grouped = false
			}
		}
	}
	t.removeSortColumn(col)
}

// group recomputes aggregate rows over the visible rows. A group ends at
// the last row or where any grouped column's text differs from the next row.
func (t *Table) group() {
	t.clearAggregateRows()
	grouped := t.groupedColumns()
	if len(grouped) == 0 {
		return
	}

	cols := t.VisibleColumns()
	states := make([]any, len(cols))
	start := func() {
		for i, c := range cols {
			if a, ok := c.Model.(Aggregator); ok {
				states[i] = a.AggrStart()
			} else {
				states[i] = nil
			}
		}
	}
	finish := func() []any {
		contents := make([]any, len(cols))
		for i, c := range cols {
			if a, ok := c.Model.(Aggregator); ok {
				contents[i] = a.AggrFinish(states[i])
			}
		}
		return contents
	}

	onTop := t.groupingStyle == GroupingStyleTop
	rows := t.visibleRows
	var first, last *Row
	start()
	for i, r := range rows {
		if first == nil {
			first = r
		}
		for ci, c := range cols {
			if a, ok := c.Model.(Aggregator); ok {
				states[ci] = a.AggrStep(states[ci], r.Cell(c.index))
			}
		}
		var next *Row
		if i+1 < len(rows) {
			next = rows[i+1]
		}
		if next == nil || isNewGroup(grouped, r, next) {
			prev, after := r, next
			if onTop {
				prev, after = last, first
			}
			t.addAggregateRow(finish(), prev, after)
			start()
			first = nil
			last = r
		}
	}
}

func isNewGroup(grouped []*Column, r, next *Row) bool {
	for _, c := range grouped {
		if c.groupingText(r) != c.groupingText(next) {
			return true
		}
	}
	return false
}

func (t *Table) addAggregateRow(contents []any, prev, next *Row) {
	aggr := &AggregateRow{Contents: slices.Clone(contents)}
	if prev != nil {
		aggr.PrevID = prev.ID
		prev.aggregateAfter = aggr
	}
	if next != nil {
		aggr.NextID = next.ID
		next.aggregateBefore = aggr
	}
	t.aggregateRows = append(t.aggregateRows, aggr)
}

func (t *Table) clearAggregateRows() {
	if len(t.aggregateRows) == 0 {
		return
	}
	for _, aggr := range t.aggregateRows {
		t.vp.detachAggregateRow(aggr)
		if r := t.rowsMap[aggr.PrevID]; r != nil && r.aggregateAfter == aggr {
			r.aggregateAfter = nil
		}
		if r := t.rowsMap[aggr.NextID]; r != nil && r.aggregateBefore == aggr {
			r.aggregateBefore = nil
		}
	}
	t.aggregateRows = nil
}
