package table

func (t *Table) updateVisibleRows() {
	t.visibleRows = t.computeVisibleRows(t.rootRows)
	t.visibleIndex = make(map[string]int, len(t.visibleRows))
	for i, r := range t.visibleRows {
		t.visibleIndex[r.ID] = i
	}

	var hidden []*Row
	for _, id := range t.selectedIDs {
		if _, ok := t.visibleIndex[id]; !ok {
			hidden = append(hidden, &Row{ID: id})
		}
	}
	if len(hidden) > 0 {
		t.DeselectRows(hidden)
	}
}

// computeVisibleRows returns rows accepted by the filters, or having an
// accepted descendant, descending only into expanded rows.
func (t *Table) computeVisibleRows(rows []*Row) []*Row {
	var visible []*Row
	for _, r := range rows {
		children := t.computeVisibleRows(t.ChildRows(r))
		if r.filterAccepted || len(children) > 0 {
			visible = append(visible, r)
		}
		r.expandable = len(children) > 0
		if r.Expanded {
			visible = append(visible, children...)
		}
	}
	return visible
}

// VisibleChildRows returns the children of r that are currently visible
func (t *Table) VisibleChildRows(r *Row) []*Row {
	var out []*Row
	for _, c := range t.ChildRows(r) {
		if _, ok := t.visibleIndex[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ExpandRows sets the expanded flag of rows, and of all their descendants
// when recursive is set. A nil rows slice means all root rows.
func (t *Table) ExpandRows(rows []*Row, expanded, recursive bool) {
	if rows == nil {
		rows = t.rootRows
	}
	var changed []*Row
	if recursive {
		t.visitRows(rows, func(r *Row, _ int) {
			if r.Expanded != expanded {
				r.Expanded = expanded
				changed = append(changed, r)
			}
		})
	} else {
		for _, r := range rows {
			if r.Expanded != expanded {
				r.Expanded = expanded
				changed = append(changed, r)
			}
		}
	}
	if len(changed) == 0 {
		return
	}
	t.mustUpdateRowStructure(structureUpdate{visibleRows: true})
	t.trigger(Event{Type: EventRowsExpanded, Rows: changed})
	t.vp.rowsChanged()
}

// ExpandRow expands a single row
func (t *Table) ExpandRow(r *Row) { t.ExpandRows([]*Row{r}, true, false) }

// CollapseRow collapses a single row
func (t *Table) CollapseRow(r *Row) { t.ExpandRows([]*Row{r}, false, false) }

// ExpandAll expands every row
func (t *Table) ExpandAll() { t.ExpandRows(t.rootRows, true, true) }

// CollapseAll collapses every row
func (t *Table) CollapseAll() { t.ExpandRows(t.rootRows, false, true) }
