package table

// SelectRows replaces the selection. Rows that are not visible are
// ignored; without multi selection only the first row is kept.
func (t *Table) SelectRows(rows []*Row) {
	ids := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r == nil || seen[r.ID] {
			continue
		}
		if _, ok := t.visibleIndex[r.ID]; ok {
			ids = append(ids, r.ID)
			seen[r.ID] = true
		}
	}
	if sameIDs(ids, t.selectedIDs) {
		return
	}
	if !t.multiSelect && len(ids) > 1 {
		ids = ids[:1]
	}
	t.selectedIDs = ids
	t.trigger(Event{Type: EventRowsSelected, Rows: t.SelectedRows()})
}

// SelectRow selects exactly r
func (t *Table) SelectRow(r *Row) { t.SelectRows([]*Row{r}) }

// SelectAll selects every visible row
func (t *Table) SelectAll() { t.SelectRows(t.visibleRows) }

// DeselectRows removes rows from the selection
func (t *Table) DeselectRows(rows []*Row) {
	drop := make(map[string]bool, len(rows))
	for _, r := range rows {
		drop[r.ID] = true
	}
	kept := make([]string, 0, len(t.selectedIDs))
	for _, id := range t.selectedIDs {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(t.selectedIDs) {
		return
	}
	t.selectedIDs = kept
	t.trigger(Event{Type: EventRowsSelected, Rows: t.SelectedRows()})
}

// DeselectAll clears the selection
func (t *Table) DeselectAll() {
	if len(t.selectedIDs) == 0 {
		return
	}
	t.selectedIDs = nil
	t.trigger(Event{Type: EventRowsSelected})
}

// SelectedRows returns the selected rows in selection order
func (t *Table) SelectedRows() []*Row {
	out := make([]*Row, 0, len(t.selectedIDs))
	for _, id := range t.selectedIDs {
		if r := t.rowsMap[id]; r != nil {
			out = append(out, r)
		}
	}
	return out
}

// SelectedRow returns the first selected row or nil
func (t *Table) SelectedRow() *Row {
	for _, id := range t.selectedIDs {
		if r := t.rowsMap[id]; r != nil {
			return r
		}
	}
	return nil
}

// IsRowSelected reports whether r is selected
func (t *Table) IsRowSelected(r *Row) bool {
	if r == nil {
		return false
	}
	for _, id := range t.selectedIDs {
		if id == r.ID {
			return true
		}
	}
	return false
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

// SelectionBorder describes how a selected row joins its neighbours.
type SelectionBorder struct {
	Selected bool
	Top      bool
	Bottom   bool
	Single   bool
	Middle   bool
}

// SelectionBorder computes the border of r. Two selected rows separated
// by an aggregate row are not considered adjacent.
func (t *Table) SelectionBorder(r *Row) SelectionBorder {
	if !t.IsRowSelected(r) {
		return SelectionBorder{}
	}
	idx := t.VisibleRowIndex(r)
	prevSelected := idx > 0 && t.IsRowSelected(t.visibleRows[idx-1])
	nextSelected := idx >= 0 && idx+1 < len(t.visibleRows) && t.IsRowSelected(t.visibleRows[idx+1])
	if prevSelected && r.aggregateBefore != nil {
		prevSelected = false
	}
	if nextSelected && r.aggregateAfter != nil {
		nextSelected = false
	}
	return SelectionBorder{
		Selected: true,
		Top:      !prevSelected && nextSelected,
		Bottom:   prevSelected && !nextSelected,
		Single:   !prevSelected && !nextSelected,
		Middle:   prevSelected && nextSelected,
	}
}

// CheckRows sets the checked flag. Without multi check, checking a row
// unchecks every other row. With onlyEnabled, disabled rows are skipped.
// Nothing happens unless the table is checkable.
func (t *Table) CheckRows(rows []*Row, checked, onlyEnabled bool) {
	if !t.checkable {
		return
	}
	var changed []*Row
	for _, r := range rows {
		r = t.rowsMap[r.ID]
		if r == nil || (!r.Enabled && onlyEnabled) || r.Checked == checked {
			continue
		}
		if !t.multiCheck && checked {
			for _, other := range t.rows {
				if other.Checked {
					other.Checked = false
					changed = append(changed, other)
				}
			}
		}
		r.Checked = checked
		changed = append(changed, r)
	}
	if len(changed) == 0 {
		return
	}
	t.trigger(Event{Type: EventRowsChecked, Rows: changed})
}

// CheckRow checks a single enabled row
func (t *Table) CheckRow(r *Row) { t.CheckRows([]*Row{r}, true, true) }

// UncheckRows clears the checked flag of enabled rows
func (t *Table) UncheckRows(rows []*Row) { t.CheckRows(rows, false, true) }

// CheckAll checks every enabled row
func (t *Table) CheckAll() { t.CheckRows(t.rows, true, true) }

// UncheckAll unchecks every enabled row
func (t *Table) UncheckAll() { t.CheckRows(t.rows, false, true) }

// CheckedRows returns the checked rows in canonical order
func (t *Table) CheckedRows() []*Row {
	var out []*Row
	for _, r := range t.rows {
		if r.Checked {
			out = append(out, r)
		}
	}
	return out
}
