package table

import (
	"fmt"
	"sort"
)

// treeLayout is a computed, not yet committed, row hierarchy.
type treeLayout struct {
	order        []*Row
	roots        []*Row
	children     map[string][]string
	levels       map[string]int
	hierarchical bool
}

// buildTree resolves parent links and computes the pre-order row sequence.
// It does not modify any row.
func buildTree(rows []*Row, lookup func(id string) *Row) (*treeLayout, error) {
	layout := &treeLayout{
		children: make(map[string][]string),
		levels:   make(map[string]int, len(rows)),
	}
	for _, r := range rows {
		if r.ParentID != "" {
			layout.hierarchical = true
			break
		}
	}
	if !layout.hierarchical {
		layout.order = rows
		layout.roots = rows
		return layout, nil
	}

	for _, r := range rows {
		if r.ParentID == "" {
			layout.roots = append(layout.roots, r)
			continue
		}
		parent := lookup(r.ParentID)
		if parent == nil {
			return nil, &OrphanRowError{RowID: r.ID, ParentID: r.ParentID}
		}
		layout.children[parent.ID] = append(layout.children[parent.ID], r.ID)
	}

	layout.order = make([]*Row, 0, len(rows))
	var visit func(r *Row, level int)
	visit = func(r *Row, level int) {
		layout.levels[r.ID] = level
		layout.order = append(layout.order, r)
		for _, id := range layout.children[r.ID] {
			visit(lookup(id), level+1)
		}
	}
	for _, r := range layout.roots {
		visit(r, 0)
	}

	// rows whose parent chain never reaches a root form a cycle
	if len(layout.order) != len(rows) {
		for _, r := range rows {
			if _, ok := layout.levels[r.ID]; !ok {
				return nil, &OrphanRowError{RowID: r.ID, ParentID: r.ParentID}
			}
		}
	}
	return layout, nil
}

func (t *Table) commitTree(layout *treeLayout) {
	for _, r := range layout.order {
		r.childIDs = layout.children[r.ID]
		r.hierarchyLevel = layout.levels[r.ID]
	}
	t.rows = layout.order
	t.rootRows = layout.roots
	t.setHierarchical(layout.hierarchical)
}

func (t *Table) rebuildTree() error {
	layout, err := buildTree(t.rows, t.Row)
	if err != nil {
		return err
	}
	t.commitTree(layout)
	return nil
}

func (t *Table) setHierarchical(h bool) {
	if t.hierarchical == h {
		return
	}
	if h {
		// grouping is not supported on trees
		t.removeGroupingsSilently()
	}
	t.hierarchical = h
}

// visitRows walks rows and their descendants in pre-order
func (t *Table) visitRows(rows []*Row, fn func(r *Row, level int)) {
	var visit func(r *Row, level int)
	visit = func(r *Row, level int) {
		fn(r, level)
		for _, c := range t.ChildRows(r) {
			visit(c, level+1)
		}
	}
	for _, r := range rows {
		visit(r, 0)
	}
}

// InsertRows appends new rows. Rows without id get a generated one. The
// whole batch is rejected if an id already exists or a parent cannot be
// resolved.
func (t *Table) InsertRows(data []RowData) ([]*Row, error) {
	if len(data) == 0 {
		return nil, nil
	}
	inserted := make([]*Row, 0, len(data))
	fresh := make(map[string]*Row, len(data))
	for _, d := range data {
		r := newRow(d)
		if t.rowsMap[r.ID] != nil || fresh[r.ID] != nil {
			return nil, fmt.Errorf("insert %s: %w", r.ID, ErrDuplicateRow)
		}
		r.Status = StatusInserted
		fresh[r.ID] = r
		inserted = append(inserted, r)
	}

	candidate := make([]*Row, 0, len(t.rows)+len(inserted))
	candidate = append(candidate, t.rows...)
	candidate = append(candidate, inserted...)
	layout, err := buildTree(candidate, func(id string) *Row {
		if r, ok := fresh[id]; ok {
			return r
		}
		return t.rowsMap[id]
	})
	if err != nil {
		return nil, fmt.Errorf("insert rows: %w", err)
	}

	for _, r := range inserted {
		t.rowsMap[r.ID] = r
	}
	t.commitTree(layout)

	acceptedNew := 0
	for _, r := range inserted {
		t.applyFiltersForRow(r)
		if r.filterAccepted {
			acceptedNew++
		}
	}
	t.mustUpdateRowStructure(structureUpdate{filteredRows: true, visibleRows: true})
	if len(t.filters) > 0 && acceptedNew > 0 {
		t.trigger(Event{Type: EventFilterChanged})
	}

	t.log().Debug("rows inserted", "count", len(inserted), "total", len(t.rows))
	t.trigger(Event{Type: EventRowsInserted, Rows: inserted})
	if !t.sortRows() {
		t.group()
	}
	t.vp.rowsChanged()
	return inserted, nil
}

// UpdateRows replaces existing rows in place. Every id must exist; on error
// nothing is changed.
func (t *Table) UpdateRows(data []RowData) ([]*Row, error) {
	if len(data) == 0 {
		return nil, nil
	}
	positions := make(map[string]int, len(t.rows))
	for i, r := range t.rows {
		positions[r.ID] = i
	}

	replacements := make(map[string]*Row, len(data))
	updated := make([]*Row, 0, len(data))
	structureChanged := false
	expansionChanged := false
	for _, d := range data {
		old, ok := t.rowsMap[d.ID]
		if !ok || d.ID == "" {
			return nil, fmt.Errorf("update %q: %w", d.ID, ErrRowNotFound)
		}
		r := newRow(d)
		structureChanged = structureChanged || old.ParentID != r.ParentID
		expansionChanged = expansionChanged || old.Expanded != r.Expanded
		if cellValuesDiffer(old.Cells, r.Cells) {
			r.Status = StatusUpdated
		}
		r.filterAccepted = old.filterAccepted
		r.height = old.height
		replacements[r.ID] = r
		updated = append(updated, r)
	}

	candidate := append([]*Row(nil), t.rows...)
	for id, r := range replacements {
		candidate[positions[id]] = r
	}
	layout, err := buildTree(candidate, func(id string) *Row {
		if r, ok := replacements[id]; ok {
			return r
		}
		return t.rowsMap[id]
	})
	if err != nil {
		return nil, fmt.Errorf("update rows: %w", err)
	}

	for id, r := range replacements {
		t.rowsMap[id] = r
	}
	t.commitTree(layout)

	filterChanged := false
	if len(t.filters) > 0 {
		for _, r := range updated {
			filterChanged = t.applyFiltersForRow(r) || filterChanged
		}
	}
	t.mustUpdateRowStructure(structureUpdate{filteredRows: true, visibleRows: true})

	t.log().Debug("rows updated", "count", len(updated), "structure_changed", structureChanged, "expansion_changed", expansionChanged)
	t.trigger(Event{Type: EventRowsUpdated, Rows: updated})
	if filterChanged {
		t.trigger(Event{Type: EventFilterChanged})
	}
	if !t.sortRows() {
		t.group()
	}
	t.vp.rowsChanged()
	return updated, nil
}

// DeleteRows removes the given rows and all their descendants. Rows the
// table does not hold are skipped.
func (t *Table) DeleteRows(rows ...*Row) {
	removed := make(map[string]*Row)
	var order []*Row
	filterChanged := false
	t.visitRows(rows, func(r *Row, _ int) {
		cur, ok := t.rowsMap[r.ID]
		if !ok || removed[r.ID] != nil {
			return
		}
		removed[r.ID] = cur
		order = append(order, cur)
		if len(t.filters) > 0 && cur.filterAccepted {
			filterChanged = true
		}
	})
	if len(order) == 0 {
		return
	}

	for id := range removed {
		delete(t.rowsMap, id)
	}
	kept := t.rows[:0:0]
	for _, r := range t.rows {
		if removed[r.ID] == nil {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	t.DeselectRows(order)

	t.mustUpdateRowStructure(structureUpdate{tree: true, filteredRows: true, visibleRows: true})
	if filterChanged {
		t.trigger(Event{Type: EventFilterChanged})
	}
	t.group()
	t.log().Debug("rows deleted", "count", len(order), "total", len(t.rows))
	t.trigger(Event{Type: EventRowsDeleted, Rows: order})
	t.vp.rowsChanged()
}

// DeleteRowsByID removes rows by id, see DeleteRows
func (t *Table) DeleteRowsByID(ids ...string) {
	rows := make([]*Row, 0, len(ids))
	for _, id := range ids {
		if r := t.rowsMap[id]; r != nil {
			rows = append(rows, r)
		}
	}
	t.DeleteRows(rows...)
}

// DeleteAllRows empties the table
func (t *Table) DeleteAllRows() {
	filterChanged := len(t.filters) > 0 && len(t.filteredRows) > 0
	rows := t.rows

	t.vp.removeAll()
	t.clearAggregateRows()
	t.rows = nil
	t.rootRows = nil
	t.rowsMap = make(map[string]*Row)
	t.DeselectAll()

	t.mustUpdateRowStructure(structureUpdate{tree: true, filteredRows: true, visibleRows: true})
	if filterChanged {
		t.trigger(Event{Type: EventFilterChanged})
	}
	t.trigger(Event{Type: EventAllRowsDeleted, Rows: rows})
	t.vp.rowsChanged()
}

// UpdateRowOrder replaces the canonical row order. rows must contain
// exactly the rows the table holds.
func (t *Table) UpdateRowOrder(rows []*Row) error {
	if len(rows) != len(t.rows) {
		return fmt.Errorf("update row order with %d rows, table holds %d: %w", len(rows), len(t.rows), ErrRowCountMismatch)
	}
	ordered := make([]*Row, len(rows))
	for i, r := range rows {
		cur, ok := t.rowsMap[r.ID]
		if !ok {
			return fmt.Errorf("update row order %q: %w", r.ID, ErrRowNotFound)
		}
		ordered[i] = cur
	}
	layout, err := buildTree(ordered, t.Row)
	if err != nil {
		return fmt.Errorf("update row order: %w", err)
	}
	t.commitTree(layout)
	t.mustUpdateRowStructure(structureUpdate{filteredRows: true, visibleRows: true})
	t.clearAggregateRows()
	t.trigger(Event{Type: EventRowOrderChanged, Rows: t.Rows()})
	t.group()
	t.vp.rowOrderChanged()
	return nil
}

// MoveRow moves the row at sourceIndex to targetIndex in canonical order.
// Both indices are clamped to the valid range.
func (t *Table) MoveRow(sourceIndex, targetIndex int) error {
	n := len(t.rows)
	if n == 0 {
		return nil
	}
	sourceIndex = min(max(sourceIndex, 0), n-1)
	targetIndex = min(max(targetIndex, 0), n-1)
	if sourceIndex == targetIndex {
		return nil
	}
	rows := append([]*Row(nil), t.rows...)
	r := rows[sourceIndex]
	rows = append(rows[:sourceIndex], rows[sourceIndex+1:]...)
	rows = append(rows[:targetIndex], append([]*Row{r}, rows[targetIndex:]...)...)
	return t.UpdateRowOrder(rows)
}

func (t *Table) rowIndex(r *Row) int {
	for i, cur := range t.rows {
		if cur.ID == r.ID {
			return i
		}
	}
	return -1
}

// MoveRowUp moves r one position up
func (t *Table) MoveRowUp(r *Row) error {
	i := t.rowIndex(r)
	if i < 0 {
		return fmt.Errorf("move %s: %w", r.ID, ErrRowNotFound)
	}
	return t.MoveRow(i, i-1)
}

// MoveRowDown moves r one position down
func (t *Table) MoveRowDown(r *Row) error {
	i := t.rowIndex(r)
	if i < 0 {
		return fmt.Errorf("move %s: %w", r.ID, ErrRowNotFound)
	}
	return t.MoveRow(i, i+1)
}

// MoveRowToTop moves r to the first position
func (t *Table) MoveRowToTop(r *Row) error {
	i := t.rowIndex(r)
	if i < 0 {
		return fmt.Errorf("move %s: %w", r.ID, ErrRowNotFound)
	}
	return t.MoveRow(i, 0)
}

// MoveRowToBottom moves r to the last position
func (t *Table) MoveRowToBottom(r *Row) error {
	i := t.rowIndex(r)
	if i < 0 {
		return fmt.Errorf("move %s: %w", r.ID, ErrRowNotFound)
	}
	return t.MoveRow(i, len(t.rows)-1)
}

// mustUpdateRowStructure is used where the tree cannot become invalid, e.g.
// after removing whole subtrees.
func (t *Table) mustUpdateRowStructure(u structureUpdate) {
	if _, err := t.updateRowStructure(u); err != nil {
		t.log().Error("row structure update failed", "error", err)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
