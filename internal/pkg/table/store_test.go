package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertRows(t *testing.T) {
	tbl, _, _ := newTestTable(t, nil)
	rec := record(tbl)

	rows := insertRows(t, tbl, rowData(3))
	assert.Equal(t, []string{"r0", "r1", "r2"}, ids(tbl.Rows()))
	assert.Equal(t, []string{"r0", "r1", "r2"}, ids(tbl.VisibleRows()))
	for _, r := range rows {
		assert.Equal(t, StatusInserted, r.Status)
		assert.True(t, r.FilterAccepted())
		assert.True(t, r.Expanded)
	}
	assert.Equal(t, 1, rec.count(EventRowsInserted))
	assert.Equal(t, 0, rec.count(EventFilterChanged))

	generated := insertRows(t, tbl, []RowData{{Cells: []Cell{{Value: "x"}}}})
	assert.NotEmpty(t, generated[0].ID)
	assert.Same(t, generated[0], tbl.Row(generated[0].ID))
}

func TestInsertRowsRejectsBadBatch(t *testing.T) {
	tests := []struct {
		name    string
		batch   []RowData
		wantErr error
	}{
		{"existing id", []RowData{{ID: "r9"}, {ID: "r0"}}, ErrDuplicateRow},
		{"duplicate in batch", []RowData{{ID: "n1"}, {ID: "n1"}}, ErrDuplicateRow},
		{"unknown parent", []RowData{{ID: "n1", ParentID: "missing"}}, ErrOrphanRow},
		{"parent cycle", []RowData{{ID: "a", ParentID: "b"}, {ID: "b", ParentID: "a"}}, ErrOrphanRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, _, _ := newTestTable(t, nil)
			insertRows(t, tbl, rowData(2))

			_, err := tbl.InsertRows(tt.batch)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []string{"r0", "r1"}, ids(tbl.Rows()))
			assert.False(t, tbl.IsHierarchical())
		})
	}
}

func TestOrphanRowErrorDetails(t *testing.T) {
	tbl, _, _ := newTestTable(t, nil)
	_, err := tbl.InsertRows([]RowData{{ID: "c", ParentID: "p"}})

	var orphan *OrphanRowError
	require.True(t, errors.As(err, &orphan))
	assert.Equal(t, "c", orphan.RowID)
	assert.Equal(t, "p", orphan.ParentID)
}

func TestUpdateRowsReparentsIntoTree(t *testing.T) {
	tbl, _, _ := newTestTable(t, nil)
	insertRows(t, tbl, rowData(5))

	upd := rowData(5)[2]
	upd.ParentID = "r0"
	_, err := tbl.UpdateRows([]RowData{upd})
	require.NoError(t, err)

	assert.True(t, tbl.IsHierarchical())
	assert.Equal(t, []string{"r0", "r2", "r1", "r3", "r4"}, ids(tbl.Rows()))
	assert.Equal(t, []string{"r0", "r2", "r1", "r3", "r4"}, ids(tbl.VisibleRows()))
	assert.Equal(t, []string{"r2"}, tbl.Row("r0").ChildIDs())
	assert.Equal(t, 1, tbl.Row("r2").HierarchyLevel())
	assert.True(t, tbl.Row("r0").Expandable())

	tbl.CollapseRow(tbl.Row("r0"))
	assert.Equal(t, []string{"r0", "r1", "r3", "r4"}, ids(tbl.VisibleRows()))
	assert.Len(t, tbl.Rows(), 5)
}

func TestUpdateRowsStatusAndErrors(t *testing.T) {
	tbl, _, _ := newTestTable(t, nil)
	insertRows(t, tbl, rowData(3))
	tbl.SelectRow(tbl.Row("r1"))
	rec := record(tbl)

	same := rowData(3)[1]
	changed := rowData(3)[2]
	changed.Cells[1].Value = 99
	updated, err := tbl.UpdateRows([]RowData{same, changed})
	require.NoError(t, err)

	assert.Equal(t, StatusNonChanged, updated[0].Status)
	assert.Equal(t, StatusUpdated, updated[1].Status)
	assert.Equal(t, []string{"r0", "r1", "r2"}, ids(tbl.Rows()))
	assert.Same(t, updated[0], tbl.SelectedRow())
	assert.Equal(t, 1, rec.count(EventRowsUpdated))

	_, err = tbl.UpdateRows([]RowData{same, {ID: "nope"}})
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.Same(t, updated[0], tbl.Row("r1"))
}

func TestDeleteRowsRemovesDescendants(t *testing.T) {
	tbl, _, _ := newTestTable(t, nil)
	insertRows(t, tbl, []RowData{
		{ID: "p"}, {ID: "c", ParentID: "p"}, {ID: "g", ParentID: "c"}, {ID: "other"},
	})
	tbl.SelectRows([]*Row{tbl.Row("g"), tbl.Row("other")})
	rec := record(tbl)

	tbl.DeleteRows(tbl.Row("p"), &Row{ID: "unknown"})

	assert.Equal(t, []string{"other"}, ids(tbl.Rows()))
	assert.Nil(t, tbl.Row("c"))
	assert.Equal(t, []string{"other"}, ids(tbl.SelectedRows()))
	require.Equal(t, 1, rec.count(EventRowsDeleted))
	assert.False(t, tbl.IsHierarchical())

	tbl.DeleteAllRows()
	assert.Zero(t, tbl.RowCount())
	assert.Empty(t, tbl.SelectedRows())
	assert.Equal(t, 1, rec.count(EventAllRowsDeleted))
}

func TestMoveRowAndRowOrder(t *testing.T) {
	tbl, _, _ := newTestTable(t, nil)
	insertRows(t, tbl, rowData(4))

	require.NoError(t, tbl.MoveRow(-3, 100))
	assert.Equal(t, []string{"r1", "r2", "r3", "r0"}, ids(tbl.Rows()))

	require.NoError(t, tbl.MoveRowToTop(tbl.Row("r3")))
	assert.Equal(t, []string{"r3", "r1", "r2", "r0"}, ids(tbl.Rows()))

	require.NoError(t, tbl.MoveRowDown(tbl.Row("r3")))
	assert.Equal(t, []string{"r1", "r3", "r2", "r0"}, ids(tbl.Rows()))

	rec := record(tbl)
	require.NoError(t, tbl.MoveRow(2, 2))
	assert.Zero(t, rec.count(EventRowOrderChanged))

	err := tbl.UpdateRowOrder(tbl.Rows()[:2])
	assert.ErrorIs(t, err, ErrRowCountMismatch)
}

func TestResortAfterInsertWithoutSortColumns(t *testing.T) {
	tbl, _, amount := newTestTable(t, nil)
	rec := record(tbl)
	insertRows(t, tbl, rowData(3))
	assert.Zero(t, rec.count(EventRowOrderChanged))
	assert.Equal(t, []string{"r0", "r1", "r2"}, ids(tbl.Rows()))

	tbl.Sort(amount, Descending, false, false)
	insertRows(t, tbl, []RowData{{ID: "mid", Cells: []Cell{{Value: "m"}, {Value: 1.5}}}})
	assert.Equal(t, []string{"r2", "mid", "r1", "r0"}, ids(tbl.Rows()))
}

func TestCellUnmarshalJSON(t *testing.T) {
	var cells []Cell
	require.NoError(t, jsonUnmarshal(`[1, "x", {"value": 3, "text": "three"}, null]`, &cells))
	require.Len(t, cells, 4)
	assert.Equal(t, float64(1), cells[0].Value)
	assert.Equal(t, "x", cells[1].String())
	assert.Equal(t, "three", cells[2].String())
	assert.Equal(t, "", cells[3].String())
}
