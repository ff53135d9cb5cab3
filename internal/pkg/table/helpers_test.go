package table

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeView struct {
	rowHeight   int
	heights     map[string]int
	attached    map[string]bool
	aggregates  map[*AggregateRow]bool
	attachCalls []string
	detachCalls []string
	before      int
	after       int
}

func newFakeView() *fakeView {
	return &fakeView{
		rowHeight:  1,
		heights:    make(map[string]int),
		attached:   make(map[string]bool),
		aggregates: make(map[*AggregateRow]bool),
	}
}

func (v *fakeView) AttachRow(r *Row) int {
	v.attached[r.ID] = true
	v.attachCalls = append(v.attachCalls, r.ID)
	if h, ok := v.heights[r.ID]; ok {
		return h
	}
	return v.rowHeight
}

func (v *fakeView) DetachRow(r *Row) {
	delete(v.attached, r.ID)
	v.detachCalls = append(v.detachCalls, r.ID)
}

func (v *fakeView) AttachAggregateRow(a *AggregateRow) int {
	v.aggregates[a] = true
	return 1
}

func (v *fakeView) DetachAggregateRow(a *AggregateRow) {
	delete(v.aggregates, a)
}

func (v *fakeView) SetFillers(before, after int) {
	v.before, v.after = before, after
}

func testColumns() (*Column, *Column) {
	return NewColumn("name", "Name", TextColumn{}), NewColumn("amount", "Amount", NewNumberColumn(AggregationSum))
}

func newTestTable(t *testing.T, mutate func(*Options)) (*Table, *Column, *Column) {
	t.Helper()
	name, amount := testColumns()
	opts := DefaultOptions()
	opts.Columns = []*Column{name, amount}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts), name, amount
}

func rowData(n int) []RowData {
	data := make([]RowData, n)
	for i := range data {
		data[i] = RowData{
			ID:    fmt.Sprintf("r%d", i),
			Cells: []Cell{{Value: fmt.Sprintf("row %d", i)}, {Value: i}},
		}
	}
	return data
}

func insertRows(t *testing.T, tbl *Table, data []RowData) []*Row {
	t.Helper()
	rows, err := tbl.InsertRows(data)
	require.NoError(t, err)
	return rows
}

func ids(rows []*Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

type recorder struct {
	events []Event
}

func record(tbl *Table) *recorder {
	rec := &recorder{}
	tbl.On(func(e Event) { rec.events = append(rec.events, e) })
	return rec
}

func (r *recorder) count(typ EventType) int {
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (r *recorder) types() []EventType {
	var out []EventType
	for _, e := range r.events {
		if e.Type != EventViewRangeRendered {
			out = append(out, e.Type)
		}
	}
	return out
}

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
