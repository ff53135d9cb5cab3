package filters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endorses/gridsync/internal/pkg/table"
)

func newTable(t *testing.T) (*table.Table, []*table.Column) {
	t.Helper()
	cols := []*table.Column{
		table.NewColumn("name", "Name", table.TextColumn{}),
		table.NewColumn("amount", "Amount", table.NewNumberColumn(table.AggregationSum)),
		table.NewColumn("elapsed", "Elapsed", table.NewNumberColumn(table.AggregationNone)),
	}
	opts := table.DefaultOptions()
	opts.Columns = cols
	opts.Checkable = true
	tbl := table.New(opts)
	_, err := tbl.InsertRows([]table.RowData{
		{ID: "alice", Cells: []table.Cell{{Value: "Alice"}, {Value: 10}, {Value: 30 * time.Second}}, Checked: true},
		{ID: "bob", Cells: []table.Cell{{Value: "Bob"}, {Value: 25}, {Value: 5 * time.Minute}}},
		{ID: "carol", Cells: []table.Cell{{Value: "Carol"}, {Value: 40}, {Value: 2 * time.Hour}}},
		{ID: "dave", Cells: []table.Cell{{Value: "Dave"}, {Value: "n/a"}, {Value: nil}}, Checked: true},
	})
	require.NoError(t, err)
	return tbl, cols
}

func acceptedIDs(tbl *table.Table, f table.Filter) []string {
	var ids []string
	for _, r := range tbl.Rows() {
		if f.Accept(r) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// TestChain_SortsBySelectivity verifies filters are sorted by selectivity
func TestChain_SortsBySelectivity(t *testing.T) {
	_, cols := newTable(t)
	c := NewChain("q")

	all := NewTextFilter("a")
	numeric, err := NewNumericComparisonFilter(cols[1], "=10")
	require.NoError(t, err)
	column := NewTextFilter("a", cols[0])

	c.Add(all)
	c.Add(numeric)
	c.Add(column)

	got := c.Filters()
	require.Len(t, got, 3)
	assert.Equal(t, 0.9, got[0].Selectivity())
	assert.Equal(t, 0.6, got[1].Selectivity())
	assert.Equal(t, 0.3, got[2].Selectivity())

	// Labels keep the order the user typed
	assert.Equal(t, "a AND amount:=10 AND name:a", c.CreateLabel())
}

// TestChain_EmptyAcceptsAll verifies an empty chain accepts every row
func TestChain_EmptyAcceptsAll(t *testing.T) {
	tbl, _ := newTable(t)
	c := NewChain("q")
	assert.True(t, c.IsEmpty())
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, acceptedIDs(tbl, c))
}

func TestChain_RemoveLast(t *testing.T) {
	_, cols := newTable(t)
	c := NewChain("q")
	numeric, err := NewNumericComparisonFilter(cols[1], ">1")
	require.NoError(t, err)
	c.Add(numeric)
	c.Add(NewTextFilter("x"))

	require.True(t, c.RemoveLast())
	require.Equal(t, 1, c.Count())
	assert.Equal(t, "numeric", c.Filters()[0].Type())

	require.True(t, c.RemoveLast())
	assert.False(t, c.RemoveLast())
}

func TestTextFilter(t *testing.T) {
	tbl, cols := newTable(t)

	tests := []struct {
		name   string
		filter *TextFilter
		want   []string
	}{
		{"all columns case-insensitive", NewTextFilter("AR"), []string{"carol"}},
		{"numeric cell text", NewTextFilter("25"), []string{"bob"}},
		{"single column", NewTextFilter("a", cols[0]), []string{"alice", "carol", "dave"}},
		{"empty search", NewTextFilter(""), []string{"alice", "bob", "carol", "dave"}},
		{"prefix wildcard", NewTextFilter("C*", cols[0]), []string{"carol"}},
		{"suffix wildcard", NewTextFilter("*e", cols[0]), []string{"alice", "dave"}},
		{"wrapped wildcard", NewTextFilter("*ar*", cols[0]), []string{"carol"}},
		{"lone wildcard", NewTextFilter("*", cols[0]), []string{"alice", "bob", "carol", "dave"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, acceptedIDs(tbl, tt.filter))
		})
	}
}

func TestNumericComparisonFilter(t *testing.T) {
	tbl, cols := newTable(t)

	tests := []struct {
		column int
		expr   string
		want   []string
	}{
		{1, ">10", []string{"bob", "carol"}},
		{1, ">=10", []string{"alice", "bob", "carol"}},
		{1, "<25", []string{"alice"}},
		{1, "==40", []string{"carol"}},
		{1, "!=40", []string{"alice", "bob"}},
		{2, ">1m", []string{"bob", "carol"}},
		{2, "<=30s", []string{"alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := NewNumericComparisonFilter(cols[tt.column], tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, acceptedIDs(tbl, f))
		})
	}
}

func TestNumericComparisonFilter_InvalidExpressions(t *testing.T) {
	_, cols := newTable(t)

	_, err := NewNumericComparisonFilter(cols[1], "10")
	assert.Error(t, err)

	_, err = NewNumericComparisonFilter(cols[1], ">ten")
	assert.Error(t, err)
}

func TestCheckedFilter(t *testing.T) {
	tbl, _ := newTable(t)
	assert.Equal(t, []string{"alice", "dave"}, acceptedIDs(tbl, CheckedFilter{Checked: true}))
	assert.Equal(t, []string{"bob", "carol"}, acceptedIDs(tbl, CheckedFilter{}))
	assert.Equal(t, CheckedFilter{Checked: true}.CreateKey(), CheckedFilter{}.CreateKey())
}

func TestParse(t *testing.T) {
	tbl, cols := newTable(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"bob", []string{"bob"}},
		{"name:car", []string{"carol"}},
		{"amount:>20 AND is:unchecked", []string{"bob", "carol"}},
		{"alice OR dave", []string{"alice", "dave"}},
		{"alice || dave", []string{"alice", "dave"}},
		{"NOT is:checked", []string{"bob", "carol"}},
		{"!name:o", []string{"alice", "dave"}},
		{"(alice OR bob) AND amount:>=25", []string{"bob"}},
		{"alice OR bob and amount:>=25", []string{"alice", "bob"}},
		{"is:checked && elapsed:<1h", []string{"alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			f, err := Parse(tt.query, cols)
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, QueryKey, f.CreateKey())
			assert.Equal(t, tt.want, acceptedIDs(tbl, f))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, cols := newTable(t)

	_, err := Parse("missing:foo", cols)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = Parse("bob AND is:maybe", cols)
	assert.Error(t, err)

	_, err = Parse("amount:>x OR bob", cols)
	assert.Error(t, err)

	f, err := Parse("   ", cols)
	assert.NoError(t, err)
	assert.Nil(t, f)
}

// TestParse_AppliedToTable verifies a parsed query narrows the table's rows
func TestParse_AppliedToTable(t *testing.T) {
	tbl, cols := newTable(t)

	f, err := Parse("amount:>=25", cols)
	require.NoError(t, err)
	require.NoError(t, tbl.AddFilter(f))
	tbl.ApplyFilters()

	var ids []string
	for _, r := range tbl.FilteredRows() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"bob", "carol"}, ids)

	// Replacing the query under the same key widens the result again
	f, err = Parse("amount:>=10", cols)
	require.NoError(t, err)
	require.NoError(t, tbl.AddFilter(f))
	tbl.ApplyFilters()
	assert.Len(t, tbl.FilteredRows(), 3)
	assert.Len(t, tbl.Filters(), 1)
}
