package tableadapter

import (
	"fmt"

	"github.com/endorses/gridsync/internal/pkg/table"
)

// ColumnData describes a column in adapter data and columnStructureChanged
// events.
type ColumnData struct {
	ID            string `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Type          string `json:"type,omitempty" yaml:"type,omitempty"`
	Aggregation   string `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Width         int    `json:"width,omitempty" yaml:"width,omitempty"`
	Hidden        bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	SortIndex     *int   `json:"sortIndex,omitempty" yaml:"sort_index,omitempty"`
	SortAscending *bool  `json:"sortAscending,omitempty" yaml:"sort_ascending,omitempty"`
	GroupFormat   string `json:"groupFormat,omitempty" yaml:"group_format,omitempty"`
}

// Column types
const (
	TypeText   = "text"
	TypeNumber = "number"
	TypeDate   = "date"
)

// NewColumns builds table columns from their descriptions
func NewColumns(data []ColumnData) ([]*table.Column, error) {
	cols := make([]*table.Column, 0, len(data))
	for _, d := range data {
		c, err := newColumn(d)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func newColumn(d ColumnData) (*table.Column, error) {
	var model table.ColumnModel
	switch d.Type {
	case "", TypeText:
		model = table.TextColumn{}
	case TypeNumber:
		fn := table.AggregationFunction(d.Aggregation)
		if fn == "" {
			fn = table.AggregationSum
		}
		model = table.NewNumberColumn(fn)
	case TypeDate:
		model = table.DateColumn{GroupFormat: d.GroupFormat}
	default:
		return nil, fmt.Errorf("column %s: unsupported type %q", d.ID, d.Type)
	}

	c := table.NewColumn(d.ID, d.Title, model)
	c.Width = d.Width
	c.Visible = !d.Hidden
	if d.SortIndex != nil {
		ascending := true
		if d.SortAscending != nil {
			ascending = *d.SortAscending
		}
		c.WithInitialSort(*d.SortIndex, ascending)
	}
	return c, nil
}

// DescribeColumns is the inverse of NewColumns. Sort state is taken from the
// table's current sort columns.
func DescribeColumns(cols []*table.Column) []ColumnData {
	out := make([]ColumnData, 0, len(cols))
	for _, c := range cols {
		d := ColumnData{
			ID:     c.ID,
			Title:  c.Title,
			Width:  c.Width,
			Hidden: !c.Visible,
		}
		switch m := c.Model.(type) {
		case *table.NumberColumn:
			d.Type = TypeNumber
			d.Aggregation = string(m.Function)
		case table.DateColumn:
			d.Type = TypeDate
			d.GroupFormat = m.GroupFormat
		}
		if c.SortActive() {
			idx, asc := c.SortIndex(), c.SortAscending()
			d.SortIndex, d.SortAscending = &idx, &asc
		}
		out = append(out, d)
	}
	return out
}

// Data is the adapter data of a table
type Data struct {
	Columns     []ColumnData    `json:"columns" yaml:"columns"`
	Rows        []table.RowData `json:"rows,omitempty" yaml:"rows,omitempty"`
	MultiSelect *bool           `json:"multiSelect,omitempty" yaml:"multi_select,omitempty"`
	MultiCheck  *bool           `json:"multiCheck,omitempty" yaml:"multi_check,omitempty"`
	Checkable   *bool           `json:"checkable,omitempty" yaml:"checkable,omitempty"`
	SortEnabled *bool           `json:"sortEnabled,omitempty" yaml:"sort_enabled,omitempty"`
	SelectedIDs []string        `json:"selectedRows,omitempty" yaml:"selected,omitempty"`
}

// NewTable builds a table from its description on top of base options and
// inserts the initial rows.
func NewTable(data Data, base table.Options) (*table.Table, error) {
	cols, err := NewColumns(data.Columns)
	if err != nil {
		return nil, err
	}
	opts := base
	opts.Columns = cols
	setIfPresent(&opts.MultiSelect, data.MultiSelect)
	setIfPresent(&opts.MultiCheck, data.MultiCheck)
	setIfPresent(&opts.Checkable, data.Checkable)
	setIfPresent(&opts.SortEnabled, data.SortEnabled)

	t := table.New(opts)
	if _, err := t.InsertRows(data.Rows); err != nil {
		return nil, err
	}
	if len(data.SelectedIDs) > 0 {
		t.SelectRows(rowsByID(t, data.SelectedIDs))
	}
	return t, nil
}

func setIfPresent(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// rowsByID resolves ids, skipping the ones the table does not hold
func rowsByID(t *table.Table, ids []string) []*table.Row {
	rows := make([]*table.Row, 0, len(ids))
	for _, id := range ids {
		if r := t.Row(id); r != nil {
			rows = append(rows, r)
		}
	}
	return rows
}
