package table

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// Status tracks how a row changed since it was last acknowledged.
type Status int

const (
	StatusNonChanged Status = iota
	StatusInserted
	StatusUpdated
)

func (s Status) String() string {
	switch s {
	case StatusInserted:
		return "inserted"
	case StatusUpdated:
		return "updated"
	default:
		return "nonChanged"
	}
}

// Cell holds a raw value and its display text. When Text is empty the value
// is formatted with %v.
type Cell struct {
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
}

// UnmarshalJSON accepts either a bare scalar or a {"value","text"} object.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var obj struct {
		Value any    `json:"value"`
		Text  string `json:"text"`
	}
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		c.Value, c.Text = obj.Value, obj.Text
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.Value, c.Text = v, ""
	return nil
}

// String returns the display text of the cell
func (c Cell) String() string {
	if c.Text != "" {
		return c.Text
	}
	if c.Value == nil {
		return ""
	}
	return fmt.Sprintf("%v", c.Value)
}

// RowData describes a row to insert or update.
type RowData struct {
	ID       string `json:"id" yaml:"id"`
	ParentID string `json:"parentRow,omitempty" yaml:"parent,omitempty"`
	Cells    []Cell `json:"cells" yaml:"cells"`
	Checked  bool   `json:"checked,omitempty" yaml:"checked,omitempty"`
	Expanded *bool  `json:"expanded,omitempty" yaml:"expanded,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Row is a table row. Relations to parent, children and aggregate rows are
// kept as ids and resolved through the owning Table.
type Row struct {
	ID       string
	ParentID string
	Cells    []Cell
	Checked  bool
	Expanded bool
	Enabled  bool
	Status   Status

	filterAccepted bool
	hierarchyLevel int
	childIDs       []string
	expandable     bool

	height          int
	attached        bool
	aggregateBefore *AggregateRow
	aggregateAfter  *AggregateRow
}

func newRow(data RowData) *Row {
	r := &Row{
		ID:             data.ID,
		ParentID:       data.ParentID,
		Cells:          append([]Cell(nil), data.Cells...),
		Checked:        data.Checked,
		Expanded:       true,
		Enabled:        true,
		filterAccepted: true,
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if data.Expanded != nil {
		r.Expanded = *data.Expanded
	}
	if data.Enabled != nil {
		r.Enabled = *data.Enabled
	}
	return r
}

// Cell returns the cell at index i, or the zero cell if the row has fewer cells
func (r *Row) Cell(i int) Cell {
	if i < 0 || i >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[i]
}

// FilterAccepted reports whether every active filter accepts the row
func (r *Row) FilterAccepted() bool { return r.filterAccepted }

// HierarchyLevel is the depth of the row in the tree, 0 for roots
func (r *Row) HierarchyLevel() int { return r.hierarchyLevel }

// ChildIDs returns the ids of the direct children in canonical order
func (r *Row) ChildIDs() []string { return append([]string(nil), r.childIDs...) }

// HasChildren reports whether any row names this row as parent
func (r *Row) HasChildren() bool { return len(r.childIDs) > 0 }

// Expandable reports whether the row has visible children
func (r *Row) Expandable() bool { return r.expandable }

// Attached reports whether the row is currently materialized in the view
func (r *Row) Attached() bool { return r.attached }

// Height returns the last measured height, 0 if never measured
func (r *Row) Height() int { return r.height }

// AggregateRowBefore returns the aggregate row directly above this row
func (r *Row) AggregateRowBefore() *AggregateRow { return r.aggregateBefore }

// AggregateRowAfter returns the aggregate row directly below this row
func (r *Row) AggregateRowAfter() *AggregateRow { return r.aggregateAfter }

func (r *Row) String() string {
	return fmt.Sprintf("Row[id=%s]", r.ID)
}

// cellValuesDiffer reports whether any cell value changed between two rows.
// A shorter new row only counts as changed where the old row had cells.
func cellValuesDiffer(old, cur []Cell) bool {
	for i, c := range cur {
		if i >= len(old) {
			return true
		}
		if !cmp.Equal(old[i].Value, c.Value) {
			return true
		}
	}
	return false
}

// AggregateRow is a synthetic row holding per-column aggregation results for
// one group. PrevID/NextID name the adjacent data rows; either may be empty.
type AggregateRow struct {
	Contents []any
	PrevID   string
	NextID   string

	height   int
	attached bool
}

// Height returns the last measured height, 0 if never measured
func (a *AggregateRow) Height() int { return a.height }

// Attached reports whether the aggregate row is materialized in the view
func (a *AggregateRow) Attached() bool { return a.attached }
