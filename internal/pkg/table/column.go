package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnModel supplies the value semantics of a column.
type ColumnModel interface {
	// Compare orders two cells: negative if a sorts first, 0 if equal.
	Compare(a, b Cell) int
}

// Aggregator is implemented by column models that can aggregate a group.
type Aggregator interface {
	AggrStart() any
	AggrStep(state any, cell Cell) any
	AggrFinish(state any) any
}

// AggregationSetter is implemented by models whose aggregation function can change.
type AggregationSetter interface {
	Aggregation() AggregationFunction
	SetAggregation(AggregationFunction)
	AllowedAggregations() []AggregationFunction
}

// GroupingTexter overrides the cell text used to detect group boundaries.
type GroupingTexter interface {
	GroupingText(cell Cell) string
}

// SortingPossibleChecker lets a column refuse client side sorting, e.g.
// because only the server holds the full data set.
type SortingPossibleChecker interface {
	IsSortingPossible() bool
}

// Direction is a sort direction
type Direction int

const (
	// DirectionKeep keeps the column's current direction
	DirectionKeep Direction = iota
	Ascending
	Descending
)

// Column couples a ColumnModel with the sort and grouping state the table
// maintains for it.
type Column struct {
	ID      string
	Title   string
	Width   int
	Visible bool
	// GuiOnly columns are never sent to a server.
	GuiOnly bool
	// AlwaysIncludeSortAtBegin/End mark permanent head/tail sort columns.
	AlwaysIncludeSortAtBegin bool
	AlwaysIncludeSortAtEnd   bool
	Model                    ColumnModel

	index         int
	sortIndex     int
	sortAscending bool
	sortActive    bool
	grouped       bool
}

// NewColumn creates a visible, unsorted column
func NewColumn(id, title string, model ColumnModel) *Column {
	return &Column{
		ID:            id,
		Title:         title,
		Visible:       true,
		Model:         model,
		sortIndex:     -1,
		sortAscending: true,
	}
}

// WithInitialSort marks the column as sorted before it is handed to the table
func (c *Column) WithInitialSort(sortIndex int, ascending bool) *Column {
	c.sortIndex = sortIndex
	c.sortAscending = ascending
	c.sortActive = sortIndex >= 0
	return c
}

// Index is the position of the column's cell in every row
func (c *Column) Index() int { return c.index }

// SortIndex is the column's rank among sort columns, -1 if unsorted
func (c *Column) SortIndex() int { return c.sortIndex }

func (c *Column) SortAscending() bool { return c.sortAscending }

func (c *Column) SortActive() bool { return c.sortActive }

func (c *Column) Grouped() bool { return c.grouped }

func (c *Column) permanent() bool {
	return c.AlwaysIncludeSortAtBegin || c.AlwaysIncludeSortAtEnd
}

func (c *Column) compare(a, b *Row) int {
	if c.Model == nil {
		return strings.Compare(a.Cell(c.index).String(), b.Cell(c.index).String())
	}
	return c.Model.Compare(a.Cell(c.index), b.Cell(c.index))
}

func (c *Column) groupingText(r *Row) string {
	if gt, ok := c.Model.(GroupingTexter); ok {
		return gt.GroupingText(r.Cell(c.index))
	}
	return r.Cell(c.index).String()
}

func (c *Column) sortingPossible() bool {
	if sp, ok := c.Model.(SortingPossibleChecker); ok {
		return sp.IsSortingPossible()
	}
	return true
}

// TextColumn compares display texts case-insensitively.
type TextColumn struct{}

func (TextColumn) Compare(a, b Cell) int {
	return strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
}

// DateColumn compares time.Time values or RFC 3339 strings.
type DateColumn struct {
	// GroupFormat, when set, groups rows by the formatted date instead of the full cell text.
	GroupFormat string
}

func (DateColumn) Compare(a, b Cell) int {
	ta, oka := toTime(a.Value)
	tb, okb := toTime(b.Value)
	switch {
	case !oka && !okb:
		return 0
	case !oka:
		return -1
	case !okb:
		return 1
	}
	return ta.Compare(tb)
}

func (d DateColumn) GroupingText(c Cell) string {
	t, ok := toTime(c.Value)
	if !ok || d.GroupFormat == "" {
		return c.String()
	}
	return t.Format(d.GroupFormat)
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

// AggregationFunction selects how a NumberColumn aggregates a group.
type AggregationFunction string

const (
	AggregationNone AggregationFunction = "none"
	AggregationSum  AggregationFunction = "sum"
	AggregationAvg  AggregationFunction = "avg"
	AggregationMin  AggregationFunction = "min"
	AggregationMax  AggregationFunction = "max"
)

// NumberColumn compares numeric values and aggregates them.
type NumberColumn struct {
	Function AggregationFunction
	// Allowed lists the functions a user may switch to. Nil allows all.
	Allowed []AggregationFunction
}

// NewNumberColumn returns a number model with the given aggregation
func NewNumberColumn(fn AggregationFunction) *NumberColumn {
	if fn == "" {
		fn = AggregationSum
	}
	return &NumberColumn{Function: fn}
}

func (n *NumberColumn) Compare(a, b Cell) int {
	fa, oka := ToFloat(a.Value)
	fb, okb := ToFloat(b.Value)
	switch {
	case !oka && !okb:
		return 0
	case !oka:
		return -1
	case !okb:
		return 1
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func (n *NumberColumn) Aggregation() AggregationFunction { return n.Function }

func (n *NumberColumn) SetAggregation(fn AggregationFunction) { n.Function = fn }

func (n *NumberColumn) AllowedAggregations() []AggregationFunction {
	if n.Allowed != nil {
		return n.Allowed
	}
	return []AggregationFunction{AggregationSum, AggregationAvg, AggregationMin, AggregationMax, AggregationNone}
}

type numberAggregate struct {
	count    int
	sum      float64
	min, max float64
}

func (n *NumberColumn) AggrStart() any {
	return &numberAggregate{min: math.Inf(1), max: math.Inf(-1)}
}

func (n *NumberColumn) AggrStep(state any, cell Cell) any {
	agg := state.(*numberAggregate)
	f, ok := ToFloat(cell.Value)
	if !ok {
		return agg
	}
	agg.count++
	agg.sum += f
	agg.min = math.Min(agg.min, f)
	agg.max = math.Max(agg.max, f)
	return agg
}

func (n *NumberColumn) AggrFinish(state any) any {
	agg := state.(*numberAggregate)
	if agg.count == 0 {
		return nil
	}
	switch n.Function {
	case AggregationSum:
		return agg.sum
	case AggregationAvg:
		return agg.sum / float64(agg.count)
	case AggregationMin:
		return agg.min
	case AggregationMax:
		return agg.max
	}
	return nil
}

// ToFloat converts numeric cell values, including numeric strings and
// json.Number, to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
