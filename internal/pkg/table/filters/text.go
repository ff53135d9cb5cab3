package filters

import (
	"fmt"
	"strings"

	"github.com/endorses/gridsync/internal/pkg/table"
)

// TextFilter accepts rows whose cell text matches the search text,
// case-insensitively. A leading or trailing * anchors the match at the end
// or start of the text. With no columns every cell is searched.
type TextFilter struct {
	searchText  string
	pattern     string
	patternType PatternType
	columns     []int
	columnIDs   []string
}

// NewTextFilter creates a text filter over the given columns, or over all
// cells when columns is empty.
func NewTextFilter(searchText string, columns ...*table.Column) *TextFilter {
	f := &TextFilter{searchText: strings.ToLower(searchText)}
	f.pattern, f.patternType = ParsePattern(f.searchText)
	for _, c := range columns {
		f.columns = append(f.columns, c.Index())
		f.columnIDs = append(f.columnIDs, c.ID)
	}
	return f
}

// Accept implements table.Filter
func (f *TextFilter) Accept(r *table.Row) bool {
	if f.pattern == "" {
		return true
	}
	if len(f.columns) == 0 {
		for _, c := range r.Cells {
			if Match(c.String(), f.pattern, f.patternType) {
				return true
			}
		}
		return false
	}
	for _, i := range f.columns {
		if Match(r.Cell(i).String(), f.pattern, f.patternType) {
			return true
		}
	}
	return false
}

func (f *TextFilter) CreateKey() string {
	return fmt.Sprintf("text:%s:%s", strings.Join(f.columnIDs, ","), f.searchText)
}

func (f *TextFilter) CreateLabel() string {
	if len(f.columnIDs) == 0 {
		return f.searchText
	}
	return strings.Join(f.columnIDs, ",") + ":" + f.searchText
}

func (f *TextFilter) Type() string { return "text" }

// Selectivity returns how selective this filter is (0.0-1.0)
func (f *TextFilter) Selectivity() float64 {
	if len(f.columns) == 0 {
		return 0.3
	}
	return 0.6
}
