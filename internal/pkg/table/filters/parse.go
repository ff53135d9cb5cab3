package filters

import (
	"errors"
	"fmt"
	"strings"

	"github.com/endorses/gridsync/internal/pkg/table"
)

// ErrUnknownColumn is returned when a query names a column the table lacks
var ErrUnknownColumn = errors.New("unknown column")

// QueryKey is the key under which Parse registers user queries
const QueryKey = "query"

// Parse builds a filter from a user query against the given columns.
//
// Terms:
//   - "word"            text anywhere in the row
//   - "col:word"        text in one column
//   - "col:>5", "col:<=30s", "col:=2"  numeric comparison
//   - "is:checked", "is:unchecked"
//
// Terms combine with AND, OR, NOT and parentheses (see ParseBooleanExpression).
// An empty query returns nil.
func Parse(query string, columns []*table.Column) (Filter, error) {
	byID := make(map[string]*table.Column, len(columns))
	for _, c := range columns {
		byID[strings.ToLower(c.ID)] = c
	}
	f, err := ParseBooleanExpression(query, func(term string) (Filter, error) {
		return parseTerm(term, byID)
	})
	if err != nil || f == nil {
		return nil, err
	}
	chain := NewChain(QueryKey)
	chain.Add(f)
	return chain, nil
}

func parseTerm(term string, columns map[string]*table.Column) (Filter, error) {
	term = strings.Trim(term, `"`)
	name, rest, found := strings.Cut(term, ":")
	if !found || name == "" {
		return NewTextFilter(term), nil
	}
	if strings.EqualFold(name, "is") {
		switch strings.ToLower(rest) {
		case "checked":
			return CheckedFilter{Checked: true}, nil
		case "unchecked":
			return CheckedFilter{Checked: false}, nil
		}
		return nil, fmt.Errorf("parse %q: expected is:checked or is:unchecked", term)
	}
	col, ok := columns[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("parse %q: %w: %s", term, ErrUnknownColumn, name)
	}
	if op, _ := parseOperatorAndValue(rest); op != "" {
		return NewNumericComparisonFilter(col, rest)
	}
	return NewTextFilter(rest, col), nil
}
