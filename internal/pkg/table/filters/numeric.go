package filters

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/endorses/gridsync/internal/pkg/table"
)

// NumericComparisonFilter filters rows by comparing a numeric cell
type NumericComparisonFilter struct {
	column   int
	columnID string
	operator string
	value    float64
	rawExpr  string
}

// NewNumericComparisonFilter creates a numeric comparison on column.
// operatorAndValue has the form ">5", ">=2.5", "<=30s", "=10".
// Values may carry duration units ("30s", "5m", "1h30m"), compared in seconds.
func NewNumericComparisonFilter(column *table.Column, operatorAndValue string) (*NumericComparisonFilter, error) {
	operator, valueStr := parseOperatorAndValue(operatorAndValue)
	if operator == "" {
		return nil, fmt.Errorf("invalid comparison: %s", operatorAndValue)
	}

	value, err := parseNumericValue(valueStr)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", column.ID, err)
	}

	return &NumericComparisonFilter{
		column:   column.Index(),
		columnID: column.ID,
		operator: operator,
		value:    value,
		rawExpr:  fmt.Sprintf("%s:%s%s", column.ID, operator, valueStr),
	}, nil
}

// parseOperatorAndValue extracts the operator and value from a comparison string
func parseOperatorAndValue(s string) (operator, value string) {
	s = strings.TrimSpace(s)

	for _, op := range []string{">=", "<=", "==", "!="} {
		if strings.HasPrefix(s, op) {
			if op == "==" {
				op = "="
			}
			return op, strings.TrimSpace(s[2:])
		}
	}
	for _, op := range []string{">", "<", "="} {
		if strings.HasPrefix(s, op) {
			return op, strings.TrimSpace(s[1:])
		}
	}
	return "", s
}

// parseNumericValue parses a plain number or a duration in seconds
func parseNumericValue(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d.Seconds(), nil
	}
	return 0, fmt.Errorf("not a number or duration: %q", s)
}

// Accept implements table.Filter. Rows whose cell is not numeric are rejected.
func (f *NumericComparisonFilter) Accept(r *table.Row) bool {
	cell := r.Cell(f.column)
	fieldValue, ok := table.ToFloat(cell.Value)
	if !ok {
		if d, isDur := cell.Value.(time.Duration); isDur {
			fieldValue, ok = d.Seconds(), true
		}
	}
	if !ok {
		return false
	}

	const epsilon = 0.0001
	diff := fieldValue - f.value
	if diff < 0 {
		diff = -diff
	}
	switch f.operator {
	case ">":
		return fieldValue > f.value
	case "<":
		return fieldValue < f.value
	case ">=":
		return fieldValue >= f.value
	case "<=":
		return fieldValue <= f.value
	case "=":
		return diff < epsilon
	case "!=":
		return diff >= epsilon
	default:
		return false
	}
}

func (f *NumericComparisonFilter) CreateKey() string { return "numeric:" + f.rawExpr }

func (f *NumericComparisonFilter) CreateLabel() string { return f.rawExpr }

func (f *NumericComparisonFilter) Type() string { return "numeric" }

// Selectivity returns how selective this filter is (0.0-1.0)
func (f *NumericComparisonFilter) Selectivity() float64 {
	if f.operator == "=" {
		return 0.9
	}
	return 0.7
}
