package filters

import (
	"strings"

	"github.com/endorses/gridsync/internal/pkg/table"
)

// BooleanOperator represents logical operators
type BooleanOperator int

const (
	OpAND BooleanOperator = iota
	OpOR
	OpNOT
)

// BooleanFilter combines filters with a logical operator
type BooleanFilter struct {
	operator BooleanOperator
	left     Filter
	right    Filter // nil for NOT
	expr     string // original expression
}

// NewBooleanFilter creates a new boolean filter
func NewBooleanFilter(operator BooleanOperator, left, right Filter, expr string) *BooleanFilter {
	return &BooleanFilter{
		operator: operator,
		left:     left,
		right:    right,
		expr:     expr,
	}
}

// Accept implements table.Filter
func (bf *BooleanFilter) Accept(r *table.Row) bool {
	switch bf.operator {
	case OpAND:
		return bf.left.Accept(r) && bf.right.Accept(r)
	case OpOR:
		return bf.left.Accept(r) || bf.right.Accept(r)
	case OpNOT:
		return !bf.left.Accept(r)
	default:
		return false
	}
}

func (bf *BooleanFilter) CreateKey() string { return "boolean:" + bf.CreateLabel() }

func (bf *BooleanFilter) CreateLabel() string {
	if bf.expr != "" {
		return bf.expr
	}
	switch bf.operator {
	case OpAND:
		return bf.left.CreateLabel() + " AND " + bf.right.CreateLabel()
	case OpOR:
		return bf.left.CreateLabel() + " OR " + bf.right.CreateLabel()
	case OpNOT:
		return "NOT " + bf.left.CreateLabel()
	default:
		return ""
	}
}

func (bf *BooleanFilter) Type() string { return "boolean" }

// Selectivity returns how selective this filter is (0.0-1.0)
func (bf *BooleanFilter) Selectivity() float64 {
	switch bf.operator {
	case OpAND:
		if bf.left != nil && bf.right != nil {
			return (bf.left.Selectivity() + bf.right.Selectivity()) / 2.0
		}
	case OpOR:
		if bf.left != nil && bf.right != nil {
			return min(bf.left.Selectivity(), bf.right.Selectivity())
		}
	case OpNOT:
		if bf.left != nil {
			return 1.0 - bf.left.Selectivity()
		}
	}
	return 0.5
}

// ParseBooleanExpression parses a filter expression with boolean operators.
// Supported syntax:
//   - "expr1 AND expr2" - both must match
//   - "expr1 OR expr2"  - either must match
//   - "NOT expr"        - must not match
//   - "expr1 && expr2"  - shorthand for AND
//   - "expr1 || expr2"  - shorthand for OR
//   - "!expr"           - shorthand for NOT
//   - Parentheses for grouping: "(expr1 OR expr2) AND expr3"
//
// Terms without operators are handed to parseSimple. The first error it
// returns aborts parsing.
func ParseBooleanExpression(expr string, parseSimple func(string) (Filter, error)) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	p := &exprParser{parseSimple: parseSimple}
	f := p.parse(expr)
	if p.err != nil {
		return nil, p.err
	}
	return f, nil
}

type exprParser struct {
	parseSimple func(string) (Filter, error)
	err         error
}

func (p *exprParser) parse(expr string) Filter {
	if f := p.parseBoolean(expr); f != nil {
		return f
	}
	return p.simple(expr)
}

func (p *exprParser) simple(expr string) Filter {
	if p.err != nil {
		return nil
	}
	f, err := p.parseSimple(strings.TrimSpace(expr))
	if err != nil {
		p.err = err
		return nil
	}
	return f
}

// parseBoolean returns nil when expr holds no boolean operator
func (p *exprParser) parseBoolean(expr string) Filter {
	expr = strings.TrimSpace(expr)

	if isBalancedOutermost(expr) {
		return p.parse(expr[1 : len(expr)-1])
	}

	// OR binds loosest, then AND, then NOT
	if f := p.parseBinary(expr, OpOR, "||", "OR"); f != nil {
		return f
	}
	if f := p.parseBinary(expr, OpAND, "&&", "AND"); f != nil {
		return f
	}
	return p.parseNOT(expr)
}

func (p *exprParser) parseBinary(expr string, op BooleanOperator, symbol, word string) Filter {
	idx, width := findOperator(expr, symbol), len(symbol)
	if idx == -1 {
		idx, width = findOperatorWord(expr, word), len(word)
	}
	if idx == -1 {
		return nil
	}
	left := p.parse(expr[:idx])
	right := p.parse(expr[idx+width:])
	if p.err != nil {
		return nil
	}
	return NewBooleanFilter(op, left, right, expr)
}

func (p *exprParser) parseNOT(expr string) Filter {
	var inner string
	switch {
	case strings.HasPrefix(expr, "!"):
		inner = expr[1:]
	case len(expr) >= 4 && strings.ToUpper(expr[:4]) == "NOT ":
		inner = expr[4:]
	default:
		return nil
	}
	f := p.parse(inner)
	if p.err != nil {
		return nil
	}
	return NewBooleanFilter(OpNOT, f, nil, expr)
}

// findOperator finds the position of an operator outside of parentheses
func findOperator(expr string, op string) int {
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch {
		case expr[i] == '(':
			depth++
		case expr[i] == ')':
			depth--
		case depth == 0 && strings.HasPrefix(expr[i:], op):
			return i
		}
	}
	return -1
}

// findOperatorWord finds a whitespace-delimited word operator outside of parentheses
func findOperatorWord(expr string, op string) int {
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth != 0 || i == 0 || i+len(op)+1 >= len(expr) {
			continue
		}
		if expr[i-1] == ' ' && expr[i+len(op)] == ' ' && strings.EqualFold(expr[i:i+len(op)], op) {
			return i
		}
	}
	return -1
}

// isBalancedOutermost reports whether expr is wrapped in one pair of parentheses
func isBalancedOutermost(expr string) bool {
	if !strings.HasPrefix(expr, "(") || !strings.HasSuffix(expr, ")") {
		return false
	}
	depth := 0
	for i, ch := range expr {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i < len(expr)-1 {
				return false
			}
		}
	}
	return depth == 0
}
