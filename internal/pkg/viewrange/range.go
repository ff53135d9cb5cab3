// Package viewrange implements half-open integer intervals used to track
// which rows of a table are materialized in a view.
package viewrange

import "fmt"

// Range is the half-open interval [From, To). A range with To <= From is empty.
type Range struct {
	From int
	To   int
}

// New returns the range [from, to)
func New(from, to int) Range {
	return Range{From: from, To: to}
}

// Size returns the number of indices covered
func (r Range) Size() int {
	if r.To <= r.From {
		return 0
	}
	return r.To - r.From
}

// Empty reports whether the range covers no index
func (r Range) Empty() bool {
	return r.Size() == 0
}

// Equals compares bounds. Two empty ranges are equal regardless of bounds.
func (r Range) Equals(o Range) bool {
	if r.Empty() && o.Empty() {
		return true
	}
	return r.From == o.From && r.To == o.To
}

// Contains reports whether i lies inside the range
func (r Range) Contains(i int) bool {
	return i >= r.From && i < r.To
}

// Intersect returns the overlap of both ranges, or the empty range {0,0}
func (r Range) Intersect(o Range) Range {
	from := max(r.From, o.From)
	to := min(r.To, o.To)
	if to <= from {
		return Range{}
	}
	return Range{From: from, To: to}
}

// Union merges both ranges. The result holds one range when they overlap,
// touch, or one of them is empty; otherwise two ranges in ascending order.
func (r Range) Union(o Range) []Range {
	switch {
	case r.Empty() && o.Empty():
		return []Range{{}}
	case r.Empty():
		return []Range{o}
	case o.Empty():
		return []Range{r}
	}
	if r.From > o.From {
		r, o = o, r
	}
	if o.From <= r.To {
		return []Range{{From: r.From, To: max(r.To, o.To)}}
	}
	return []Range{r, o}
}

// Subtract removes o from r. The result holds zero, one or two non-empty
// ranges in ascending order. If o does not overlap r, r is returned unchanged.
func (r Range) Subtract(o Range) []Range {
	if r.Empty() {
		return nil
	}
	if r.Intersect(o).Empty() {
		return []Range{r}
	}
	var out []Range
	if o.From > r.From {
		out = append(out, Range{From: r.From, To: o.From})
	}
	if o.To < r.To {
		out = append(out, Range{From: o.To, To: r.To})
	}
	return out
}

// SubtractAll removes every range in others from r
func (r Range) SubtractAll(others []Range) []Range {
	rest := []Range{r}
	for _, o := range others {
		var next []Range
		for _, cur := range rest {
			next = append(next, cur.Subtract(o)...)
		}
		rest = next
	}
	return rest
}

// Shift moves both bounds by n
func (r Range) Shift(n int) Range {
	return Range{From: r.From + n, To: r.To + n}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.From, r.To)
}
