// Package filters provides row filters for the table engine: free text,
// per-column numeric comparisons, check state and boolean combinations of
// those, together with a small query language that builds them.
package filters

import (
	"github.com/endorses/gridsync/internal/pkg/table"
)

// Filter is a table filter that can describe itself and estimate how
// selective it is.
type Filter interface {
	table.Filter
	table.Labeler
	// Type returns the filter type (text, numeric, checked, boolean, chain)
	Type() string
	// Selectivity returns how selective this filter is (0.0 = least selective, 1.0 = most selective)
	// More selective filters reject rows faster and should run first
	Selectivity() float64
}

// filterWithOrder wraps a filter with its insertion order
type filterWithOrder struct {
	filter         Filter
	insertionOrder int
}

// Chain accepts a row when every filter in it accepts the row. It is itself
// a Filter, so a whole user query can be registered on a table under one key.
type Chain struct {
	key            string
	filters        []filterWithOrder
	nextOrderIndex int
}

// NewChain creates an empty chain registered under key
func NewChain(key string) *Chain {
	return &Chain{key: key}
}

// Add adds a filter to the chain and sorts by selectivity (most selective first)
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, filterWithOrder{
		filter:         f,
		insertionOrder: c.nextOrderIndex,
	})
	c.nextOrderIndex++
	c.sortBySelectivity()
}

// sortBySelectivity sorts filters by selectivity (descending), keeping
// insertion order among equals.
func (c *Chain) sortBySelectivity() {
	// Insertion sort; chains hold a handful of filters
	for i := 1; i < len(c.filters); i++ {
		j := i
		for j > 0 && c.filters[j].filter.Selectivity() > c.filters[j-1].filter.Selectivity() {
			c.filters[j], c.filters[j-1] = c.filters[j-1], c.filters[j]
			j--
		}
	}
}

// Clear removes all filters
func (c *Chain) Clear() {
	c.filters = nil
	c.nextOrderIndex = 0
}

// Accept implements table.Filter
func (c *Chain) Accept(r *table.Row) bool {
	for _, fwo := range c.filters {
		if !fwo.filter.Accept(r) {
			return false
		}
	}
	return true
}

// CreateKey implements table.Filter
func (c *Chain) CreateKey() string { return c.key }

// CreateLabel joins the labels of all filters in insertion order
func (c *Chain) CreateLabel() string {
	ordered := make([]filterWithOrder, len(c.filters))
	copy(ordered, c.filters)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].insertionOrder < ordered[j-1].insertionOrder; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	label := ""
	for i, fwo := range ordered {
		if i > 0 {
			label += " AND "
		}
		label += fwo.filter.CreateLabel()
	}
	return label
}

func (c *Chain) Type() string { return "chain" }

// Selectivity of a chain is that of its most selective member
func (c *Chain) Selectivity() float64 {
	if len(c.filters) == 0 {
		return 0
	}
	return c.filters[0].filter.Selectivity()
}

// Filters returns the active filters, most selective first
func (c *Chain) Filters() []Filter {
	out := make([]Filter, len(c.filters))
	for i, fwo := range c.filters {
		out[i] = fwo.filter
	}
	return out
}

// IsEmpty returns true if there are no filters
func (c *Chain) IsEmpty() bool { return len(c.filters) == 0 }

// Count returns the number of filters in the chain
func (c *Chain) Count() int { return len(c.filters) }

// RemoveLast removes the most recently added filter.
// Returns true if a filter was removed, false if the chain was empty
func (c *Chain) RemoveLast() bool {
	if len(c.filters) == 0 {
		return false
	}
	maxOrderIdx := 0
	for i := 1; i < len(c.filters); i++ {
		if c.filters[i].insertionOrder > c.filters[maxOrderIdx].insertionOrder {
			maxOrderIdx = i
		}
	}
	c.filters = append(c.filters[:maxOrderIdx], c.filters[maxOrderIdx+1:]...)
	return true
}
