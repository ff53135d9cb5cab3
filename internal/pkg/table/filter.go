package table

import "fmt"

// Filter decides whether a row is accepted. Filters are keyed by
// CreateKey; adding a filter with an existing key replaces it.
type Filter interface {
	CreateKey() string
	Accept(r *Row) bool
}

// Labeler is implemented by filters that can describe themselves to the user.
type Labeler interface {
	CreateLabel() string
}

// FilterFunc adapts a function to Filter under a fixed key.
type FilterFunc struct {
	Key   string
	Label string
	Fn    func(r *Row) bool
}

func (f FilterFunc) CreateKey() string   { return f.Key }
func (f FilterFunc) Accept(r *Row) bool  { return f.Fn(r) }
func (f FilterFunc) CreateLabel() string { return f.Label }

// AddFilter registers f. Filters take effect on the next ApplyFilters.
func (t *Table) AddFilter(f Filter) error {
	key := f.CreateKey()
	if key == "" {
		return fmt.Errorf("add filter %T: %w", f, ErrEmptyFilterKey)
	}
	if _, exists := t.filters[key]; !exists {
		t.filterKeys = append(t.filterKeys, key)
	}
	t.filters[key] = f
	t.trigger(Event{Type: EventFilterAdded, Filter: f})
	return nil
}

// RemoveFilter unregisters the filter with f's key
func (t *Table) RemoveFilter(f Filter) bool {
	return t.RemoveFilterByKey(f.CreateKey())
}

// RemoveFilterByKey unregisters the filter with the given key
func (t *Table) RemoveFilterByKey(key string) bool {
	f, ok := t.filters[key]
	if !ok {
		return false
	}
	delete(t.filters, key)
	for i, k := range t.filterKeys {
		if k == key {
			t.filterKeys = append(t.filterKeys[:i], t.filterKeys[i+1:]...)
			break
		}
	}
	t.trigger(Event{Type: EventFilterRemoved, Filter: f})
	return true
}

// ClearFilters unregisters every filter and re-applies
func (t *Table) ClearFilters() {
	for len(t.filterKeys) > 0 {
		t.RemoveFilterByKey(t.filterKeys[0])
	}
	t.ApplyFilters()
}

// GetFilter returns the filter registered under key
func (t *Table) GetFilter(key string) Filter {
	return t.filters[key]
}

// Filters returns the registered filters in registration order
func (t *Table) Filters() []Filter {
	out := make([]Filter, 0, len(t.filterKeys))
	for _, k := range t.filterKeys {
		out = append(out, t.filters[k])
	}
	return out
}

// FilteredBy returns the labels of all filters that can describe themselves
func (t *Table) FilteredBy() []string {
	var labels []string
	for _, f := range t.Filters() {
		if l, ok := f.(Labeler); ok {
			if label := l.CreateLabel(); label != "" {
				labels = append(labels, label)
			}
		}
	}
	return labels
}

// ApplyFilters re-evaluates every row against the registered filters,
// updates the visible rows and the rendered window, and regroups.
func (t *Table) ApplyFilters() {
	t.mustUpdateRowStructure(structureUpdate{filteredRows: true, applyFilters: true, visibleRows: true})
	t.group()
	t.vp.rowsChanged()
}

// applyFiltersForRow evaluates all filters for r and reports whether the
// accepted flag changed.
func (t *Table) applyFiltersForRow(r *Row) bool {
	accepted := true
	for _, k := range t.filterKeys {
		if !t.filters[k].Accept(r) {
			accepted = false
			break
		}
	}
	if r.filterAccepted == accepted {
		return false
	}
	r.filterAccepted = accepted
	return true
}

// updateFilteredRows rebuilds the filtered row list, optionally re-applying
// the filters first, and reports whether any accepted flag changed.
func (t *Table) updateFilteredRows(applyFilters bool) bool {
	changed := false
	filtered := make([]*Row, 0, len(t.rows))
	for _, r := range t.rows {
		if applyFilters {
			changed = t.applyFiltersForRow(r) || changed
		}
		if r.filterAccepted {
			filtered = append(filtered, r)
		}
	}
	t.filteredRows = filtered
	if changed {
		t.trigger(Event{Type: EventFilterChanged})
	}
	return changed
}
