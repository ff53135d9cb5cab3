package filters

import "github.com/endorses/gridsync/internal/pkg/table"

// CheckedFilter accepts rows by their check state
type CheckedFilter struct {
	Checked bool
}

func (f CheckedFilter) Accept(r *table.Row) bool { return r.Checked == f.Checked }

// CreateKey is shared by both states so toggling replaces the filter
func (f CheckedFilter) CreateKey() string { return "checked" }

func (f CheckedFilter) CreateLabel() string {
	if f.Checked {
		return "checked"
	}
	return "unchecked"
}

func (f CheckedFilter) Type() string { return "checked" }

func (f CheckedFilter) Selectivity() float64 { return 0.8 }
