package table

import (
	"errors"
	"fmt"
)

var (
	// ErrRowNotFound is returned when an operation names a row id the table does not hold
	ErrRowNotFound = errors.New("row not found")

	// ErrDuplicateRow is returned when inserting a row whose id already exists
	ErrDuplicateRow = errors.New("duplicate row id")

	// ErrOrphanRow is returned when a row references a parent that cannot be resolved
	ErrOrphanRow = errors.New("parent row cannot be resolved")

	// ErrRowCountMismatch is returned by UpdateRowOrder when the new order does not cover every row
	ErrRowCountMismatch = errors.New("row order length differs from row count")

	// ErrColumnCountMismatch is returned by UpdateColumnOrder when the new order does not cover every column
	ErrColumnCountMismatch = errors.New("column order length differs from column count")

	// ErrEmptyFilterKey is returned when a filter produces an empty key
	ErrEmptyFilterKey = errors.New("filter key must not be empty")

	// ErrViewRangeNotContiguous is returned when a render or remove would split the rendered window
	ErrViewRangeNotContiguous = errors.New("view range must stay contiguous")

	// ErrInvalidRowHeight is returned when the viewport is configured with a non-positive row height
	ErrInvalidRowHeight = errors.New("row height must be positive")

	// ErrUnknownColumn is returned when a column is not part of the table
	ErrUnknownColumn = errors.New("unknown column")
)

// OrphanRowError describes a row whose parent id is not resolvable, or
// which is unreachable from any root because the parent links form a cycle.
type OrphanRowError struct {
	RowID    string
	ParentID string
}

func (e *OrphanRowError) Error() string {
	return fmt.Sprintf("row %q: parent %q cannot be resolved", e.RowID, e.ParentID)
}

func (e *OrphanRowError) Unwrap() error {
	return ErrOrphanRow
}
