package table

import (
	"fmt"
	"math"

	"github.com/endorses/gridsync/internal/pkg/viewrange"
)

// RowView materializes rows. The table decides which rows are attached;
// the view decides how they look and reports their measured height.
type RowView interface {
	AttachRow(r *Row) int
	DetachRow(r *Row)
	AttachAggregateRow(a *AggregateRow) int
	DetachAggregateRow(a *AggregateRow)
	// SetFillers receives the heights standing in for unrendered rows
	// above and below the rendered window.
	SetFillers(before, after int)
}

type viewport struct {
	t    *Table
	view RowView

	virtual            bool
	rowHeight          int
	aggregateRowHeight int
	fixedSize          int
	viewRangeSize      int
	dataHeight         int
	scrollTop          int

	rendered viewrange.Range
	dirty    bool
	// pending is set when a render was requested while no view was attached
	pending bool

	attached     map[string]*Row
	attachedAggr map[*AggregateRow]bool

	fillBefore int
	fillAfter  int
}

func newViewport(t *Table, opts Options) *viewport {
	return &viewport{
		t:                  t,
		virtual:            opts.Virtual,
		rowHeight:          opts.RowHeight,
		aggregateRowHeight: opts.AggregateRowHeight,
		fixedSize:          opts.ViewRangeSize,
		attached:           make(map[string]*Row),
		attachedAggr:       make(map[*AggregateRow]bool),
	}
}

// Attach connects a view of the given data height and renders the rows
// requested while detached.
func (t *Table) Attach(view RowView, dataHeight int) error {
	vp := t.vp
	vp.view = view
	vp.dataHeight = dataHeight
	if err := vp.updateViewRangeSize(); err != nil {
		return err
	}
	vp.pending = false
	vp.dirty = true
	return vp.render()
}

// Detach releases the view. Rendering requests are deferred until the next Attach.
func (t *Table) Detach() {
	t.vp.removeAll()
	t.vp.view = nil
}

// IsAttached reports whether a view is attached
func (t *Table) IsAttached() bool { return t.vp.view != nil }

// SetViewportHeight changes the data area height and re-renders
func (t *Table) SetViewportHeight(h int) error {
	t.vp.dataHeight = h
	if err := t.vp.updateViewRangeSize(); err != nil {
		return err
	}
	return t.vp.render()
}

// SetRowHeight changes the default row height used for unmeasured rows
func (t *Table) SetRowHeight(h int) error {
	if h <= 0 {
		return ErrInvalidRowHeight
	}
	t.vp.rowHeight = h
	if err := t.vp.updateViewRangeSize(); err != nil {
		return err
	}
	t.vp.dirty = true
	return t.vp.render()
}

// SetVirtual toggles virtual rendering. Non-virtual tables render every row.
func (t *Table) SetVirtual(v bool) error {
	t.vp.virtual = v
	t.vp.dirty = true
	return t.vp.render()
}

// SetViewRangeSize fixes the number of rendered rows; 0 derives it from the height
func (t *Table) SetViewRangeSize(n int) error {
	t.vp.fixedSize = n
	if err := t.vp.updateViewRangeSize(); err != nil {
		return err
	}
	return t.vp.render()
}

// SetScrollTop scrolls the data area and re-renders the window
func (t *Table) SetScrollTop(top int) error {
	t.vp.scrollTop = max(top, 0)
	return t.vp.render()
}

// ScrollTop returns the current scroll offset
func (t *Table) ScrollTop() int { return t.vp.scrollTop }

// ViewportHeight returns the data area height
func (t *Table) ViewportHeight() int { return t.vp.dataHeight }

// ViewRangeRendered returns the window of visible row indices currently attached
func (t *Table) ViewRangeRendered() viewrange.Range { return t.vp.rendered }

// ViewRangeSize returns the number of rows the window aims to render
func (t *Table) ViewRangeSize() int { return t.vp.viewRangeSize }

// Fillers returns the heights standing in for rows above and below the window
func (t *Table) Fillers() (before, after int) { return t.vp.fillBefore, t.vp.fillAfter }

// RowTop returns the vertical offset of r from the top of the data area
func (t *Table) RowTop(r *Row) int {
	idx := t.VisibleRowIndex(r)
	if idx < 0 {
		return -1
	}
	top := 0
	for _, cur := range t.visibleRows[:idx] {
		top += t.vp.heightForRow(cur)
	}
	return top
}

// ScrollTo scrolls the minimal distance that makes r fully visible
func (t *Table) ScrollTo(r *Row) error {
	top := t.RowTop(r)
	if top < 0 {
		return fmt.Errorf("scroll to %s: %w", r.ID, ErrRowNotFound)
	}
	h := t.vp.heightForRow(r)
	switch {
	case top < t.vp.scrollTop:
		t.vp.scrollTop = top
	case top+h > t.vp.scrollTop+t.vp.dataHeight:
		t.vp.scrollTop = max(top+h-t.vp.dataHeight, 0)
	}
	return t.vp.render()
}

// EnsureRowRendered renders a window around r if r is not attached yet
func (t *Table) EnsureRowRendered(r *Row) error {
	idx := t.VisibleRowIndex(r)
	if idx < 0 {
		return fmt.Errorf("ensure rendered %s: %w", r.ID, ErrRowNotFound)
	}
	if t.vp.view == nil {
		t.vp.pending = true
		return nil
	}
	if r.attached {
		return nil
	}
	return t.vp.renderViewRange(t.vp.viewRangeForRowIndex(idx))
}

func (vp *viewport) updateViewRangeSize() error {
	if vp.fixedSize > 0 {
		vp.viewRangeSize = vp.fixedSize
		return nil
	}
	if vp.rowHeight <= 0 {
		return ErrInvalidRowHeight
	}
	vp.viewRangeSize = int(math.Ceil(float64(vp.dataHeight)/float64(vp.rowHeight))) * 2
	return nil
}

func (vp *viewport) heightForRow(r *Row) int {
	h := r.height
	if h <= 0 {
		h = vp.rowHeight
	}
	if a := r.aggregateAfter; a != nil {
		if a.height > 0 {
			h += a.height
		} else {
			h += vp.aggregateRowHeight
		}
	}
	return h
}

// rowIndexAtScrollTop returns the index of the visible row covering
// scrollTop, the last row if scrollTop lies beyond all rows, or -1 when
// there are no rows.
func (vp *viewport) rowIndexAtScrollTop(scrollTop int) int {
	rows := vp.t.visibleRows
	height := 0
	for i, r := range rows {
		height += vp.heightForRow(r)
		if scrollTop < height {
			return i
		}
	}
	return len(rows) - 1
}

func (vp *viewport) viewRangeForRowIndex(idx int) viewrange.Range {
	n := len(vp.t.visibleRows)
	if !vp.virtual {
		return viewrange.New(0, n)
	}
	size := vp.viewRangeSize
	quarter := size / 4
	from := max(idx-quarter, 0)
	to := min(from+size, n)
	if to-from < size {
		from = max(to-size, 0)
	}
	return viewrange.New(from, to)
}

func (vp *viewport) currentViewRange() viewrange.Range {
	return vp.viewRangeForRowIndex(vp.rowIndexAtScrollTop(vp.scrollTop))
}

func (vp *viewport) render() error {
	if vp.view == nil {
		vp.pending = true
		return nil
	}
	return vp.renderViewRange(vp.currentViewRange())
}

// renderViewRange removes rows leaving the window first, then attaches the
// rows entering it, so the window only ever grows or shrinks at its edges.
func (vp *viewport) renderViewRange(r viewrange.Range) error {
	if r.Equals(vp.rendered) && !vp.dirty {
		return nil
	}
	toRender := r.Subtract(vp.rendered)
	toRemove := vp.rendered.Subtract(r)
	for _, rr := range toRemove {
		if err := vp.removeRowsInRange(rr); err != nil {
			return err
		}
	}
	for _, rr := range toRender {
		if err := vp.renderRowsInRange(rr); err != nil {
			return err
		}
	}
	vp.dirty = false
	vp.renderAggregateRows()
	vp.updateFillers()
	vp.t.trigger(Event{Type: EventViewRangeRendered})
	return nil
}

func (vp *viewport) renderRowsInRange(r viewrange.Range) error {
	rows := vp.t.visibleRows
	r = viewrange.New(0, len(rows)).Intersect(r)
	if r.Empty() {
		return nil
	}
	if !vp.rendered.Intersect(r).Empty() {
		return fmt.Errorf("render %s over rendered %s: %w", r, vp.rendered, ErrViewRangeNotContiguous)
	}
	union := vp.rendered.Union(r)
	if len(union) != 1 {
		return fmt.Errorf("render %s next to rendered %s: %w", r, vp.rendered, ErrViewRangeNotContiguous)
	}
	vp.rendered = union[0]
	for i := r.From; i < r.To; i++ {
		vp.attachRow(rows[i])
	}
	return nil
}

func (vp *viewport) removeRowsInRange(r viewrange.Range) error {
	rows := vp.t.visibleRows
	r = viewrange.New(0, len(rows)).Intersect(r)
	rest := vp.rendered.Subtract(r)
	if len(rest) == 2 {
		return fmt.Errorf("remove %s from rendered %s: %w", r, vp.rendered, ErrViewRangeNotContiguous)
	}
	if len(rest) == 0 {
		vp.rendered = viewrange.Range{}
	} else {
		vp.rendered = rest[0]
	}
	for i := r.From; i < r.To; i++ {
		vp.detachRow(rows[i])
	}
	return nil
}

func (vp *viewport) attachRow(r *Row) {
	if r.attached || vp.view == nil {
		return
	}
	r.height = vp.view.AttachRow(r)
	r.attached = true
	vp.attached[r.ID] = r
}

func (vp *viewport) detachRow(r *Row) {
	if !r.attached {
		return
	}
	if vp.view != nil {
		vp.view.DetachRow(r)
	}
	r.attached = false
	if vp.attached[r.ID] == r {
		delete(vp.attached, r.ID)
	}
}

func (vp *viewport) detachAggregateRow(a *AggregateRow) {
	if !a.attached {
		return
	}
	if vp.view != nil {
		vp.view.DetachAggregateRow(a)
	}
	a.attached = false
	delete(vp.attachedAggr, a)
}

// renderAggregateRows attaches aggregate rows whose anchor row is attached
// and detaches the others. The anchor is the group's first row for
// GroupingStyleTop and its last row otherwise.
func (vp *viewport) renderAggregateRows() {
	if vp.view == nil {
		return
	}
	onTop := vp.t.groupingStyle == GroupingStyleTop
	for _, a := range vp.t.aggregateRows {
		anchorID := a.PrevID
		if onTop {
			anchorID = a.NextID
		}
		anchor := vp.t.rowsMap[anchorID]
		show := anchor != nil && anchor.attached
		switch {
		case show && !a.attached:
			a.height = vp.view.AttachAggregateRow(a)
			a.attached = true
			vp.attachedAggr[a] = true
		case !show && a.attached:
			vp.detachAggregateRow(a)
		}
	}
}

func (vp *viewport) updateFillers() {
	rows := vp.t.visibleRows
	before, after := 0, 0
	from := min(vp.rendered.From, len(rows))
	to := min(vp.rendered.To, len(rows))
	if vp.rendered.Empty() {
		from, to = 0, 0
	}
	for _, r := range rows[:from] {
		before += vp.heightForRow(r)
	}
	if !vp.rendered.Empty() {
		for _, r := range rows[to:] {
			after += vp.heightForRow(r)
		}
	} else {
		for _, r := range rows {
			after += vp.heightForRow(r)
		}
	}
	vp.fillBefore, vp.fillAfter = before, after
	vp.view.SetFillers(before, after)
}

// rowsChanged reconciles the rendered window after the visible rows
// changed. Attached rows keep their place: the window is translated to
// their new indices, rows that left are detached, and rows that appeared
// inside the window are attached before the window is re-fitted to the
// scroll position.
func (vp *viewport) rowsChanged() {
	if vp.view == nil {
		vp.pending = true
		return
	}
	lo, hi := -1, -1
	for _, id := range sortedKeys(vp.attached) {
		r := vp.attached[id]
		idx, visible := vp.t.visibleIndex[id]
		if !visible {
			vp.detachRow(r)
			continue
		}
		if vp.t.rowsMap[id] != r {
			// replaced by an update; the new row is attached below
			vp.detachRow(r)
		}
		if lo < 0 || idx < lo {
			lo = idx
		}
		if idx > hi {
			hi = idx
		}
	}
	switch {
	case lo < 0:
		vp.rendered = viewrange.Range{}
	case vp.virtual && hi-lo+1 > 2*max(vp.viewRangeSize, 1):
		// the survivors drifted apart, filling the gaps would render far
		// more than the window holds
		vp.rowOrderChanged()
		return
	default:
		vp.rendered = viewrange.New(lo, hi+1)
		for _, r := range vp.t.visibleRows[lo : hi+1] {
			vp.attachRow(r)
		}
	}
	vp.dirty = true
	if err := vp.render(); err != nil {
		vp.t.log().Error("viewport render failed", "error", err, "rendered", vp.rendered.String())
	}
}

// rowOrderChanged re-renders the window from scratch at the current
// scroll position.
func (vp *viewport) rowOrderChanged() {
	if vp.view == nil {
		vp.pending = true
		return
	}
	vp.removeAll()
	vp.pending = false
	vp.dirty = true
	if err := vp.render(); err != nil {
		vp.t.log().Error("viewport render failed", "error", err)
	}
}

// removeAll detaches every row and aggregate row
func (vp *viewport) removeAll() {
	for _, id := range sortedKeys(vp.attached) {
		vp.detachRow(vp.attached[id])
	}
	for a := range vp.attachedAggr {
		vp.detachAggregateRow(a)
	}
	vp.rendered = viewrange.Range{}
	vp.pending = true
}

// RerenderAll detaches and re-attaches the whole window, e.g. after the
// column layout changed.
func (t *Table) RerenderAll() error {
	if t.vp.view == nil {
		t.vp.pending = true
		return nil
	}
	t.vp.removeAll()
	t.vp.pending = false
	t.vp.dirty = true
	return t.vp.render()
}
