// Package tableadapter binds a table.Table to a server-side table model
// through a session adapter. Model actions from the server are applied to
// the table; local selection, check, expansion, sort, grouping, aggregation
// and filter changes are sent back as events.
package tableadapter

import (
	"fmt"
	"time"

	"github.com/endorses/gridsync/internal/pkg/constants"
	"github.com/endorses/gridsync/internal/pkg/logger"
	"github.com/endorses/gridsync/internal/pkg/metrics"
	"github.com/endorses/gridsync/internal/pkg/session"
	"github.com/endorses/gridsync/internal/pkg/table"
)

// ObjectType is the object type the server uses for tables
const ObjectType = "Table"

// Sender queues events for the server. *session.Session implements it.
type Sender interface {
	SendEvent(ev *session.Event, delay time.Duration)
}

// Dispatcher runs fn on the goroutine that owns the table
type Dispatcher func(fn func())

// Sync runs fn immediately. Use it when the session loop owns the table.
func Sync(fn func()) { fn() }

// Adapter is the session adapter of one table
type Adapter struct {
	session.AdapterBase

	sender   Sender
	table    *table.Table
	dispatch Dispatcher
	metrics  *metrics.Metrics
	onError  func(error)

	// applying is set while server changes are applied, so they are not
	// echoed back. Only touched on the table goroutine.
	applying bool
	unbind   func()
}

// Config configures adapters created by Factory
type Config struct {
	Dispatch Dispatcher
	Metrics  *metrics.Metrics
	// Table holds the base options; adapter data overrides the flags it sets
	Table table.Options
	// OnCreate is called on the session loop for every new adapter
	OnCreate func(a *Adapter)
	// OnError receives failures applying server changes on the table goroutine
	OnError func(error)
}

// Factory returns a constructor for ObjectType adapters
func Factory(cfg Config) session.FactoryFunc {
	return func(s *session.Session, ad *session.AdapterData) (session.Adapter, error) {
		var data Data
		if err := ad.Decode(&data); err != nil {
			return nil, err
		}
		t, err := NewTable(data, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", ad.ID, err)
		}
		a := New(s, ad.ID, t, cfg)
		if cfg.OnCreate != nil {
			cfg.OnCreate(a)
		}
		return a, nil
	}
}

// New binds t to the adapter id. Table events are sent through sender.
func New(sender Sender, id string, t *table.Table, cfg Config) *Adapter {
	a := &Adapter{
		sender:   sender,
		table:    t,
		dispatch: cfg.Dispatch,
		metrics:  cfg.Metrics,
		onError:  cfg.OnError,
	}
	if a.dispatch == nil {
		a.dispatch = Sync
	}
	a.Init(id, ObjectType)
	a.unbind = t.On(a.onTableEvent)
	a.publishCounts()
	return a
}

// Table returns the bound table. It may only be used on the table goroutine.
func (a *Adapter) Table() *table.Table { return a.table }

// Destroy stops forwarding table events
func (a *Adapter) Destroy() {
	a.dispatch(func() {
		if a.unbind != nil {
			a.unbind()
			a.unbind = nil
		}
	})
}

type rowsPayload struct {
	Rows []table.RowData `json:"rows"`
}

type rowIDsPayload struct {
	RowIDs []string `json:"rowIds"`
}

type rowState struct {
	ID       string `json:"id"`
	Checked  bool   `json:"checked"`
	Expanded bool   `json:"expanded"`
}

type rowStatesPayload struct {
	Rows []rowState `json:"rows"`
}

type columnsPayload struct {
	Columns []ColumnData `json:"columns"`
}

// OnModelAction implements session.Adapter. Payloads are decoded on the
// session loop; the table is changed on the table goroutine.
func (a *Adapter) OnModelAction(ev *session.Event) error {
	switch ev.Type {
	case "rowsInserted":
		var p rowsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		a.apply(ev.Type, func(t *table.Table) error {
			_, err := t.InsertRows(p.Rows)
			return err
		})
	case "rowsUpdated":
		var p rowsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		a.apply(ev.Type, func(t *table.Table) error {
			_, err := t.UpdateRows(p.Rows)
			return err
		})
	case "rowsDeleted":
		var p rowIDsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		a.apply(ev.Type, func(t *table.Table) error {
			t.DeleteRowsByID(p.RowIDs...)
			return nil
		})
	case "allRowsDeleted":
		a.apply(ev.Type, func(t *table.Table) error {
			t.DeleteAllRows()
			return nil
		})
	case "rowOrderChanged":
		var p rowIDsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		a.apply(ev.Type, func(t *table.Table) error {
			rows := rowsByID(t, p.RowIDs)
			if len(rows) != len(p.RowIDs) {
				return fmt.Errorf("row order names %d unknown rows: %w", len(p.RowIDs)-len(rows), table.ErrRowNotFound)
			}
			return t.UpdateRowOrder(rows)
		})
	case "columnStructureChanged":
		var p columnsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		cols, err := NewColumns(p.Columns)
		if err != nil {
			return err
		}
		a.apply(ev.Type, func(t *table.Table) error {
			t.UpdateColumnStructure(cols)
			return nil
		})
	case "rowsSelected":
		var p rowIDsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		a.apply(ev.Type, func(t *table.Table) error {
			t.SelectRows(rowsByID(t, p.RowIDs))
			return nil
		})
	case "rowsChecked":
		var p rowStatesPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		a.apply(ev.Type, func(t *table.Table) error {
			for _, s := range p.Rows {
				if r := t.Row(s.ID); r != nil {
					t.CheckRows([]*table.Row{r}, s.Checked, false)
				}
			}
			return nil
		})
	case "rowsExpanded":
		var p rowStatesPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		a.apply(ev.Type, func(t *table.Table) error {
			for _, s := range p.Rows {
				if r := t.Row(s.ID); r != nil {
					t.ExpandRows([]*table.Row{r}, s.Expanded, false)
				}
			}
			return nil
		})
	default:
		logger.Debug("Ignoring table action", "table", a.ID(), "type", ev.Type)
	}
	return nil
}

// OnModelPropertyChange implements session.Adapter
func (a *Adapter) OnModelPropertyChange(ev *session.Event) error {
	for name, value := range ev.Properties() {
		v, ok := value.(bool)
		if !ok {
			logger.Debug("Ignoring table property", "table", a.ID(), "property", name)
			continue
		}
		switch name {
		case "multiSelect":
			a.apply(name, func(t *table.Table) error { t.SetMultiSelect(v); return nil })
		case "multiCheck":
			a.apply(name, func(t *table.Table) error { t.SetMultiCheck(v); return nil })
		case "checkable":
			a.apply(name, func(t *table.Table) error { t.SetCheckable(v); return nil })
		case "sortEnabled":
			a.apply(name, func(t *table.Table) error { t.SetSortEnabled(v); return nil })
		}
	}
	return nil
}

func (a *Adapter) apply(what string, fn func(t *table.Table) error) {
	a.dispatch(func() {
		a.applying = true
		err := fn(a.table)
		a.applying = false
		a.publishCounts()
		if err != nil {
			err = fmt.Errorf("table %s: apply %s: %w", a.ID(), what, err)
			if a.onError != nil {
				a.onError(err)
				return
			}
			logger.Error("Failed to apply server change", "error", err)
		}
	})
}

// onTableEvent forwards local changes to the server
func (a *Adapter) onTableEvent(ev table.Event) {
	if a.applying {
		return
	}
	switch ev.Type {
	case table.EventRowsSelected:
		a.send(session.NewEvent(a.ID(), "rowsSelected", map[string]any{
			"rowIds": rowIDs(ev.Rows),
		}).CoalesceSameType())
	case table.EventRowsChecked:
		states := make([]map[string]any, len(ev.Rows))
		for i, r := range ev.Rows {
			states[i] = map[string]any{"id": r.ID, "checked": r.Checked}
		}
		a.send(session.NewEvent(a.ID(), "rowsChecked", map[string]any{"rows": states}))
	case table.EventRowsExpanded:
		states := make([]map[string]any, len(ev.Rows))
		for i, r := range ev.Rows {
			states[i] = map[string]any{"id": r.ID, "expanded": r.Expanded}
		}
		a.send(session.NewEvent(a.ID(), "rowsExpanded", map[string]any{"rows": states}))
	case table.EventSort:
		a.send(session.NewEvent(a.ID(), "sort", map[string]any{
			"columnId":         ev.Column.ID,
			"sortAscending":    ev.Ascending,
			"multiSort":        ev.Multi,
			"sortingRemoved":   ev.Removed,
			"sortingRequested": ev.Requested,
		}))
	case table.EventGroup:
		a.send(session.NewEvent(a.ID(), "group", map[string]any{
			"columnId":          ev.Column.ID,
			"groupAscending":    ev.Ascending,
			"multiGroup":        ev.Multi,
			"groupingRemoved":   ev.Removed,
			"groupingRequested": ev.Requested,
		}))
	case table.EventAggregationChanged:
		data := map[string]any{"columnId": ev.Column.ID}
		if setter, ok := ev.Column.Model.(table.AggregationSetter); ok {
			data["aggregationFunction"] = string(setter.Aggregation())
		}
		a.send(session.NewEvent(a.ID(), "aggregationFunctionChanged", data))
	case table.EventFilterChanged:
		a.send(session.NewEvent(a.ID(), "filter", map[string]any{
			"rowIds":     rowIDs(a.table.FilteredRows()),
			"filteredBy": a.table.FilteredBy(),
		}).CoalesceSameType())
	default:
		return
	}
	a.publishCounts()
}

func (a *Adapter) send(ev *session.Event) {
	a.sender.SendEvent(ev, constants.FlushDelay)
}

func (a *Adapter) publishCounts() {
	if a.metrics == nil {
		return
	}
	a.metrics.SetTableRows(a.ID(), metrics.TableCounts{
		Total:    a.table.RowCount(),
		Filtered: len(a.table.FilteredRows()),
		Selected: len(a.table.SelectedRows()),
		Checked:  len(a.table.CheckedRows()),
	})
}

func rowIDs(rows []*table.Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
