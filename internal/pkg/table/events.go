package table

// EventType identifies a table notification.
type EventType int

const (
	EventRowsInserted EventType = iota
	EventRowsUpdated
	EventRowsDeleted
	EventAllRowsDeleted
	EventRowOrderChanged
	EventFilterChanged
	EventFilterAdded
	EventFilterRemoved
	EventRowsSelected
	EventRowsChecked
	EventRowsExpanded
	EventSort
	EventGroup
	EventAggregationChanged
	EventColumnStructureChanged
	EventColumnOrderChanged
	EventViewRangeRendered
)

var eventNames = map[EventType]string{
	EventRowsInserted:           "rowsInserted",
	EventRowsUpdated:            "rowsUpdated",
	EventRowsDeleted:            "rowsDeleted",
	EventAllRowsDeleted:         "allRowsDeleted",
	EventRowOrderChanged:        "rowOrderChanged",
	EventFilterChanged:          "filter",
	EventFilterAdded:            "filterAdded",
	EventFilterRemoved:          "filterRemoved",
	EventRowsSelected:           "rowsSelected",
	EventRowsChecked:            "rowsChecked",
	EventRowsExpanded:           "rowsExpanded",
	EventSort:                   "sort",
	EventGroup:                  "group",
	EventAggregationChanged:     "aggregationFunctionChanged",
	EventColumnStructureChanged: "columnStructureChanged",
	EventColumnOrderChanged:     "columnOrderChanged",
	EventViewRangeRendered:      "viewRangeRendered",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is delivered synchronously to listeners after the table state
// changed. Only the fields relevant to the event type are set.
type Event struct {
	Type   EventType
	Rows   []*Row
	Column *Column
	Filter Filter

	Ascending bool
	Multi     bool
	Removed   bool
	// Requested is set when the table could not sort locally and the
	// sort or grouping must be performed by the data owner.
	Requested bool
}

// Listener receives table events
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

// On registers a listener and returns a function removing it
func (t *Table) On(fn Listener) func() {
	t.nextListenerID++
	id := t.nextListenerID
	t.listeners = append(t.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		for i, l := range t.listeners {
			if l.id == id {
				t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}

func (t *Table) trigger(ev Event) {
	for _, l := range append([]listenerEntry(nil), t.listeners...) {
		l.fn(ev)
	}
}
