package session

import (
	"encoding/json"
	"fmt"
)

// EventTypeProperty marks events that carry property changes. Incoming
// property events are routed to OnModelPropertyChange, all others to
// OnModelAction.
const EventTypeProperty = "property"

// Event is a message between the client and a server-side adapter. On the
// wire Data is flattened next to target and type.
type Event struct {
	Target string
	Type   string
	Data   map[string]any

	property string
	coalesce func(prev *Event) bool
	raw      json.RawMessage
}

// NewEvent creates an event without coalescing
func NewEvent(target, eventType string, data map[string]any) *Event {
	return &Event{Target: target, Type: eventType, Data: data}
}

// NewPropertyEvent creates a property change for one property. A newer
// change of the same property on the same target supersedes queued ones.
func NewPropertyEvent(target, name string, value any) *Event {
	e := &Event{
		Target:   target,
		Type:     EventTypeProperty,
		Data:     map[string]any{"properties": map[string]any{name: value}},
		property: name,
	}
	e.coalesce = func(prev *Event) bool {
		return prev.Target == e.Target && prev.Type == EventTypeProperty && prev.property == e.property
	}
	return e
}

// WithCoalesce sets the predicate deciding which queued events this event
// supersedes, and returns e.
func (e *Event) WithCoalesce(fn func(prev *Event) bool) *Event {
	e.coalesce = fn
	return e
}

// CoalesceSameType supersedes queued events of the same target and type
func (e *Event) CoalesceSameType() *Event {
	return e.WithCoalesce(func(prev *Event) bool {
		return prev.Target == e.Target && prev.Type == e.Type
	})
}

// Coalesces reports whether e declares a coalesce predicate
func (e *Event) Coalesces() bool { return e.coalesce != nil }

// Properties returns the changed properties of a property event
func (e *Event) Properties() map[string]any {
	props, _ := e.Data["properties"].(map[string]any)
	return props
}

// Decode unmarshals the event payload into v
func (e *Event) Decode(v any) error {
	raw := e.raw
	if raw == nil {
		var err error
		if raw, err = json.Marshal(e.Data); err != nil {
			return fmt.Errorf("encode %s event: %w", e.Type, err)
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s event for %s: %w", e.Type, e.Target, err)
	}
	return nil
}

func (e *Event) String() string {
	return fmt.Sprintf("%s@%s", e.Type, e.Target)
}

// MarshalJSON flattens the event as {target, type, ...data}
func (e *Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Data)+2)
	for k, v := range e.Data {
		m[k] = v
	}
	m["target"] = e.Target
	m["type"] = e.Type
	return json.Marshal(m)
}

// UnmarshalJSON reads a flattened event and keeps the raw payload for Decode
func (e *Event) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	e.Target, _ = m["target"].(string)
	e.Type, _ = m["type"].(string)
	delete(m, "target")
	delete(m, "type")
	e.Data = m
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

// coalesceEvents drops the events in queue that ev supersedes. Survivors keep
// their order.
func coalesceEvents(queue []*Event, ev *Event) ([]*Event, int) {
	if ev.coalesce == nil {
		return queue, 0
	}
	kept := queue[:0:0]
	for _, prev := range queue {
		if !ev.coalesce(prev) {
			kept = append(kept, prev)
		}
	}
	return kept, len(queue) - len(kept)
}
