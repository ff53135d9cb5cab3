package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_MarshalFlattensData(t *testing.T) {
	ev := NewEvent("12", "rowsSelected", map[string]any{"rowIds": []string{"a", "b"}})
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"target":"12","type":"rowsSelected","rowIds":["a","b"]}`, string(data))

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "12", back.Target)
	assert.Equal(t, "rowsSelected", back.Type)
	assert.NotContains(t, back.Data, "target")

	var payload struct {
		RowIDs []string `json:"rowIds"`
	}
	require.NoError(t, back.Decode(&payload))
	assert.Equal(t, []string{"a", "b"}, payload.RowIDs)
}

func TestEvent_DecodeWithoutRaw(t *testing.T) {
	ev := NewEvent("12", "sort", map[string]any{"columnId": "c1", "ascending": true})
	var payload struct {
		ColumnID  string `json:"columnId"`
		Ascending bool   `json:"ascending"`
	}
	require.NoError(t, ev.Decode(&payload))
	assert.Equal(t, "c1", payload.ColumnID)
	assert.True(t, payload.Ascending)
}

func TestCoalesceEvents(t *testing.T) {
	tests := []struct {
		name    string
		queue   []*Event
		next    *Event
		want    []string
		dropped int
	}{
		{
			name:  "no predicate keeps everything",
			queue: []*Event{NewEvent("1", "a", nil), NewEvent("1", "a", nil)},
			next:  NewEvent("1", "a", nil),
			want:  []string{"a@1", "a@1"},
		},
		{
			name: "same property on same target",
			queue: []*Event{
				NewPropertyEvent("1", "value", 1),
				NewEvent("1", "click", nil),
				NewPropertyEvent("1", "other", 1),
				NewPropertyEvent("2", "value", 1),
			},
			next:    NewPropertyEvent("1", "value", 2),
			want:    []string{"click@1", "property@1", "property@2"},
			dropped: 1,
		},
		{
			name: "same type",
			queue: []*Event{
				NewEvent("1", "scroll", nil),
				NewEvent("1", "click", nil),
				NewEvent("1", "scroll", nil),
			},
			next:    NewEvent("1", "scroll", nil).CoalesceSameType(),
			want:    []string{"click@1"},
			dropped: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := append([]*Event(nil), tt.queue...)
			got, dropped := coalesceEvents(tt.queue, tt.next)
			var names []string
			for _, ev := range got {
				names = append(names, ev.String())
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, tt.dropped, dropped)
			assert.Equal(t, original, tt.queue, "input queue is not modified")
		})
	}
}

func TestRequest_Merge(t *testing.T) {
	queued := &Request{UISessionID: "s1", Events: []*Event{
		NewPropertyEvent("1", "value", "a"),
		NewEvent("1", "click", nil),
	}}
	next := &Request{UISessionID: "s1", Events: []*Event{
		NewPropertyEvent("1", "value", "ab"),
		NewEvent("2", "click", nil),
	}}

	dropped := queued.merge(next)
	assert.Equal(t, 1, dropped)
	require.Len(t, queued.Events, 3)
	assert.Equal(t, "click@1", queued.Events[0].String())
	assert.Equal(t, "ab", queued.Events[1].Properties()["value"])
	assert.Equal(t, "click@2", queued.Events[2].String())
}

func TestRequest_MergeKeepsStartup(t *testing.T) {
	queued := &Request{UISessionID: "s1"}
	next := &Request{UISessionID: "s1", Startup: true, ClientSessionID: "c1"}
	queued.merge(next)
	assert.True(t, queued.Startup)
	assert.Equal(t, "c1", queued.ClientSessionID)
}

func TestRequest_Kind(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{}, "user"},
		{Request{Startup: true}, "startup"},
		{Request{Unload: true, Startup: true}, "unload"},
		{Request{Cancel: true}, "cancel"},
		{Request{Ping: true}, "ping"},
		{Request{PollForBackgroundJobs: true}, "poll"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.req.Kind())
	}
}

func TestRequest_SnapshotIsolated(t *testing.T) {
	req := &Request{Events: []*Event{NewEvent("1", "a", nil)}}
	snap := req.snapshot()
	req.merge(&Request{Events: []*Event{NewEvent("1", "b", nil)}})
	assert.Len(t, snap.Events, 1)
	assert.Len(t, req.Events, 2)
}

func TestFatalMessageFor(t *testing.T) {
	tests := []struct {
		name    string
		err     ErrorInfo
		header  string
		actions []FatalAction
	}{
		{
			name:    "startup failed",
			err:     ErrorInfo{Code: 5, Message: "Could not start"},
			header:  "Could not start",
			actions: []FatalAction{ActionRetry},
		},
		{
			name:    "session timeout",
			err:     ErrorInfo{Code: 10},
			header:  "Session Timeout",
			actions: []FatalAction{ActionReload},
		},
		{
			name:    "ui processing",
			err:     ErrorInfo{Code: 20},
			header:  "Unexpected Problem",
			actions: []FatalAction{ActionReload, ActionIgnore},
		},
		{
			name:    "other",
			err:     ErrorInfo{Code: 42, Message: "x"},
			header:  "Server Error (Code 42)",
			actions: []FatalAction{ActionReload},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := fatalMessageFor(&tt.err)
			assert.Equal(t, tt.err.Code, msg.Code)
			assert.Equal(t, tt.header, msg.Header)
			assert.Equal(t, tt.actions, msg.Actions)
		})
	}
	assert.Equal(t, "Retry", ActionRetry.String())
}

func TestTransportError_Offline(t *testing.T) {
	assert.True(t, (&TransportError{Status: 0}).Offline())
	assert.True(t, (&TransportError{Status: 12029}).Offline())
	assert.False(t, (&TransportError{Status: 503}).Offline())
}
