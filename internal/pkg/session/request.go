package session

import (
	"encoding/json"
	"slices"
)

// PlatformInfo describes the client. It is created once at startup and
// passed to New.
type PlatformInfo struct {
	DeviceType string `json:"deviceType"`
	System     string `json:"system,omitempty"`
	Terminal   string `json:"terminal,omitempty"`
}

// DeviceTypeDesktop is the default device type; it is not sent on startup
const DeviceTypeDesktop = "DESKTOP"

// Request is the body of one round trip to the server
type Request struct {
	UISessionID           string            `json:"uiSessionId"`
	Startup               bool              `json:"startup,omitempty"`
	ClientSessionID       string            `json:"clientSessionId,omitempty"`
	ParentUISessionID     string            `json:"parentUiSessionId,omitempty"`
	UserAgent             *PlatformInfo     `json:"userAgent,omitempty"`
	CustomParams          map[string]string `json:"customParams,omitempty"`
	Unload                bool              `json:"unload,omitempty"`
	Cancel                bool              `json:"cancel,omitempty"`
	Ping                  bool              `json:"ping,omitempty"`
	Events                []*Event          `json:"events,omitempty"`
	PollForBackgroundJobs bool              `json:"pollForBackgroundJobs,omitempty"`
}

// Kind names the request for logs and metrics
func (r *Request) Kind() string {
	switch {
	case r.Unload:
		return "unload"
	case r.Cancel:
		return "cancel"
	case r.Ping:
		return "ping"
	case r.PollForBackgroundJobs:
		return "poll"
	case r.Startup:
		return "startup"
	default:
		return "user"
	}
}

// snapshot copies the request so the transport goroutine never sees later
// merges into the original.
func (r *Request) snapshot() *Request {
	c := *r
	c.Events = slices.Clone(r.Events)
	return &c
}

// merge folds next into r: next's events first drop the queued events they
// supersede, then are appended. It returns how many events were dropped.
func (r *Request) merge(next *Request) int {
	if next.Startup && !r.Startup {
		r.Startup = true
		r.ClientSessionID = next.ClientSessionID
		r.ParentUISessionID = next.ParentUISessionID
		r.UserAgent = next.UserAgent
		r.CustomParams = next.CustomParams
	}
	dropped := 0
	for _, ev := range next.Events {
		var n int
		r.Events, n = coalesceEvents(r.Events, ev)
		dropped += n
	}
	r.Events = append(r.Events, next.Events...)
	return dropped
}

// ErrorInfo is an application error reported inside a successful response
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is the server's answer to a Request
type Response struct {
	Error             *ErrorInfo                 `json:"error,omitempty"`
	AdapterData       map[string]json.RawMessage `json:"adapterData,omitempty"`
	Events            []*Event                   `json:"events,omitempty"`
	SessionTerminated bool                       `json:"sessionTerminated,omitempty"`
}

// EventTypes lists the types of the response events in order
func (r *Response) EventTypes() []string {
	types := make([]string, len(r.Events))
	for i, ev := range r.Events {
		types[i] = ev.Type
	}
	return types
}
