package session

import "time"

// Recorder receives session measurements. All methods are called on the
// session loop.
type Recorder interface {
	RequestFinished(kind, result string, d time.Duration)
	EventsSent(n int)
	EventsCoalesced(n int)
	EventReceived(eventType string)
	SetBusy(busy bool)
	SetOffline(offline bool)
	ReconnectAttempt(success bool)
	FatalMessage(code int)
	SetPollingStatus(status string)
}

// Request results reported to Recorder
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultOffline = "offline"
	ResultFailed  = "failed"
)

type nopRecorder struct{}

func (nopRecorder) RequestFinished(string, string, time.Duration) {}
func (nopRecorder) EventsSent(int)                                {}
func (nopRecorder) EventsCoalesced(int)                           {}
func (nopRecorder) EventReceived(string)                          {}
func (nopRecorder) SetBusy(bool)                                  {}
func (nopRecorder) SetOffline(bool)                               {}
func (nopRecorder) ReconnectAttempt(bool)                         {}
func (nopRecorder) FatalMessage(int)                              {}
func (nopRecorder) SetPollingStatus(string)                       {}
