package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/endorses/gridsync/internal/pkg/constants"
	"github.com/endorses/gridsync/internal/pkg/logger"
)

// FatalAction is a choice offered by a fatal message
type FatalAction int

const (
	ActionReload FatalAction = iota
	ActionRetry
	ActionIgnore
)

func (a FatalAction) String() string {
	switch a {
	case ActionRetry:
		return "Retry"
	case ActionIgnore:
		return "Ignore"
	default:
		return "Reload"
	}
}

// FatalMessage is shown when the server reports an application error. The
// first action is the recommended one.
type FatalMessage struct {
	Code    int
	Header  string
	Body    string
	Actions []FatalAction
}

// fatalMessageFor maps a server error to user-facing copy
func fatalMessageFor(e *ErrorInfo) FatalMessage {
	msg := FatalMessage{
		Code:    e.Code,
		Header:  fmt.Sprintf("Server Error (Code %d)", e.Code),
		Body:    e.Message,
		Actions: []FatalAction{ActionReload},
	}
	switch e.Code {
	case constants.ErrorCodeStartupFailed:
		// No texts are available when startup failed
		msg.Header = e.Message
		msg.Body = ""
		msg.Actions = []FatalAction{ActionRetry}
	case constants.ErrorCodeSessionTimeout:
		msg.Header = "Session Timeout"
		msg.Body = "The session has expired. Please reload the application."
	case constants.ErrorCodeUIProcessing:
		msg.Header = "Unexpected Problem"
		msg.Body = strings.Join([]string{
			fmt.Sprintf("An internal error occurred while processing the request (Code %d).", e.Code),
			"The client may be out of sync with the server.",
		}, "\n\n")
		msg.Actions = []FatalAction{ActionReload, ActionIgnore}
	}
	return msg
}

// Presenter shows session state to the user. Its methods are called on the
// session loop and must not block.
type Presenter interface {
	// ShowBusy is called once a request has been running longer than the
	// busy grace delay. cancel asks the server to abort processing.
	ShowBusy(cancel func())
	HideBusy()
	// ShowFatalMessage displays msg until the user picks one of its actions
	// and passes it to respond.
	ShowFatalMessage(msg FatalMessage, respond func(FatalAction))
	SetOffline(offline bool)
	Reconnecting(attempt int, next time.Duration)
}

// LogPresenter reports session state through the logger. Fatal messages are
// logged and never answered, so the session does not restart on its own.
type LogPresenter struct {
	// OnFatal, if set, is called on the session loop after a fatal message
	// was logged. Headless clients use it to shut down.
	OnFatal func(FatalMessage)
}

func (LogPresenter) ShowBusy(func()) { logger.Debug("Session busy") }

func (LogPresenter) HideBusy() { logger.Debug("Session idle") }

func (p LogPresenter) ShowFatalMessage(msg FatalMessage, _ func(FatalAction)) {
	logger.Error("Fatal server message",
		"code", msg.Code,
		"header", msg.Header,
		"body", msg.Body)
	if p.OnFatal != nil {
		p.OnFatal(msg)
	}
}

func (LogPresenter) SetOffline(offline bool) {
	if offline {
		logger.Warn("Connection to server lost")
		return
	}
	logger.Info("Connection to server restored")
}

func (LogPresenter) Reconnecting(attempt int, next time.Duration) {
	logger.Info("Reconnecting to server", "attempt", attempt, "next_in", next)
}
