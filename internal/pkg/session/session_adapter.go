package session

import (
	"fmt"
)

// sessionAdapter receives the events the server addresses to the session
// itself.
type sessionAdapter struct {
	AdapterBase
	s *Session
}

type localeData struct {
	LanguageTag string `json:"languageTag"`
}

type initializedEvent struct {
	ClientSessionID string     `json:"clientSessionId"`
	Locale          localeData `json:"locale"`
	ClientSession   string     `json:"clientSession"`
}

type clientSessionData struct {
	Desktop string `json:"desktop"`
}

func (a *sessionAdapter) OnModelAction(ev *Event) error {
	switch ev.Type {
	case "initialized":
		return a.onInitialized(ev)
	case "localeChanged":
		var l localeData
		if err := ev.Decode(&l); err != nil {
			return err
		}
		a.s.locale.Store(l.LanguageTag)
		a.s.log().Info("Locale changed", "locale", l.LanguageTag)
	case "logout":
		var data struct {
			RedirectURL string `json:"redirectUrl"`
		}
		if err := ev.Decode(&data); err != nil {
			return err
		}
		a.onLogout(data.RedirectURL)
	default:
		a.s.log().Debug("Ignoring session event", "type", ev.Type)
	}
	return nil
}

func (a *sessionAdapter) OnModelPropertyChange(*Event) error { return nil }

func (a *sessionAdapter) onInitialized(ev *Event) error {
	var data initializedEvent
	if err := ev.Decode(&data); err != nil {
		return err
	}
	s := a.s
	if data.ClientSessionID != "" && data.ClientSessionID != s.opts.ClientSessionID {
		s.log().Warn("Server assigned a different client session id",
			"requested", s.opts.ClientSessionID,
			"assigned", data.ClientSessionID)
	}
	s.locale.Store(data.Locale.LanguageTag)

	var desktop Adapter
	if data.ClientSession != "" {
		if cs := s.registry.takeData(data.ClientSession); cs != nil {
			var csData clientSessionData
			if err := cs.Decode(&csData); err != nil {
				return err
			}
			if csData.Desktop != "" {
				d, err := s.GetOrCreateAdapter(csData.Desktop, s.root)
				if err != nil {
					return fmt.Errorf("create desktop: %w", err)
				}
				desktop = d
			}
		}
	}
	s.desktop.Store(adapterHolder{desktop})
	s.initialized.Store(true)
	s.log().Info("Session initialized",
		"client_session_id", s.opts.ClientSessionID,
		"locale", data.Locale.LanguageTag)
	if s.opts.OnInitialized != nil {
		s.opts.OnInitialized(desktop)
	}
	return nil
}

// onLogout runs after the current response is applied
func (a *sessionAdapter) onLogout(redirectURL string) {
	s := a.s
	s.log().Info("Session logged out", "redirect_url", redirectURL)
	s.pollingEnabled.Store(false)
	s.loop.Post(func() {
		if s.opts.OnLogout != nil {
			s.opts.OnLogout(redirectURL)
			return
		}
		s.cancel()
	})
}
