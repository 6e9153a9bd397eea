// Package auth tracks the signed-in identity that gates every note operation.
package auth

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

// Identity is the current user. The zero value means nobody is signed in.
type Identity struct {
	UserID string
}

// Present reports whether someone is signed in.
func (i Identity) Present() bool {
	return i.UserID != ""
}

// Provider reports sign-in state changes. The channel delivers the current
// identity first and then every change; a closed channel means no further
// changes will come.
type Provider interface {
	Subscribe(ctx context.Context) (<-chan Identity, error)
}

// SignOuter is implemented by providers that support signing out.
type SignOuter interface {
	SignOut() error
}

// SignInner is implemented by providers that can sign in without user input.
type SignInner interface {
	SignIn() error
}

// ChangedMsg carries an identity change from the provider.
type ChangedMsg struct {
	Identity Identity
	ch       <-chan Identity
}

// ProviderErrorMsg is sent when subscribing to the provider fails.
type ProviderErrorMsg struct {
	Err error
}

// Session holds the current identity and fans changes out to listeners.
type Session struct {
	provider  Provider
	current   Identity
	listeners []func(Identity) tea.Cmd
	log       *slog.Logger
}

// NewSession creates a Session over p. A nil logger uses slog.Default().
func NewSession(p Provider, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{provider: p, log: log}
}

// OnChange registers fn to run on every identity change.
func (s *Session) OnChange(fn func(Identity) tea.Cmd) {
	s.listeners = append(s.listeners, fn)
}

// Identity returns the current identity.
func (s *Session) Identity() Identity {
	return s.current
}

// Init subscribes to the provider.
func (s *Session) Init(ctx context.Context) tea.Cmd {
	if s.provider == nil {
		return nil
	}
	p := s.provider
	return func() tea.Msg {
		ch, err := p.Subscribe(ctx)
		if err != nil {
			return ProviderErrorMsg{Err: err}
		}
		return waitIdentity(ch)()
	}
}

// SignOut asks the provider to sign out, if it can.
func (s *Session) SignOut() error {
	so, ok := s.provider.(SignOuter)
	if !ok {
		return nil
	}
	return so.SignOut()
}

// SignIn asks the provider to sign in, if it can.
func (s *Session) SignIn() error {
	si, ok := s.provider.(SignInner)
	if !ok {
		return nil
	}
	return si.SignIn()
}

// Update applies provider messages.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ChangedMsg:
		return tea.Batch(s.Set(msg.Identity), waitIdentity(msg.ch))
	case ProviderErrorMsg:
		s.log.Error("auth provider failed", "error", msg.Err)
		return s.Set(Identity{})
	}
	return nil
}

// Set installs id and notifies listeners when it differs from the current one.
func (s *Session) Set(id Identity) tea.Cmd {
	if id == s.current {
		return nil
	}
	s.log.Info("identity changed", "present", id.Present(), "user", id.UserID)
	s.current = id
	var cmds []tea.Cmd
	for _, fn := range s.listeners {
		cmds = append(cmds, fn(id))
	}
	return tea.Batch(cmds...)
}

func waitIdentity(ch <-chan Identity) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		id, ok := <-ch
		if !ok {
			return nil
		}
		return ChangedMsg{Identity: id, ch: ch}
	}
}
