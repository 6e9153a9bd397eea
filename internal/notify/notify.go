// Package notify holds the single user-facing notice slot.
//
// Controllers publish through the Sink interface. The Center keeps at most one
// notice visible; publishing replaces whatever is showing. Confirmation notices
// run their action only on an explicit Accept.
package notify

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

// Notice is a status, error, or confirmation message.
type Notice struct {
	Title        string
	Message      string
	Confirmation bool
	ConfirmLabel string
	// OnConfirm runs when a confirmation notice is accepted. The returned
	// command, if any, is handed back to the event loop.
	OnConfirm func() tea.Cmd
}

// Sink is where controllers publish notices.
type Sink interface {
	Notify(n Notice)
}

// Info publishes a dismiss-only notice.
func Info(s Sink, title, message string) {
	s.Notify(Notice{Title: title, Message: message})
}

// Confirm publishes a notice whose action runs only when accepted.
func Confirm(s Sink, title, message, label string, onConfirm func() tea.Cmd) {
	s.Notify(Notice{
		Title:        title,
		Message:      message,
		Confirmation: true,
		ConfirmLabel: label,
		OnConfirm:    onConfirm,
	})
}

// Center is the Sink the presentation layer reads from.
type Center struct {
	current *Notice
	log     *slog.Logger
}

// NewCenter returns an empty Center. A nil logger uses slog.Default().
func NewCenter(log *slog.Logger) *Center {
	if log == nil {
		log = slog.Default()
	}
	return &Center{log: log}
}

// Notify replaces the visible notice.
func (c *Center) Notify(n Notice) {
	if c.current != nil {
		c.log.Debug("notice replaced", "previous", c.current.Title, "next", n.Title)
	}
	c.log.Info("notice", "title", n.Title, "message", n.Message, "confirmation", n.Confirmation)
	c.current = &n
}

// Current returns the visible notice, if any.
func (c *Center) Current() (Notice, bool) {
	if c.current == nil {
		return Notice{}, false
	}
	return *c.current, true
}

// Visible reports whether a notice is showing.
func (c *Center) Visible() bool {
	return c.current != nil
}

// Accept closes the visible notice. For a confirmation it runs OnConfirm
// and returns its command. The action runs after the slot is cleared so it
// may publish a follow-up notice.
func (c *Center) Accept() tea.Cmd {
	n := c.current
	c.current = nil
	if n == nil || !n.Confirmation || n.OnConfirm == nil {
		return nil
	}
	c.log.Debug("notice confirmed", "title", n.Title)
	return n.OnConfirm()
}

// Dismiss closes the visible notice without running any action.
func (c *Center) Dismiss() {
	if c.current != nil && c.current.Confirmation {
		c.log.Debug("confirmation dismissed", "title", c.current.Title)
	}
	c.current = nil
}
