// Package enrich runs AI enrichment requests (summaries, action items) over a
// transcript, keeping at most one logical request in flight.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetingnote/internal/errs"
	"github.com/jwulff/meetingnote/internal/notify"
)

// Kind selects the enrichment.
type Kind int

const (
	KindSummary Kind = iota
	KindActionItems
)

// Label is the heading shown for results of this kind.
func (k Kind) Label() string {
	switch k {
	case KindSummary:
		return "Meeting summary"
	case KindActionItems:
		return "Action items"
	default:
		return "Result"
	}
}

func (k Kind) String() string {
	switch k {
	case KindSummary:
		return "summary"
	case KindActionItems:
		return "action-items"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the String form of a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "summary", "summarize":
		return KindSummary, nil
	case "action-items", "actions", "action_items":
		return KindActionItems, nil
	}
	return 0, fmt.Errorf("unknown enrichment kind %q", s)
}

// Status is the lifecycle of a Result.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the single live enrichment outcome.
type Result struct {
	Kind    Kind
	Label   string
	Content string
	Status  Status
}

// Service generates raw enrichment text.
type Service interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	ExtractActionItems(ctx context.Context, transcript string) (string, error)
}

// Formatter turns raw service text into display-ready, sanitized content.
type Formatter func(raw string) string

// CompletedMsg carries a finished request back to the event loop.
type CompletedMsg struct {
	Kind Kind
	Text string
	Err  error
	gen  uint64
}

// Options configures a Controller.
type Options struct {
	// Timeout bounds each service call. Zero means no timeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Controller owns the EnrichmentResult. Every request bumps a generation;
// completions carrying an older generation are dropped.
type Controller struct {
	svc     Service
	format  Formatter
	notices notify.Sink
	timeout time.Duration
	log     *slog.Logger

	ctx     context.Context
	gen     uint64
	current *Result
}

// NewController creates a Controller. Requests are scoped to ctx. A nil
// format passes service text through unchanged.
func NewController(ctx context.Context, svc Service, format Formatter, notices notify.Sink, opts Options) *Controller {
	if format == nil {
		format = func(s string) string { return s }
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		svc:     svc,
		format:  format,
		notices: notices,
		timeout: opts.Timeout,
		log:     log,
		ctx:     ctx,
	}
}

// Result returns the live result, if any.
func (c *Controller) Result() (Result, bool) {
	if c.current == nil {
		return Result{}, false
	}
	return *c.current, true
}

// Loading reports whether a request is pending.
func (c *Controller) Loading() bool {
	return c.current != nil && c.current.Status == StatusPending
}

// Discard drops the live result and orphans any pending request.
func (c *Controller) Discard() {
	c.gen++
	c.current = nil
}

// Enrich replaces the live result with a pending one for kind and returns the
// command that performs the call. A blank transcript fails without a call.
func (c *Controller) Enrich(transcript string, kind Kind) tea.Cmd {
	if strings.TrimSpace(transcript) == "" {
		err := errs.Validation("Enter or dictate a transcript first.")
		notify.Info(c.notices, "Transcript required", err.Error())
		return nil
	}
	if c.svc == nil {
		notify.Info(c.notices, "AI unavailable", "No enrichment service is configured.")
		return nil
	}

	c.gen++
	gen := c.gen
	c.current = &Result{Kind: kind, Label: kind.Label(), Status: StatusPending}
	c.log.Info("enrichment requested", "kind", kind, "gen", gen)

	svc, parent, timeout := c.svc, c.ctx, c.timeout
	return func() tea.Msg {
		ctx := parent
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(parent, timeout)
			defer cancel()
		}
		var text string
		var err error
		switch kind {
		case KindActionItems:
			text, err = svc.ExtractActionItems(ctx, transcript)
		default:
			text, err = svc.Summarize(ctx, transcript)
		}
		return CompletedMsg{Kind: kind, Text: text, Err: errs.Enrichment(err), gen: gen}
	}
}

// Update applies completions. Stale completions are dropped silently.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	m, ok := msg.(CompletedMsg)
	if !ok {
		return nil
	}
	if m.gen != c.gen || c.current == nil {
		c.log.Debug("stale enrichment dropped", "kind", m.Kind, "gen", m.gen, "current", c.gen)
		return nil
	}

	if m.Err != nil {
		c.log.Error("enrichment failed", "kind", m.Kind, "error", m.Err)
		c.current.Status = StatusFailed
		c.current.Content = c.format("**Could not generate content:** " + m.Err.Error())
		notify.Info(c.notices, "AI problem", "The AI request failed: "+m.Err.Error())
		return nil
	}

	c.current.Status = StatusReady
	c.current.Content = c.format(m.Text)
	c.log.Info("enrichment ready", "kind", m.Kind, "bytes", len(m.Text))
	return nil
}

// Run performs one request synchronously, outside an event loop.
func (c *Controller) Run(transcript string, kind Kind) (Result, error) {
	cmd := c.Enrich(transcript, kind)
	if cmd == nil {
		if strings.TrimSpace(transcript) == "" {
			return Result{}, errs.Validation("transcript is empty")
		}
		return Result{}, errs.Enrichment(errors.New("no enrichment service is configured"))
	}
	msg := cmd()
	c.Update(msg)
	res, _ := c.Result()
	if m, ok := msg.(CompletedMsg); ok && m.Err != nil {
		return res, m.Err
	}
	return res, nil
}
