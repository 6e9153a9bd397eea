package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/lifecycle"

	"github.com/jwulff/meetingnote/internal/dictation"
	"github.com/jwulff/meetingnote/internal/errs"
)

// CodeDisconnected is reported when the event stream drops mid-capture.
const CodeDisconnected = "daemon-disconnected"

// Engine drives the daemon as a dictation.Engine. It holds two connections:
// one for commands and one subscribed to the event stream.
type Engine struct {
	cmd    *Client
	stream *Client
	events chan dictation.Event
	log    *slog.Logger
	cancel context.CancelFunc
}

// NewEngine connects to the daemon at socketPath and starts reading its
// events. The engine stops when ctx is done or Close is called.
func NewEngine(ctx context.Context, socketPath string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	cmd, err := Connect(socketPath)
	if err != nil {
		return nil, err
	}
	stream, err := Connect(socketPath)
	if err != nil {
		cmd.Close()
		return nil, err
	}
	if err := stream.Subscribe(EventPartial, EventSegment, EventStatus, EventError); err != nil {
		cmd.Close()
		stream.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	e := &Engine{
		cmd:    cmd,
		stream: stream,
		events: make(chan dictation.Event, 64),
		log:    log.With("component", "daemon"),
		cancel: cancel,
	}
	context.AfterFunc(ctx, func() {
		stream.Close()
		cmd.Close()
	})
	lifecycle.Go(ctx, e.read, lifecycle.WithErrorHandler(func(err error) {
		e.log.Error("event reader failed", "error", err)
	}))
	return e, nil
}

// Events implements dictation.Engine.
func (e *Engine) Events() <-chan dictation.Event {
	return e.events
}

// Start implements dictation.Engine.
func (e *Engine) Start(language string) error {
	resp, err := e.cmd.SendCommand(Command{Cmd: CmdStart, Locale: language})
	if err != nil {
		return errs.Wrap(errs.ErrEngineBusy, err)
	}
	if resp.OK {
		e.log.Info("capture started", "session", resp.SessionID, "locale", language)
		return nil
	}
	cause := errors.New(resp.Error)
	switch resp.Code {
	case dictation.CodeNotAllowed, dictation.CodePermissionDenied, dictation.CodeServiceNotAllowed:
		return errs.Wrap(errs.ErrPermissionDenied, cause)
	default:
		return errs.Wrap(errs.ErrEngineBusy, cause)
	}
}

// Stop implements dictation.Engine. Stopping an idle daemon is not an error.
func (e *Engine) Stop() error {
	resp, err := e.cmd.SendCommand(Command{Cmd: CmdStop})
	if err != nil {
		return err
	}
	if !resp.OK && resp.Code != "not-recording" {
		return fmt.Errorf("stop: %s", resp.Error)
	}
	return nil
}

// Close disconnects from the daemon.
func (e *Engine) Close() error {
	e.cancel()
	return nil
}

func (e *Engine) read(ctx context.Context) error {
	defer close(e.events)
	for {
		ev, err := e.stream.ReadEvent()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.log.Error("event stream lost", "error", err)
			e.emit(ctx, dictation.Event{Kind: dictation.EventError, Code: CodeDisconnected})
			return nil
		}
		if out, ok := e.translate(ev); ok {
			if !e.emit(ctx, out) {
				return nil
			}
		}
	}
}

func (e *Engine) emit(ctx context.Context, ev dictation.Event) bool {
	select {
	case e.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// translate maps one daemon event onto the engine contract. Finalized
// segments are never resent, so every result event carries only the open
// slot at index 0: a partial as interim, a segment as final.
func (e *Engine) translate(ev Event) (dictation.Event, bool) {
	switch ev.Event {
	case EventStatus:
		if ev.Recording == nil {
			return dictation.Event{}, false
		}
		if *ev.Recording {
			return dictation.Event{Kind: dictation.EventStart}, true
		}
		return dictation.Event{Kind: dictation.EventEnd}, true

	case EventPartial:
		return slotEvent(dictation.Result{Transcript: ev.Text}), true

	case EventSegment:
		return slotEvent(dictation.Result{Transcript: ev.Text, Final: true}), true

	case EventError:
		if ev.Transient != nil && *ev.Transient {
			e.log.Warn("transient daemon error", "message", ev.Message)
			return dictation.Event{}, false
		}
		code := ev.Code
		if code == "" {
			code = ev.Message
		}
		return dictation.Event{Kind: dictation.EventError, Code: code}, true
	}
	return dictation.Event{}, false
}

func slotEvent(r dictation.Result) dictation.Event {
	return dictation.Event{Kind: dictation.EventResult, Index: 0, Results: []dictation.Result{r}}
}

var _ dictation.Engine = (*Engine)(nil)
