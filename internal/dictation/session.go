package dictation

import (
	"errors"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/meetingnote/internal/errs"
	"github.com/jwulff/meetingnote/internal/notify"
)

// State is the capture state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateUnsupported
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// DefaultDelimiter is appended after every committed chunk.
const DefaultDelimiter = "។ "

// Transcript is the buffer dictation writes into.
type Transcript interface {
	// BeginDictation clears the transcript and any enrichment result.
	BeginDictation()
	AppendTranscript(chunk string)
}

// EngineMsg carries one engine event into the event loop.
type EngineMsg struct {
	Event Event
	ch    <-chan Event
}

// Options configures a Session.
type Options struct {
	Language  string
	Delimiter string
	Logger    *slog.Logger
}

// Session is the dictation state machine. All methods must be called from
// the event loop.
type Session struct {
	engine     Engine
	transcript Transcript
	notices    notify.Sink
	state      State
	gen        uint64 // bumped by every start and stop
	language   string
	delimiter  string
	log        *slog.Logger
}

// NewSession creates a Session. A nil engine makes the session permanently
// Unsupported.
func NewSession(engine Engine, transcript Transcript, notices notify.Sink, opts Options) *Session {
	s := &Session{
		engine:     engine,
		transcript: transcript,
		notices:    notices,
		language:   opts.Language,
		delimiter:  opts.Delimiter,
		log:        opts.Logger,
	}
	if s.delimiter == "" {
		s.delimiter = DefaultDelimiter
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if engine == nil {
		s.state = StateUnsupported
	}
	return s
}

// Init starts pumping engine events, or reports that dictation is unsupported.
func (s *Session) Init() tea.Cmd {
	if s.engine == nil {
		notify.Info(s.notices, "Dictation not supported",
			"Speech-to-text is not available on this system.")
		return nil
	}
	return waitEvent(s.engine.Events())
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Listening reports whether capture is active.
func (s *Session) Listening() bool {
	return s.state == StateListening
}

// Status is a short human-readable description of the state.
func (s *Session) Status() string {
	switch s.state {
	case StateListening:
		return "Listening..."
	case StateUnsupported:
		return "Dictation unavailable"
	default:
		return "Press record to start"
	}
}

// StartedMsg reports the engine's answer to a start request.
type StartedMsg struct {
	Err error
	gen uint64
}

// StoppedMsg reports the engine's answer to a stop request.
type StoppedMsg struct {
	Err error
}

// Toggle starts capture when idle and stops it when listening.
func (s *Session) Toggle() tea.Cmd {
	if s.state == StateListening {
		return s.Stop()
	}
	return s.Start()
}

// Start clears the transcript, enters Listening, and returns the command
// that asks the engine to begin. A rejected start falls back to Idle when
// its StartedMsg arrives.
func (s *Session) Start() tea.Cmd {
	switch s.state {
	case StateUnsupported:
		err := errs.Unavailable("Speech recognition is not available on this system.")
		notify.Info(s.notices, "Feature unavailable", errs.Message(err))
		return nil
	case StateListening:
		return nil
	}

	s.transcript.BeginDictation()
	s.state = StateListening
	s.gen++
	engine, lang, gen := s.engine, s.language, s.gen
	return func() tea.Msg {
		return StartedMsg{Err: engine.Start(lang), gen: gen}
	}
}

// Stop ends capture and returns the command that tells the engine to stop.
// It is a no-op unless listening. A start still in flight is superseded.
func (s *Session) Stop() tea.Cmd {
	if s.state != StateListening {
		return nil
	}
	s.state = StateIdle
	s.gen++
	s.log.Info("dictation stopped")
	return s.stopEngine()
}

func (s *Session) stopEngine() tea.Cmd {
	engine := s.engine
	return func() tea.Msg {
		return StoppedMsg{Err: engine.Stop()}
	}
}

// Close stops a live capture so nothing keeps recording after teardown.
// The engine is called synchronously.
func (s *Session) Close() {
	if s.state != StateListening {
		return
	}
	s.state = StateIdle
	s.gen++
	if err := s.engine.Stop(); err != nil {
		s.log.Warn("dictation stop failed", "error", err)
	}
}

// Update applies engine events, one at a time, in arrival order.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case EngineMsg:
		s.handle(m.Event)
		return waitEvent(m.ch)
	case StartedMsg:
		return s.started(m)
	case StoppedMsg:
		if m.Err != nil {
			s.log.Warn("dictation stop failed", "error", m.Err)
		}
	}
	return nil
}

func (s *Session) started(m StartedMsg) tea.Cmd {
	if m.gen != s.gen {
		// Stopped while the start was in flight; make sure the engine is off.
		if m.Err == nil {
			return s.stopEngine()
		}
		return nil
	}
	if m.Err != nil {
		err := classifyStartError(m.Err)
		s.log.Error("dictation start failed", "error", err)
		s.state = StateIdle
		notify.Info(s.notices, "Could not start recording",
			"Could not start recording: "+err.Error()+". Make sure no other application is using the microphone.")
		return nil
	}
	s.log.Info("dictation started", "language", s.language)
	return nil
}

func (s *Session) handle(ev Event) {
	if s.state == StateUnsupported {
		return
	}
	switch ev.Kind {
	case EventStart:
		s.state = StateListening
	case EventEnd:
		s.state = StateIdle
	case EventResult:
		if chunk := FinalChunk(ev.Index, ev.Results); chunk != "" {
			s.transcript.AppendTranscript(chunk + s.delimiter)
		}
	case EventError:
		err := MapErrorCode(ev.Code)
		s.log.Error("dictation engine error", "code", ev.Code, "error", err)
		notify.Info(s.notices, "Speech recognition problem", err.Error())
		s.state = StateIdle
	}
}

// FinalChunk concatenates the final results from index onward. It returns ""
// when the concatenation is blank.
func FinalChunk(index int, results []Result) string {
	if index < 0 {
		index = 0
	}
	var b strings.Builder
	for i := index; i < len(results); i++ {
		if results[i].Final {
			b.WriteString(results[i].Transcript)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return ""
	}
	return b.String()
}

// MapErrorCode turns an engine error code into a classified, user-facing error.
func MapErrorCode(code string) error {
	switch code {
	case CodeNotAllowed, CodePermissionDenied, CodeServiceNotAllowed:
		return &errs.Error{Kind: errs.ErrPermissionDenied,
			Msg: "The app cannot access the microphone. Grant microphone access in your system settings, then try again."}
	case CodeNoSpeech:
		return &errs.Error{Kind: errs.ErrNoSpeech, Msg: "No speech was detected. Please try again."}
	case CodeAudioCapture:
		return &errs.Error{Kind: errs.ErrAudioCapture,
			Msg: "Audio capture failed. Make sure your microphone is connected and working."}
	default:
		return &errs.Error{Kind: errs.ErrEngine, Msg: "Speech recognition error: " + code}
	}
}

func classifyStartError(err error) error {
	if errors.Is(err, errs.ErrPermissionDenied) || errors.Is(err, errs.ErrEngineBusy) {
		return err
	}
	return errs.Wrap(errs.ErrEngineBusy, err)
}

func waitEvent(ch <-chan Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return EngineMsg{Event: ev, ch: ch}
	}
}
