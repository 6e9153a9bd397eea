// Package dictation drives a continuous speech-to-text engine and commits its
// finalized results to a transcript.
package dictation

// Result is one recognition segment. Interim segments may still be revised
// by the engine; final ones will not be.
type Result struct {
	Transcript string
	Final      bool
}

// EventKind identifies an engine callback.
type EventKind int

const (
	EventStart EventKind = iota
	EventEnd
	EventResult
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one engine callback.
//
// For EventResult, Results is the result list of the current capture and
// Index is the first entry that changed since the previous event. Engines
// may omit finals they already delivered and rebase Index accordingly.
// For EventError, Code is the engine's error code.
type Event struct {
	Kind    EventKind
	Index   int
	Results []Result
	Code    string
}

// Engine error codes.
const (
	CodeNotAllowed        = "not-allowed"
	CodePermissionDenied  = "permission-denied"
	CodeNoSpeech          = "no-speech"
	CodeAudioCapture      = "audio-capture"
	CodeServiceNotAllowed = "service-not-allowed"
)

// Engine is a continuous, interim-enabled speech recognizer.
//
// Start and Stop must return promptly. Start reports a synchronous rejection
// (microphone busy, permission denied); everything else arrives on Events.
// Stop must be safe to call when the engine is not capturing.
type Engine interface {
	Start(language string) error
	Stop() error
	Events() <-chan Event
}
